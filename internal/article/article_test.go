package article

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestDemo(t *testing.T) {
	d := Demo()
	assert.Equal(t, DemoID, d.ID)
	assert.Len(t, strings.Split(d.Content, "\n\n"), 4)
	assert.Equal(t, 4, d.Summary().Paragraphs)
	assert.Len(t, d.Images, 3)
	assert.Contains(t, d.Content, "counterintuitive paradigms")
}

func TestLoadFile_Markdown(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "intro.md", []byte("# Cells\r\n\r\nCells are small.\r\nThey divide.\r\n\r\n\r\nMitosis follows.\r\n"))

	a, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Cells", a.Title)
	assert.Equal(t, "Cells are small. They divide.\n\nMitosis follows.", a.Content)
	assert.Equal(t, path, a.Source)
	assert.NotNil(t, a.Images)
}

func TestLoadFile_TextWithoutHeading(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "light_waves.txt", []byte("Light is a wave."))

	a, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "light waves", a.Title)
	assert.Equal(t, "Light is a wave.", a.Content)
}

func TestLoadFile_Encodings(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		data []byte
	}{
		{"utf8-bom.txt", append([]byte{0xEF, 0xBB, 0xBF}, []byte("Schrödinger")...)},
		// "Schrödinger" in UTF-16LE with BOM.
		{"utf16.txt", utf16LE("Schrödinger")},
		// 0xF6 is ö in Windows-1252.
		{"cp1252.txt", []byte("Schr\xf6dinger")},
		// o followed by a combining diaeresis normalises to ö.
		{"nfd.txt", []byte("Schro\u0308dinger")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := LoadFile(writeFile(t, dir, tt.name, tt.data))
			require.NoError(t, err)
			assert.Equal(t, "Schrödinger", a.Content)
		})
	}
}

func utf16LE(s string) []byte {
	out := []byte{0xFF, 0xFE}
	for _, r := range s {
		out = append(out, byte(r), byte(r>>8))
	}
	return out
}

func TestLoadFile_HTML(t *testing.T) {
	dir := t.TempDir()
	page := `<html><head><title> Wave  Functions </title><script>var x = 1;</script></head>
<body>
<nav><p>Home | About</p></nav>
<h1>Ignored heading</h1>
<img src="diagram.png"><img alt="no source">
<p>A wave function   describes a state.</p>
<div class="ad"><p>Buy now!</p></div>
<p>It evolves over time.</p>
<aside><p>Related: quanta</p><img src="ad.jpg"></aside>
<footer><p>Copyright</p></footer>
</body></html>`
	a, err := LoadFile(writeFile(t, dir, "wave.html", []byte(page)))
	require.NoError(t, err)
	assert.Equal(t, "Wave Functions", a.Title)
	assert.Equal(t, "A wave function describes a state.\n\nIt evolves over time.", a.Content)
	assert.Equal(t, "Related: quanta", a.Sidebar)
	assert.Equal(t, []string{"diagram.png", "ad.jpg"}, a.Images)
}

func TestLoadFile_HTMLTitleFromHeading(t *testing.T) {
	a, err := parseHTML("<body><h1>Spin</h1>\n<div>No paragraphs here</div></body>")
	require.NoError(t, err)
	assert.Equal(t, "Spin", a.Title)
	assert.Equal(t, "Spin No paragraphs here", a.Content)
}

func TestLoadFile_Unsupported(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadFile(writeFile(t, dir, "data.csv", []byte("a,b")))
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestLoadFile_BadPDF(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadFile(writeFile(t, dir, "broken.pdf", []byte("not a pdf")))
	assert.Error(t, err)
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"intro.md":                   "intro",
		"notes/Quantum Intro.md":     "notes-quantum-intro",
		"  weird__name!!.txt":        "weird-name",
		"physics/2024/Lecture 3.pdf": "physics-2024-lecture-3",
		"???.txt":                    "article",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slug(in), in)
	}
}

func TestLibrary_EmptyRootHasDemo(t *testing.T) {
	lib := NewLibrary("", nil)
	require.NoError(t, lib.Load(context.Background()))

	list := lib.List()
	require.Len(t, list, 1)
	assert.Equal(t, DemoID, list[0].ID)

	_, err := lib.Get("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLibrary_Load(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.md", []byte("# Bee\n\nBuzz."))
	writeFile(t, dir, "sub/a.txt", []byte("Ay."))
	writeFile(t, dir, "demo.txt", []byte("Clashes with the demo id."))
	writeFile(t, dir, "skip.csv", []byte("x"))
	writeFile(t, dir, "broken.pdf", []byte("not a pdf"))

	lib := NewLibrary(dir, nil)
	require.NoError(t, lib.Load(context.Background()))

	var ids []string
	for _, s := range lib.List() {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"b", "demo", "demo-2", "sub-a"}, ids)

	a, err := lib.Get("b")
	require.NoError(t, err)
	assert.Equal(t, "Bee", a.Title)

	demo, err := lib.Get(DemoID)
	require.NoError(t, err)
	assert.Equal(t, Demo(), demo)
}

func TestLibrary_CustomPatterns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "keep/one.md", []byte("One."))
	writeFile(t, dir, "drop/two.md", []byte("Two."))

	lib := NewLibrary(dir, []string{"keep/**/*.md"})
	require.NoError(t, lib.Load(context.Background()))

	_, err := lib.Get("keep-one")
	assert.NoError(t, err)
	_, err = lib.Get("drop-two")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLibrary_GetReturnsCopy(t *testing.T) {
	lib := NewLibrary("", nil)
	a, err := lib.Get(DemoID)
	require.NoError(t, err)
	a.Images[0] = "mutated"

	b, err := lib.Get(DemoID)
	require.NoError(t, err)
	assert.Equal(t, "decorative-quantum-bg.jpg", b.Images[0])
}

func TestLibrary_WatchReloads(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	writeFile(t, dir, "first.md", []byte("First."))

	lib := NewLibrary(dir, nil)
	lib.debounce = 20 * time.Millisecond
	require.NoError(t, lib.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lib.Watch(ctx) }()

	// Give the watcher time to register the directories.
	time.Sleep(50 * time.Millisecond)
	writeFile(t, dir, "nested/second.md", []byte("Second."))
	writeFile(t, dir, "third.md", []byte("Third."))

	require.Eventually(t, func() bool {
		_, err := lib.Get("third")
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(dir, "first.md")))
	require.Eventually(t, func() bool {
		_, err := lib.Get("first")
		return errors.Is(err, ErrNotFound)
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestLibrary_WatchWithoutRoot(t *testing.T) {
	lib := NewLibrary("", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, lib.Watch(ctx))
}

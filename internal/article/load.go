package article

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrNotFound    = errors.New("article not found")
	ErrUnsupported = errors.New("unsupported article format")
)

// Selectors stripped from HTML before paragraphs are collected.
const noiseSelectors = "nav, footer, header, script, style, noscript, form, aside, .sidebar, .ad, .ads, .advertisement, .cookie-banner, .popup"

const sidebarSelectors = "aside, .sidebar"

// LoadFile reads an article from path, choosing a parser by extension.
// The returned article has no ID; the library assigns one.
func LoadFile(path string) (Article, error) {
	ext := strings.ToLower(filepath.Ext(path))
	var (
		a   Article
		err error
	)
	switch ext {
	case ".txt", ".md":
		a, err = loadText(path)
	case ".html", ".htm":
		a, err = loadHTML(path)
	case ".pdf":
		a, err = loadPDF(path)
	default:
		return Article{}, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	if err != nil {
		return Article{}, err
	}

	if a.Title == "" {
		a.Title = titleFromPath(path)
	}
	if a.Images == nil {
		a.Images = []string{}
	}
	a.Source = path
	return a, nil
}

func loadText(path string) (Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Article{}, fmt.Errorf("reading %s: %w", path, err)
	}
	text, err := decodeText(data)
	if err != nil {
		return Article{}, fmt.Errorf("decoding %s: %w", path, err)
	}

	var a Article
	text = strings.TrimSpace(text)
	if first, rest, _ := strings.Cut(text, "\n"); strings.HasPrefix(first, "# ") {
		a.Title = strings.TrimSpace(strings.TrimPrefix(first, "# "))
		text = rest
	}
	a.Content = joinParagraphs(splitParagraphs(text))
	return a, nil
}

func loadHTML(path string) (Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Article{}, fmt.Errorf("reading %s: %w", path, err)
	}
	text, err := decodeText(data)
	if err != nil {
		return Article{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	return parseHTML(text)
}

func parseHTML(html string) (Article, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Article{}, fmt.Errorf("parsing html: %w", err)
	}

	var a Article
	a.Title = cleanWhitespace(doc.Find("title").First().Text())
	if a.Title == "" {
		a.Title = cleanWhitespace(doc.Find("h1").First().Text())
	}

	a.Images = []string{}
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok && strings.TrimSpace(src) != "" {
			a.Images = append(a.Images, strings.TrimSpace(src))
		}
	})

	var sidebar []string
	doc.Find(sidebarSelectors).Each(func(_ int, s *goquery.Selection) {
		if t := cleanWhitespace(s.Text()); t != "" {
			sidebar = append(sidebar, t)
		}
	})
	a.Sidebar = strings.Join(sidebar, " ")

	doc.Find(noiseSelectors).Remove()

	var paragraphs []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if t := cleanWhitespace(s.Text()); t != "" {
			paragraphs = append(paragraphs, t)
		}
	})
	if len(paragraphs) == 0 {
		if t := cleanWhitespace(doc.Find("body").Text()); t != "" {
			paragraphs = append(paragraphs, t)
		}
	}
	a.Content = joinParagraphs(paragraphs)
	return a, nil
}

func loadPDF(path string) (a Article, err error) {
	// The pdf reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reading pdf %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return Article{}, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return Article{}, fmt.Errorf("extracting pdf text %s: %w", path, err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return Article{}, fmt.Errorf("extracting pdf text %s: %w", path, err)
	}

	a.Content = joinParagraphs(splitParagraphs(norm.NFC.String(buf.String())))
	return a, nil
}

// decodeText turns raw file bytes into NFC-normalised UTF-8 with Unix line
// endings. A BOM selects UTF-8 or UTF-16; otherwise invalid UTF-8 is read as
// Windows-1252.
func decodeText(data []byte) (string, error) {
	var (
		out []byte
		err error
	)
	switch {
	case hasBOM(data):
		out, _, err = transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	case utf8.Valid(data):
		out = data
	default:
		out, err = charmap.Windows1252.NewDecoder().Bytes(data)
	}
	if err != nil {
		return "", err
	}

	s := norm.NFC.String(string(out))
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n"), nil
}

func hasBOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) ||
		bytes.HasPrefix(data, []byte{0xFF, 0xFE}) ||
		bytes.HasPrefix(data, []byte{0xFE, 0xFF})
}

// splitParagraphs splits on blank lines and joins the lines within each
// paragraph with a single space.
func splitParagraphs(text string) []string {
	var out, cur []string
	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.Join(cur, " "))
			cur = nil
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return out
}

func joinParagraphs(paragraphs []string) string {
	return strings.Join(paragraphs, "\n\n")
}

func cleanWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func titleFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(base))
}

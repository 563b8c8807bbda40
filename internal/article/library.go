package article

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
)

// DefaultPattern matches every supported article file under the root.
const DefaultPattern = "**/*.{txt,md,html,htm,pdf}"

const (
	loadConcurrency = 8
	defaultDebounce = 250 * time.Millisecond
)

// Library is the set of articles available for transformation: the demo
// article plus every matching file under a root directory. It is safe for
// concurrent use; Load and Watch swap the article set atomically.
type Library struct {
	root     string
	patterns []string
	debounce time.Duration
	logger   *slog.Logger

	mu       sync.RWMutex
	articles map[string]Article
}

// NewLibrary returns a library over root. An empty root gives a library that
// only holds the demo article. Nil or empty patterns mean DefaultPattern.
func NewLibrary(root string, patterns []string) *Library {
	if len(patterns) == 0 {
		patterns = []string{DefaultPattern}
	}
	demo := Demo()
	return &Library{
		root:     root,
		patterns: patterns,
		debounce: defaultDebounce,
		logger:   slog.Default().With("component", "library"),
		articles: map[string]Article{demo.ID: demo},
	}
}

// Root returns the library directory.
func (l *Library) Root() string { return l.root }

// Load scans the root and replaces the article set. Files that fail to load
// are logged and skipped.
func (l *Library) Load(ctx context.Context) error {
	demo := Demo()
	next := map[string]Article{demo.ID: demo}

	if l.root != "" {
		paths, err := l.match()
		if err != nil {
			return err
		}

		loaded := make([]*Article, len(paths))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(loadConcurrency)
		for i, rel := range paths {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				a, err := LoadFile(filepath.Join(l.root, filepath.FromSlash(rel)))
				if err != nil {
					l.logger.Warn("skipping article", "path", rel, "error", err)
					return nil
				}
				loaded[i] = &a
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for i, rel := range paths {
			if loaded[i] == nil {
				continue
			}
			a := *loaded[i]
			a.ID = uniqueID(next, Slug(rel))
			next[a.ID] = a
		}
	}

	l.mu.Lock()
	l.articles = next
	l.mu.Unlock()

	l.logger.Info("articles loaded", "count", len(next))
	return nil
}

func (l *Library) match() ([]string, error) {
	fsys := os.DirFS(l.root)
	seen := make(map[string]bool)
	var out []string
	for _, pattern := range l.patterns {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("matching %q in %s: %w", pattern, l.root, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	slices.Sort(out)
	return out, nil
}

// Get returns the article with the given id.
func (l *Library) Get(id string) (Article, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.articles[id]
	if !ok {
		return Article{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	a.Images = slices.Clone(a.Images)
	return a, nil
}

// List returns summaries of every article, sorted by id.
func (l *Library) List() []Summary {
	l.mu.RLock()
	out := make([]Summary, 0, len(l.articles))
	for _, a := range l.articles {
		out = append(out, a.Summary())
	}
	l.mu.RUnlock()

	slices.SortFunc(out, func(a, b Summary) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Watch reloads the library whenever files under the root change, until ctx
// is cancelled. Bursts of events within the debounce window cause a single
// reload.
func (l *Library) Watch(ctx context.Context) error {
	if l.root == "" {
		<-ctx.Done()
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := addTree(w, l.root); err != nil {
		return err
	}

	var (
		timer  *time.Timer
		reload <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addTree(w, ev.Name); err != nil {
						l.logger.Warn("watching new directory", "path", ev.Name, "error", err)
					}
				}
			}
			if timer == nil {
				timer = time.NewTimer(l.debounce)
			} else {
				timer.Reset(l.debounce)
			}
			reload = timer.C

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("watcher error", "error", err)

		case <-reload:
			reload = nil
			if err := l.Load(ctx); err != nil && ctx.Err() == nil {
				l.logger.Error("reloading articles", "error", err)
			}
		}
	}
}

func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := w.Add(path); err != nil {
				return fmt.Errorf("watching %s: %w", path, err)
			}
		}
		return nil
	})
}

// Slug derives an article id from a slash-separated relative path:
// "notes/Quantum Intro.md" becomes "notes-quantum-intro".
func Slug(rel string) string {
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(rel) {
		if ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		s = "article"
	}
	return s
}

func uniqueID(taken map[string]Article, id string) string {
	if _, ok := taken[id]; !ok {
		return id
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", id, n)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

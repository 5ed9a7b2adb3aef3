package corpus

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kirillkom/leave-policy-bot/internal/core/ports"
)

const reloadDebounce = 300 * time.Millisecond

// Corpus is the concatenated text of every policy file in a directory.
// It backs answers when vector retrieval yields nothing.
type Corpus struct {
	dir       string
	extractor ports.TextExtractor

	mu    sync.RWMutex
	text  string
	files []string
}

func New(dir string, extractor ports.TextExtractor) *Corpus {
	return &Corpus{dir: dir, extractor: extractor}
}

func (c *Corpus) Text() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.text
}

func (c *Corpus) Files() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.files...)
}

// Load reads the directory again. A missing directory leaves an empty corpus.
// Files that fail to extract are skipped.
func (c *Corpus) Load(ctx context.Context) error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Warn("corpus_dir_missing", "dir", c.dir)
			c.swap("", nil)
			return nil
		}
		return fmt.Errorf("read docs dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") || !c.extractor.Supports(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var (
		b      strings.Builder
		loaded []string
	)
	for _, name := range names {
		text, err := c.extractFile(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("corpus_file_skipped", "file", name, "error", err)
			continue
		}
		fmt.Fprintf(&b, "\n--- %s ---\n%s", name, text)
		loaded = append(loaded, name)
	}

	c.swap(b.String(), loaded)
	slog.Info("corpus_loaded", "dir", c.dir, "files", len(loaded), "chars", b.Len())
	return nil
}

func (c *Corpus) extractFile(ctx context.Context, name string) (string, error) {
	f, err := os.Open(filepath.Join(c.dir, name))
	if err != nil {
		return "", err
	}
	defer f.Close()
	return c.extractor.Extract(ctx, name, f)
}

func (c *Corpus) swap(text string, files []string) {
	c.mu.Lock()
	c.text = text
	c.files = files
	c.mu.Unlock()
}

// Watch reloads the corpus whenever a file in the directory changes, until
// ctx is done. Bursts of events collapse into one reload.
func (c *Corpus) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(c.dir); err != nil {
		return fmt.Errorf("watch %s: %w", c.dir, err)
	}

	timer := time.NewTimer(reloadDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !c.relevant(event) {
				continue
			}
			timer.Reset(reloadDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("corpus_watch_error", "error", err)
		case <-timer.C:
			if err := c.Load(ctx); err != nil {
				slog.Error("corpus_reload_failed", "error", err)
			}
		}
	}
}

func (c *Corpus) relevant(event fsnotify.Event) bool {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return false
	}
	name := filepath.Base(event.Name)
	return !strings.HasPrefix(name, ".") && c.extractor.Supports(name)
}

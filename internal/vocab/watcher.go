package vocab

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher monitors a vocabulary file for changes and hot-swaps the table in a
// [Store] when the file is modified. It uses polling (not fsnotify) to keep
// dependencies minimal. An invalid file is logged and skipped; the store keeps
// serving the last good table.
type Watcher struct {
	path     string
	interval time.Duration
	store    *Store
	log      *slog.Logger

	done     chan struct{}
	stopOnce sync.Once

	// last known file state for change detection
	mu        sync.Mutex
	lastMtime time.Time
	lastHash  [sha256.Size]byte
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 10 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithLogger sets the logger. The default is [slog.Default].
func WithLogger(log *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if log != nil {
			w.log = log
		}
	}
}

// NewWatcher creates a vocabulary file watcher bound to store. It loads the
// file once immediately, replaces the store's table, and starts polling in a
// background goroutine.
func NewWatcher(path string, store *Store, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: 10 * time.Second,
		store:    store,
		log:      slog.Default(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	table, hash, mtime, err := w.loadAndHash()
	if err != nil {
		return nil, fmt.Errorf("vocab: watcher initial load: %w", err)
	}
	store.Replace(table)
	w.lastHash = hash
	w.lastMtime = mtime

	go w.poll()
	return w, nil
}

// Stop stops the file watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
}

func (w *Watcher) poll() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

// check reads the vocabulary file and, if it has changed and is valid, swaps
// the store's table.
func (w *Watcher) check() {
	// Quick mtime check first to avoid hashing unchanged files.
	info, err := os.Stat(w.path)
	if err != nil {
		w.log.Warn("vocabulary watcher: cannot stat file", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	mtime := w.lastMtime
	w.mu.Unlock()

	if info.ModTime().Equal(mtime) {
		return
	}

	table, hash, newMtime, err := w.loadAndHash()
	if err != nil {
		w.log.Warn("vocabulary watcher: failed to load file, keeping previous table",
			"path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	if hash == w.lastHash {
		// File was touched but content is identical.
		w.lastMtime = newMtime
		w.mu.Unlock()
		return
	}
	w.lastHash = hash
	w.lastMtime = newMtime
	w.mu.Unlock()

	w.store.Replace(table)
	w.log.Info("vocabulary reloaded", "path", w.path, "entries", table.Size())
}

// loadAndHash reads the vocabulary file, builds a table, and returns it
// alongside the file's SHA-256 hash and modification time.
func (w *Watcher) loadAndHash() (*Table, [sha256.Size]byte, time.Time, error) {
	var zeroHash [sha256.Size]byte

	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, zeroHash, time.Time{}, err
	}
	info, err := os.Stat(w.path)
	if err != nil {
		return nil, zeroHash, time.Time{}, err
	}

	hash := sha256.Sum256(data)

	table, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, zeroHash, time.Time{}, err
	}

	return table, hash, info.ModTime(), nil
}

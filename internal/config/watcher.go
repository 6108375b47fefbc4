package config

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// fileState is the fingerprint used for cheap change detection: the mtime
// gates the expensive read, the hash catches touch-without-edit.
type fileState struct {
	mtime time.Time
	hash  [sha256.Size]byte
}

// Watcher polls the server config file and invokes a callback when its
// content changes and still parses as a valid [Config]. An edit that fails
// validation is logged and ignored; the previous config stays current.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(old, new *Config)

	mu      sync.Mutex
	current *Config
	seen    fileState

	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher loads the config at path and starts polling it in the
// background. onChange runs outside the watcher lock, so it may call
// [Watcher.Current].
func NewWatcher(path string, onChange func(old, new *Config), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: 5 * time.Second,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, state, err := w.load()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current = cfg
	w.seen = state

	go w.poll()
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop ends the polling goroutine. Safe to call more than once.
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

func (w *Watcher) check() {
	info, err := os.Stat(w.path)
	if err != nil {
		slog.Warn("config watcher: cannot stat file", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	unchanged := info.ModTime().Equal(w.seen.mtime)
	w.mu.Unlock()
	if unchanged {
		return
	}

	cfg, state, err := w.load()
	if err != nil {
		slog.Warn("config watcher: keeping previous config", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	if state.hash == w.seen.hash {
		// Touched but not edited.
		w.seen.mtime = state.mtime
		w.mu.Unlock()
		return
	}
	old := w.current
	w.current = cfg
	w.seen = state
	w.mu.Unlock()

	diff := Diff(old, cfg)
	slog.Info("config watcher: configuration reloaded",
		"path", w.path,
		"restart_required", diff.RestartRequired,
	)

	if w.onChange != nil {
		w.onChange(old, cfg)
	}
}

// load reads, hashes, and parses the file in one pass over an in-memory
// copy, so the bytes that were hashed are exactly the bytes that were parsed.
func (w *Watcher) load() (*Config, fileState, error) {
	f, err := os.Open(w.path)
	if err != nil {
		return nil, fileState{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fileState{}, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fileState{}, err
	}

	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fileState{}, err
	}

	return cfg, fileState{mtime: info.ModTime(), hash: sha256.Sum256(data)}, nil
}

package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches the config file and hot-reloads it.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	done     chan struct{}
	path     string
	debounce time.Duration
	onChange func(*Config)
	timer    *time.Timer
}

// NewWatcher starts watching path. onChange receives every config that
// loads and validates; broken edits are logged and skipped.
func NewWatcher(path string, debounce time.Duration, onChange func(*Config)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Editors often replace the file, so watch the directory.
	dir := filepath.Dir(abs)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &Watcher{
		watcher:  fw,
		done:     make(chan struct{}),
		path:     abs,
		debounce: debounce,
		onChange: onChange,
	}
	go w.watchLoop(fw)
	log.Info().Str("path", abs).Msg("watching config for changes")
	return w, nil
}

// Stop stops the watcher. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher == nil {
		return
	}
	close(w.done)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.watcher.Close()
	w.watcher = nil
	log.Info().Msg("config watcher stopped")
}

func (w *Watcher) watchLoop(fw *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.timer = time.AfterFunc(w.debounce, w.reload)
			w.mu.Unlock()

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("config watcher error")

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) reload() {
	select {
	case <-w.done:
		return
	default:
	}

	cfg, err := LoadFile(w.path)
	if err != nil {
		log.Error().Err(err).Str("path", w.path).Msg("config reload failed")
		return
	}
	log.Info().Str("path", w.path).Msg("config reloaded")
	if w.onChange != nil {
		w.onChange(cfg)
	}
}

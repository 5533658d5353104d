package fallback

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Source holds the current fallback data and reloads it when the
// override file changes.
type Source struct {
	path string
	log  *zap.Logger

	mu   sync.RWMutex
	data *Data
}

// NewSource loads the fallback data with the override file at path.
func NewSource(path string, log *zap.Logger) (*Source, error) {
	if log == nil {
		log = zap.NewNop()
	}
	d, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Source{path: path, log: log, data: d}, nil
}

// Data returns the current data set. Callers must not modify it.
func (s *Source) Data() *Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// Reload re-reads the override file. On error the previous data stays.
func (s *Source) Reload() error {
	d, err := Load(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data = d
	s.mu.Unlock()
	return nil
}

// Watch reloads the data whenever the override file is written, until ctx
// is cancelled. Without an override file it returns immediately.
func (s *Source) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	absPath, err := filepath.Abs(s.path)
	if err != nil {
		return fmt.Errorf("fallback watcher: bad path %q: %w", s.path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fallback watcher: create: %w", err)
	}
	defer watcher.Close()

	// Editors replace files on save, so watch the directory.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("fallback watcher: watch %q: %w", filepath.Dir(absPath), err)
	}
	s.log.Info("watching fallback file", zap.String("path", absPath))

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if p, _ := filepath.Abs(event.Name); p != absPath {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(300*time.Millisecond, func() {
				if err := s.Reload(); err != nil {
					s.log.Warn("fallback reload failed", zap.Error(err))
					return
				}
				s.log.Info("fallback data reloaded", zap.String("path", absPath))
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("fallback watcher error", zap.Error(err))
		}
	}
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"echofm/logger"
)

// Settings holds the user-adjustable runtime settings. They live in a JSON
// document under the data directory and may be edited through the API or by
// hand; external edits are picked up by the watcher.
type Settings struct {
	Quality         string `json:"quality"`
	Theme           string `json:"theme"`
	Autoplay        bool   `json:"autoplay"`
	Notifications   bool   `json:"notifications"`
	CacheSize       int    `json:"cache_size"`
	DefaultPlatform string `json:"default_platform"`
}

// DefaultSettings returns the settings used when no settings file exists or
// the existing one cannot be parsed.
func DefaultSettings(defaultQuality string) Settings {
	return Settings{
		Quality:         defaultQuality,
		Theme:           "dark",
		Autoplay:        true,
		Notifications:   true,
		CacheSize:       1000,
		DefaultPlatform: "youtube",
	}
}

// SettingsStore serializes access to the settings document.
type SettingsStore struct {
	path     string
	fallback Settings

	mu      sync.RWMutex
	current Settings

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewSettingsStore loads settings from path, falling back to defaults when the
// file is missing or corrupt.
func NewSettingsStore(path string, fallback Settings) *SettingsStore {
	s := &SettingsStore{
		path:     path,
		fallback: fallback,
		current:  fallback,
		done:     make(chan struct{}),
	}
	s.reload()
	return s
}

// Get returns a snapshot of the current settings.
func (s *SettingsStore) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Quality returns the currently selected audio quality.
func (s *SettingsStore) Quality() string {
	return s.Get().Quality
}

// Update merges the given patch into the current settings and persists the
// result atomically.
func (s *SettingsStore) Update(patch map[string]interface{}) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Merge via JSON so that partial documents only touch the keys present.
	merged, err := json.Marshal(s.current)
	if err != nil {
		return s.current, err
	}
	var asMap map[string]interface{}
	if err := json.Unmarshal(merged, &asMap); err != nil {
		return s.current, err
	}
	for k, v := range patch {
		asMap[k] = v
	}
	raw, err := json.MarshalIndent(asMap, "", "  ")
	if err != nil {
		return s.current, err
	}

	var next Settings
	if err := json.Unmarshal(raw, &next); err != nil {
		return s.current, fmt.Errorf("invalid settings patch: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return s.current, err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return s.current, err
	}

	s.current = next
	return next, nil
}

// Watch starts watching the settings file for external modifications and
// reloads it on change. It watches the parent directory because atomic
// replaces swap the file inode.
func (s *SettingsStore) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create settings watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch settings directory: %w", err)
	}
	s.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != s.path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					s.reload()
					logger.Info("settings reloaded", logger.String("path", s.path))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("settings watcher error", logger.ErrorField(err))
			case <-s.done:
				return
			}
		}
	}()
	return nil
}

// Close stops the watcher, if any.
func (s *SettingsStore) Close() error {
	close(s.done)
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *SettingsStore) reload() {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to read settings file", logger.ErrorField(err))
		}
		return
	}

	next := s.fallback
	if err := json.Unmarshal(raw, &next); err != nil {
		logger.Warn("settings file is not valid JSON, keeping current settings",
			logger.String("path", s.path), logger.ErrorField(err))
		return
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
}

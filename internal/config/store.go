package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// Store owns the persisted settings tree. It is constructed explicitly and
// handed to the services that need it; there is no process-wide instance.
type Store struct {
	path   string
	logger zerolog.Logger

	mu        sync.Mutex
	settings  Settings
	listeners map[string][]func()
}

// NewStore creates a settings store backed by the JSON file at path. Call
// Load before first use.
func NewStore(path string, logger zerolog.Logger) *Store {
	return &Store{
		path:      path,
		logger:    logger,
		settings:  DefaultSettings(),
		listeners: map[string][]func(){},
	}
}

// Load reads the settings file, applies environment overrides and logs
// validation warnings. A missing file is not an error: defaults are used and
// written on the next Save. A malformed file falls back to defaults.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := DefaultSettings()
	raw, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Info().Str("path", s.path).Msg("settings file missing, using defaults")
	case err != nil:
		return fmt.Errorf("read settings file: %w", err)
	default:
		// Unknown top-level keys are ignored; sections absent from the file
		// keep their defaults.
		if err := json.Unmarshal(raw, &loaded); err != nil {
			s.logger.Error().Err(err).Str("path", s.path).Msg("settings file malformed, using defaults")
			loaded = DefaultSettings()
		}
	}

	loaded = loaded.ApplyEnvOverrides()

	for section, warnings := range loaded.Validate() {
		for _, warning := range warnings {
			s.logger.Warn().Str("section", section).Msg("settings validation: " + warning)
		}
	}

	s.settings = loaded
	return nil
}

// Save writes the settings atomically (temp file + rename) after taking a
// best-effort .bak copy of the previous version.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	if previous, err := os.ReadFile(s.path); err == nil {
		if err := os.WriteFile(s.path+".bak", previous, 0o644); err != nil {
			s.logger.Warn().Err(err).Msg("settings backup failed")
		}
	}

	data, err := json.MarshalIndent(s.settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write settings temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace settings file: %w", err)
	}
	return nil
}

// Settings returns a copy of the current tree.
func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Apply mutates one section, persists the tree and notifies listeners for
// that section. It returns the section's validation warnings; invalid values
// are kept, not reverted.
func (s *Store) Apply(section string, mutate func(*Settings)) ([]string, error) {
	s.mu.Lock()
	mutate(&s.settings)
	warnings := s.settings.Validate()[section]
	err := s.saveLocked()
	callbacks := append([]func(){}, s.listeners[section]...)
	s.mu.Unlock()

	if err != nil {
		return warnings, err
	}
	for _, callback := range callbacks {
		callback()
	}
	return warnings, nil
}

// OnChange registers a callback fired after Apply for the given section.
func (s *Store) OnChange(section string, callback func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[section] = append(s.listeners[section], callback)
}

// Path returns the settings file location.
func (s *Store) Path() string {
	return s.path
}

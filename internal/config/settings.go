package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

// Settings are user preferences persisted between runs.
type Settings struct {
	SelectedDirectoryPath string `yaml:"selected_directory_path"`
}

// SettingsFile stores Settings as YAML. Writes replace the file atomically.
type SettingsFile struct {
	mu   sync.Mutex
	path string
}

// NewSettingsFile creates a SettingsFile at path. The file need not exist yet.
func NewSettingsFile(path string) *SettingsFile {
	return &SettingsFile{path: path}
}

// Load returns the stored settings, or zero Settings when the file is missing.
func (s *SettingsFile) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *SettingsFile) load() (Settings, error) {
	var settings Settings

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("read settings %s: %w", s.path, err)
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("parse settings %s: %w", s.path, err)
	}
	return settings, nil
}

// Save writes settings, creating parent directories as needed.
func (s *SettingsFile) Save(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(settings)
}

func (s *SettingsFile) save(settings Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings directory: %w", err)
		}
	}

	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write settings %s: %w", s.path, err)
	}
	return nil
}

// SelectedDirectory returns the saved helper download directory.
func (s *SettingsFile) SelectedDirectory() (string, error) {
	settings, err := s.Load()
	if err != nil {
		return "", err
	}
	return settings.SelectedDirectoryPath, nil
}

// SaveSelectedDirectory records path as the helper download directory.
func (s *SettingsFile) SaveSelectedDirectory(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.load()
	if err != nil {
		return err
	}
	settings.SelectedDirectoryPath = path
	return s.save(settings)
}

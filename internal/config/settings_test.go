package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsFile_MissingFile(t *testing.T) {
	s := NewSettingsFile(filepath.Join(t.TempDir(), "settings.yaml"))

	dir, err := s.SelectedDirectory()

	require.NoError(t, err)
	assert.Empty(t, dir)
}

func TestSettingsFile_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "settings.yaml")
	s := NewSettingsFile(path)

	require.NoError(t, s.SaveSelectedDirectory("/games/gw2/bin64"))

	dir, err := NewSettingsFile(path).SelectedDirectory()
	require.NoError(t, err)
	assert.Equal(t, "/games/gw2/bin64", dir)
}

func TestSettingsFile_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\n  - ["), 0o600))

	_, err := NewSettingsFile(path).SelectedDirectory()
	require.Error(t, err)
}

package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

// HelperInstaller downloads helper files into the game directory and
// remembers the last directory used.
type HelperInstaller struct {
	downloader driven.FileDownloader
	settings   driven.SettingsStore
}

// NewHelperInstaller creates a HelperInstaller.
func NewHelperInstaller(downloader driven.FileDownloader, settings driven.SettingsStore) *HelperInstaller {
	return &HelperInstaller{downloader: downloader, settings: settings}
}

// Install downloads url into dir. An empty dir falls back to the saved
// directory; with neither, driven.ErrInvalidDirectory is returned. The
// directory is saved after a successful download.
func (h *HelperInstaller) Install(ctx context.Context, url, dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		saved, err := h.settings.SelectedDirectory()
		if err != nil {
			return "", fmt.Errorf("read saved directory: %w", err)
		}
		dir = saved
	}
	if dir == "" {
		return "", driven.ErrInvalidDirectory
	}

	path, err := h.downloader.Download(ctx, url, dir)
	if err != nil {
		return "", err
	}

	if err := h.settings.SaveSelectedDirectory(dir); err != nil {
		// The file is already written.
		slog.Warn("failed to save selected directory", "dir", dir, "error", err)
	}
	return path, nil
}

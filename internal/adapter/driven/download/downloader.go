// Package download fetches helper files such as the ArcDPS d3d11.dll into a
// local directory.
package download

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gregjones/httpcache"
	"github.com/natefinch/atomic"

	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.FileDownloader = (*Downloader)(nil)

const (
	// ArcDPSURL is the upstream location of the ArcDPS DirectX 11 build.
	ArcDPSURL = "https://www.deltaconnected.com/arcdps/x64/d3d11.dll"

	fallbackName = "d3d11.dll"
)

// Downloader writes remote files atomically so a half-finished download never
// replaces a working file.
type Downloader struct {
	http *http.Client
}

// NewDownloader creates a Downloader with caching transport.
func NewDownloader() *Downloader {
	return &Downloader{http: &http.Client{Transport: httpcache.NewMemoryCacheTransport()}}
}

// NewDownloaderWithHTTPClient creates a Downloader with a custom http.Client.
func NewDownloaderWithHTTPClient(httpClient *http.Client) *Downloader {
	return &Downloader{http: httpClient}
}

// Download fetches rawURL into dir and returns the written path.
func (d *Downloader) Download(ctx context.Context, rawURL, dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		slog.Warn("download attempted with no directory selected", "url", rawURL)
		return "", driven.ErrInvalidDirectory
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}

	slog.Info("starting download", "url", rawURL)
	resp, err := d.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("download %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", dir, err)
	}

	target := filepath.Join(dir, fileName(rawURL, resp.Header.Get("Content-Disposition")))
	if err := atomic.WriteFile(target, resp.Body); err != nil {
		return "", fmt.Errorf("save %s: %w", target, err)
	}

	slog.Info("file downloaded", "path", target)
	return target, nil
}

// fileName picks the Content-Disposition filename, then the URL's last path
// segment, then d3d11.dll. Directory components are stripped.
func fileName(rawURL, disposition string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := safeBase(params["filename"]); name != "" {
				return name
			}
		}
	}

	if u, err := url.Parse(rawURL); err == nil {
		if name := safeBase(path.Base(u.Path)); name != "" {
			return name
		}
	}

	return fallbackName
}

func safeBase(name string) string {
	name = strings.Trim(strings.TrimSpace(name), `"`)
	name = filepath.Base(filepath.FromSlash(name))
	switch name {
	case "", ".", "..", string(filepath.Separator):
		return ""
	}
	return name
}

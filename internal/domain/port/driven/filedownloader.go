package driven

import (
	"context"
	"errors"
)

// ErrInvalidDirectory indicates a blank or unusable download directory.
var ErrInvalidDirectory = errors.New("invalid download directory")

// FileDownloader downloads url into dir and returns the written file path.
type FileDownloader interface {
	Download(ctx context.Context, url, dir string) (string, error)
}

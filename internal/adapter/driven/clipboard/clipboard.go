// Package clipboard implements the ClipboardWriter port on the system clipboard.
package clipboard

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"

	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ClipboardWriter = (*Writer)(nil)

// ErrUnsupported is returned when no clipboard utility is available, as on
// headless servers or containers.
var ErrUnsupported = errors.New("system clipboard unavailable")

// Writer copies text to the system clipboard.
type Writer struct{}

// NewWriter creates a Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// WriteText places text on the clipboard.
func (w *Writer) WriteText(text string) error {
	if clipboard.Unsupported {
		return ErrUnsupported
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}

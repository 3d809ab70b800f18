package driven

// ClipboardWriter places text on the system clipboard.
type ClipboardWriter interface {
	WriteText(text string) error
}

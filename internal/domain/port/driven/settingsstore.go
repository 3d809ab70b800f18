package driven

// SettingsStore persists small user preferences between runs.
// SelectedDirectory returns "" when nothing was saved.
type SettingsStore interface {
	SelectedDirectory() (string, error)
	SaveSelectedDirectory(path string) error
}

package model

// ObjectiveFilter selects objectives for display. Empty sets match everything.
// Completed and NotCompleted are independent; setting both matches nothing.
type ObjectiveFilter struct {
	Endpoints    []Endpoint
	Tracks       []Track
	Accounts     []string
	Completed    bool
	NotCompleted bool
}

// Matches reports whether o passes every criterion of the filter.
func (f ObjectiveFilter) Matches(o Objective) bool {
	if len(f.Endpoints) > 0 && !contains(f.Endpoints, o.Endpoint) {
		return false
	}
	if len(f.Tracks) > 0 && !contains(f.Tracks, o.Track) {
		return false
	}
	if len(f.Accounts) > 0 && !contains(f.Accounts, o.AccountName) {
		return false
	}
	if f.Completed && !o.IsComplete() {
		return false
	}
	if f.NotCompleted && o.IsComplete() {
		return false
	}
	return true
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

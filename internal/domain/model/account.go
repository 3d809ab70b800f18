// Package model holds the plain domain types shared by every layer.
package model

import "time"

// Account is a stored Guild Wars 2 API key tracked by vaultpanel. The name is a
// user-chosen label and is unique across all accounts.
type Account struct {
	Name              string
	Token             string
	HasBeenSyncedOnce bool
	LastSyncTime      time.Time
	Objectives        []Objective
}

// Clone returns a deep copy so cached snapshots never share slices with callers.
func (a Account) Clone() Account {
	out := a
	if a.Objectives != nil {
		out.Objectives = make([]Objective, len(a.Objectives))
		copy(out.Objectives, a.Objectives)
	}
	return out
}

// WithSyncedObjectives returns a copy of the account carrying the given objectives
// and stamped as synced at the given time.
func (a Account) WithSyncedObjectives(objectives []Objective, at time.Time) Account {
	out := a.Clone()
	out.Objectives = make([]Objective, len(objectives))
	copy(out.Objectives, objectives)
	out.HasBeenSyncedOnce = true
	out.LastSyncTime = at.UTC()
	return out
}

package model

import (
	"fmt"
	"strings"
)

// Endpoint identifies which Wizard's Vault sub-resource an objective came from.
type Endpoint string

const (
	EndpointDaily   Endpoint = "daily"
	EndpointWeekly  Endpoint = "weekly"
	EndpointSpecial Endpoint = "special"
)

// Endpoints lists every sub-endpoint fetched for an account.
var Endpoints = []Endpoint{EndpointDaily, EndpointWeekly, EndpointSpecial}

// Valid reports whether e is one of the known sub-endpoints.
func (e Endpoint) Valid() bool {
	switch e {
	case EndpointDaily, EndpointWeekly, EndpointSpecial:
		return true
	}
	return false
}

// ParseEndpoint converts s to an Endpoint.
func ParseEndpoint(s string) (Endpoint, error) {
	e := Endpoint(s)
	if !e.Valid() {
		return "", fmt.Errorf("unknown endpoint %q", s)
	}
	return e, nil
}

// Track is the game mode an objective belongs to.
type Track string

const (
	TrackPvE Track = "PvE"
	TrackPvP Track = "PvP"
	TrackWvW Track = "WvW"
)

// ParseTrack converts s to a Track, ignoring case.
func ParseTrack(s string) (Track, error) {
	for _, t := range []Track{TrackPvE, TrackPvP, TrackWvW} {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown track %q", s)
}

// Objective is one Wizard's Vault objective as seen by a specific account.
// The ID is assigned by the remote API; progress and claimed are per account.
type Objective struct {
	ID               int
	Title            string
	Track            Track
	Acclaim          int
	ProgressCurrent  int
	ProgressComplete int
	Claimed          bool
	Endpoint         Endpoint
	AccountName      string
}

// IsComplete reports whether the objective is done for its account: either the
// reward was claimed or progress reached the threshold.
func (o Objective) IsComplete() bool {
	return o.Claimed || o.ProgressCurrent >= o.ProgressComplete
}

// ObjectiveWithPeers is an objective annotated with the other accounts that
// currently hold the same objective id. Peers is comma-joined, empty when none.
type ObjectiveWithPeers struct {
	Objective
	Peers string
}

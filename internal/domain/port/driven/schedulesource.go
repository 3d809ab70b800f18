package driven

import (
	"context"
	"errors"
)

// ErrScheduleNotFound indicates today's Pact Supply Network Agent locations
// could not be determined from the source page.
var ErrScheduleNotFound = errors.New("no matching day found")

// ScheduleSource returns today's Pact Supply Network Agent waypoint chat links.
type ScheduleSource interface {
	PactSupplyLocations(ctx context.Context) (string, error)
}

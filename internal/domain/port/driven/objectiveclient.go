package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
)

// Error kinds returned by ObjectiveClient implementations.
var (
	ErrUnauthorized       = errors.New("api key is invalid or expired")
	ErrForbidden          = errors.New("api key lacks required permissions")
	ErrRemoteNotFound     = errors.New("remote resource not found")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrServiceUnavailable = errors.New("remote api temporarily unavailable")
	ErrUnexpectedStatus   = errors.New("unexpected response from remote api")
	ErrResponseFormat     = errors.New("invalid response format")
	ErrConnection         = errors.New("failed to connect to remote api")
	ErrTimeout            = errors.New("remote api request timed out")

	// ErrNoToken indicates no API key is stored for the requested account.
	ErrNoToken = errors.New("no api key found for account")
)

// ObjectiveClient fetches an account's objectives for one sub-endpoint.
// Returned objectives are tagged with endpoint and accountName.
type ObjectiveClient interface {
	FetchObjectives(ctx context.Context, endpoint model.Endpoint, accountName string) ([]model.Objective, error)
}

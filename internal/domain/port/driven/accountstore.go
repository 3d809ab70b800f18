// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
)

// Sentinel errors returned by AccountStore implementations.
var (
	// ErrAccountNotFound indicates the requested account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountAlreadyExists indicates an account with the same name already exists.
	ErrAccountAlreadyExists = errors.New("account already exists")

	// ErrInvalidAccount indicates a blank name or token.
	ErrInvalidAccount = errors.New("invalid account")
)

// AccountStore defines the driven port for account and objective persistence.
// Get and Token return ErrAccountNotFound when the name is unknown.
// Create returns ErrAccountAlreadyExists for duplicate names.
type AccountStore interface {
	Create(ctx context.Context, account model.Account) error
	Exists(ctx context.Context, name string) (bool, error)
	Get(ctx context.Context, name string) (*model.Account, error)
	List(ctx context.Context) ([]model.Account, error)
	Delete(ctx context.Context, name string) error

	// UpdateSync overwrites the account's sync metadata and reconciles its
	// objective associations with account.Objectives in a single transaction.
	UpdateSync(ctx context.Context, account model.Account) error

	TokenSource
}

// TokenSource resolves the secret API token for an account name.
type TokenSource interface {
	Token(ctx context.Context, name string) (string, error)
}

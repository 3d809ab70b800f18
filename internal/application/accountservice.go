// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

// AccountService is the transactional account and objective use-case layer
// over the AccountStore port. Validation, duplicate and not-found errors pass
// through unchanged; other persistence failures are wrapped with ErrService.
type AccountService struct {
	store driven.AccountStore
}

// NewAccountService creates an AccountService backed by store.
func NewAccountService(store driven.AccountStore) *AccountService {
	return &AccountService{store: store}
}

// Create stores a new account. The name is trimmed; blank names or tokens fail
// with driven.ErrInvalidAccount and taken names with driven.ErrAccountAlreadyExists.
func (s *AccountService) Create(ctx context.Context, name, token string) (model.Account, error) {
	name = strings.TrimSpace(name)
	token = strings.TrimSpace(token)
	if name == "" {
		return model.Account{}, fmt.Errorf("%w: name must not be blank", driven.ErrInvalidAccount)
	}
	if token == "" {
		return model.Account{}, fmt.Errorf("%w: token must not be blank", driven.ErrInvalidAccount)
	}

	exists, err := s.store.Exists(ctx, name)
	if err != nil {
		return model.Account{}, fmt.Errorf("%w: create account %s: %w", ErrService, name, err)
	}
	if exists {
		return model.Account{}, fmt.Errorf("create account %s: %w", name, driven.ErrAccountAlreadyExists)
	}

	account := model.Account{Name: name, Token: token, Objectives: []model.Objective{}}
	if err := s.store.Create(ctx, account); err != nil {
		if errors.Is(err, driven.ErrAccountAlreadyExists) {
			return model.Account{}, err
		}
		return model.Account{}, fmt.Errorf("%w: create account %s: %w", ErrService, name, err)
	}

	return account, nil
}

// Delete removes an account and its objective associations.
func (s *AccountService) Delete(ctx context.Context, name string) error {
	if err := s.store.Delete(ctx, name); err != nil {
		return fmt.Errorf("%w: delete account %s: %w", ErrService, name, err)
	}
	return nil
}

// Get returns the persisted account with its objectives.
func (s *AccountService) Get(ctx context.Context, name string) (model.Account, error) {
	account, err := s.store.Get(ctx, name)
	if err != nil {
		if errors.Is(err, driven.ErrAccountNotFound) {
			return model.Account{}, err
		}
		return model.Account{}, fmt.Errorf("%w: get account %s: %w", ErrService, name, err)
	}
	return normalize(*account), nil
}

// GetAll returns every persisted account with its objectives.
func (s *AccountService) GetAll(ctx context.Context) ([]model.Account, error) {
	accounts, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list accounts: %w", ErrService, err)
	}

	out := make([]model.Account, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, normalize(a))
	}
	return out, nil
}

// Update persists the account's sync metadata and reconciles its objectives
// with account.Objectives in one transaction. Objectives are tagged with the
// account name before they are written.
func (s *AccountService) Update(ctx context.Context, account model.Account) error {
	account = account.Clone()
	for i := range account.Objectives {
		account.Objectives[i].AccountName = account.Name
	}

	if err := s.store.UpdateSync(ctx, account); err != nil {
		if errors.Is(err, driven.ErrAccountNotFound) {
			return err
		}
		return fmt.Errorf("%w: update account %s: %w", ErrService, account.Name, err)
	}
	return nil
}

// normalize guarantees a non-nil objective slice tagged with the owning account.
func normalize(a model.Account) model.Account {
	if a.Objectives == nil {
		a.Objectives = []model.Objective{}
	}
	for i := range a.Objectives {
		a.Objectives[i].AccountName = a.Name
	}
	return a
}

package application_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

var errDB = errors.New("database is locked")

// fakeAccountStore is an in-memory driven.AccountStore.
type fakeAccountStore struct {
	mu       sync.Mutex
	accounts map[string]model.Account

	existsErr error
	listErr   error
	updateErr error
	deletes   int
	updates   int

	// afterUpdate runs once a successful UpdateSync has released the lock.
	afterUpdate func(name string)
}

func newFakeAccountStore(accounts ...model.Account) *fakeAccountStore {
	s := &fakeAccountStore{accounts: make(map[string]model.Account)}
	for _, a := range accounts {
		s.accounts[a.Name] = a.Clone()
	}
	return s
}

func (s *fakeAccountStore) Create(_ context.Context, account model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.Name]; ok {
		return fmt.Errorf("insert account %s: %w", account.Name, driven.ErrAccountAlreadyExists)
	}
	s.accounts[account.Name] = account.Clone()
	return nil
}

func (s *fakeAccountStore) Exists(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsErr != nil {
		return false, s.existsErr
	}
	_, ok := s.accounts[name]
	return ok, nil
}

func (s *fakeAccountStore) Get(_ context.Context, name string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[name]
	if !ok {
		return nil, fmt.Errorf("get account %s: %w", name, driven.ErrAccountNotFound)
	}
	out := a.Clone()
	return &out, nil
}

func (s *fakeAccountStore) List(_ context.Context) ([]model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]model.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a.Clone())
	}
	slices.SortFunc(out, func(a, b model.Account) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *fakeAccountStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	if _, ok := s.accounts[name]; !ok {
		return fmt.Errorf("delete account %s: %w", name, driven.ErrAccountNotFound)
	}
	delete(s.accounts, name)
	return nil
}

func (s *fakeAccountStore) UpdateSync(_ context.Context, account model.Account) error {
	s.mu.Lock()
	s.updates++
	if s.updateErr != nil {
		s.mu.Unlock()
		return s.updateErr
	}
	if _, ok := s.accounts[account.Name]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("update account %s: %w", account.Name, driven.ErrAccountNotFound)
	}
	s.accounts[account.Name] = account.Clone()
	hook := s.afterUpdate
	s.mu.Unlock()

	if hook != nil {
		hook(account.Name)
	}
	return nil
}

func (s *fakeAccountStore) Token(_ context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[name]
	if !ok {
		return "", driven.ErrAccountNotFound
	}
	return a.Token, nil
}

func (s *fakeAccountStore) stored(name string) (model.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[name]
	return a.Clone(), ok
}

// mockObjectiveClient serves objectives from fn and records every call.
type mockObjectiveClient struct {
	fn func(ctx context.Context, endpoint model.Endpoint, name string) ([]model.Objective, error)

	mu    sync.Mutex
	calls []string
}

func (m *mockObjectiveClient) FetchObjectives(ctx context.Context, endpoint model.Endpoint, name string) ([]model.Objective, error) {
	m.mu.Lock()
	m.calls = append(m.calls, name+"/"+string(endpoint))
	m.mu.Unlock()
	return m.fn(ctx, endpoint, name)
}

func (m *mockObjectiveClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// dailyIDs returns a client that serves the given objective ids on the daily
// endpoint for each account and nothing on the others. Accounts listed in
// failing get err instead.
func dailyIDs(ids map[string][]int, failing map[string]error) *mockObjectiveClient {
	return &mockObjectiveClient{
		fn: func(_ context.Context, endpoint model.Endpoint, name string) ([]model.Objective, error) {
			if err, ok := failing[name]; ok {
				return nil, err
			}
			if endpoint != model.EndpointDaily {
				return []model.Objective{}, nil
			}
			out := make([]model.Objective, 0, len(ids[name]))
			for _, id := range ids[name] {
				out = append(out, objective(id, name, model.EndpointDaily))
			}
			return out, nil
		},
	}
}

func objective(id int, account string, endpoint model.Endpoint) model.Objective {
	return model.Objective{
		ID:               id,
		Title:            fmt.Sprintf("Objective %d", id),
		Track:            model.TrackPvE,
		Acclaim:          10,
		ProgressCurrent:  0,
		ProgressComplete: 1,
		Endpoint:         endpoint,
		AccountName:      account,
	}
}

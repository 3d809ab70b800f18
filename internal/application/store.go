package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

// StoreState is the lifecycle state of a Store.
type StoreState int32

const (
	StateUninitialized StoreState = iota
	StateInitializing
	StateInitialized
)

func (s StoreState) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateInitialized:
		return "initialized"
	default:
		return "uninitialized"
	}
}

// Store is the process-wide cache of account snapshots that readers query.
// It is filled from AccountService on Initialize and refreshed by syncs; cache
// entries are replaced whole and copied on the way in and out. Concurrent syncs
// of the same account resolve last-write-wins.
type Store struct {
	service  *AccountService
	fetcher  *Fetcher
	notifier *Notifier
	now      func() time.Time

	state    atomic.Int32
	mu       sync.RWMutex
	accounts map[string]model.Account
}

// NewStore creates an uninitialized Store.
func NewStore(service *AccountService, fetcher *Fetcher, notifier *Notifier) *Store {
	return &Store{
		service:  service,
		fetcher:  fetcher,
		notifier: notifier,
		now:      time.Now,
		accounts: make(map[string]model.Account),
	}
}

// State returns the current lifecycle state.
func (s *Store) State() StoreState {
	return StoreState(s.state.Load())
}

// Initialized reports whether the cache holds persisted data.
func (s *Store) Initialized() bool {
	return s.State() == StateInitialized
}

// WaitInitialized blocks until the Store is initialized, checking every poll.
func (s *Store) WaitInitialized(ctx context.Context, poll time.Duration) error {
	if s.Initialized() {
		return nil
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if s.Initialized() {
				return nil
			}
		}
	}
}

// Initialize loads every persisted account into the cache. Calling it again
// replaces the cache with a fresh load.
func (s *Store) Initialize(ctx context.Context) error {
	s.state.Store(int32(StateInitializing))

	accounts, err := s.service.GetAll(ctx)
	if err != nil {
		s.state.Store(int32(StateUninitialized))
		return fmt.Errorf("%w: initialize: %w", ErrStore, err)
	}

	loaded := make(map[string]model.Account, len(accounts))
	for _, a := range accounts {
		loaded[a.Name] = a.Clone()
	}

	s.mu.Lock()
	s.accounts = loaded
	s.mu.Unlock()
	cachedAccounts.Set(float64(len(loaded)))

	s.state.Store(int32(StateInitialized))
	slog.Info("store initialized", "accounts", len(loaded))
	s.notifier.Publish(Event{Type: EventStoreInitialized})

	return nil
}

// CreateAccount creates and caches an account, then syncs it once. When only
// the sync fails, the cached account is returned with an ErrInitialSync error.
func (s *Store) CreateAccount(ctx context.Context, name, token string) (model.Account, error) {
	account, err := s.service.Create(ctx, name, token)
	if err != nil {
		if errors.Is(err, driven.ErrAccountAlreadyExists) {
			slog.Warn("account already exists", "account", strings.TrimSpace(name))
		}
		return model.Account{}, err
	}

	s.put(account)
	s.notifier.Publish(Event{Type: EventAccountCreated, Accounts: []string{account.Name}})

	synced, err := s.SyncOneAccount(ctx, account.Name)
	if err != nil {
		slog.Error("initial sync failed", "account", account.Name, "error", err)
		return account, fmt.Errorf("%w for account %s: %w", ErrInitialSync, account.Name, err)
	}
	return synced, nil
}

// DeleteAccount removes a cached account from persistence and the cache.
func (s *Store) DeleteAccount(ctx context.Context, name string) error {
	if _, ok := s.get(name); !ok {
		return fmt.Errorf("delete account %s: %w", name, driven.ErrAccountNotFound)
	}

	if err := s.service.Delete(ctx, name); err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}

	s.mu.Lock()
	delete(s.accounts, name)
	n := len(s.accounts)
	s.mu.Unlock()
	cachedAccounts.Set(float64(n))

	s.notifier.Publish(Event{Type: EventAccountDeleted, Accounts: []string{name}})
	return nil
}

// GetAccount returns a cached account.
func (s *Store) GetAccount(name string) (model.Account, error) {
	account, ok := s.get(name)
	if !ok {
		return model.Account{}, fmt.Errorf("get account %s: %w", name, driven.ErrAccountNotFound)
	}
	return account, nil
}

// GetAllAccounts returns every cached account ordered by name.
func (s *Store) GetAllAccounts() []model.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a.Clone())
	}
	slices.SortFunc(out, func(a, b model.Account) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// GetAllObjectives flattens every cached account's objectives.
func (s *Store) GetAllObjectives() []model.Objective {
	return s.FilteredObjectives(nil)
}

// FilteredObjectives returns the cached objectives matching keep. A nil keep
// matches everything.
func (s *Store) FilteredObjectives(keep func(model.Objective) bool) []model.Objective {
	var out []model.Objective
	for _, a := range s.GetAllAccounts() {
		for _, o := range a.Objectives {
			o.AccountName = a.Name
			if keep == nil || keep(o) {
				out = append(out, o)
			}
		}
	}
	return out
}

// ObjectivesForAccount returns one cached account's objectives.
func (s *Store) ObjectivesForAccount(name string) ([]model.Objective, error) {
	account, err := s.GetAccount(name)
	if err != nil {
		return nil, err
	}
	return account.Objectives, nil
}

// GetAllObjectivesWithPeers annotates each objective with the comma-joined
// names of the other accounts holding the same objective id.
func (s *Store) GetAllObjectivesWithPeers() []model.ObjectiveWithPeers {
	accounts := s.GetAllAccounts()

	holders := make(map[int][]string)
	for _, a := range accounts {
		for _, o := range a.Objectives {
			holders[o.ID] = append(holders[o.ID], a.Name)
		}
	}

	var out []model.ObjectiveWithPeers
	for _, a := range accounts {
		for _, o := range a.Objectives {
			o.AccountName = a.Name

			var peers []string
			for _, name := range holders[o.ID] {
				if name != a.Name {
					peers = append(peers, name)
				}
			}
			out = append(out, model.ObjectiveWithPeers{Objective: o, Peers: strings.Join(peers, ",")})
		}
	}
	return out
}

// SyncOneAccount fetches, persists and re-reads one cached account. The cache
// entry is replaced only with the post-persist read.
func (s *Store) SyncOneAccount(ctx context.Context, name string) (model.Account, error) {
	cached, ok := s.get(name)
	if !ok {
		return model.Account{}, fmt.Errorf("sync account %s: %w", name, driven.ErrAccountNotFound)
	}

	start := time.Now()
	account, err := s.syncOne(ctx, cached)
	syncsTotal.WithLabelValues(modeSingle, outcomeLabel(err)).Inc()
	syncDuration.WithLabelValues(modeSingle).Observe(time.Since(start).Seconds())
	if err != nil {
		return model.Account{}, err
	}

	s.notifier.Publish(Event{Type: EventAccountUpdated, Accounts: []string{name}})
	return account, nil
}

func (s *Store) syncOne(ctx context.Context, cached model.Account) (model.Account, error) {
	objectives, err := s.fetcher.FetchAccount(ctx, cached.Name)
	if err != nil {
		return model.Account{}, fmt.Errorf("%w: sync account %s: %w", ErrStore, cached.Name, err)
	}

	if err := s.service.Update(ctx, cached.WithSyncedObjectives(objectives, s.now())); err != nil {
		return model.Account{}, fmt.Errorf("%w: sync account %s: %w", ErrStore, cached.Name, err)
	}

	latest, err := s.service.Get(ctx, cached.Name)
	if err != nil {
		return model.Account{}, fmt.Errorf("%w: reload account %s: %w", ErrStore, cached.Name, err)
	}

	if !s.replaceIfPresent(latest) {
		return model.Account{}, fmt.Errorf("%w: sync account %s: %w", ErrStore, cached.Name, driven.ErrAccountNotFound)
	}
	return latest.Clone(), nil
}

// SyncAllAccounts fetches every cached account as one sequential batch and
// persists and caches each success. Per-account failures are logged, not
// returned; only cancellation is reported.
func (s *Store) SyncAllAccounts(ctx context.Context) error {
	start := time.Now()
	names := s.names()

	results, err := s.fetcher.FetchAccounts(ctx, names)
	var batchErr *BatchError
	switch {
	case errors.As(err, &batchErr):
		for _, ae := range batchErr.Errors {
			slog.Error("account sync failed", "account", ae.Name, "error", ae.Err)
			syncsTotal.WithLabelValues(modeAll, "error").Inc()
		}
	case err != nil:
		slog.Warn("full sync aborted", "error", err)
		return err
	}

	synced := make([]string, 0, len(results))
	for _, name := range names {
		objectives, ok := results[name]
		if !ok {
			continue
		}

		cached, ok := s.get(name)
		if !ok {
			// Deleted while the batch was running.
			continue
		}

		updated := cached.WithSyncedObjectives(objectives, s.now())
		if err := s.service.Update(ctx, updated); err != nil {
			slog.Error("persist synced account failed", "account", name, "error", err)
			syncsTotal.WithLabelValues(modeAll, "error").Inc()
			continue
		}

		if !s.replaceIfPresent(normalize(updated)) {
			slog.Warn("account deleted during sync", "account", name)
			continue
		}
		synced = append(synced, name)
		syncsTotal.WithLabelValues(modeAll, "ok").Inc()
	}

	syncDuration.WithLabelValues(modeAll).Observe(time.Since(start).Seconds())
	slog.Info("full sync complete",
		"accounts", len(names),
		"synced", len(synced),
		"duration", time.Since(start).Round(time.Millisecond),
	)

	if len(synced) > 0 {
		s.notifier.Publish(Event{Type: EventAccountsSynced, Accounts: synced})
	}
	return nil
}

func (s *Store) get(name string) (model.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[name]
	if !ok {
		return model.Account{}, false
	}
	return a.Clone(), true
}

func (s *Store) put(a model.Account) {
	s.mu.Lock()
	s.accounts[a.Name] = a.Clone()
	n := len(s.accounts)
	s.mu.Unlock()
	cachedAccounts.Set(float64(n))
}

// replaceIfPresent swaps in a for an existing entry. An account deleted since
// the sync started stays deleted.
func (s *Store) replaceIfPresent(a model.Account) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[a.Name]; !ok {
		return false
	}
	s.accounts[a.Name] = a.Clone()
	return true
}

func (s *Store) names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.accounts))
	for name := range s.accounts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

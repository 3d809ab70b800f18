package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/vaultpanel/internal/application"
	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

type storeFixture struct {
	accounts *fakeAccountStore
	client   *mockObjectiveClient
	notifier *application.Notifier
	store    *application.Store
}

func newStoreFixture(t *testing.T, client *mockObjectiveClient, accounts ...model.Account) storeFixture {
	t.Helper()

	fake := newFakeAccountStore(accounts...)
	notifier := application.NewNotifier()
	store := application.NewStore(
		application.NewAccountService(fake),
		application.NewFetcher(client, 0),
		notifier,
	)
	return storeFixture{accounts: fake, client: client, notifier: notifier, store: store}
}

func withObjectives(name string, ids ...int) model.Account {
	a := model.Account{Name: name, Token: "key-" + name, HasBeenSyncedOnce: true}
	for _, id := range ids {
		a.Objectives = append(a.Objectives, objective(id, name, model.EndpointDaily))
	}
	return a
}

func TestStore_Initialize(t *testing.T) {
	f := newStoreFixture(t, dailyIDs(nil, nil), withObjectives("B", 2), withObjectives("A", 1))
	events, unsubscribe := f.notifier.Subscribe(4)
	defer unsubscribe()

	assert.Equal(t, application.StateUninitialized, f.store.State())
	require.NoError(t, f.store.Initialize(context.Background()))

	assert.True(t, f.store.Initialized())
	accounts := f.store.GetAllAccounts()
	require.Len(t, accounts, 2)
	assert.Equal(t, "A", accounts[0].Name)
	assert.Equal(t, "B", accounts[1].Name)

	select {
	case e := <-events:
		assert.Equal(t, application.EventStoreInitialized, e.Type)
	default:
		t.Fatal("expected store.initialized event")
	}
}

func TestStore_InitializeFailure(t *testing.T) {
	f := newStoreFixture(t, dailyIDs(nil, nil))
	f.accounts.listErr = errDB

	err := f.store.Initialize(context.Background())
	assert.ErrorIs(t, err, application.ErrStore)
	assert.ErrorIs(t, err, errDB)
	assert.Equal(t, application.StateUninitialized, f.store.State())
}

func TestStore_WaitInitialized(t *testing.T) {
	f := newStoreFixture(t, dailyIDs(nil, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, f.store.WaitInitialized(ctx, 5*time.Millisecond), context.DeadlineExceeded)

	require.NoError(t, f.store.Initialize(context.Background()))
	assert.NoError(t, f.store.WaitInitialized(context.Background(), 5*time.Millisecond))
}

func TestStore_CreateAccountSyncsOnce(t *testing.T) {
	f := newStoreFixture(t, dailyIDs(map[string][]int{"Main": {1, 2}}, nil))
	require.NoError(t, f.store.Initialize(context.Background()))

	account, err := f.store.CreateAccount(context.Background(), "Main", "key")
	require.NoError(t, err)

	assert.True(t, account.HasBeenSyncedOnce)
	assert.False(t, account.LastSyncTime.IsZero())
	assert.Len(t, account.Objectives, 2)

	cached, err := f.store.GetAccount("Main")
	require.NoError(t, err)
	assert.Equal(t, account, cached)

	stored, ok := f.accounts.stored("Main")
	require.True(t, ok)
	assert.Len(t, stored.Objectives, 2)
}

func TestStore_CreateAccountInitialSyncFailure(t *testing.T) {
	f := newStoreFixture(t, dailyIDs(nil, map[string]error{"Main": driven.ErrUnauthorized}))
	require.NoError(t, f.store.Initialize(context.Background()))

	account, err := f.store.CreateAccount(context.Background(), "Main", "bad-key")
	require.ErrorIs(t, err, application.ErrInitialSync)
	assert.ErrorIs(t, err, driven.ErrUnauthorized)
	assert.Equal(t, "Main", account.Name)

	cached, err := f.store.GetAccount("Main")
	require.NoError(t, err)
	assert.False(t, cached.HasBeenSyncedOnce)
}

func TestStore_CreateAccountDuplicate(t *testing.T) {
	f := newStoreFixture(t, dailyIDs(nil, nil), withObjectives("Main", 1))
	require.NoError(t, f.store.Initialize(context.Background()))

	_, err := f.store.CreateAccount(context.Background(), "Main", "key")
	require.ErrorIs(t, err, driven.ErrAccountAlreadyExists)
	assert.Zero(t, f.client.callCount())
}

func TestStore_DeleteAccount(t *testing.T) {
	f := newStoreFixture(t, dailyIDs(nil, nil), withObjectives("Main", 1))
	require.NoError(t, f.store.Initialize(context.Background()))

	require.NoError(t, f.store.DeleteAccount(context.Background(), "Main"))

	_, err := f.store.GetAccount("Main")
	assert.ErrorIs(t, err, driven.ErrAccountNotFound)
	_, ok := f.accounts.stored("Main")
	assert.False(t, ok)
}

func TestStore_DeleteAccountNotCached(t *testing.T) {
	f := newStoreFixture(t, dailyIDs(nil, nil))
	require.NoError(t, f.store.Initialize(context.Background()))

	err := f.store.DeleteAccount(context.Background(), "ghost")
	require.ErrorIs(t, err, driven.ErrAccountNotFound)
	assert.Zero(t, f.accounts.deletes)
}

func TestStore_GetAllObjectivesWithPeers(t *testing.T) {
	f := newStoreFixture(t, dailyIDs(nil, nil),
		withObjectives("A", 1, 2),
		withObjectives("B", 1),
		withObjectives("C", 1, 3),
	)
	require.NoError(t, f.store.Initialize(context.Background()))

	peers := make(map[string]string)
	for _, o := range f.store.GetAllObjectivesWithPeers() {
		peers[o.AccountName+"/"+o.Title] = o.Peers
	}

	assert.Equal(t, map[string]string{
		"A/Objective 1": "B,C",
		"A/Objective 2": "",
		"B/Objective 1": "A,C",
		"C/Objective 1": "A,B",
		"C/Objective 3": "",
	}, peers)
}

func TestStore_SnapshotsAreIsolated(t *testing.T) {
	f := newStoreFixture(t, dailyIDs(nil, nil), withObjectives("A", 1))
	require.NoError(t, f.store.Initialize(context.Background()))

	account, err := f.store.GetAccount("A")
	require.NoError(t, err)
	account.Objectives[0].Title = "mutated"

	objectives, err := f.store.ObjectivesForAccount("A")
	require.NoError(t, err)
	assert.Equal(t, "Objective 1", objectives[0].Title)
}

func TestStore_FilteredObjectives(t *testing.T) {
	a := withObjectives("A", 1, 2)
	a.Objectives[1].Claimed = true
	f := newStoreFixture(t, dailyIDs(nil, nil), a, withObjectives("B", 3))
	require.NoError(t, f.store.Initialize(context.Background()))

	filter := model.ObjectiveFilter{Accounts: []string{"A"}, NotCompleted: true}
	got := f.store.FilteredObjectives(filter.Matches)

	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].ID)
	assert.Len(t, f.store.GetAllObjectives(), 3)
}

func TestStore_SyncOneAccountReplacesObjectives(t *testing.T) {
	f := newStoreFixture(t, dailyIDs(map[string][]int{"A": {2, 3}}, nil), withObjectives("A", 1, 2))
	require.NoError(t, f.store.Initialize(context.Background()))

	account, err := f.store.SyncOneAccount(context.Background(), "A")
	require.NoError(t, err)

	ids := make([]int, 0, len(account.Objectives))
	for _, o := range account.Objectives {
		ids = append(ids, o.ID)
	}
	assert.ElementsMatch(t, []int{2, 3}, ids)
}

func TestStore_SyncOneAccountUnknown(t *testing.T) {
	f := newStoreFixture(t, dailyIDs(nil, nil))
	require.NoError(t, f.store.Initialize(context.Background()))

	_, err := f.store.SyncOneAccount(context.Background(), "ghost")
	require.ErrorIs(t, err, driven.ErrAccountNotFound)
	assert.Zero(t, f.client.callCount())
}

func TestStore_SyncOneAccountFailureKeepsCache(t *testing.T) {
	f := newStoreFixture(t, dailyIDs(nil, map[string]error{"A": driven.ErrRateLimited}), withObjectives("A", 1))
	require.NoError(t, f.store.Initialize(context.Background()))

	_, err := f.store.SyncOneAccount(context.Background(), "A")
	require.ErrorIs(t, err, application.ErrStore)
	assert.ErrorIs(t, err, driven.ErrRateLimited)

	cached, err := f.store.GetAccount("A")
	require.NoError(t, err)
	assert.Len(t, cached.Objectives, 1)
}

func TestStore_SyncAllAccountsPartialFailure(t *testing.T) {
	f := newStoreFixture(t,
		dailyIDs(
			map[string][]int{"A": {10}, "C": {30, 31}},
			map[string]error{"B": driven.ErrServiceUnavailable},
		),
		withObjectives("A", 1),
		withObjectives("B", 2),
		withObjectives("C", 3),
	)
	require.NoError(t, f.store.Initialize(context.Background()))
	events, unsubscribe := f.notifier.Subscribe(4)
	defer unsubscribe()

	require.NoError(t, f.store.SyncAllAccounts(context.Background()))

	a, _ := f.store.GetAccount("A")
	b, _ := f.store.GetAccount("B")
	c, _ := f.store.GetAccount("C")
	assert.Equal(t, 10, a.Objectives[0].ID)
	assert.Equal(t, 2, b.Objectives[0].ID)
	assert.Len(t, c.Objectives, 2)

	storedC, _ := f.accounts.stored("C")
	assert.Len(t, storedC.Objectives, 2)

	e := <-events
	assert.Equal(t, application.EventAccountsSynced, e.Type)
	assert.Equal(t, []string{"A", "C"}, e.Accounts)
}

func TestStore_SyncAllAccountsDoesNotRestoreDeletedAccount(t *testing.T) {
	f := newStoreFixture(t,
		dailyIDs(map[string][]int{"A": {10}, "B": {20}}, nil),
		withObjectives("A", 1),
		withObjectives("B", 2),
	)
	require.NoError(t, f.store.Initialize(context.Background()))
	f.accounts.afterUpdate = func(name string) {
		if name == "A" {
			require.NoError(t, f.store.DeleteAccount(context.Background(), "A"))
		}
	}
	events, unsubscribe := f.notifier.Subscribe(4)
	defer unsubscribe()

	require.NoError(t, f.store.SyncAllAccounts(context.Background()))

	_, err := f.store.GetAccount("A")
	require.ErrorIs(t, err, driven.ErrAccountNotFound)
	_, ok := f.accounts.stored("A")
	assert.False(t, ok)

	b, err := f.store.GetAccount("B")
	require.NoError(t, err)
	assert.Equal(t, 20, b.Objectives[0].ID)

	assert.Equal(t, application.EventAccountDeleted, (<-events).Type)
	synced := <-events
	assert.Equal(t, application.EventAccountsSynced, synced.Type)
	assert.Equal(t, []string{"B"}, synced.Accounts)
}

func TestStore_SyncOneAccountDeletedMidSync(t *testing.T) {
	f := newStoreFixture(t, dailyIDs(map[string][]int{"A": {10}}, nil), withObjectives("A", 1))
	require.NoError(t, f.store.Initialize(context.Background()))
	f.accounts.afterUpdate = func(name string) {
		require.NoError(t, f.store.DeleteAccount(context.Background(), name))
	}

	_, err := f.store.SyncOneAccount(context.Background(), "A")
	require.ErrorIs(t, err, driven.ErrAccountNotFound)

	_, err = f.store.GetAccount("A")
	require.ErrorIs(t, err, driven.ErrAccountNotFound)
	assert.Empty(t, f.store.GetAllAccounts())
}

func TestStore_SyncAllAccountsCanceled(t *testing.T) {
	f := newStoreFixture(t, dailyIDs(nil, nil), withObjectives("A", 1))
	require.NoError(t, f.store.Initialize(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, f.store.SyncAllAccounts(ctx), context.Canceled)
	assert.Zero(t, f.accounts.updates)
}

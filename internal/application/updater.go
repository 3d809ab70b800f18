package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultSyncInterval is the period between background full syncs.
const DefaultSyncInterval = 15 * time.Minute

// Updater periodically syncs every cached account. It waits for the Store to be
// initialized, runs one sync right away, then one per interval. Manual syncs
// requested through TriggerSync run on the same goroutine, so syncs never
// overlap.
type Updater struct {
	store        *Store
	interval     time.Duration
	pollInterval time.Duration
	triggerCh    chan chan error
}

// NewUpdater creates an Updater. A non-positive interval uses DefaultSyncInterval.
func NewUpdater(store *Store, interval time.Duration) *Updater {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	return &Updater{
		store:        store,
		interval:     interval,
		pollInterval: time.Second,
		triggerCh:    make(chan chan error),
	}
}

// Serve runs the update loop until ctx is canceled. A failing sync cycle is
// logged and the loop keeps going.
func (u *Updater) Serve(ctx context.Context) error {
	slog.Info("updater waiting for store initialization")
	if err := u.store.WaitInitialized(ctx, u.pollInterval); err != nil {
		return err
	}

	slog.Info("updater started", "interval", u.interval)
	u.cycle(ctx)

	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("updater stopped")
			return ctx.Err()
		case <-ticker.C:
			u.cycle(ctx)
		case done := <-u.triggerCh:
			done <- u.cycle(ctx)
		}
	}
}

// TriggerSync asks the running loop for an immediate full sync and blocks until
// it completes or ctx is canceled.
func (u *Updater) TriggerSync(ctx context.Context) error {
	done := make(chan error, 1)

	select {
	case u.triggerCh <- done:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (u *Updater) String() string {
	return "updater"
}

// cycle runs one full sync and isolates the loop from panics inside it.
func (u *Updater) cycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("sync cycle panicked", "panic", r)
			err = fmt.Errorf("%w: sync cycle panicked: %v", ErrStore, r)
		}
	}()

	if err := u.store.SyncAllAccounts(ctx); err != nil {
		slog.Error("sync cycle failed", "error", err)
		return err
	}
	return nil
}

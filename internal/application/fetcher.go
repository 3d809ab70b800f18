package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

// Fetcher fans an account's fetch out across the three sub-endpoints and walks
// batches of accounts one at a time to bound the outbound request rate.
type Fetcher struct {
	client driven.ObjectiveClient
	delay  time.Duration
}

// NewFetcher creates a Fetcher that pauses delay after each endpoint call.
func NewFetcher(client driven.ObjectiveClient, delay time.Duration) *Fetcher {
	return &Fetcher{client: client, delay: delay}
}

// FetchAccount returns the merged daily, weekly and special objectives of one
// account. Any endpoint failure or cancellation fails the whole account.
func (f *Fetcher) FetchAccount(ctx context.Context, name string) ([]model.Objective, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: account name must not be blank", driven.ErrInvalidAccount)
	}

	results := make([][]model.Objective, len(model.Endpoints))
	g, gctx := errgroup.WithContext(ctx)

	for i, endpoint := range model.Endpoints {
		g.Go(func() error {
			objectives, err := f.client.FetchObjectives(gctx, endpoint, name)
			if err != nil {
				return err
			}

			select {
			case <-time.After(f.delay):
			case <-gctx.Done():
				return gctx.Err()
			}

			results[i] = objectives
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	var merged []model.Objective
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged, nil
}

// FetchAccounts fetches each named account in order. Failures are collected and
// returned as a *BatchError after every account was attempted, alongside the
// objectives of the accounts that succeeded. Cancellation stops the batch and
// returns the context error with no results.
func (f *Fetcher) FetchAccounts(ctx context.Context, names []string) (map[string][]model.Objective, error) {
	results := make(map[string][]model.Objective, len(names))
	var failures []AccountError

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		objectives, err := f.FetchAccount(ctx, name)
		if err == nil {
			results[name] = objectives
			continue
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		if errors.Is(err, driven.ErrServiceUnavailable) {
			slog.Warn("api temporarily unavailable", "account", name, "error", err)
			err = fmt.Errorf("api temporarily unavailable for account %s: %w", name, err)
		} else {
			slog.Error("failed to fetch objectives", "account", name, "error", err)
			err = fmt.Errorf("failed to fetch objectives for account %s: %w", name, err)
		}
		failures = append(failures, AccountError{Name: name, Err: err})
	}

	if len(failures) > 0 {
		return results, &BatchError{Errors: failures}
	}
	return results, nil
}

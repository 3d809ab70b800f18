package main

import (
	"context"
	"log/slog"

	gw2adapter "github.com/ericfisherdev/vaultpanel/internal/adapter/driven/gw2"
	sqliteadapter "github.com/ericfisherdev/vaultpanel/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/vaultpanel/internal/application"
	"github.com/ericfisherdev/vaultpanel/internal/config"
)

// app holds the wired core shared by every command.
type app struct {
	db       *sqliteadapter.DB
	notifier *application.Notifier
	store    *application.Store
}

// openApp opens the database, runs migrations and wires the store. The store
// is not initialized.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	slog.Debug("database opened", "path", cfg.DBPath)

	version, err := sqliteadapter.RunMigrations(db.Writer)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	slog.Debug("schema up to date", "version", version)

	if cfg.SecretKey == nil {
		slog.Warn("no secret key configured, api tokens are stored unencrypted")
	}
	accounts := sqliteadapter.NewAccountRepo(db, cfg.SecretKey)

	client, err := gw2adapter.NewClient(accounts, gw2adapter.Options{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.RequestTimeout,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	notifier := application.NewNotifier()
	store := application.NewStore(
		application.NewAccountService(accounts),
		application.NewFetcher(client, cfg.RequestDelay),
		notifier,
	)

	return &app{db: db, notifier: notifier, store: store}, nil
}

// openInitialized is openApp followed by a store load, for one-shot commands.
func openInitialized(ctx context.Context, cfg *config.Config) (*app, error) {
	a, err := openApp(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := a.store.Initialize(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	wikiadapter "github.com/ericfisherdev/vaultpanel/internal/adapter/driven/wiki"
	httphandler "github.com/ericfisherdev/vaultpanel/internal/adapter/driving/http"
	"github.com/ericfisherdev/vaultpanel/internal/application"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the background updater and the REST API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := openApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		updater := application.NewUpdater(a.store, cfg.SyncInterval)

		logger := slog.Default()
		h := httphandler.NewHandler(a.store, updater, a.notifier, wikiadapter.NewClient(), logger)
		srv := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           httphandler.NewServeMux(h, logger),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			// Full syncs run inside POST /api/v1/sync.
			WriteTimeout: 5 * time.Minute,
			IdleTimeout:  120 * time.Second,
		}

		hook := &sutureslog.Handler{Logger: logger}
		root := suture.New("vaultpanel", suture.Spec{
			EventHook:        hook.MustHook(),
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			Timeout:          shutdownTimeout,
		})
		root.Add(&initService{store: a.store})
		root.Add(updater)
		root.Add(&httpService{server: srv})

		slog.Info("vaultpanel started",
			"listen_addr", cfg.ListenAddr,
			"sync_interval", cfg.SyncInterval,
			"db_path", cfg.DBPath,
		)

		err = root.Serve(ctx)

		unstopped, _ := root.UnstoppedServiceReport()
		for _, svc := range unstopped {
			slog.Warn("service failed to stop", "service", svc.Name)
		}
		slog.Info("shutdown complete")
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

// initService loads the store once. A failed load is retried by the
// supervisor with backoff.
type initService struct {
	store *application.Store
}

func (s *initService) Serve(ctx context.Context) error {
	if err := s.store.Initialize(ctx); err != nil {
		return err
	}
	return suture.ErrDoNotRestart
}

func (s *initService) String() string {
	return "store-init"
}

// httpService runs an http.Server under the supervisor.
type httpService struct {
	server *http.Server
}

func (s *httpService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (s *httpService) String() string {
	return "http-server"
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/vaultpanel/internal/config"
)

// Version is set via ldflags during build.
var Version = "dev"

// cfg is loaded once before any command runs.
var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("fatal error", "error", err)
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vaultpanel",
	Short: "Track Guild Wars 2 Wizard's Vault objectives across accounts",
	Long: `vaultpanel stores Guild Wars 2 API keys, refreshes each account's daily,
weekly and special Wizard's Vault objectives in the background, and serves
them over a local REST API.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		slog.SetDefault(cfg.NewLogger())
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("vaultpanel version %s\n", Version))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(objectivesCmd)
	rootCmd.AddCommand(psnaCmd)
	rootCmd.AddCommand(arcdpsCmd)
}

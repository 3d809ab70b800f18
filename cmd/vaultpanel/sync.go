package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync [name]",
	Short: "Fetch objectives now for one account or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := openInitialized(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		if len(args) == 1 {
			account, err := a.store.SyncOneAccount(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Account %s synced, %d objectives\n", account.Name, len(account.Objectives))
			return nil
		}

		if err := a.store.SyncAllAccounts(ctx); err != nil {
			return err
		}
		fmt.Printf("Synced %d accounts\n", len(a.store.GetAllAccounts()))
		return nil
	},
}

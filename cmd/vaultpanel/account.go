package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/vaultpanel/internal/application"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage stored API keys",
}

var accountAddCmd = &cobra.Command{
	Use:   "add <name> <token>",
	Short: "Store an API key under a name and run its first sync",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openInitialized(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.close()

		account, err := a.store.CreateAccount(cmd.Context(), args[0], args[1])
		if errors.Is(err, application.ErrInitialSync) {
			fmt.Printf("Account %s added, first sync failed: %v\n", account.Name, err)
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Printf("Account %s added with %d objectives\n", account.Name, len(account.Objectives))
		return nil
	},
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openInitialized(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.close()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSYNCED\tLAST SYNC\tOBJECTIVES\tCOMPLETED")
		for _, account := range a.store.GetAllAccounts() {
			lastSync := "never"
			if !account.LastSyncTime.IsZero() {
				lastSync = account.LastSyncTime.Local().Format(time.DateTime)
			}

			completed := 0
			for _, o := range account.Objectives {
				if o.IsComplete() {
					completed++
				}
			}

			fmt.Fprintf(w, "%s\t%t\t%s\t%d\t%d\n",
				account.Name, account.HasBeenSyncedOnce, lastSync, len(account.Objectives), completed)
		}
		return w.Flush()
	},
}

var accountDeleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Aliases: []string{"rm"},
	Short:   "Delete a stored account and its objectives",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openInitialized(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.store.DeleteAccount(cmd.Context(), args[0]); err != nil {
			return err
		}

		fmt.Printf("Account %s deleted\n", args[0])
		return nil
	},
}

func init() {
	accountCmd.AddCommand(accountAddCmd)
	accountCmd.AddCommand(accountListCmd)
	accountCmd.AddCommand(accountDeleteCmd)
}

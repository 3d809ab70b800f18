package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	clipboardadapter "github.com/ericfisherdev/vaultpanel/internal/adapter/driven/clipboard"
	"github.com/ericfisherdev/vaultpanel/internal/application"
	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

var objectivesCmd = &cobra.Command{
	Use:   "objectives",
	Short: "Show cached objectives with the accounts sharing each one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		filter, err := objectiveFilter(cmd)
		if err != nil {
			return err
		}

		a, err := openInitialized(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.close()

		if copyFlag, _ := cmd.Flags().GetBool("copy"); copyFlag {
			return copyText(clipboardadapter.NewWriter(),
				application.FormatClipboard(a.store.FilteredObjectives(filter.Matches)))
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ACCOUNT\tENDPOINT\tTRACK\tTITLE\tPROGRESS\tACCLAIM\tDONE\tALSO ON")
		for _, o := range a.store.GetAllObjectivesWithPeers() {
			if !filter.Matches(o.Objective) {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%d\t%t\t%s\n",
				o.AccountName, o.Endpoint, o.Track, o.Title,
				o.ProgressCurrent, o.ProgressComplete, o.Acclaim, o.IsComplete(), o.Peers)
		}
		return w.Flush()
	},
}

func objectiveFilter(cmd *cobra.Command) (model.ObjectiveFilter, error) {
	var f model.ObjectiveFilter

	endpoints, _ := cmd.Flags().GetStringSlice("endpoint")
	for _, v := range endpoints {
		e, err := model.ParseEndpoint(v)
		if err != nil {
			return f, err
		}
		f.Endpoints = append(f.Endpoints, e)
	}

	tracks, _ := cmd.Flags().GetStringSlice("track")
	for _, v := range tracks {
		t, err := model.ParseTrack(v)
		if err != nil {
			return f, err
		}
		f.Tracks = append(f.Tracks, t)
	}

	f.Accounts, _ = cmd.Flags().GetStringSlice("account")
	f.Completed, _ = cmd.Flags().GetBool("completed")
	f.NotCompleted, _ = cmd.Flags().GetBool("not-completed")
	return f, nil
}

func copyText(w driven.ClipboardWriter, text string) error {
	if text == "" {
		fmt.Println("Nothing to copy")
		return nil
	}
	if err := w.WriteText(text); err != nil {
		return err
	}
	fmt.Println("Copied to clipboard")
	return nil
}

func init() {
	objectivesCmd.Flags().StringSlice("endpoint", nil, "only these endpoints (daily, weekly, special)")
	objectivesCmd.Flags().StringSlice("track", nil, "only these tracks (PvE, PvP, WvW)")
	objectivesCmd.Flags().StringSlice("account", nil, "only these accounts")
	objectivesCmd.Flags().Bool("completed", false, "only completed objectives")
	objectivesCmd.Flags().Bool("not-completed", false, "only objectives still open")
	objectivesCmd.Flags().Bool("copy", false, "copy titles grouped by account to the clipboard")
	objectivesCmd.MarkFlagsMutuallyExclusive("completed", "not-completed")
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	clipboardadapter "github.com/ericfisherdev/vaultpanel/internal/adapter/driven/clipboard"
	downloadadapter "github.com/ericfisherdev/vaultpanel/internal/adapter/driven/download"
	wikiadapter "github.com/ericfisherdev/vaultpanel/internal/adapter/driven/wiki"
	"github.com/ericfisherdev/vaultpanel/internal/application"
	"github.com/ericfisherdev/vaultpanel/internal/config"
)

var psnaCmd = &cobra.Command{
	Use:   "psna",
	Short: "Print today's Pact Supply Network Agent waypoint chat links",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		links, err := wikiadapter.NewClient().PactSupplyLocations(cmd.Context())
		if err != nil {
			return err
		}

		if copyFlag, _ := cmd.Flags().GetBool("copy"); copyFlag {
			return copyText(clipboardadapter.NewWriter(), links)
		}
		fmt.Println(links)
		return nil
	},
}

var arcdpsCmd = &cobra.Command{
	Use:   "arcdps",
	Short: "Manage the ArcDPS helper",
}

var arcdpsDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download the ArcDPS d3d11.dll into the game directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		url, _ := cmd.Flags().GetString("url")

		installer := application.NewHelperInstaller(
			downloadadapter.NewDownloader(),
			config.NewSettingsFile(cfg.SettingsPath),
		)

		path, err := installer.Install(cmd.Context(), url, dir)
		if err != nil {
			return fmt.Errorf("arcdps download: %w (pass --dir to choose a directory)", err)
		}

		fmt.Printf("Saved %s\n", path)
		return nil
	},
}

func init() {
	psnaCmd.Flags().Bool("copy", false, "copy the chat links to the clipboard")

	arcdpsDownloadCmd.Flags().String("dir", "", "target directory; defaults to the last one used")
	arcdpsDownloadCmd.Flags().String("url", downloadadapter.ArcDPSURL, "download source")
	arcdpsCmd.AddCommand(arcdpsDownloadCmd)
}

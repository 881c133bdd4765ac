package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tonimelisma/spe-client/internal/app"
	"github.com/tonimelisma/spe-client/internal/ui"
	"github.com/tonimelisma/spe-client/pkg/spe"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search files",
	Long: `Searches the files of every container of the configured type, or of a single
container with --container. Folders are never returned.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWithApp(searchLogic),
}

func searchLogic(a *app.App, cmd *cobra.Command, args []string) error {
	term := strings.Join(args, " ")
	containerID, err := ui.ParseContainerFlag(cmd, false)
	if err != nil {
		return err
	}

	typeID := ""
	if containerID == "" {
		if typeID, err = containerTypeID(a, cmd); err != nil {
			return err
		}
	}

	ctx := commandContext(cmd)
	token, err := graphToken(ctx, a)
	if err != nil {
		return err
	}

	results, err := a.SDK.SearchFiles(ctx, token, term, containerID, typeID)
	if err != nil {
		return fmt.Errorf("searching files: %w", err)
	}

	if asItems, _ := cmd.Flags().GetBool("items"); asItems {
		items := make([]spe.DriveItem, 0, len(results))
		for _, r := range results {
			items = append(items, spe.ConvertToFileItem(r))
		}
		ui.DisplayDriveItems(cmd.OutOrStdout(), items, fmt.Sprintf("Search results for \"%s\":", term), a.Config.Preferences.CompactView)
		return nil
	}
	ui.DisplaySearchResults(cmd.OutOrStdout(), results, term)
	return nil
}

func init() {
	rootCmd.AddCommand(searchCmd)
	ui.AddContainerFlag(searchCmd, "Search only this container")
	searchCmd.Flags().String("type", "", "Container type ID (default from configuration)")
	searchCmd.Flags().Bool("items", false, "Show results in the file listing layout")
}

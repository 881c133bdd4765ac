package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tonimelisma/spe-client/internal/app"
	"github.com/tonimelisma/spe-client/internal/browser"
	"github.com/tonimelisma/spe-client/internal/ui"
	"github.com/tonimelisma/spe-client/pkg/spe"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Manage files and folders in a container",
	Long:  "Provides commands to list, upload, create, delete, open and preview the files and folders of a container.",
}

var filesListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List the files and folders of a folder",
	Long:    "Lists a folder of the container, folders first. Without --folder the container root is listed.",
	Args:    cobra.NoArgs,
	RunE:    runWithApp(filesListLogic),
}

var filesRmCmd = &cobra.Command{
	Use:   "rm <item-id>",
	Short: "Delete a file or folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runWithApp(filesRmLogic),
}

var filesMkdirCmd = &cobra.Command{
	Use:   "mkdir <name>",
	Short: "Create a folder",
	Long:  "Creates a folder under --parent, or at the container root. A name that already exists is renamed by the service.",
	Args:  cobra.ExactArgs(1),
	RunE:  runWithApp(filesMkdirLogic),
}

var filesUploadCmd = &cobra.Command{
	Use:   "upload <local-file> [remote-name]",
	Short: "Upload a file",
	Long:  "Uploads a local file under --parent, or at the container root. The remote name defaults to the local file name.",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runWithApp(filesUploadLogic),
}

var filesOpenCmd = &cobra.Command{
	Use:   "open <drive-id> <item-id>",
	Short: "Print or open the web URL of a file",
	Long:  "Resolves the canonical web URL of a file. With --browser it is opened, which for Office documents starts the web editor.",
	Args:  cobra.ExactArgs(2),
	RunE:  runWithApp(filesOpenLogic),
}

var filesPreviewCmd = &cobra.Command{
	Use:   "preview <drive-id> <item-id>",
	Short: "Issue a short-lived preview URL for a file",
	Args:  cobra.ExactArgs(2),
	RunE:  runWithApp(filesPreviewLogic),
}

// newBrowser builds a Browser for the --container flag.
func newBrowser(a *app.App, cmd *cobra.Command) (*browser.Browser, error) {
	containerID, err := ui.ParseContainerFlag(cmd, true)
	if err != nil {
		return nil, err
	}
	return browser.New(containerID, a.Auth, a.SDK,
		browser.WithNotifier(notifier(cmd)),
		browser.WithLogger(a.Logger),
	), nil
}

func filesListLogic(a *app.App, cmd *cobra.Command, args []string) error {
	b, err := newBrowser(a, cmd)
	if err != nil {
		return err
	}
	if !a.Auth.IsAuthenticated() {
		return errNotLoggedIn
	}

	ctx := commandContext(cmd)
	folderID, _ := cmd.Flags().GetString("folder")
	if folderID != "" {
		err = b.NavigateIntoFolder(ctx, folderID, folderID)
	} else {
		err = b.Fetch(ctx)
	}
	if err != nil {
		return err
	}

	compact, _ := cmd.Flags().GetBool("compact")
	compact = compact || a.Config.Preferences.CompactView

	state := b.Snapshot()
	out := cmd.OutOrStdout()
	if !compact {
		ui.DisplayBreadcrumbs(out, state.Path)
	}
	ui.DisplayDriveItems(out, state.Items, "", compact)
	return nil
}

func filesRmLogic(a *app.App, cmd *cobra.Command, args []string) error {
	b, err := newBrowser(a, cmd)
	if err != nil {
		return err
	}
	return b.DeleteItem(commandContext(cmd), spe.DriveItem{ID: args[0], Name: args[0]})
}

func filesMkdirLogic(a *app.App, cmd *cobra.Command, args []string) error {
	containerID, err := ui.ParseContainerFlag(cmd, true)
	if err != nil {
		return err
	}
	parentID, _ := cmd.Flags().GetString("parent")

	ctx := commandContext(cmd)
	token, err := graphToken(ctx, a)
	if err != nil {
		return err
	}

	item, err := a.SDK.CreateFolder(ctx, token, containerID, parentID, args[0])
	if err != nil {
		return fmt.Errorf("creating folder: %w", err)
	}
	ui.PrintSuccess(cmd.OutOrStdout(), "Folder '%s' created successfully (id %s).", item.Name, item.ID)
	return nil
}

func filesUploadLogic(a *app.App, cmd *cobra.Command, args []string) error {
	containerID, err := ui.ParseContainerFlag(cmd, true)
	if err != nil {
		return err
	}
	parentID, _ := cmd.Flags().GetString("parent")

	localPath := args[0]
	name := filepath.Base(localPath)
	if len(args) > 1 {
		name = args[1]
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening local file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("getting file info: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", localPath)
	}

	ctx := commandContext(cmd)
	token, err := graphToken(ctx, a)
	if err != nil {
		return err
	}

	var content io.Reader = f
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	if !noProgress {
		bar := ui.NewProgressBar(info.Size(), "Uploading "+name)
		content = io.TeeReader(f, bar)
		defer func() { _ = bar.Finish() }()
	}

	item, err := a.SDK.UploadFile(ctx, token, containerID, parentID, name, content)
	if err != nil {
		return fmt.Errorf("uploading file: %w", err)
	}
	ui.PrintSuccess(cmd.OutOrStdout(), "File '%s' uploaded successfully (id %s, %d bytes).", item.Name, item.ID, item.Size)
	return nil
}

func filesOpenLogic(a *app.App, cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	token, err := graphToken(ctx, a)
	if err != nil {
		return err
	}

	webURL, err := a.SDK.GetFileDetails(ctx, token, args[0], args[1])
	if err != nil {
		return fmt.Errorf("getting file details: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), webURL)

	if open, _ := cmd.Flags().GetBool("browser"); open {
		if err := app.OpenBrowser(webURL); err != nil {
			return fmt.Errorf("opening browser: %w", err)
		}
	}
	return nil
}

func filesPreviewLogic(a *app.App, cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	token, err := graphToken(ctx, a)
	if err != nil {
		return err
	}

	previewURL, err := a.SDK.GetPreviewURL(ctx, token, args[0], args[1])
	if err != nil {
		return fmt.Errorf("getting preview URL: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), previewURL)
	return nil
}

func init() {
	rootCmd.AddCommand(filesCmd)
	filesCmd.AddCommand(filesListCmd)
	filesCmd.AddCommand(filesRmCmd)
	filesCmd.AddCommand(filesMkdirCmd)
	filesCmd.AddCommand(filesUploadCmd)
	filesCmd.AddCommand(filesOpenCmd)
	filesCmd.AddCommand(filesPreviewCmd)

	for _, c := range []*cobra.Command{filesListCmd, filesRmCmd, filesMkdirCmd, filesUploadCmd} {
		ui.AddContainerFlag(c, "")
	}
	filesListCmd.Flags().String("folder", "", "Folder item ID (default the container root)")
	filesListCmd.Flags().Bool("compact", false, "Print names only")
	filesMkdirCmd.Flags().String("parent", "", "Parent folder item ID (default the container root)")
	filesUploadCmd.Flags().String("parent", "", "Parent folder item ID (default the container root)")
	filesUploadCmd.Flags().Bool("no-progress", false, "Do not show a progress bar")
	filesOpenCmd.Flags().Bool("browser", false, "Open the URL in the default browser")
}

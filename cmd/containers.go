package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tonimelisma/spe-client/internal/app"
	"github.com/tonimelisma/spe-client/internal/ui"
	"github.com/tonimelisma/spe-client/pkg/spe"
)

var containersCmd = &cobra.Command{
	Use:     "containers",
	Aliases: []string{"container"},
	Short:   "List, inspect and create containers",
	Long:    "Provides commands to work with the SharePoint Embedded containers of the configured container type.",
}

var containersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List containers of the container type",
	Args:  cobra.NoArgs,
	RunE:  runWithApp(containersListLogic),
}

var containersGetCmd = &cobra.Command{
	Use:   "get <container-id>",
	Short: "Show the details of a container",
	Args:  cobra.ExactArgs(1),
	RunE:  runWithApp(containersGetLogic),
}

var containersCreateCmd = &cobra.Command{
	Use:   "create <display-name>",
	Short: "Create a container",
	Long:  "Creates a container of the configured type and prints the updated listing.",
	Args:  cobra.ExactArgs(1),
	RunE:  runWithApp(containersCreateLogic),
}

func containersListLogic(a *app.App, cmd *cobra.Command, args []string) error {
	typeID, err := containerTypeID(a, cmd)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	token, err := graphToken(ctx, a)
	if err != nil {
		return err
	}

	containers, err := a.SDK.ListContainers(ctx, token, typeID)
	if err != nil {
		return fmt.Errorf("listing containers: %w", err)
	}
	ui.DisplayContainers(cmd.OutOrStdout(), containers)
	return nil
}

func containersGetLogic(a *app.App, cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	token, err := graphToken(ctx, a)
	if err != nil {
		return err
	}

	c, err := a.SDK.GetContainer(ctx, token, args[0])
	if err != nil {
		return fmt.Errorf("getting container: %w", err)
	}
	ui.DisplayContainer(cmd.OutOrStdout(), c)
	return nil
}

func containersCreateLogic(a *app.App, cmd *cobra.Command, args []string) error {
	typeID, err := containerTypeID(a, cmd)
	if err != nil {
		return err
	}
	description, _ := cmd.Flags().GetString("description")

	ctx := commandContext(cmd)
	token, err := graphToken(ctx, a)
	if err != nil {
		return err
	}

	created, err := a.SDK.CreateContainer(ctx, token, spe.CreateContainerRequest{
		DisplayName:     args[0],
		Description:     description,
		ContainerTypeID: typeID,
	})
	if err != nil {
		notifier(cmd).Error("Failed to create container", err.Error())
		return fmt.Errorf("creating container: %w", err)
	}
	notifier(cmd).Success("Container created", created.DisplayName)

	// The listing can lag behind creation.
	containers, err := a.SDK.ListContainers(ctx, token, typeID)
	if err != nil {
		a.Logger.Warn("could not refresh container list", "error", err)
		containers = nil
	}
	found := false
	for _, c := range containers {
		if c.ID == created.ID {
			found = true
			break
		}
	}
	if !found {
		containers = append(containers, created)
	}
	ui.DisplayContainers(cmd.OutOrStdout(), containers)
	return nil
}

func init() {
	rootCmd.AddCommand(containersCmd)
	containersCmd.AddCommand(containersListCmd)
	containersCmd.AddCommand(containersGetCmd)
	containersCmd.AddCommand(containersCreateCmd)

	containersListCmd.Flags().String("type", "", "Container type ID (default from configuration)")
	containersCreateCmd.Flags().String("type", "", "Container type ID (default from configuration)")
	containersCreateCmd.Flags().String("description", "", "Container description")
}

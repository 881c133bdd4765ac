package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ErrNoContainer is returned when a command needs a container and none was
// given.
var ErrNoContainer = errors.New("a container id is required (use --container)")

// AddContainerFlag adds the --container flag to a command.
func AddContainerFlag(cmd *cobra.Command, usage string) {
	if usage == "" {
		usage = "Container ID"
	}
	cmd.Flags().StringP("container", "c", "", usage)
}

// ParseContainerFlag returns the --container value. When required is set an
// empty value is an error.
func ParseContainerFlag(cmd *cobra.Command, required bool) (string, error) {
	id, err := cmd.Flags().GetString("container")
	if err != nil {
		return "", fmt.Errorf("error parsing container flag: %w", err)
	}
	id = strings.TrimSpace(id)
	if required && id == "" {
		return "", ErrNoContainer
	}
	return id, nil
}

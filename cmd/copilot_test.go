package cmd

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tonimelisma/spe-client/internal/auth"
	"github.com/tonimelisma/spe-client/internal/copilot"
	"github.com/tonimelisma/spe-client/internal/ui"
	"github.com/tonimelisma/spe-client/pkg/spe"
)

func copilotCommand(t *testing.T) (*cobra.Command, func() string, func() string) {
	t.Helper()
	cmd, out, errOut := newTestCommand(func(c *cobra.Command) {
		ui.AddContainerFlag(c, "")
		c.Flags().Bool("mobile", false, "")
		c.Flags().String("hostname", "", "")
	})
	require.NoError(t, cmd.Flags().Set("container", "c1"))
	return cmd, out.String, errOut.String
}

func decodeEmbed(t *testing.T, s string) copilot.EmbedConfig {
	t.Helper()
	var cfg copilot.EmbedConfig
	require.NoError(t, json.Unmarshal([]byte(s), &cfg))
	return cfg
}

func TestCopilotOpenLogic_HostnameFromContainer(t *testing.T) {
	sdk := &MockSDK{
		GetContainerFunc: func(_ context.Context, token, id string) (spe.Container, error) {
			assert.Equal(t, graphTok, token)
			return spe.Container{ID: id, WebURL: "https://contoso.sharepoint.com/contentstorage/CSP_c1"}, nil
		},
	}
	a := newTestApp(t, sdk, true)
	cmd, out, errOut := copilotCommand(t)

	require.NoError(t, copilotOpenLogic(a, cmd, nil))
	cfg := decodeEmbed(t, out())
	assert.Equal(t, "c1", cfg.ContainerID)
	assert.Equal(t, "contoso.sharepoint.com", cfg.Hostname)
	assert.Equal(t, "desktop", cfg.Presentation)
	assert.NotEmpty(t, cfg.MountKey)
	assert.Empty(t, cfg.ExternalURL)
	assert.Empty(t, cfg.Error)
	assert.Empty(t, errOut())
}

func TestCopilotOpenLogic_Mobile(t *testing.T) {
	sdk := &MockSDK{
		GetContainerFunc: func(context.Context, string, string) (spe.Container, error) {
			t.Fatal("container lookup is not needed when --hostname is given")
			return spe.Container{}, nil
		},
	}
	a := newTestApp(t, sdk, true)
	cmd, out, errOut := copilotCommand(t)
	require.NoError(t, cmd.Flags().Set("mobile", "true"))
	require.NoError(t, cmd.Flags().Set("hostname", "fabrikam.sharepoint.com"))

	require.NoError(t, copilotOpenLogic(a, cmd, nil))
	cfg := decodeEmbed(t, out())
	assert.Equal(t, "mobile", cfg.Presentation)
	assert.Equal(t, "https://fabrikam.sharepoint.com/_layouts/15/copilot.aspx", cfg.ExternalURL)
	assert.Contains(t, errOut(), "Open the chat on the site: https://fabrikam.sharepoint.com/_layouts/15/copilot.aspx")
}

func TestCopilotOpenLogic_NoHostname(t *testing.T) {
	a := newTestApp(t, &MockSDK{}, true)
	cmd, _, _ := copilotCommand(t)

	err := copilotOpenLogic(a, cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--hostname")
}

func TestCopilotOpenLogic_TokenFailure(t *testing.T) {
	a := newTestApp(t, &MockSDK{}, true)
	a.Auth = auth.New(auth.Options{
		Identity: &fakeIdentity{fail: true},
		Cache:    a.Session,
	})
	cmd, out, errOut := copilotCommand(t)
	require.NoError(t, cmd.Flags().Set("hostname", "contoso.sharepoint.com"))

	require.NoError(t, copilotOpenLogic(a, cmd, nil))
	assert.Contains(t, errOut(), "✗ Copilot chat failed")
	assert.NotEmpty(t, decodeEmbed(t, out()).MountKey)
}

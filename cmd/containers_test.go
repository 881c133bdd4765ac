package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tonimelisma/spe-client/pkg/spe"
)

func containerCommand() (*cobra.Command, func() string, func() string) {
	cmd, out, errOut := newTestCommand(func(c *cobra.Command) {
		c.Flags().String("type", "", "")
		c.Flags().String("description", "", "")
	})
	return cmd, out.String, errOut.String
}

func TestContainersListLogic(t *testing.T) {
	var gotType string
	sdk := &MockSDK{
		ListContainersFunc: func(_ context.Context, token, typeID string) ([]spe.Container, error) {
			assert.Equal(t, graphTok, token)
			gotType = typeID
			return []spe.Container{{ID: "c1", DisplayName: "Legal"}, {ID: "c2", DisplayName: "Finance"}}, nil
		},
	}
	a := newTestApp(t, sdk, true)

	cmd, out, _ := containerCommand()
	require.NoError(t, containersListLogic(a, cmd, nil))
	assert.Equal(t, "type-1", gotType)
	assert.Contains(t, out(), "Legal")
	assert.Contains(t, out(), "Finance")

	cmd, _, _ = containerCommand()
	require.NoError(t, cmd.Flags().Set("type", "type-2"))
	require.NoError(t, containersListLogic(a, cmd, nil))
	assert.Equal(t, "type-2", gotType)
}

func TestContainersListLogic_Errors(t *testing.T) {
	t.Run("not logged in", func(t *testing.T) {
		a := newTestApp(t, &MockSDK{}, false)
		cmd, _, _ := containerCommand()
		assert.ErrorIs(t, containersListLogic(a, cmd, nil), spe.ErrReauthRequired)
	})

	t.Run("no container type", func(t *testing.T) {
		a := newTestApp(t, &MockSDK{}, true)
		a.Config.ContainerTypeID = ""
		cmd, _, _ := containerCommand()
		err := containersListLogic(a, cmd, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "container type")
	})

	t.Run("service error", func(t *testing.T) {
		sdk := &MockSDK{
			ListContainersFunc: func(context.Context, string, string) ([]spe.Container, error) {
				return nil, &spe.HTTPError{StatusCode: 403, Status: "403 Forbidden", Body: "forbidden"}
			},
		}
		a := newTestApp(t, sdk, true)
		cmd, _, _ := containerCommand()
		err := containersListLogic(a, cmd, nil)
		var httpErr *spe.HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, 403, httpErr.StatusCode)
	})
}

func TestContainersGetLogic(t *testing.T) {
	sdk := &MockSDK{
		GetContainerFunc: func(_ context.Context, _ string, id string) (spe.Container, error) {
			return spe.Container{ID: id, DisplayName: "Legal", WebURL: "https://contoso.sharepoint.com/contentstorage/CSP_1"}, nil
		},
	}
	a := newTestApp(t, sdk, true)
	cmd, out, _ := containerCommand()

	require.NoError(t, containersGetLogic(a, cmd, []string{"c1"}))
	assert.Contains(t, out(), "c1")
	assert.Contains(t, out(), "https://contoso.sharepoint.com/contentstorage/CSP_1")
}

func TestContainersCreateLogic(t *testing.T) {
	var req spe.CreateContainerRequest
	sdk := &MockSDK{
		CreateContainerFunc: func(_ context.Context, _ string, r spe.CreateContainerRequest) (spe.Container, error) {
			req = r
			return spe.Container{ID: "new", DisplayName: r.DisplayName}, nil
		},
		ListContainersFunc: func(context.Context, string, string) ([]spe.Container, error) {
			return []spe.Container{{ID: "c1", DisplayName: "Legal"}}, nil
		},
	}
	a := newTestApp(t, sdk, true)
	cmd, out, errOut := containerCommand()
	require.NoError(t, cmd.Flags().Set("description", "Contracts"))

	require.NoError(t, containersCreateLogic(a, cmd, []string{"Projects"}))
	assert.Equal(t, spe.CreateContainerRequest{DisplayName: "Projects", Description: "Contracts", ContainerTypeID: "type-1"}, req)
	assert.Contains(t, errOut(), "✓ Container created: Projects")
	assert.Contains(t, out(), "Legal")
	assert.Contains(t, out(), "Projects", "created container is shown even when the listing lags")
}

func TestContainersCreateLogic_Failure(t *testing.T) {
	sdk := &MockSDK{
		CreateContainerFunc: func(context.Context, string, spe.CreateContainerRequest) (spe.Container, error) {
			return spe.Container{}, &spe.HTTPError{StatusCode: 400, Status: "400 Bad Request", Body: "bad name"}
		},
	}
	a := newTestApp(t, sdk, true)
	cmd, _, errOut := containerCommand()

	require.Error(t, containersCreateLogic(a, cmd, []string{"x"}))
	assert.Contains(t, errOut(), "✗ Failed to create container")
}

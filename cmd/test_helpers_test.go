package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/tonimelisma/spe-client/internal/app"
	"github.com/tonimelisma/spe-client/internal/auth"
	"github.com/tonimelisma/spe-client/internal/config"
	"github.com/tonimelisma/spe-client/internal/diag"
	"github.com/tonimelisma/spe-client/internal/logger"
	"github.com/tonimelisma/spe-client/internal/session"
	"github.com/tonimelisma/spe-client/pkg/spe"
	"golang.org/x/oauth2"
)

// MockSDK is a mock implementation of the SDK interface for testing.
type MockSDK struct {
	GetMeFunc           func(ctx context.Context, token string) (spe.User, error)
	ListContainersFunc  func(ctx context.Context, token, containerTypeID string) ([]spe.Container, error)
	GetContainerFunc    func(ctx context.Context, token, containerID string) (spe.Container, error)
	CreateContainerFunc func(ctx context.Context, token string, req spe.CreateContainerRequest) (spe.Container, error)
	ListChildrenFunc    func(ctx context.Context, token, containerID, folderID string) ([]spe.DriveItem, error)
	DeleteItemFunc      func(ctx context.Context, token, containerID, itemID string) error
	CreateFolderFunc    func(ctx context.Context, token, containerID, parentID, name string) (spe.DriveItem, error)
	UploadFileFunc      func(ctx context.Context, token, containerID, parentID, name string, content io.Reader) (spe.DriveItem, error)
	SearchFilesFunc     func(ctx context.Context, token, term, containerID, containerTypeID string) ([]spe.SearchResult, error)
	GetFileDetailsFunc  func(ctx context.Context, token, driveID, itemID string) (string, error)
	GetPreviewURLFunc   func(ctx context.Context, token, driveID, itemID string) (string, error)
}

func (m *MockSDK) GetMe(ctx context.Context, token string) (spe.User, error) {
	if m.GetMeFunc != nil {
		return m.GetMeFunc(ctx, token)
	}
	return spe.User{}, nil
}

func (m *MockSDK) ListContainers(ctx context.Context, token, containerTypeID string) ([]spe.Container, error) {
	if m.ListContainersFunc != nil {
		return m.ListContainersFunc(ctx, token, containerTypeID)
	}
	return []spe.Container{}, nil
}

func (m *MockSDK) GetContainer(ctx context.Context, token, containerID string) (spe.Container, error) {
	if m.GetContainerFunc != nil {
		return m.GetContainerFunc(ctx, token, containerID)
	}
	return spe.Container{ID: containerID}, nil
}

func (m *MockSDK) CreateContainer(ctx context.Context, token string, req spe.CreateContainerRequest) (spe.Container, error) {
	if m.CreateContainerFunc != nil {
		return m.CreateContainerFunc(ctx, token, req)
	}
	return spe.Container{DisplayName: req.DisplayName}, nil
}

func (m *MockSDK) ListChildren(ctx context.Context, token, containerID, folderID string) ([]spe.DriveItem, error) {
	if m.ListChildrenFunc != nil {
		return m.ListChildrenFunc(ctx, token, containerID, folderID)
	}
	return []spe.DriveItem{}, nil
}

func (m *MockSDK) DeleteItem(ctx context.Context, token, containerID, itemID string) error {
	if m.DeleteItemFunc != nil {
		return m.DeleteItemFunc(ctx, token, containerID, itemID)
	}
	return nil
}

func (m *MockSDK) CreateFolder(ctx context.Context, token, containerID, parentID, name string) (spe.DriveItem, error) {
	if m.CreateFolderFunc != nil {
		return m.CreateFolderFunc(ctx, token, containerID, parentID, name)
	}
	return spe.DriveItem{Name: name}, nil
}

func (m *MockSDK) UploadFile(ctx context.Context, token, containerID, parentID, name string, content io.Reader) (spe.DriveItem, error) {
	if m.UploadFileFunc != nil {
		return m.UploadFileFunc(ctx, token, containerID, parentID, name, content)
	}
	return spe.DriveItem{Name: name}, nil
}

func (m *MockSDK) SearchFiles(ctx context.Context, token, term, containerID, containerTypeID string) ([]spe.SearchResult, error) {
	if m.SearchFilesFunc != nil {
		return m.SearchFilesFunc(ctx, token, term, containerID, containerTypeID)
	}
	return []spe.SearchResult{}, nil
}

func (m *MockSDK) GetFileDetails(ctx context.Context, token, driveID, itemID string) (string, error) {
	if m.GetFileDetailsFunc != nil {
		return m.GetFileDetailsFunc(ctx, token, driveID, itemID)
	}
	return "", nil
}

func (m *MockSDK) GetPreviewURL(ctx context.Context, token, driveID, itemID string) (string, error) {
	if m.GetPreviewURLFunc != nil {
		return m.GetPreviewURLFunc(ctx, token, driveID, itemID)
	}
	return "", nil
}

// fakeIdentity redeems any refresh token for a token named after the
// requested scope.
type fakeIdentity struct {
	fail bool
}

func (f *fakeIdentity) RedeemRefreshToken(_ context.Context, refreshToken string, scopes []string) (*oauth2.Token, error) {
	if f.fail {
		return nil, spe.ErrInvalidRequest
	}
	return &oauth2.Token{
		AccessToken:  "token-for-" + scopes[0],
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(time.Hour),
	}, nil
}

func (f *fakeIdentity) LogoutURL(string) string {
	return "https://login.example/logout"
}

type fakeInteractor struct {
	err error
}

func (f *fakeInteractor) AcquireToken(context.Context, []string) (*oauth2.Token, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &oauth2.Token{AccessToken: "interactive", RefreshToken: "rt"}, nil
}

// newTestApp creates an app with a mock SDK. When signedIn is set the
// session directory holds a saved account.
func newTestApp(t *testing.T, sdk app.SDK, signedIn bool) *app.App {
	t.Helper()
	dir := t.TempDir()

	cfgPath := filepath.Join(dir, "config.json")
	if err := os.WriteFile(cfgPath, []byte("{}"), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	cfg.ClientID = "client"
	cfg.TenantID = "tenant"
	cfg.ContainerTypeID = "type-1"
	cfg.APIBaseURL = spe.DefaultGraphURL
	cfg.AuthFlow = config.AuthFlowDevice
	cfg.HTTP = config.DefaultHTTPConfig()

	mgr := session.NewManagerWithConfigDir(dir)
	if signedIn {
		err := mgr.SaveAccount(&session.State{
			Account:      session.Account{Username: "ada@contoso.com", Name: "Ada Lovelace", TenantID: "tenant"},
			RefreshToken: "rt",
			SavedAt:      time.Now(),
		})
		if err != nil {
			t.Fatalf("saving account: %v", err)
		}
	}

	a := &app.App{
		Config:  cfg,
		SDK:     sdk,
		Diag:    diag.NewRing(diag.DefaultCapacity),
		Session: mgr,
		Logger:  logger.NoopLogger{},
	}
	a.Auth = auth.New(auth.Options{
		Identity:     &fakeIdentity{},
		Interactor:   &fakeInteractor{},
		Cache:        mgr,
		Logger:       a.Logger,
		LoginEnabled: cfg.LoginEnabled(),
		OnLogout:     func() error { return nil },
	})
	return a
}

// newTestCommand returns a command with buffered output and the given
// flags defined, mirroring what init registers.
func newTestCommand(setup func(c *cobra.Command)) (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	c := &cobra.Command{Use: "test"}
	var stdout, stderr bytes.Buffer
	c.SetOut(&stdout)
	c.SetErr(&stderr)
	c.SetContext(context.Background())
	if setup != nil {
		setup(c)
	}
	return c, &stdout, &stderr
}

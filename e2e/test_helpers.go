//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/tonimelisma/spe-client/internal/app"
	"github.com/tonimelisma/spe-client/internal/auth"
	"github.com/tonimelisma/spe-client/internal/config"
	"github.com/tonimelisma/spe-client/internal/diag"
	"github.com/tonimelisma/spe-client/internal/logger"
	"github.com/tonimelisma/spe-client/internal/session"
	"github.com/tonimelisma/spe-client/pkg/spe"
)

// E2ETestHelper provides utilities for E2E testing
type E2ETestHelper struct {
	App         *app.App
	Config      *Config
	ContainerID string
	TestID      string
	TestDirID   string
	TempFiles   []string
}

// NewE2ETestHelper signs in silently with the account saved by
// 'spe-client auth login' and creates a per-run folder in the test
// container.
func NewE2ETestHelper(t *testing.T) *E2ETestHelper {
	t.Helper()

	cfg := LoadConfig()
	h := &E2ETestHelper{
		Config:    cfg,
		TestID:    generateTestID(),
		TempFiles: make([]string, 0),
	}
	h.App = newSilentApp(t)

	if !h.App.Auth.IsAuthenticated() {
		t.Fatal(`
E2E Testing Setup Required:

1. Configure client_id, tenant_id and container_type_id
   (spe-client config show).

2. Sign in once:
   spe-client auth login

3. Pick a container to write to:
   export SPE_E2E_CONTAINER_ID=<container id>

4. Then run E2E tests:
   go test -tags=e2e -v ./e2e/...
`)
	}

	h.ContainerID = cfg.ContainerID
	if h.ContainerID == "" {
		t.Fatal("SPE_E2E_CONTAINER_ID is not set")
	}

	folder, err := h.App.SDK.CreateFolder(h.Context(t), h.Token(t), h.ContainerID, "", cfg.TestDir+"-"+h.TestID)
	if err != nil {
		t.Fatalf("Failed to create test directory: %v", err)
	}
	h.TestDirID = folder.ID

	t.Cleanup(func() {
		h.Cleanup(t)
	})
	return h
}

// newSilentApp wires the live SDK with an authenticator that never prompts.
func newSilentApp(t *testing.T) *app.App {
	t.Helper()

	cfg, err := config.LoadOrCreate()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Configuration is not usable: %v", err)
	}
	mgr, err := session.NewManager()
	if err != nil {
		t.Fatalf("Failed to create session manager: %v", err)
	}

	log := logger.NoopLogger{}
	ring := diag.NewRing(diag.DefaultCapacity)
	identity := spe.NewIdentityClient(cfg.ClientID, cfg.TenantID, spe.WithIdentityLogger(log))

	return &app.App{
		Config:   cfg,
		Identity: identity,
		Diag:     ring,
		Session:  mgr,
		Logger:   log,
		SDK:      app.NewLiveSDK(cfg.APIBaseURL, cfg.HTTP.Timeout, log, ring),
		Auth: auth.New(auth.Options{
			Identity:     identity,
			Cache:        mgr,
			Logger:       log,
			LoginEnabled: cfg.LoginEnabled(),
		}),
	}
}

// Context returns a context bounded by the configured timeout.
func (h *E2ETestHelper) Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), h.Config.Timeout)
	t.Cleanup(cancel)
	return ctx
}

// Token returns a Graph token or fails the test.
func (h *E2ETestHelper) Token(t *testing.T) string {
	t.Helper()
	token, ok := h.App.Auth.GetAccessToken(h.Context(t), "")
	if !ok {
		t.Fatal("No access token. Please run: spe-client auth login")
	}
	return token
}

// CreateTestFile creates a temporary test file with specified content
func (h *E2ETestHelper) CreateTestFile(t *testing.T, name string, content []byte) string {
	t.Helper()

	file, err := os.CreateTemp("", fmt.Sprintf("e2e-%s-*-%s", h.TestID, name))
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	if _, err := file.Write(content); err != nil {
		file.Close()
		os.Remove(file.Name())
		t.Fatalf("Failed to write to temp file: %v", err)
	}

	file.Close()
	h.TempFiles = append(h.TempFiles, file.Name())
	return file.Name()
}

// FindChild lists the test directory and returns the child called name.
func (h *E2ETestHelper) FindChild(t *testing.T, name string) (spe.DriveItem, bool) {
	t.Helper()

	items, err := h.App.SDK.ListChildren(h.Context(t), h.Token(t), h.ContainerID, h.TestDirID)
	if err != nil {
		t.Fatalf("Failed to list test directory: %v", err)
	}
	for _, item := range items {
		if item.Name == name {
			return item, true
		}
	}
	return spe.DriveItem{}, false
}

// WaitForChild polls the test directory until name appears.
func (h *E2ETestHelper) WaitForChild(t *testing.T, name string, timeout time.Duration) spe.DriveItem {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if item, ok := h.FindChild(t, name); ok {
			return item
		}
		time.Sleep(1 * time.Second)
	}
	t.Fatalf("%s did not appear within %v", name, timeout)
	return spe.DriveItem{}
}

// Cleanup removes local temp files and, unless disabled, the remote test
// directory.
func (h *E2ETestHelper) Cleanup(t *testing.T) {
	t.Helper()

	for _, file := range h.TempFiles {
		if err := os.Remove(file); err != nil {
			t.Logf("Warning: failed to remove temp file %s: %v", file, err)
		}
	}

	if !h.Config.Cleanup || h.TestDirID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	token, ok := h.App.Auth.GetAccessToken(ctx, "")
	if !ok {
		t.Logf("Warning: no token for cleanup of %s", h.TestDirID)
		return
	}
	if err := h.App.SDK.DeleteItem(ctx, token, h.ContainerID, h.TestDirID); err != nil {
		t.Logf("Warning: failed to remove test directory %s: %v", h.TestDirID, err)
	}
}

func generateTestID() string {
	return fmt.Sprintf("test-%d", time.Now().UnixNano())
}

// LogTestInfo logs useful information about the test setup
func (h *E2ETestHelper) LogTestInfo(t *testing.T) {
	t.Helper()
	t.Logf("Test ID: %s", h.TestID)
	t.Logf("Container: %s", h.ContainerID)
	t.Logf("Test Directory: %s", h.TestDirID)
}

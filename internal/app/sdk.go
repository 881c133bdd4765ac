package app

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/tonimelisma/spe-client/internal/logger"
	"github.com/tonimelisma/spe-client/pkg/spe"
)

// SDK defines the Graph operations the commands use. Every call carries
// the bearer token explicitly so it can be mocked in tests.
type SDK interface {
	GetMe(ctx context.Context, token string) (spe.User, error)

	ListContainers(ctx context.Context, token, containerTypeID string) ([]spe.Container, error)
	GetContainer(ctx context.Context, token, containerID string) (spe.Container, error)
	CreateContainer(ctx context.Context, token string, req spe.CreateContainerRequest) (spe.Container, error)

	ListChildren(ctx context.Context, token, containerID, folderID string) ([]spe.DriveItem, error)
	DeleteItem(ctx context.Context, token, containerID, itemID string) error
	CreateFolder(ctx context.Context, token, containerID, parentID, name string) (spe.DriveItem, error)
	UploadFile(ctx context.Context, token, containerID, parentID, name string, content io.Reader) (spe.DriveItem, error)

	SearchFiles(ctx context.Context, token, term, containerID, containerTypeID string) ([]spe.SearchResult, error)
	GetFileDetails(ctx context.Context, token, driveID, itemID string) (string, error)
	GetPreviewURL(ctx context.Context, token, driveID, itemID string) (string, error)
}

// LiveSDK is the SDK backed by Microsoft Graph.
type LiveSDK struct {
	baseURL  string
	timeout  time.Duration
	logger   logger.Logger
	recorder spe.Recorder
}

// NewLiveSDK creates a LiveSDK. recorder may be nil.
func NewLiveSDK(baseURL string, timeout time.Duration, l logger.Logger, recorder spe.Recorder) *LiveSDK {
	return &LiveSDK{
		baseURL:  baseURL,
		timeout:  timeout,
		logger:   logger.OrNoop(l),
		recorder: recorder,
	}
}

func (s *LiveSDK) client(ctx context.Context, token string) *spe.Client {
	opts := []spe.Option{
		spe.WithBaseURL(s.baseURL),
		spe.WithTimeout(s.timeout),
		spe.WithLogger(s.logger),
	}
	if s.recorder != nil {
		opts = append(opts, spe.WithRecorder(s.recorder))
	}
	return spe.NewClientWithToken(ctx, token, opts...)
}

func (s *LiveSDK) GetMe(ctx context.Context, token string) (spe.User, error) {
	return s.client(ctx, token).GetMe(ctx)
}

func (s *LiveSDK) ListContainers(ctx context.Context, token, containerTypeID string) ([]spe.Container, error) {
	return s.client(ctx, token).ListContainers(ctx, containerTypeID)
}

func (s *LiveSDK) GetContainer(ctx context.Context, token, containerID string) (spe.Container, error) {
	return s.client(ctx, token).GetContainer(ctx, containerID)
}

func (s *LiveSDK) CreateContainer(ctx context.Context, token string, req spe.CreateContainerRequest) (spe.Container, error) {
	return s.client(ctx, token).CreateContainer(ctx, req)
}

func (s *LiveSDK) ListChildren(ctx context.Context, token, containerID, folderID string) ([]spe.DriveItem, error) {
	return s.client(ctx, token).ListChildren(ctx, containerID, folderID)
}

func (s *LiveSDK) DeleteItem(ctx context.Context, token, containerID, itemID string) error {
	return s.client(ctx, token).DeleteItem(ctx, containerID, itemID)
}

func (s *LiveSDK) CreateFolder(ctx context.Context, token, containerID, parentID, name string) (spe.DriveItem, error) {
	return s.client(ctx, token).CreateFolder(ctx, containerID, parentID, name)
}

func (s *LiveSDK) UploadFile(ctx context.Context, token, containerID, parentID, name string, content io.Reader) (spe.DriveItem, error) {
	return s.client(ctx, token).UploadFile(ctx, containerID, parentID, name, content)
}

func (s *LiveSDK) SearchFiles(ctx context.Context, token, term, containerID, containerTypeID string) ([]spe.SearchResult, error) {
	return s.client(ctx, token).SearchFiles(ctx, term, containerID, containerTypeID)
}

func (s *LiveSDK) GetFileDetails(ctx context.Context, token, driveID, itemID string) (string, error) {
	return s.client(ctx, token).GetFileDetails(ctx, driveID, itemID)
}

func (s *LiveSDK) GetPreviewURL(ctx context.Context, token, driveID, itemID string) (string, error) {
	return s.client(ctx, token).GetPreviewURL(ctx, driveID, itemID)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = spe.DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// Package server exposes the client's operations as a local JSON API so a
// browser front end can drive the same container, file, search and Copilot
// paths the CLI uses.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/tonimelisma/spe-client/internal/app"
	"github.com/tonimelisma/spe-client/internal/browser"
	"github.com/tonimelisma/spe-client/internal/copilot"
	"github.com/tonimelisma/spe-client/internal/diag"
	"github.com/tonimelisma/spe-client/internal/logger"
	"github.com/tonimelisma/spe-client/internal/session"
	"github.com/tonimelisma/spe-client/pkg/spe"
)

// DefaultAllowedOrigins is used when Options.AllowedOrigins is empty.
var DefaultAllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// requestIDHeader carries the correlation id of each request.
const requestIDHeader = "X-Request-Id"

// Authenticator is what the server needs from the sign-in state.
type Authenticator interface {
	IsAuthenticated() bool
	User() *session.Account
	GetAccessToken(ctx context.Context, resource string) (string, bool)
	GetSharePointToken(ctx context.Context, hostname string) (string, bool)
}

// Options configures a Server.
type Options struct {
	SDK             app.SDK
	Auth            Authenticator
	Diag            *diag.Ring
	ContainerTypeID string
	ShowDiagnostics bool
	AllowedOrigins  []string
	Logger          logger.Logger
	// MaxUploadBytes caps an upload body. Zero means DefaultMaxUploadBytes.
	MaxUploadBytes int64
}

// Server holds one Browser and one Copilot session per container.
type Server struct {
	opts   Options
	logger logger.Logger

	mu       sync.Mutex
	browsers map[string]*browser.Browser
	chats    map[string]*copilot.Session
}

// New creates a Server.
func New(opts Options) *Server {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = DefaultAllowedOrigins
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &Server{
		opts:     opts,
		logger:   logger.OrNoop(opts.Logger),
		browsers: make(map[string]*browser.Browser),
		chats:    make(map[string]*copilot.Session),
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/me", s.handleMe)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/containers", s.handleListContainers)
			r.Post("/containers", s.handleCreateContainer)
			r.Get("/containers/{containerId}", s.handleGetContainer)

			r.Get("/containers/{containerId}/items", s.handleListItems)
			r.Post("/containers/{containerId}/items", s.handleCreateFolder)
			r.Put("/containers/{containerId}/items/{name}", s.handleUpload)
			r.Delete("/containers/{containerId}/items/{itemId}", s.handleDeleteItem)

			r.Get("/containers/{containerId}/browse", s.handleBrowse)
			r.Post("/containers/{containerId}/browse/open", s.handleBrowseOpen)
			r.Post("/containers/{containerId}/browse/breadcrumb", s.handleBrowseBreadcrumb)
			r.Post("/containers/{containerId}/browse/up", s.handleBrowseUp)

			r.Get("/search", s.handleSearch)
			r.Get("/files/{driveId}/{itemId}", s.handleFileDetails)
			r.Post("/files/{driveId}/{itemId}/preview", s.handlePreview)

			r.Post("/copilot/{containerId}", s.handleCopilotOpen)
			r.Get("/copilot/{containerId}", s.handleCopilotState)
			r.Delete("/copilot/{containerId}", s.handleCopilotClose)
			r.Post("/copilot/{containerId}/reset", s.handleCopilotReset)
			r.Post("/copilot/{containerId}/error", s.handleCopilotError)
			r.Get("/copilot/{containerId}/token", s.handleCopilotToken)
		})

		if s.opts.ShowDiagnostics && s.opts.Diag != nil {
			r.Get("/diagnostics", s.handleDiagnostics)
			r.Delete("/diagnostics", s.handleClearDiagnostics)
		}
	})

	if s.opts.ShowDiagnostics && s.opts.Diag != nil {
		r.Handle("/metrics", s.opts.Diag.Handler())
	}

	return r
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", w.Header().Get(requestIDHeader),
		)
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Auth == nil || !s.opts.Auth.IsAuthenticated() {
			writeError(w, http.StatusUnauthorized, "not signed in")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// graphToken returns a Graph token or writes a 401.
func (s *Server) graphToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	token, ok := s.opts.Auth.GetAccessToken(r.Context(), "")
	if !ok {
		writeError(w, http.StatusUnauthorized, browser.ErrNoToken.Error())
	}
	return token, ok
}

func (s *Server) browserFor(containerID string) *browser.Browser {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.browsers[containerID]
	if !ok {
		b = browser.New(containerID, s.opts.Auth, s.opts.SDK, browser.WithLogger(s.logger))
		s.browsers[containerID] = b
	}
	return b
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Status: status})
}

// writeServiceError maps client errors to a response. Graph failures keep
// their status and body.
func writeServiceError(w http.ResponseWriter, err error) {
	var httpErr *spe.HTTPError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
	case errors.As(err, &httpErr):
		writeJSON(w, httpErr.StatusCode, errorBody{Error: err.Error(), Status: httpErr.StatusCode, Detail: httpErr.Body})
	case errors.Is(err, spe.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, browser.ErrNoToken), errors.Is(err, browser.ErrNotReady), errors.Is(err, spe.ErrReauthRequired):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tonimelisma/spe-client/internal/browser"
	"github.com/tonimelisma/spe-client/internal/copilot"
	"github.com/tonimelisma/spe-client/internal/ui"
	"github.com/tonimelisma/spe-client/pkg/spe"
)

// DefaultMaxUploadBytes is the limit of a single-request Graph upload.
const DefaultMaxUploadBytes = 250 << 20

type meResponse struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	Name          string `json:"name,omitempty"`
	TenantID      string `json:"tenantId,omitempty"`
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	resp := meResponse{}
	if s.opts.Auth != nil {
		if acct := s.opts.Auth.User(); acct != nil {
			resp = meResponse{Authenticated: true, Username: acct.Username, Name: acct.Name, TenantID: acct.TenantID}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListContainers(w http.ResponseWriter, r *http.Request) {
	typeID := r.URL.Query().Get("containerTypeId")
	if typeID == "" {
		typeID = s.opts.ContainerTypeID
	}
	token, ok := s.graphToken(w, r)
	if !ok {
		return
	}
	containers, err := s.opts.SDK.ListContainers(r.Context(), token, typeID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, containers)
}

func (s *Server) handleGetContainer(w http.ResponseWriter, r *http.Request) {
	token, ok := s.graphToken(w, r)
	if !ok {
		return
	}
	c, err := s.opts.SDK.GetContainer(r.Context(), token, chi.URLParam(r, "containerId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleCreateContainer(w http.ResponseWriter, r *http.Request) {
	var req spe.CreateContainerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ContainerTypeID == "" {
		req.ContainerTypeID = s.opts.ContainerTypeID
	}
	token, ok := s.graphToken(w, r)
	if !ok {
		return
	}
	c, err := s.opts.SDK.CreateContainer(r.Context(), token, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	token, ok := s.graphToken(w, r)
	if !ok {
		return
	}
	items, err := s.opts.SDK.ListChildren(r.Context(), token, chi.URLParam(r, "containerId"), r.URL.Query().Get("folder"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ui.SortItems(items))
}

type createFolderRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parentId"`
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "folder name is required")
		return
	}
	token, ok := s.graphToken(w, r)
	if !ok {
		return
	}
	item, err := s.opts.SDK.CreateFolder(r.Context(), token, chi.URLParam(r, "containerId"), req.ParentID, req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, spe.Decorate(item))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.opts.MaxUploadBytes
	if r.ContentLength > limit {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", limit))
		return
	}
	token, ok := s.graphToken(w, r)
	if !ok {
		return
	}
	body := http.MaxBytesReader(w, r.Body, limit)
	item, err := s.opts.SDK.UploadFile(r.Context(), token, chi.URLParam(r, "containerId"), r.URL.Query().Get("folder"), chi.URLParam(r, "name"), body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, spe.Decorate(item))
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	containerID := chi.URLParam(r, "containerId")
	itemID := chi.URLParam(r, "itemId")

	// Go through the container's browser so its listing stays in step.
	b := s.browserFor(containerID)
	item := spe.DriveItem{ID: itemID, Name: itemID}
	for _, it := range b.Snapshot().Items {
		if it.ID == itemID {
			item = it
			break
		}
	}
	if err := b.DeleteItem(r.Context(), item); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	b := s.browserFor(chi.URLParam(r, "containerId"))
	if err := b.Fetch(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeBrowserState(w, b.Snapshot())
}

type navigateRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleBrowseOpen(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	b := s.browserFor(chi.URLParam(r, "containerId"))
	if err := b.NavigateIntoFolder(r.Context(), req.ID, req.Name); err != nil {
		writeServiceError(w, err)
		return
	}
	writeBrowserState(w, b.Snapshot())
}

func (s *Server) handleBrowseBreadcrumb(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	b := s.browserFor(chi.URLParam(r, "containerId"))
	if err := b.NavigateToBreadcrumb(r.Context(), req.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeBrowserState(w, b.Snapshot())
}

func (s *Server) handleBrowseUp(w http.ResponseWriter, r *http.Request) {
	b := s.browserFor(chi.URLParam(r, "containerId"))
	if err := b.NavigateUp(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeBrowserState(w, b.Snapshot())
}

func writeBrowserState(w http.ResponseWriter, st browser.State) {
	st.Items = ui.SortItems(st.Items)
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	term := q.Get("q")
	if strings.TrimSpace(term) == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	typeID := q.Get("containerTypeId")
	if typeID == "" {
		typeID = s.opts.ContainerTypeID
	}
	token, ok := s.graphToken(w, r)
	if !ok {
		return
	}
	results, err := s.opts.SDK.SearchFiles(r.Context(), token, term, q.Get("containerId"), typeID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

type urlResponse struct {
	URL string `json:"url"`
}

func (s *Server) handleFileDetails(w http.ResponseWriter, r *http.Request) {
	token, ok := s.graphToken(w, r)
	if !ok {
		return
	}
	u, err := s.opts.SDK.GetFileDetails(r.Context(), token, chi.URLParam(r, "driveId"), chi.URLParam(r, "itemId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, urlResponse{URL: u})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	token, ok := s.graphToken(w, r)
	if !ok {
		return
	}
	u, err := s.opts.SDK.GetPreviewURL(r.Context(), token, chi.URLParam(r, "driveId"), chi.URLParam(r, "itemId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, urlResponse{URL: u})
}

func (s *Server) chat(containerID string) (*copilot.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[containerID]
	return c, ok
}

func (s *Server) handleCopilotOpen(w http.ResponseWriter, r *http.Request) {
	containerID := chi.URLParam(r, "containerId")
	q := r.URL.Query()

	presentation, err := copilot.ParsePresentation(q.Get("presentation"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hostname := q.Get("hostname")
	if hostname == "" {
		token, ok := s.graphToken(w, r)
		if !ok {
			return
		}
		c, err := s.opts.SDK.GetContainer(r.Context(), token, containerID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		hostname = c.WebURL
	}
	if copilot.HostnameOf(hostname) == "" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("no SharePoint hostname for container %s", containerID))
		return
	}

	sess := copilot.NewSession(containerID, hostname, presentation, s.opts.Auth, s.logger)
	sess.Open()

	s.mu.Lock()
	s.chats[containerID] = sess
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, sess.EmbedConfig())
}

func (s *Server) handleCopilotState(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.chat(chi.URLParam(r, "containerId"))
	if !ok || !sess.IsOpen() {
		writeError(w, http.StatusNotFound, "chat is not open")
		return
	}
	writeJSON(w, http.StatusOK, sess.EmbedConfig())
}

func (s *Server) handleCopilotClose(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.chat(chi.URLParam(r, "containerId")); ok {
		sess.Close()
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCopilotReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.chat(chi.URLParam(r, "containerId"))
	if !ok {
		writeError(w, http.StatusNotFound, "chat is not open")
		return
	}
	sess.Reset()
	writeJSON(w, http.StatusOK, sess.EmbedConfig())
}

type chatErrorRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleCopilotError(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.chat(chi.URLParam(r, "containerId"))
	if !ok {
		writeError(w, http.StatusNotFound, "chat is not open")
		return
	}
	var req chatErrorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	sess.ReportError(errors.New(req.Message))
	writeJSON(w, http.StatusOK, sess.EmbedConfig())
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleCopilotToken(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.chat(chi.URLParam(r, "containerId"))
	if !ok || !sess.IsOpen() {
		writeError(w, http.StatusNotFound, "chat is not open")
		return
	}
	token, err := sess.AuthProvider()(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Diag.Recent())
}

func (s *Server) handleClearDiagnostics(w http.ResponseWriter, r *http.Request) {
	s.opts.Diag.Clear()
	w.WriteHeader(http.StatusNoContent)
}

package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/yanani99/reso/internal/captcha"
	"github.com/yanani99/reso/internal/models"
	"github.com/yanani99/reso/internal/services"
	"github.com/yanani99/reso/internal/shared"
	"github.com/yanani99/reso/internal/tasks"
)

// Generator runs one full generation attempt. Implemented by
// [tasks.GenerationEngine]; test doubles stand in elsewhere.
type Generator interface {
	Generate(ctx context.Context, progress chan<- tasks.ProgressUpdate, req models.GenerationRequest) (*tasks.GenerationResult, error)
}

// ClipStore persists finished generation attempts. Optional; a nil store
// disables history.
type ClipStore interface {
	SaveClips(ctx context.Context, clips []models.Clip) error
}

// APIHandler serves the generation endpoints and the human solver bridge.
//
// Every authenticated request resolves its session through the registry
// keyed on the caller's Cookie header, falling back to the configured
// credential, so one server instance can front multiple accounts.
type APIHandler struct {
	cfg      *shared.Config
	registry *services.Registry
	bridge   *captcha.Bridge
	driver   tasks.Driver
	store    ClipStore
	logger   *log.Logger

	// newEngine builds the per-attempt orchestrator. Swapped in tests.
	newEngine func(session services.Session, solver captcha.Solver) Generator
}

// NewAPIHandler wires the handler. driver and store may be nil: a nil
// driver disables browser-assisted solving, a nil store disables history.
func NewAPIHandler(cfg *shared.Config, registry *services.Registry, bridge *captcha.Bridge, driver tasks.Driver, store ClipStore, logger *log.Logger) *APIHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	h := &APIHandler{
		cfg:      cfg,
		registry: registry,
		bridge:   bridge,
		driver:   driver,
		store:    store,
		logger:   logger,
	}
	h.newEngine = func(session services.Session, solver captcha.Solver) Generator {
		engine := tasks.NewGenerationEngine(session, driver, solver, logger)
		if cfg != nil && cfg.Generation.PollTimeout > 0 {
			engine.SetPollWindow(cfg.PollWindow())
		}
		return engine
	}
	return h
}

// Routes returns the HTTP routes this handler serves.
func (h *APIHandler) Routes() []string {
	return []string{
		"/api/captcha/pending",
		"/api/captcha/solve",
		"/api/generate",
		"/api/custom_generate",
		"/api/generate_lyrics",
		"/api/get",
		"/api/get_limit",
		"/api/clip",
		"/api/concat",
		"/api/aligned_lyrics",
		"/api/stems",
		"/api/persona",
	}
}

func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/captcha/pending":
		h.handlePending(w, r)
	case "/api/captcha/solve":
		h.handleSolve(w, r)
	case "/api/generate":
		h.handleGenerate(w, r, false)
	case "/api/custom_generate":
		h.handleGenerate(w, r, true)
	case "/api/generate_lyrics":
		h.handleLyrics(w, r)
	case "/api/get":
		h.handleGet(w, r)
	case "/api/get_limit":
		h.handleGetLimit(w, r)
	case "/api/clip":
		h.handleClip(w, r)
	case "/api/concat":
		h.handleConcat(w, r)
	case "/api/aligned_lyrics":
		h.handleAlignedLyrics(w, r)
	case "/api/stems":
		h.handleStems(w, r)
	case "/api/persona":
		h.handlePersona(w, r)
	default:
		http.NotFound(w, r)
	}
}

// session resolves the Suno client for this request. A Cookie header on the
// request selects (or creates) a registry entry for that credential; absent
// one, the configured credential is used.
func (h *APIHandler) session(r *http.Request) (*services.SunoClient, error) {
	cookie := r.Header.Get("Cookie")
	if !strings.Contains(cookie, "__client") {
		cookie = h.cfg.Credentials.Cookie
	}
	return h.registry.Acquire(r.Context(), cookie)
}

// pendingResponse is the bridge's answer to a solver poll.
type pendingResponse struct {
	Pending bool   `json:"pending"`
	ID      string `json:"id,omitempty"`
	Image   string `json:"image,omitempty"`
	Prompt  string `json:"prompt,omitempty"`
}

func (h *APIHandler) handlePending(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	key, ch, ok := h.bridge.Peek()
	if !ok {
		writeJSON(w, http.StatusOK, pendingResponse{Pending: false})
		return
	}
	writeJSON(w, http.StatusOK, pendingResponse{
		Pending: true,
		ID:      key,
		Image:   base64.StdEncoding.EncodeToString(ch.Image),
		Prompt:  ch.Prompt,
	})
}

type solveRequest struct {
	ID          string          `json:"id"`
	Coordinates []captcha.Point `json:"coordinates"`
}

func (h *APIHandler) handleSolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req solveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Coordinates) == 0 {
		writeError(w, http.StatusBadRequest, "coordinates required")
		return
	}
	if !h.bridge.Resolve(req.ID, req.Coordinates) {
		writeError(w, http.StatusNotFound, "No CAPTCHA pending")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// generateRequest carries both request forms; the custom flag picks which
// fields are honored.
type generateRequest struct {
	Prompt       string `json:"prompt"`
	Tags         string `json:"tags"`
	Title        string `json:"title"`
	NegativeTags string `json:"negative_tags"`
	Instrumental bool   `json:"make_instrumental"`
	Model        string `json:"model"`
	Wait         bool   `json:"wait_audio"`
}

func (h *APIHandler) handleGenerate(w http.ResponseWriter, r *http.Request, custom bool) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body generateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt required")
		return
	}

	req := models.GenerationRequest{
		Prompt:       body.Prompt,
		Instrumental: body.Instrumental,
		Model:        body.Model,
		Wait:         body.Wait,
		Custom:       custom,
	}
	if custom {
		req.Tags = body.Tags
		req.Title = body.Title
		req.NegativeTags = body.NegativeTags
	}

	session, err := h.session(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	// Each attempt gets its own bridge key so concurrent attempts keep
	// their challenges apart.
	solver := captcha.NewBridgeSolver(h.bridge, shared.GenerateID())

	// Detached from the request context: a client that gives up mid-solve
	// must not abort a browser attempt that has already spent credits.
	ctx := context.WithoutCancel(r.Context())
	result, err := h.newEngine(session, solver).Generate(ctx, nil, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if h.store != nil && len(result.Clips) > 0 {
		if err := h.store.SaveClips(ctx, result.Clips); err != nil {
			h.logger.Warn("failed to persist clips", "err", err)
		}
	}
	writeJSON(w, http.StatusOK, result.Clips)
}

type lyricsRequest struct {
	Prompt string `json:"prompt"`
}

func (h *APIHandler) handleLyrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body lyricsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	session, err := h.session(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	result, err := session.Lyrics(r.Context(), body.Prompt)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *APIHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	raw := r.URL.Query().Get("ids")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "ids required")
		return
	}
	ids := strings.Split(raw, ",")

	session, err := h.session(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if err := session.KeepAlive(r.Context(), false); err != nil {
		h.writeServiceError(w, err)
		return
	}
	clips, err := session.Feed(r.Context(), ids)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if h.store != nil && len(clips) > 0 {
		if err := h.store.SaveClips(r.Context(), clips); err != nil {
			h.logger.Warn("failed to persist clips", "err", err)
		}
	}
	writeJSON(w, http.StatusOK, clips)
}

func (h *APIHandler) handleGetLimit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	session, err := h.session(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if err := session.KeepAlive(r.Context(), false); err != nil {
		h.writeServiceError(w, err)
		return
	}
	credits, err := session.Credits(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, credits)
}

func (h *APIHandler) handleClip(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id required")
		return
	}
	session, err := h.session(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if err := session.KeepAlive(r.Context(), false); err != nil {
		h.writeServiceError(w, err)
		return
	}
	clip, err := session.Clip(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clip)
}

type concatRequest struct {
	ClipID string `json:"clip_id"`
}

func (h *APIHandler) handleConcat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body concatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.ClipID == "" {
		writeError(w, http.StatusBadRequest, "clip_id required")
		return
	}
	session, err := h.session(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if err := session.KeepAlive(r.Context(), false); err != nil {
		h.writeServiceError(w, err)
		return
	}
	clip, err := session.Concatenate(r.Context(), body.ClipID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clip)
}

func (h *APIHandler) handleAlignedLyrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id required")
		return
	}
	session, err := h.session(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if err := session.KeepAlive(r.Context(), false); err != nil {
		h.writeServiceError(w, err)
		return
	}
	words, err := session.AlignedLyrics(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, words)
}

type stemsRequest struct {
	ClipID string `json:"clip_id"`
}

func (h *APIHandler) handleStems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body stemsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.ClipID == "" {
		writeError(w, http.StatusBadRequest, "clip_id required")
		return
	}
	session, err := h.session(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if err := session.KeepAlive(r.Context(), false); err != nil {
		h.writeServiceError(w, err)
		return
	}
	clips, err := session.Stems(r.Context(), body.ClipID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clips)
}

func (h *APIHandler) handlePersona(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id required")
		return
	}
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		page = n
	}
	session, err := h.session(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if err := session.KeepAlive(r.Context(), false); err != nil {
		h.writeServiceError(w, err)
		return
	}
	persona, err := session.Persona(r.Context(), id, page)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, persona)
}

// writeServiceError maps internal failures onto HTTP statuses.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error) {
	h.logger.Error("request failed", "err", err)
	switch {
	case errors.Is(err, shared.ErrMissingCredentials), errors.Is(err, shared.ErrAuthFailed),
		errors.Is(err, shared.ErrNoSession), errors.Is(err, shared.ErrSessionExpired):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, shared.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrClipNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

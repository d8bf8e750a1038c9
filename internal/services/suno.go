// Suno studio-api implementation of [Session]
//
// Endpoint shapes are reverse engineered from the web client; authentication
// runs through Clerk (cookie -> session id -> short-lived JWT).
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/yanani99/reso/internal/models"
	"github.com/yanani99/reso/internal/shared"
)

const (
	defaultBaseURL  = "https://studio-api.prod.suno.com"
	defaultClerkURL = "https://clerk.suno.com"
	clerkVersion    = "5.15.0"

	// DefaultModel is used when a request does not name a model version.
	DefaultModel = "chirp-v3-5"

	// Mac user agents reportedly draw fewer challenges than others.
	defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36"
)

// SunoClient holds one authenticated identity against the Suno service: the
// credential cookie set, a device identifier, the Clerk session id, and the
// rotating bearer token. It implements [Session].
type SunoClient struct {
	httpClient *http.Client
	jar        *shared.CookieJar
	deviceID   string
	userAgent  string
	logger     *log.Logger

	baseURL  string
	clerkURL string

	grace   shared.Backoff
	sleeper shared.Sleeper

	mu    sync.Mutex
	sid   string
	token string
}

// NewSunoClient creates a client for the given raw Cookie header.
// A nil http client falls back to [http.DefaultClient].
func NewSunoClient(cookie string, client *http.Client, logger *log.Logger) *SunoClient {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	jar := shared.ParseCookieJar(cookie)
	deviceID := jar.Get("ajs_anonymous_id")
	if deviceID == "" {
		deviceID = uuid.New().String()
	}

	return &SunoClient{
		httpClient: client,
		jar:        jar,
		deviceID:   deviceID,
		userAgent:  defaultUserAgent,
		logger:     logger,
		baseURL:    defaultBaseURL,
		clerkURL:   defaultClerkURL,
		grace:      shared.Backoff{Base: time.Second, Jitter: time.Second},
		sleeper:    shared.TimerSleeper{},
	}
}

// Authenticate exchanges the stored cookie set for a Clerk session id.
//
// Fails with [shared.ErrMissingCredentials] when the cookie lacks the
// __client identity marker and with [shared.ErrAuthFailed] when Clerk does
// not report an active session (the cookie is stale or revoked).
func (s *SunoClient) Authenticate(ctx context.Context) error {
	clientToken := s.jar.Get("__client")
	if clientToken == "" {
		return fmt.Errorf("%w: cookie is missing the __client token", shared.ErrMissingCredentials)
	}

	s.logger.Info("getting the session ID")
	endpoint := fmt.Sprintf("%s/v1/client?_is_native=true&_clerk_js_version=%s", s.clerkURL, clerkVersion)

	var resp struct {
		Response struct {
			LastActiveSessionID string `json:"last_active_session_id"`
		} `json:"response"`
	}
	if err := s.do(ctx, http.MethodGet, endpoint, nil, &resp, clientToken); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	if resp.Response.LastActiveSessionID == "" {
		return fmt.Errorf("%w: no active session, the stored cookie may be stale", shared.ErrAuthFailed)
	}

	s.mu.Lock()
	s.sid = resp.Response.LastActiveSessionID
	s.mu.Unlock()
	return nil
}

// KeepAlive renews the bearer token for the current session id.
//
// When wait is true the call blocks through a short grace delay after the
// new token arrives, modelling token propagation latency on the remote side.
func (s *SunoClient) KeepAlive(ctx context.Context, wait bool) error {
	s.mu.Lock()
	sid := s.sid
	s.mu.Unlock()
	if sid == "" {
		return fmt.Errorf("%w: authenticate before renewing the token", shared.ErrNoSession)
	}

	endpoint := fmt.Sprintf("%s/v1/client/sessions/%s/tokens?_is_native=true&_clerk_js_version=%s", s.clerkURL, sid, clerkVersion)

	var resp struct {
		JWT string `json:"jwt"`
	}
	if err := s.do(ctx, http.MethodPost, endpoint, struct{}{}, &resp, s.jar.Get("__client")); err != nil {
		return fmt.Errorf("token renewal: %w", err)
	}

	if wait {
		if err := s.grace.Wait(ctx, s.sleeper); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.token = resp.JWT
	s.mu.Unlock()
	return nil
}

// Token returns the current bearer token.
func (s *SunoClient) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// AdoptToken implements [Session]. The browser's own traffic carries a JWT
// renewed during the solve, which is fresher than whatever KeepAlive fetched
// before the browser launched.
func (s *SunoClient) AdoptToken(token string) {
	if token == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Snapshot implements [Session].
func (s *SunoClient) Snapshot() SessionSnapshot {
	return SessionSnapshot{
		Cookies:   s.jar.Pairs(),
		Token:     s.Token(),
		UserAgent: s.userAgent,
	}
}

// Fingerprint returns the credential set's identity, used as the registry key.
func (s *SunoClient) Fingerprint() string {
	return s.jar.Fingerprint()
}

// CaptchaRequired implements [Session].
func (s *SunoClient) CaptchaRequired(ctx context.Context) (bool, error) {
	var resp struct {
		Required bool `json:"required"`
	}
	err := s.do(ctx, http.MethodPost, s.baseURL+"/api/c/check", map[string]string{"ctype": "generation"}, &resp, "")
	if err != nil {
		return false, err
	}
	return resp.Required, nil
}

// StartGeneration implements [Session]. The payload mirrors the web client's
// /api/generate/v2/ call; token is attached verbatim (JSON null when empty,
// meaning no challenge was required).
func (s *SunoClient) StartGeneration(ctx context.Context, req models.GenerationRequest, token string) ([]models.Clip, error) {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	payload := map[string]any{
		"make_instrumental": req.Instrumental,
		"mv":                model,
		"prompt":            "",
		"generation_type":   "TEXT",
	}
	if token != "" {
		payload["token"] = token
	} else {
		payload["token"] = nil
	}
	if req.Task != "" {
		payload["task"] = req.Task
		payload["continue_clip_id"] = req.ContinueClipID
		payload["continue_at"] = req.ContinueAt
	}
	if req.Custom {
		payload["prompt"] = req.Prompt
		payload["tags"] = req.Tags
		payload["title"] = req.Title
		payload["negative_tags"] = req.NegativeTags
	} else {
		payload["gpt_description_prompt"] = req.Prompt
	}

	var resp struct {
		Clips []apiClip `json:"clips"`
	}
	if err := s.do(ctx, http.MethodPost, s.baseURL+"/api/generate/v2/", payload, &resp, ""); err != nil {
		return nil, err
	}
	return mapClips(resp.Clips), nil
}

// Feed implements [Session], fetching clip status from /api/feed/v2.
func (s *SunoClient) Feed(ctx context.Context, ids []string) ([]models.Clip, error) {
	u, err := url.Parse(s.baseURL + "/api/feed/v2")
	if err != nil {
		return nil, fmt.Errorf("failed to build feed URL: %w", err)
	}
	if len(ids) > 0 {
		q := u.Query()
		q.Set("ids", strings.Join(ids, ","))
		u.RawQuery = q.Encode()
	}

	var resp struct {
		Clips []apiClip `json:"clips"`
	}
	if err := s.do(ctx, http.MethodGet, u.String(), nil, &resp, ""); err != nil {
		return nil, err
	}
	return mapClips(resp.Clips), nil
}

// Clip retrieves a single clip by id.
func (s *SunoClient) Clip(ctx context.Context, id string) (*models.Clip, error) {
	var raw apiClip
	if err := s.do(ctx, http.MethodGet, s.baseURL+"/api/clip/"+id, nil, &raw, ""); err != nil {
		return nil, err
	}
	clip := raw.toModel()
	return &clip, nil
}

// Concatenate requests the whole-song concatenation of an extended clip.
func (s *SunoClient) Concatenate(ctx context.Context, clipID string) (*models.Clip, error) {
	var raw apiClip
	payload := map[string]string{"clip_id": clipID}
	if err := s.do(ctx, http.MethodPost, s.baseURL+"/api/generate/concat/v2/", payload, &raw, ""); err != nil {
		return nil, err
	}
	clip := raw.toModel()
	return &clip, nil
}

// Lyrics generates lyrics for the prompt, polling until the remote job
// completes. The 2 second interval matches the web client.
func (s *SunoClient) Lyrics(ctx context.Context, prompt string) (*models.LyricsResult, error) {
	var submitResp struct {
		ID string `json:"id"`
	}
	if err := s.do(ctx, http.MethodPost, s.baseURL+"/api/generate/lyrics/", map[string]string{"prompt": prompt}, &submitResp, ""); err != nil {
		return nil, err
	}

	interval := shared.Backoff{Base: 2 * time.Second}
	for {
		var result models.LyricsResult
		if err := s.do(ctx, http.MethodGet, s.baseURL+"/api/generate/lyrics/"+submitResp.ID, nil, &result, ""); err != nil {
			return nil, err
		}
		if result.Status == "complete" {
			result.ID = submitResp.ID
			return &result, nil
		}
		if err := interval.Wait(ctx, s.sleeper); err != nil {
			return nil, err
		}
	}
}

// AlignedLyrics fetches word-level lyric timings for a finished clip.
func (s *SunoClient) AlignedLyrics(ctx context.Context, clipID string) ([]models.AlignedWord, error) {
	var resp struct {
		AlignedWords []models.AlignedWord `json:"aligned_words"`
	}
	endpoint := fmt.Sprintf("%s/api/gen/%s/aligned_lyrics/v2/", s.baseURL, clipID)
	if err := s.do(ctx, http.MethodGet, endpoint, nil, &resp, ""); err != nil {
		return nil, err
	}
	return resp.AlignedWords, nil
}

// Stems requests stem separation for a finished clip.
func (s *SunoClient) Stems(ctx context.Context, clipID string) ([]models.Clip, error) {
	var resp struct {
		Clips []apiClip `json:"clips"`
	}
	if err := s.do(ctx, http.MethodPost, s.baseURL+"/api/edit/stems/"+clipID, struct{}{}, &resp, ""); err != nil {
		return nil, err
	}
	return mapClips(resp.Clips), nil
}

// Persona fetches one page of a persona profile and its derived clips.
func (s *SunoClient) Persona(ctx context.Context, personaID string, page int) (*models.Persona, error) {
	if page < 1 {
		page = 1
	}
	var resp struct {
		Persona struct {
			ID           string `json:"id"`
			Name         string `json:"name"`
			Description  string `json:"description"`
			RootClipID   string `json:"root_clip_id"`
			IsPublic     bool   `json:"is_public"`
			ClipCount    int    `json:"clip_count"`
			PersonaClips []struct {
				Clip apiClip `json:"clip"`
			} `json:"persona_clips"`
		} `json:"persona"`
		TotalResults int `json:"total_results"`
		CurrentPage  int `json:"current_page"`
	}
	endpoint := fmt.Sprintf("%s/api/persona/get-persona-paginated/%s/?page=%d", s.baseURL, personaID, page)
	if err := s.do(ctx, http.MethodGet, endpoint, nil, &resp, ""); err != nil {
		return nil, err
	}

	persona := &models.Persona{
		ID:           resp.Persona.ID,
		Name:         resp.Persona.Name,
		Description:  resp.Persona.Description,
		RootClipID:   resp.Persona.RootClipID,
		IsPublic:     resp.Persona.IsPublic,
		ClipCount:    resp.Persona.ClipCount,
		TotalResults: resp.TotalResults,
		CurrentPage:  resp.CurrentPage,
	}
	for _, pc := range resp.Persona.PersonaClips {
		persona.Clips = append(persona.Clips, pc.Clip.toModel())
	}
	return persona, nil
}

// Credits fetches the account's remaining generation allowance.
func (s *SunoClient) Credits(ctx context.Context) (*models.Credits, error) {
	var resp struct {
		TotalCreditsLeft int    `json:"total_credits_left"`
		Period           string `json:"period"`
		MonthlyLimit     int    `json:"monthly_limit"`
		MonthlyUsage     int    `json:"monthly_usage"`
	}
	if err := s.do(ctx, http.MethodGet, s.baseURL+"/api/billing/info/", nil, &resp, ""); err != nil {
		return nil, err
	}
	return &models.Credits{
		CreditsLeft:  resp.TotalCreditsLeft,
		Period:       resp.Period,
		MonthlyLimit: resp.MonthlyLimit,
		MonthlyUsage: resp.MonthlyUsage,
	}, nil
}

// do issues an HTTP call with the session headers attached and merges any
// rotated cookies from the response back into the jar.
//
// authOverride replaces the Bearer token header for Clerk endpoints, which
// authenticate with the raw __client cookie value instead.
func (s *SunoClient) do(ctx context.Context, method, endpoint string, payload, result any, authOverride string) error {
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Affiliate-Id", "undefined")
	req.Header.Set("Device-Id", fmt.Sprintf("%q", s.deviceID))
	req.Header.Set("x-suno-client", "Android prerelease-4nt180t 1.0.42")
	req.Header.Set("X-Requested-With", "com.suno.android")
	req.Header.Set("Cookie", s.jar.Serialize())

	if authOverride != "" {
		req.Header.Set("Authorization", authOverride)
	} else if token := s.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if setCookies := resp.Header.Values("Set-Cookie"); len(setCookies) > 0 {
		s.jar.MergeSetCookies(setCookies)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %s: %s", shared.ErrAPIRequest, method, endpoint, resp.Status)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// ParseGenerateResponse decodes a raw /api/generate response body sniffed
// from the browser's own traffic. Returns false when the body is not a clip
// payload.
func ParseGenerateResponse(body []byte) ([]models.Clip, bool) {
	var resp struct {
		Clips []apiClip `json:"clips"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Clips) == 0 {
		return nil, false
	}
	return mapClips(resp.Clips), true
}

// apiClip is the wire shape of a clip in studio-api responses.
type apiClip struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	ImageURL  string `json:"image_url"`
	AudioURL  string `json:"audio_url"`
	VideoURL  string `json:"video_url"`
	CreatedAt string `json:"created_at"`
	ModelName string `json:"model_name"`
	Status    string `json:"status"`
	Metadata  struct {
		Prompt            string      `json:"prompt"`
		GPTPrompt         string      `json:"gpt_description_prompt"`
		Type              string      `json:"type"`
		Tags              string      `json:"tags"`
		NegativeTags      string      `json:"negative_tags"`
		Duration          json.Number `json:"duration"`
		DurationFormatted string      `json:"duration_formatted"`
		ErrorMessage      string      `json:"error_message"`
	} `json:"metadata"`
}

func (a apiClip) toModel() models.Clip {
	duration := a.Metadata.DurationFormatted
	if duration == "" {
		duration = a.Metadata.Duration.String()
	}
	return models.Clip{
		ID:           a.ID,
		Title:        a.Title,
		ImageURL:     a.ImageURL,
		Lyric:        normalizeLyrics(a.Metadata.Prompt),
		AudioURL:     a.AudioURL,
		VideoURL:     a.VideoURL,
		CreatedAt:    a.CreatedAt,
		ModelName:    a.ModelName,
		Status:       a.Status,
		Prompt:       a.Metadata.Prompt,
		GPTPrompt:    a.Metadata.GPTPrompt,
		Type:         a.Metadata.Type,
		Tags:         a.Metadata.Tags,
		NegativeTags: a.Metadata.NegativeTags,
		Duration:     duration,
		ErrorMessage: a.Metadata.ErrorMessage,
	}
}

func mapClips(raw []apiClip) []models.Clip {
	clips := make([]models.Clip, len(raw))
	for i, r := range raw {
		clips[i] = r.toModel()
	}
	return clips
}

// normalizeLyrics drops empty lines from the raw lyric text.
func normalizeLyrics(prompt string) string {
	if prompt == "" {
		return ""
	}
	var lines []string
	for _, line := range strings.Split(prompt, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

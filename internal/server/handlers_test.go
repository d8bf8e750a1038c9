package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yanani99/reso/internal/captcha"
	"github.com/yanani99/reso/internal/models"
	"github.com/yanani99/reso/internal/services"
	"github.com/yanani99/reso/internal/shared"
	"github.com/yanani99/reso/internal/tasks"
	tt "github.com/yanani99/reso/internal/testing"
)

const testCookie = "__client=client-token; ajs_anonymous_id=device-1"

// upstream answers the Clerk and studio API calls a SunoClient makes.
func upstream(feedBody string) tt.RoundTripFunc {
	return func(r *http.Request) (*http.Response, error) {
		switch {
		case strings.Contains(r.URL.Path, "/v1/client/sessions/"):
			return jsonResponse(200, `{"jwt":"test-jwt"}`), nil
		case r.URL.Path == "/v1/client":
			return jsonResponse(200, `{"response":{"last_active_session_id":"sess_1"}}`), nil
		case strings.Contains(r.URL.Path, "/api/feed/v2"):
			return jsonResponse(200, feedBody), nil
		case strings.Contains(r.URL.Path, "/api/billing/info"):
			return jsonResponse(200, `{"total_credits_left":42,"period":"month","monthly_limit":2500,"monthly_usage":120}`), nil
		case strings.Contains(r.URL.Path, "/api/clip/"):
			return jsonResponse(200, `{"id":"clip-1","status":"complete","title":"One"}`), nil
		case strings.Contains(r.URL.Path, "/api/generate/concat"):
			return jsonResponse(200, `{"id":"whole-1","status":"complete","title":"Whole"}`), nil
		case strings.Contains(r.URL.Path, "/aligned_lyrics/"):
			return jsonResponse(200, `{"aligned_words":[{"word":"la","start_s":0.5,"end_s":0.9,"success":true,"p_align":0.98}]}`), nil
		case strings.Contains(r.URL.Path, "/api/edit/stems/"):
			return jsonResponse(200, `{"clips":[{"id":"stem-vocals","status":"complete"},{"id":"stem-backing","status":"complete"}]}`), nil
		case strings.Contains(r.URL.Path, "/api/persona/get-persona-paginated/"):
			return jsonResponse(200, `{"persona":{"id":"per-1","name":"Night Voice","root_clip_id":"clip-1","clip_count":1,"persona_clips":[{"clip":{"id":"pc-1","status":"complete"}}]},"total_results":1,"current_page":2}`), nil
		default:
			return jsonResponse(404, `{}`), nil
		}
	}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

// fakeEngine is a canned Generator.
type fakeEngine struct {
	clips  []models.Clip
	err    error
	req    models.GenerationRequest
	calls  int
	ctxErr error
}

func (f *fakeEngine) Generate(ctx context.Context, progress chan<- tasks.ProgressUpdate, req models.GenerationRequest) (*tasks.GenerationResult, error) {
	f.calls++
	f.req = req
	f.ctxErr = ctx.Err()
	if f.err != nil {
		return nil, f.err
	}
	return &tasks.GenerationResult{Clips: f.clips}, nil
}

type memoryStore struct {
	saved []models.Clip
	err   error
}

func (m *memoryStore) SaveClips(ctx context.Context, clips []models.Clip) error {
	m.saved = append(m.saved, clips...)
	return m.err
}

func newTestHandler(t *testing.T, transport tt.RoundTripFunc) *APIHandler {
	t.Helper()
	cfg := shared.DefaultConfig()
	cfg.Credentials.Cookie = testCookie

	factory := func(ctx context.Context, cookie string) (*services.SunoClient, error) {
		client := services.NewSunoClient(cookie, &http.Client{Transport: transport}, nil)
		if err := client.Authenticate(ctx); err != nil {
			return nil, err
		}
		return client, nil
	}
	registry := services.NewRegistry(factory, nil)
	return NewAPIHandler(cfg, registry, captcha.NewBridge(), nil, nil, nil)
}

func doRequest(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCaptchaEndpoints(t *testing.T) {
	h := newTestHandler(t, upstream(`{"clips":[]}`))

	t.Run("pending without a challenge", func(t *testing.T) {
		rec := doRequest(h, http.MethodGet, "/api/captcha/pending", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d, want 200", rec.Code)
		}
		var resp pendingResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("bad JSON: %v", err)
		}
		if resp.Pending {
			t.Error("pending true with empty bridge")
		}
	})

	t.Run("pending returns the oldest challenge", func(t *testing.T) {
		h.bridge.Publish("attempt-1", captcha.Challenge{Image: []byte{1, 2, 3}, Prompt: "click the cars"})
		defer h.bridge.Discard("attempt-1")

		rec := doRequest(h, http.MethodGet, "/api/captcha/pending", "")
		var resp pendingResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("bad JSON: %v", err)
		}
		if !resp.Pending || resp.ID != "attempt-1" || resp.Prompt != "click the cars" {
			t.Errorf("unexpected response: %+v", resp)
		}
		if resp.Image != "AQID" {
			t.Errorf("image %q, want base64 of the raw bytes", resp.Image)
		}
	})

	t.Run("solve requires coordinates", func(t *testing.T) {
		rec := doRequest(h, http.MethodPost, "/api/captcha/solve", `{"coordinates":[]}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status %d, want 400", rec.Code)
		}
	})

	t.Run("solve without a pending challenge is 404", func(t *testing.T) {
		rec := doRequest(h, http.MethodPost, "/api/captcha/solve", `{"coordinates":[{"x":1,"y":2}]}`)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status %d, want 404", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "No CAPTCHA pending") {
			t.Errorf("body %q missing the no-pending message", rec.Body.String())
		}
	})

	t.Run("solve routes coordinates to the waiting attempt", func(t *testing.T) {
		coords := h.bridge.Publish("attempt-2", captcha.Challenge{Prompt: "click"})

		rec := doRequest(h, http.MethodPost, "/api/captcha/solve", `{"id":"attempt-2","coordinates":[{"x":10,"y":20}]}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d, want 200: %s", rec.Code, rec.Body.String())
		}
		got := <-coords
		if len(got) != 1 || got[0].X != 10 || got[0].Y != 20 {
			t.Errorf("coordinates %+v did not reach the attempt", got)
		}
	})
}

func TestGenerateEndpoints(t *testing.T) {
	t.Run("description mode maps the request", func(t *testing.T) {
		h := newTestHandler(t, upstream(`{"clips":[]}`))
		engine := &fakeEngine{clips: []models.Clip{{ID: "a", Status: models.StatusComplete}}}
		h.newEngine = func(session services.Session, solver captcha.Solver) Generator { return engine }

		rec := doRequest(h, http.MethodPost, "/api/generate", `{"prompt":"a happy song","wait_audio":true}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
		}
		if engine.req.Custom {
			t.Error("description mode marked custom")
		}
		if !engine.req.Wait || engine.req.Prompt != "a happy song" {
			t.Errorf("request mapped wrong: %+v", engine.req)
		}

		var clips []models.Clip
		if err := json.Unmarshal(rec.Body.Bytes(), &clips); err != nil {
			t.Fatalf("bad JSON: %v", err)
		}
		if len(clips) != 1 || clips[0].ID != "a" {
			t.Errorf("unexpected clips: %+v", clips)
		}
	})

	t.Run("custom mode carries tags and title", func(t *testing.T) {
		h := newTestHandler(t, upstream(`{"clips":[]}`))
		engine := &fakeEngine{}
		h.newEngine = func(session services.Session, solver captcha.Solver) Generator { return engine }

		body := `{"prompt":"[Verse] la la","tags":"synthwave","title":"Night Drive","negative_tags":"metal"}`
		rec := doRequest(h, http.MethodPost, "/api/custom_generate", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
		}
		if !engine.req.Custom || engine.req.Tags != "synthwave" || engine.req.Title != "Night Drive" || engine.req.NegativeTags != "metal" {
			t.Errorf("request mapped wrong: %+v", engine.req)
		}
	})

	t.Run("abandoned requests do not cancel the attempt", func(t *testing.T) {
		h := newTestHandler(t, upstream(`{"clips":[]}`))
		engine := &fakeEngine{clips: []models.Clip{{ID: "a", Status: models.StatusComplete}}}
		h.newEngine = func(session services.Session, solver captcha.Solver) Generator { return engine }

		// Warm the registry so the second request needs no upstream call.
		doRequest(h, http.MethodPost, "/api/generate", `{"prompt":"warm up"}`)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(`{"prompt":"still running"}`)).WithContext(ctx)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
		}
		if engine.ctxErr != nil {
			t.Errorf("engine saw a canceled context: %v", engine.ctxErr)
		}
	})

	t.Run("missing prompt is rejected before any session work", func(t *testing.T) {
		h := newTestHandler(t, upstream(`{"clips":[]}`))
		engine := &fakeEngine{}
		h.newEngine = func(session services.Session, solver captcha.Solver) Generator { return engine }

		rec := doRequest(h, http.MethodPost, "/api/generate", `{}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status %d, want 400", rec.Code)
		}
		if engine.calls != 0 {
			t.Error("engine invoked for an invalid request")
		}
	})

	t.Run("auth failure maps to 401", func(t *testing.T) {
		h := newTestHandler(t, upstream(`{"clips":[]}`))
		h.cfg.Credentials.Cookie = "ajs_anonymous_id=no-client-token"

		rec := doRequest(h, http.MethodPost, "/api/generate", `{"prompt":"x"}`)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status %d, want 401: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("engine failures map to 500", func(t *testing.T) {
		h := newTestHandler(t, upstream(`{"clips":[]}`))
		h.newEngine = func(session services.Session, solver captcha.Solver) Generator {
			return &fakeEngine{err: fmt.Errorf("upstream exploded")}
		}

		rec := doRequest(h, http.MethodPost, "/api/generate", `{"prompt":"x"}`)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status %d, want 500", rec.Code)
		}
	})

	t.Run("results are persisted when a store is wired", func(t *testing.T) {
		h := newTestHandler(t, upstream(`{"clips":[]}`))
		store := &memoryStore{}
		h.store = store
		h.newEngine = func(session services.Session, solver captcha.Solver) Generator {
			return &fakeEngine{clips: []models.Clip{{ID: "a"}, {ID: "b"}}}
		}

		rec := doRequest(h, http.MethodPost, "/api/generate", `{"prompt":"x"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
		}
		if len(store.saved) != 2 {
			t.Errorf("store saw %d clips, want 2", len(store.saved))
		}
	})
}

func TestPassthroughEndpoints(t *testing.T) {
	feed := `{"clips":[{"id":"a","status":"complete"},{"id":"b","status":"streaming"}]}`

	t.Run("get requires ids", func(t *testing.T) {
		h := newTestHandler(t, upstream(feed))
		rec := doRequest(h, http.MethodGet, "/api/get", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status %d, want 400", rec.Code)
		}
	})

	t.Run("get proxies the feed", func(t *testing.T) {
		h := newTestHandler(t, upstream(feed))
		rec := doRequest(h, http.MethodGet, "/api/get?ids=a,b", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
		}
		var clips []models.Clip
		if err := json.Unmarshal(rec.Body.Bytes(), &clips); err != nil {
			t.Fatalf("bad JSON: %v", err)
		}
		if len(clips) != 2 || clips[0].ID != "a" {
			t.Errorf("unexpected clips: %+v", clips)
		}
	})

	t.Run("get_limit returns credits", func(t *testing.T) {
		h := newTestHandler(t, upstream(feed))
		rec := doRequest(h, http.MethodGet, "/api/get_limit", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
		}
		var credits models.Credits
		if err := json.Unmarshal(rec.Body.Bytes(), &credits); err != nil {
			t.Fatalf("bad JSON: %v", err)
		}
		if credits.CreditsLeft != 42 || credits.MonthlyLimit != 2500 {
			t.Errorf("unexpected credits: %+v", credits)
		}
	})

	t.Run("clip requires an id", func(t *testing.T) {
		h := newTestHandler(t, upstream(feed))
		rec := doRequest(h, http.MethodGet, "/api/clip", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status %d, want 400", rec.Code)
		}
	})

	t.Run("clip fetches one clip", func(t *testing.T) {
		h := newTestHandler(t, upstream(feed))
		rec := doRequest(h, http.MethodGet, "/api/clip?id=clip-1", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
		}
		var clip models.Clip
		if err := json.Unmarshal(rec.Body.Bytes(), &clip); err != nil {
			t.Fatalf("bad JSON: %v", err)
		}
		if clip.ID != "clip-1" || clip.Title != "One" {
			t.Errorf("unexpected clip: %+v", clip)
		}
	})

	t.Run("concat requires a clip id", func(t *testing.T) {
		h := newTestHandler(t, upstream(feed))
		rec := doRequest(h, http.MethodPost, "/api/concat", `{}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status %d, want 400", rec.Code)
		}
	})

	t.Run("concat returns the whole song", func(t *testing.T) {
		h := newTestHandler(t, upstream(feed))
		rec := doRequest(h, http.MethodPost, "/api/concat", `{"clip_id":"clip-1"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
		}
		var clip models.Clip
		if err := json.Unmarshal(rec.Body.Bytes(), &clip); err != nil {
			t.Fatalf("bad JSON: %v", err)
		}
		if clip.ID != "whole-1" {
			t.Errorf("unexpected clip: %+v", clip)
		}
	})

	t.Run("aligned_lyrics requires an id", func(t *testing.T) {
		h := newTestHandler(t, upstream(feed))
		rec := doRequest(h, http.MethodGet, "/api/aligned_lyrics", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status %d, want 400", rec.Code)
		}
	})

	t.Run("aligned_lyrics returns the word timings", func(t *testing.T) {
		h := newTestHandler(t, upstream(feed))
		rec := doRequest(h, http.MethodGet, "/api/aligned_lyrics?id=clip-1", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
		}
		var words []models.AlignedWord
		if err := json.Unmarshal(rec.Body.Bytes(), &words); err != nil {
			t.Fatalf("bad JSON: %v", err)
		}
		if len(words) != 1 || words[0].Word != "la" || words[0].StartS != 0.5 {
			t.Errorf("unexpected words: %+v", words)
		}
	})

	t.Run("stems requires a clip id", func(t *testing.T) {
		h := newTestHandler(t, upstream(feed))
		rec := doRequest(h, http.MethodPost, "/api/stems", `{}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status %d, want 400", rec.Code)
		}
	})

	t.Run("stems returns the separated tracks", func(t *testing.T) {
		h := newTestHandler(t, upstream(feed))
		rec := doRequest(h, http.MethodPost, "/api/stems", `{"clip_id":"clip-1"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
		}
		var clips []models.Clip
		if err := json.Unmarshal(rec.Body.Bytes(), &clips); err != nil {
			t.Fatalf("bad JSON: %v", err)
		}
		if len(clips) != 2 || clips[0].ID != "stem-vocals" {
			t.Errorf("unexpected clips: %+v", clips)
		}
	})

	t.Run("persona requires an id", func(t *testing.T) {
		h := newTestHandler(t, upstream(feed))
		rec := doRequest(h, http.MethodGet, "/api/persona", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status %d, want 400", rec.Code)
		}
	})

	t.Run("persona rejects a bad page", func(t *testing.T) {
		h := newTestHandler(t, upstream(feed))
		rec := doRequest(h, http.MethodGet, "/api/persona?id=per-1&page=zero", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status %d, want 400", rec.Code)
		}
	})

	t.Run("persona returns the profile page", func(t *testing.T) {
		h := newTestHandler(t, upstream(feed))
		rec := doRequest(h, http.MethodGet, "/api/persona?id=per-1&page=2", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
		}
		var persona models.Persona
		if err := json.Unmarshal(rec.Body.Bytes(), &persona); err != nil {
			t.Fatalf("bad JSON: %v", err)
		}
		if persona.Name != "Night Voice" || persona.CurrentPage != 2 || len(persona.Clips) != 1 {
			t.Errorf("unexpected persona: %+v", persona)
		}
	})

	t.Run("unknown path is 404", func(t *testing.T) {
		h := newTestHandler(t, upstream(feed))
		rec := doRequest(h, http.MethodGet, "/api/nope", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status %d, want 404", rec.Code)
		}
	})
}

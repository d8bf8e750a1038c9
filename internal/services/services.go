// package services implements the authenticated Suno HTTP surface
//
// SunoClient owns one credential set (cookie jar + rotating Clerk JWT) and
// exposes the studio-api endpoints; Registry caches one initialized client
// per credential fingerprint.
package services

import (
	"context"

	"github.com/yanani99/reso/internal/models"
)

// Session is the authenticated request surface the orchestration layer
// drives. Implemented by [SunoClient]; test doubles stand in elsewhere.
type Session interface {
	// KeepAlive exchanges the session identifier for a fresh bearer token.
	// Required before any privileged call. When wait is true the call blocks
	// through a short propagation grace period after renewal.
	KeepAlive(ctx context.Context, wait bool) error

	// CaptchaRequired asks the service whether generation currently demands
	// a solved visual challenge.
	CaptchaRequired(ctx context.Context) (bool, error)

	// StartGeneration submits a generation request. token carries the
	// capability value produced by challenge solving; empty means none was
	// required.
	StartGeneration(ctx context.Context, req models.GenerationRequest, token string) ([]models.Clip, error)

	// AdoptToken replaces the session's bearer token with one observed more
	// recently, typically sniffed from the browser's own traffic after a
	// long challenge solve. Empty tokens are ignored.
	AdoptToken(token string)

	// Feed retrieves the current status of the given clips.
	Feed(ctx context.Context, ids []string) ([]models.Clip, error)

	// Snapshot exposes the session state a browser context is seeded with.
	Snapshot() SessionSnapshot
}

// SessionSnapshot is the read-only session state handed to the browser
// automation layer: cookie pairs, the current bearer token, and the user
// agent the HTTP client presents.
type SessionSnapshot struct {
	Cookies   map[string]string
	Token     string
	UserAgent string
}

// package tasks orchestrates generation attempts against the Suno service.
//
// The core abstraction is GenerationEngine, which sequences session upkeep,
// pre-flight verification checks, browser-assisted challenge solving, and
// result polling. Operations emit progress updates via channels for
// non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/yanani99/reso/internal/browser"
	"github.com/yanani99/reso/internal/captcha"
	"github.com/yanani99/reso/internal/models"
	"github.com/yanani99/reso/internal/services"
	"github.com/yanani99/reso/internal/shared"
)

// GenerationResult contains all data from one generation attempt.
type GenerationResult struct {
	Clips       []models.Clip // Clips in their final observed state
	FromBrowser bool          // Result was produced by the browser itself
	Partial     bool          // Polling window closed before all clips finished
}

// Driver is the browser automation capability the engine depends on.
// Abstracted for testing without a real browser.
type Driver interface {
	ObtainToken(ctx context.Context, snap services.SessionSnapshot, prompt string, solver captcha.Solver) (*browser.Capture, error)
}

// GenerationEngine sequences a full generation attempt.
type GenerationEngine struct {
	session services.Session
	driver  Driver
	solver  captcha.Solver
	sleeper shared.Sleeper
	backoff shared.Backoff
	window  time.Duration
	logger  *log.Logger
	now     func() time.Time // injectable clock for deadline tests
}

// NewGenerationEngine creates an engine with the default polling cadence.
func NewGenerationEngine(session services.Session, driver Driver, solver captcha.Solver, logger *log.Logger) *GenerationEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &GenerationEngine{
		session: session,
		driver:  driver,
		solver:  solver,
		sleeper: shared.TimerSleeper{},
		backoff: shared.Backoff{Base: 3 * time.Second, Jitter: 3 * time.Second},
		window:  100 * time.Second,
		logger:  logger,
		now:     time.Now,
	}
}

// SetPollWindow overrides the overall polling deadline.
func (e *GenerationEngine) SetPollWindow(d time.Duration) {
	if d > 0 {
		e.window = d
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *GenerationEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// Generate runs one full generation attempt: refresh the session, check
// whether verification is required, solve it through the browser when it is,
// submit the request, and optionally poll until the clips settle.
//
// When the browser run already produced finished clips, the HTTP submission
// is skipped entirely and those clips are the result.
func (e *GenerationEngine) Generate(ctx context.Context, progress chan<- ProgressUpdate, req models.GenerationRequest) (*GenerationResult, error) {
	if e.session == nil {
		return nil, fmt.Errorf("%w: session not initialized", shared.ErrNoSession)
	}

	e.sendProgress(progress, keepAliveUpdate())
	if err := e.session.KeepAlive(ctx, false); err != nil {
		return nil, err
	}

	e.sendProgress(progress, captchaCheckUpdate())
	required, err := e.session.CaptchaRequired(ctx)
	if err != nil {
		return nil, err
	}

	var token string
	if required {
		if e.driver == nil || e.solver == nil {
			return nil, fmt.Errorf("%w: verification required but no browser driver configured", shared.ErrSolverFailed)
		}
		e.logger.Info("verification required, starting browser")
		e.sendProgress(progress, browserSolveUpdate())

		capture, err := e.driver.ObtainToken(ctx, e.session.Snapshot(), browserPrompt(req), e.solver)
		if err != nil {
			return nil, err
		}
		if capture.Bearer != "" {
			// The solve can take minutes; the bearer sniffed from the
			// browser's own request is fresher than ours.
			e.session.AdoptToken(capture.Bearer)
		}
		if len(capture.Clips) > 0 {
			e.logger.Info("browser produced the result directly", "clips", len(capture.Clips))
			return e.settle(ctx, progress, capture.Clips, true, req.Wait)
		}
		token = capture.Token
		if token == "" {
			e.logger.Warn("browser run ended without a token, submitting without one")
		}
	}

	e.sendProgress(progress, submitUpdate())
	clips, err := e.session.StartGeneration(ctx, req, token)
	if err != nil {
		return nil, err
	}
	e.logger.Info("generation submitted", "clips", len(clips))

	return e.settle(ctx, progress, clips, false, req.Wait)
}

// settle optionally polls the clips to completion and assembles the result.
func (e *GenerationEngine) settle(ctx context.Context, progress chan<- ProgressUpdate, clips []models.Clip, fromBrowser, wait bool) (*GenerationResult, error) {
	result := &GenerationResult{Clips: clips, FromBrowser: fromBrowser}
	if !wait || models.AllFinished(clips) {
		return result, nil
	}

	polled, partial, err := e.poll(ctx, progress, models.ClipIDs(clips))
	if err != nil {
		return nil, err
	}
	result.Clips = polled
	result.Partial = partial
	return result, nil
}

// browserPrompt picks the text the browser types into the composer. The
// composer only accepts a plain description, so custom-mode requests fall
// back to their style tags.
func browserPrompt(req models.GenerationRequest) string {
	if !req.Custom {
		return req.Prompt
	}
	if req.Tags != "" {
		return req.Tags
	}
	return req.Prompt
}

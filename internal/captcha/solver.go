package captcha

import (
	"context"
	"fmt"

	"github.com/yanani99/reso/internal/shared"
)

// Solver turns a challenge into click coordinates.
//
// BridgeSolver suspends on a human; TwoCaptchaSolver calls a paid service.
// The browser controller does not care which.
type Solver interface {
	Solve(ctx context.Context, ch Challenge) ([]Point, error)
}

// BridgeSolver publishes challenges on a Bridge and waits for an external
// actor to resolve them. The wait has no internal timeout; the enclosing
// automation flow bounds it through ctx.
type BridgeSolver struct {
	bridge *Bridge
	key    string
}

// NewBridgeSolver creates a solver publishing under the given attempt key.
func NewBridgeSolver(bridge *Bridge, key string) *BridgeSolver {
	return &BridgeSolver{bridge: bridge, key: key}
}

// Solve publishes the challenge and blocks until coordinates arrive or ctx
// is cancelled. Cancellation discards the pending record so stale solver
// input cannot leak into a later attempt.
func (s *BridgeSolver) Solve(ctx context.Context, ch Challenge) ([]Point, error) {
	coords := s.bridge.Publish(s.key, ch)
	select {
	case <-ctx.Done():
		s.bridge.Discard(s.key)
		return nil, fmt.Errorf("%w: challenge abandoned: %v", shared.ErrAutomation, ctx.Err())
	case pts := <-coords:
		return pts, nil
	}
}

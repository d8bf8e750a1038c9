package tasks

import (
	"context"
	"time"

	"github.com/yanani99/reso/internal/models"
)

// Poll watches the given clips until every one of them finished or failed,
// or the polling window closes.
//
// Each round refreshes the session token first so long generations never
// outlive the bearer JWT. Transient feed errors are tolerated: the round is
// skipped and the window keeps running. When the window closes the last
// observed snapshot is returned with partial set, so callers still see
// streaming audio URLs for clips that never reached a terminal state.
func (e *GenerationEngine) Poll(ctx context.Context, progress chan<- ProgressUpdate, ids []string) ([]models.Clip, bool, error) {
	if len(ids) == 0 {
		return nil, false, nil
	}

	now := e.now
	if now == nil {
		now = time.Now
	}
	deadline := now().Add(e.window)

	var last []models.Clip
	for round := 1; ; round++ {
		if err := e.session.KeepAlive(ctx, true); err != nil {
			return nil, false, err
		}

		clips, err := e.session.Feed(ctx, ids)
		if err != nil {
			e.logger.Warn("feed poll failed", "round", round, "err", err)
		} else {
			last = clips
			e.sendProgress(progress, pollUpdate(round, clips))
			if models.AllFinished(clips) {
				e.logger.Info("all clips finished", "rounds", round)
				return clips, false, nil
			}
			if models.AllFailed(clips) {
				e.logger.Warn("all clips failed", "rounds", round)
				return clips, false, nil
			}
		}

		if !now().Before(deadline) {
			e.logger.Warn("polling window closed, returning last snapshot", "rounds", round)
			return last, true, nil
		}

		if err := e.backoff.Wait(ctx, e.sleeper); err != nil {
			return nil, false, err
		}
	}
}

// poll is the internal entry used by Generate.
func (e *GenerationEngine) poll(ctx context.Context, progress chan<- ProgressUpdate, ids []string) ([]models.Clip, bool, error) {
	return e.Poll(ctx, progress, ids)
}

package tasks

import (
	"fmt"

	"github.com/yanani99/reso/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	KeepAlive Phase = iota
	CaptchaCheck
	BrowserSolve
	Submit
	PollClips
)

func (p Phase) String() string {
	switch p {
	case KeepAlive:
		return "keep_alive"
	case CaptchaCheck:
		return "captcha_check"
	case BrowserSolve:
		return "browser_solve"
	case Submit:
		return "submit"
	case PollClips:
		return "poll_clips"
	default:
		return ""
	}
}

func keepAliveUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   KeepAlive,
		Step:    1,
		Total:   1,
		Message: "Refreshing session token...",
	}
}

func captchaCheckUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   CaptchaCheck,
		Step:    1,
		Total:   1,
		Message: "Checking whether verification is required...",
	}
}

func browserSolveUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   BrowserSolve,
		Step:    1,
		Total:   1,
		Message: "Verification required, solving in browser...",
	}
}

func submitUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   Submit,
		Step:    1,
		Total:   1,
		Message: "Submitting generation request...",
	}
}

func pollUpdate(round int, clips []models.Clip) ProgressUpdate {
	finished := 0
	for _, c := range clips {
		if c.Finished() {
			finished++
		}
	}
	return ProgressUpdate{
		Phase:   PollClips,
		Step:    finished,
		Total:   len(clips),
		Message: fmt.Sprintf("[round %d] %d/%d clips finished", round, finished, len(clips)),
		Data:    clips,
	}
}

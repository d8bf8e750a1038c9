// package models defines the data model for the Suno generation engine
package models

// Clip statuses reported by the feed endpoint. Transitions are monotonic
// toward complete or error; streaming already carries a playable URL.
const (
	StatusSubmitted = "submitted"
	StatusQueued    = "queued"
	StatusStreaming = "streaming"
	StatusComplete  = "complete"
	StatusError     = "error"
)

// Clip represents one tracked unit of generation work.
//
// Field names mirror the studio-api feed payload so records survive a round
// trip through JSON untouched.
type Clip struct {
	ID           string `json:"id"`
	Title        string `json:"title,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
	Lyric        string `json:"lyric,omitempty"`
	AudioURL     string `json:"audio_url,omitempty"`
	VideoURL     string `json:"video_url,omitempty"`
	CreatedAt    string `json:"created_at"`
	ModelName    string `json:"model_name"`
	Status       string `json:"status"`
	Prompt       string `json:"prompt,omitempty"`
	GPTPrompt    string `json:"gpt_description_prompt,omitempty"`
	Type         string `json:"type,omitempty"`
	Tags         string `json:"tags,omitempty"`
	NegativeTags string `json:"negative_tags,omitempty"`
	Duration     string `json:"duration,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Finished reports whether the clip reached a state with playable output.
func (c Clip) Finished() bool {
	return c.Status == StatusComplete || c.Status == StatusStreaming
}

// Failed reports whether the clip terminally failed.
func (c Clip) Failed() bool {
	return c.Status == StatusError
}

// AllFinished reports whether every clip reached complete or streaming.
// An empty slice is not considered finished.
func AllFinished(clips []Clip) bool {
	if len(clips) == 0 {
		return false
	}
	for _, c := range clips {
		if !c.Finished() {
			return false
		}
	}
	return true
}

// AllFailed reports whether every clip reached error.
// An empty slice is not considered failed.
func AllFailed(clips []Clip) bool {
	if len(clips) == 0 {
		return false
	}
	for _, c := range clips {
		if !c.Failed() {
			return false
		}
	}
	return true
}

// ClipIDs extracts the identifiers of the given clips, preserving order.
func ClipIDs(clips []Clip) []string {
	ids := make([]string, len(clips))
	for i, c := range clips {
		ids[i] = c.ID
	}
	return ids
}

// GenerationRequest is one user-submitted composition request.
// Immutable after creation.
type GenerationRequest struct {
	Prompt       string `json:"prompt"`
	Tags         string `json:"tags,omitempty"`
	Title        string `json:"title,omitempty"`
	NegativeTags string `json:"negative_tags,omitempty"`
	Instrumental bool   `json:"make_instrumental,omitempty"`
	Model        string `json:"model,omitempty"`
	Wait         bool   `json:"wait_audio,omitempty"`

	// Custom selects the tags/title form over the description form.
	Custom bool `json:"-"`

	// Extension of an existing clip; Task is "extend" when set.
	Task           string  `json:"task,omitempty"`
	ContinueClipID string  `json:"continue_clip_id,omitempty"`
	ContinueAt     float64 `json:"continue_at,omitempty"`
}

// LyricsResult is the outcome of an asynchronous lyrics generation.
type LyricsResult struct {
	ID     string `json:"id"`
	Title  string `json:"title,omitempty"`
	Text   string `json:"text,omitempty"`
	Status string `json:"status"`
}

// AlignedWord is one word of a clip's lyric with its timing window.
type AlignedWord struct {
	Word    string  `json:"word"`
	StartS  float64 `json:"start_s"`
	EndS    float64 `json:"end_s"`
	Success bool    `json:"success"`
	PAlign  float64 `json:"p_align"`
}

// Persona is a reusable voice and style profile derived from a root clip.
type Persona struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	RootClipID  string `json:"root_clip_id,omitempty"`
	IsPublic    bool   `json:"is_public"`
	ClipCount   int    `json:"clip_count"`
	Clips       []Clip `json:"clips,omitempty"`

	TotalResults int `json:"total_results"`
	CurrentPage  int `json:"current_page"`
}

// Credits summarises the account's generation allowance.
type Credits struct {
	CreditsLeft  int    `json:"credits_left"`
	Period       string `json:"period"`
	MonthlyLimit int    `json:"monthly_limit"`
	MonthlyUsage int    `json:"monthly_usage"`
}

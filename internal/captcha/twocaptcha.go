package captcha

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/yanani99/reso/internal/shared"
)

const defaultTwoCaptchaURL = "https://api.2captcha.com"

// TwoCaptchaSolver solves coordinate challenges through the 2Captcha service,
// as an automatic alternative to the human bridge.
type TwoCaptchaSolver struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	backoff    shared.Backoff
	sleeper    shared.Sleeper
	maxPolls   int
}

// NewTwoCaptchaSolver creates a solver for the given API key.
// A nil client falls back to [http.DefaultClient].
func NewTwoCaptchaSolver(apiKey string, client *http.Client) *TwoCaptchaSolver {
	if client == nil {
		client = http.DefaultClient
	}
	return &TwoCaptchaSolver{
		apiKey:     apiKey,
		baseURL:    defaultTwoCaptchaURL,
		httpClient: client,
		backoff:    shared.Backoff{Base: 5 * time.Second},
		sleeper:    shared.TimerSleeper{},
		maxPolls:   24,
	}
}

type twoCaptchaTask struct {
	Type    string `json:"type"`
	Body    string `json:"body"`
	Comment string `json:"comment,omitempty"`
}

type createTaskRequest struct {
	ClientKey string         `json:"clientKey"`
	Task      twoCaptchaTask `json:"task"`
}

type createTaskResponse struct {
	ErrorID          int    `json:"errorId"`
	ErrorDescription string `json:"errorDescription,omitempty"`
	TaskID           int64  `json:"taskId"`
}

type taskResultRequest struct {
	ClientKey string `json:"clientKey"`
	TaskID    int64  `json:"taskId"`
}

type taskResultResponse struct {
	ErrorID          int    `json:"errorId"`
	ErrorDescription string `json:"errorDescription,omitempty"`
	Status           string `json:"status"`
	Solution         struct {
		Coordinates []Point `json:"coordinates"`
	} `json:"solution"`
}

// Solve submits the challenge as a CoordinatesTask and polls until the
// service reports a solution.
func (s *TwoCaptchaSolver) Solve(ctx context.Context, ch Challenge) ([]Point, error) {
	taskID, err := s.createTask(ctx, ch)
	if err != nil {
		return nil, err
	}

	for i := 0; i < s.maxPolls; i++ {
		if err := s.backoff.Wait(ctx, s.sleeper); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrSolverFailed, err)
		}

		result, err := s.taskResult(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if result.Status == "ready" {
			if len(result.Solution.Coordinates) == 0 {
				return nil, fmt.Errorf("%w: solution carried no coordinates", shared.ErrSolverFailed)
			}
			return result.Solution.Coordinates, nil
		}
	}

	return nil, fmt.Errorf("%w: 2captcha task %d never became ready", shared.ErrSolverFailed, taskID)
}

func (s *TwoCaptchaSolver) createTask(ctx context.Context, ch Challenge) (int64, error) {
	var resp createTaskResponse
	req := createTaskRequest{
		ClientKey: s.apiKey,
		Task: twoCaptchaTask{
			Type:    "CoordinatesTask",
			Body:    base64.StdEncoding.EncodeToString(ch.Image),
			Comment: ch.Prompt,
		},
	}
	if err := s.post(ctx, "/createTask", req, &resp); err != nil {
		return 0, err
	}
	if resp.ErrorID != 0 {
		return 0, fmt.Errorf("%w: %s", shared.ErrSolverFailed, resp.ErrorDescription)
	}
	return resp.TaskID, nil
}

func (s *TwoCaptchaSolver) taskResult(ctx context.Context, taskID int64) (*taskResultResponse, error) {
	var resp taskResultResponse
	if err := s.post(ctx, "/getTaskResult", taskResultRequest{ClientKey: s.apiKey, TaskID: taskID}, &resp); err != nil {
		return nil, err
	}
	if resp.ErrorID != 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrSolverFailed, resp.ErrorDescription)
	}
	return &resp, nil
}

func (s *TwoCaptchaSolver) post(ctx context.Context, path string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrSolverFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrSolverFailed, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

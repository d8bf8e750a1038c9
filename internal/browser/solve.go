package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/yanani99/reso/internal/captcha"
	"github.com/yanani99/reso/internal/services"
	"github.com/yanani99/reso/internal/shared"
)

const (
	navigationTimeout    = 60 * time.Second
	settleTimeout        = 15 * time.Second
	headingTimeout       = 30 * time.Second
	challengeTimeout     = 60 * time.Second
	promptTimeout        = 30 * time.Second
	screenshotTimeout    = 5 * time.Second
	submitSettle         = 3 * time.Second
	nextChallengeTimeout = 15 * time.Second
	resultWindow         = 30 * time.Second

	defaultPrompt = "A catchy upbeat song"
)

// captureFuture is a single-assignment slot for the attempt outcome. Both
// network listeners race to resolve it; the first assignment wins.
type captureFuture struct {
	once sync.Once
	ch   chan *Capture
}

func newCaptureFuture() *captureFuture {
	return &captureFuture{ch: make(chan *Capture, 1)}
}

func (f *captureFuture) resolve(c *Capture) {
	f.once.Do(func() { f.ch <- c })
}

// ObtainToken drives a browser context through the composition flow until a
// capability token or a finished result is captured.
//
// The page's own network traffic is the source of truth: the outgoing
// generate request carries the token, the incoming generate response carries
// finished clips when the service completed generation without further
// verification. When no challenge surface appears within the challenge
// window, the attempt proceeds straight to result capture. An empty Capture
// means the window closed with neither listener firing; the caller treats
// that as "the browser already produced the result".
func (c *Controller) ObtainToken(ctx context.Context, snap services.SessionSnapshot, prompt string, solver captcha.Solver) (*Capture, error) {
	if prompt == "" {
		prompt = defaultPrompt
	}

	sess, err := c.launch(snap)
	if err != nil {
		return nil, err
	}
	defer sess.close()

	page := sess.page
	if _, err := page.Goto(createPageURL, playwright.PageGotoOptions{
		Referer:   playwright.String("https://www.google.com/"),
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(ms(navigationTimeout)),
	}); err != nil {
		return nil, fmt.Errorf("%w: navigation failed: %v", shared.ErrAutomation, err)
	}
	c.logger.Info("composition page loaded", "url", page.URL())

	// Network idle rarely fires on this SPA; continue regardless.
	_ = page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(ms(settleTimeout)),
	})

	if !strings.Contains(page.URL(), "suno.com") {
		return nil, fmt.Errorf("%w: landed on %s, session cookies may be invalid", shared.ErrRedirected, page.URL())
	}

	// A first-visit popup sometimes covers the composer.
	if err := page.GetByLabel("Close").Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(2000),
	}); err == nil {
		c.logger.Info("closed a popup")
	}

	if err := c.compose(page, prompt); err != nil {
		return nil, err
	}

	future := newCaptureFuture()
	c.listen(page, future)

	challenge := page.FrameLocator(captchaFrameSelector).Locator(".challenge-container")
	if err := challenge.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(ms(challengeTimeout)),
	}); err != nil {
		if !isBenignClosed(err) {
			c.logger.Info("no challenge surface appeared, waiting for result")
		}
	} else {
		if err := c.solveLoop(ctx, page, challenge, solver); err != nil {
			return nil, err
		}
	}

	c.logger.Info("waiting for generate traffic", "window", resultWindow)
	select {
	case capture := <-future.ch:
		return capture, nil
	case <-time.After(resultWindow):
		// Completion without a captured token is the expected terminal
		// condition for the browser-generated path.
		c.logger.Info("capture window closed without token")
		return &Capture{}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// compose types the song description and invokes the Create action.
//
// The last matching enabled control wins: the page renders duplicate Create
// buttons with the true action control appended last.
func (c *Controller) compose(page playwright.Page, prompt string) error {
	heading := page.GetByText("Song Description", playwright.PageGetByTextOptions{
		Exact: playwright.Bool(true),
	}).First()
	if err := heading.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(ms(headingTimeout)),
	}); err != nil {
		return fmt.Errorf("%w: could not locate the song description field: %v", shared.ErrAutomation, err)
	}

	box, err := heading.BoundingBox()
	if err != nil || box == nil {
		return fmt.Errorf("%w: song description field has no geometry", shared.ErrAutomation)
	}

	// The editable area sits just below the heading.
	if err := c.clicker.ClickPage(page, box.X+box.Width/2, box.Y+box.Height+30); err != nil {
		return fmt.Errorf("%w: failed to focus the description field: %v", shared.ErrAutomation, err)
	}
	page.WaitForTimeout(500)

	if err := page.Keyboard().Type(prompt, playwright.KeyboardTypeOptions{
		Delay: playwright.Float(50),
	}); err != nil {
		return fmt.Errorf("%w: failed to type the prompt: %v", shared.ErrAutomation, err)
	}
	page.WaitForTimeout(2000)

	button := page.Locator(createButtonSelector).Last()
	if disabled, err := button.IsDisabled(); err == nil && disabled {
		c.logger.Warn("create control reports disabled, clicking anyway")
	}
	if err := c.clicker.ClickLocator(button, nil); err != nil {
		return fmt.Errorf("%w: failed to invoke the create action: %v", shared.ErrAutomation, err)
	}
	c.logger.Info("create action invoked")
	page.WaitForTimeout(3000)
	return nil
}

// listen installs the two network observers that can resolve the attempt:
// the outgoing generate request (capability token) and the incoming
// generate response (browser-produced clips).
func (c *Controller) listen(page playwright.Page, future *captureFuture) {
	page.OnRequest(func(request playwright.Request) {
		if request.Method() != "POST" || !strings.Contains(request.URL(), "/api/generate") {
			return
		}
		body, err := request.PostData()
		if err != nil {
			return
		}
		var payload struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal([]byte(body), &payload); err != nil || payload.Token == "" {
			return
		}

		capture := &Capture{Token: payload.Token}
		if auth, err := request.HeaderValue("authorization"); err == nil {
			capture.Bearer = strings.TrimPrefix(auth, "Bearer ")
		}
		c.logger.Info("captured challenge token from browser request")
		future.resolve(capture)
	})

	page.OnResponse(func(response playwright.Response) {
		if response.Request().Method() != "POST" ||
			!strings.Contains(response.URL(), "/api/generate") ||
			response.Status() != 200 {
			return
		}
		body, err := response.Body()
		if err != nil {
			return
		}
		clips, ok := services.ParseGenerateResponse(body)
		if !ok {
			return
		}
		c.logger.Info("captured browser-generated clips", "count", len(clips))
		future.resolve(&Capture{Clips: clips})
	})
}

// solveLoop repeatedly screenshots the challenge surface, obtains a
// solution, and replays it, until no further challenge appears.
func (c *Controller) solveLoop(ctx context.Context, page playwright.Page, challenge playwright.Locator, solver captcha.Solver) error {
	promptText := challenge.Locator(".prompt-text").First()
	if err := promptText.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(ms(promptTimeout)),
	}); err != nil {
		if isBenignClosed(err) {
			return nil
		}
		return fmt.Errorf("%w: challenge prompt never rendered: %v", shared.ErrAutomation, err)
	}

	for {
		instruction, err := promptText.InnerText()
		if err != nil {
			if isBenignClosed(err) {
				return nil
			}
			return fmt.Errorf("%w: failed to read the challenge prompt: %v", shared.ErrAutomation, err)
		}
		c.logger.Info("challenge prompt", "text", instruction)

		shot, err := challenge.Screenshot(playwright.LocatorScreenshotOptions{
			Timeout: playwright.Float(ms(screenshotTimeout)),
		})
		if err != nil {
			if isBenignClosed(err) {
				return nil
			}
			return fmt.Errorf("%w: failed to screenshot the challenge: %v", shared.ErrAutomation, err)
		}

		coords, err := solver.Solve(ctx, captcha.Challenge{Image: shot, Prompt: instruction})
		if err != nil {
			return err
		}
		c.logger.Info("received solution", "points", len(coords))

		for _, pt := range coords {
			if err := c.clicker.ClickLocator(challenge, &playwright.Position{X: pt.X, Y: pt.Y}); err != nil && !isBenignClosed(err) {
				return fmt.Errorf("%w: failed to replay click: %v", shared.ErrAutomation, err)
			}
		}

		c.submit(page, challenge)
		page.WaitForTimeout(float64(submitSettle.Milliseconds()))

		if err := promptText.WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: playwright.Float(ms(nextChallengeTimeout)),
		}); err != nil {
			// No further challenge: solved.
			c.logger.Info("no new challenge, solving loop done")
			return nil
		}
		c.logger.Info("new challenge appeared, continuing")
	}
}

// submit confirms the answer. When the submit control sits outside the
// viewport the create button re-triggers verification instead.
func (c *Controller) submit(page playwright.Page, challenge playwright.Locator) {
	submitButton := page.FrameLocator(captchaFrameSelector).Locator(".button-submit")
	if err := c.clicker.ClickLocator(submitButton, nil); err != nil {
		if strings.Contains(err.Error(), "viewport") {
			_ = c.clicker.ClickLocator(page.Locator(createButtonSelector).Last(), nil)
		} else if !isBenignClosed(err) {
			c.logger.Warn("submit click failed", "err", err)
		}
	}
}

func ms(d time.Duration) float64 {
	return float64(d.Milliseconds())
}

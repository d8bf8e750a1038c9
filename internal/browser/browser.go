// package browser drives a real browser through the Suno composition flow to
// resolve visual challenges.
//
// The controller seeds an isolated browser context with the session's
// cookies, triggers generation on the composition page, and listens to the
// page's own network traffic: either the outgoing generate request yields a
// capability token, or the incoming generate response yields finished clips.
package browser

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/playwright-community/playwright-go"
	"github.com/yanani99/reso/internal/models"
	"github.com/yanani99/reso/internal/services"
	"github.com/yanani99/reso/internal/shared"
)

const (
	createPageURL = "https://suno.com/create"
	cookieDomain  = ".suno.com"
)

// Config controls how the automation browser is launched.
type Config struct {
	Engine      string // chromium or firefox
	Headless    bool
	DisableGPU  bool
	GhostCursor bool
	Locale      string
}

// Capture is the outcome of one browser automation attempt.
//
// Exactly one of Token or Clips is set on the happy paths; both empty means
// the capture window closed without either listener firing, which the caller
// treats as "the browser already produced the result".
type Capture struct {
	// Token is the challenge capability value to attach to the HTTP
	// generation call.
	Token string
	// Bearer is a fresher session JWT observed on the browser's own
	// generate request, when one was seen.
	Bearer string
	// Clips is a finished result produced by the browser itself, bypassing
	// the HTTP generation call entirely.
	Clips []models.Clip
}

// Controller launches and drives automation browser contexts.
type Controller struct {
	cfg     Config
	clicker clicker
	logger  *log.Logger
}

// NewController creates a Controller for the given configuration.
// The pointer style (human-like path vs. direct dispatch) is fixed here.
func NewController(cfg Config, logger *log.Logger) *Controller {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	var c clicker = directClicker{}
	if cfg.GhostCursor {
		c = humanClicker{}
	}
	return &Controller{cfg: cfg, clicker: c, logger: logger}
}

// launchArgs builds the chromium command line for the given config.
func launchArgs(cfg Config) []string {
	args := []string{
		"--disable-blink-features=AutomationControlled",
		"--disable-web-security",
		"--no-sandbox",
		"--disable-dev-shm-usage",
		"--disable-features=site-per-process",
		"--disable-features=IsolateOrigins",
		"--disable-extensions",
		"--disable-infobars",
	}
	// GPU off is recommended inside containers.
	if cfg.DisableGPU {
		args = append(args,
			"--enable-unsafe-swiftshader",
			"--disable-gpu",
			"--disable-setuid-sandbox")
	}
	return args
}

// sessionCookies maps the session snapshot onto browser cookies for the
// product domain. The __session slot always carries the current bearer
// token, shadowing any stored cookie of that name.
func sessionCookies(snap services.SessionSnapshot) []playwright.OptionalCookie {
	cookies := make([]playwright.OptionalCookie, 0, len(snap.Cookies)+1)
	for name, value := range snap.Cookies {
		if name == "__session" {
			continue
		}
		cookies = append(cookies, playwright.OptionalCookie{
			Name:     name,
			Value:    value,
			Domain:   playwright.String(cookieDomain),
			Path:     playwright.String("/"),
			SameSite: playwright.SameSiteAttributeLax,
		})
	}
	cookies = append(cookies, playwright.OptionalCookie{
		Name:     "__session",
		Value:    snap.Token,
		Domain:   playwright.String(cookieDomain),
		Path:     playwright.String("/"),
		SameSite: playwright.SameSiteAttributeLax,
	})
	return cookies
}

// session bundles a launched browser context and its teardown.
type session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
}

func (s *session) close() {
	if s.browser != nil {
		s.browser.Close()
	}
	if s.pw != nil {
		s.pw.Stop()
	}
}

// launch starts the configured browser engine and opens a context seeded
// with the session cookies.
func (c *Controller) launch(snap services.SessionSnapshot) (*session, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to start playwright: %v", shared.ErrAutomation, err)
	}

	engine := pw.Chromium
	if c.cfg.Engine == "firefox" {
		engine = pw.Firefox
	}

	browser, err := engine.Launch(playwright.BrowserTypeLaunchOptions{
		Args:     launchArgs(c.cfg),
		Headless: playwright.Bool(c.cfg.Headless),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("%w: failed to launch %s: %v", shared.ErrAutomation, c.cfg.Engine, err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(snap.UserAgent),
	}
	if c.cfg.Locale != "" {
		contextOpts.Locale = playwright.String(c.cfg.Locale)
	}

	context, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("%w: failed to open context: %v", shared.ErrAutomation, err)
	}

	if err := context.AddCookies(sessionCookies(snap)); err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("%w: failed to seed cookies: %v", shared.ErrAutomation, err)
	}

	page, err := context.NewPage()
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("%w: failed to open page: %v", shared.ErrAutomation, err)
	}

	return &session{pw: pw, browser: browser, context: context, page: page}, nil
}

// isBenignClosed reports whether an automation error only says the browser
// side tore the target down first. Those race the controller's own teardown
// and are not failures.
func isBenignClosed(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"been closed",
		"target closed",
		"browser has been closed",
		"target page, context or browser has been closed",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// captchaFrameSelector locates the hCaptcha challenge iframe.
const captchaFrameSelector = `iframe[title*="hCaptcha"]`

// createButtonSelector matches every control carrying the Create action.
// Duplicates render with the true action control appended last.
const createButtonSelector = `button:has(svg):has(span:text-is("Create"))`

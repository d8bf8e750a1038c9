package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Session errors
	ErrAuthFailed     = fmt.Errorf("authentication failed")
	ErrSessionExpired = fmt.Errorf("session expired")
	ErrNoSession      = fmt.Errorf("no active session")
	ErrTimeout        = fmt.Errorf("operation timed out")

	// Browser automation errors
	ErrRedirected = fmt.Errorf("browser redirected off the expected domain")
	ErrAutomation = fmt.Errorf("browser automation failed")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrClipNotFound       = fmt.Errorf("clip not found")

	// Challenge errors
	ErrNoChallengePending = fmt.Errorf("no CAPTCHA pending")
	ErrSolverFailed       = fmt.Errorf("solver request failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)

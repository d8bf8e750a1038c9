// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/yanani99/reso/internal/models"
	"github.com/yanani99/reso/internal/services"
)

// StubSession is a configurable test double for [services.Session].
type StubSession struct {
	KeepAliveErr    error
	CaptchaNeeded   bool
	CaptchaErr      error
	StartClips      []models.Clip
	StartErr        error
	FeedClips       []models.Clip
	FeedErr         error
	SnapshotValue   services.SessionSnapshot
	KeepAliveCalls  int
	StartCalls      int
	FeedCalls       int
	LastToken       string
	AdoptedToken    string
}

func (s *StubSession) AdoptToken(token string) {
	s.AdoptedToken = token
}

func (s *StubSession) KeepAlive(ctx context.Context, wait bool) error {
	s.KeepAliveCalls++
	return s.KeepAliveErr
}

func (s *StubSession) CaptchaRequired(ctx context.Context) (bool, error) {
	return s.CaptchaNeeded, s.CaptchaErr
}

func (s *StubSession) StartGeneration(ctx context.Context, req models.GenerationRequest, token string) ([]models.Clip, error) {
	s.StartCalls++
	s.LastToken = token
	return s.StartClips, s.StartErr
}

func (s *StubSession) Feed(ctx context.Context, ids []string) ([]models.Clip, error) {
	s.FeedCalls++
	return s.FeedClips, s.FeedErr
}

func (s *StubSession) Snapshot() services.SessionSnapshot {
	return s.SnapshotValue
}

// NoSleep is a [shared.Sleeper] that records waits without spending time.
type NoSleep struct {
	Calls     int
	Durations []time.Duration
}

func (s *NoSleep) Sleep(ctx context.Context, d time.Duration) error {
	s.Calls++
	s.Durations = append(s.Durations, d)
	return ctx.Err()
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// RoundTripFunc routes each request through a function, for transports that
// answer differently per URL.
type RoundTripFunc func(*http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

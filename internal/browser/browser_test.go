package browser

import (
	"errors"
	"testing"
	"time"

	"github.com/yanani99/reso/internal/services"
)

func TestSessionCookies(t *testing.T) {
	snap := services.SessionSnapshot{
		Cookies: map[string]string{
			"__client":  "client-value",
			"__session": "stale-jwt",
			"ajs_anonymous_id": "device-1",
		},
		Token:     "fresh-jwt",
		UserAgent: "test-agent",
	}

	cookies := sessionCookies(snap)

	t.Run("replaces stored session cookie with current token", func(t *testing.T) {
		var sessions int
		for _, c := range cookies {
			if c.Name != "__session" {
				continue
			}
			sessions++
			if c.Value != "fresh-jwt" {
				t.Errorf("session cookie carries %q, want fresh-jwt", c.Value)
			}
		}
		if sessions != 1 {
			t.Errorf("got %d session cookies, want 1", sessions)
		}
	})

	t.Run("carries every other cookie on the product domain", func(t *testing.T) {
		if len(cookies) != 3 {
			t.Fatalf("got %d cookies, want 3", len(cookies))
		}
		for _, c := range cookies {
			if c.Domain == nil || *c.Domain != cookieDomain {
				t.Errorf("cookie %s domain = %v, want %s", c.Name, c.Domain, cookieDomain)
			}
			if c.Path == nil || *c.Path != "/" {
				t.Errorf("cookie %s path = %v, want /", c.Name, c.Path)
			}
		}
	})

	t.Run("session cookie present even with empty jar", func(t *testing.T) {
		only := sessionCookies(services.SessionSnapshot{Token: "jwt"})
		if len(only) != 1 || only[0].Name != "__session" || only[0].Value != "jwt" {
			t.Errorf("unexpected cookies for empty jar: %+v", only)
		}
	})
}

func TestLaunchArgs(t *testing.T) {
	t.Run("always disables automation fingerprint", func(t *testing.T) {
		args := launchArgs(Config{})
		if !contains(args, "--disable-blink-features=AutomationControlled") {
			t.Error("automation fingerprint flag missing")
		}
		if contains(args, "--disable-gpu") {
			t.Error("gpu flags present without DisableGPU")
		}
	})

	t.Run("adds gpu flags when disabled", func(t *testing.T) {
		args := launchArgs(Config{DisableGPU: true})
		for _, want := range []string{"--disable-gpu", "--enable-unsafe-swiftshader"} {
			if !contains(args, want) {
				t.Errorf("missing %s", want)
			}
		}
	})
}

func TestIsBenignClosed(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"target closed", errors.New("playwright: Target closed"), true},
		{"page been closed", errors.New("page has been closed"), true},
		{"context teardown", errors.New("Target page, context or browser has been closed"), true},
		{"timeout", errors.New("timeout 30000ms exceeded"), false},
		{"network", errors.New("net::ERR_CONNECTION_REFUSED"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isBenignClosed(tc.err); got != tc.want {
				t.Errorf("isBenignClosed(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestWaypoints(t *testing.T) {
	t.Run("approach stays near the straight line", func(t *testing.T) {
		const x, y = 800, 600
		pts := waypoints(x, y, 3)
		if len(pts) != 3 {
			t.Fatalf("got %d waypoints, want 3", len(pts))
		}
		for i, pt := range pts {
			frac := float64(i+1) / 4
			if d := pt.X - x*frac; d > 60 || d < -60 {
				t.Errorf("waypoint %d X offset %.1f outside noise bound", i, d)
			}
			if d := pt.Y - y*frac; d > 60 || d < -60 {
				t.Errorf("waypoint %d Y offset %.1f outside noise bound", i, d)
			}
		}
	})
}

func TestCaptureFuture(t *testing.T) {
	t.Run("first resolve wins", func(t *testing.T) {
		f := newCaptureFuture()
		f.resolve(&Capture{Token: "first"})
		f.resolve(&Capture{Token: "second"})

		got := <-f.ch
		if got.Token != "first" {
			t.Errorf("got token %q, want first", got.Token)
		}
		select {
		case extra := <-f.ch:
			t.Errorf("unexpected second value: %+v", extra)
		case <-time.After(10 * time.Millisecond):
		}
	})
}

func TestNewController(t *testing.T) {
	t.Run("ghost cursor selects the human clicker", func(t *testing.T) {
		c := NewController(Config{GhostCursor: true}, nil)
		if _, ok := c.clicker.(humanClicker); !ok {
			t.Errorf("clicker is %T, want humanClicker", c.clicker)
		}
	})

	t.Run("default is direct dispatch", func(t *testing.T) {
		c := NewController(Config{}, nil)
		if _, ok := c.clicker.(directClicker); !ok {
			t.Errorf("clicker is %T, want directClicker", c.clicker)
		}
	})
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

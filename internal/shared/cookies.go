package shared

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// CookieJar is a mutable key/value view over a raw Cookie header.
//
// The Suno session rotates its cookies on nearly every response, so the jar
// supports merging Set-Cookie headers back into the stored set. All methods
// are safe for concurrent use.
type CookieJar struct {
	mu     sync.RWMutex
	values map[string]string
}

// ParseCookieJar builds a CookieJar from a raw Cookie header string
// ("k1=v1; k2=v2; ...").
//
// Malformed fragments without an equals sign are skipped.
func ParseCookieJar(header string) *CookieJar {
	values := make(map[string]string)
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		values[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return &CookieJar{values: values}
}

// Get returns the value for a cookie name, or "" when absent.
func (j *CookieJar) Get(name string) string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.values[name]
}

// Set stores a cookie value, replacing any existing one.
func (j *CookieJar) Set(name, value string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.values[name] = value
}

// Has reports whether a cookie with the given name is present.
func (j *CookieJar) Has(name string) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	_, ok := j.values[name]
	return ok
}

// Len returns the number of stored cookies.
func (j *CookieJar) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.values)
}

// Serialize renders the jar as a Cookie header value with stable ordering.
func (j *CookieJar) Serialize() string {
	j.mu.RLock()
	defer j.mu.RUnlock()

	names := make([]string, 0, len(j.values))
	for name := range j.values {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, fmt.Sprintf("%s=%s", name, j.values[name]))
	}
	return strings.Join(pairs, "; ")
}

// MergeSetCookies folds Set-Cookie response headers into the jar.
//
// Only the name=value pair of each header is taken; attributes like Path,
// Expires and SameSite are dropped.
func (j *CookieJar) MergeSetCookies(headers []string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, header := range headers {
		nameValue, _, _ := strings.Cut(header, ";")
		k, v, ok := strings.Cut(nameValue, "=")
		if !ok {
			continue
		}
		name := strings.TrimSpace(k)
		if name == "" {
			continue
		}
		j.values[name] = strings.TrimSpace(v)
	}
}

// Pairs returns a copy of the stored cookies.
func (j *CookieJar) Pairs() map[string]string {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make(map[string]string, len(j.values))
	for k, v := range j.values {
		out[k] = v
	}
	return out
}

// Fingerprint derives a stable identity for the credential set.
//
// Two raw cookie headers with the same pairs in different order produce the
// same fingerprint, so session instances are shared across equivalent inputs.
func (j *CookieJar) Fingerprint() string {
	sum := sha256.Sum256([]byte(j.Serialize()))
	return hex.EncodeToString(sum[:])
}

// CookieFingerprint is a convenience for fingerprinting a raw header without
// keeping the jar around.
func CookieFingerprint(header string) string {
	return ParseCookieJar(header).Fingerprint()
}

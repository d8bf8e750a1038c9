// Utilities for extracting the Suno session cookie from a copied cURL command.
//
// The easiest way to obtain a working credential set is to copy a request to
// studio-api as cURL from the browser's network tab; these helpers pull the
// Cookie header out of that command.
package shared

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// CurlCredentials represents headers and the cookie extracted from a cURL command.
type CurlCredentials struct {
	Headers map[string]string
	Cookie  string
}

// ParseCurlFile reads a file containing a cURL command and extracts the credential headers.
func ParseCurlFile(filepath string) (*CurlCredentials, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}

	return ParseCurlCommand(content)
}

// ParseCurlCommand parses a cURL command string and extracts headers and the cookie.
//
// Handles both -H 'Cookie: ...' and -b '...' forms, single or double quoted,
// with backslash line continuations.
func ParseCurlCommand(data []byte) (*CurlCredentials, error) {
	curlCmd := string(data)
	curlCmd = strings.ReplaceAll(curlCmd, "\\\n", " ")
	curlCmd = strings.ReplaceAll(curlCmd, "\\", "")

	headers := make(map[string]string)
	var cookie string

	headerRegex := regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
	matches := headerRegex.FindAllStringSubmatch(curlCmd, -1)

	for _, match := range matches {
		var headerLine string
		if match[1] != "" {
			headerLine = match[1]
		} else {
			headerLine = match[2]
		}

		parts := strings.SplitN(headerLine, ":", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if strings.EqualFold(key, "cookie") {
			cookie = value
		} else {
			headers[key] = value
		}
	}

	cookieRegex := regexp.MustCompile(`-b\s+'([^']+)'|-b\s+"([^"]+)"`)
	cookieMatches := cookieRegex.FindStringSubmatch(curlCmd)
	if len(cookieMatches) > 1 {
		if cookieMatches[1] != "" {
			cookie = cookieMatches[1]
		} else {
			cookie = cookieMatches[2]
		}
	}

	if len(headers) == 0 && cookie == "" {
		return nil, fmt.Errorf("no headers found in curl command")
	}

	return &CurlCredentials{
		Headers: headers,
		Cookie:  cookie,
	}, nil
}

// SessionCookie returns the extracted cookie, or an error when the command
// did not carry the Clerk identity marker required for authentication.
func (c *CurlCredentials) SessionCookie() (string, error) {
	if c.Cookie == "" {
		return "", fmt.Errorf("%w: curl command carried no Cookie header", ErrMissingCredentials)
	}
	if !strings.Contains(c.Cookie, "__client") {
		return "", fmt.Errorf("%w: cookie lacks the __client Clerk token", ErrInvalidCredentials)
	}
	return c.Cookie, nil
}

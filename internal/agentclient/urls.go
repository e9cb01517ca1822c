package agentclient

import (
	"fmt"
	"net/url"
	"strings"
)

// buildURL composes the absolute request URL for a relative API path
// against a configured base endpoint, tolerating a base that may or may
// not already end in the "openai" segment, and always carries apiVersion
// as a query parameter.
func buildURL(base, relPath, apiVersion string) (string, error) {
	base = strings.TrimRight(base, "/")
	relPath = strings.TrimLeft(relPath, "/")

	baseEndsOpenAI := strings.HasSuffix(base, "/openai") || base == "openai"
	relStartsOpenAI := strings.HasPrefix(relPath, "openai/") || relPath == "openai"
	if baseEndsOpenAI && relStartsOpenAI {
		relPath = strings.TrimPrefix(relPath, "openai")
		relPath = strings.TrimPrefix(relPath, "/")
	}

	full := base
	if relPath != "" {
		full = base + "/" + relPath
	}

	u, err := url.Parse(full)
	if err != nil {
		return "", fmt.Errorf("parse composed url %q: %w", full, err)
	}
	q := u.Query()
	if q.Get("api-version") == "" {
		q.Set("api-version", apiVersion)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

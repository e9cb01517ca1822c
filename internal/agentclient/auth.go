package agentclient

import (
	"context"
	"sync"
	"time"
)

// CredentialProvider mints bearer tokens for a fixed audience. Callers
// inject their own implementation (environment variable, managed
// identity, client-secret flow, ...); the client only ever sees the
// interface.
type CredentialProvider interface {
	Token(ctx context.Context) (token string, expiresAt time.Time, err error)
}

// StaticCredentialProvider serves a single fixed token that never
// expires. Useful for local development and for the default wiring
// when no richer credential provider is configured.
type StaticCredentialProvider struct {
	Token_ string
}

func (s StaticCredentialProvider) Token(context.Context) (string, time.Time, error) {
	return s.Token_, time.Now().Add(24 * time.Hour), nil
}

// cachedCredential wraps a CredentialProvider with in-memory caching,
// reusing the last token while its expiry is more than a minute away.
type cachedCredential struct {
	mu        sync.Mutex
	provider  CredentialProvider
	token     string
	expiresAt time.Time
}

func newCachedCredential(p CredentialProvider) *cachedCredential {
	return &cachedCredential{provider: p}
}

func (c *cachedCredential) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Until(c.expiresAt) > time.Minute {
		return c.token, nil
	}
	tok, exp, err := c.provider.Token(ctx)
	if err != nil {
		return "", err
	}
	c.token = tok
	c.expiresAt = exp
	return c.token, nil
}

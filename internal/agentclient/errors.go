package agentclient

import "fmt"

// UpstreamError wraps a non-2xx response that the retry policy decided
// not to retry (or that exhausted its retries), so the caller can
// classify it per the propagation policy.
type UpstreamError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: %s: %s", e.Status, e.Body)
}

// Retryable reports whether the status code that produced this error is
// one the retry policy would have retried (429 or 5xx). Exhausted
// retries on those statuses still surface as UpstreamError to the
// caller, but callers may want to distinguish transient from permanent.
func (e *UpstreamError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

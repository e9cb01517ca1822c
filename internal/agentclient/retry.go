package agentclient

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"time"
)

const (
	maxAttempts    = 6
	initialBackoff = 500 * time.Millisecond
)

// doWithRetry executes the request built by newReq up to maxAttempts
// times. Transport errors and HTTP 429/5xx are retried with a delay
// that starts at 500ms and doubles per attempt, jittered uniformly into
// [delay, 1.2*delay]. A Retry-After response header, if present,
// replaces the computed delay for the following wait. Any other status
// is returned to the caller untouched on the first occurrence.
func doWithRetry(ctx context.Context, client *http.Client, newReq func() (*http.Request, error)) (*http.Response, []byte, error) {
	delay := initialBackoff
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		req, err := newReq()
		if err != nil {
			return nil, nil, err
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				lastErr = readErr
			} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return resp, body, nil
			} else if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
				return resp, body, &UpstreamError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body)}
			} else {
				lastErr = &UpstreamError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body)}
				if ra := resp.Header.Get("Retry-After"); ra != "" {
					if secs, err := strconv.Atoi(ra); err == nil {
						delay = time.Duration(secs) * time.Second
					}
				}
			}
		}

		if attempt == maxAttempts-1 {
			break
		}
		wait := jitter(delay)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
		delay *= 2
	}
	return nil, nil, lastErr
}

// jitter returns a duration drawn uniformly from [d, 1.2*d].
func jitter(d time.Duration) time.Duration {
	spread := float64(d) * 0.2
	return d + time.Duration(rand.Float64()*spread)
}

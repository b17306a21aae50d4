package translator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// BlockedError reports that the backend wants a CAPTCHA solved before it will
// answer again. ChallengeURL is where a human can solve it.
type BlockedError struct {
	Backend      string
	ChallengeURL string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("%s returned a CAPTCHA challenge (unusual traffic detected): %s", e.Backend, e.ChallengeURL)
}

// HTTPError is a non-2xx answer from a backend.
type HTTPError struct {
	Backend    string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 160 {
		body = body[:160] + "..."
	}
	if body == "" {
		return fmt.Sprintf("%s: http %d", e.Backend, e.StatusCode)
	}
	return fmt.Sprintf("%s: http %d: %s", e.Backend, e.StatusCode, body)
}

// StatusOf returns the HTTP status carried by err, or 0 for transport-level failures.
func StatusOf(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// IsBlocked reports whether err is a human-verification block.
func IsBlocked(err error) bool {
	var blocked *BlockedError
	return errors.As(err, &blocked)
}

// IsRetryable classifies a failed attempt. Blocks and auth failures are terminal;
// 5xx, 429 and status-less transport failures are worth another try.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsBlocked(err) || errors.Is(err, context.Canceled) {
		return false
	}
	status := StatusOf(err)
	switch {
	case status == 0:
		return true
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return false
	case status == http.StatusTooManyRequests, status >= http.StatusInternalServerError:
		return true
	default:
		return false
	}
}

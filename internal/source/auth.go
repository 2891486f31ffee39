package source

import (
	"context"
	"net/http"
	"time"
)

// AccessResult is the outcome of an availability probe against a calendar
// endpoint.
type AccessResult int

const (
	AccessGranted AccessResult = iota
	AccessDenied
	AccessTimedOut
)

func (r AccessResult) String() string {
	switch r {
	case AccessGranted:
		return "granted"
	case AccessDenied:
		return "denied"
	case AccessTimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// CheckAccess probes url with a HEAD request bounded by timeout and reports
// whether the calendar endpoint is reachable.
//
//   - 401/403 responses mean credentials are missing or wrong: denied.
//   - Deadline or cancellation: timed out.
//   - Any other transport error is treated as transient and also reported
//     as timed out; the refresh loop retries on its own schedule.
//   - Everything else, including server errors, counts as granted: the
//     fetch path has its own cache fallback for those.
func CheckAccess(ctx context.Context, client *http.Client, url string, timeout time.Duration) AccessResult {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return AccessDenied
	}

	resp, err := client.Do(req)
	if err != nil {
		return AccessTimedOut
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return AccessDenied
	default:
		return AccessGranted
	}
}

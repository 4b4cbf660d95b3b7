package deliver

import "time"

// Backoff parameters for the retry schedule: delays double from the base and
// never exceed the cap. Attempts are counted from 1, so the delay before
// attempt 2 is 1s, before attempt 3 is 2s, and from attempt 6 onward the cap
// holds.
const (
	backoffBase = 1 * time.Second
	backoffCap  = 30 * time.Second
)

// RetryDelay returns the wait before the attempt following the given one.
func RetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	shift := attempt - 1
	if shift > 30 {
		return backoffCap
	}

	delay := backoffBase << shift
	if delay > backoffCap {
		return backoffCap
	}
	return delay
}

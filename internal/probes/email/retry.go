package email

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"
)

// ErrNXDomain marks a name that authoritatively does not exist. It is
// permanent; retrying cannot help.
var ErrNXDomain = errors.New("domain does not exist")

// retryLookup retries transient DNS failures with exponential backoff and
// jitter. Permanent answers (NXDOMAIN, REFUSED) return immediately.
func retryLookup(ctx context.Context, attempts int, fn func() ([]string, error)) ([]string, error) {
	if attempts <= 0 {
		attempts = 1
	}
	base := 200 * time.Millisecond

	var lastErr error
	for i := 0; i < attempts; i++ {
		records, err := fn()
		if err == nil {
			return records, nil
		}
		lastErr = err
		if isPermanent(err) || i == attempts-1 {
			break
		}

		delay := base*time.Duration(1<<uint(i)) + time.Duration(rand.Int63n(int64(base)))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

func isPermanent(err error) bool {
	if errors.Is(err, ErrNXDomain) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "REFUSED") || strings.Contains(msg, "NOTAUTH")
}

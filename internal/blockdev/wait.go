package blockdev

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// ErrNodesMissing is returned by WaitForNodes when device nodes did not
// appear in time.
var ErrNodesMissing = errors.New("device nodes did not appear")

// Backoff bounds the polling done by WaitForNodes.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	Timeout time.Duration
}

// DefaultBackoff polls after 100ms, 200ms, 400ms, ... up to 2s between
// attempts and gives up after 10s.
var DefaultBackoff = Backoff{
	Initial: 100 * time.Millisecond,
	Max:     2 * time.Second,
	Timeout: 10 * time.Second,
}

func missingNodes(paths []string) []string {
	var missing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			missing = append(missing, p)
		}
	}
	return missing
}

// WaitForNodes polls until all paths exist. udev creates partition nodes
// asynchronously after the kernel re-reads a partition table.
func WaitForNodes(ctx context.Context, paths []string, b Backoff) error {
	start := time.Now()
	deadline := start.Add(b.Timeout)
	delay := b.Initial
	if delay <= 0 {
		delay = 10 * time.Millisecond
	}
	for {
		missing := missingNodes(paths)
		if len(missing) == 0 {
			return nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("%w after %v: %s", ErrNodesMissing, time.Since(start).Round(time.Millisecond), strings.Join(missing, ", "))
		}
		if delay > remaining {
			delay = remaining
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay *= 2
		if delay > b.Max {
			delay = b.Max
		}
	}
}

package services

import (
	"context"
	"time"
)

// PollStep inspects an in-flight provider task. It returns done=true when the
// task reached a terminal state, or an error to abort polling immediately.
type PollStep func(ctx context.Context) (done bool, err error)

// Poll runs step at the given interval until it reports completion, fails, the
// context is cancelled, or the deadline elapses. The deadline is measured with
// the monotonic clock carried by time.Since, so wall-clock adjustments do not
// shorten or extend it. The first step runs immediately.
func Poll(ctx context.Context, interval, deadline time.Duration, step PollStep) error {
	if interval <= 0 {
		interval = time.Second
	}
	start := time.Now()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		done, err := step(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if deadline > 0 && time.Since(start) >= deadline {
			return Wrap(ErrTimeout, "poll", "wait", "deadline exceeded after "+deadline.String(), nil)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

package scene

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrWaitTimeout is returned when a bounded wait expires while the command
// is still running.
var ErrWaitTimeout = errors.New("timed out waiting for command to finish")

// Waiter blocks until the command just submitted to session has finished.
type Waiter interface {
	Wait(ctx context.Context, session string) error
}

// ChildProcessWaiter polls the session's shell until it has no child
// process left. A backgrounded child keeps the session busy.
type ChildProcessWaiter struct {
	Probe    ActivityProbe
	Interval time.Duration
	// Timeout bounds the wait; zero waits until ctx is done.
	Timeout time.Duration
	Sleep   Sleeper
}

// Wait implements Waiter.
func (w *ChildProcessWaiter) Wait(ctx context.Context, session string) error {
	return poll(ctx, w.Sleep, w.Interval, w.Timeout, func() (bool, error) {
		busy, err := w.Probe.IsBusy(ctx, session)
		if err != nil {
			return false, fmt.Errorf("probing %s: %w", session, err)
		}
		return !busy, nil
	})
}

// FixedDelayWaiter assumes the command is done after Delay.
type FixedDelayWaiter struct {
	Delay time.Duration
	Sleep Sleeper
}

// Wait implements Waiter.
func (w *FixedDelayWaiter) Wait(ctx context.Context, _ string) error {
	return sleepOrDefault(w.Sleep)(ctx, w.Delay)
}

// PromptWaiter polls the buffer until its last non-empty line matches the
// shell prompt pattern.
type PromptWaiter struct {
	Buffer   BufferReader
	Pattern  *regexp.Regexp
	Interval time.Duration
	Timeout  time.Duration
	Sleep    Sleeper
}

// Wait implements Waiter.
func (w *PromptWaiter) Wait(ctx context.Context, session string) error {
	return poll(ctx, w.Sleep, w.Interval, w.Timeout, func() (bool, error) {
		content, err := w.Buffer.CaptureHistory(ctx, session)
		if err != nil {
			return false, fmt.Errorf("reading %s: %w", session, err)
		}
		return w.Pattern.MatchString(LastLine(content)), nil
	})
}

// LastLine returns the last line of content that is not blank.
func LastLine(content string) string {
	lines := strings.Split(content, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return lines[i]
		}
	}
	return ""
}

// poll calls done every interval until it reports true. The first check
// happens after one interval, since the shell needs a moment to start the
// command after Enter.
func poll(ctx context.Context, sleeper Sleeper, interval, timeout time.Duration, done func() (bool, error)) error {
	sleep := sleepOrDefault(sleeper)
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		wait := interval
		if !deadline.IsZero() {
			// Clamp sleep to remaining time so we don't overshoot the deadline.
			if remaining := time.Until(deadline); remaining < wait {
				wait = remaining
			}
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
		ok, err := done()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return fmt.Errorf("%w after %s", ErrWaitTimeout, timeout)
		}
	}
}

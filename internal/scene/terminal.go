// Package scene is the scene-execution engine: it types like a human, reads
// the tmux buffer back, waits for commands to finish and threads captured
// output into later commands.
package scene

import (
	"context"
	"time"

	"github.com/steveyegge/spielbash/internal/tmux"
)

// KeyEmitter sends one keystroke into a session.
type KeyEmitter interface {
	SendKey(ctx context.Context, session string, key tmux.Key) error
}

// BufferReader snapshots the full scrollback of a session.
type BufferReader interface {
	CaptureHistory(ctx context.Context, session string) (string, error)
}

// ActivityProbe reports whether a session's shell is running a child process.
type ActivityProbe interface {
	IsBusy(ctx context.Context, session string) (bool, error)
}

// Terminal is everything the engine needs from the multiplexer.
// *tmux.Tmux implements it.
type Terminal interface {
	KeyEmitter
	BufferReader
	ActivityProbe
}

var _ Terminal = (*tmux.Tmux)(nil)

// Sleeper pauses for d, returning early with ctx.Err() when ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func sleepOrDefault(s Sleeper) Sleeper {
	if s == nil {
		return Sleep
	}
	return s
}

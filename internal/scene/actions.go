package scene

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/steveyegge/spielbash/internal/script"
	"github.com/steveyegge/spielbash/internal/tmux"
)

// Action is one executable unit of a script.
type Action interface {
	Run(ctx context.Context) error
}

// Dialogue types a line and erases it again.
type Dialogue struct {
	Typist *Typist
	Line   string
}

// Run implements Action.
func (d *Dialogue) Run(ctx context.Context) error {
	return d.Typist.Emulate(ctx, d.Line, true)
}

// KeyPress presses one named key.
type KeyPress struct {
	Typist *Typist
	Key    tmux.Key
}

// Run implements Action.
func (k *KeyPress) Run(ctx context.Context) error {
	return k.Typist.Press(ctx, k.Key)
}

// ResolveKey maps a script key name to a tmux key. Unknown names are an
// error when strict; otherwise they fall back to Enter, which is logged.
func ResolveKey(name string, strict bool, logger *log.Logger) (tmux.Key, error) {
	if key, ok := tmux.LookupKey(name); ok {
		return key, nil
	}
	if strict {
		return "", fmt.Errorf("%w %q", script.ErrUnknownKey, name)
	}
	if logger != nil {
		logger.Printf("KeyPress: unknown key %q, pressing ENTER instead", name)
	}
	return tmux.KeyEnter, nil
}

// Pause waits without touching the session.
type Pause struct {
	Duration time.Duration
	Sleep    Sleeper
}

// Run implements Action.
func (p *Pause) Run(ctx context.Context) error {
	return sleepOrDefault(p.Sleep)(ctx, p.Duration)
}

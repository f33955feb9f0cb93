package scene

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/rivo/uniseg"

	"github.com/steveyegge/spielbash/internal/tmux"
)

// Typist emulates a human typing into a session: one keystroke per
// grapheme cluster with a pause after each.
type Typist struct {
	Keys    KeyEmitter
	Session string

	// TypingDelay follows every keystroke; ReadingDelay follows a full line.
	TypingDelay  time.Duration
	ReadingDelay time.Duration

	Sleep Sleeper

	// KeyLog, when set, receives a line per keystroke.
	KeyLog *log.Logger
}

// Emulate types line, then pauses for the reading delay. With discard the
// line is erased again with one backspace per typed character, at the same
// cadence, so nothing is ever submitted.
func (t *Typist) Emulate(ctx context.Context, line string, discard bool) error {
	sleep := sleepOrDefault(t.Sleep)

	typed := 0
	g := uniseg.NewGraphemes(line)
	for g.Next() {
		if err := t.press(ctx, tmux.CharKey(g.Str())); err != nil {
			return fmt.Errorf("typing %q: %w", line, err)
		}
		typed++
		if err := sleep(ctx, t.TypingDelay); err != nil {
			return err
		}
	}
	if err := sleep(ctx, t.ReadingDelay); err != nil {
		return err
	}
	if !discard {
		return nil
	}
	for i := 0; i < typed; i++ {
		if err := t.press(ctx, tmux.KeyBackspace); err != nil {
			return fmt.Errorf("erasing %q: %w", line, err)
		}
		if err := sleep(ctx, t.TypingDelay); err != nil {
			return err
		}
	}
	return nil
}

// Press sends a single key with no pause.
func (t *Typist) Press(ctx context.Context, key tmux.Key) error {
	if err := t.press(ctx, key); err != nil {
		return fmt.Errorf("pressing %s: %w", key, err)
	}
	return nil
}

func (t *Typist) press(ctx context.Context, key tmux.Key) error {
	if t.KeyLog != nil {
		t.KeyLog.Printf("Typist: %s <- %q", t.Session, string(key))
	}
	return t.Keys.SendKey(ctx, t.Session, key)
}

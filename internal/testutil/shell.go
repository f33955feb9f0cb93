// Package testutil provides shared test infrastructure: an in-memory shell
// that stands in for a tmux session, and a clock that records sleeps.
package testutil

import (
	"context"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/steveyegge/spielbash/internal/tmux"
)

// FakeShell emulates a tmux session running an interactive shell. Typed
// characters are echoed on the current line, backspace erases, and Enter
// prints the configured output of the submitted command followed by a
// fresh prompt.
type FakeShell struct {
	mu sync.Mutex

	prompt  string
	outputs map[string]string
	screen  string
	line    string

	// BusyPolls is how many IsBusy calls report a running child after each
	// submitted command.
	BusyPolls   int
	pendingBusy int

	// SendErr and CaptureErr, when set, fail the corresponding call.
	SendErr    error
	CaptureErr error

	keys      []tmux.Key
	submitted []string
	captures  int
	probes    int
}

// NewFakeShell returns a shell showing prompt.
func NewFakeShell(prompt string) *FakeShell {
	return &FakeShell{
		prompt:  prompt,
		outputs: make(map[string]string),
		screen:  prompt,
	}
}

// Respond sets what the shell prints when command is submitted.
func (f *FakeShell) Respond(command, output string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outputs[command] = output
}

// SendKey records the key and applies it to the screen.
func (f *FakeShell) SendKey(_ context.Context, _ string, key tmux.Key) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return f.SendErr
	}
	f.keys = append(f.keys, key)

	switch key {
	case tmux.KeySpace:
		f.line += " "
		f.screen += " "
	case tmux.KeyBackspace:
		if f.line != "" {
			_, size := utf8.DecodeLastRuneInString(f.line)
			f.line = f.line[:len(f.line)-size]
			f.screen = f.screen[:len(f.screen)-size]
		}
	case tmux.KeyEnter:
		f.screen += "\n"
		f.submitted = append(f.submitted, f.line)
		if out, ok := f.outputs[f.line]; ok {
			f.screen += out
			if out != "" && !strings.HasSuffix(out, "\n") {
				f.screen += "\n"
			}
		}
		f.screen += f.prompt
		f.line = ""
		f.pendingBusy = f.BusyPolls
	default:
		if !key.IsNamed() {
			f.line += string(key)
			f.screen += string(key)
		}
	}
	return nil
}

// CaptureHistory returns the screen padded with blank lines, as tmux does.
func (f *FakeShell) CaptureHistory(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captures++
	if f.CaptureErr != nil {
		return "", f.CaptureErr
	}
	return f.screen + "\n\n\n", nil
}

// IsBusy reports a running child for BusyPolls calls after each Enter.
func (f *FakeShell) IsBusy(_ context.Context, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	if f.pendingBusy > 0 {
		f.pendingBusy--
		return true, nil
	}
	return false, nil
}

// Keys returns every key sent so far.
func (f *FakeShell) Keys() []tmux.Key {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tmux.Key(nil), f.keys...)
}

// Submitted returns the command lines submitted with Enter.
func (f *FakeShell) Submitted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.submitted...)
}

// Line returns the text currently typed on the prompt line.
func (f *FakeShell) Line() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.line
}

// Screen returns the full screen content.
func (f *FakeShell) Screen() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.screen
}

// Captures returns the number of CaptureHistory calls.
func (f *FakeShell) Captures() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.captures
}

// Probes returns the number of IsBusy calls.
func (f *FakeShell) Probes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probes
}

// Clock records sleeps instead of performing them.
type Clock struct {
	mu    sync.Mutex
	slept []time.Duration
}

// Sleep records d. It fails only when ctx is already done.
func (c *Clock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slept = append(c.slept, d)
	return nil
}

// Slept returns every recorded sleep in order.
func (c *Clock) Slept() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.slept...)
}

// Total returns the sum of all recorded sleeps.
func (c *Clock) Total() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total time.Duration
	for _, d := range c.slept {
		total += d
	}
	return total
}

// Count returns how many sleeps of exactly d were recorded.
func (c *Clock) Count(d time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.slept {
		if s == d {
			n++
		}
	}
	return n
}

// RequireTmux skips the test when tmux is not installed.
func RequireTmux(t testing.TB) {
	t.Helper()
	if _, err := exec.LookPath("tmux"); err != nil {
		t.Skip("tmux not installed")
	}
}

// Package tmux provides a wrapper for tmux session operations via subprocess.
package tmux

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/steveyegge/spielbash/internal/constants"
	"github.com/steveyegge/spielbash/internal/telemetry"
)

// validSessionNameRe validates session names to prevent shell injection
var validSessionNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Common errors
var (
	ErrNoServer           = errors.New("no tmux server running")
	ErrSessionExists      = errors.New("session already exists")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidSessionName = errors.New("invalid session name")
)

// maxStderrLen caps stderr included in error messages.
const maxStderrLen = 4096

// validateSessionName checks that a session name contains only safe characters.
// Returns ErrInvalidSessionName if the name contains dots, colons, or other
// characters that cause tmux to silently fail or produce cryptic errors.
func validateSessionName(name string) error {
	if name == "" || !validSessionNameRe.MatchString(name) {
		return fmt.Errorf("%w %q: must match %s", ErrInvalidSessionName, name, validSessionNameRe.String())
	}
	return nil
}

// Tmux wraps tmux operations.
type Tmux struct {
	socketName string // tmux socket name (-L flag), empty = default socket
	runner     Runner
}

// New creates a Tmux wrapper targeting the given socket.
// An empty socket uses the user's default tmux server.
func New(socket string) *Tmux {
	return NewWithRunner(socket, ExecRunner{})
}

// NewWithRunner creates a Tmux wrapper that executes commands through r.
func NewWithRunner(socket string, r Runner) *Tmux {
	return &Tmux{socketName: socket, runner: r}
}

// globalArgs prepends the flags every tmux invocation carries:
// -u (UTF-8 mode regardless of locale) and optionally -L (socket).
func (t *Tmux) globalArgs(args ...string) []string {
	allArgs := []string{"-u"}
	if t.socketName != "" {
		allArgs = append(allArgs, "-L", t.socketName)
	}
	return append(allArgs, args...)
}

// AttachCommand returns the argv that attaches a client to session.
// Recorders run it as their observed process.
func (t *Tmux) AttachCommand(session string) []string {
	return append([]string{"tmux"}, t.globalArgs("attach-session", "-t", session)...)
}

// run executes a tmux command and returns stdout with surrounding whitespace trimmed.
func (t *Tmux) run(ctx context.Context, args ...string) (string, error) {
	out, err := t.runRaw(ctx, args...)
	return strings.TrimSpace(out), err
}

// runRaw executes a tmux command and returns stdout untouched.
func (t *Tmux) runRaw(ctx context.Context, args ...string) (string, error) {
	stdout, stderr, exitCode, err := t.runner.Run(ctx, "tmux", t.globalArgs(args...)...)
	if err != nil {
		return "", t.wrapError(err, stderr, args)
	}
	if exitCode != 0 {
		return "", t.wrapError(fmt.Errorf("exit status %d", exitCode), stderr, args)
	}
	return stdout, nil
}

// wrapError wraps tmux errors with context.
func (t *Tmux) wrapError(err error, stderr string, args []string) error {
	stderr = strings.TrimSpace(stderr)

	// Detect specific error types
	if strings.Contains(stderr, "no server running") ||
		strings.Contains(stderr, "error connecting to") ||
		strings.Contains(stderr, "no current target") ||
		strings.Contains(stderr, "server exited unexpectedly") {
		return ErrNoServer
	}
	if strings.Contains(stderr, "duplicate session") {
		return ErrSessionExists
	}
	if strings.Contains(stderr, "session not found") ||
		strings.Contains(stderr, "can't find session") ||
		strings.Contains(stderr, "can't find pane") {
		return ErrSessionNotFound
	}

	if len(stderr) > maxStderrLen {
		stderr = stderr[:maxStderrLen] + "..."
	}
	if stderr != "" {
		return fmt.Errorf("tmux %s: %s", args[0], stderr)
	}
	return fmt.Errorf("tmux %s: %w", args[0], err)
}

// NewSession creates a new detached tmux session sized width x height cells.
// Each "KEY=VALUE" entry in env is set in the session's initial environment.
func (t *Tmux) NewSession(ctx context.Context, name string, width, height int, env []string) error {
	if err := validateSessionName(name); err != nil {
		return err
	}
	args := []string{"new-session", "-d", "-s", name}
	if width > 0 && height > 0 {
		args = append(args, "-x", strconv.Itoa(width), "-y", strconv.Itoa(height))
	}
	for _, kv := range env {
		args = append(args, "-e", kv)
	}
	if _, err := t.run(ctx, args...); err != nil {
		return err
	}
	// Pin the window to the requested size. Without this the window follows
	// whichever client attaches last, and the recorder's client would resize it.
	_, _ = t.run(ctx, "set-option", "-wt", name, "window-size", "manual")
	return nil
}

// HasSession checks if a session exists (exact match).
// Uses "=" prefix for exact matching, preventing prefix matches.
func (t *Tmux) HasSession(ctx context.Context, name string) (bool, error) {
	_, err := t.run(ctx, "has-session", "-t", "="+name)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrNoServer) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// KillSession terminates a tmux session.
func (t *Tmux) KillSession(ctx context.Context, name string) error {
	_, err := t.run(ctx, "kill-session", "-t", "="+name)
	return err
}

// ListSessions returns the names of all sessions on the server.
// No server means no sessions.
func (t *Tmux) ListSessions(ctx context.Context) ([]string, error) {
	out, err := t.run(ctx, "list-sessions", "-F", "#{session_name}")
	if err != nil {
		if errors.Is(err, ErrNoServer) {
			return nil, nil
		}
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// SendKey sends a single keystroke to a session.
// Named keys go through tmux key lookup; anything else is sent literally
// (-l) so characters like "q" or "Enter" typed as text are not reinterpreted.
func (t *Tmux) SendKey(ctx context.Context, session string, key Key) (retErr error) {
	defer func() { telemetry.RecordKeySend(ctx, session, string(key), retErr) }()
	if key == "" {
		return fmt.Errorf("tmux send-keys: empty key")
	}
	if key.IsNamed() {
		_, err := t.run(ctx, "send-keys", "-t", session, string(key))
		return err
	}
	_, err := t.run(ctx, "send-keys", "-t", session, "-l", escapeLiteral(string(key)))
	return err
}

// escapeLiteral protects a trailing ';', which tmux's argument parser would
// otherwise treat as a command separator.
func escapeLiteral(s string) string {
	if strings.HasSuffix(s, ";") {
		return s[:len(s)-1] + `\;`
	}
	return s
}

// CaptureHistory captures the full scrollback history of a session.
//
// capture-pane -p can be limited to what the client viewport reports, so the
// history is first copied into a named scratch paste buffer, read back with
// show-buffer and then deleted. The scratch buffer is never part of the
// session transcript.
func (t *Tmux) CaptureHistory(ctx context.Context, session string) (content string, retErr error) {
	defer func() { telemetry.RecordPaneRead(ctx, session, len(content), retErr) }()
	buffer := constants.ScratchBufferPrefix + session
	if _, err := t.run(ctx, "capture-pane", "-t", session, "-S", "-", "-b", buffer); err != nil {
		return "", fmt.Errorf("capturing history: %w", err)
	}
	out, err := t.runRaw(ctx, "show-buffer", "-b", buffer)
	if err != nil {
		return "", fmt.Errorf("reading capture buffer: %w", err)
	}
	_, _ = t.run(ctx, "delete-buffer", "-b", buffer)
	return out, nil
}

// GetPanePID returns the PID of the active pane's root process (the shell).
func (t *Tmux) GetPanePID(ctx context.Context, session string) (string, error) {
	out, err := t.run(ctx, "display-message", "-t", session, "-p", "#{pane_pid}")
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", fmt.Errorf("empty PID for target %s (session may not exist)", session)
	}
	return out, nil
}

// PaneChildren returns the PIDs of the direct children of the pane's shell.
// An empty result means the shell has reclaimed control.
func (t *Tmux) PaneChildren(ctx context.Context, session string) ([]string, error) {
	pid, err := t.GetPanePID(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("getting pane PID: %w", err)
	}
	stdout, stderr, exitCode, err := t.runner.Run(ctx, "pgrep", "-P", pid)
	if err != nil {
		return nil, fmt.Errorf("pgrep -P %s: %w", pid, err)
	}
	switch exitCode {
	case 0:
		return strings.Fields(strings.TrimSpace(stdout)), nil
	case 1:
		// pgrep exits 1 when nothing matched.
		return nil, nil
	default:
		return nil, fmt.Errorf("pgrep -P %s failed (exit=%d): %s", pid, exitCode, strings.TrimSpace(stderr))
	}
}

// IsBusy reports whether the shell in the session currently runs a child process.
// Backgrounded children keep the session busy.
func (t *Tmux) IsBusy(ctx context.Context, session string) (bool, error) {
	children, err := t.PaneChildren(ctx, session)
	if err != nil {
		return false, err
	}
	return len(children) > 0, nil
}

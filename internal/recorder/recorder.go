// Package recorder films a tmux session: it runs a client attached to the
// session and turns everything that client displays into an asciicast file.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/steveyegge/spielbash/internal/constants"
)

// ErrNotStarted is returned by Wait when Start was never called.
var ErrNotStarted = errors.New("recorder not started")

// Recorder runs alongside the session for the whole shoot.
type Recorder interface {
	// Start launches the recorder. It returns once the process is running.
	Start(ctx context.Context) error
	// Wait blocks until the recorder exits on its own or ctx is done.
	Wait(ctx context.Context) error
	// Stop terminates the recorder if it is still running.
	Stop() error
	// Path is the recording file.
	Path() string
}

// Options describes one recording.
type Options struct {
	Path  string
	Title string

	// Width and Height are the terminal size in cells.
	Width  int
	Height int

	// AttachCommand is the argv of the tmux client to film.
	AttachCommand []string

	Logger *log.Logger
}

func (o Options) logger() *log.Logger {
	if o.Logger == nil {
		return log.New(os.Stderr, "", 0)
	}
	return o.Logger
}

// New returns the recorder for backend. asciinemaPath is the asciinema
// binary, used by the asciinema backend only.
func New(backend string, opts Options, asciinemaPath string) (Recorder, error) {
	if opts.Path == "" {
		return nil, errors.New("recorder: no output path")
	}
	if len(opts.AttachCommand) == 0 {
		return nil, errors.New("recorder: no attach command")
	}
	switch backend {
	case constants.RecorderAsciinema, "":
		return NewAsciinema(asciinemaPath, opts), nil
	case constants.RecorderBuiltin:
		return NewPTY(opts), nil
	default:
		return nil, fmt.Errorf("recorder: unknown backend %q", backend)
	}
}

// attachEnv is the environment for the filmed tmux client. TMUX is dropped
// so attaching works when spielbash itself runs inside tmux.
func attachEnv(extra ...string) []string {
	env := make([]string, 0, len(os.Environ())+len(extra))
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "TMUX=") {
			continue
		}
		env = append(env, kv)
	}
	return append(env, extra...)
}

// maxStderrLen caps the recorder stderr kept for error messages.
const maxStderrLen = 4096

// tailBuffer keeps the last maxStderrLen bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - maxStderrLen; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(string(b.buf))
}

// process tracks a running recorder process.
type process struct {
	done chan struct{}
	err  error
}

func (p *process) wait(ctx context.Context) error {
	if p == nil {
		return ErrNotStarted
	}
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *process) exited() bool {
	if p == nil {
		return true
	}
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

package recorder

import (
	"context"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"github.com/steveyegge/spielbash/internal/config"
)

// stopGrace is how long Stop waits after SIGTERM before killing.
const stopGrace = 2 * time.Second

// AsciinemaRecorder films the session with the asciinema CLI.
type AsciinemaRecorder struct {
	Binary string
	opts   Options

	cmd    *exec.Cmd
	stderr tailBuffer
	proc   *process
}

// NewAsciinema returns a recorder running binary (default "asciinema").
func NewAsciinema(binary string, opts Options) *AsciinemaRecorder {
	if binary == "" {
		binary = "asciinema"
	}
	return &AsciinemaRecorder{Binary: binary, opts: opts}
}

// Args returns the asciinema command line, without the binary.
func (r *AsciinemaRecorder) Args() []string {
	args := []string{"rec", "--quiet", "--overwrite", "-c", config.ShellJoin(r.opts.AttachCommand)}
	if r.opts.Title != "" {
		args = append(args, "-t", r.opts.Title)
	}
	return append(args, r.opts.Path)
}

// Path implements Recorder.
func (r *AsciinemaRecorder) Path() string { return r.opts.Path }

// Start implements Recorder.
func (r *AsciinemaRecorder) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bin, err := exec.LookPath(r.Binary)
	if err != nil {
		return fmt.Errorf("asciinema not found (install it or use --recorder builtin): %w", err)
	}
	cmd := exec.Command(bin, r.Args()...)
	cmd.Env = attachEnv()
	cmd.Stderr = &r.stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting asciinema: %w", err)
	}
	r.opts.logger().Printf("Recorder: asciinema pid %d -> %s", cmd.Process.Pid, r.opts.Path)

	r.cmd = cmd
	r.proc = &process{done: make(chan struct{})}
	go func() {
		err := cmd.Wait()
		if err != nil {
			if msg := r.stderr.String(); msg != "" {
				err = fmt.Errorf("asciinema: %w: %s", err, msg)
			} else {
				err = fmt.Errorf("asciinema: %w", err)
			}
		}
		r.proc.err = err
		close(r.proc.done)
	}()
	return nil
}

// Wait implements Recorder.
func (r *AsciinemaRecorder) Wait(ctx context.Context) error {
	return r.proc.wait(ctx)
}

// Stop implements Recorder. It sends SIGTERM so asciinema can close the
// file cleanly, and kills the process if it lingers.
func (r *AsciinemaRecorder) Stop() error {
	if r.proc.exited() {
		return nil
	}
	_ = r.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-r.proc.done:
	case <-time.After(stopGrace):
		_ = r.cmd.Process.Kill()
		<-r.proc.done
	}
	return nil
}

package recorder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/creack/pty"
)

// PTYRecorder films the session itself: it runs the tmux client inside a
// pseudo terminal of the configured size and writes what the client draws
// as an asciicast v2 file.
type PTYRecorder struct {
	opts Options
	now  func() time.Time

	cmd  *exec.Cmd
	ptmx *os.File
	proc *process
}

// NewPTY returns the built-in recorder.
func NewPTY(opts Options) *PTYRecorder {
	return &PTYRecorder{opts: opts, now: time.Now}
}

// Path implements Recorder.
func (r *PTYRecorder) Path() string { return r.opts.Path }

// Start implements Recorder.
func (r *PTYRecorder) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	out, err := os.Create(r.opts.Path)
	if err != nil {
		return fmt.Errorf("creating recording: %w", err)
	}

	argv := r.opts.AttachCommand
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = attachEnv("TERM=xterm-256color")
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Cols: uint16(r.opts.Width),
		Rows: uint16(r.opts.Height),
	})
	if err != nil {
		out.Close()
		os.Remove(r.opts.Path)
		return fmt.Errorf("starting %s in a pty: %w", argv[0], err)
	}

	bw := bufio.NewWriter(out)
	cast, err := newCastWriter(bw, Header{
		Width:  r.opts.Width,
		Height: r.opts.Height,
		Title:  r.opts.Title,
		Env:    map[string]string{"TERM": "xterm-256color", "SHELL": os.Getenv("SHELL")},
	}, r.now)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		ptmx.Close()
		out.Close()
		return fmt.Errorf("writing recording header: %w", err)
	}
	r.opts.logger().Printf("Recorder: built-in pty recorder pid %d -> %s", cmd.Process.Pid, r.opts.Path)

	r.cmd = cmd
	r.ptmx = ptmx
	r.proc = &process{done: make(chan struct{})}
	go func() {
		r.proc.err = r.record(ptmx, cast, bw, out)
		close(r.proc.done)
	}()
	return nil
}

// record copies the client's output into the cast until the client exits.
func (r *PTYRecorder) record(ptmx *os.File, cast *castWriter, bw *bufio.Writer, out *os.File) error {
	_, copyErr := io.Copy(cast, ptmx)
	// Reading the master side fails with EIO once the client is gone.
	if errors.Is(copyErr, syscall.EIO) || errors.Is(copyErr, os.ErrClosed) {
		copyErr = nil
	}
	waitErr := r.cmd.Wait()
	ptmx.Close()

	flushErr := cast.Flush()
	if err := bw.Flush(); flushErr == nil {
		flushErr = err
	}
	closeErr := out.Close()

	switch {
	case copyErr != nil:
		return fmt.Errorf("recording: %w", copyErr)
	case flushErr != nil:
		return fmt.Errorf("writing recording: %w", flushErr)
	case closeErr != nil:
		return fmt.Errorf("closing recording: %w", closeErr)
	case waitErr != nil:
		return fmt.Errorf("%s: %w", r.opts.AttachCommand[0], waitErr)
	}
	return nil
}

// Wait implements Recorder.
func (r *PTYRecorder) Wait(ctx context.Context) error {
	return r.proc.wait(ctx)
}

// Stop implements Recorder. The client is asked to hang up, then killed if
// it does not, and the recording is finished either way.
func (r *PTYRecorder) Stop() error {
	if r.proc.exited() {
		return nil
	}
	_ = r.cmd.Process.Signal(syscall.SIGHUP)
	select {
	case <-r.proc.done:
	case <-time.After(stopGrace):
		_ = r.cmd.Process.Kill()
		<-r.proc.done
	}
	return nil
}

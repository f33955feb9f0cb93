// Package session directs a shoot: it owns the tmux session and the
// recorder, and plays the script's units against the session in order.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"time"

	"github.com/steveyegge/spielbash/internal/config"
	"github.com/steveyegge/spielbash/internal/constants"
	"github.com/steveyegge/spielbash/internal/recorder"
	"github.com/steveyegge/spielbash/internal/scene"
	"github.com/steveyegge/spielbash/internal/script"
	"github.com/steveyegge/spielbash/internal/style"
	"github.com/steveyegge/spielbash/internal/telemetry"
	"github.com/steveyegge/spielbash/internal/tmux"
)

// Multiplexer is the part of tmux the director drives. *tmux.Tmux implements it.
type Multiplexer interface {
	scene.Terminal
	NewSession(ctx context.Context, name string, width, height int, env []string) error
	HasSession(ctx context.Context, name string) (bool, error)
	KillSession(ctx context.Context, name string) error
	AttachCommand(session string) []string
}

var _ Multiplexer = (*tmux.Tmux)(nil)

// RecorderFactory builds the recorder for a shoot.
type RecorderFactory func(opts recorder.Options) (recorder.Recorder, error)

// Options configures a Director.
//
// Usage pattern:
//
//	d := session.NewDirector(session.Options{
//	    Config:      cfg,
//	    SessionName: "spielbash-1a2b3c4d",
//	    OutputPath:  "movie.json",
//	    Mux:         tmux.New(cfg.Socket),
//	})
//	result, err := d.Shoot(ctx, script)
type Options struct {
	Config config.Config

	// SessionName is the tmux session to create. It must not exist yet.
	SessionName string

	// OutputPath is the recording file.
	OutputPath string

	Mux Multiplexer

	// Recorders builds the recorder. Nil uses recorder.New with the
	// configured backend.
	Recorders RecorderFactory

	// Logger receives operational logs. Nil discards them.
	Logger *log.Logger

	// Out receives the scene progress lines. Nil uses stdout.
	Out io.Writer

	// Verbose logs every keystroke and capture.
	Verbose bool

	// Sleep replaces real sleeps, for tests.
	Sleep scene.Sleeper

	// ExitTimeout bounds the wait for the recorder after `exit`. Zero uses
	// constants.ShellExitTimeout.
	ExitTimeout time.Duration
}

// Result describes a finished shoot.
type Result struct {
	Session   string
	Output    string
	Units     int
	Vars      *scene.Vars
	Finalized bool
	Elapsed   time.Duration
}

// Director owns one session and one recorder for the length of a shoot.
type Director struct {
	cfg         config.Config
	session     string
	output      string
	mux         Multiplexer
	recorders   RecorderFactory
	logger      *log.Logger
	out         io.Writer
	verbose     bool
	sleep       scene.Sleeper
	exitTimeout time.Duration
	vars        *scene.Vars
}

// NewDirector returns a Director for opts.
func NewDirector(opts Options) *Director {
	d := &Director{
		cfg:         opts.Config,
		session:     opts.SessionName,
		output:      opts.OutputPath,
		mux:         opts.Mux,
		recorders:   opts.Recorders,
		logger:      opts.Logger,
		out:         opts.Out,
		verbose:     opts.Verbose,
		sleep:       opts.Sleep,
		exitTimeout: opts.ExitTimeout,
		vars:        scene.NewVars(),
	}
	if d.recorders == nil {
		cfg := opts.Config
		d.recorders = func(o recorder.Options) (recorder.Recorder, error) {
			return recorder.New(cfg.Recorder, o, cfg.AsciinemaPath)
		}
	}
	if d.logger == nil {
		d.logger = log.New(io.Discard, "", 0)
	}
	if d.out == nil {
		d.out = os.Stdout
	}
	if d.sleep == nil {
		d.sleep = scene.Sleep
	}
	if d.exitTimeout <= 0 {
		d.exitTimeout = constants.ShellExitTimeout
	}
	return d
}

// Vars is the run's variable table.
func (d *Director) Vars() *scene.Vars { return d.vars }

// Shoot plays s against a fresh session while it is being recorded.
//
// The lifecycle:
//  1. Create the tmux session at the configured size
//  2. Start the recorder attached to it, then give it time to attach
//  3. Build and run each unit in script order
//  4. Submit `exit` and wait for the recorder to see the session end
//  5. Kill the session if it outlived the shell
//  6. Fill in the recording header's terminal size
//
// On any failure the session is killed and the recorder stopped before the
// error is returned.
func (d *Director) Shoot(ctx context.Context, s *script.Script) (_ *Result, retErr error) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "spielbash.shoot",
		telemetry.Text("session", d.session),
		telemetry.Text("output", d.output))
	defer func() { telemetry.EndSpan(span, retErr) }()

	if err := d.check(); err != nil {
		return nil, err
	}
	if s == nil || len(s.Scenes) == 0 {
		return nil, script.ErrNoScenes
	}

	// 1. Create the session.
	env := config.EnvToSlice(config.SessionEnv(d.cfg, d.session))
	if err := d.mux.NewSession(ctx, d.session, d.cfg.Width, d.cfg.Height, env); err != nil {
		return nil, fmt.Errorf("creating session %s: %w", d.session, err)
	}
	d.logger.Printf("Director: session %s created (%dx%d)", d.session, d.cfg.Width, d.cfg.Height)

	var rec recorder.Recorder
	defer func() {
		if retErr != nil {
			d.teardown(ctx, rec)
		}
	}()

	// 2. Start filming.
	title := s.Title
	if title == "" {
		title = d.cfg.Title
	}
	rec, err := d.recorders(recorder.Options{
		Path:          d.output,
		Title:         title,
		Width:         d.cfg.Width,
		Height:        d.cfg.Height,
		AttachCommand: d.mux.AttachCommand(d.session),
		Logger:        d.logger,
	})
	if err != nil {
		return nil, err
	}
	if err := rec.Start(ctx); err != nil {
		rec = nil
		return nil, fmt.Errorf("starting recorder: %w", err)
	}
	if err := d.sleep(ctx, d.cfg.AttachWait()); err != nil {
		return nil, err
	}

	// 3. Roll.
	stage, err := d.stage()
	if err != nil {
		return nil, err
	}
	for i, u := range s.Scenes {
		if err := d.runUnit(ctx, stage, i, u); err != nil {
			return nil, err
		}
	}

	// 4. Wrap up: leave the shell and let the recorder see the end.
	if err := stage.Typist.Press(ctx, tmux.Key(constants.ExitCommand)); err != nil {
		return nil, fmt.Errorf("ending session: %w", err)
	}
	if err := stage.Typist.Press(ctx, tmux.KeyEnter); err != nil {
		return nil, fmt.Errorf("ending session: %w", err)
	}
	if err := d.awaitRecorder(ctx, rec); err != nil {
		return nil, err
	}

	// 5. Kill the session if the shell did not take it down.
	if alive, _ := d.mux.HasSession(ctx, d.session); alive {
		d.logger.Printf("Director: session %s still alive after exit, killing it", d.session)
		if err := d.mux.KillSession(ctx, d.session); err != nil && !errors.Is(err, tmux.ErrSessionNotFound) {
			return nil, fmt.Errorf("killing session %s: %w", d.session, err)
		}
	}

	// 6. Finalize.
	finalized, err := recorder.Finalize(rec.Path(), d.cfg.Width, d.cfg.Height)
	if err != nil {
		return nil, fmt.Errorf("finalizing recording: %w", err)
	}
	if finalized {
		d.logger.Printf("Director: set recording size to %dx%d", d.cfg.Width, d.cfg.Height)
	}

	return &Result{
		Session:   d.session,
		Output:    rec.Path(),
		Units:     len(s.Scenes),
		Vars:      d.vars,
		Finalized: finalized,
		Elapsed:   time.Since(start),
	}, nil
}

func (d *Director) check() error {
	if d.session == "" {
		return errors.New("SessionName is required")
	}
	if d.output == "" {
		return errors.New("OutputPath is required")
	}
	if d.mux == nil {
		return errors.New("Mux is required")
	}
	return nil
}

// runUnit builds and runs one unit, printing the progress line around it.
func (d *Director) runUnit(ctx context.Context, stage *scene.Stage, i int, u script.Unit) (retErr error) {
	label := u.Label()
	ctx, span := telemetry.StartSpan(ctx, "spielbash.unit",
		telemetry.Text("kind", u.Kind.String()),
		telemetry.Text("name", label))
	defer func() { telemetry.EndSpan(span, retErr) }()

	fmt.Fprintf(d.out, "%s Rolling scene %s...", style.ArrowPrefix, style.Bold.Render(fmt.Sprintf("%q", label)))
	action, err := stage.Build(ctx, u)
	if err == nil {
		err = action.Run(ctx)
	}
	if err != nil {
		fmt.Fprintf(d.out, " %s\n", style.ErrorPrefix)
		return fmt.Errorf("scene %d (%s): %w", i+1, label, err)
	}
	fmt.Fprintf(d.out, " %s\n", style.Success.Render("Cut !"))
	return nil
}

// stage wires the engine to the session.
func (d *Director) stage() (*scene.Stage, error) {
	typist := &scene.Typist{
		Keys:         d.mux,
		Session:      d.session,
		TypingDelay:  d.cfg.TypingDelay(),
		ReadingDelay: d.cfg.ReadingDelay(),
		Sleep:        d.sleep,
	}
	if d.verbose {
		typist.KeyLog = d.logger
	}
	waiter, err := NewWaiter(d.cfg, d.mux, d.sleep)
	if err != nil {
		return nil, err
	}
	return &scene.Stage{
		Session:    d.session,
		Terminal:   d.mux,
		Typist:     typist,
		Waiter:     waiter,
		Vars:       d.vars,
		StrictKeys: d.cfg.StrictKeys,
		Sleep:      d.sleep,
		Logger:     d.logger,
		Verbose:    d.verbose,
	}, nil
}

// awaitRecorder waits for the recorder to exit on its own once the shell is
// gone, stopping it when it takes longer than the exit timeout.
func (d *Director) awaitRecorder(ctx context.Context, rec recorder.Recorder) error {
	waitCtx, cancel := context.WithTimeout(ctx, d.exitTimeout)
	defer cancel()
	err := rec.Wait(waitCtx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		d.logger.Printf("Director: recorder still running %s after exit, stopping it", d.exitTimeout)
		return rec.Stop()
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return fmt.Errorf("recorder: %w", err)
	}
}

// teardown kills the session and stops the recorder after a failure. It
// runs on a context detached from ctx, which may already be cancelled.
func (d *Director) teardown(ctx context.Context, rec recorder.Recorder) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.exitTimeout)
	defer cancel()
	if err := d.mux.KillSession(cleanupCtx, d.session); err != nil && !errors.Is(err, tmux.ErrSessionNotFound) {
		d.logger.Printf("Director: killing session %s: %v", d.session, err)
	}
	if rec != nil {
		if err := rec.Stop(); err != nil {
			d.logger.Printf("Director: stopping recorder: %v", err)
		}
	}
}

// NewWaiter returns the completion waiter selected by cfg.WaitStrategy.
func NewWaiter(cfg config.Config, term scene.Terminal, sleep scene.Sleeper) (scene.Waiter, error) {
	switch cfg.WaitStrategy {
	case constants.WaitChildren, "":
		return &scene.ChildProcessWaiter{
			Probe:    term,
			Interval: cfg.PollEvery(),
			Timeout:  cfg.WaitLimit(),
			Sleep:    sleep,
		}, nil
	case constants.WaitFixed:
		return &scene.FixedDelayWaiter{Delay: cfg.FixedDelay(), Sleep: sleep}, nil
	case constants.WaitPrompt:
		re, err := regexp.Compile(cfg.PromptPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid prompt_pattern: %w", err)
		}
		return &scene.PromptWaiter{
			Buffer:   term,
			Pattern:  re,
			Interval: cfg.PollEvery(),
			Timeout:  cfg.WaitLimit(),
			Sleep:    sleep,
		}, nil
	default:
		return nil, fmt.Errorf("unknown wait strategy %q", cfg.WaitStrategy)
	}
}

package scene

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/steveyegge/spielbash/internal/telemetry"
	"github.com/steveyegge/spielbash/internal/tmux"
)

// State is the progress of a Scene.
type State int

const (
	Created State = iota
	BufferBaselined
	Typed
	Submitted
	Waiting
	OutputCaptured
	VariablesUpdated
	Done
)

var stateNames = [...]string{
	Created:          "created",
	BufferBaselined:  "buffer-baselined",
	Typed:            "typed",
	Submitted:        "submitted",
	Waiting:          "waiting",
	OutputCaptured:   "output-captured",
	VariablesUpdated: "variables-updated",
	Done:             "done",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrSceneReused is returned when a Scene is run a second time.
var ErrSceneReused = errors.New("scene already ran")

// Scene runs one scripted command: type it, submit it, optionally wait for
// it, isolate its output and capture variables from it.
type Scene struct {
	Name    string
	Command string
	Rules   []Rule
	Wait    bool

	session string
	typist  *Typist
	buffer  BufferReader
	waiter  Waiter
	vars    *Vars
	logger  *log.Logger
	verbose bool

	state    State
	baseline string
	resolved string
	output   string
}

// NewScene snapshots the session buffer as the scene's baseline, so it must
// be called right before the scene runs.
func NewScene(ctx context.Context, st *Stage, name, command string, rules []Rule, wait bool) (*Scene, error) {
	s := &Scene{
		Name:    name,
		Command: command,
		Rules:   rules,
		Wait:    wait,
		session: st.Session,
		typist:  st.Typist,
		buffer:  st.Terminal,
		waiter:  st.Waiter,
		vars:    st.Vars,
		logger:  st.logger(),
		verbose: st.Verbose,
	}
	snapshot, err := s.buffer.CaptureHistory(ctx, s.session)
	if err != nil {
		return nil, fmt.Errorf("scene %q: baseline: %w", name, err)
	}
	s.baseline = strings.TrimRight(snapshot, "\n")
	s.state = BufferBaselined
	return s, nil
}

// State returns how far the scene got.
func (s *Scene) State() State { return s.state }

// Resolved is the command text after variable substitution.
func (s *Scene) Resolved() string { return s.resolved }

// Output is the isolated command output, available once captured.
func (s *Scene) Output() string { return s.output }

// Run implements Action.
func (s *Scene) Run(ctx context.Context) error {
	if s.state != BufferBaselined {
		return fmt.Errorf("scene %q (%s): %w", s.Name, s.state, ErrSceneReused)
	}

	s.resolved = s.vars.Substitute(s.Command)
	if err := s.typist.Emulate(ctx, s.resolved, false); err != nil {
		return fmt.Errorf("scene %q: %w", s.Name, err)
	}
	s.state = Typed

	if err := s.typist.Press(ctx, tmux.KeyEnter); err != nil {
		return fmt.Errorf("scene %q: %w", s.Name, err)
	}
	s.state = Submitted

	if s.Wait && s.waiter != nil {
		s.state = Waiting
		waitCtx, span := telemetry.StartSpan(ctx, "spielbash.scene.wait", telemetry.Text("scene", s.Name))
		err := s.waiter.Wait(waitCtx, s.session)
		telemetry.EndSpan(span, err)
		if err != nil {
			return fmt.Errorf("scene %q: waiting for %q: %w", s.Name, s.resolved, err)
		}
	}

	snapshot, err := s.buffer.CaptureHistory(ctx, s.session)
	if err != nil {
		return fmt.Errorf("scene %q: reading output: %w", s.Name, err)
	}
	s.output = IsolateOutput(s.baseline, snapshot, s.resolved)
	s.state = OutputCaptured

	for _, rule := range s.Rules {
		value, ok := Extract(rule.Pattern, s.output)
		telemetry.RecordCapture(ctx, rule.Var, value, ok)
		if !ok {
			if s.verbose {
				s.logger.Printf("Scene: %q: no match for %s", s.Name, rule.Var)
			}
			continue
		}
		s.vars.Set(rule.Var, value)
		if s.verbose {
			s.logger.Printf("Scene: %q: captured %s=%q", s.Name, NormalizeName(rule.Var), value)
		}
	}
	s.state = VariablesUpdated

	s.state = Done
	return nil
}

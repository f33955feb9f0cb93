// Package script decodes spielbash scripts: a title and an ordered list of
// units (command scenes, dialogue lines, key presses and pauses).
package script

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/steveyegge/spielbash/internal/tmux"
)

// Errors returned while decoding or validating a script.
var (
	ErrUnknownUnit  = errors.New("unrecognized script unit")
	ErrUnknownKey   = errors.New("unknown key name")
	ErrInvalidRegex = errors.New("invalid capture regex")
	ErrInvalidVar   = errors.New("invalid capture variable")
	ErrNoScenes     = errors.New("script has no scenes")
)

// Kind identifies which variant a Unit holds.
type Kind int

const (
	KindScene Kind = iota + 1
	KindDialogue
	KindKeyPress
	KindPause
)

func (k Kind) String() string {
	switch k {
	case KindScene:
		return "scene"
	case KindDialogue:
		return "line"
	case KindKeyPress:
		return "press_key"
	case KindPause:
		return "pause"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// CaptureRule extracts a variable from a scene's output.
type CaptureRule struct {
	Var   string `yaml:"var"`
	Regex string `yaml:"regex"`
}

// Unit is one entry of a script's scenes list. Only the fields that belong
// to Kind are meaningful.
type Unit struct {
	Kind Kind
	Name string

	// KindScene
	Action string
	Keep   []CaptureRule
	Wait   bool

	// KindDialogue
	Line string

	// KindKeyPress
	PressKey string

	// KindPause, in seconds
	Pause float64
}

// Label returns the name shown in progress output.
func (u Unit) Label() string {
	if u.Name != "" {
		return u.Name
	}
	switch u.Kind {
	case KindScene:
		return u.Action
	case KindDialogue:
		return u.Line
	case KindKeyPress:
		return u.PressKey
	case KindPause:
		return fmt.Sprintf("pause %gs", u.Pause)
	}
	return u.Kind.String()
}

// Script is a decoded spielbash script.
type Script struct {
	Title  string `yaml:"title"`
	Scenes []Unit `yaml:"scenes"`

	// Source is the location the script was loaded from, if any.
	Source string `yaml:"-"`
}

// Options controls script validation.
type Options struct {
	// StrictKeys makes unknown press_key names an error instead of a
	// fallback to Enter.
	StrictKeys bool
}

var unitFields = map[string]bool{
	"name":      true,
	"action":    true,
	"keep":      true,
	"wait":      true,
	"line":      true,
	"press_key": true,
	"pause":     true,
}

type rawUnit struct {
	Name     string        `yaml:"name"`
	Action   *string       `yaml:"action"`
	Keep     []CaptureRule `yaml:"keep"`
	Wait     bool          `yaml:"wait"`
	Line     *string       `yaml:"line"`
	PressKey *string       `yaml:"press_key"`
	Pause    *float64      `yaml:"pause"`
}

// UnmarshalYAML decodes a unit and decides its variant from the keys present.
// Exactly one of action, line, press_key or pause must be set.
func (u *Unit) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w at line %d: expected a mapping", ErrUnknownUnit, node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		if !unitFields[key.Value] {
			return fmt.Errorf("%w at line %d: unknown field %q", ErrUnknownUnit, key.Line, key.Value)
		}
	}

	var raw rawUnit
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("decoding unit at line %d: %w", node.Line, err)
	}

	var kinds []string
	*u = Unit{Name: raw.Name}
	if raw.Action != nil {
		kinds = append(kinds, "action")
		u.Kind = KindScene
		u.Action = *raw.Action
		u.Keep = raw.Keep
		u.Wait = raw.Wait
	}
	if raw.Line != nil {
		kinds = append(kinds, "line")
		u.Kind = KindDialogue
		u.Line = *raw.Line
	}
	if raw.PressKey != nil {
		kinds = append(kinds, "press_key")
		u.Kind = KindKeyPress
		u.PressKey = *raw.PressKey
	}
	if raw.Pause != nil {
		kinds = append(kinds, "pause")
		u.Kind = KindPause
		u.Pause = *raw.Pause
	}

	switch {
	case len(kinds) == 0:
		return fmt.Errorf("%w at line %d: need one of action, line, press_key or pause", ErrUnknownUnit, node.Line)
	case len(kinds) > 1:
		return fmt.Errorf("%w at line %d: ambiguous unit (%s)", ErrUnknownUnit, node.Line, strings.Join(kinds, ", "))
	}
	if u.Kind != KindScene && (len(raw.Keep) > 0 || raw.Wait) {
		return fmt.Errorf("%w at line %d: keep and wait only apply to action scenes", ErrUnknownUnit, node.Line)
	}
	return nil
}

// Parse decodes and validates a script.
func Parse(data []byte, opts Options) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing script: %w", err)
	}
	if err := s.Validate(opts); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads the script at location, which is a local path or any URL the
// afs package understands (file://, mem://, ...).
func Load(ctx context.Context, location string, opts Options) (*Script, error) {
	URL := location
	if !strings.Contains(location, "://") {
		abs, err := filepath.Abs(location)
		if err != nil {
			return nil, fmt.Errorf("resolving script path %s: %w", location, err)
		}
		URL = "file://" + filepath.ToSlash(abs)
	}
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("loading script %s: %w", location, err)
	}
	s, err := Parse(data, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}
	s.Source = location
	return s, nil
}

// Validate checks every unit: capture rules must name a variable and carry a
// compilable pattern, pauses must not be negative, and with StrictKeys every
// press_key must be a known key name.
func (s *Script) Validate(opts Options) error {
	if len(s.Scenes) == 0 {
		return ErrNoScenes
	}
	for i, u := range s.Scenes {
		if err := u.validate(opts); err != nil {
			return fmt.Errorf("scene %d (%s): %w", i+1, u.Label(), err)
		}
	}
	return nil
}

// varName matches the capture names that $NAME and ${NAME} tokens can refer to.
var varName = regexp.MustCompile(`^(?:\$\{[A-Za-z0-9_]+\}|\$?[A-Za-z0-9_]+)$`)

func (u Unit) validate(opts Options) error {
	switch u.Kind {
	case KindScene:
		if strings.TrimSpace(u.Action) == "" {
			return errors.New("empty action")
		}
		for _, rule := range u.Keep {
			if rule.Var == "" {
				return fmt.Errorf("%w: capture rule without var", ErrInvalidVar)
			}
			if !varName.MatchString(strings.TrimSpace(rule.Var)) {
				return fmt.Errorf("%w %q for regex %q: names are letters, digits and underscores, optionally written $NAME or ${NAME}",
					ErrInvalidVar, rule.Var, rule.Regex)
			}
			if _, err := CompileRule(rule); err != nil {
				return err
			}
		}
	case KindKeyPress:
		if _, ok := tmux.LookupKey(u.PressKey); !ok && opts.StrictKeys {
			return fmt.Errorf("%w %q (known: %s)", ErrUnknownKey, u.PressKey, strings.Join(tmux.KeyNames(), ", "))
		}
	case KindPause:
		if u.Pause < 0 {
			return fmt.Errorf("negative pause %g", u.Pause)
		}
	case KindDialogue:
	default:
		return fmt.Errorf("%w: kind %v", ErrUnknownUnit, u.Kind)
	}
	return nil
}

// CompileRule compiles a capture pattern in multi-line mode, so ^ and $
// match at line boundaries of the captured output.
func CompileRule(rule CaptureRule) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?m)" + rule.Regex)
	if err != nil {
		return nil, fmt.Errorf("%w for %s: %v", ErrInvalidRegex, rule.Var, err)
	}
	return re, nil
}

// Package config provides configuration loading and environment variable management.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"

	"github.com/steveyegge/spielbash/internal/constants"
)

// Config holds every setting a run needs. Timing values are in seconds so the
// TOML file, the environment and the command line all use the same unit.
//
// Resolution order: Default(), then the TOML file, then SPIELBASH_* environment
// variables, then explicitly set command-line flags.
type Config struct {
	// TypingSpeed is the pause after each emulated keystroke, in seconds.
	TypingSpeed float64 `toml:"typing_speed" split_words:"true"`

	// ReadingTime is the pause after a line has been fully typed, in seconds.
	ReadingTime float64 `toml:"reading_time" split_words:"true"`

	// Width and Height are the session size in cells. Zero means "match the
	// invoking terminal", falling back to 80x25 when there is none.
	Width  int `toml:"width" split_words:"true"`
	Height int `toml:"height" split_words:"true"`

	// Title is the recording title. A script's own title takes precedence.
	Title string `toml:"title" split_words:"true"`

	// SessionName is the tmux session name. Empty generates a unique one.
	SessionName string `toml:"session_name" split_words:"true"`

	// Socket isolates the recorded tmux server (tmux -L). Empty uses the
	// user's default server.
	Socket string `toml:"socket" split_words:"true"`

	// Recorder selects the recording backend: asciinema or builtin.
	Recorder string `toml:"recorder" split_words:"true"`

	// AsciinemaPath is the asciinema binary used by the asciinema recorder.
	AsciinemaPath string `toml:"asciinema_path" split_words:"true"`

	// AttachDelay is the pause between launching the recorder and the first
	// scene, in seconds.
	AttachDelay float64 `toml:"attach_delay" split_words:"true"`

	// WaitStrategy selects how waited scenes detect completion:
	// children, fixed or prompt.
	WaitStrategy string `toml:"wait_strategy" split_words:"true"`

	// PollInterval is the completion polling interval, in seconds.
	PollInterval float64 `toml:"poll_interval" split_words:"true"`

	// WaitTimeout bounds completion waits, in seconds. Zero waits forever.
	WaitTimeout float64 `toml:"wait_timeout" split_words:"true"`

	// FixedWait is the delay used by the fixed wait strategy, in seconds.
	FixedWait float64 `toml:"fixed_wait" split_words:"true"`

	// PromptPattern is the regular expression the prompt wait strategy
	// matches against the last non-empty line of the pane.
	PromptPattern string `toml:"prompt_pattern" split_words:"true"`

	// StrictKeys rejects unknown press_key names instead of pressing Enter.
	StrictKeys bool `toml:"strict_keys" split_words:"true"`

	// Env is exported into the recorded shell's environment.
	Env map[string]string `toml:"env" ignored:"true"`
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		TypingSpeed:   constants.DefaultTypingSpeed.Seconds(),
		ReadingTime:   constants.DefaultReadingTime.Seconds(),
		Recorder:      constants.RecorderAsciinema,
		AsciinemaPath: "asciinema",
		AttachDelay:   constants.RecorderAttachDelay.Seconds(),
		WaitStrategy:  constants.WaitChildren,
		PollInterval:  constants.PollInterval.Seconds(),
		FixedWait:     1,
		PromptPattern: `[$#%>]\s*$`,
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/spielbash/config.toml (or the
// platform equivalent). It returns "" when no config directory is known.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, constants.ConfigDirName, constants.ConfigFileName)
}

// LoadFile decodes the TOML file at path over cfg. Keys that do not map to a
// setting are an error, so typos do not go unnoticed.
func LoadFile(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnv overlays SPIELBASH_* environment variables on cfg. Variables that
// are not set leave the current value untouched. Only prefixed names are read:
// SPIELBASH_WIDTH applies, a bare WIDTH does not.
func ApplyEnv(cfg *Config) error {
	if err := envconfig.Process(constants.EnvPrefix, cfg); err != nil {
		return fmt.Errorf("reading %s_* environment: %w", constants.EnvPrefix, err)
	}
	return nil
}

// Load resolves defaults, the config file and the environment.
// A missing file is only an error when the path was given explicitly.
func Load(path string, explicit bool) (Config, error) {
	cfg := Default()
	if path != "" {
		err := LoadFile(path, &cfg)
		if err != nil && (explicit || !errors.Is(err, os.ErrNotExist)) {
			return cfg, err
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ResolveSize fills a zero width or height from the invoking terminal, then
// from the compiled-in defaults.
func (c *Config) ResolveSize(terminalSize func() (int, int, error)) {
	if c.Width > 0 && c.Height > 0 {
		return
	}
	if terminalSize != nil {
		if w, h, err := terminalSize(); err == nil && w > 0 && h > 0 {
			if c.Width <= 0 {
				c.Width = w
			}
			if c.Height <= 0 {
				c.Height = h
			}
		}
	}
	if c.Width <= 0 {
		c.Width = constants.DefaultWidth
	}
	if c.Height <= 0 {
		c.Height = constants.DefaultHeight
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	durations := []struct {
		name  string
		value float64
	}{
		{"typing_speed", c.TypingSpeed},
		{"reading_time", c.ReadingTime},
		{"attach_delay", c.AttachDelay},
		{"poll_interval", c.PollInterval},
		{"wait_timeout", c.WaitTimeout},
		{"fixed_wait", c.FixedWait},
	}
	for _, d := range durations {
		if d.value < 0 {
			return fmt.Errorf("%s must not be negative (got %g)", d.name, d.value)
		}
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("width and height must be positive (got %dx%d)", c.Width, c.Height)
	}
	switch c.Recorder {
	case constants.RecorderAsciinema, constants.RecorderBuiltin:
	default:
		return fmt.Errorf("unknown recorder %q (want %s or %s)", c.Recorder, constants.RecorderAsciinema, constants.RecorderBuiltin)
	}
	switch c.WaitStrategy {
	case constants.WaitChildren, constants.WaitFixed:
	case constants.WaitPrompt:
		if _, err := regexp.Compile(c.PromptPattern); err != nil {
			return fmt.Errorf("invalid prompt_pattern: %w", err)
		}
	default:
		return fmt.Errorf("unknown wait_strategy %q (want %s, %s or %s)", c.WaitStrategy,
			constants.WaitChildren, constants.WaitFixed, constants.WaitPrompt)
	}
	if c.WaitStrategy != constants.WaitFixed && c.PollInterval == 0 {
		return fmt.Errorf("poll_interval must be positive for the %s wait strategy", c.WaitStrategy)
	}
	return nil
}

// TypingDelay is the pause after each keystroke.
func (c Config) TypingDelay() time.Duration { return seconds(c.TypingSpeed) }

// ReadingDelay is the pause after a fully typed line.
func (c Config) ReadingDelay() time.Duration { return seconds(c.ReadingTime) }

// AttachWait is the pause after launching the recorder.
func (c Config) AttachWait() time.Duration { return seconds(c.AttachDelay) }

// PollEvery is the completion polling interval.
func (c Config) PollEvery() time.Duration { return seconds(c.PollInterval) }

// WaitLimit bounds completion waits; zero means unbounded.
func (c Config) WaitLimit() time.Duration { return seconds(c.WaitTimeout) }

// FixedDelay is the delay of the fixed wait strategy.
func (c Config) FixedDelay() time.Duration { return seconds(c.FixedWait) }

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

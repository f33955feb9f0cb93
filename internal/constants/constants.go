// Package constants defines shared constant values used throughout spielbash.
// Centralizing these magic strings improves maintainability and consistency.
package constants

import "time"

// Timing constants for typing emulation and session management.
//
// These are compiled-in defaults. The values actually used by a run come from
// config.Config, which can override every one of them.
const (
	// DefaultTypingSpeed is the pause after each emulated keystroke.
	DefaultTypingSpeed = 100 * time.Millisecond

	// DefaultReadingTime is the pause after a full line has been typed,
	// giving the viewer time to read it before it is submitted or erased.
	DefaultReadingTime = 2 * time.Second

	// RecorderAttachDelay is how long the director waits after launching the
	// recorder before the first scene runs, so the recorder is attached
	// before any output is produced.
	RecorderAttachDelay = 1 * time.Second

	// PollInterval is the default polling interval for completion waits.
	PollInterval = 100 * time.Millisecond

	// ShellExitTimeout bounds how long the director waits for the recorder to
	// observe the end of the session after `exit` was submitted.
	ShellExitTimeout = 10 * time.Second
)

// Viewport size used when the invoking terminal's size is unknown, in cells.
const (
	DefaultWidth  = 80
	DefaultHeight = 25
)

// Naming and file defaults.
const (
	// SessionPrefix prefixes generated tmux session names.
	SessionPrefix = "spielbash"

	// DefaultOutputFile is the recording file written when none is given.
	DefaultOutputFile = "movie.json"

	// EnvPrefix is the prefix for environment variable overrides (SPIELBASH_*).
	EnvPrefix = "SPIELBASH"

	// ConfigDirName is the directory under $XDG_CONFIG_HOME holding config.toml.
	ConfigDirName = "spielbash"

	// ConfigFileName is the default configuration file name.
	ConfigFileName = "config.toml"

	// ScratchBufferPrefix names the tmux paste buffer used while capturing
	// history. The buffer is deleted after every read.
	ScratchBufferPrefix = "spielbash-capture-"

	// ExitCommand is typed into the session once the script is done.
	ExitCommand = "exit"
)

// Wait strategies for scenes that request completion waiting.
const (
	WaitChildren = "children"
	WaitFixed    = "fixed"
	WaitPrompt   = "prompt"
)

// Recorder backends.
const (
	RecorderAsciinema = "asciinema"
	RecorderBuiltin   = "builtin"
)

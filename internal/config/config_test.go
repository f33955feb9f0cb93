package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

// resolvedDefault is Default() with the size resolved as a run without a
// terminal would see it.
func resolvedDefault() Config {
	cfg := Default()
	cfg.ResolveSize(nil)
	return cfg
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if cfg.Width != 0 || cfg.Height != 0 {
		t.Errorf("default size = %dx%d, want 0x0 (match the terminal)", cfg.Width, cfg.Height)
	}
	cfg = resolvedDefault()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.TypingDelay() != 100*time.Millisecond {
		t.Errorf("TypingDelay = %v, want 100ms", cfg.TypingDelay())
	}
	if cfg.ReadingDelay() != 2*time.Second {
		t.Errorf("ReadingDelay = %v, want 2s", cfg.ReadingDelay())
	}
	if cfg.WaitLimit() != 0 {
		t.Errorf("WaitLimit = %v, want unbounded (0)", cfg.WaitLimit())
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
typing_speed = 0.05
reading_time = 1.5
width = 120
height = 40
recorder = "builtin"
wait_strategy = "prompt"
prompt_pattern = '\$ $'
strict_keys = true

[env]
PS1 = "$ "
`)
	cfg := Default()
	if err := LoadFile(path, &cfg); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.TypingDelay() != 50*time.Millisecond {
		t.Errorf("TypingDelay = %v, want 50ms", cfg.TypingDelay())
	}
	if cfg.ReadingDelay() != 1500*time.Millisecond {
		t.Errorf("ReadingDelay = %v, want 1.5s", cfg.ReadingDelay())
	}
	if cfg.Width != 120 || cfg.Height != 40 {
		t.Errorf("size = %dx%d, want 120x40", cfg.Width, cfg.Height)
	}
	if cfg.Recorder != "builtin" || cfg.WaitStrategy != "prompt" || !cfg.StrictKeys {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Env["PS1"] != "$ " {
		t.Errorf("Env[PS1] = %q, want %q", cfg.Env["PS1"], "$ ")
	}
	// Keys absent from the file keep their defaults.
	if cfg.AsciinemaPath != "asciinema" {
		t.Errorf("AsciinemaPath = %q, want default", cfg.AsciinemaPath)
	}
}

func TestLoadFile_UnknownKey(t *testing.T) {
	path := writeConfig(t, "typing_sped = 0.5\n")
	cfg := Default()
	err := LoadFile(path, &cfg)
	if err == nil || !strings.Contains(err.Error(), "typing_sped") {
		t.Fatalf("LoadFile with typo = %v, want unknown key error", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SPIELBASH_TYPING_SPEED", "0.2")
	t.Setenv("SPIELBASH_SOCKET", "movie")
	t.Setenv("SPIELBASH_STRICT_KEYS", "true")

	cfg := Default()
	cfg.Title = "from file"
	if err := ApplyEnv(&cfg); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.TypingSpeed != 0.2 {
		t.Errorf("TypingSpeed = %g, want 0.2", cfg.TypingSpeed)
	}
	if cfg.Socket != "movie" || !cfg.StrictKeys {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if cfg.Title != "from file" {
		t.Errorf("unset env var clobbered Title: %q", cfg.Title)
	}
}

func TestApplyEnv_IgnoresUnprefixed(t *testing.T) {
	for _, name := range []string{"WIDTH", "HEIGHT", "TITLE", "SOCKET", "RECORDER", "SESSION_NAME", "TYPING_SPEED"} {
		t.Setenv("SPIELBASH_"+name, "")
		os.Unsetenv("SPIELBASH_" + name)
	}
	t.Setenv("WIDTH", "7")
	t.Setenv("HEIGHT", "auto")
	t.Setenv("TITLE", "unrelated")
	t.Setenv("SOCKET", "/run/something")
	t.Setenv("RECORDER", "vhs")
	t.Setenv("SESSION_NAME", "work")
	t.Setenv("TYPING_SPEED", "9")

	cfg := Default()
	want := Default()
	if err := ApplyEnv(&cfg); err != nil {
		t.Fatalf("ApplyEnv with only unprefixed variables: %v", err)
	}
	if !reflect.DeepEqual(cfg, want) {
		t.Errorf("unprefixed variables changed the config:\n got %+v\nwant %+v", cfg, want)
	}
}

func TestApplyEnv_SplitWords(t *testing.T) {
	t.Setenv("SPIELBASH_SESSION_NAME", "demo")
	t.Setenv("SPIELBASH_ASCIINEMA_PATH", "/opt/asciinema")
	t.Setenv("SPIELBASH_PROMPT_PATTERN", `\$ $`)

	cfg := Default()
	if err := ApplyEnv(&cfg); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.SessionName != "demo" || cfg.AsciinemaPath != "/opt/asciinema" || cfg.PromptPattern != `\$ $` {
		t.Errorf("multi-word variables not applied: %+v", cfg)
	}
}

func TestApplyEnv_BadValue(t *testing.T) {
	t.Setenv("SPIELBASH_WIDTH", "wide")
	cfg := Default()
	if err := ApplyEnv(&cfg); err == nil {
		t.Fatal("expected error for non-numeric SPIELBASH_WIDTH")
	}
}

func TestLoad_Layering(t *testing.T) {
	path := writeConfig(t, "width = 100\nheight = 30\n")
	t.Setenv("SPIELBASH_HEIGHT", "50")

	cfg, err := Load(path, true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Width != 100 {
		t.Errorf("Width = %d, want 100 from file", cfg.Width)
	}
	if cfg.Height != 50 {
		t.Errorf("Height = %d, want 50 from env", cfg.Height)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.toml")

	if _, err := Load(missing, false); err != nil {
		t.Errorf("Load of missing default config = %v, want nil", err)
	}
	_, err := Load(missing, true)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load of missing explicit config = %v, want ErrNotExist", err)
	}
}

func TestResolveSize(t *testing.T) {
	failing := func() (int, int, error) { return 0, 0, errors.New("not a terminal") }
	fixed := func() (int, int, error) { return 132, 43, nil }

	tests := []struct {
		name          string
		width, height int
		size          func() (int, int, error)
		wantW, wantH  int
	}{
		{"explicit size kept", 100, 30, fixed, 100, 30},
		{"terminal size", 0, 0, fixed, 132, 43},
		{"only width from terminal", 0, 30, fixed, 132, 30},
		{"fallback without terminal", 0, 0, failing, 80, 25},
		{"nil detector", 0, 0, nil, 80, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Width, cfg.Height = tt.width, tt.height
			cfg.ResolveSize(tt.size)
			if cfg.Width != tt.wantW || cfg.Height != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", cfg.Width, cfg.Height, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"negative typing speed", func(c *Config) { c.TypingSpeed = -1 }, "typing_speed"},
		{"zero width", func(c *Config) { c.Width = 0 }, "width and height"},
		{"unknown recorder", func(c *Config) { c.Recorder = "vhs" }, "unknown recorder"},
		{"unknown strategy", func(c *Config) { c.WaitStrategy = "psychic" }, "unknown wait_strategy"},
		{"bad prompt pattern", func(c *Config) { c.WaitStrategy = "prompt"; c.PromptPattern = "(" }, "prompt_pattern"},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }, "poll_interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := resolvedDefault()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}

	cfg := resolvedDefault()
	cfg.WaitStrategy = "fixed"
	cfg.PollInterval = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("fixed strategy does not poll, got %v", err)
	}
}

func TestSessionEnv(t *testing.T) {
	cfg := Default()
	cfg.Env = map[string]string{"PS1": "$ ", "SPIELBASH": "override"}

	env := SessionEnv(cfg, "demo")
	if env[EnvSession] != "demo" {
		t.Errorf("%s = %q, want demo", EnvSession, env[EnvSession])
	}
	if env[EnvSpielbash] != "override" {
		t.Errorf("user env should win, got %q", env[EnvSpielbash])
	}
	got := EnvToSlice(env)
	want := []string{"PS1=$ ", "SPIELBASH=override", "SPIELBASH_SESSION=demo"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("EnvToSlice = %v, want %v", got, want)
	}
}

func TestShellQuote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"tmux", "tmux"},
		{"attach-session", "attach-session"},
		{"", "''"},
		{"my title", "'my title'"},
		{"it's", `'it'\''s'`},
		{"$HOME", "'$HOME'"},
	}
	for _, tt := range tests {
		if got := ShellQuote(tt.in); got != tt.want {
			t.Errorf("ShellQuote(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := ShellJoin([]string{"tmux", "-u", "attach-session", "-t", "my demo"}); got != "tmux -u attach-session -t 'my demo'" {
		t.Errorf("ShellJoin = %q", got)
	}
}

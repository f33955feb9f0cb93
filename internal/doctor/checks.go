package doctor

import (
	"context"
	"fmt"
	"strings"

	"github.com/steveyegge/spielbash/internal/config"
	"github.com/steveyegge/spielbash/internal/constants"
	"github.com/steveyegge/spielbash/internal/deps"
)

// ToolCheck verifies that an external binary is installed, accessible and
// meets its minimum version. A tool that is not Required only warns.
type ToolCheck struct {
	BaseCheck
	Tool     deps.Tool
	Required bool
	// Purpose explains what the tool is needed for.
	Purpose string
}

// NewTmuxCheck checks the tmux binary every shoot needs.
func NewTmuxCheck() *ToolCheck {
	return &ToolCheck{
		BaseCheck: BaseCheck{
			CheckName:     "tmux-binary",
			CheckCategory: CategoryTools,
		},
		Tool:     deps.Tmux,
		Required: true,
		Purpose:  "tmux hosts the recorded session",
	}
}

// NewAsciinemaCheck checks the asciinema binary. It is required only when
// the asciinema recorder is selected.
func NewAsciinemaCheck(cfg config.Config) *ToolCheck {
	return &ToolCheck{
		BaseCheck: BaseCheck{
			CheckName:     "asciinema-binary",
			CheckCategory: CategoryTools,
		},
		Tool:     deps.Asciinema(cfg.AsciinemaPath),
		Required: cfg.Recorder == constants.RecorderAsciinema,
		Purpose:  "asciinema is the default recorder (--recorder builtin does without it)",
	}
}

// Run checks the tool and reports its version status.
func (c *ToolCheck) Run(ctx *CheckContext) *CheckResult {
	status, version, detail := c.Tool.Check(ctx.context())
	name := c.Tool.Name

	failed := StatusError
	if !c.Required {
		failed = StatusWarning
	}

	switch status {
	case deps.OK:
		return &CheckResult{
			Name:    c.Name(),
			Status:  StatusOK,
			Message: fmt.Sprintf("%s %s", name, version),
		}

	case deps.NotFound:
		return &CheckResult{
			Name:    c.Name(),
			Status:  failed,
			Message: fmt.Sprintf("%s not found in PATH", name),
			Details: []string{c.Purpose},
			FixHint: fmt.Sprintf("Install %s: %s", name, c.Tool.InstallURL),
		}

	case deps.TooOld:
		return &CheckResult{
			Name:    c.Name(),
			Status:  failed,
			Message: fmt.Sprintf("%s %s is too old (minimum: %s)", name, version, c.Tool.MinVersion),
			FixHint: fmt.Sprintf("Upgrade %s: %s", name, c.Tool.InstallURL),
		}

	case deps.ExecFailed:
		return &CheckResult{
			Name:    c.Name(),
			Status:  failed,
			Message: fmt.Sprintf("%s found but the version check failed: %s", name, detail),
			FixHint: fmt.Sprintf("Reinstall %s: %s", name, c.Tool.InstallURL),
		}

	case deps.Unknown:
		return &CheckResult{
			Name:    c.Name(),
			Status:  StatusWarning,
			Message: fmt.Sprintf("%s found but version could not be parsed: %s", name, detail),
		}
	}

	return &CheckResult{
		Name:    c.Name(),
		Status:  StatusWarning,
		Message: fmt.Sprintf("unexpected %s check status", name),
	}
}

// ConfigCheck validates the resolved configuration.
type ConfigCheck struct {
	BaseCheck
}

// NewConfigCheck creates a configuration check.
func NewConfigCheck() *ConfigCheck {
	return &ConfigCheck{
		BaseCheck: BaseCheck{
			CheckName:     "config",
			CheckCategory: CategoryConfig,
		},
	}
}

// Run validates ctx.Config.
func (c *ConfigCheck) Run(ctx *CheckContext) *CheckResult {
	cfg := ctx.Config
	if err := cfg.Validate(); err != nil {
		return &CheckResult{
			Name:    c.Name(),
			Status:  StatusError,
			Message: err.Error(),
			FixHint: "Edit " + config.DefaultPath() + " or the SPIELBASH_* environment",
		}
	}
	return &CheckResult{
		Name:   c.Name(),
		Status: StatusOK,
		Message: fmt.Sprintf("%dx%d, %s recorder, %s wait strategy",
			cfg.Width, cfg.Height, cfg.Recorder, cfg.WaitStrategy),
	}
}

// SessionManager lists and kills tmux sessions.
type SessionManager interface {
	ListSessions(ctx context.Context) ([]string, error)
	KillSession(ctx context.Context, name string) error
}

// StaleSessionCheck finds spielbash sessions left behind by interrupted
// runs. Fix kills them.
type StaleSessionCheck struct {
	FixableCheck
	Sessions SessionManager
}

// NewStaleSessionCheck creates a stale session check against m.
func NewStaleSessionCheck(m SessionManager) *StaleSessionCheck {
	return &StaleSessionCheck{
		FixableCheck: FixableCheck{BaseCheck: BaseCheck{
			CheckName:     "stale-sessions",
			CheckCategory: CategorySession,
		}},
		Sessions: m,
	}
}

func (c *StaleSessionCheck) stale(ctx context.Context) ([]string, error) {
	names, err := c.Sessions.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	var stale []string
	for _, name := range names {
		if strings.HasPrefix(name, constants.SessionPrefix+"-") {
			stale = append(stale, name)
		}
	}
	return stale, nil
}

// Run lists the leftover sessions.
func (c *StaleSessionCheck) Run(ctx *CheckContext) *CheckResult {
	stale, err := c.stale(ctx.context())
	if err != nil {
		return &CheckResult{
			Name:    c.Name(),
			Status:  StatusWarning,
			Message: fmt.Sprintf("could not list sessions: %v", err),
		}
	}
	if len(stale) == 0 {
		return &CheckResult{
			Name:    c.Name(),
			Status:  StatusOK,
			Message: "no leftover sessions",
		}
	}
	return &CheckResult{
		Name:    c.Name(),
		Status:  StatusWarning,
		Message: fmt.Sprintf("%d leftover session(s)", len(stale)),
		Details: stale,
		FixHint: "Run 'spielbash doctor --fix' or 'spielbash sessions --kill'",
	}
}

// Fix kills every leftover session.
func (c *StaleSessionCheck) Fix(ctx *CheckContext) error {
	stale, err := c.stale(ctx.context())
	if err != nil {
		return err
	}
	for _, name := range stale {
		if err := c.Sessions.KillSession(ctx.context(), name); err != nil {
			return fmt.Errorf("killing %s: %w", name, err)
		}
	}
	return nil
}

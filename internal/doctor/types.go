// Package doctor runs environment checks before a shoot: the external tools,
// the resolved configuration and leftover sessions from interrupted runs.
package doctor

import (
	"context"

	"github.com/steveyegge/spielbash/internal/config"
)

// CheckStatus is the outcome of one check.
type CheckStatus int

const (
	StatusOK CheckStatus = iota
	// StatusWarning does not stop a shoot.
	StatusWarning
	// StatusError will make a shoot fail.
	StatusError
)

func (s CheckStatus) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusWarning:
		return "Warning"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Check categories. Reports list them in this order, each under its heading.
const (
	CategoryTools   = "tools"
	CategoryConfig  = "config"
	CategorySession = "sessions"
)

var categories = []struct {
	name, heading string
}{
	{CategoryTools, "Tools"},
	{CategoryConfig, "Configuration"},
	{CategorySession, "Sessions"},
}

// CheckContext is what every check runs against.
type CheckContext struct {
	Ctx     context.Context
	Config  config.Config
	Verbose bool
}

func (c *CheckContext) context() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}

// CheckResult is what a check found.
type CheckResult struct {
	Name     string
	Category string
	Status   CheckStatus
	Message  string
	// Details are shown for failed checks, and for all checks when verbose.
	Details []string
	// FixHint tells the user how to repair a failed check by hand.
	FixHint string
}

// Check is one environment check.
type Check interface {
	Name() string
	Category() string
	Run(ctx *CheckContext) *CheckResult
	// CanFix reports whether Fix may be called.
	CanFix() bool
	Fix(ctx *CheckContext) error
}

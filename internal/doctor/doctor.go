package doctor

import "errors"

// ErrCannotFix is returned by Fix on checks that cannot repair themselves.
var ErrCannotFix = errors.New("check cannot be fixed automatically")

// Doctor runs a fixed list of checks in registration order.
type Doctor struct {
	checks []Check
}

// NewDoctor returns a Doctor with no checks.
func NewDoctor() *Doctor {
	return &Doctor{}
}

// Register appends one check.
func (d *Doctor) Register(check Check) {
	d.checks = append(d.checks, check)
}

// RegisterAll appends checks in order.
func (d *Doctor) RegisterAll(checks ...Check) {
	d.checks = append(d.checks, checks...)
}

// Run executes every check and collects the results.
func (d *Doctor) Run(ctx *CheckContext) *Report {
	report := &Report{}
	for _, check := range d.checks {
		report.Add(run(ctx, check))
	}
	return report
}

// Fix is Run, except that a failing fixable check is repaired and then
// checked again. A repair that does not bring the check to OK keeps the
// second result; a repair that errors keeps the first one and notes why.
func (d *Doctor) Fix(ctx *CheckContext) *Report {
	report := &Report{}
	for _, check := range d.checks {
		result := run(ctx, check)
		if result.Status != StatusOK && check.CanFix() {
			if err := check.Fix(ctx); err != nil {
				result.Details = append(result.Details, "Fix failed: "+err.Error())
			} else {
				result = run(ctx, check)
				if result.Status == StatusOK {
					result.Message += " (fixed)"
				}
			}
		}
		report.Add(result)
	}
	return report
}

// run executes one check and stamps the result with the check's identity.
func run(ctx *CheckContext, check Check) *CheckResult {
	result := check.Run(ctx)
	if result.Name == "" {
		result.Name = check.Name()
	}
	if result.Category == "" {
		result.Category = check.Category()
	}
	return result
}

// BaseCheck carries a check's name and category. Checks embedding it cannot
// be fixed.
type BaseCheck struct {
	CheckName     string
	CheckCategory string
}

func (b *BaseCheck) Name() string     { return b.CheckName }
func (b *BaseCheck) Category() string { return b.CheckCategory }
func (b *BaseCheck) CanFix() bool     { return false }

func (b *BaseCheck) Fix(*CheckContext) error { return ErrCannotFix }

// FixableCheck is BaseCheck for checks that implement Fix.
type FixableCheck struct {
	BaseCheck
}

func (f *FixableCheck) CanFix() bool { return true }

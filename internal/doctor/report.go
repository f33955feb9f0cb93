package doctor

import (
	"fmt"
	"io"
	"strings"

	"github.com/steveyegge/spielbash/internal/style"
)

// ReportSummary counts results by status.
type ReportSummary struct {
	Total    int
	OK       int
	Warnings int
	Errors   int
}

// Report holds the results of one doctor run in check order.
type Report struct {
	Checks  []*CheckResult
	Summary ReportSummary
}

// Add appends a result and counts it.
func (r *Report) Add(result *CheckResult) {
	r.Checks = append(r.Checks, result)
	r.Summary.Total++
	switch result.Status {
	case StatusOK:
		r.Summary.OK++
	case StatusWarning:
		r.Summary.Warnings++
	case StatusError:
		r.Summary.Errors++
	}
}

func (r *Report) HasErrors() bool   { return r.Summary.Errors > 0 }
func (r *Report) HasWarnings() bool { return r.Summary.Warnings > 0 }

// Print writes the results grouped by category, known categories first in
// their fixed order, then any others in the order they were first seen.
func (r *Report) Print(w io.Writer, verbose bool) {
	for _, g := range r.groups() {
		fmt.Fprintln(w, style.Bold.Render(g.heading))
		for _, res := range g.results {
			printResult(w, res, verbose)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, r.summaryLine())
}

type group struct {
	heading string
	results []*CheckResult
}

func (r *Report) groups() []group {
	byCategory := make(map[string][]*CheckResult)
	var extra []string
	for _, res := range r.Checks {
		if _, seen := byCategory[res.Category]; !seen && !isKnownCategory(res.Category) {
			extra = append(extra, res.Category)
		}
		byCategory[res.Category] = append(byCategory[res.Category], res)
	}

	var out []group
	for _, c := range categories {
		if results := byCategory[c.name]; len(results) > 0 {
			out = append(out, group{c.heading, results})
		}
	}
	for _, name := range extra {
		heading := name
		if heading == "" {
			heading = "Other"
		}
		out = append(out, group{heading, byCategory[name]})
	}
	return out
}

func isKnownCategory(name string) bool {
	for _, c := range categories {
		if c.name == name {
			return true
		}
	}
	return false
}

func printResult(w io.Writer, res *CheckResult, verbose bool) {
	prefix := style.SuccessPrefix
	switch res.Status {
	case StatusWarning:
		prefix = style.WarningPrefix
	case StatusError:
		prefix = style.ErrorPrefix
	}
	fmt.Fprintf(w, "  %s %s: %s\n", prefix, res.Name, res.Message)

	failed := res.Status != StatusOK
	if verbose || failed {
		for _, d := range res.Details {
			fmt.Fprintf(w, "      %s\n", d)
		}
	}
	if failed && res.FixHint != "" {
		fmt.Fprintf(w, "      %s %s\n", style.ArrowPrefix, res.FixHint)
	}
}

func (r *Report) summaryLine() string {
	parts := []string{fmt.Sprintf("%d checks", r.Summary.Total)}
	if n := r.Summary.OK; n > 0 {
		parts = append(parts, style.Success.Render(fmt.Sprintf("%d passed", n)))
	}
	if n := r.Summary.Warnings; n > 0 {
		parts = append(parts, style.Warning.Render(fmt.Sprintf("%d warnings", n)))
	}
	if n := r.Summary.Errors; n > 0 {
		parts = append(parts, style.Error.Render(fmt.Sprintf("%d errors", n)))
	}
	return strings.Join(parts, ", ")
}

package scene

import (
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// IsolateOutput returns what a command printed: the part of snapshot that was
// appended after baseline, cut after the last occurrence of command and
// stripped of surrounding newlines. When command does not appear, everything
// appended is returned.
func IsolateOutput(baseline, snapshot, command string) string {
	out := appended(baseline, snapshot)
	if command != "" {
		if idx := strings.LastIndex(out, command); idx >= 0 {
			out = out[idx+len(command):]
		}
	}
	return strings.Trim(out, "\n")
}

// appended returns the content of snapshot that follows baseline.
//
// Normally baseline is a prefix of snapshot. When tmux trimmed scrollback
// between the two reads it is not, and the end of the baseline is located by
// line matching instead: the longest run of lines both share anchors the
// alignment, and a partially matching last line (the prompt the command was
// typed after) is cut off too.
func appended(baseline, snapshot string) string {
	if strings.HasPrefix(snapshot, baseline) {
		return snapshot[len(baseline):]
	}

	a := difflib.SplitLines(baseline)
	b := difflib.SplitLines(snapshot)
	m := difflib.NewMatcher(a, b)

	var best difflib.Match
	for _, block := range m.GetMatchingBlocks() {
		if block.Size > best.Size {
			best = block
		}
	}
	if best.Size == 0 {
		return snapshot
	}

	rest := strings.Join(b[best.B+best.Size:], "")
	tail := strings.TrimSuffix(strings.Join(a[best.A+best.Size:], ""), "\n")
	if tail != "" && strings.HasPrefix(rest, tail) {
		rest = rest[len(tail):]
	}
	return rest
}

// Rule extracts one variable from a scene's output.
type Rule struct {
	Var     string
	Pattern *regexp.Regexp
}

// Extract applies pattern to output. The first match wins: its first capture
// group when the pattern has groups, otherwise the whole match.
func Extract(pattern *regexp.Regexp, output string) (string, bool) {
	m := pattern.FindStringSubmatch(output)
	if m == nil {
		return "", false
	}
	if len(m) > 1 {
		return m[1], true
	}
	return m[0], true
}

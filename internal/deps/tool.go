// Package deps checks the external programs spielbash drives.
package deps

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// versionTimeout bounds a single `--version` style invocation.
const versionTimeout = 10 * time.Second

// Status represents the state of a tool installation.
type Status int

const (
	OK         Status = iota // found, version compatible
	NotFound                 // not in PATH
	TooOld                   // found but version too old
	ExecFailed               // found but the version command failed
	Unknown                  // version command ran but output couldn't be parsed
)

// Tool describes an external binary and its version requirement.
type Tool struct {
	// Name is the binary looked up in PATH when Path is empty.
	Name string
	Path string

	VersionArgs []string

	// Pattern extracts the version from the version command output; the
	// first group is the version.
	Pattern *regexp.Regexp

	MinVersion string
	InstallURL string
}

// Tmux is the terminal multiplexer hosting the recorded session. 3.2 is the
// first release whose new-session accepts -e.
var Tmux = Tool{
	Name:        "tmux",
	VersionArgs: []string{"-V"},
	Pattern:     regexp.MustCompile(`tmux (?:next-)?(\d+\.\d+)`),
	MinVersion:  "3.2",
	InstallURL:  "https://github.com/tmux/tmux/wiki/Installing",
}

// Asciinema returns the asciinema recorder found at path (a name or a path).
func Asciinema(path string) Tool {
	if path == "" {
		path = "asciinema"
	}
	return Tool{
		Name:        "asciinema",
		Path:        path,
		VersionArgs: []string{"--version"},
		Pattern:     regexp.MustCompile(`asciinema (\d+\.\d+(?:\.\d+)?)`),
		MinVersion:  "2.0.0",
		InstallURL:  "https://docs.asciinema.org/getting-started/",
	}
}

// Check reports whether the tool is installed and new enough.
// Returns status, the installed version (if found), and diagnostic detail
// for failure cases (stderr/error output).
func (t Tool) Check(ctx context.Context) (Status, string, string) {
	bin := t.Path
	if bin == "" {
		bin = t.Name
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return NotFound, "", ""
	}

	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	output, err := exec.CommandContext(ctx, path, t.VersionArgs...).CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			detail = err.Error()
		}
		return ExecFailed, "", fmt.Sprintf("at %s: %s", path, detail)
	}

	version := t.parseVersion(string(output))
	if version == "" {
		return Unknown, "", strings.TrimSpace(string(output))
	}
	if t.MinVersion != "" && CompareVersions(version, t.MinVersion) < 0 {
		return TooOld, version, ""
	}
	return OK, version, ""
}

func (t Tool) parseVersion(output string) string {
	if t.Pattern == nil {
		return ""
	}
	if m := t.Pattern.FindStringSubmatch(output); len(m) >= 2 {
		return m[1]
	}
	return ""
}

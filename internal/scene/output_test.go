package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/spielbash/internal/script"
)

func TestIsolateOutput(t *testing.T) {
	tests := []struct {
		name                        string
		baseline, snapshot, command string
		want                        string
	}{
		{
			name:     "baseline plus typed command plus output",
			baseline: "user@host:~$ ",
			snapshot: "user@host:~$ " + "echo hi" + "\nhi\n",
			command:  "echo hi",
			want:     "hi",
		},
		{
			name:     "multi-line output keeps inner newlines",
			baseline: "$ ",
			snapshot: "$ printf 'a\\n\\nb'\na\n\nb\n\n\n",
			command:  "printf 'a\\n\\nb'",
			want:     "a\n\nb",
		},
		{
			name:     "cut after the last occurrence of the command",
			baseline: "$ ",
			snapshot: "$ echo echo\necho\n",
			command:  "echo echo",
			want:     "echo",
		},
		{
			name:     "command missing keeps everything appended",
			baseline: "$ ",
			snapshot: "$ \nsurprise\n",
			command:  "ls",
			want:     "surprise",
		},
		{
			name:     "earlier history is ignored",
			baseline: "$ ls\nfile\n$ ",
			snapshot: "$ ls\nfile\n$ ls\nfile\nother\n",
			command:  "ls",
			want:     "file\nother",
		},
		{
			name:     "no output",
			baseline: "$",
			snapshot: "$ true\n$\n\n",
			command:  "true",
			want:     "$",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsolateOutput(tt.baseline, tt.snapshot, tt.command))
		})
	}
}

func TestIsolateOutput_ScrollbackTrimmed(t *testing.T) {
	// The oldest line scrolled out of history between the two reads, so the
	// baseline is no longer a prefix of the snapshot.
	baseline := "line1\nline2\nline3\n$"
	snapshot := "line2\nline3\n$ echo hi\nhi\n$"

	assert.Equal(t, "hi\n$", IsolateOutput(baseline, snapshot, "echo hi"))
}

func TestIsolateOutput_NothingInCommon(t *testing.T) {
	assert.Equal(t, "a\nb", IsolateOutput("x", "a\nb\n", ""))
}

func TestExtract(t *testing.T) {
	compile := func(pattern string) *Rule {
		re, err := script.CompileRule(script.CaptureRule{Var: "V", Regex: pattern})
		require.NoError(t, err)
		return &Rule{Var: "V", Pattern: re}
	}

	got, ok := Extract(compile(`IP: (\S+)`).Pattern, "IP: 10.0.0.5\n")
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.5", got)

	got, ok = Extract(compile(`\d+\.\d+`).Pattern, "version 1.22 and 1.23")
	assert.True(t, ok)
	assert.Equal(t, "1.22", got, "first match, whole match without groups")

	got, ok = Extract(compile(`^port=(\d+)$`).Pattern, "host=a\nport=8080\n")
	assert.True(t, ok)
	assert.Equal(t, "8080", got, "anchors match at line boundaries")

	_, ok = Extract(compile(`IP: (\S+)`).Pattern, "no address here")
	assert.False(t, ok)
}

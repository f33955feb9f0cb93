package script

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
)

const demoScript = `
title: Raiders of the lost shell
scenes:
  - name: find the host
    action: hostname -I
    wait: true
    keep:
      - var: $IP
        regex: '^(\S+)'
  - line: "now we ping it"
  - name: ping
    action: ping -c 1 $IP
    wait: true
  - press_key: enter
  - pause: 0.5
`

func TestParse_AllUnitKinds(t *testing.T) {
	s, err := Parse([]byte(demoScript), Options{})
	require.NoError(t, err)

	assert.Equal(t, "Raiders of the lost shell", s.Title)
	require.Len(t, s.Scenes, 5)

	scene := s.Scenes[0]
	assert.Equal(t, KindScene, scene.Kind)
	assert.Equal(t, "find the host", scene.Name)
	assert.Equal(t, "hostname -I", scene.Action)
	assert.True(t, scene.Wait)
	assert.Equal(t, []CaptureRule{{Var: "$IP", Regex: `^(\S+)`}}, scene.Keep)

	assert.Equal(t, KindDialogue, s.Scenes[1].Kind)
	assert.Equal(t, "now we ping it", s.Scenes[1].Line)

	assert.Equal(t, KindScene, s.Scenes[2].Kind)
	assert.Empty(t, s.Scenes[2].Keep)

	assert.Equal(t, KindKeyPress, s.Scenes[3].Kind)
	assert.Equal(t, "enter", s.Scenes[3].PressKey)

	assert.Equal(t, KindPause, s.Scenes[4].Kind)
	assert.InDelta(t, 0.5, s.Scenes[4].Pause, 1e-9)
}

func TestParse_IntegerPause(t *testing.T) {
	s, err := Parse([]byte("scenes:\n  - pause: 1\n"), Options{})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, s.Scenes[0].Pause, 1e-9)
}

func TestParse_UnknownUnits(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no variant", "scenes:\n  - name: lonely\n", "need one of"},
		{"two variants", "scenes:\n  - action: ls\n    line: hi\n", "ambiguous"},
		{"unknown field", "scenes:\n  - action: ls\n    wiat: true\n", `"wiat"`},
		{"not a mapping", "scenes:\n  - just text\n", "expected a mapping"},
		{"keep on dialogue", "scenes:\n  - line: hi\n    wait: true\n", "only apply"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), Options{})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnknownUnit)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_NoScenes(t *testing.T) {
	_, err := Parse([]byte("title: empty\n"), Options{})
	assert.ErrorIs(t, err, ErrNoScenes)
}

func TestParse_InvalidRegex(t *testing.T) {
	src := "scenes:\n  - action: ls\n    keep:\n      - var: X\n        regex: '('\n"
	_, err := Parse([]byte(src), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRegex)
	assert.Contains(t, err.Error(), "scene 1")
}

func TestParse_CaptureRuleNeedsVar(t *testing.T) {
	src := "scenes:\n  - action: ls\n    keep:\n      - regex: 'x'\n"
	_, err := Parse([]byte(src), Options{})
	assert.ErrorIs(t, err, ErrInvalidVar)
}

func TestParse_CaptureVarNames(t *testing.T) {
	for _, name := range []string{"IP", "$IP", "${IP}", "host_ip2", " $IP "} {
		src := "scenes:\n  - action: hostname\n    keep:\n      - var: '" + name + "'\n        regex: '(.+)'\n"
		_, err := Parse([]byte(src), Options{})
		assert.NoError(t, err, "var %q", name)
	}

	for _, name := range []string{"@host-ip", "$HOST.IP", "${HOST", "$", "${}", "HOST IP"} {
		src := "scenes:\n  - name: lookup\n    action: hostname\n    keep:\n      - var: '" + name + "'\n        regex: '(.+)'\n"
		_, err := Parse([]byte(src), Options{})
		require.Error(t, err, "var %q", name)
		assert.ErrorIs(t, err, ErrInvalidVar)
		assert.Contains(t, err.Error(), "scene 1 (lookup)")
		assert.Contains(t, err.Error(), "(.+)")
	}
}

func TestParse_NegativePause(t *testing.T) {
	_, err := Parse([]byte("scenes:\n  - pause: -1\n"), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative pause")
}

func TestParse_StrictKeys(t *testing.T) {
	src := []byte("scenes:\n  - press_key: HYPERSPACE\n")

	s, err := Parse(src, Options{})
	require.NoError(t, err, "lenient mode accepts unknown keys")
	assert.Equal(t, "HYPERSPACE", s.Scenes[0].PressKey)

	_, err = Parse(src, Options{StrictKeys: true})
	assert.ErrorIs(t, err, ErrUnknownKey)

	_, err = Parse([]byte("scenes:\n  - press_key: ctrl-c\n"), Options{StrictKeys: true})
	assert.NoError(t, err)
}

func TestCompileRule_MultiLine(t *testing.T) {
	re, err := CompileRule(CaptureRule{Var: "V", Regex: `^b=(\d+)$`})
	require.NoError(t, err)
	m := re.FindStringSubmatch("a=1\nb=2\nc=3")
	require.Len(t, m, 2)
	assert.Equal(t, "2", m[1])
}

func TestUnitLabel(t *testing.T) {
	assert.Equal(t, "named", Unit{Kind: KindScene, Name: "named", Action: "ls"}.Label())
	assert.Equal(t, "ls -la", Unit{Kind: KindScene, Action: "ls -la"}.Label())
	assert.Equal(t, "hello", Unit{Kind: KindDialogue, Line: "hello"}.Label())
	assert.Equal(t, "TAB", Unit{Kind: KindKeyPress, PressKey: "TAB"}.Label())
	assert.Equal(t, "pause 1.5s", Unit{Kind: KindPause, Pause: 1.5}.Label())
}

func TestLoad_LocalPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movie.yaml")
	require.NoError(t, os.WriteFile(path, []byte(demoScript), 0644))

	s, err := Load(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.Equal(t, path, s.Source)
	assert.Len(t, s.Scenes, 5)
}

func TestLoad_MemURL(t *testing.T) {
	ctx := context.Background()
	URL := "mem://localhost/spielbash/movie.yaml"
	fs := afs.New()
	require.NoError(t, fs.Upload(ctx, URL, 0644, strings.NewReader(demoScript)))

	s, err := Load(ctx, URL, Options{})
	require.NoError(t, err)
	assert.Equal(t, URL, s.Source)
	assert.Equal(t, "Raiders of the lost shell", s.Title)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading script")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "scene", KindScene.String())
	assert.Equal(t, "pause", KindPause.String())
	assert.Equal(t, "Kind(42)", Kind(42).String())
}

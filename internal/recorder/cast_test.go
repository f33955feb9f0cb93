package recorder

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodeCast splits an asciicast v2 stream into its header and events.
func decodeCast(t *testing.T, data []byte) (Header, [][]interface{}) {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	require.NotEmpty(t, lines)

	var h Header
	require.NoError(t, json.Unmarshal(lines[0], &h))
	var events [][]interface{}
	for _, line := range lines[1:] {
		var ev []interface{}
		require.NoError(t, json.Unmarshal(line, &ev), "event %q", line)
		events = append(events, ev)
	}
	return h, events
}

type stepClock struct {
	t    time.Time
	step time.Duration
}

func (c *stepClock) now() time.Time {
	cur := c.t
	c.t = c.t.Add(c.step)
	return cur
}

func TestCastWriter_HeaderAndEvents(t *testing.T) {
	var buf bytes.Buffer
	clock := &stepClock{t: time.Unix(1700000000, 0), step: 250 * time.Millisecond}

	cw, err := newCastWriter(&buf, Header{Width: 100, Height: 30, Title: "demo <1>"}, clock.now)
	require.NoError(t, err)
	_, err = cw.Write([]byte("$ ls\r\n"))
	require.NoError(t, err)
	_, err = cw.Write([]byte("file\r\n"))
	require.NoError(t, err)
	require.NoError(t, cw.Flush())

	assert.Contains(t, buf.String(), `"title":"demo <1>"`, "HTML is not escaped")

	h, events := decodeCast(t, buf.Bytes())
	assert.Equal(t, 2, h.Version)
	assert.Equal(t, 100, h.Width)
	assert.Equal(t, 30, h.Height)
	assert.Equal(t, int64(1700000000), h.Timestamp)

	require.Len(t, events, 2)
	assert.Equal(t, []interface{}{0.25, "o", "$ ls\r\n"}, events[0])
	assert.Equal(t, []interface{}{0.5, "o", "file\r\n"}, events[1])
}

func TestCastWriter_SplitsOnRuneBoundaries(t *testing.T) {
	var buf bytes.Buffer
	cw, err := newCastWriter(&buf, Header{Width: 80, Height: 25}, nil)
	require.NoError(t, err)

	e := []byte("é") // 0xC3 0xA9
	n, err := cw.Write(append([]byte("caf"), e[0]))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	_, err = cw.Write(append([]byte{e[1]}, " au lait"...))
	require.NoError(t, err)

	_, events := decodeCast(t, buf.Bytes())
	require.Len(t, events, 2)
	assert.Equal(t, "caf", events[0][2])
	assert.Equal(t, "é au lait", events[1][2])
}

func TestCastWriter_HoldsBackLonePartialWrite(t *testing.T) {
	var buf bytes.Buffer
	cw, err := newCastWriter(&buf, Header{Width: 80, Height: 25}, nil)
	require.NoError(t, err)

	thumb := []byte("👍")
	_, err = cw.Write(thumb[:2])
	require.NoError(t, err)
	_, events := decodeCast(t, buf.Bytes())
	assert.Empty(t, events, "nothing complete yet")

	_, err = cw.Write(thumb[2:])
	require.NoError(t, err)
	_, events = decodeCast(t, buf.Bytes())
	require.Len(t, events, 1)
	assert.Equal(t, "👍", events[0][2])
}

func TestCastWriter_FlushEmitsPending(t *testing.T) {
	var buf bytes.Buffer
	cw, err := newCastWriter(&buf, Header{Width: 80, Height: 25}, nil)
	require.NoError(t, err)

	_, err = cw.Write([]byte{'x', 0xE2, 0x82})
	require.NoError(t, err)
	require.NoError(t, cw.Flush())
	require.NoError(t, cw.Flush(), "second flush is a no-op")

	_, events := decodeCast(t, buf.Bytes())
	require.Len(t, events, 2)
	assert.Equal(t, "x", events[0][2])
}

func TestCompletePrefix(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want int
	}{
		{"empty", nil, 0},
		{"ascii", []byte("abc"), 3},
		{"complete two-byte", []byte("aé"), 3},
		{"partial two-byte", []byte{'a', 0xC3}, 1},
		{"partial three-byte", []byte{'a', 0xE2, 0x82}, 1},
		{"complete three-byte", []byte("a€"), 4},
		{"partial four-byte", []byte{0xF0, 0x9F, 0x91}, 0},
		{"complete four-byte", []byte("👍"), 4},
		{"stray continuation", []byte{'a', 0x82}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, completePrefix(tt.in))
		})
	}
}

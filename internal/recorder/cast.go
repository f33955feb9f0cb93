package recorder

import (
	"encoding/json"
	"io"
	"math"
	"time"
	"unicode/utf8"
)

// Header is the first line of an asciicast v2 file.
type Header struct {
	Version   int               `json:"version"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Timestamp int64             `json:"timestamp,omitempty"`
	Title     string            `json:"title,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
}

// castWriter turns terminal output into asciicast v2 "o" events. Writes are
// split on UTF-8 boundaries; an incomplete trailing sequence is held back
// until the rest of it arrives.
type castWriter struct {
	enc     *json.Encoder
	start   time.Time
	now     func() time.Time
	pending []byte
}

func newCastWriter(w io.Writer, h Header, now func() time.Time) (*castWriter, error) {
	if now == nil {
		now = time.Now
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	start := now()
	if h.Version == 0 {
		h.Version = 2
	}
	if h.Timestamp == 0 {
		h.Timestamp = start.Unix()
	}
	if err := enc.Encode(h); err != nil {
		return nil, err
	}
	return &castWriter{enc: enc, start: start, now: now}, nil
}

// Write records p as one output event.
func (c *castWriter) Write(p []byte) (int, error) {
	data := append(c.pending, p...)
	cut := completePrefix(data)
	c.pending = append([]byte(nil), data[cut:]...)
	if cut == 0 {
		return len(p), nil
	}
	if err := c.event(data[:cut]); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Flush emits whatever is held back, even if it is not valid UTF-8.
func (c *castWriter) Flush() error {
	if len(c.pending) == 0 {
		return nil
	}
	data := c.pending
	c.pending = nil
	return c.event(data)
}

func (c *castWriter) event(data []byte) error {
	elapsed := c.now().Sub(c.start).Seconds()
	elapsed = math.Round(elapsed*1e6) / 1e6
	return c.enc.Encode([]interface{}{elapsed, "o", string(data)})
}

// completePrefix returns the length of the longest prefix of data that does
// not end inside a multi-byte UTF-8 sequence.
func completePrefix(data []byte) int {
	// A UTF-8 sequence is at most 4 bytes, so only the last 3 can be partial.
	for back := 1; back <= 3 && back <= len(data); back++ {
		i := len(data) - back
		b := data[i]
		if b < utf8.RuneSelf {
			return len(data)
		}
		if utf8.RuneStart(b) {
			if utf8.FullRune(data[i:]) {
				return len(data)
			}
			return i
		}
	}
	return len(data)
}

package recorder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/steveyegge/spielbash/internal/util"
)

// Errors returned by Finalize.
var (
	ErrEmptyRecording = errors.New("recording is empty")
	ErrBadRecording   = errors.New("recording header is not a JSON object")
)

var errNotSingleObject = errors.New("not a single JSON object")

// Finalize fills in a missing or zero terminal size in the recording header,
// so players do not fall back to their own guess. Both asciicast v1 (one
// JSON object) and v2/v3 (header line followed by events) are handled. It
// reports whether the file was rewritten.
func Finalize(path string, width, height int) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("reading recording: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return false, fmt.Errorf("%s: %w", path, ErrEmptyRecording)
	}

	if obj, err := decodeObject(data); err == nil {
		if !fillSize(obj, width, height) {
			return false, nil
		}
		out, err := encodeObject(obj)
		if err != nil {
			return false, err
		}
		return true, util.AtomicReplace(path, out)
	}

	header, rest := data, []byte(nil)
	if nl := bytes.IndexByte(data, '\n'); nl >= 0 {
		header, rest = data[:nl], data[nl:]
	}
	obj, err := decodeObject(header)
	if err != nil {
		return false, fmt.Errorf("%s: %w: %v", path, ErrBadRecording, err)
	}
	if !fillSize(obj, width, height) {
		return false, nil
	}
	out, err := encodeObject(obj)
	if err != nil {
		return false, err
	}
	return true, util.AtomicReplace(path, append(out, rest...))
}

func decodeObject(data []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errNotSingleObject
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); err != io.EOF {
		return nil, errNotSingleObject
	}
	return obj, nil
}

func encodeObject(obj map[string]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(obj); err != nil {
		return nil, fmt.Errorf("encoding recording header: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// fillSize sets absent or zero size fields and reports whether it changed
// anything. asciicast v3 keeps the size under "term" as cols/rows.
func fillSize(obj map[string]interface{}, width, height int) bool {
	target, wKey, hKey := obj, "width", "height"
	if isNumber(obj["version"], 3) {
		term, ok := obj["term"].(map[string]interface{})
		if !ok {
			term = map[string]interface{}{}
			obj["term"] = term
		}
		target, wKey, hKey = term, "cols", "rows"
	}
	changed := false
	if isZero(target[wKey]) {
		target[wKey] = width
		changed = true
	}
	if isZero(target[hKey]) {
		target[hKey] = height
		changed = true
	}
	return changed
}

func isZero(v interface{}) bool {
	if v == nil {
		return true
	}
	return isNumber(v, 0)
}

func isNumber(v interface{}, want int64) bool {
	n, ok := v.(json.Number)
	if !ok {
		return false
	}
	if i, err := n.Int64(); err == nil {
		return i == want
	}
	f, err := n.Float64()
	return err == nil && f == float64(want)
}

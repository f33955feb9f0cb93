package scene

import (
	"sort"
	"strings"
	"sync"
)

// Vars is the variable table shared by all scenes of a run. Values are only
// ever added or overwritten, never cleared; the last writer wins.
type Vars struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewVars returns an empty table.
func NewVars() *Vars {
	return &Vars{values: make(map[string]string)}
}

// NormalizeName strips "$" or "${...}" decoration, so "$IP", "${IP}" and
// "IP" all name the same variable.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "${") && strings.HasSuffix(name, "}") {
		return name[2 : len(name)-1]
	}
	return strings.TrimPrefix(name, "$")
}

// Set stores value under name.
func (v *Vars) Set(name, value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.values[NormalizeName(name)] = value
}

// Get returns the value stored under name.
func (v *Vars) Get(name string) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	val, ok := v.values[NormalizeName(name)]
	return val, ok
}

// Names returns the known variable names, sorted.
func (v *Vars) Names() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	names := make([]string, 0, len(v.values))
	for k := range v.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Substitute replaces $name and ${name} tokens with known values in a single
// left-to-right pass. Names consist of letters, digits and underscores, so
// $HOSTNAME is one token and is not touched by a variable HOST. Unknown
// tokens are kept verbatim and substituted values are never rescanned.
func (v *Vars) Substitute(text string) string {
	if !strings.Contains(text, "$") {
		return text
	}
	v.mu.RLock()
	defer v.mu.RUnlock()

	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		if text[i] != '$' || i+1 >= len(text) {
			b.WriteByte(text[i])
			i++
			continue
		}
		if text[i+1] == '{' {
			end := strings.IndexByte(text[i+2:], '}')
			if end >= 0 {
				name := text[i+2 : i+2+end]
				if val, ok := v.values[name]; ok && isIdentifier(name) {
					b.WriteString(val)
					i += end + 3
					continue
				}
			}
			b.WriteByte('$')
			i++
			continue
		}
		j := i + 1
		for j < len(text) && isIdentByte(text[j]) {
			j++
		}
		if j == i+1 {
			b.WriteByte('$')
			i++
			continue
		}
		if val, ok := v.values[text[i+1:j]]; ok {
			b.WriteString(val)
		} else {
			b.WriteString(text[i:j])
		}
		i = j
	}
	return b.String()
}

func isIdentByte(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentByte(s[i]) {
			return false
		}
	}
	return true
}

package tmux

import "strings"

// Key is a tmux key identifier for send-keys.
//
// Named keys (Space, C-m, ...) are sent as tmux key names; any other value is
// sent literally with send-keys -l.
type Key string

// Named keys.
const (
	KeySpace     Key = "Space"
	KeyEnter     Key = "C-m"
	KeyBackspace Key = "C-h"
	KeyTab       Key = "Tab"
	KeyEscape    Key = "Escape"
	KeyUp        Key = "Up"
	KeyDown      Key = "Down"
	KeyLeft      Key = "Left"
	KeyRight     Key = "Right"
	KeyCtrlC     Key = "C-c"
	KeyCtrlD     Key = "C-d"
	KeyCtrlL     Key = "C-l"
)

var namedKeys = map[Key]bool{
	KeySpace:     true,
	KeyEnter:     true,
	KeyBackspace: true,
	KeyTab:       true,
	KeyEscape:    true,
	KeyUp:        true,
	KeyDown:      true,
	KeyLeft:      true,
	KeyRight:     true,
	KeyCtrlC:     true,
	KeyCtrlD:     true,
	KeyCtrlL:     true,
}

// scriptKeyNames maps the symbolic names accepted in scripts to tmux keys.
var scriptKeyNames = map[string]Key{
	"ENTER":     KeyEnter,
	"RETURN":    KeyEnter,
	"BACKSPACE": KeyBackspace,
	"TAB":       KeyTab,
	"ESCAPE":    KeyEscape,
	"ESC":       KeyEscape,
	"SPACE":     KeySpace,
	"UP":        KeyUp,
	"DOWN":      KeyDown,
	"LEFT":      KeyLeft,
	"RIGHT":     KeyRight,
	"CTRL_C":    KeyCtrlC,
	"CTRL_D":    KeyCtrlD,
	"CTRL_L":    KeyCtrlL,
}

// IsNamed reports whether k is a tmux key name rather than literal text.
func (k Key) IsNamed() bool {
	return namedKeys[k]
}

// CharKey returns the key that types a single character.
// A space becomes the Space key; everything else is passed through literally.
func CharKey(char string) Key {
	if char == " " {
		return KeySpace
	}
	return Key(char)
}

// LookupKey resolves a script key name such as "ENTER" or "ctrl-c".
// Matching is case-insensitive and treats '-' and '_' alike.
func LookupKey(name string) (Key, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	k, ok := scriptKeyNames[normalized]
	return k, ok
}

// KeyNames returns the accepted script key names.
func KeyNames() []string {
	return []string{"ENTER", "RETURN", "BACKSPACE", "TAB", "ESCAPE", "ESC", "SPACE",
		"UP", "DOWN", "LEFT", "RIGHT", "CTRL_C", "CTRL_D", "CTRL_L"}
}

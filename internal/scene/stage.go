package scene

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/steveyegge/spielbash/internal/script"
)

// Stage is what all actions of one run share: the session, the typist,
// the completion waiter and the variable table.
type Stage struct {
	Session    string
	Terminal   Terminal
	Typist     *Typist
	Waiter     Waiter
	Vars       *Vars
	StrictKeys bool
	Sleep      Sleeper
	Logger     *log.Logger
	Verbose    bool
}

func (st *Stage) logger() *log.Logger {
	if st.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return st.Logger
}

// Build turns a script unit into its action. Command scenes take their buffer
// baseline here, so each unit must be built right before it runs.
func (st *Stage) Build(ctx context.Context, u script.Unit) (Action, error) {
	switch u.Kind {
	case script.KindScene:
		rules := make([]Rule, 0, len(u.Keep))
		for _, k := range u.Keep {
			re, err := script.CompileRule(k)
			if err != nil {
				return nil, err
			}
			rules = append(rules, Rule{Var: k.Var, Pattern: re})
		}
		return NewScene(ctx, st, u.Name, u.Action, rules, u.Wait)
	case script.KindDialogue:
		return &Dialogue{Typist: st.Typist, Line: u.Line}, nil
	case script.KindKeyPress:
		key, err := ResolveKey(u.PressKey, st.StrictKeys, st.logger())
		if err != nil {
			return nil, err
		}
		return &KeyPress{Typist: st.Typist, Key: key}, nil
	case script.KindPause:
		return &Pause{Duration: time.Duration(u.Pause * float64(time.Second)), Sleep: st.Sleep}, nil
	default:
		return nil, fmt.Errorf("%w: kind %v", script.ErrUnknownUnit, u.Kind)
	}
}

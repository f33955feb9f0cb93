package config

import (
	"os"

	"golang.org/x/term"
)

// TerminalSize reports the size of the terminal on stdout, falling back to
// stderr when stdout is redirected.
func TerminalSize() (int, int, error) {
	for _, f := range []*os.File{os.Stdout, os.Stderr} {
		fd := int(f.Fd())
		if term.IsTerminal(fd) {
			return term.GetSize(fd)
		}
	}
	return 0, 0, os.ErrNotExist
}

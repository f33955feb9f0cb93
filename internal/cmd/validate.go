package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/spielbash/internal/script"
	"github.com/steveyegge/spielbash/internal/style"
	"github.com/steveyegge/spielbash/internal/tmux"
)

var validateStrictKeys bool

var validateCmd = &cobra.Command{
	Use:     "validate <script>",
	Short:   "Check a script without recording it",
	GroupID: GroupDiag,
	Long: `Parse a script, compile every capture regex and print the plan.
Nothing is sent to tmux.

Unknown press_key names are reported as warnings, or as errors with
--strict-keys (or strict_keys = true in the config).`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVar(&validateStrictKeys, "strict-keys", false, "Treat unknown press_key names as errors")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("strict-keys") {
		cfg.StrictKeys = validateStrictKeys
	}

	s, err := script.Load(cmd.Context(), args[0], script.Options{StrictKeys: cfg.StrictKeys})
	if err != nil {
		return err
	}
	printPlan(cmd.OutOrStdout(), s)
	return nil
}

func printPlan(w io.Writer, s *script.Script) {
	if s.Title != "" {
		fmt.Fprintf(w, "%s\n", style.Bold.Render(s.Title))
	}
	for i, u := range s.Scenes {
		fmt.Fprintf(w, "%3d. %-9s %s%s\n", i+1, u.Kind, u.Label(), style.Dim.Render(unitDetail(u)))
	}
	fmt.Fprintf(w, "%s %d units, script is valid\n", style.SuccessPrefix, len(s.Scenes))
}

// unitDetail summarizes the options of a unit that the label does not show.
func unitDetail(u script.Unit) string {
	var parts []string
	switch u.Kind {
	case script.KindScene:
		if u.Name != "" {
			parts = append(parts, "$ "+u.Action)
		}
		if u.Wait {
			parts = append(parts, "waits")
		}
		for _, r := range u.Keep {
			parts = append(parts, "keeps "+r.Var)
		}
	case script.KindKeyPress:
		if _, ok := tmux.LookupKey(u.PressKey); !ok {
			parts = append(parts, "unknown key, presses ENTER")
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "  (" + strings.Join(parts, ", ") + ")"
}

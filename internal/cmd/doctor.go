package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/steveyegge/spielbash/internal/config"
	"github.com/steveyegge/spielbash/internal/doctor"
	"github.com/steveyegge/spielbash/internal/tmux"
)

var doctorFix bool

var doctorCmd = &cobra.Command{
	Use:     "doctor",
	Short:   "Check that spielbash can record on this machine",
	GroupID: GroupDiag,
	Long: `Run environment checks:
  - tmux is installed and new enough
  - asciinema is installed (required for the asciinema recorder)
  - the resolved configuration is valid
  - no spielbash sessions were left behind by interrupted runs

Use --fix to kill leftover sessions.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Attempt to fix problems")
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.ResolveSize(config.TerminalSize)

	d := doctor.NewDoctor()
	d.RegisterAll(
		doctor.NewTmuxCheck(),
		doctor.NewAsciinemaCheck(cfg),
		doctor.NewConfigCheck(),
		doctor.NewStaleSessionCheck(tmux.New(cfg.Socket)),
	)

	ctx := &doctor.CheckContext{Ctx: cmd.Context(), Config: cfg, Verbose: verbose}
	var report *doctor.Report
	if doctorFix {
		report = d.Fix(ctx)
	} else {
		report = d.Run(ctx)
	}
	report.Print(cmd.OutOrStdout(), verbose)

	if report.HasErrors() {
		return errors.New("doctor found errors")
	}
	return nil
}

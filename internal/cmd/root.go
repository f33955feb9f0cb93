// Package cmd implements the spielbash command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/spielbash/internal/config"
	"github.com/steveyegge/spielbash/internal/style"
	"github.com/steveyegge/spielbash/internal/telemetry"
)

// Command groups shown in help.
const (
	GroupMain = "main"
	GroupDiag = "diag"
)

var (
	configPath string
	verbose    bool
	quiet      bool
	traceFile  string
	socketFlag string

	tracing *telemetry.Provider
)

var rootCmd = &cobra.Command{
	Use:   "spielbash",
	Short: "Script narrated terminal sessions and record them",
	Long: `spielbash plays a YAML script into a tmux session while a recorder
films it. Commands are typed at a human pace, their output can be
captured into variables for later scenes, and the result is an
asciicast file ready for asciinema play or upload.

Examples:
  spielbash shoot --script demo.yaml                # Record to movie.json
  spielbash shoot --script demo.yaml -o demo.cast   # Choose the file
  spielbash validate demo.yaml                      # Check a script`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose && quiet {
			return fmt.Errorf("--verbose and --quiet are mutually exclusive")
		}
		p, err := telemetry.Init(cmd.Context(), "spielbash", Version, traceFile)
		if err != nil {
			return err
		}
		tracing = p
		return nil
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupMain, Title: "Recording:"},
		&cobra.Group{ID: GroupDiag, Title: "Diagnostics:"},
	)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/spielbash/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every keystroke and capture")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress operational logs")
	rootCmd.PersistentFlags().StringVar(&traceFile, "trace-file", "", "Write OpenTelemetry spans to this file")
	rootCmd.PersistentFlags().StringVar(&socketFlag, "socket", "", "tmux socket name (tmux -L) for the recorded server")
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	if shutdownErr := tracing.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
		style.PrintWarning("flushing traces: %v", shutdownErr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", style.ErrorPrefix, err)
		return 1
	}
	return 0
}

// newLogger returns the operational logger for the current flags.
func newLogger(w io.Writer) *log.Logger {
	if quiet {
		w = io.Discard
	}
	return log.New(w, "spielbash: ", 0)
}

// loadConfig resolves defaults, the config file, the environment and the
// persistent flags. Command-specific flags are applied by the caller.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, explicit := configPath, true
	if f := cmd.Flag("config"); f == nil || !f.Changed {
		path, explicit = config.DefaultPath(), false
	}
	cfg, err := config.Load(path, explicit)
	if err != nil {
		return cfg, err
	}
	if f := cmd.Flag("socket"); f != nil && f.Changed {
		cfg.Socket = socketFlag
	}
	return cfg, nil
}

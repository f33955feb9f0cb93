package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/spielbash/internal/constants"
	"github.com/steveyegge/spielbash/internal/style"
	"github.com/steveyegge/spielbash/internal/tmux"
)

var (
	sessionsJSON bool
	sessionsKill bool
)

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"ls"},
	GroupID: GroupDiag,
	Short:   "List leftover spielbash tmux sessions",
	Long: `List tmux sessions created by spielbash that are still running.

A shoot kills its session when it ends, so anything listed here was left
behind by an interrupted run. Use --kill to remove them.`,
	Args: cobra.NoArgs,
	RunE: runSessions,
}

func init() {
	sessionsCmd.Flags().BoolVar(&sessionsJSON, "json", false, "Output as JSON")
	sessionsCmd.Flags().BoolVar(&sessionsKill, "kill", false, "Kill every listed session")
	rootCmd.AddCommand(sessionsCmd)
}

// sessionManager is the part of tmux the sessions command needs.
type sessionManager interface {
	ListSessions(ctx context.Context) ([]string, error)
	KillSession(ctx context.Context, name string) error
}

// SessionInfo is one listed session.
type SessionInfo struct {
	Name   string `json:"name"`
	Killed bool   `json:"killed,omitempty"`
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	infos, err := spielbashSessions(cmd.Context(), tmux.New(cfg.Socket), sessionsKill)
	if err != nil {
		return err
	}
	return printSessions(cmd.OutOrStdout(), infos, sessionsJSON)
}

// spielbashSessions lists the sessions carrying the spielbash prefix and
// kills them when kill is set.
func spielbashSessions(ctx context.Context, m sessionManager, kill bool) ([]SessionInfo, error) {
	names, err := m.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	prefix := constants.SessionPrefix + "-"
	var infos []SessionInfo
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		info := SessionInfo{Name: name}
		if kill {
			if err := m.KillSession(ctx, name); err != nil {
				return infos, fmt.Errorf("killing %s: %w", name, err)
			}
			info.Killed = true
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func printSessions(w io.Writer, infos []SessionInfo, asJSON bool) error {
	if asJSON {
		if infos == nil {
			infos = []SessionInfo{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}
	if len(infos) == 0 {
		fmt.Fprintln(w, style.Dim.Render("No spielbash sessions running."))
		return nil
	}
	for _, info := range infos {
		if info.Killed {
			fmt.Fprintf(w, "%s %s killed\n", style.SuccessPrefix, info.Name)
			continue
		}
		fmt.Fprintf(w, "  %s\n", info.Name)
	}
	return nil
}

package cmd

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/steveyegge/spielbash/internal/config"
	"github.com/steveyegge/spielbash/internal/constants"
	"github.com/steveyegge/spielbash/internal/script"
	"github.com/steveyegge/spielbash/internal/session"
	"github.com/steveyegge/spielbash/internal/style"
	"github.com/steveyegge/spielbash/internal/tmux"
)

// shootOptions holds the shoot flags. Only flags the user actually set
// override the resolved configuration.
type shootOptions struct {
	script       string
	output       string
	typingSpeed  float64
	readingTime  float64
	width        int
	height       int
	title        string
	session      string
	recorder     string
	waitStrategy string
	waitTimeout  float64
	strictKeys   bool
}

var shootOpts shootOptions

var shootCmd = &cobra.Command{
	Use:     "shoot",
	Aliases: []string{"record"},
	Short:   "Play a script into tmux and record it",
	GroupID: GroupMain,
	Long: `Create a tmux session, start the recorder, and play every unit of the
script in order: commands are typed and submitted, dialogue lines are
typed and erased, keys are pressed and pauses are held.

The script may be a local path or a URL understood by the storage layer
(file://, mem://, ...).

Examples:
  spielbash shoot --script demo.yaml
  spielbash shoot -s demo.yaml -o demo.cast --recorder builtin
  spielbash shoot -s demo.yaml --typing-speed 0.05 --wait-timeout 30`,
	Args: cobra.NoArgs,
	RunE: runShoot,
}

func init() {
	rootCmd.AddCommand(shootCmd)
	shootOpts.register(shootCmd.Flags())
	_ = shootCmd.MarkFlagRequired("script")
}

func (o *shootOptions) register(fs *pflag.FlagSet) {
	fs.StringVarP(&o.script, "script", "s", "", "Script to play (path or URL)")
	fs.StringVarP(&o.output, "output", "o", constants.DefaultOutputFile, "Where to write the recording")
	fs.Float64Var(&o.typingSpeed, "typing-speed", 0, "Seconds between keystrokes")
	fs.Float64Var(&o.readingTime, "reading-time", 0, "Seconds to pause after typing a line")
	fs.IntVar(&o.width, "width", 0, "Session width in cells (default: current terminal, else 80)")
	fs.IntVar(&o.height, "height", 0, "Session height in cells (default: current terminal, else 25)")
	fs.StringVar(&o.title, "title", "", "Recording title")
	fs.StringVar(&o.session, "session", "", "tmux session name (default spielbash-<random>)")
	fs.StringVar(&o.recorder, "recorder", "", "Recording backend: asciinema or builtin")
	fs.StringVar(&o.waitStrategy, "wait-strategy", "", "Completion detection: children, fixed or prompt")
	fs.Float64Var(&o.waitTimeout, "wait-timeout", 0, "Fail a waited scene after this many seconds (0 = never)")
	fs.BoolVar(&o.strictKeys, "strict-keys", false, "Reject unknown press_key names")
}

// apply overlays the flags that were explicitly set on cfg.
func (o *shootOptions) apply(fs *pflag.FlagSet, cfg *config.Config) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "typing-speed":
			cfg.TypingSpeed = o.typingSpeed
		case "reading-time":
			cfg.ReadingTime = o.readingTime
		case "width":
			cfg.Width = o.width
		case "height":
			cfg.Height = o.height
		case "title":
			cfg.Title = o.title
		case "session":
			cfg.SessionName = o.session
		case "recorder":
			cfg.Recorder = o.recorder
		case "wait-strategy":
			cfg.WaitStrategy = o.waitStrategy
		case "wait-timeout":
			cfg.WaitTimeout = o.waitTimeout
		case "strict-keys":
			cfg.StrictKeys = o.strictKeys
		}
	})
}

func runShoot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	shootOpts.apply(cmd.Flags(), &cfg)
	cfg.ResolveSize(config.TerminalSize)
	if err := cfg.Validate(); err != nil {
		return err
	}

	s, err := script.Load(ctx, shootOpts.script, script.Options{StrictKeys: cfg.StrictKeys})
	if err != nil {
		return fmt.Errorf("loading script: %w", err)
	}

	name := cfg.SessionName
	if name == "" {
		name = newSessionName()
	}

	out := cmd.OutOrStdout()
	director := session.NewDirector(session.Options{
		Config:      cfg,
		SessionName: name,
		OutputPath:  shootOpts.output,
		Mux:         tmux.New(cfg.Socket),
		Logger:      newLogger(cmd.ErrOrStderr()),
		Out:         out,
		Verbose:     verbose,
	})
	res, err := director.Shoot(ctx, s)
	if err != nil {
		return err
	}
	printHints(out, res.Output)
	return nil
}

// newSessionName returns spielbash-<8 hex digits>.
func newSessionName() string {
	return fmt.Sprintf("%s-%s", constants.SessionPrefix, uuid.NewString()[:8])
}

func printHints(w io.Writer, path string) {
	fmt.Fprintf(w, "%s movie recorded as %s\n", style.SuccessPrefix, style.Bold.Render(path))
	fmt.Fprintf(w, "  %s\n", style.Dim.Render("to replay: asciinema play "+path))
	fmt.Fprintf(w, "  %s\n", style.Dim.Render("to upload: asciinema upload "+path))
}

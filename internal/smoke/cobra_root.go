package smoke

import (
	"bufio"
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// Config holds the values bound to gemmactl's persistent flags.
type Config struct {
	URL     string
	Timeout time.Duration
	Pause   time.Duration
}

// DefaultConfig reads GEMMAD_URL and GEMMACTL_TIMEOUT.
func DefaultConfig() *Config {
	return &Config{
		URL:     envStr("GEMMAD_URL", "http://localhost:8000"),
		Timeout: envDuration("GEMMACTL_TIMEOUT", 5*time.Minute),
		Pause:   time.Second,
	}
}

// NewRootCmd builds the gemmactl command tree. in and out stand in for
// stdin and stdout.
func NewRootCmd(cfg *Config, in io.Reader, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "gemmactl",
		Short:         "Smoke-test a running gemmad server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.PersistentFlags().StringVar(&cfg.URL, "url", cfg.URL, "Server base URL (defaults GEMMAD_URL or http://localhost:8000)")
	root.PersistentFlags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout (0 disables)")

	runner := func() *Runner {
		r := NewRunner(NewClient(cfg.URL, cfg.Timeout), out)
		r.Pause = cfg.Pause
		return r
	}
	// Prompts and REPL answers share one buffered reader.
	br := bufio.NewReader(in)

	runCmd := &cobra.Command{
		Use:     "run",
		Short:   "Check health, print model info and run the canned prompts",
		Example: "  gemmactl run --url http://localhost:8000",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r := runner()
			if err := r.Run(ctx); err != nil {
				return err
			}
			if !interactiveInput(in) {
				return nil
			}
			r.printf("\nTry interactive mode? (y/n): ")
			answer, _ := br.ReadString('\n')
			if !isYes(answer) {
				return nil
			}
			return r.Interactive(ctx, br)
		},
	}
	interactiveCmd := &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"repl"},
		Short:   "Read prompts from stdin and print generations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runner().Interactive(cmd.Context(), br)
		},
	}
	root.AddCommand(runCmd, interactiveCmd)
	root.RunE = runCmd.RunE
	return root
}

// interactiveInput reports whether in is a terminal.
func interactiveInput(in io.Reader) bool {
	f, ok := in.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Execute runs gemmactl with os.Args.
func Execute(ctx context.Context) error {
	return NewRootCmd(DefaultConfig(), os.Stdin, os.Stdout).ExecuteContext(ctx)
}

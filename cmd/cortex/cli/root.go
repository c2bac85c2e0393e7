package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// GlobalFlags holds the global flags that influence the
// orchestration core. Flags that only matter to config/auth/telemetry
// (out of scope for this repository) are not modeled here.
type GlobalFlags struct {
	Model       string
	Cwd         string
	Temperature float64
	Yes         bool
}

// NewRootCommand builds the `cortex` root command and its core-relevant
// subcommands (`run`, `exec`); the bare invocation requires a TTY.
func NewRootCommand() *cobra.Command {
	flags := &GlobalFlags{}

	root := &cobra.Command{
		Use:           "cortex",
		Short:         "Cortex is an interactive coding assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				fmt.Fprintln(cmd.ErrOrStderr(), "cortex: interactive mode requires a TTY; use `cortex run` or `cortex exec` for non-interactive turns")
				return &ExitError{Code: 2}
			}
			return runInteractive(cmd, flags)
		},
	}

	root.PersistentFlags().StringVar(&flags.Model, "model", os.Getenv("CORTEX_MODEL"), "model to use for completions")
	root.PersistentFlags().StringVar(&flags.Cwd, "cwd", "", "working directory for tool execution (default: current directory)")
	root.PersistentFlags().Float64Var(&flags.Temperature, "temperature", 0, "sampling temperature")
	root.PersistentFlags().BoolVar(&flags.Yes, "yes", false, "bypass all permission prompts for this invocation (treat Ask as Allow)")

	root.AddCommand(newRunCommand(flags))
	root.AddCommand(newExecCommand(flags))

	return root
}

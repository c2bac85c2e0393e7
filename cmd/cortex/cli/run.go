package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/haasonsaas/cortex/pkg/models"
	"github.com/spf13/cobra"
)

// newRunCommand implements `cortex run [prompt...]`: a single non-interactive
// turn with text in, text out. `exec` is a plain alias.
func newRunCommand(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [prompt...]",
		Short: "Run a single non-interactive turn",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOneShot(cmd, flags, strings.Join(args, " "))
		},
	}
	return cmd
}

func newExecCommand(flags *GlobalFlags) *cobra.Command {
	cmd := newRunCommand(flags)
	cmd.Use = "exec [prompt...]"
	cmd.Short = "Run a single non-interactive turn (alias of run)"
	return cmd
}

// runOneShot drives exactly one turn to completion, writing assistant text
// to stdout as it streams and mapping the outcome onto the documented exit
// codes: 0 normal completion, 1 error, 130 user interrupt.
func runOneShot(cmd *cobra.Command, flags *GlobalFlags, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return &ExitError{Code: 1, Message: "cortex run: a prompt is required"}
	}

	engine, err := buildEngine(flags)
	if err != nil {
		return &ExitError{Code: 1, Message: "cortex: " + err.Error()}
	}
	defer engine.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Checkpoint the workspace before the model can mutate it, so the turn
	// is revertable.
	if _, err := engine.Snapshots.Checkpoint(ctx, "before turn"); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "cortex: warning: checkpoint failed:", err)
	}

	msg := &models.Message{Role: models.RoleUser, Content: prompt}
	chunks, err := engine.Runtime.Process(ctx, engine.Session, msg)
	if err != nil {
		return &ExitError{Code: 1, Message: "cortex: " + err.Error()}
	}

	out := cmd.OutOrStdout()
	for chunk := range chunks {
		if chunk.Error != nil {
			if ctx.Err() == context.Canceled {
				return &ExitError{Code: 130}
			}
			return &ExitError{Code: 1, Message: "cortex: " + chunk.Error.Error()}
		}
		if chunk.Text != "" {
			fmt.Fprint(out, chunk.Text)
		}
	}
	fmt.Fprintln(out)
	setExitCode(0)
	return nil
}

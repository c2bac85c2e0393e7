package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/haasonsaas/cortex/internal/agent"
	"github.com/haasonsaas/cortex/internal/commands"
	"github.com/haasonsaas/cortex/internal/multiagent"
	"github.com/haasonsaas/cortex/internal/snapshot"
	"github.com/haasonsaas/cortex/pkg/models"
	"github.com/spf13/cobra"
)

// runInteractive drives the bare `cortex` invocation: a read-eval-print
// loop over successive turns against the same session, with slash commands
// dispatched before falling through to a turn, and a leading @agent mention
// re-routing the turn as a sub-agent task.
func runInteractive(cmd *cobra.Command, flags *GlobalFlags) error {
	engine, err := buildEngine(flags)
	if err != nil {
		return &ExitError{Code: 1, Message: "cortex: " + err.Error()}
	}
	defer engine.Close()

	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	dispatcher := builtinSlashCommands(ctx, engine)

	in := bufio.NewScanner(cmd.InOrStdin())

	fmt.Fprintln(out, "cortex (interactive) — type /help for commands, Ctrl-D to exit")
	for {
		fmt.Fprint(out, "> ")
		if !in.Scan() {
			break
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}

		result, handled, cmdErr := dispatcher.Dispatch(line)
		if cmdErr != nil {
			fmt.Fprintln(out, "error:", cmdErr)
			continue
		}
		if handled {
			if !result.ContinueProcessing {
				if result.Message != "" {
					fmt.Fprintln(out, result.Message)
				}
				continue
			}
			line = result.Message
		}

		// Checkpoint before the turn so /undo can walk back whatever the
		// model changes.
		if _, err := engine.Snapshots.Checkpoint(ctx, "before turn"); err != nil {
			fmt.Fprintln(out, "warning: checkpoint failed:", err)
		}

		// A leading @mention of a registered collab agent re-routes the
		// turn to that agent with the remaining text as its task.
		var chunks <-chan *agent.ResponseChunk
		var err error
		if route := multiagent.ParseMention(line, collabAgentNames(engine)); route.ShouldInvokeTask {
			msg := &models.Message{Role: models.RoleUser, Content: route.Prompt}
			chunks, err = engine.Collab.ProcessAs(ctx, engine.Session, msg, route.Agent)
		} else {
			msg := &models.Message{Role: models.RoleUser, Content: line}
			chunks, err = engine.Runtime.Process(ctx, engine.Session, msg)
		}
		if err != nil {
			fmt.Fprintln(out, "error:", err)
			continue
		}
		for chunk := range chunks {
			if chunk.Error != nil {
				fmt.Fprintln(out, "error:", chunk.Error)
				continue
			}
			if chunk.Text != "" {
				fmt.Fprint(out, chunk.Text)
			}
		}
		fmt.Fprintln(out)
	}

	if err := in.Err(); err != nil && err != io.EOF {
		return &ExitError{Code: 1, Message: "cortex: " + err.Error()}
	}
	setExitCode(0)
	return nil
}

// collabAgentNames returns the registered collab agent names for mention
// resolution.
func collabAgentNames(engine *Engine) []string {
	defs := engine.Collab.ListAgents()
	names := make([]string, 0, len(defs))
	for _, def := range defs {
		names = append(names, def.Name)
	}
	return names
}

// builtinSlashCommands registers the slash commands the interactive loop
// serves itself; a fuller command set belongs to the CLI routing layer out
// of this repository's scope.
func builtinSlashCommands(ctx context.Context, engine *Engine) *commands.SlashDispatcher {
	d := commands.NewSlashDispatcher()
	d.Register("help", func(cmd commands.SlashCommand) (commands.SlashResult, error) {
		return commands.SlashResult{
			Message: "available commands: /help, /undo, /redo, /revert <id-prefix>, /snapshots, /agents, /quit",
		}, nil
	})
	d.Register("quit", func(cmd commands.SlashCommand) (commands.SlashResult, error) {
		return commands.SlashResult{Message: "use Ctrl-D to exit"}, nil
	})
	d.Register("undo", func(cmd commands.SlashCommand) (commands.SlashResult, error) {
		rp, err := engine.Snapshots.Undo(ctx)
		if err != nil {
			return commands.SlashResult{}, err
		}
		return commands.SlashResult{Message: "restored " + describeRevertPoint(rp)}, nil
	})
	d.Register("redo", func(cmd commands.SlashCommand) (commands.SlashResult, error) {
		rp, err := engine.Snapshots.Redo(ctx)
		if err != nil {
			return commands.SlashResult{}, err
		}
		return commands.SlashResult{Message: "restored " + describeRevertPoint(rp)}, nil
	})
	d.Register("revert", func(cmd commands.SlashCommand) (commands.SlashResult, error) {
		if len(cmd.Positional) != 1 {
			return commands.SlashResult{Message: "usage: /revert <snapshot-id-prefix>"}, nil
		}
		rp, err := engine.Snapshots.RevertTo(ctx, cmd.Positional[0])
		if err != nil {
			return commands.SlashResult{}, err
		}
		return commands.SlashResult{Message: "restored " + describeRevertPoint(rp)}, nil
	})
	d.Register("snapshots", func(cmd commands.SlashCommand) (commands.SlashResult, error) {
		history, err := engine.Snapshots.History(ctx)
		if err != nil {
			return commands.SlashResult{}, err
		}
		if len(history) == 0 {
			return commands.SlashResult{Message: "no snapshots yet"}, nil
		}
		var sb strings.Builder
		for _, rp := range history {
			marker := " "
			if rp.Active {
				marker = "*"
			}
			fmt.Fprintf(&sb, "%s %s  %s  %s\n", marker, shortID(rp.Snapshot.ID),
				rp.Snapshot.CreatedAt.Format("15:04:05"), rp.Snapshot.Description)
		}
		return commands.SlashResult{Message: strings.TrimRight(sb.String(), "\n")}, nil
	})
	d.Register("agents", func(cmd commands.SlashCommand) (commands.SlashResult, error) {
		agents := engine.SubAgents.ListAll()
		if len(agents) == 0 {
			return commands.SlashResult{Message: "no sub-agents"}, nil
		}
		var sb strings.Builder
		for _, sa := range agents {
			fmt.Fprintf(&sb, "%s  %s  %s\n", sa.ID, sa.Name, sa.Status)
		}
		return commands.SlashResult{Message: strings.TrimRight(sb.String(), "\n")}, nil
	})
	return d
}

func describeRevertPoint(rp *snapshot.RevertPoint) string {
	if rp == nil {
		return "(nothing)"
	}
	return fmt.Sprintf("%s (%d files)", shortID(rp.Snapshot.ID), len(rp.Snapshot.Paths))
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

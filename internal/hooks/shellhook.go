package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/haasonsaas/cortex/internal/sandbox"
)

// Shell hook event names carried in the stdin payload.
const (
	ShellEventPreToolUse       = "PreToolUse"
	ShellEventPostToolUse      = "PostToolUse"
	ShellEventUserPromptSubmit = "UserPromptSubmit"
)

// ShellHookPayload is the JSON document written to a shell hook's stdin.
type ShellHookPayload struct {
	Event      string          `json:"event"`
	ToolName   string          `json:"tool_name,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	Output     string          `json:"output,omitempty"`
	SessionKey string          `json:"session_key,omitempty"`
	Prompt     string          `json:"prompt,omitempty"`
}

// ShellHookTimeout bounds a single shell hook invocation.
const ShellHookTimeout = 30 * time.Second

// runShellHook executes command with the sanitized environment and the
// payload on stdin. Exit 0 allows; a non-zero exit vetoes with stderr as
// the reason.
func runShellHook(ctx context.Context, command string, payload *ShellHookPayload) (allowed bool, reason string, err error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return false, "", fmt.Errorf("encode hook payload: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, ShellHookTimeout)
	defer cancel()

	inv := sandbox.BuildCommand([]string{command})
	var cmd *exec.Cmd
	if inv.ViaShell {
		cmd = exec.CommandContext(runCtx, inv.Path, inv.Args...)
	} else {
		fields := strings.Fields(command)
		if len(fields) == 0 {
			return false, "", fmt.Errorf("hook command is empty")
		}
		cmd = exec.CommandContext(runCtx, fields[0], fields[1:]...)
	}
	cmd.Env = sandbox.SanitizeEnv(os.Environ(), sandbox.ReadOnly())
	cmd.Stdin = bytes.NewReader(body)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr == nil {
		return true, "", nil
	}
	if _, ok := runErr.(*exec.ExitError); ok {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "hook " + command + " exited non-zero"
		}
		return false, msg, nil
	}
	return false, "", fmt.Errorf("run hook %s: %w", command, runErr)
}

// NewShellPreHook returns a pre-execution hook that shells out to command
// with a PreToolUse payload. A non-zero exit cancels the tool call.
func NewShellPreHook(command string, logger *slog.Logger) ToolPreHook {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, hookCtx *ToolHookContext) error {
		payload := &ShellHookPayload{
			Event:      ShellEventPreToolUse,
			ToolName:   hookCtx.ToolName,
			ToolCallID: hookCtx.ToolCallID,
			Input:      hookCtx.Input,
			SessionKey: hookCtx.SessionKey,
		}
		allowed, reason, err := runShellHook(ctx, command, payload)
		if err != nil {
			// A hook that cannot run does not veto; the failure is logged
			// and the call proceeds.
			logger.Warn("shell pre-hook failed", "command", command, "error", err)
			return nil
		}
		if !allowed {
			hookCtx.Canceled = true
			hookCtx.CancelReason = reason
		}
		return nil
	}
}

// NewShellPostHook returns a post-execution hook that shells out to command
// with a PostToolUse payload. Post hooks are observability only; their exit
// status is logged but never affects the result.
func NewShellPostHook(command string, logger *slog.Logger) ToolPostHook {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, hookCtx *ToolHookContext) error {
		payload := &ShellHookPayload{
			Event:      ShellEventPostToolUse,
			ToolName:   hookCtx.ToolName,
			ToolCallID: hookCtx.ToolCallID,
			Input:      hookCtx.Input,
			Output:     hookCtx.Output,
			SessionKey: hookCtx.SessionKey,
		}
		if allowed, reason, err := runShellHook(ctx, command, payload); err != nil {
			logger.Warn("shell post-hook failed", "command", command, "error", err)
		} else if !allowed {
			logger.Info("shell post-hook flagged result", "command", command, "reason", reason)
		}
		return nil
	}
}

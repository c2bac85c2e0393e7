package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// PromptEvaluator runs a short model evaluation and returns its raw text
// reply. Implementations are expected to use a small, fast model.
type PromptEvaluator interface {
	Evaluate(ctx context.Context, prompt string) (string, error)
}

// PromptEvaluatorFunc adapts a function to the PromptEvaluator interface.
type PromptEvaluatorFunc func(ctx context.Context, prompt string) (string, error)

func (f PromptEvaluatorFunc) Evaluate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// PromptDecision is the fixed reply schema a prompt hook must produce.
type PromptDecision struct {
	Decision     string          `json:"decision"`
	Reason       string          `json:"reason,omitempty"`
	ModifiedArgs json.RawMessage `json:"modified_args,omitempty"`
}

const promptHookReplySchema = `Reply with a single JSON object and nothing else: ` +
	`{"decision": "allow" | "deny" | "modify" | "continue", "reason": "<why>", "modified_args": <replacement JSON arguments, only for modify>}`

// NewPromptPreHook returns a pre-execution hook that asks the evaluator to
// judge the pending tool call against instruction. Deny cancels the call;
// modify replaces its arguments in place; allow and continue let it run.
func NewPromptPreHook(eval PromptEvaluator, instruction string, logger *slog.Logger) ToolPreHook {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, hookCtx *ToolHookContext) error {
		prompt := fmt.Sprintf("%s\n\nPending tool call:\ntool: %s\narguments: %s\n\n%s",
			instruction, hookCtx.ToolName, string(hookCtx.Input), promptHookReplySchema)

		reply, err := eval.Evaluate(ctx, prompt)
		if err != nil {
			logger.Warn("prompt hook evaluation failed", "tool", hookCtx.ToolName, "error", err)
			return nil
		}

		decision, err := parsePromptDecision(reply)
		if err != nil {
			logger.Warn("prompt hook reply unparseable", "tool", hookCtx.ToolName, "error", err)
			return nil
		}

		switch decision.Decision {
		case "deny":
			hookCtx.Canceled = true
			hookCtx.CancelReason = decision.Reason
			if hookCtx.CancelReason == "" {
				hookCtx.CancelReason = "denied by prompt hook"
			}
		case "modify":
			if len(decision.ModifiedArgs) > 0 && json.Valid(decision.ModifiedArgs) {
				hookCtx.Input = decision.ModifiedArgs
				hookCtx.Modified = true
			}
		}
		return nil
	}
}

// parsePromptDecision extracts the decision object from a model reply,
// tolerating surrounding prose or a fenced code block.
func parsePromptDecision(reply string) (*PromptDecision, error) {
	trimmed := strings.TrimSpace(reply)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in reply")
	}
	var decision PromptDecision
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &decision); err != nil {
		return nil, err
	}
	switch decision.Decision {
	case "allow", "deny", "modify", "continue":
		return &decision, nil
	default:
		return nil, fmt.Errorf("unknown decision %q", decision.Decision)
	}
}

package subagent

import (
	"context"
	"encoding/json"

	"github.com/haasonsaas/cortex/internal/agent"
)

// textTool is the shape shared by the spawn/status/cancel tools: a map
// schema and a plain-text result.
type textTool interface {
	Name() string
	Description() string
	Schema() map[string]any
	Execute(ctx context.Context, input json.RawMessage) (string, error)
}

// adapted lifts a textTool into the runtime's Tool interface, folding
// execution errors into IsError results so the model can recover.
type adapted struct {
	tool textTool
}

func (a *adapted) Name() string        { return a.tool.Name() }
func (a *adapted) Description() string { return a.tool.Description() }

func (a *adapted) Schema() json.RawMessage {
	payload, err := json.Marshal(a.tool.Schema())
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func (a *adapted) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	out, err := a.tool.Execute(ctx, params)
	if err != nil {
		return &agent.ToolResult{Content: err.Error(), IsError: true}, nil
	}
	return &agent.ToolResult{Content: out}, nil
}

// RegisterTools registers the sub-agent tool set (spawn, status, cancel,
// send_input) on the runtime.
func RegisterTools(runtime *agent.Runtime, manager *Manager, queue *AnnounceQueue) {
	runtime.RegisterTool(&adapted{tool: NewSpawnTool(manager)})
	runtime.RegisterTool(&adapted{tool: NewStatusTool(manager)})
	runtime.RegisterTool(&adapted{tool: NewCancelTool(manager)})
	runtime.RegisterTool(NewSendInputTool(manager, queue))
}

package subagent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/haasonsaas/cortex/internal/agent"
)

// submissionCounter is the process-wide monotonic id source for send_input.
// Deliberately global: correlation ids must be unique across every manager
// in the process.
var submissionCounter atomic.Uint64

// PendingInput is one queued message for a sub-agent.
type PendingInput struct {
	SubmissionID uint64 `json:"submission_id"`
	Message      string `json:"message"`
	Interrupt    bool   `json:"interrupt"`
}

// SendInputTool enqueues input for a running sub-agent. Delivery is
// best-effort and queue-based; the returned submission id lets the caller
// correlate later status updates.
type SendInputTool struct {
	manager *Manager
	queue   *AnnounceQueue
}

// NewSendInputTool creates a send-input tool over the manager and queue.
func NewSendInputTool(manager *Manager, queue *AnnounceQueue) *SendInputTool {
	return &SendInputTool{manager: manager, queue: queue}
}

// Name returns the tool name.
func (t *SendInputTool) Name() string {
	return "send_input"
}

// Description returns the tool description.
func (t *SendInputTool) Description() string {
	return "Send a message to a running sub-agent. Returns a submission ID for correlation."
}

// Schema returns the JSON schema for the tool parameters.
func (t *SendInputTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"agent_id": map[string]interface{}{
				"type":        "string",
				"description": "ID of the target sub-agent.",
			},
			"message": map[string]interface{}{
				"type":        "string",
				"description": "Message to deliver.",
			},
			"interrupt": map[string]interface{}{
				"type":        "boolean",
				"description": "Interrupt the sub-agent's current work to deliver this.",
			},
		},
		"required": []string{"agent_id", "message"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

// Execute validates the target and enqueues the message.
func (t *SendInputTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		AgentID   string `json:"agent_id"`
		Message   string `json:"message"`
		Interrupt bool   `json:"interrupt"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return sendInputError(fmt.Sprintf("invalid input: %v", err)), nil
	}
	if input.AgentID == "" {
		return sendInputError("agent_id is required"), nil
	}
	if input.Message == "" {
		return sendInputError("message is required"), nil
	}

	sa, ok := t.manager.Get(input.AgentID)
	if !ok {
		return sendInputError(fmt.Sprintf("no sub-agent with ID %s", input.AgentID)), nil
	}
	switch sa.Status {
	case "completed", "failed", "cancelled":
		return sendInputError(fmt.Sprintf("sub-agent %s already %s; input rejected", input.AgentID, sa.Status)), nil
	}

	pending := &PendingInput{
		SubmissionID: submissionCounter.Add(1),
		Message:      input.Message,
		Interrupt:    input.Interrupt,
	}
	body, err := json.Marshal(pending)
	if err != nil {
		return sendInputError(fmt.Sprintf("encode input: %v", err)), nil
	}
	t.queue.Enqueue(input.AgentID, &AnnounceQueueItem{
		Prompt:     string(body),
		SessionKey: input.AgentID,
	}, nil)

	return &agent.ToolResult{
		Content: fmt.Sprintf("queued for %s (submission_id: %d)", input.AgentID, pending.SubmissionID),
	}, nil
}

func sendInputError(message string) *agent.ToolResult {
	return &agent.ToolResult{Content: message, IsError: true}
}

// Package todo provides the in-session task list tools.
package todo

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/haasonsaas/cortex/internal/agent"
)

// Item is one entry on the session task list.
type Item struct {
	Content string `json:"content"`
	Status  string `json:"status"`
}

// List holds the task list for one session. It is shared between the read
// and write tools and safe for concurrent use.
type List struct {
	mu    sync.Mutex
	items []Item
}

// NewList creates an empty task list.
func NewList() *List {
	return &List{}
}

// Snapshot returns a copy of the current items.
func (l *List) Snapshot() []Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Item, len(l.items))
	copy(out, l.items)
	return out
}

// Replace swaps the whole list.
func (l *List) Replace(items []Item) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = items
}

// validStatuses for an item. Anything else is rejected at write time.
var validStatuses = map[string]bool{
	"pending":     true,
	"in_progress": true,
	"completed":   true,
}

// WriteTool replaces the session task list.
type WriteTool struct {
	list *List
}

// NewWriteTool creates a write tool over the shared list.
func NewWriteTool(list *List) *WriteTool {
	return &WriteTool{list: list}
}

// Name returns the tool name.
func (t *WriteTool) Name() string {
	return "todo_write"
}

// Description returns the tool description.
func (t *WriteTool) Description() string {
	return "Replace the session task list with the given items."
}

// Schema returns the JSON schema for the tool parameters.
func (t *WriteTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"items": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"content": map[string]interface{}{"type": "string"},
						"status": map[string]interface{}{
							"type": "string",
							"enum": []string{"pending", "in_progress", "completed"},
						},
					},
					"required": []string{"content"},
				},
			},
		},
		"required": []string{"items"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

// Execute replaces the list.
func (t *WriteTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Items []Item `json:"items"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	for i := range input.Items {
		if input.Items[i].Content == "" {
			return toolError(fmt.Sprintf("item %d: content is required", i)), nil
		}
		if input.Items[i].Status == "" {
			input.Items[i].Status = "pending"
		}
		if !validStatuses[input.Items[i].Status] {
			return toolError(fmt.Sprintf("item %d: unknown status %q", i, input.Items[i].Status)), nil
		}
	}
	t.list.Replace(input.Items)
	return &agent.ToolResult{Content: fmt.Sprintf("task list updated (%d items)", len(input.Items))}, nil
}

// ReadTool returns the session task list.
type ReadTool struct {
	list *List
}

// NewReadTool creates a read tool over the shared list.
func NewReadTool(list *List) *ReadTool {
	return &ReadTool{list: list}
}

// Name returns the tool name.
func (t *ReadTool) Name() string {
	return "todo_read"
}

// Description returns the tool description.
func (t *ReadTool) Description() string {
	return "Read the current session task list."
}

// Schema returns the JSON schema for the tool parameters.
func (t *ReadTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{}}`)
}

// Execute returns the list.
func (t *ReadTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	items := t.list.Snapshot()
	payload, err := json.MarshalIndent(map[string]interface{}{
		"items": items,
		"count": len(items),
	}, "", "  ")
	if err != nil {
		return toolError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return &agent.ToolResult{Content: string(payload)}, nil
}

func toolError(message string) *agent.ToolResult {
	payload, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		return &agent.ToolResult{Content: message, IsError: true}
	}
	return &agent.ToolResult{Content: string(payload), IsError: true}
}

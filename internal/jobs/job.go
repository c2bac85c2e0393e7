// Package jobs tracks asynchronous tool executions so a turn can return
// immediately with a job id while the tool keeps running in the background.
package jobs

import (
	"time"

	"github.com/haasonsaas/cortex/pkg/models"
)

// Status is the lifecycle state of an async job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is a final state that will not
// transition further.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Job records the state of one asynchronously-dispatched tool call.
type Job struct {
	ID         string             `json:"id"`
	ToolName   string             `json:"tool_name"`
	ToolCallID string             `json:"tool_call_id"`
	Status     Status             `json:"status"`
	Error      string             `json:"error,omitempty"`
	Result     *models.ToolResult `json:"result,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	StartedAt  time.Time          `json:"started_at,omitempty"`
	FinishedAt time.Time          `json:"finished_at,omitempty"`
}

package subagent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"
)

func managerWithAgent(t *testing.T, id, status string) *Manager {
	t.Helper()
	m := NewManager(nil, 5)
	m.agents[id] = &SubAgent{
		ID:        id,
		Name:      "worker",
		Task:      "do things",
		Status:    status,
		CreatedAt: time.Now(),
	}
	return m
}

func TestSendInputQueuesAndReturnsSubmissionID(t *testing.T) {
	m := managerWithAgent(t, "sa-1", "running")
	queue := NewAnnounceQueue()
	tool := NewSendInputTool(m, queue)

	res, err := tool.Execute(context.Background(), json.RawMessage(`{"agent_id":"sa-1","message":"look deeper"}`))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Content)
	}
	if !strings.Contains(res.Content, "submission_id") {
		t.Errorf("result should carry a submission id: %s", res.Content)
	}
	if queue.Size("sa-1") != 1 {
		t.Errorf("queue size = %d", queue.Size("sa-1"))
	}

	item := queue.Dequeue("sa-1")
	var pending PendingInput
	if err := json.Unmarshal([]byte(item.Prompt), &pending); err != nil {
		t.Fatalf("decode queued input: %v", err)
	}
	if pending.Message != "look deeper" {
		t.Errorf("message = %q", pending.Message)
	}
}

func TestSendInputSubmissionIDsMonotonic(t *testing.T) {
	m := managerWithAgent(t, "sa-1", "running")
	tool := NewSendInputTool(m, NewAnnounceQueue())

	var last uint64
	for i := 0; i < 5; i++ {
		res, err := tool.Execute(context.Background(), json.RawMessage(`{"agent_id":"sa-1","message":"m"}`))
		if err != nil {
			t.Fatal(err)
		}
		var id uint64
		if _, err := fmt.Sscanf(res.Content[strings.Index(res.Content, "submission_id:"):], "submission_id: %d", &id); err != nil {
			t.Fatalf("parse submission id from %q: %v", res.Content, err)
		}
		if id <= last {
			t.Fatalf("submission ids must strictly increase: %d after %d", id, last)
		}
		last = id
	}
}

func TestSendInputRejectsFinalStates(t *testing.T) {
	for _, status := range []string{"completed", "failed", "cancelled"} {
		m := managerWithAgent(t, "sa-1", status)
		tool := NewSendInputTool(m, NewAnnounceQueue())
		res, err := tool.Execute(context.Background(), json.RawMessage(`{"agent_id":"sa-1","message":"m"}`))
		if err != nil {
			t.Fatal(err)
		}
		if !res.IsError {
			t.Errorf("input to %s sub-agent should be rejected", status)
		}
	}
}

func TestSendInputUnknownAgent(t *testing.T) {
	tool := NewSendInputTool(NewManager(nil, 5), NewAnnounceQueue())
	res, err := tool.Execute(context.Background(), json.RawMessage(`{"agent_id":"nope","message":"m"}`))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("unknown target should be an error result")
	}
}

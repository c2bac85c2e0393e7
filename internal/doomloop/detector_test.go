package doomloop

import (
	"encoding/json"
	"testing"
	"time"
)

func newTestDetector(cfg Config) *Detector {
	d := New(cfg, nil)
	base := time.Now()
	d.now = func() time.Time { return base }
	return d
}

func advance(d *Detector, delta time.Duration) {
	cur := d.now()
	d.now = func() time.Time { return cur.Add(delta) }
}

func TestHashStableAcrossKeyOrder(t *testing.T) {
	a, err := Hash("bash", json.RawMessage(`{"cmd":"ls","flags":"-la"}`))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	b, err := Hash("bash", json.RawMessage(`{"flags":"-la","cmd":"ls"}`))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if a != b {
		t.Errorf("Hash should be stable under key reordering: %q != %q", a, b)
	}
}

func TestHashDiffersByTool(t *testing.T) {
	args := json.RawMessage(`{"path":"/tmp/f"}`)
	a, _ := Hash("Read", args)
	b, _ := Hash("Write", args)
	if a == b {
		t.Error("Hash should differ by tool name")
	}
}

func TestLoopDetectedAfterThreshold(t *testing.T) {
	cfg := Config{MaxIdenticalCalls: 3, WindowSeconds: 60, MaxCallsPerTurn: 100, Enabled: true, DefaultAction: ActionAsk}
	d := newTestDetector(cfg)
	args := json.RawMessage(`{"path":"/tmp/f"}`)

	for i := 0; i < 2; i++ {
		res, err := d.Check("sess1", "Read", args)
		if err != nil {
			t.Fatalf("Check: %v", err)
		}
		if res.Verdict != VerdictOk {
			t.Fatalf("call %d: got %v, want Ok", i, res.Verdict)
		}
	}

	res, err := d.Check("sess1", "Read", args)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Verdict != VerdictLoopDetected {
		t.Errorf("3rd identical call: got %v, want LoopDetected", res.Verdict)
	}
	if res.Count != 3 {
		t.Errorf("Count = %d, want 3", res.Count)
	}
}

func TestWindowEviction(t *testing.T) {
	cfg := Config{MaxIdenticalCalls: 2, WindowSeconds: 10, MaxCallsPerTurn: 100, Enabled: true, DefaultAction: ActionAsk}
	d := newTestDetector(cfg)
	args := json.RawMessage(`{"cmd":"ls"}`)

	if res, _ := d.Check("sess1", "bash", args); res.Verdict != VerdictOk {
		t.Fatalf("first call: %v", res.Verdict)
	}
	advance(d, 20*time.Second)
	res, err := d.Check("sess1", "bash", args)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Verdict != VerdictOk {
		t.Errorf("call after window expiry should not trigger: got %v", res.Verdict)
	}
}

func TestTooManyCallsPerTurn(t *testing.T) {
	cfg := Config{MaxIdenticalCalls: 1000, WindowSeconds: 60, MaxCallsPerTurn: 2, Enabled: true, DefaultAction: ActionAsk}
	d := newTestDetector(cfg)

	for i := 0; i < 2; i++ {
		args := json.RawMessage(`{"n":` + string(rune('0'+i)) + `}`)
		if res, _ := d.Check("sess1", "bash", args); res.Verdict != VerdictOk {
			t.Fatalf("call %d: got %v", i, res.Verdict)
		}
	}
	res, err := d.Check("sess1", "bash", json.RawMessage(`{"n":9}`))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Verdict != VerdictTooManyCalls {
		t.Errorf("got %v, want TooManyCalls", res.Verdict)
	}
}

func TestResetTurnClearsCallCounterOnly(t *testing.T) {
	cfg := Config{MaxIdenticalCalls: 2, WindowSeconds: 60, MaxCallsPerTurn: 1, Enabled: true, DefaultAction: ActionAsk}
	d := newTestDetector(cfg)
	args := json.RawMessage(`{"cmd":"ls"}`)

	if res, _ := d.Check("sess1", "bash", args); res.Verdict != VerdictOk {
		t.Fatalf("first call: %v", res.Verdict)
	}
	if res, _ := d.Check("sess1", "bash", args); res.Verdict != VerdictTooManyCalls {
		t.Fatalf("second call should exceed per-turn budget: %v", res.Verdict)
	}

	d.ResetTurn("sess1")
	res, err := d.Check("sess1", "bash", args)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Verdict != VerdictLoopDetected {
		t.Errorf("identical-call count should survive ResetTurn: got %v, want LoopDetected", res.Verdict)
	}
}

func TestAllowListBypassesDetection(t *testing.T) {
	cfg := Config{MaxIdenticalCalls: 1, WindowSeconds: 60, MaxCallsPerTurn: 100, Enabled: true, DefaultAction: ActionAsk}
	d := newTestDetector(cfg)
	args := json.RawMessage(`{"cmd":"ls"}`)

	res, err := d.Check("sess1", "bash", args)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Verdict != VerdictLoopDetected {
		t.Fatalf("setup: want LoopDetected, got %v", res.Verdict)
	}

	d.Allow("sess1", res.Hash)
	res2, err := d.Check("sess1", "bash", args)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res2.Verdict != VerdictOk {
		t.Errorf("allow-listed hash should bypass detection: got %v", res2.Verdict)
	}
}

func TestDisabledDetectorAlwaysOk(t *testing.T) {
	d := newTestDetector(Config{Enabled: false})
	for i := 0; i < 10; i++ {
		res, err := d.Check("sess1", "bash", json.RawMessage(`{"cmd":"ls"}`))
		if err != nil {
			t.Fatalf("Check: %v", err)
		}
		if res.Verdict != VerdictOk {
			t.Errorf("disabled detector should never trigger, got %v on call %d", res.Verdict, i)
		}
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	cfg := Config{MaxIdenticalCalls: 2, WindowSeconds: 60, MaxCallsPerTurn: 100, Enabled: true, DefaultAction: ActionAsk}
	d := newTestDetector(cfg)
	args := json.RawMessage(`{"cmd":"ls"}`)

	d.Check("sess1", "bash", args)
	res, err := d.Check("sess2", "bash", args)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Verdict != VerdictOk {
		t.Errorf("a different session's call count should not carry over, got %v", res.Verdict)
	}
}

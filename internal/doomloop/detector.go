package doomloop

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// sessionState is the per-session bookkeeping the detector keeps: a FIFO of
// recent call records, a per-hash count derived from that FIFO, the running
// turn counter, and the hashes the user has whitelisted for the session.
type sessionState struct {
	records   []callRecord
	counts    map[string]int
	turnCalls int
	allowed   map[string]bool
}

func newSessionState() *sessionState {
	return &sessionState{
		counts:  make(map[string]int),
		allowed: make(map[string]bool),
	}
}

// Detector tracks tool-call patterns across sessions and flags runaway
// turns before they burn through budget or spin on a broken tool.
type Detector struct {
	mu       sync.Mutex
	cfg      Config
	sessions map[string]*sessionState
	now      func() time.Time
	logger   *slog.Logger
}

// New creates a Detector. A zero Config is replaced with DefaultConfig.
func New(cfg Config, logger *slog.Logger) *Detector {
	if cfg.MaxIdenticalCalls == 0 && cfg.WindowSeconds == 0 && cfg.MaxCallsPerTurn == 0 {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		cfg:      cfg,
		sessions: make(map[string]*sessionState),
		now:      time.Now,
		logger:   logger.With("component", "doomloop"),
	}
}

// Hash computes the stable identity of a tool call: the tool name plus the
// canonical (key-sorted) JSON encoding of its arguments.
func Hash(tool string, args json.RawMessage) (string, error) {
	var canon interface{}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &canon); err != nil {
			return "", err
		}
	}
	encoded, err := json.Marshal(canon)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(append([]byte(tool+"\x00"), encoded...))
	return hex.EncodeToString(sum[:]), nil
}

func (d *Detector) state(sessionID string) *sessionState {
	s, ok := d.sessions[sessionID]
	if !ok {
		s = newSessionState()
		d.sessions[sessionID] = s
	}
	return s
}

// Check runs the per-call algorithm for a tool invocation: increment the
// turn counter, evict stale records from the window, and report whether
// this hash has now recurred too often.
func (d *Detector) Check(sessionID, tool string, args json.RawMessage) (Result, error) {
	if !d.cfg.Enabled {
		return Result{Verdict: VerdictOk}, nil
	}

	hash, err := Hash(tool, args)
	if err != nil {
		return Result{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.state(sessionID)

	s.turnCalls++
	if s.turnCalls > d.cfg.MaxCallsPerTurn {
		return Result{Verdict: VerdictTooManyCalls, Tool: tool, Hash: hash, Action: d.cfg.DefaultAction}, nil
	}

	if s.allowed[hash] {
		return Result{Verdict: VerdictOk, Tool: tool, Hash: hash}, nil
	}

	d.evict(s)

	s.records = append(s.records, callRecord{hash: hash, at: d.now()})
	s.counts[hash]++

	if s.counts[hash] >= d.cfg.MaxIdenticalCalls {
		d.logger.Warn("doom loop detected", "session", sessionID, "tool", tool, "count", s.counts[hash])
		return Result{
			Verdict: VerdictLoopDetected,
			Tool:    tool,
			Hash:    hash,
			Count:   s.counts[hash],
			Action:  d.cfg.DefaultAction,
		}, nil
	}

	return Result{Verdict: VerdictOk, Tool: tool, Hash: hash, Count: s.counts[hash]}, nil
}

func (d *Detector) evict(s *sessionState) {
	cutoff := d.now().Add(-time.Duration(d.cfg.WindowSeconds) * time.Second)
	kept := s.records[:0]
	for _, rec := range s.records {
		if rec.at.Before(cutoff) {
			s.counts[rec.hash]--
			if s.counts[rec.hash] <= 0 {
				delete(s.counts, rec.hash)
			}
			continue
		}
		kept = append(kept, rec)
	}
	s.records = kept
}

// Allow adds hash to the session's allow-list so future identical calls
// always return Ok, per the "always allow" response to a LoopDetected
// prompt.
func (d *Detector) Allow(sessionID, hash string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state(sessionID).allowed[hash] = true
}

// ResetTurn clears the per-turn call counter for a session. The turn
// runtime calls this at every turn boundary; the identical-call window and
// allow-list persist across turns within the session.
func (d *Detector) ResetTurn(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state(sessionID).turnCalls = 0
}

// Forget drops all state for a session, e.g. when it ends.
func (d *Detector) Forget(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.sessions, sessionID)
}

package permission

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const storeVersion = 1

// fileFormat is the on-disk shape of permissions.json.
type fileFormat struct {
	Version     int          `json:"version"`
	Permissions []Permission `json:"permissions"`
}

// Store is the permission gate: a persisted (scope=Always) list plus an
// in-memory session overlay (scope=Session), keyed by (tool, pattern).
// Lookups never mutate the store; callers record decisions explicitly via
// Record.
type Store struct {
	mu        sync.RWMutex
	path      string
	persisted []Permission
	session   []Permission
	logger    *slog.Logger
}

// NewStore creates a Store backed by path, seeded with the default
// allow/deny lists. If path already exists it is loaded; a missing file is
// not an error and simply degrades to the defaults.
func NewStore(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		path:      path,
		persisted: seedDefaults(),
		logger:    logger.With("component", "permission"),
	}
	if path == "" {
		return s, nil
	}
	if err := s.load(); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to load permission store, using defaults", "error", err, "path", path)
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var parsed fileFormat
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("permission: malformed store at %s: %w", s.path, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persisted = append(seedDefaults(), parsed.Permissions...)
	return nil
}

// Save persists the Always-scoped permissions to disk. I/O errors are
// returned to the caller but should never block the tool call that
// triggered the write; callers should log and continue.
func (s *Store) Save() error {
	s.mu.RLock()
	toSave := make([]Permission, 0, len(s.persisted))
	for _, p := range s.persisted {
		if p.Scope == ScopeAlways {
			toSave = append(toSave, p)
		}
	}
	s.mu.RUnlock()

	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("permission: creating store dir: %w", err)
	}
	data, err := json.MarshalIndent(fileFormat{Version: storeVersion, Permissions: toSave}, "", "  ")
	if err != nil {
		return fmt.Errorf("permission: encoding store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("permission: writing store: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Record adds a permission decision. ScopeOnce decisions are not stored
// (they only govern the call that produced them); ScopeSession is kept
// in-memory; ScopeAlways is persisted immediately.
func (s *Store) Record(p Permission) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	switch p.Scope {
	case ScopeOnce:
		return nil
	case ScopeSession:
		s.mu.Lock()
		s.session = append(s.session, p)
		s.mu.Unlock()
		return nil
	case ScopeAlways:
		s.mu.Lock()
		s.persisted = append(s.persisted, p)
		s.mu.Unlock()
		if err := s.Save(); err != nil {
			s.logger.Warn("failed to persist permission decision", "error", err, "tool", p.Tool, "pattern", p.Pattern)
			return err
		}
		return nil
	default:
		return fmt.Errorf("permission: unknown scope %q", p.Scope)
	}
}

// Lookup decides Allow/Ask/Deny for (tool, candidate). candidate is the
// raw command line or file path the tool call is about to act on; Lookup
// compares it directly against stored glob patterns.
//
// Session permissions are consulted first: an exact or wildcard hit there
// takes precedence over the persisted store. Within each tier, a Deny
// match short-circuits before the fewest-wildcards specificity tie-break
// runs, so a broad deny always beats a narrower allow.
func (s *Store) Lookup(tool, candidate string) Decision {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if d, ok := s.resolveTier(s.session, tool, candidate, ScopeSession); ok {
		return d
	}
	if d, ok := s.resolveTier(s.persisted, tool, candidate, ScopeAlways); ok {
		return d
	}
	return Decision{Response: ResponseAsk}
}

func (s *Store) resolveTier(perms []Permission, tool, candidate string, scope Scope) (Decision, bool) {
	var forTool []Permission
	for _, p := range perms {
		if p.Tool == tool {
			forTool = append(forTool, p)
		}
	}
	if len(forTool) == 0 {
		return Decision{}, false
	}

	var denies, allows []Permission
	for _, p := range forTool {
		if p.Response == ResponseDeny {
			denies = append(denies, p)
		} else {
			allows = append(allows, p)
		}
	}

	if match, ok := bestMatch(denies, candidate); ok {
		return Decision{Response: ResponseDeny, Pattern: match.Pattern, Scope: match.Scope}, true
	}
	if match, ok := bestMatch(allows, candidate); ok {
		return Decision{Response: ResponseAllow, Pattern: match.Pattern, Scope: match.Scope}, true
	}
	return Decision{}, false
}

// DerivePattern computes the default pattern assigned to a fresh decision:
// a command gets its leading token plus a wildcard tail, a path gets an
// extension wildcard.
func DerivePattern(tool, candidate string) string {
	if isCommandTool(tool) {
		if idx := strings.IndexByte(candidate, ' '); idx >= 0 {
			return candidate[:idx+1] + "*"
		}
		return candidate + "*"
	}
	ext := filepath.Ext(candidate)
	if ext == "" {
		return "*"
	}
	return "*" + ext
}

func isCommandTool(tool string) bool {
	switch strings.ToLower(tool) {
	case "bash", "execute", "exec", "shell":
		return true
	default:
		return false
	}
}

package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"
)

type redoEntry struct {
	position int64
	point    RevertPoint
}

// Manager is the revert ledger: a bounded-history ring of workspace
// checkpoints plus a redo stack, all addressed by content hash.
type Manager struct {
	mu  sync.Mutex
	cfg Config

	blobs *blobStore
	idx   *index

	// currentPos is the ring position of the RevertPoint matching the
	// workspace's current on-disk state. Zero means no checkpoint exists
	// yet.
	currentPos int64
	redo       []redoEntry

	logger *slog.Logger
}

// New creates a Manager backed by cfg's workspace root, blob directory, and
// sqlite index file.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Manager, error) {
	if cfg.WorkspaceRoot == "" {
		return nil, fmt.Errorf("snapshot: WorkspaceRoot is required")
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = 100
	}
	blobDir := cfg.BlobDir
	if blobDir == "" {
		blobDir = filepath.Join(cfg.WorkspaceRoot, ".cortex-snapshots")
	}
	blobs, err := newBlobStore(blobDir)
	if err != nil {
		return nil, err
	}
	idx, err := openIndex(ctx, cfg.IndexPath)
	if err != nil {
		return nil, err
	}
	return newManager(cfg, blobs, idx, logger)
}

// NewWithIndexDB wires the manager's metadata ledger to an already-open
// *sql.DB, letting tests drive the index through a mocked driver.
func NewWithIndexDB(ctx context.Context, cfg Config, db *sql.DB, logger *slog.Logger) (*Manager, error) {
	if cfg.WorkspaceRoot == "" {
		return nil, fmt.Errorf("snapshot: WorkspaceRoot is required")
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = 100
	}
	blobDir := cfg.BlobDir
	if blobDir == "" {
		blobDir = filepath.Join(cfg.WorkspaceRoot, ".cortex-snapshots")
	}
	blobs, err := newBlobStore(blobDir)
	if err != nil {
		return nil, err
	}
	idx, err := openIndexDB(ctx, db)
	if err != nil {
		return nil, err
	}
	return newManager(cfg, blobs, idx, logger)
}

func newManager(cfg Config, blobs *blobStore, idx *index, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		cfg:    cfg,
		blobs:  blobs,
		idx:    idx,
		logger: logger.With("component", "snapshot"),
	}
	return m, nil
}

// Close releases the manager's index connection.
func (m *Manager) Close() error {
	return m.idx.close()
}

func (m *Manager) currentPaths(ctx context.Context) ([]FileState, error) {
	if m.currentPos == 0 {
		return nil, nil
	}
	positions, points, err := m.idx.list(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexOf(positions, m.currentPos); i >= 0 {
		return points[i].Snapshot.Paths, nil
	}
	return nil, nil
}

// Checkpoint captures the current workspace tree, pushes it onto the
// history ring, and clears the redo stack.
func (m *Manager) Checkpoint(ctx context.Context, description string) (*RevertPoint, error) {
	return m.checkpoint(ctx, "", "", description)
}

// CheckpointForMessage is Checkpoint annotated with the session/message
// that produced it.
func (m *Manager) CheckpointForMessage(ctx context.Context, sessionID, messageID, description string) (*RevertPoint, error) {
	return m.checkpoint(ctx, sessionID, messageID, description)
}

func (m *Manager) checkpoint(ctx context.Context, sessionID, messageID, description string) (*RevertPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prevPaths, err := m.currentPaths(ctx)
	if err != nil {
		return nil, err
	}

	paths, treeHash, err := m.blobs.captureTree(m.cfg.WorkspaceRoot, m.cfg.IgnoreDirs)
	if err != nil {
		return nil, fmt.Errorf("snapshot: capturing tree: %w", err)
	}

	rp := RevertPoint{
		Snapshot: Snapshot{
			ID:          treeHash,
			TreeHash:    treeHash,
			CreatedAt:   time.Now(),
			Description: description,
			SessionID:   sessionID,
			MessageID:   messageID,
			Paths:       paths,
		},
		ModifiedFiles: diffPaths(prevPaths, paths),
		Active:        true,
	}

	pos, err := m.idx.append(ctx, rp)
	if err != nil {
		return nil, err
	}
	m.currentPos = pos
	m.redo = nil

	if err := m.enforceBound(ctx); err != nil {
		m.logger.Warn("failed to trim snapshot history", "error", err)
	}

	m.logger.Debug("checkpoint created", "id", shortID(treeHash), "files", len(paths), "modified", len(rp.ModifiedFiles))
	return &rp, nil
}

func (m *Manager) enforceBound(ctx context.Context) error {
	count, err := m.idx.count(ctx)
	if err != nil {
		return err
	}
	if count <= m.cfg.MaxHistory {
		return nil
	}
	minPos, err := m.idx.minPosition(ctx)
	if err != nil {
		return err
	}
	cutoff := minPos + int64(count-m.cfg.MaxHistory)
	return m.idx.trimBefore(ctx, cutoff)
}

// Undo restores the workspace to the checkpoint immediately before the
// current position, pushing the current state onto the redo stack.
func (m *Manager) Undo(ctx context.Context) (*RevertPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	positions, points, err := m.idx.list(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(positions, m.currentPos)
	if i <= 0 {
		return nil, ErrNothingToUndo
	}

	m.redo = append(m.redo, redoEntry{position: positions[i], point: points[i]})

	target := points[i-1]
	if err := m.blobs.restoreTree(m.cfg.WorkspaceRoot, target.Snapshot.Paths, m.cfg.IgnoreDirs); err != nil {
		return nil, fmt.Errorf("snapshot: restoring tree: %w", err)
	}
	m.currentPos = positions[i-1]
	m.logger.Debug("undo", "id", shortID(target.Snapshot.ID))
	return &target, nil
}

// Redo re-applies the most recently undone checkpoint.
func (m *Manager) Redo(ctx context.Context) (*RevertPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.redo) == 0 {
		return nil, ErrNothingToRedo
	}
	entry := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]

	if err := m.blobs.restoreTree(m.cfg.WorkspaceRoot, entry.point.Snapshot.Paths, m.cfg.IgnoreDirs); err != nil {
		return nil, fmt.Errorf("snapshot: restoring tree: %w", err)
	}
	m.currentPos = entry.position
	m.logger.Debug("redo", "id", shortID(entry.point.Snapshot.ID))
	return &entry.point, nil
}

// RevertTo jumps to the checkpoint matching snapshotID (a full id or an
// unambiguous prefix of at least 8 hex characters). Every checkpoint newer
// than the target is pushed onto the redo stack, nearest first.
func (m *Manager) RevertTo(ctx context.Context, snapshotID string) (*RevertPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	targetPos, target, err := m.idx.findByPrefix(ctx, snapshotID)
	if err != nil {
		return nil, err
	}

	positions, points, err := m.idx.list(ctx)
	if err != nil {
		return nil, err
	}

	var future []redoEntry
	for i, pos := range positions {
		if pos > targetPos {
			future = append(future, redoEntry{position: pos, point: points[i]})
		}
	}
	for i := len(future) - 1; i >= 0; i-- {
		m.redo = append(m.redo, future[i])
	}

	if err := m.idx.deleteFrom(ctx, targetPos+1); err != nil {
		return nil, err
	}
	if err := m.blobs.restoreTree(m.cfg.WorkspaceRoot, target.Snapshot.Paths, m.cfg.IgnoreDirs); err != nil {
		return nil, fmt.Errorf("snapshot: restoring tree: %w", err)
	}
	m.currentPos = targetPos
	m.logger.Debug("revert_to", "id", shortID(target.Snapshot.ID))
	return &target, nil
}

// RevertMessage restores only the files that differ between the
// checkpoint associated with messageID and the checkpoint immediately
// before it, leaving every other file and the ledger position untouched.
func (m *Manager) RevertMessage(ctx context.Context, messageID string) (*RevertPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, target, found, err := m.idx.findByMessageID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}

	positions, points, err := m.idx.list(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(positions, pos)
	var prevPaths []FileState
	if i > 0 {
		prevPaths = points[i-1].Snapshot.Paths
	}

	if err := m.blobs.restoreSubset(m.cfg.WorkspaceRoot, target.Snapshot.Paths, diffPaths(prevPaths, target.Snapshot.Paths)); err != nil {
		return nil, fmt.Errorf("snapshot: restoring message subset: %w", err)
	}
	m.logger.Debug("revert_message", "message_id", messageID, "id", shortID(target.Snapshot.ID))
	return &target, nil
}

// History returns every checkpoint currently in the ring, oldest first.
func (m *Manager) History(ctx context.Context) ([]RevertPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, points, err := m.idx.list(ctx)
	return points, err
}

func indexOf(positions []int64, target int64) int {
	for i, p := range positions {
		if p == target {
			return i
		}
	}
	return -1
}

func shortID(id string) string {
	if len(id) <= minPrefixLen {
		return id
	}
	return id[:minPrefixLen]
}

package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// index is the metadata ledger backing the revert history: one row per
// RevertPoint, keyed by snapshot id, carrying its ring position so history
// order survives a process restart. Snapshot tree content itself lives in
// the blob store, addressed by the same id.
type index struct {
	db *sql.DB
}

func openIndex(ctx context.Context, path string) (*index, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: opening index: %w", err)
	}
	db.SetMaxOpenConns(1)
	idx := &index{db: db}
	if err := idx.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

// openIndexDB wraps an already-open *sql.DB, used by tests that drive the
// index through a mocked driver.
func openIndexDB(ctx context.Context, db *sql.DB) (*index, error) {
	idx := &index{db: db}
	if err := idx.init(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *index) init(ctx context.Context) error {
	_, err := idx.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS revert_points (
		position INTEGER PRIMARY KEY AUTOINCREMENT,
		snapshot_id TEXT NOT NULL,
		tree_hash TEXT NOT NULL,
		description TEXT,
		session_id TEXT,
		message_id TEXT,
		modified_files TEXT,
		diff TEXT,
		paths TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("snapshot: creating index table: %w", err)
	}
	return nil
}

func (idx *index) close() error {
	return idx.db.Close()
}

// append inserts a new RevertPoint at the head of the ledger and returns
// its ring position.
func (idx *index) append(ctx context.Context, rp RevertPoint) (int64, error) {
	pathsJSON, err := json.Marshal(rp.Snapshot.Paths)
	if err != nil {
		return 0, fmt.Errorf("snapshot: encoding paths: %w", err)
	}
	modifiedJSON, err := json.Marshal(rp.ModifiedFiles)
	if err != nil {
		return 0, fmt.Errorf("snapshot: encoding modified files: %w", err)
	}

	res, err := idx.db.ExecContext(ctx,
		`INSERT INTO revert_points (snapshot_id, tree_hash, description, session_id, message_id, modified_files, diff, paths, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rp.Snapshot.ID, rp.Snapshot.TreeHash, rp.Snapshot.Description, rp.Snapshot.SessionID, rp.Snapshot.MessageID,
		string(modifiedJSON), rp.Diff, string(pathsJSON), rp.Snapshot.CreatedAt.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("snapshot: inserting revert point: %w", err)
	}
	return res.LastInsertId()
}

// trimBefore deletes every row with position < cutoff, enforcing the
// bounded-history ring.
func (idx *index) trimBefore(ctx context.Context, cutoff int64) error {
	_, err := idx.db.ExecContext(ctx, `DELETE FROM revert_points WHERE position < ?`, cutoff)
	if err != nil {
		return fmt.Errorf("snapshot: trimming history: %w", err)
	}
	return nil
}

// deleteFrom removes every row with position >= from, used when a
// revert_to jump invalidates everything after the new current position.
func (idx *index) deleteFrom(ctx context.Context, from int64) error {
	_, err := idx.db.ExecContext(ctx, `DELETE FROM revert_points WHERE position >= ?`, from)
	if err != nil {
		return fmt.Errorf("snapshot: deleting history tail: %w", err)
	}
	return nil
}

func (idx *index) count(ctx context.Context) (int, error) {
	var n int
	if err := idx.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM revert_points`).Scan(&n); err != nil {
		return 0, fmt.Errorf("snapshot: counting history: %w", err)
	}
	return n, nil
}

func (idx *index) minPosition(ctx context.Context) (int64, error) {
	var n sql.NullInt64
	if err := idx.db.QueryRowContext(ctx, `SELECT MIN(position) FROM revert_points`).Scan(&n); err != nil {
		return 0, fmt.Errorf("snapshot: reading min position: %w", err)
	}
	if !n.Valid {
		return 0, nil
	}
	return n.Int64, nil
}

// list returns every RevertPoint ordered oldest-to-newest along with its
// ring position.
func (idx *index) list(ctx context.Context) ([]int64, []RevertPoint, error) {
	rows, err := idx.db.QueryContext(ctx,
		`SELECT position, snapshot_id, tree_hash, description, session_id, message_id, modified_files, diff, paths, created_at
		 FROM revert_points ORDER BY position ASC`)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: listing history: %w", err)
	}
	defer rows.Close()

	var positions []int64
	var points []RevertPoint
	for rows.Next() {
		pos, rp, err := scanRevertPoint(rows)
		if err != nil {
			return nil, nil, err
		}
		positions = append(positions, pos)
		points = append(points, rp)
	}
	return positions, points, rows.Err()
}

// findByMessageID returns the position and RevertPoint annotated with
// msgID, if any.
func (idx *index) findByMessageID(ctx context.Context, msgID string) (int64, RevertPoint, bool, error) {
	row := idx.db.QueryRowContext(ctx,
		`SELECT position, snapshot_id, tree_hash, description, session_id, message_id, modified_files, diff, paths, created_at
		 FROM revert_points WHERE message_id = ? ORDER BY position ASC LIMIT 1`, msgID)
	pos, rp, err := scanRevertPointRow(row)
	if err == sql.ErrNoRows {
		return 0, RevertPoint{}, false, nil
	}
	if err != nil {
		return 0, RevertPoint{}, false, err
	}
	return pos, rp, true, nil
}

// findByPrefix resolves a short snapshot id prefix to exactly one
// position/RevertPoint, erroring on zero or multiple matches.
func (idx *index) findByPrefix(ctx context.Context, prefix string) (int64, RevertPoint, error) {
	if len(prefix) < minPrefixLen {
		return 0, RevertPoint{}, ErrShortPrefix
	}
	rows, err := idx.db.QueryContext(ctx,
		`SELECT position, snapshot_id, tree_hash, description, session_id, message_id, modified_files, diff, paths, created_at
		 FROM revert_points WHERE snapshot_id LIKE ? ORDER BY position ASC`, prefix+"%")
	if err != nil {
		return 0, RevertPoint{}, fmt.Errorf("snapshot: querying prefix: %w", err)
	}
	defer rows.Close()

	var positions []int64
	var points []RevertPoint
	seen := make(map[string]bool)
	for rows.Next() {
		pos, rp, err := scanRevertPoint(rows)
		if err != nil {
			return 0, RevertPoint{}, err
		}
		if seen[rp.Snapshot.ID] {
			continue
		}
		seen[rp.Snapshot.ID] = true
		positions = append(positions, pos)
		points = append(points, rp)
	}
	if err := rows.Err(); err != nil {
		return 0, RevertPoint{}, err
	}
	if len(points) == 0 {
		return 0, RevertPoint{}, ErrNotFound
	}
	if len(points) > 1 {
		ids := make([]string, len(points))
		for i, p := range points {
			ids[i] = p.Snapshot.ID
		}
		return 0, RevertPoint{}, fmt.Errorf("%w: %q matches %s", ErrAmbiguousPrefix, prefix, strings.Join(ids, ", "))
	}
	return positions[0], points[0], nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRevertPoint(rows *sql.Rows) (int64, RevertPoint, error) {
	return scanRevertPointRow(rows)
}

func scanRevertPointRow(row scannable) (int64, RevertPoint, error) {
	var pos int64
	var snapshotID, treeHash, pathsJSON, modifiedJSON string
	var description, sessionID, messageID, diff sql.NullString
	var createdAt int64

	if err := row.Scan(&pos, &snapshotID, &treeHash, &description, &sessionID, &messageID, &modifiedJSON, &diff, &pathsJSON, &createdAt); err != nil {
		return 0, RevertPoint{}, err
	}

	var paths []FileState
	if err := json.Unmarshal([]byte(pathsJSON), &paths); err != nil {
		return 0, RevertPoint{}, fmt.Errorf("snapshot: decoding paths: %w", err)
	}
	var modified []string
	if modifiedJSON != "" {
		_ = json.Unmarshal([]byte(modifiedJSON), &modified)
	}

	rp := RevertPoint{
		Snapshot: Snapshot{
			ID:          snapshotID,
			TreeHash:    treeHash,
			CreatedAt:   time.Unix(createdAt, 0).UTC(),
			Description: description.String,
			SessionID:   sessionID.String,
			MessageID:   messageID.String,
			Paths:       paths,
		},
		ModifiedFiles: modified,
		Diff:          diff.String,
	}
	return pos, rp, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/hetgrid/internal/gridding/convfunc"
)

// ErrCheckpointNotFound is returned when no checkpoint matches a lookup.
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// CheckpointStore persists convolution-function cache checkpoints. It
// implements convfunc.CheckpointStore.
type CheckpointStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ convfunc.CheckpointStore = (*CheckpointStore)(nil)

// NewCheckpointStore returns a store over db. The schema must already be
// migrated; see OpenDB.
func NewCheckpointStore(db *sql.DB) *CheckpointStore {
	return &CheckpointStore{db: db, now: time.Now}
}

// InsertCheckpoint stores rec and returns its ID. An empty CheckpointID is
// replaced with a new UUID and a zero CreatedUnixNanos with the current
// time; both are written back to rec.
func (s *CheckpointStore) InsertCheckpoint(ctx context.Context, rec *convfunc.CheckpointRecord) (string, error) {
	if rec.RunID == "" {
		return "", fmt.Errorf("insert checkpoint: run id is required")
	}
	if len(rec.Blob) == 0 {
		return "", fmt.Errorf("insert checkpoint: empty blob")
	}
	if rec.CheckpointID == "" {
		rec.CheckpointID = uuid.New().String()
	}
	if rec.CreatedUnixNanos == 0 {
		rec.CreatedUnixNanos = s.now().UnixNano()
	}

	err := retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO cf_checkpoints (
				checkpoint_id, run_id, created_unix_nanos, image_nx, image_ny,
				oversampling, n_entries, n_classes, app_version, blob
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.CheckpointID, rec.RunID, rec.CreatedUnixNanos, rec.ImageNX, rec.ImageNY,
			rec.Oversampling, rec.NEntries, rec.NClasses, nullString(rec.AppVersion), rec.Blob,
		)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("insert checkpoint: %w", err)
	}
	return rec.CheckpointID, nil
}

// GetCheckpoint returns the checkpoint with the given ID, blob included.
func (s *CheckpointStore) GetCheckpoint(ctx context.Context, checkpointID string) (*convfunc.CheckpointRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+checkpointColumns+`, blob
		FROM cf_checkpoints
		WHERE checkpoint_id = ?`, checkpointID)
	rec, err := scanCheckpoint(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCheckpointNotFound, checkpointID)
	}
	return rec, err
}

// LatestCheckpoint returns the newest checkpoint of runID, blob included.
func (s *CheckpointStore) LatestCheckpoint(ctx context.Context, runID string) (*convfunc.CheckpointRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+checkpointColumns+`, blob
		FROM cf_checkpoints
		WHERE run_id = ?
		ORDER BY created_unix_nanos DESC, rowid DESC
		LIMIT 1`, runID)
	rec, err := scanCheckpoint(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: run %s", ErrCheckpointNotFound, runID)
	}
	return rec, err
}

// ListCheckpoints returns the checkpoints of runID, newest first, without
// their blobs.
func (s *CheckpointStore) ListCheckpoints(ctx context.Context, runID string) ([]*convfunc.CheckpointRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+checkpointColumns+`
		FROM cf_checkpoints
		WHERE run_id = ?
		ORDER BY created_unix_nanos DESC, rowid DESC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query checkpoints: %w", err)
	}
	defer rows.Close()

	var recs []*convfunc.CheckpointRecord
	for rows.Next() {
		rec, err := scanCheckpoint(rows, false)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// DeleteCheckpoint removes one checkpoint.
func (s *CheckpointStore) DeleteCheckpoint(ctx context.Context, checkpointID string) error {
	return retryOnBusy(ctx, func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM cf_checkpoints WHERE checkpoint_id = ?`, checkpointID)
		if err != nil {
			return fmt.Errorf("delete checkpoint: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete checkpoint: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrCheckpointNotFound, checkpointID)
		}
		return nil
	})
}

// PruneCheckpoints deletes all but the newest keep checkpoints of runID and
// returns how many were removed.
func (s *CheckpointStore) PruneCheckpoints(ctx context.Context, runID string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	var removed int64
	err := retryOnBusy(ctx, func() error {
		result, err := s.db.ExecContext(ctx, `
			DELETE FROM cf_checkpoints
			WHERE run_id = ? AND checkpoint_id NOT IN (
				SELECT checkpoint_id FROM cf_checkpoints
				WHERE run_id = ?
				ORDER BY created_unix_nanos DESC, rowid DESC
				LIMIT ?
			)`, runID, runID, keep)
		if err != nil {
			return err
		}
		removed, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune checkpoints: %w", err)
	}
	return removed, nil
}

const checkpointColumns = `checkpoint_id, run_id, created_unix_nanos, image_nx, image_ny,
		       oversampling, n_entries, n_classes, app_version`

type scanner interface {
	Scan(dest ...any) error
}

func scanCheckpoint(sc scanner, withBlob bool) (*convfunc.CheckpointRecord, error) {
	var rec convfunc.CheckpointRecord
	var appVersion sql.NullString
	dest := []any{
		&rec.CheckpointID, &rec.RunID, &rec.CreatedUnixNanos, &rec.ImageNX, &rec.ImageNY,
		&rec.Oversampling, &rec.NEntries, &rec.NClasses, &appVersion,
	}
	if withBlob {
		dest = append(dest, &rec.Blob)
	}
	if err := sc.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan checkpoint: %w", err)
	}
	if appVersion.Valid {
		rec.AppVersion = appVersion.String
	}
	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

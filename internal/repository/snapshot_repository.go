package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/clinic-treatment-board/internal/model"
)

// Dialect selects the upsert syntax.
type Dialect string

const (
	DialectSQLite Dialect = "sqlite"
	DialectMySQL  Dialect = "mysql"
)

// SnapshotRepo keeps the whole board as one JSON blob under a fixed key in
// board_snapshots(snapshot_key, payload, updated_at).
type SnapshotRepo struct {
	DB      *sql.DB
	Dialect Dialect
	Key     string
}

func NewSnapshotRepo(db *sql.DB, dialect Dialect, key string) *SnapshotRepo {
	return &SnapshotRepo{DB: db, Dialect: dialect, Key: key}
}

// EnsureSchema creates the snapshot table if it does not exist.
func (r *SnapshotRepo) EnsureSchema(ctx context.Context) error {
	var ddl string
	switch r.Dialect {
	case DialectMySQL:
		ddl = `CREATE TABLE IF NOT EXISTS board_snapshots (
			snapshot_key VARCHAR(64) NOT NULL PRIMARY KEY,
			payload LONGTEXT NOT NULL,
			updated_at DATETIME NOT NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`
	default:
		ddl = `CREATE TABLE IF NOT EXISTS board_snapshots (
			snapshot_key TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`
	}
	if _, err := r.DB.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create board_snapshots: %w", err)
	}
	return nil
}

// Load decodes the stored snapshot.
func (r *SnapshotRepo) Load(ctx context.Context) (model.RootState, error) {
	var payload []byte
	err := r.DB.QueryRowContext(ctx,
		"SELECT payload FROM board_snapshots WHERE snapshot_key=? LIMIT 1", r.Key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RootState{}, ErrSnapshotNotFound
	}
	if err != nil {
		return model.RootState{}, err
	}
	var s model.RootState
	if err := json.Unmarshal(payload, &s); err != nil {
		return model.RootState{}, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}
	s.Normalize()
	return s, nil
}

// Save overwrites the stored snapshot.
func (r *SnapshotRepo) Save(ctx context.Context, s model.RootState) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, r.upsertSQL(), r.Key, string(payload), time.Now().UTC())
	return err
}

// Delete removes the stored snapshot so the next start begins fresh.
func (r *SnapshotRepo) Delete(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM board_snapshots WHERE snapshot_key=?", r.Key)
	return err
}

func (r *SnapshotRepo) upsertSQL() string {
	if r.Dialect == DialectMySQL {
		return "INSERT INTO board_snapshots (snapshot_key, payload, updated_at) VALUES (?,?,?) " +
			"ON DUPLICATE KEY UPDATE payload=VALUES(payload), updated_at=VALUES(updated_at)"
	}
	return "INSERT INTO board_snapshots (snapshot_key, payload, updated_at) VALUES (?,?,?) " +
		"ON CONFLICT(snapshot_key) DO UPDATE SET payload=excluded.payload, updated_at=excluded.updated_at"
}

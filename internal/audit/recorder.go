// Package audit records before/after change history for tracked entities.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is satisfied by both pgxpool.Pool and pgx.Tx so records land in the
// caller's transaction when one is open.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Snapshot is a flattened view of an entity's persisted fields.
type Snapshot map[string]any

// volatile bookkeeping fields are excluded before comparison.
var volatileFields = []string{"created_at", "updated_at", "deleted"}

// Entry describes one change record.
type Entry struct {
	EntityType string    `json:"entity_type"`
	EntityID   int64     `json:"entity_id"`
	Action     string    `json:"action"`
	OldValues  Snapshot  `json:"old_values"`
	NewValues  Snapshot  `json:"new_values"`
	UserID     int64     `json:"user_id"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Recorder appends immutable audit rows.
type Recorder struct {
	db Execer
}

// NewRecorder constructs a Recorder over a pool or transaction.
func NewRecorder(db Execer) *Recorder {
	return &Recorder{db: db}
}

// RecordIfChanged compares sanitized snapshots and appends one audit row when
// they differ. An unchanged entity writes nothing; that is a deliberate
// short-circuit, not a failure.
func (r *Recorder) RecordIfChanged(ctx context.Context, db Execer, entry Entry) (bool, error) {
	if db == nil {
		db = r.db
	}
	if db == nil {
		return false, errors.New("audit: recorder not initialised")
	}
	if entry.EntityType == "" || entry.Action == "" {
		return false, errors.New("audit: entity_type and action required")
	}
	before := sanitize(entry.OldValues)
	after := sanitize(entry.NewValues)
	oldJSON, err := json.Marshal(before)
	if err != nil {
		return false, err
	}
	newJSON, err := json.Marshal(after)
	if err != nil {
		return false, err
	}
	if string(oldJSON) == string(newJSON) {
		return false, nil
	}
	_, err = db.Exec(ctx, `INSERT INTO audit_logs (entity_type, entity_id, action, old_values, new_values, user_id, comment, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`,
		entry.EntityType, entry.EntityID, entry.Action, oldJSON, newJSON, entry.UserID, nullable(entry.Comment))
	if err != nil {
		return false, err
	}
	return true, nil
}

// Take builds a Snapshot from any struct with JSON tags matching column names.
func Take(v any) Snapshot {
	raw, err := json.Marshal(v)
	if err != nil {
		return Snapshot{}
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}
	}
	return snap
}

func sanitize(snap Snapshot) Snapshot {
	if snap == nil {
		return Snapshot{}
	}
	clean := make(Snapshot, len(snap))
	for k, v := range snap {
		clean[k] = v
	}
	for _, field := range volatileFields {
		delete(clean, field)
	}
	return clean
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

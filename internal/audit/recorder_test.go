package audit

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type execRecorder struct {
	calls int
	sql   string
	args  []any
}

func (e *execRecorder) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	e.calls++
	e.sql = sql
	e.args = args
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestRecordIfChangedWritesOnDiff(t *testing.T) {
	exec := &execRecorder{}
	recorder := NewRecorder(exec)

	written, err := recorder.RecordIfChanged(context.Background(), nil, Entry{
		EntityType: "material_request",
		EntityID:   42,
		Action:     "material_request_updated",
		OldValues:  Snapshot{"status": 1},
		NewValues:  Snapshot{"status": 2},
		UserID:     7,
	})
	require.NoError(t, err)
	require.True(t, written)
	require.Equal(t, 1, exec.calls)
	require.Contains(t, exec.sql, "INSERT INTO audit_logs")
	require.Equal(t, "material_request", exec.args[0])
	require.Equal(t, int64(42), exec.args[1])
}

func TestRecordIfChangedSuppressesNoOp(t *testing.T) {
	exec := &execRecorder{}
	recorder := NewRecorder(exec)

	written, err := recorder.RecordIfChanged(context.Background(), nil, Entry{
		EntityType: "supplier",
		EntityID:   1,
		Action:     "supplier_updated",
		OldValues:  Snapshot{"name": "BuildSupply LLC"},
		NewValues:  Snapshot{"name": "BuildSupply LLC"},
	})
	require.NoError(t, err)
	require.False(t, written)
	require.Zero(t, exec.calls)
}

func TestRecordIfChangedIgnoresVolatileFields(t *testing.T) {
	exec := &execRecorder{}
	recorder := NewRecorder(exec)

	// Only bookkeeping columns differ; the write is suppressed.
	written, err := recorder.RecordIfChanged(context.Background(), nil, Entry{
		EntityType: "project",
		EntityID:   5,
		Action:     "project_updated",
		OldValues:  Snapshot{"name": "Riverside", "updated_at": "2024-01-01T00:00:00Z", "deleted": false},
		NewValues:  Snapshot{"name": "Riverside", "updated_at": "2024-06-01T00:00:00Z", "deleted": false},
	})
	require.NoError(t, err)
	require.False(t, written)
	require.Zero(t, exec.calls)
}

func TestRecordIfChangedValidatesEntry(t *testing.T) {
	recorder := NewRecorder(&execRecorder{})

	_, err := recorder.RecordIfChanged(context.Background(), nil, Entry{EntityID: 1, Action: "x"})
	require.Error(t, err)

	_, err = recorder.RecordIfChanged(context.Background(), nil, Entry{EntityType: "project", EntityID: 1})
	require.Error(t, err)
}

func TestTakeFlattensStruct(t *testing.T) {
	type row struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	snap := Take(row{ID: 3, Name: "Cement M500"})
	require.Equal(t, "Cement M500", snap["name"])
	require.EqualValues(t, 3, snap["id"])
}

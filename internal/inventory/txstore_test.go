package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

// recordingTx captures Exec calls; the remaining pgx.Tx surface is unused by
// the statements under test.
type recordingTx struct {
	execs  []execCall
	rowErr error
}

func (r *recordingTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	r.execs = append(r.execs, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (r *recordingTx) QueryRow(context.Context, string, ...any) pgx.Row {
	return errRow{err: r.rowErr}
}

func (r *recordingTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected query")
}

func (r *recordingTx) Begin(context.Context) (pgx.Tx, error) { return nil, errors.New("unexpected") }
func (r *recordingTx) Commit(context.Context) error          { return nil }
func (r *recordingTx) Rollback(context.Context) error        { return nil }
func (r *recordingTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("unexpected")
}
func (r *recordingTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (r *recordingTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (r *recordingTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, errors.New("unexpected")
}
func (r *recordingTx) Conn() *pgx.Conn { return nil }

type errRow struct{ err error }

func (e errRow) Scan(...any) error { return e.err }

func TestIncrementStockUpserts(t *testing.T) {
	tx := &recordingTx{}
	store := NewTxStore(tx)
	key := StockKey{WarehouseID: 77, MaterialID: 10, MaterialType: 1, UnitOfMeasure: 5}

	require.NoError(t, store.IncrementStock(context.Background(), key, 25))

	// One statement; a racing first receipt for the same key must land on
	// the unique index, not on a second INSERT.
	require.Len(t, tx.execs, 1)
	call := tx.execs[0]
	require.Contains(t, call.sql, "ON CONFLICT (warehouse_id, material_id, material_type, unit_of_measure)")
	require.Contains(t, call.sql, "quantity = warehouse_stock.quantity + EXCLUDED.quantity")
	require.Equal(t, []any{int64(77), int64(10), int64(1), int64(5), 25.0}, call.args)
}

func TestInsertMovementAnonymousActor(t *testing.T) {
	tx := &recordingTx{}
	store := NewTxStore(tx)

	err := store.InsertMovement(context.Background(), MaterialMovement{
		ProjectID:     1,
		ToWarehouseID: 77,
		MaterialID:    10,
		Quantity:      25,
		Operation:     OperationIn,
		Note:          SystemMovementNote,
		Status:        1,
	})
	require.NoError(t, err)

	require.Len(t, tx.execs, 1)
	call := tx.execs[0]
	// A receipt without an acting user must not write a dangling user id.
	require.Contains(t, call.sql, "NULLIF($8, 0)")
	require.Equal(t, int64(0), call.args[7])
	// Absent from/to ids collapse to NULL the same way.
	require.Contains(t, call.sql, "NULLIF($3, 0)")
	require.Equal(t, int64(0), call.args[2])
	date, ok := call.args[1].(time.Time)
	require.True(t, ok)
	require.WithinDuration(t, time.Now(), date, time.Minute)
}

func TestGetWarehouseMissing(t *testing.T) {
	tx := &recordingTx{rowErr: pgx.ErrNoRows}
	store := NewTxStore(tx)

	_, err := store.GetWarehouse(context.Background(), 404)
	require.ErrorIs(t, err, ErrWarehouseNotFound)
}

package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

type recordingQuerier struct {
	execs []execCall
}

func (q *recordingQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.execs = append(q.execs, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (q *recordingQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not supported")
}

func (q *recordingQuerier) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func TestAlertArchive_MarkClosedDoesNotNeedArchivedRow(t *testing.T) {
	q := &recordingQuerier{}
	archive := NewAlertArchive(q)
	at := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

	require.NoError(t, archive.MarkClosed(context.Background(), "alert-1", CloseDismissed, at))

	require.Len(t, q.execs, 1)
	sql := q.execs[0].sql
	assert.Contains(t, sql, "INSERT INTO alert_closures")
	assert.Contains(t, sql, "ON CONFLICT (alert_id) DO NOTHING")
	assert.False(t, strings.Contains(sql, "UPDATE"), "closing never depends on the archive row")
	assert.Equal(t, []any{"alert-1", at, CloseDismissed}, q.execs[0].args)
}

func TestMigrations_ClosuresBackfilled(t *testing.T) {
	migrations := GetMigrations()
	last := migrations[len(migrations)-1]

	assert.Equal(t, "create_alert_closures", last.Name)
	assert.Contains(t, last.UpSQL, "CREATE TABLE IF NOT EXISTS alert_closures")
	assert.Contains(t, last.UpSQL, "FROM alert_archive")
}

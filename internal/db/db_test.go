package db

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func newMockDB(t *testing.T) (*bun.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqldb.Close() })
	return NewDB(sqldb, false), mock
}

func TestInitDB(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "runs"`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, InitDB(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStoreRecordRun(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`INSERT INTO "runs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(7, time.Now()))

	run := &Run{
		RunID:          "2b1f5f1e-3c1d-4f59-9c59-9f0e4b7f1a11",
		SourceFilename: "contatos.xlsx",
		ContactColumn:  "phone",
		NumbersRemoved: 2,
		RowsIn:         10,
		RowsOut:        7,
		ChunkCount:     1,
	}
	require.NoError(t, NewRunStore(db).RecordRun(context.Background(), run))
	assert.Equal(t, int64(7), run.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListRuns(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT .* FROM "runs" AS "r" ORDER BY id DESC LIMIT 5`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "run_id", "rows_out"}).
			AddRow(2, "b", 3).
			AddRow(1, "a", 9))

	runs, err := ListRuns(context.Background(), db, 5)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].RunID)
	assert.Equal(t, 9, runs[1].RowsOut)
	require.NoError(t, mock.ExpectationsWereMet())
}

package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/tarikstafford/reve-app-sub000/internal/store"
)

type fakeResult struct {
	rows int64
	err  error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, r.err }

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", sql.ErrNoRows, store.ErrNotFound},
		{"unique", &pgconn.PgError{Code: uniqueViolationCode}, store.ErrDuplicate},
		{"check", &pgconn.PgError{Code: checkViolationCode, ConstraintName: "queue_tasks_status_check"}, store.ErrInvalidEntity},
		{"not null", &pgconn.PgError{Code: notNullViolationCode, ColumnName: "image_prompt"}, store.ErrInvalidEntity},
		{"foreign key", fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: foreignKeyViolationCode}), store.ErrInvalidEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, MapError(tt.err), tt.want)
		})
	}

	assert.NoError(t, MapError(nil))
	plain := errors.New("connection reset")
	assert.Equal(t, plain, MapError(plain))
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: uniqueViolationCode}))
	assert.False(t, IsUniqueViolation(plain))
}

func TestCheckRowsAffected(t *testing.T) {
	t.Parallel()

	assert.NoError(t, CheckRowsAffected(fakeResult{rows: 1}, nil))
	assert.ErrorIs(t, CheckRowsAffected(fakeResult{rows: 0}, nil), store.ErrNotFound)
	assert.ErrorIs(t, CheckRowsAffected(fakeResult{rows: 0}, store.ErrQueueTaskNotFound), store.ErrQueueTaskNotFound)
	assert.Error(t, CheckRowsAffected(fakeResult{err: errors.New("driver")}, nil))
	assert.Error(t, CheckRowsAffected(nil, nil))
}

func TestSQLiteDSN(t *testing.T) {
	t.Parallel()
	assert.Equal(t,
		"file:/tmp/a.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite",
		SQLiteDSN("/tmp/a.db"))
	assert.Equal(t,
		"file:x.db?mode=rwc&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite",
		SQLiteDSN("file:x.db?mode=rwc"))
}

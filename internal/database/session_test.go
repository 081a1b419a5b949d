package database

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/syncmeta/internal/errs"
	"github.com/koustreak/syncmeta/internal/logger"
)

// --- fakes recording checkout / release ---

type fakeQuerier struct{ name string }

func (fakeQuerier) Query(context.Context, string, ...any) (Rows, error) { return nil, nil }
func (fakeQuerier) QueryRow(context.Context, string, ...any) Row        { return nil }
func (fakeQuerier) Exec(context.Context, string, ...any) (int64, error) { return 0, nil }

type fakeConn struct {
	fakeQuerier
	db *fakeDB
}

func (c *fakeConn) Release() { c.db.released++ }

type fakeTx struct{ fakeQuerier }

func (fakeTx) Commit(context.Context) error   { return nil }
func (fakeTx) Rollback(context.Context) error { return nil }

type fakeDB struct {
	acquired, released int
	acquireErr         error
}

func (f *fakeDB) Driver() Driver                    { return DriverSQLite }
func (f *fakeDB) Ping(context.Context) error        { return nil }
func (f *fakeDB) Begin(context.Context) (Tx, error) { return &fakeTx{fakeQuerier{"tx"}}, nil }
func (f *fakeDB) Close() error                      { return nil }

func (f *fakeDB) Acquire(context.Context) (Conn, error) {
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	f.acquired++
	return &fakeConn{fakeQuerier: fakeQuerier{"pooled"}, db: f}, nil
}

// --- tests ---

func TestSession_ReleasesAcquiredConnection(t *testing.T) {
	db := &fakeDB{}
	s := NewSession(db, nil)

	var seen string
	err := s.Run(context.Background(), "test.op", "t", func(q Querier) error {
		seen = q.(*fakeConn).name
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "pooled", seen)
	assert.Equal(t, 1, db.acquired)
	assert.Equal(t, 1, db.released)
	assert.Equal(t, DriverSQLite, s.Driver())
}

func TestSession_ReleasesOnFailure(t *testing.T) {
	db := &fakeDB{}
	s := NewSession(db, nil)

	err := s.Run(context.Background(), "scope.upsert", "scope_info", func(Querier) error {
		return errs.Wrap(errs.ErrKindQueryFailed, "exec failed", errors.New("syntax error"))
	})

	require.Error(t, err)
	assert.Equal(t, 1, db.released)

	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "scope.upsert", e.Op)
	assert.Equal(t, "scope_info", e.Object)
	assert.Equal(t, errs.ErrKindQueryFailed, e.Kind)
}

func TestSession_ReleasesOnPanic(t *testing.T) {
	db := &fakeDB{}
	s := NewSession(db, nil)

	assert.Panics(t, func() {
		_ = s.Run(context.Background(), "test.op", "t", func(Querier) error {
			panic("boom")
		})
	})
	assert.Equal(t, 1, db.acquired)
	assert.Equal(t, 1, db.released)
}

func TestSession_HeldHandleIsNeverReleased(t *testing.T) {
	db := &fakeDB{}
	tx, err := db.Begin(context.Background())
	require.NoError(t, err)

	s := NewSession(db, nil).WithTx(tx)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Run(context.Background(), "test.op", "t", func(q Querier) error {
			assert.Same(t, tx, q)
			return nil
		}))
	}
	assert.Zero(t, db.acquired)
	assert.Zero(t, db.released)

	conn := &fakeConn{fakeQuerier: fakeQuerier{"caller"}, db: db}
	s = NewSession(db, nil).WithConn(conn)
	require.NoError(t, s.Run(context.Background(), "test.op", "t", func(q Querier) error {
		assert.Same(t, conn, q)
		return nil
	}))
	assert.Zero(t, db.released)
}

func TestSession_AcquireFailure(t *testing.T) {
	db := &fakeDB{acquireErr: errs.Wrap(errs.ErrKindConnectionFailed, "acquire connection failed", errors.New("refused"))}
	s := NewSession(db, nil)

	called := false
	err := s.Run(context.Background(), "schema.columns", "orders", func(Querier) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.False(t, called)
	assert.True(t, errs.IsConnectionFailed(err))
	assert.Zero(t, db.released)
}

func TestSession_NoBackend(t *testing.T) {
	s := &Session{log: logger.Nop()}
	err := s.Run(context.Background(), "test.op", "t", func(Querier) error { return nil })
	assert.True(t, errs.IsConnectionFailed(err))
	assert.Equal(t, Driver(""), s.Driver())
}

func TestSession_LogsFailureOnce(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.New(&logger.Config{Level: "error", Format: "json", Output: buf})
	s := NewSession(&fakeDB{}, log)

	err := s.Run(context.Background(), "scope.drop_table", "scope_info", func(Querier) error {
		return errors.New("table does not exist")
	})
	require.Error(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "scope.drop_table", entry["op"])
	assert.Equal(t, "scope_info", entry["object"])
	assert.Equal(t, "unknown", entry["kind"])
	assert.Contains(t, entry["error"], "table does not exist")
}

func TestAnnotate_KeepsInnerOperation(t *testing.T) {
	inner := errs.Op(errs.ErrKindDDL, "scope.create_table", "scope_info", errors.New("exists"))
	wrapped := annotate(inner, "outer", "x")
	assert.Same(t, inner, wrapped)

	bare := errs.Wrap(errs.ErrKindTimeout, "deadline", context.DeadlineExceeded)
	labelled := annotate(bare, "schema.columns", "orders")
	assert.Equal(t, "schema.columns", labelled.Op)
	assert.Equal(t, errs.ErrKindTimeout, labelled.Kind)
	assert.Empty(t, bare.Op, "original error must not be mutated")
}

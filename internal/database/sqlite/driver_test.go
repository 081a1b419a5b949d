package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/koustreak/syncmeta/internal/database"
	"github.com/koustreak/syncmeta/internal/errs"
)

func TestNew_FileDatabase(t *testing.T) {
	ctx := context.Background()
	db, err := New(ctx, database.DefaultConfig(database.DriverSQLite, filepath.Join(t.TempDir(), "meta.db")))
	require.NoError(t, err)
	defer db.Close()

	conn, err := db.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()

	_, err = conn.Exec(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)

	_, err = conn.Exec(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY)")
	require.Error(t, err)
	assert.True(t, errs.IsQueryFailed(err))
	assert.Contains(t, err.Error(), "already exists")

	_, err = conn.Exec(ctx, "INSERT INTO t (id) VALUES (1)")
	require.NoError(t, err)
	_, err = conn.Exec(ctx, "INSERT INTO t (id) VALUES (1)")
	assert.True(t, errs.IsConstraintViolation(err))
}

func TestNew_MemoryIsSingleConnection(t *testing.T) {
	ctx := context.Background()
	db, err := New(ctx, database.DefaultConfig(database.DriverSQLite, ":memory:"))
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, 1, db.SQL().Stats().MaxOpenConnections)
}

func TestClassifyCode(t *testing.T) {
	assert.Equal(t, errs.ErrKindConstraintViolation, classifyCode(sqlite3.SQLITE_CONSTRAINT_UNIQUE))
	assert.Equal(t, errs.ErrKindTimeout, classifyCode(sqlite3.SQLITE_BUSY))
	assert.Equal(t, errs.ErrKindPermissionDenied, classifyCode(sqlite3.SQLITE_READONLY))
	assert.Equal(t, errs.ErrKindConnectionFailed, classifyCode(sqlite3.SQLITE_CANTOPEN))
	assert.Equal(t, errs.ErrKindQueryFailed, classifyCode(sqlite3.SQLITE_ERROR))
}

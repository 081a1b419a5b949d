package provider

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/syncmeta/internal/config"
	"github.com/koustreak/syncmeta/internal/database"
	"github.com/koustreak/syncmeta/internal/errs"
	"github.com/koustreak/syncmeta/internal/schema"
	"github.com/koustreak/syncmeta/internal/scope"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Driver = database.DriverSQLite
	cfg.Database.DSN = filepath.Join(t.TempDir(), "meta.db")
	cfg.Log.Level = "disabled"
	return cfg
}

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	p, err := Open(ctx, sqliteConfig(t))
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, database.DriverSQLite, p.Driver())
	require.NoError(t, p.Ping(ctx))

	_, err = p.DB().(*database.SQLDB).SQL().ExecContext(ctx,
		`CREATE TABLE orders (id INTEGER PRIMARY KEY, note TEXT)`)
	require.NoError(t, err)

	td, err := p.Introspector().Describe(ctx, "orders", schema.DescribeOptions{RequirePrimaryKey: true})
	require.NoError(t, err)
	assert.Equal(t, "orders", td.Key)

	require.NoError(t, p.Scopes().CreateTable(ctx))
	stored, err := p.Scopes().Upsert(ctx, scope.Info{ID: uuid.New(), Name: "sales"})
	require.NoError(t, err)
	assert.Positive(t, stored.LastTimestamp)
}

func TestOpen_CustomScopeTableAndLogging(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConfig(t)
	cfg.Scope.Table = `"Sync Scopes"`
	var buf bytes.Buffer
	cfg.Log.Level = "info"
	cfg.Log.Output = &buf

	p, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, "Sync Scopes", p.Scopes().Table().Object)
	assert.Contains(t, buf.String(), `"message":"database opened"`)

	require.NoError(t, p.Scopes().CreateTable(ctx))
	ok, err := p.Introspector().TableExists(ctx, `"Sync Scopes"`)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Database.Driver = "db2"

	_, err := Open(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestOpenArchive_NotConfigured(t *testing.T) {
	p, err := Open(context.Background(), sqliteConfig(t))
	require.NoError(t, err)
	defer p.Close()

	_, err = p.OpenArchive(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestOpenArchive_ValidatesBucket(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Archive.Endpoint = "localhost:9000"

	p, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.OpenArchive(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "archive bucket is required")
}

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/syncmeta/internal/database"
	"github.com/koustreak/syncmeta/internal/database/sqlite"
	"github.com/koustreak/syncmeta/internal/errs"
	"github.com/koustreak/syncmeta/internal/logger"
	"github.com/koustreak/syncmeta/internal/schema"
	"github.com/koustreak/syncmeta/internal/scope"
	"github.com/koustreak/syncmeta/internal/snapshot"
)

type sqliteBackend struct {
	db     database.DB
	in     *schema.Introspector
	scopes *scope.Store
}

func (b *sqliteBackend) Introspector() *schema.Introspector { return b.in }
func (b *sqliteBackend) Scopes() *scope.Store               { return b.scopes }
func (b *sqliteBackend) Ping(ctx context.Context) error     { return b.db.Ping(ctx) }

func newTestServer(t *testing.T) (*httptest.Server, *sqliteBackend) {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.New(ctx, database.DefaultConfig(database.DriverSQLite, filepath.Join(t.TempDir(), "meta.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	for _, stmt := range []string{
		`CREATE TABLE orders (id INTEGER PRIMARY KEY, note VARCHAR(200))`,
		`CREATE TABLE audit_log (at TEXT, message TEXT)`,
		`CREATE TRIGGER orders_ins AFTER INSERT ON orders BEGIN SELECT 1; END`,
	} {
		_, err := db.SQL().ExecContext(ctx, stmt)
		require.NoError(t, err, stmt)
	}

	session := database.NewSession(db, nil)
	store, err := scope.NewStore(session, scope.SQLiteDialect{})
	require.NoError(t, err)
	require.NoError(t, store.CreateTable(ctx))

	b := &sqliteBackend{db: db, in: schema.NewIntrospector(session, schema.SQLiteCatalog{}), scopes: store}
	srv := httptest.NewServer(New(b))
	t.Cleanup(srv.Close)
	return srv, b
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	var body map[string]string
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/healthz", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestDescribeTable(t *testing.T) {
	srv, _ := newTestServer(t)

	var table snapshot.Table
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/tables/orders", &table))
	assert.Equal(t, "orders", table.Name)
	require.Len(t, table.Columns, 2)
	assert.Equal(t, "note", table.Columns[1].Name)
	assert.Equal(t, int64(200), table.Columns[1].Length)
	require.Len(t, table.PrimaryKey, 1)
	assert.Equal(t, "id", table.PrimaryKey[0].Column)
}

func TestDescribeTable_Errors(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name   string
		path   string
		status int
		kind   string
	}{
		{"absent table", "/api/v1/tables/ghost", http.StatusNotFound, "catalog_query"},
		{"required key missing", "/api/v1/tables/audit_log?require_pk=true", http.StatusUnprocessableEntity, "catalog_query"},
		{"bad flag", "/api/v1/tables/orders?require_pk=maybe", http.StatusBadRequest, "invalid_input"},
		{"bad name", "/api/v1/tables/a.b.c", http.StatusBadRequest, "invalid_input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body errorBody
			assert.Equal(t, tt.status, getJSON(t, srv.URL+tt.path, &body))
			assert.Equal(t, tt.kind, body.Kind)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestDescribeTable_MissingKeyAllowedByDefault(t *testing.T) {
	srv, _ := newTestServer(t)

	var table snapshot.Table
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/tables/audit_log", &table))
	assert.Empty(t, table.PrimaryKey)
}

func TestExists(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		path   string
		exists bool
	}{
		{"/api/v1/exists/table/orders", true},
		{"/api/v1/exists/table/ghost", false},
		{"/api/v1/exists/trigger/orders_ins", true},
		{"/api/v1/exists/procedure/anything", false},
		{"/api/v1/exists/type/anything", false},
		{"/api/v1/exists/schema/main", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			var body existsBody
			require.Equal(t, http.StatusOK, getJSON(t, srv.URL+tt.path, &body))
			assert.Equal(t, tt.exists, body.Exists)
		})
	}

	var body errorBody
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/v1/exists/sequence/x", &body))
}

func TestScopes(t *testing.T) {
	srv, b := newTestServer(t)
	ctx := context.Background()

	id := uuid.New()
	stored, err := b.scopes.Upsert(ctx, scope.Info{ID: id, Name: "sales", IsLocal: true})
	require.NoError(t, err)

	var list []snapshot.Scope
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/scopes?name=sales", &list))
	require.Len(t, list, 1)
	assert.Equal(t, id.String(), list[0].ID)
	assert.Equal(t, stored.LastTimestamp, list[0].LastTimestamp)

	var one snapshot.Scope
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/scopes/"+id.String(), &one))
	assert.True(t, one.IsLocal)

	var body errorBody
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/v1/scopes/"+uuid.NewString(), &body))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/v1/scopes/not-a-uuid", &body))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/v1/scopes", &body))
}

func TestClock(t *testing.T) {
	srv, _ := newTestServer(t)

	var body clockBody
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/clock", &body))
	assert.Positive(t, body.Clock)
	assert.Len(t, body.Time, len("2006-01-02T15:04:05.000"))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(errs.New(errs.ErrKindConnectionFailed, "down")))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(errs.New(errs.ErrKindTimeout, "slow")))
	assert.Equal(t, http.StatusForbidden, statusFor(errs.New(errs.ErrKindPermissionDenied, "no")))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errs.New(errs.ErrKindDDL, "bad")))
}

func TestServerErrorsAreLoggedWithRequestID(t *testing.T) {
	_, b := newTestServer(t)
	require.NoError(t, b.db.Close())

	buf := &bytes.Buffer{}
	log := logger.New(&logger.Config{Level: "error", Format: "json", Output: buf})
	srv := httptest.NewServer(New(b, WithLogger(log)))
	t.Cleanup(srv.Close)

	var body errorBody
	status := getJSON(t, srv.URL+"/healthz", &body)
	assert.GreaterOrEqual(t, status, http.StatusInternalServerError)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request failed", entry["message"])
	assert.Equal(t, "http", entry["component"])
	assert.NotEmpty(t, entry["request_id"])
	assert.Equal(t, "/healthz", entry["path"])
}

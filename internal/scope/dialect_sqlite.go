package scope

import (
	"fmt"

	"github.com/koustreak/syncmeta/internal/database"
	"github.com/koustreak/syncmeta/internal/ident"
	"github.com/koustreak/syncmeta/internal/schema"
)

// strftime('%f') is "SS.SSS"; characters 4-6 are the milliseconds. 'now' is
// UTC and stable within one statement.
const sqliteClock = `CAST(strftime('%Y%m%d%H%M%S', 'now') || substr(strftime('%f', 'now'), 4, 3) AS INTEGER)`

// SQLiteDialect writes the scope table with INSERT … ON CONFLICT.
type SQLiteDialect struct{}

func (SQLiteDialect) Driver() database.Driver           { return database.DriverSQLite }
func (SQLiteDialect) Catalog() schema.Catalog           { return schema.SQLiteCatalog{} }
func (SQLiteDialect) Placeholder() database.Placeholder { return database.PlaceholderQuestion }

func (SQLiteDialect) CreateTableSQL(table ident.Identifier) string {
	return fmt.Sprintf(`CREATE TABLE %s (
	sync_scope_id   VARCHAR(200) NOT NULL,
	sync_scope_name VARCHAR(100) NOT NULL,
	scope_timestamp INTEGER NULL,
	scope_is_local  INTEGER NOT NULL DEFAULT 0,
	scope_last_sync DATETIME NULL,
	CONSTRAINT %s PRIMARY KEY (sync_scope_id)
)`, table.Quoted(), primaryKeyName(table))
}

func (SQLiteDialect) DropTableSQL(table ident.Identifier) string { return dropTableSQL(table) }

// UpsertSQL uses the multi-argument max(), SQLite's GREATEST.
func (SQLiteDialect) UpsertSQL(table ident.Identifier) string {
	return fmt.Sprintf(`INSERT INTO %s
	(sync_scope_id, sync_scope_name, scope_is_local, scope_last_sync, scope_timestamp)
VALUES (?, ?, ?, ?, %s)
ON CONFLICT (sync_scope_id) DO UPDATE SET
	sync_scope_name = excluded.sync_scope_name,
	scope_is_local  = excluded.scope_is_local,
	scope_last_sync = excluded.scope_last_sync,
	scope_timestamp = max(COALESCE(scope_timestamp, 0), excluded.scope_timestamp)`,
		table.Quoted(), sqliteClock)
}

func (SQLiteDialect) TimestampSQL() string { return "SELECT " + sqliteClock }

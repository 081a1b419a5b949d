package scope

import (
	"fmt"

	"github.com/koustreak/syncmeta/internal/database"
	"github.com/koustreak/syncmeta/internal/ident"
	"github.com/koustreak/syncmeta/internal/schema"
)

// clock_timestamp() advances within a transaction, unlike now().
const pgClock = `to_char(clock_timestamp(), 'YYYYMMDDHH24MISSMS')::bigint`

// PostgresDialect writes the scope table with INSERT … ON CONFLICT.
type PostgresDialect struct{}

func (PostgresDialect) Driver() database.Driver           { return database.DriverPostgres }
func (PostgresDialect) Catalog() schema.Catalog           { return schema.PostgresCatalog{} }
func (PostgresDialect) Placeholder() database.Placeholder { return database.PlaceholderDollar }

func (PostgresDialect) CreateTableSQL(table ident.Identifier) string {
	return fmt.Sprintf(`CREATE TABLE %s (
	sync_scope_id   varchar(200) NOT NULL,
	sync_scope_name varchar(100) NOT NULL,
	scope_timestamp bigint NULL,
	scope_is_local  smallint NOT NULL DEFAULT 0,
	scope_last_sync timestamp NULL,
	CONSTRAINT %s PRIMARY KEY (sync_scope_id)
)`, table.Quoted(), primaryKeyName(table))
}

func (PostgresDialect) DropTableSQL(table ident.Identifier) string { return dropTableSQL(table) }

func (PostgresDialect) UpsertSQL(table ident.Identifier) string {
	return fmt.Sprintf(`INSERT INTO %s AS base
	(sync_scope_id, sync_scope_name, scope_is_local, scope_last_sync, scope_timestamp)
VALUES ($1, $2, $3, $4, %s)
ON CONFLICT (sync_scope_id) DO UPDATE SET
	sync_scope_name = EXCLUDED.sync_scope_name,
	scope_is_local  = EXCLUDED.scope_is_local,
	scope_last_sync = EXCLUDED.scope_last_sync,
	scope_timestamp = GREATEST(COALESCE(base.scope_timestamp, 0), EXCLUDED.scope_timestamp)`,
		table.Quoted(), pgClock)
}

func (PostgresDialect) TimestampSQL() string { return "SELECT " + pgClock }

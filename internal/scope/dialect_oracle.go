package scope

import (
	"fmt"

	"github.com/koustreak/syncmeta/internal/database"
	"github.com/koustreak/syncmeta/internal/ident"
	"github.com/koustreak/syncmeta/internal/schema"
)

const oracleClock = `to_number(to_char(systimestamp, 'YYYYMMDDHH24MISSFF3'))`

// OracleDialect writes the scope table with MERGE against a one-row source
// selected from dual.
type OracleDialect struct{}

func (OracleDialect) Driver() database.Driver           { return database.DriverOracle }
func (OracleDialect) Catalog() schema.Catalog           { return schema.OracleCatalog{} }
func (OracleDialect) Placeholder() database.Placeholder { return database.PlaceholderColon }

func (OracleDialect) CreateTableSQL(table ident.Identifier) string {
	return fmt.Sprintf(`CREATE TABLE %s (
	sync_scope_id   VARCHAR2(200) NOT NULL,
	sync_scope_name VARCHAR2(100) NOT NULL,
	scope_timestamp NUMBER(20) NULL,
	scope_is_local  NUMBER(1, 0) DEFAULT 0 NOT NULL,
	scope_last_sync DATE NULL,
	CONSTRAINT %s PRIMARY KEY (sync_scope_id)
)`, table.Quoted(), primaryKeyName(table))
}

func (OracleDialect) DropTableSQL(table ident.Identifier) string { return dropTableSQL(table) }

func (OracleDialect) UpsertSQL(table ident.Identifier) string {
	return fmt.Sprintf(`MERGE INTO %s base
USING (
	SELECT :1 AS sync_scope_id,
	       :2 AS sync_scope_name,
	       :3 AS scope_is_local,
	       CAST(:4 AS DATE) AS scope_last_sync,
	       %s AS scope_timestamp
	FROM dual
) changes
ON (base.sync_scope_id = changes.sync_scope_id)
WHEN NOT MATCHED THEN
	INSERT (sync_scope_id, sync_scope_name, scope_is_local, scope_last_sync, scope_timestamp)
	VALUES (changes.sync_scope_id, changes.sync_scope_name, changes.scope_is_local, changes.scope_last_sync, changes.scope_timestamp)
WHEN MATCHED THEN
	UPDATE SET sync_scope_name = changes.sync_scope_name,
	           scope_is_local  = changes.scope_is_local,
	           scope_last_sync = changes.scope_last_sync,
	           scope_timestamp = GREATEST(NVL(base.scope_timestamp, 0), changes.scope_timestamp)`,
		table.Quoted(), oracleClock)
}

func (OracleDialect) TimestampSQL() string { return "SELECT " + oracleClock + " FROM dual" }

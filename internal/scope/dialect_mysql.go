package scope

import (
	"fmt"

	"github.com/koustreak/syncmeta/internal/database"
	"github.com/koustreak/syncmeta/internal/ident"
	"github.com/koustreak/syncmeta/internal/schema"
)

// Seconds and milliseconds are computed apart: the 20-digit text of
// '%Y%m%d%H%i%s%f' does not fit BIGINT UNSIGNED. NOW(3) is fixed for the
// statement, so both halves read the same instant.
const mysqlClock = `(CAST(DATE_FORMAT(NOW(3), '%Y%m%d%H%i%s') AS UNSIGNED) * 1000 + MICROSECOND(NOW(3)) DIV 1000)`

// MySQLDialect writes the scope table with INSERT … ON DUPLICATE KEY UPDATE.
type MySQLDialect struct{}

func (MySQLDialect) Driver() database.Driver           { return database.DriverMySQL }
func (MySQLDialect) Catalog() schema.Catalog           { return schema.MySQLCatalog{} }
func (MySQLDialect) Placeholder() database.Placeholder { return database.PlaceholderQuestion }

func (MySQLDialect) CreateTableSQL(table ident.Identifier) string {
	return fmt.Sprintf(`CREATE TABLE %s (
	sync_scope_id   VARCHAR(200) NOT NULL,
	sync_scope_name VARCHAR(100) NOT NULL,
	scope_timestamp BIGINT NULL,
	scope_is_local  TINYINT NOT NULL DEFAULT 0,
	scope_last_sync DATETIME NULL,
	CONSTRAINT %s PRIMARY KEY (sync_scope_id)
)`, table.Quoted(), primaryKeyName(table))
}

func (MySQLDialect) DropTableSQL(table ident.Identifier) string { return dropTableSQL(table) }

// UpsertSQL assigns scope_timestamp last so the GREATEST comparison still
// sees the stored value.
func (MySQLDialect) UpsertSQL(table ident.Identifier) string {
	return fmt.Sprintf(`INSERT INTO %s
	(sync_scope_id, sync_scope_name, scope_is_local, scope_last_sync, scope_timestamp)
VALUES (?, ?, ?, ?, %s)
ON DUPLICATE KEY UPDATE
	sync_scope_name = VALUES(sync_scope_name),
	scope_is_local  = VALUES(scope_is_local),
	scope_last_sync = VALUES(scope_last_sync),
	scope_timestamp = GREATEST(COALESCE(scope_timestamp, 0), VALUES(scope_timestamp))`,
		table.Quoted(), mysqlClock)
}

func (MySQLDialect) TimestampSQL() string { return "SELECT " + mysqlClock }

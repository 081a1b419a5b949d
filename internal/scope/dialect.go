package scope

import (
	"fmt"

	"github.com/koustreak/syncmeta/internal/database"
	"github.com/koustreak/syncmeta/internal/ident"
	"github.com/koustreak/syncmeta/internal/schema"
)

// Scope table columns, in the order every read selects them.
const (
	colID        = "sync_scope_id"
	colName      = "sync_scope_name"
	colTimestamp = "scope_timestamp"
	colIsLocal   = "scope_is_local"
	colLastSync  = "scope_last_sync"
)

var infoColumns = []string{colID, colName, colTimestamp, colIsLocal, colLastSync}

// Dialect holds the backend-specific statements of the scope table.
//
// UpsertSQL binds, in order: id, name, is_local (0/1), last_sync (time or
// NULL). It must compute scope_timestamp inside the statement and never let
// it decrease for an existing row.
type Dialect interface {
	Driver() database.Driver
	Catalog() schema.Catalog
	Placeholder() database.Placeholder

	CreateTableSQL(table ident.Identifier) string
	DropTableSQL(table ident.Identifier) string
	UpsertSQL(table ident.Identifier) string

	// TimestampSQL selects the backend's current time as a logical clock.
	TimestampSQL() string
}

// DialectFor returns the scope Dialect for driver.
func DialectFor(driver database.Driver) (Dialect, error) {
	switch driver {
	case database.DriverPostgres:
		return PostgresDialect{}, nil
	case database.DriverMySQL:
		return MySQLDialect{}, nil
	case database.DriverSQLite:
		return SQLiteDialect{}, nil
	case database.DriverOracle:
		return OracleDialect{}, nil
	default:
		return nil, fmt.Errorf("scope: no dialect for driver %q", driver)
	}
}

// primaryKeyName derives the primary-key constraint name of table, folded
// like any unquoted name of the backend.
func primaryKeyName(table ident.Identifier) string {
	id, err := ident.Parse("pk_"+table.Key(), table.Convention())
	if err != nil {
		// Key() only yields letters, digits and underscores.
		panic(err)
	}
	return id.Quoted()
}

func dropTableSQL(table ident.Identifier) string {
	return "DROP TABLE " + table.Quoted()
}

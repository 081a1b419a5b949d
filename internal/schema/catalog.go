package schema

import (
	"context"
	"fmt"

	"github.com/koustreak/syncmeta/internal/database"
	"github.com/koustreak/syncmeta/internal/ident"
)

// Catalog reads one backend's system catalog. Implementations hold no state;
// every call runs against the Querier it is given.
//
// Identifiers arrive normalized with the catalog's Convention, so lookups
// that must be exact compare against Identifier.Object directly. The public
// existence probes compare case-insensitively; HasTable matches exactly, the
// same way Columns does.
type Catalog interface {
	// Convention is the identifier convention of the backend.
	Convention() ident.Convention

	// Columns returns the columns of table ordered by ordinal position.
	Columns(ctx context.Context, q database.Querier, table ident.Identifier) ([]Column, error)

	// PrimaryKey returns the primary-key columns ordered by key position;
	// empty when the table has none.
	PrimaryKey(ctx context.Context, q database.Querier, table ident.Identifier) ([]KeyColumn, error)

	// ForeignKeys returns the relations in which table is the referencing side.
	ForeignKeys(ctx context.Context, q database.Querier, table ident.Identifier) ([]ForeignKey, error)

	// ReferencingKeys returns the relations in which table is referenced.
	ReferencingKeys(ctx context.Context, q database.Querier, table ident.Identifier) ([]ForeignKey, error)

	// HasTable reports whether table exists under exactly the name Columns
	// will look it up by.
	HasTable(ctx context.Context, q database.Querier, table ident.Identifier) (bool, error)

	TableExists(ctx context.Context, q database.Querier, name ident.Identifier) (bool, error)
	TriggerExists(ctx context.Context, q database.Querier, name ident.Identifier) (bool, error)
	ProcedureExists(ctx context.Context, q database.Querier, name ident.Identifier) (bool, error)
	TypeExists(ctx context.Context, q database.Querier, name ident.Identifier) (bool, error)
	SchemaExists(ctx context.Context, q database.Querier, schema string) (bool, error)
}

// CatalogFor returns the Catalog implementation for driver.
func CatalogFor(driver database.Driver) (Catalog, error) {
	switch driver {
	case database.DriverPostgres:
		return PostgresCatalog{}, nil
	case database.DriverMySQL:
		return MySQLCatalog{}, nil
	case database.DriverSQLite:
		return SQLiteCatalog{}, nil
	case database.DriverOracle:
		return OracleCatalog{}, nil
	default:
		return nil, fmt.Errorf("schema: no catalog for driver %q", driver)
	}
}

// --- shared scanning helpers ---

func scanExists(row database.Row) (bool, error) {
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// scanCount is scanExists for backends without a boolean type.
func scanCount(row database.Row) (bool, error) {
	var n int64
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func collectKeyColumns(rows database.Rows) ([]KeyColumn, error) {
	defer rows.Close()

	keys := []KeyColumn{}
	for rows.Next() {
		var k KeyColumn
		if err := rows.Scan(&k.Constraint, &k.Column, &k.Position); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func collectForeignKeys(rows database.Rows) ([]ForeignKey, error) {
	defer rows.Close()

	fks := []ForeignKey{}
	for rows.Next() {
		var fk ForeignKey
		if err := rows.Scan(
			&fk.Constraint,
			&fk.Table,
			&fk.Column,
			&fk.ReferencedTable,
			&fk.ReferencedColumn,
			&fk.Position,
		); err != nil {
			return nil, err
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

func derefInt64(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

func derefInt(p *int64) int {
	if p == nil {
		return 0
	}
	return int(*p)
}

// collectColumns scans rows shaped as
// (name, ordinal, data_type, length, precision, scale, nullable, read_only)
// with nullable numeric metrics and 0/1 flags.
func collectColumns(rows database.Rows) ([]Column, error) {
	defer rows.Close()

	cols := []Column{}
	for rows.Next() {
		var (
			c                        Column
			length, precision, scale *int64
			nullable, readOnly       int64
		)
		if err := rows.Scan(
			&c.Name,
			&c.Ordinal,
			&c.DataType,
			&length,
			&precision,
			&scale,
			&nullable,
			&readOnly,
		); err != nil {
			return nil, err
		}
		c.Length = derefInt64(length)
		c.Precision = derefInt(precision)
		c.Scale = derefInt(scale)
		c.Nullable = nullable != 0
		c.ReadOnly = readOnly != 0
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

package schema

import (
	"context"

	"github.com/koustreak/syncmeta/internal/database"
	"github.com/koustreak/syncmeta/internal/ident"
)

// MySQLCatalog reads MySQL metadata from information_schema. The schema
// qualifier of a name is the database; an unqualified name resolves against
// DATABASE().
type MySQLCatalog struct{}

func (MySQLCatalog) Convention() ident.Convention { return ident.MySQL }

func (MySQLCatalog) Columns(ctx context.Context, q database.Querier, table ident.Identifier) ([]Column, error) {
	const sql = `
		SELECT
			c.column_name,
			c.ordinal_position,
			c.data_type,
			c.character_maximum_length,
			c.numeric_precision,
			c.numeric_scale,
			c.is_nullable = 'YES'                           AS is_nullable,
			COALESCE(c.generation_expression, '') <> ''     AS is_read_only
		FROM information_schema.columns c
		WHERE c.table_schema = COALESCE(NULLIF(?, ''), DATABASE())
		  AND c.table_name   = ?
		ORDER BY c.ordinal_position`

	rows, err := q.Query(ctx, sql, table.Schema, table.Object)
	if err != nil {
		return nil, err
	}
	return collectColumns(rows)
}

func (MySQLCatalog) PrimaryKey(ctx context.Context, q database.Querier, table ident.Identifier) ([]KeyColumn, error) {
	const sql = `
		SELECT k.constraint_name, k.column_name, k.ordinal_position
		FROM information_schema.key_column_usage k
		WHERE k.table_schema = COALESCE(NULLIF(?, ''), DATABASE())
		  AND k.table_name   = ?
		  AND k.constraint_name = 'PRIMARY'
		ORDER BY k.ordinal_position`

	rows, err := q.Query(ctx, sql, table.Schema, table.Object)
	if err != nil {
		return nil, err
	}
	return collectKeyColumns(rows)
}

func (MySQLCatalog) ForeignKeys(ctx context.Context, q database.Querier, table ident.Identifier) ([]ForeignKey, error) {
	const sql = `
		SELECT
			k.constraint_name,
			k.table_name,
			k.column_name,
			k.referenced_table_name,
			k.referenced_column_name,
			k.ordinal_position
		FROM information_schema.key_column_usage k
		WHERE k.table_schema = COALESCE(NULLIF(?, ''), DATABASE())
		  AND k.table_name   = ?
		  AND k.referenced_table_name IS NOT NULL
		ORDER BY k.constraint_name, k.ordinal_position`

	rows, err := q.Query(ctx, sql, table.Schema, table.Object)
	if err != nil {
		return nil, err
	}
	return collectForeignKeys(rows)
}

func (MySQLCatalog) ReferencingKeys(ctx context.Context, q database.Querier, table ident.Identifier) ([]ForeignKey, error) {
	const sql = `
		SELECT
			k.constraint_name,
			k.table_name,
			k.column_name,
			k.referenced_table_name,
			k.referenced_column_name,
			k.ordinal_position
		FROM information_schema.key_column_usage k
		WHERE k.referenced_table_schema = COALESCE(NULLIF(?, ''), DATABASE())
		  AND k.referenced_table_name   = ?
		ORDER BY k.table_name, k.constraint_name, k.ordinal_position`

	rows, err := q.Query(ctx, sql, table.Schema, table.Object)
	if err != nil {
		return nil, err
	}
	return collectForeignKeys(rows)
}

func (MySQLCatalog) HasTable(ctx context.Context, q database.Querier, table ident.Identifier) (bool, error) {
	const sql = `
		SELECT COUNT(*) > 0
		FROM information_schema.tables
		WHERE table_schema = COALESCE(NULLIF(?, ''), DATABASE())
		  AND table_name = ?`
	return scanExists(q.QueryRow(ctx, sql, table.Schema, table.Object))
}

func (MySQLCatalog) TableExists(ctx context.Context, q database.Querier, name ident.Identifier) (bool, error) {
	const sql = `
		SELECT COUNT(*) > 0
		FROM information_schema.tables
		WHERE table_schema = COALESCE(NULLIF(?, ''), DATABASE())
		  AND lower(table_name) = lower(?)`
	return scanExists(q.QueryRow(ctx, sql, name.Schema, name.Object))
}

func (MySQLCatalog) TriggerExists(ctx context.Context, q database.Querier, name ident.Identifier) (bool, error) {
	const sql = `
		SELECT COUNT(*) > 0
		FROM information_schema.triggers
		WHERE trigger_schema = COALESCE(NULLIF(?, ''), DATABASE())
		  AND lower(trigger_name) = lower(?)`
	return scanExists(q.QueryRow(ctx, sql, name.Schema, name.Object))
}

func (MySQLCatalog) ProcedureExists(ctx context.Context, q database.Querier, name ident.Identifier) (bool, error) {
	const sql = `
		SELECT COUNT(*) > 0
		FROM information_schema.routines
		WHERE routine_type = 'PROCEDURE'
		  AND routine_schema = COALESCE(NULLIF(?, ''), DATABASE())
		  AND lower(routine_name) = lower(?)`
	return scanExists(q.QueryRow(ctx, sql, name.Schema, name.Object))
}

// TypeExists always reports false: MySQL has no user-defined types.
func (MySQLCatalog) TypeExists(context.Context, database.Querier, ident.Identifier) (bool, error) {
	return false, nil
}

func (MySQLCatalog) SchemaExists(ctx context.Context, q database.Querier, schema string) (bool, error) {
	const sql = `
		SELECT COUNT(*) > 0
		FROM information_schema.schemata
		WHERE lower(schema_name) = lower(?)`
	return scanExists(q.QueryRow(ctx, sql, schema))
}

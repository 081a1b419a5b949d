package schema

import (
	"context"

	"github.com/koustreak/syncmeta/internal/database"
	"github.com/koustreak/syncmeta/internal/ident"
)

// PostgresCatalog reads PostgreSQL metadata from information_schema and
// pg_catalog. An unqualified name resolves against current_schema().
type PostgresCatalog struct{}

func (PostgresCatalog) Convention() ident.Convention { return ident.Postgres }

func (PostgresCatalog) Columns(ctx context.Context, q database.Querier, table ident.Identifier) ([]Column, error) {
	const sql = `
		SELECT
			c.column_name,
			c.ordinal_position,
			c.data_type,
			c.character_maximum_length,
			c.numeric_precision,
			c.numeric_scale,
			(c.is_nullable = 'YES')::int AS is_nullable,
			COALESCE(c.is_generated = 'ALWAYS' OR c.identity_generation = 'ALWAYS', false)::int AS is_read_only
		FROM information_schema.columns c
		WHERE c.table_schema = COALESCE(NULLIF($1, ''), current_schema())
		  AND c.table_name   = $2
		ORDER BY c.ordinal_position`

	rows, err := q.Query(ctx, sql, table.Schema, table.Object)
	if err != nil {
		return nil, err
	}
	return collectColumns(rows)
}

func (PostgresCatalog) PrimaryKey(ctx context.Context, q database.Querier, table ident.Identifier) ([]KeyColumn, error) {
	const sql = `
		SELECT tc.constraint_name, kcu.column_name, kcu.ordinal_position
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
			AND tc.table_name = kcu.table_name
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = COALESCE(NULLIF($1, ''), current_schema())
		  AND tc.table_name   = $2
		ORDER BY kcu.ordinal_position`

	rows, err := q.Query(ctx, sql, table.Schema, table.Object)
	if err != nil {
		return nil, err
	}
	return collectKeyColumns(rows)
}

// pgRelationsSQL pairs each referencing column with the referenced key column
// at the same position of the unique constraint the foreign key points to.
const pgRelationsSQL = `
		SELECT
			kcu.constraint_name,
			kcu.table_name,
			kcu.column_name,
			ref.table_name  AS referenced_table,
			ref.column_name AS referenced_column,
			kcu.ordinal_position
		FROM information_schema.referential_constraints rc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_schema = rc.constraint_schema
			AND kcu.constraint_name = rc.constraint_name
		JOIN information_schema.key_column_usage ref
			ON ref.constraint_schema = rc.unique_constraint_schema
			AND ref.constraint_name = rc.unique_constraint_name
			AND ref.ordinal_position = kcu.position_in_unique_constraint`

func (PostgresCatalog) ForeignKeys(ctx context.Context, q database.Querier, table ident.Identifier) ([]ForeignKey, error) {
	const sql = pgRelationsSQL + `
		WHERE kcu.table_schema = COALESCE(NULLIF($1, ''), current_schema())
		  AND kcu.table_name   = $2
		ORDER BY kcu.constraint_name, kcu.ordinal_position`

	rows, err := q.Query(ctx, sql, table.Schema, table.Object)
	if err != nil {
		return nil, err
	}
	return collectForeignKeys(rows)
}

func (PostgresCatalog) ReferencingKeys(ctx context.Context, q database.Querier, table ident.Identifier) ([]ForeignKey, error) {
	const sql = pgRelationsSQL + `
		WHERE ref.table_schema = COALESCE(NULLIF($1, ''), current_schema())
		  AND ref.table_name   = $2
		ORDER BY kcu.table_name, kcu.constraint_name, kcu.ordinal_position`

	rows, err := q.Query(ctx, sql, table.Schema, table.Object)
	if err != nil {
		return nil, err
	}
	return collectForeignKeys(rows)
}

func (PostgresCatalog) HasTable(ctx context.Context, q database.Querier, table ident.Identifier) (bool, error) {
	const sql = `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = COALESCE(NULLIF($1, ''), current_schema())
			  AND table_name = $2
		)`
	return scanExists(q.QueryRow(ctx, sql, table.Schema, table.Object))
}

func (PostgresCatalog) TableExists(ctx context.Context, q database.Querier, name ident.Identifier) (bool, error) {
	const sql = `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = COALESCE(NULLIF($1, ''), current_schema())
			  AND lower(table_name) = lower($2)
		)`
	return scanExists(q.QueryRow(ctx, sql, name.Schema, name.Object))
}

func (PostgresCatalog) TriggerExists(ctx context.Context, q database.Querier, name ident.Identifier) (bool, error) {
	const sql = `
		SELECT EXISTS (
			SELECT 1
			FROM pg_catalog.pg_trigger t
			JOIN pg_catalog.pg_class c ON c.oid = t.tgrelid
			JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
			WHERE NOT t.tgisinternal
			  AND n.nspname = COALESCE(NULLIF($1, ''), current_schema())
			  AND lower(t.tgname) = lower($2)
		)`
	return scanExists(q.QueryRow(ctx, sql, name.Schema, name.Object))
}

func (PostgresCatalog) ProcedureExists(ctx context.Context, q database.Querier, name ident.Identifier) (bool, error) {
	const sql = `
		SELECT EXISTS (
			SELECT 1
			FROM pg_catalog.pg_proc p
			JOIN pg_catalog.pg_namespace n ON n.oid = p.pronamespace
			WHERE p.prokind = 'p'
			  AND n.nspname = COALESCE(NULLIF($1, ''), current_schema())
			  AND lower(p.proname) = lower($2)
		)`
	return scanExists(q.QueryRow(ctx, sql, name.Schema, name.Object))
}

// TypeExists matches user-declared types: composite types created with
// CREATE TYPE, enums, domains and ranges. Table row types and array types are
// excluded.
func (PostgresCatalog) TypeExists(ctx context.Context, q database.Querier, name ident.Identifier) (bool, error) {
	const sql = `
		SELECT EXISTS (
			SELECT 1
			FROM pg_catalog.pg_type t
			JOIN pg_catalog.pg_namespace n ON n.oid = t.typnamespace
			LEFT JOIN pg_catalog.pg_class c ON c.oid = t.typrelid
			WHERE t.typcategory <> 'A'
			  AND (t.typrelid = 0 OR c.relkind = 'c')
			  AND n.nspname = COALESCE(NULLIF($1, ''), current_schema())
			  AND lower(t.typname) = lower($2)
		)`
	return scanExists(q.QueryRow(ctx, sql, name.Schema, name.Object))
}

func (PostgresCatalog) SchemaExists(ctx context.Context, q database.Querier, schema string) (bool, error) {
	const sql = `
		SELECT EXISTS (
			SELECT 1 FROM pg_catalog.pg_namespace
			WHERE lower(nspname) = lower($1)
		)`
	return scanExists(q.QueryRow(ctx, sql, schema))
}

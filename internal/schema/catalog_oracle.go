package schema

import (
	"context"

	"github.com/koustreak/syncmeta/internal/database"
	"github.com/koustreak/syncmeta/internal/ident"
)

// OracleCatalog reads Oracle metadata from the ALL_* dictionary views. The
// schema qualifier of a name is the owner; an unqualified name resolves
// against the connected USER. Binding an empty owner relies on Oracle
// treating '' as NULL.
type OracleCatalog struct{}

func (OracleCatalog) Convention() ident.Convention { return ident.Oracle }

func (OracleCatalog) Columns(ctx context.Context, q database.Querier, table ident.Identifier) ([]Column, error) {
	const sql = `
		SELECT
			column_name,
			column_id,
			data_type,
			CASE WHEN char_used IS NOT NULL THEN char_length END AS char_length,
			data_precision,
			data_scale,
			decode(nullable, 'N', 0, 1)          AS is_nullable,
			decode(virtual_column, 'YES', 1, 0)  AS is_read_only
		FROM all_tab_cols
		WHERE owner = NVL(:1, USER)
		  AND table_name = :2
		  AND hidden_column = 'NO'
		ORDER BY column_id`

	rows, err := q.Query(ctx, sql, table.Schema, table.Object)
	if err != nil {
		return nil, err
	}
	return collectColumns(rows)
}

func (OracleCatalog) PrimaryKey(ctx context.Context, q database.Querier, table ident.Identifier) ([]KeyColumn, error) {
	const sql = `
		SELECT ac.constraint_name, acc.column_name, acc.position
		FROM all_cons_columns acc
		JOIN all_constraints ac
			ON acc.owner = ac.owner
			AND acc.constraint_name = ac.constraint_name
			AND acc.table_name = ac.table_name
		WHERE ac.constraint_type = 'P'
		  AND ac.owner = NVL(:1, USER)
		  AND ac.table_name = :2
		ORDER BY acc.position`

	rows, err := q.Query(ctx, sql, table.Schema, table.Object)
	if err != nil {
		return nil, err
	}
	return collectKeyColumns(rows)
}

// oraRelationsSQL follows r_constraint_name from a referential constraint to
// the key it references and pairs the columns of both sides by position.
const oraRelationsSQL = `
		SELECT
			a.constraint_name,
			a.table_name,
			a.column_name,
			c_pk.table_name AS referenced_table,
			b.column_name   AS referenced_column,
			a.position
		FROM all_cons_columns a
		JOIN all_constraints c
			ON a.owner = c.owner
			AND a.constraint_name = c.constraint_name
		JOIN all_constraints c_pk
			ON c.r_owner = c_pk.owner
			AND c.r_constraint_name = c_pk.constraint_name
		JOIN all_cons_columns b
			ON c_pk.owner = b.owner
			AND c_pk.constraint_name = b.constraint_name
			AND b.position = a.position
		WHERE c.constraint_type = 'R'`

func (OracleCatalog) ForeignKeys(ctx context.Context, q database.Querier, table ident.Identifier) ([]ForeignKey, error) {
	const sql = oraRelationsSQL + `
		  AND a.owner = NVL(:1, USER)
		  AND a.table_name = :2
		ORDER BY a.constraint_name, a.position`

	rows, err := q.Query(ctx, sql, table.Schema, table.Object)
	if err != nil {
		return nil, err
	}
	return collectForeignKeys(rows)
}

func (OracleCatalog) ReferencingKeys(ctx context.Context, q database.Querier, table ident.Identifier) ([]ForeignKey, error) {
	const sql = oraRelationsSQL + `
		  AND c_pk.owner = NVL(:1, USER)
		  AND c_pk.table_name = :2
		ORDER BY a.table_name, a.constraint_name, a.position`

	rows, err := q.Query(ctx, sql, table.Schema, table.Object)
	if err != nil {
		return nil, err
	}
	return collectForeignKeys(rows)
}

func (OracleCatalog) HasTable(ctx context.Context, q database.Querier, table ident.Identifier) (bool, error) {
	const sql = `
		SELECT count(1) FROM all_tables
		WHERE owner = NVL(:1, USER)
		  AND table_name = :2`
	return scanCount(q.QueryRow(ctx, sql, table.Schema, table.Object))
}

func (OracleCatalog) TableExists(ctx context.Context, q database.Querier, name ident.Identifier) (bool, error) {
	const sql = `
		SELECT count(1) FROM all_tables
		WHERE owner = NVL(:1, USER)
		  AND upper(table_name) = upper(:2)`
	return scanCount(q.QueryRow(ctx, sql, name.Schema, name.Object))
}

func (OracleCatalog) TriggerExists(ctx context.Context, q database.Querier, name ident.Identifier) (bool, error) {
	const sql = `
		SELECT count(1) FROM all_triggers
		WHERE owner = NVL(:1, USER)
		  AND upper(trigger_name) = upper(:2)`
	return scanCount(q.QueryRow(ctx, sql, name.Schema, name.Object))
}

func (OracleCatalog) ProcedureExists(ctx context.Context, q database.Querier, name ident.Identifier) (bool, error) {
	const sql = `
		SELECT count(1) FROM all_objects
		WHERE object_type = 'PROCEDURE'
		  AND owner = NVL(:1, USER)
		  AND upper(object_name) = upper(:2)`
	return scanCount(q.QueryRow(ctx, sql, name.Schema, name.Object))
}

func (OracleCatalog) TypeExists(ctx context.Context, q database.Querier, name ident.Identifier) (bool, error) {
	const sql = `
		SELECT count(1) FROM all_types
		WHERE owner = NVL(:1, USER)
		  AND upper(type_name) = upper(:2)`
	return scanCount(q.QueryRow(ctx, sql, name.Schema, name.Object))
}

// SchemaExists looks the user up in ALL_USERS, which needs no DBA grant.
func (OracleCatalog) SchemaExists(ctx context.Context, q database.Querier, schema string) (bool, error) {
	const sql = `SELECT count(1) FROM all_users WHERE upper(username) = upper(:1)`
	return scanCount(q.QueryRow(ctx, sql, schema))
}

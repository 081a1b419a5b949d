package schema

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/koustreak/syncmeta/internal/database"
	"github.com/koustreak/syncmeta/internal/ident"
)

// SQLiteCatalog reads SQLite metadata through the pragma table-valued
// functions and sqlite_master. The schema qualifier of a name is the attached
// database ("main", "temp", …); an unqualified name resolves against "main".
//
// SQLite does not name primary keys or unnamed foreign keys, so constraint
// names are synthesized: "pk_<table>" and "fk_<table>_<id>", where id is the
// pragma_foreign_key_list id of the constraint.
type SQLiteCatalog struct{}

func (SQLiteCatalog) Convention() ident.Convention { return ident.SQLite }

func (SQLiteCatalog) Columns(ctx context.Context, q database.Querier, table ident.Identifier) ([]Column, error) {
	// hidden: 1 = hidden column of a virtual table, 2/3 = generated column.
	const sql = `
		SELECT name, cid, type, "notnull", hidden
		FROM pragma_table_xinfo(?, ?)
		WHERE hidden <> 1
		ORDER BY cid`

	rows, err := q.Query(ctx, sql, table.Object, sqliteSchema(table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := []Column{}
	for rows.Next() {
		var (
			c               Column
			cid             int
			decl            string
			notNull, hidden int64
		)
		if err := rows.Scan(&c.Name, &cid, &decl, &notNull, &hidden); err != nil {
			return nil, err
		}
		c.Ordinal = cid + 1
		c.DataType, c.Length, c.Precision, c.Scale = parseDeclType(decl)
		c.Nullable = notNull == 0
		c.ReadOnly = hidden >= 2
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func (SQLiteCatalog) PrimaryKey(ctx context.Context, q database.Querier, table ident.Identifier) ([]KeyColumn, error) {
	const sql = `
		SELECT 'pk_' || ?, name, pk
		FROM pragma_table_info(?, ?)
		WHERE pk > 0
		ORDER BY pk`

	rows, err := q.Query(ctx, sql, table.Object, table.Object, sqliteSchema(table))
	if err != nil {
		return nil, err
	}
	return collectKeyColumns(rows)
}

func (c SQLiteCatalog) ForeignKeys(ctx context.Context, q database.Querier, table ident.Identifier) ([]ForeignKey, error) {
	const sql = `
		SELECT ?, id, seq, "table", "from", "to"
		FROM pragma_foreign_key_list(?, ?)
		ORDER BY id, seq`

	rows, err := q.Query(ctx, sql, table.Object, table.Object, sqliteSchema(table))
	if err != nil {
		return nil, err
	}
	fks, err := collectSQLiteForeignKeys(rows)
	if err != nil {
		return nil, err
	}
	return c.resolveImplicitTargets(ctx, q, table, fks)
}

func (c SQLiteCatalog) ReferencingKeys(ctx context.Context, q database.Querier, table ident.Identifier) ([]ForeignKey, error) {
	sql := fmt.Sprintf(`
		SELECT m.name, f.id, f.seq, f."table", f."from", f."to"
		FROM %s.sqlite_master m
		JOIN pragma_foreign_key_list(m.name, ?) f
		WHERE m.type = 'table'
		  AND lower(f."table") = lower(?)
		ORDER BY m.name, f.id, f.seq`, c.Convention().QuoteName(sqliteSchema(table)))

	rows, err := q.Query(ctx, sql, sqliteSchema(table), table.Object)
	if err != nil {
		return nil, err
	}
	fks, err := collectSQLiteForeignKeys(rows)
	if err != nil {
		return nil, err
	}
	return c.resolveImplicitTargets(ctx, q, table, fks)
}

// HasTable is TableExists: SQLite resolves table names case-insensitively
// everywhere, pragma_table_xinfo included.
func (c SQLiteCatalog) HasTable(ctx context.Context, q database.Querier, table ident.Identifier) (bool, error) {
	return c.masterExists(ctx, q, "table", table)
}

func (c SQLiteCatalog) TableExists(ctx context.Context, q database.Querier, name ident.Identifier) (bool, error) {
	return c.masterExists(ctx, q, "table", name)
}

func (c SQLiteCatalog) TriggerExists(ctx context.Context, q database.Querier, name ident.Identifier) (bool, error) {
	return c.masterExists(ctx, q, "trigger", name)
}

// ProcedureExists always reports false: SQLite has no stored procedures.
func (SQLiteCatalog) ProcedureExists(context.Context, database.Querier, ident.Identifier) (bool, error) {
	return false, nil
}

// TypeExists always reports false: SQLite has no user-defined types.
func (SQLiteCatalog) TypeExists(context.Context, database.Querier, ident.Identifier) (bool, error) {
	return false, nil
}

func (SQLiteCatalog) SchemaExists(ctx context.Context, q database.Querier, schema string) (bool, error) {
	const sql = `
		SELECT EXISTS (
			SELECT 1 FROM pragma_database_list
			WHERE lower(name) = lower(?)
		)`
	return scanExists(q.QueryRow(ctx, sql, schema))
}

func (c SQLiteCatalog) masterExists(ctx context.Context, q database.Querier, typ string, name ident.Identifier) (bool, error) {
	sql := fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1 FROM %s.sqlite_master
			WHERE type = ? AND lower(name) = lower(?)
		)`, c.Convention().QuoteName(sqliteSchema(name)))
	return scanExists(q.QueryRow(ctx, sql, typ, name.Object))
}

// resolveImplicitTargets fills in referenced columns of foreign keys declared
// without a column list, which reference the target's primary key.
func (c SQLiteCatalog) resolveImplicitTargets(ctx context.Context, q database.Querier, table ident.Identifier, fks []ForeignKey) ([]ForeignKey, error) {
	pks := map[string][]KeyColumn{}
	for i := range fks {
		if fks[i].ReferencedColumn != "" {
			continue
		}
		target := strings.ToLower(fks[i].ReferencedTable)
		pk, ok := pks[target]
		if !ok {
			var err error
			pk, err = c.PrimaryKey(ctx, q, table.WithObject(fks[i].ReferencedTable))
			if err != nil {
				return nil, err
			}
			pks[target] = pk
		}
		if p := fks[i].Position - 1; p < len(pk) {
			fks[i].ReferencedColumn = pk[p].Column
		}
	}
	return fks, nil
}

// collectSQLiteForeignKeys scans (table, id, seq, target, from, to) rows.
// Rows are fully drained before returning so the caller may issue further
// statements on the same connection.
func collectSQLiteForeignKeys(rows database.Rows) ([]ForeignKey, error) {
	defer rows.Close()

	fks := []ForeignKey{}
	for rows.Next() {
		var (
			fk      ForeignKey
			id, seq int
			to      *string
		)
		if err := rows.Scan(&fk.Table, &id, &seq, &fk.ReferencedTable, &fk.Column, &to); err != nil {
			return nil, err
		}
		fk.Constraint = "fk_" + fk.Table + "_" + strconv.Itoa(id)
		fk.Position = seq + 1
		if to != nil {
			fk.ReferencedColumn = *to
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

func sqliteSchema(id ident.Identifier) string {
	if id.Schema == "" {
		return "main"
	}
	return id.Schema
}

// parseDeclType splits a declared column type such as "VARCHAR(200)" or
// "DECIMAL(10, 2)" into its name and size arguments.
func parseDeclType(decl string) (typ string, length int64, precision, scale int) {
	decl = strings.TrimSpace(decl)
	open := strings.IndexByte(decl, '(')
	if open < 0 || !strings.HasSuffix(decl, ")") {
		return decl, 0, 0, 0
	}

	var nums []int64
	for _, arg := range strings.Split(decl[open+1:len(decl)-1], ",") {
		n, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil {
			return decl, 0, 0, 0
		}
		nums = append(nums, n)
	}

	typ = strings.TrimSpace(decl[:open])
	switch {
	case len(nums) == 2:
		precision, scale = int(nums[0]), int(nums[1])
	case len(nums) == 1 && isNumericType(typ):
		precision = int(nums[0])
	case len(nums) == 1:
		length = nums[0]
	}
	return typ, length, precision, scale
}

func isNumericType(typ string) bool {
	t := strings.ToUpper(typ)
	for _, affinity := range []string{"INT", "DEC", "NUM", "REAL", "FLOA", "DOUB"} {
		if strings.Contains(t, affinity) {
			return true
		}
	}
	return false
}

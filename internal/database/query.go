package database

import (
	"fmt"
	"strings"

	"github.com/koustreak/syncmeta/internal/errs"
	"github.com/koustreak/syncmeta/internal/ident"
)

// Placeholder controls which bind-parameter style the query builder emits.
type Placeholder int

const (
	// PlaceholderDollar uses $1, $2, … (PostgreSQL).
	PlaceholderDollar Placeholder = iota

	// PlaceholderQuestion uses ? (MySQL, SQLite).
	PlaceholderQuestion

	// PlaceholderColon uses :1, :2, … (Oracle).
	PlaceholderColon
)

// Format returns the placeholder for the 1-based argument index idx.
func (p Placeholder) Format(idx int) string {
	switch p {
	case PlaceholderQuestion:
		return "?"
	case PlaceholderColon:
		return fmt.Sprintf(":%d", idx)
	default:
		return fmt.Sprintf("$%d", idx)
	}
}

// PlaceholderFor returns the bind style of driver.
func PlaceholderFor(d Driver) Placeholder {
	switch d {
	case DriverMySQL, DriverSQLite:
		return PlaceholderQuestion
	case DriverOracle:
		return PlaceholderColon
	default:
		return PlaceholderDollar
	}
}

// validOps is the allowlist of comparison operators for WHERE clauses.
// Any operator not in this list is rejected: the operator position cannot be
// parameterized.
var validOps = map[string]bool{
	"=":    true,
	"!=":   true,
	"<>":   true,
	"<":    true,
	">":    true,
	"<=":   true,
	">=":   true,
	"LIKE": true,
}

// SelectBuilder constructs a parameterized SELECT query using a fluent API.
// Values are never interpolated into the SQL string; they are returned as args.
// Column names go through the table's identifier convention, so an unquoted
// name is folded exactly as the backend folded it at CREATE time.
//
// Usage (Oracle):
//
//	table := ident.MustParse("scope_info", ident.Oracle)
//	sql, args, err := database.Select(table, database.PlaceholderColon).
//	    Columns("sync_scope_id", "sync_scope_name").
//	    Where("sync_scope_name", "=", name).
//	    OrderBy("sync_scope_id", database.Asc).
//	    Build()
type SelectBuilder struct {
	table   ident.Identifier
	ph      Placeholder
	columns []string
	where   []whereClause
	orderBy []orderClause
}

// SortDirection controls the ORDER BY direction.
type SortDirection bool

const (
	Asc  SortDirection = false
	Desc SortDirection = true
)

type whereClause struct {
	column string
	op     string
	value  any
}

type orderClause struct {
	column string
	dir    SortDirection
}

// Select starts a new SelectBuilder for the given table and bind style.
func Select(table ident.Identifier, ph Placeholder) *SelectBuilder {
	return &SelectBuilder{table: table, ph: ph}
}

// Columns restricts the SELECT to the specified columns.
// If not called, SELECT * is used.
func (b *SelectBuilder) Columns(cols ...string) *SelectBuilder {
	b.columns = cols
	return b
}

// Where adds a WHERE condition. Multiple calls are combined with AND.
func (b *SelectBuilder) Where(column, op string, value any) *SelectBuilder {
	b.where = append(b.where, whereClause{column, op, value})
	return b
}

// OrderBy appends an ORDER BY clause for the given column and direction.
func (b *SelectBuilder) OrderBy(column string, dir SortDirection) *SelectBuilder {
	b.orderBy = append(b.orderBy, orderClause{column, dir})
	return b
}

// Build produces the final SQL string and argument slice.
// Returns an error if any WHERE operator is not in the allowlist or any
// column name does not parse.
func (b *SelectBuilder) Build() (string, []any, error) {
	if b.table.IsZero() {
		return "", nil, errs.New(errs.ErrKindInvalidInput, "select: table is required")
	}

	// --- column list ---
	cols := "*"
	if len(b.columns) > 0 {
		quoted := make([]string, len(b.columns))
		for i, c := range b.columns {
			q, err := b.quote(c)
			if err != nil {
				return "", nil, err
			}
			quoted[i] = q
		}
		cols = strings.Join(quoted, ", ")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(cols)
	sb.WriteString(" FROM ")
	sb.WriteString(b.table.Quoted())

	var args []any
	argIdx := 1

	// --- WHERE ---
	if len(b.where) > 0 {
		parts := make([]string, 0, len(b.where))
		for _, w := range b.where {
			op := strings.ToUpper(w.op)
			if !validOps[op] {
				return "", nil, errs.New(errs.ErrKindInvalidInput,
					fmt.Sprintf("unsupported WHERE operator: %q", w.op))
			}
			col, err := b.quote(w.column)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, fmt.Sprintf("%s %s %s", col, op, b.ph.Format(argIdx)))
			args = append(args, w.value)
			argIdx++
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(parts, " AND "))
	}

	// --- ORDER BY ---
	if len(b.orderBy) > 0 {
		parts := make([]string, len(b.orderBy))
		for i, o := range b.orderBy {
			col, err := b.quote(o.column)
			if err != nil {
				return "", nil, err
			}
			dir := "ASC"
			if o.dir == Desc {
				dir = "DESC"
			}
			parts[i] = col + " " + dir
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	return sb.String(), args, nil
}

// quote normalizes a column name with the table's convention and quotes it.
func (b *SelectBuilder) quote(column string) (string, error) {
	id, err := ident.Parse(column, b.table.Convention())
	if err != nil {
		return "", err
	}
	if id.Schema != "" {
		return "", errs.New(errs.ErrKindInvalidInput, "qualified column name: "+column)
	}
	return id.Quoted(), nil
}

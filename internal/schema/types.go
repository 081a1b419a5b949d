package schema

import (
	"errors"
	"fmt"

	"github.com/koustreak/syncmeta/internal/ident"
)

var (
	// ErrTableNotFound is the cause of a catalog error for an absent table.
	ErrTableNotFound = errors.New("table not found")

	// ErrNoPrimaryKey is the cause of a Describe error for a table without a
	// declared primary key, when the caller requires one.
	ErrNoPrimaryKey = errors.New("table has no primary key")
)

// Column describes a single column in a table
type Column struct {
	Name      string
	Ordinal   int    // 1-based position as reported by the catalog
	DataType  string // declared type without length/precision: varchar, NUMBER, …
	Length    int64  // character/byte length, 0 when not applicable
	Precision int    // numeric precision, 0 when not applicable
	Scale     int    // numeric scale, 0 when not applicable
	Nullable  bool
	ReadOnly  bool // generated/computed: never the target of an UPDATE
}

// String renders the column as a DDL-like fragment, e.g. "name varchar(100) NOT NULL".
func (c Column) String() string {
	typ := c.DataType
	switch {
	case c.Length > 0:
		typ = fmt.Sprintf("%s(%d)", typ, c.Length)
	case c.Precision > 0 && c.Scale > 0:
		typ = fmt.Sprintf("%s(%d,%d)", typ, c.Precision, c.Scale)
	case c.Precision > 0:
		typ = fmt.Sprintf("%s(%d)", typ, c.Precision)
	}
	if !c.Nullable {
		typ += " NOT NULL"
	}
	if c.ReadOnly {
		typ += " GENERATED"
	}
	return c.Name + " " + typ
}

// KeyColumn is one column of a primary key
type KeyColumn struct {
	Constraint string
	Column     string
	Position   int // 1-based position within the key
}

// ForeignKey is one column pairing of a foreign-key relation. A composite key
// yields one ForeignKey per column, all sharing Constraint.
type ForeignKey struct {
	Constraint       string
	Table            string // referencing table
	Column           string // referencing column
	ReferencedTable  string
	ReferencedColumn string
	Position         int // 1-based position within the constraint
}

// TableDescriptor is the backend-agnostic reflection of one table.
type TableDescriptor struct {
	Name        ident.Identifier
	Key         string // underscore form of Name
	Columns     []Column
	PrimaryKey  []KeyColumn
	ForeignKeys []ForeignKey
}

// HasPrimaryKey reports whether the table declares a primary key.
func (t *TableDescriptor) HasPrimaryKey() bool {
	return len(t.PrimaryKey) > 0
}

// IsKey reports whether column is part of the primary key.
func (t *TableDescriptor) IsKey(column string) bool {
	for _, k := range t.PrimaryKey {
		if k.Column == column {
			return true
		}
	}
	return false
}

// Column returns the column named name.
func (t *TableDescriptor) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// KeyColumns returns the primary-key columns in key order.
func (t *TableDescriptor) KeyColumns() []Column {
	cols := make([]Column, 0, len(t.PrimaryKey))
	for _, k := range t.PrimaryKey {
		if c, ok := t.Column(k.Column); ok {
			cols = append(cols, c)
		}
	}
	return cols
}

// NonKeyColumns returns the columns outside the primary key in declared order.
func (t *TableDescriptor) NonKeyColumns() []Column {
	cols := make([]Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		if !t.IsKey(c.Name) {
			cols = append(cols, c)
		}
	}
	return cols
}

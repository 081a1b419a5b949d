package snapshot

import "fmt"

// ChangeKind classifies one difference between two snapshots.
type ChangeKind string

const (
	TableAdded      ChangeKind = "table_added"
	TableRemoved    ChangeKind = "table_removed"
	ColumnAdded     ChangeKind = "column_added"
	ColumnRemoved   ChangeKind = "column_removed"
	ColumnChanged   ChangeKind = "column_changed"
	KeyChanged      ChangeKind = "primary_key_changed"
	RelationChanged ChangeKind = "foreign_keys_changed"
)

// Change is one schema difference. Column is empty for table-level changes.
type Change struct {
	Kind   ChangeKind `json:"kind"`
	Table  string     `json:"table"`
	Column string     `json:"column,omitempty"`
	Before string     `json:"before,omitempty"`
	After  string     `json:"after,omitempty"`
}

func (c Change) String() string {
	target := c.Table
	if c.Column != "" {
		target += "." + c.Column
	}
	switch {
	case c.Before != "" && c.After != "":
		return fmt.Sprintf("%s %s: %s -> %s", c.Kind, target, c.Before, c.After)
	case c.After != "":
		return fmt.Sprintf("%s %s: %s", c.Kind, target, c.After)
	case c.Before != "":
		return fmt.Sprintf("%s %s: %s", c.Kind, target, c.Before)
	}
	return fmt.Sprintf("%s %s", c.Kind, target)
}

// Diff lists the schema changes from old to cur, table by table in cur's
// order followed by tables only old has. Scope rows are not compared.
func Diff(old, cur *Snapshot) []Change {
	var changes []Change

	for _, t := range cur.Tables {
		prev, ok := old.Table(t.Name)
		if !ok {
			changes = append(changes, Change{Kind: TableAdded, Table: t.Name})
			continue
		}
		changes = append(changes, diffTable(prev, t)...)
	}
	for _, t := range old.Tables {
		if _, ok := cur.Table(t.Name); !ok {
			changes = append(changes, Change{Kind: TableRemoved, Table: t.Name})
		}
	}
	return changes
}

func diffTable(old, cur Table) []Change {
	var changes []Change

	before := make(map[string]Column, len(old.Columns))
	for _, c := range old.Columns {
		before[c.Name] = c
	}
	seen := make(map[string]bool, len(cur.Columns))
	for _, c := range cur.Columns {
		seen[c.Name] = true
		prev, ok := before[c.Name]
		switch {
		case !ok:
			changes = append(changes, Change{Kind: ColumnAdded, Table: cur.Name, Column: c.Name, After: c.describe()})
		case prev.describe() != c.describe():
			changes = append(changes, Change{Kind: ColumnChanged, Table: cur.Name, Column: c.Name,
				Before: prev.describe(), After: c.describe()})
		}
	}
	for _, c := range old.Columns {
		if !seen[c.Name] {
			changes = append(changes, Change{Kind: ColumnRemoved, Table: cur.Name, Column: c.Name, Before: c.describe()})
		}
	}

	if a, b := keyList(old.PrimaryKey), keyList(cur.PrimaryKey); a != b {
		changes = append(changes, Change{Kind: KeyChanged, Table: cur.Name, Before: a, After: b})
	}
	if a, b := relationList(old.ForeignKeys), relationList(cur.ForeignKeys); a != b {
		changes = append(changes, Change{Kind: RelationChanged, Table: cur.Name, Before: a, After: b})
	}
	return changes
}

// describe renders the comparable part of a column; ordinal moves alone are
// not drift.
func (c Column) describe() string {
	s := c.DataType
	switch {
	case c.Length > 0:
		s = fmt.Sprintf("%s(%d)", s, c.Length)
	case c.Precision > 0:
		s = fmt.Sprintf("%s(%d,%d)", s, c.Precision, c.Scale)
	}
	if !c.Nullable {
		s += " NOT NULL"
	}
	if c.ReadOnly {
		s += " GENERATED"
	}
	return s
}

func keyList(keys []KeyColumn) string {
	s := ""
	for i, k := range keys {
		if i > 0 {
			s += ","
		}
		s += k.Column
	}
	return s
}

func relationList(fks []ForeignKey) string {
	s := ""
	for i, fk := range fks {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%s:%s->%s.%s", fk.Constraint, fk.Column, fk.ReferencedTable, fk.ReferencedColumn)
	}
	return s
}

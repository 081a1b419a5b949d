// Package clause builds the predicate and assignment fragments that DDL and
// stored-procedure generators splice into larger statements.
//
// Every builder keeps the declared column order and returns "" for an empty
// column list; callers must not emit a WHERE or SET keyword in front of an
// empty fragment.
package clause

import (
	"strings"

	"github.com/koustreak/syncmeta/internal/schema"
)

// ProcedureParamSuffix is appended to a column name to form the parameter
// bound to it inside a stored-procedure body, where a bind variable named
// exactly like a column would be ambiguous.
const ProcedureParamSuffix = "0"

// JoinPredicate returns "left.a = right.a AND left.b = right.b". An empty
// alias drops its prefix.
func JoinPredicate(cols []schema.Column, left, right string) string {
	return build(cols, " AND ", func(c schema.Column) string {
		return qualify(left, c.Name) + " = " + qualify(right, c.Name)
	})
}

// ParameterEqualityPredicate returns "prefix.a = :a AND prefix.b = :b".
func ParameterEqualityPredicate(cols []schema.Column, prefix string) string {
	return build(cols, " AND ", func(c schema.Column) string {
		return qualify(prefix, c.Name) + " = :" + c.Name
	})
}

// StoredProcedureParameterEqualityPredicate returns
// "prefix.a = a0 AND prefix.b = b0".
func StoredProcedureParameterEqualityPredicate(cols []schema.Column, prefix string) string {
	return build(cols, " AND ", func(c schema.Column) string {
		return qualify(prefix, c.Name) + " = " + c.Name + ProcedureParamSuffix
	})
}

// CommaSeparatedAssignment returns "prefix.a = :a, prefix.b = :b" over the
// columns of table an UPDATE may set: outside the primary key and not
// read-only.
func CommaSeparatedAssignment(table *schema.TableDescriptor, prefix string) string {
	return build(Assignable(table), ", ", func(c schema.Column) string {
		return qualify(prefix, c.Name) + " = :" + c.Name
	})
}

// StoredProcedureCommaSeparatedAssignment is CommaSeparatedAssignment with
// stored-procedure parameters: "prefix.a = a0, prefix.b = b0".
func StoredProcedureCommaSeparatedAssignment(table *schema.TableDescriptor, prefix string) string {
	return build(Assignable(table), ", ", func(c schema.Column) string {
		return qualify(prefix, c.Name) + " = " + c.Name + ProcedureParamSuffix
	})
}

// ColumnList returns "prefix.a, prefix.b".
func ColumnList(cols []schema.Column, prefix string) string {
	return build(cols, ", ", func(c schema.Column) string {
		return qualify(prefix, c.Name)
	})
}

// ParameterList returns ":a, :b", the VALUES list matching ColumnList.
func ParameterList(cols []schema.Column) string {
	return build(cols, ", ", func(c schema.Column) string {
		return ":" + c.Name
	})
}

// Assignable returns the columns of table an UPDATE may set, in declared
// order.
func Assignable(table *schema.TableDescriptor) []schema.Column {
	if table == nil {
		return nil
	}
	var cols []schema.Column
	for _, c := range table.NonKeyColumns() {
		if !c.ReadOnly {
			cols = append(cols, c)
		}
	}
	return cols
}

func build(cols []schema.Column, sep string, term func(schema.Column) string) string {
	var sb strings.Builder
	for i, c := range cols {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(term(c))
	}
	return sb.String()
}

func qualify(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

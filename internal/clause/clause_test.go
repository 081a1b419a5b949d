package clause

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/koustreak/syncmeta/internal/ident"
	"github.com/koustreak/syncmeta/internal/schema"
)

func cols(names ...string) []schema.Column {
	out := make([]schema.Column, len(names))
	for i, n := range names {
		out[i] = schema.Column{Name: n, Ordinal: i + 1}
	}
	return out
}

// table declares id as key, then val, then a generated total.
func table() *schema.TableDescriptor {
	c := cols("id", "val", "total")
	c[2].ReadOnly = true
	return &schema.TableDescriptor{
		Name:       ident.MustParse("items", ident.Oracle),
		Key:        "ITEMS",
		Columns:    c,
		PrimaryKey: []schema.KeyColumn{{Constraint: "PK_ITEMS", Column: "id", Position: 1}},
	}
}

func TestJoinPredicate(t *testing.T) {
	tests := []struct {
		name        string
		cols        []schema.Column
		left, right string
		want        string
	}{
		{"two columns", cols("colA", "colB"), "base", "changes", "base.colA = changes.colA AND base.colB = changes.colB"},
		{"single", cols("id"), "t", "s", "t.id = s.id"},
		{"no left alias", cols("id"), "", "s", "id = s.id"},
		{"no aliases", cols("a", "b"), "", "", "a = a AND b = b"},
		{"empty", nil, "base", "changes", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, JoinPredicate(tt.cols, tt.left, tt.right))
		})
	}
}

func TestParameterEqualityPredicate(t *testing.T) {
	assert.Equal(t, "base.a = :a AND base.b = :b", ParameterEqualityPredicate(cols("a", "b"), "base"))
	assert.Equal(t, "a = :a", ParameterEqualityPredicate(cols("a"), ""))
	assert.Equal(t, "", ParameterEqualityPredicate(nil, "base"))
}

func TestStoredProcedureParameterEqualityPredicate(t *testing.T) {
	assert.Equal(t, "base.a = a0 AND base.b = b0", StoredProcedureParameterEqualityPredicate(cols("a", "b"), "base"))
	assert.Equal(t, "a = a0", StoredProcedureParameterEqualityPredicate(cols("a"), ""))
	assert.Equal(t, "", StoredProcedureParameterEqualityPredicate(nil, ""))
}

func TestCommaSeparatedAssignment(t *testing.T) {
	// Key and read-only columns are never assigned.
	assert.Equal(t, "val = :val", CommaSeparatedAssignment(table(), ""))
	assert.Equal(t, "val = val0", StoredProcedureCommaSeparatedAssignment(table(), ""))
	assert.Equal(t, "base.val = :val", CommaSeparatedAssignment(table(), "base"))

	wide := table()
	wide.Columns = append(wide.Columns, schema.Column{Name: "note", Ordinal: 4})
	assert.Equal(t, "val = :val, note = :note", CommaSeparatedAssignment(wide, ""))
	assert.Equal(t, "b.val = val0, b.note = note0", StoredProcedureCommaSeparatedAssignment(wide, "b"))

	keyOnly := &schema.TableDescriptor{
		Columns:    cols("id"),
		PrimaryKey: []schema.KeyColumn{{Column: "id", Position: 1}},
	}
	assert.Equal(t, "", CommaSeparatedAssignment(keyOnly, ""))
	assert.Equal(t, "", CommaSeparatedAssignment(nil, ""))
}

func TestLists(t *testing.T) {
	assert.Equal(t, "s.a, s.b", ColumnList(cols("a", "b"), "s"))
	assert.Equal(t, "a, b", ColumnList(cols("a", "b"), ""))
	assert.Equal(t, ":a, :b", ParameterList(cols("a", "b")))
	assert.Equal(t, "", ParameterList(nil))
}

func TestAssignable_KeepsDeclaredOrder(t *testing.T) {
	td := &schema.TableDescriptor{
		Columns:    cols("z", "id", "a", "m"),
		PrimaryKey: []schema.KeyColumn{{Column: "id", Position: 1}},
	}
	got := Assignable(td)
	assert.Equal(t, []string{"z", "a", "m"}, []string{got[0].Name, got[1].Name, got[2].Name})
}

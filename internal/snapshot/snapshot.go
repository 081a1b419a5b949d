// Package snapshot captures table descriptors and scope rows as a
// self-contained JSON document, archives it in object storage and compares
// two snapshots for schema drift.
package snapshot

import (
	"context"
	"time"

	"github.com/koustreak/syncmeta/internal/schema"
	"github.com/koustreak/syncmeta/internal/scope"
)

// FormatVersion is written into every snapshot document.
const FormatVersion = 1

// Snapshot is the archived state of one database at one server clock value.
type Snapshot struct {
	Version int    `json:"version"`
	Driver  string `json:"driver"`

	// Clock is the backend's logical clock when the capture started.
	Clock   int64     `json:"clock"`
	TakenAt time.Time `json:"taken_at"`

	Tables []Table `json:"tables"`
	Scopes []Scope `json:"scopes,omitempty"`
}

// Table is the JSON view of a schema.TableDescriptor.
type Table struct {
	Name        string       `json:"name"`
	Key         string       `json:"key"`
	Columns     []Column     `json:"columns"`
	PrimaryKey  []KeyColumn  `json:"primary_key"`
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty"`
}

type Column struct {
	Name      string `json:"name"`
	Ordinal   int    `json:"ordinal"`
	DataType  string `json:"data_type"`
	Length    int64  `json:"length,omitempty"`
	Precision int    `json:"precision,omitempty"`
	Scale     int    `json:"scale,omitempty"`
	Nullable  bool   `json:"nullable"`
	ReadOnly  bool   `json:"read_only,omitempty"`
}

type KeyColumn struct {
	Constraint string `json:"constraint"`
	Column     string `json:"column"`
	Position   int    `json:"position"`
}

type ForeignKey struct {
	Constraint       string `json:"constraint"`
	Column           string `json:"column"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
	Position         int    `json:"position"`
}

// Scope is the JSON view of a scope.Info.
type Scope struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	LastTimestamp int64      `json:"last_timestamp"`
	LastSync      *time.Time `json:"last_sync,omitempty"`
	IsLocal       bool       `json:"is_local"`
}

// TableFrom converts a descriptor to its JSON view.
func TableFrom(td *schema.TableDescriptor) Table {
	t := Table{
		Name:        td.Name.String(),
		Key:         td.Key,
		Columns:     make([]Column, 0, len(td.Columns)),
		PrimaryKey:  make([]KeyColumn, 0, len(td.PrimaryKey)),
		ForeignKeys: make([]ForeignKey, 0, len(td.ForeignKeys)),
	}
	for _, c := range td.Columns {
		t.Columns = append(t.Columns, Column(c))
	}
	for _, k := range td.PrimaryKey {
		t.PrimaryKey = append(t.PrimaryKey, KeyColumn(k))
	}
	for _, fk := range td.ForeignKeys {
		t.ForeignKeys = append(t.ForeignKeys, ForeignKey{
			Constraint:       fk.Constraint,
			Column:           fk.Column,
			ReferencedTable:  fk.ReferencedTable,
			ReferencedColumn: fk.ReferencedColumn,
			Position:         fk.Position,
		})
	}
	return t
}

// ScopeFrom converts a scope row to its JSON view.
func ScopeFrom(info scope.Info) Scope {
	return Scope{
		ID:            info.ID.String(),
		Name:          info.Name,
		LastTimestamp: info.LastTimestamp,
		LastSync:      info.LastSync,
		IsLocal:       info.IsLocal,
	}
}

// Source is what Capture reads from; *provider.Provider satisfies it.
type Source interface {
	Introspector() *schema.Introspector
	Scopes() *scope.Store
}

// Request names what to capture. Tables are described in the given order;
// ScopeName, when set, adds every scope row with that name.
type Request struct {
	Tables    []string
	ScopeName string
}

// Capture describes every requested table and reads the requested scope rows.
// The snapshot is stamped with the scope store's server clock, read first so
// that every change committed after it is newer than the snapshot.
func Capture(ctx context.Context, src Source, req Request) (*Snapshot, error) {
	in := src.Introspector()
	scopes := src.Scopes()

	clock, err := scopes.CurrentServerTimestamp(ctx)
	if err != nil {
		return nil, err
	}
	taken, err := scope.ClockTime(clock)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Version: FormatVersion,
		Driver:  string(scopes.Driver()),
		Clock:   clock,
		TakenAt: taken,
		Tables:  make([]Table, 0, len(req.Tables)),
	}

	for _, name := range req.Tables {
		td, err := in.Describe(ctx, name, schema.DescribeOptions{})
		if err != nil {
			return nil, err
		}
		snap.Tables = append(snap.Tables, TableFrom(td))
	}

	if req.ScopeName != "" {
		rows, err := scopes.ListScopes(ctx, req.ScopeName)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			snap.Scopes = append(snap.Scopes, ScopeFrom(r))
		}
	}
	return snap, nil
}

// Table returns the captured table with the given normalized name.
func (s *Snapshot) Table(name string) (Table, bool) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

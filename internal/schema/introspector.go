// Package schema reflects a backend's catalog into backend-agnostic table
// descriptors.
//
// Catalog implementations own the SQL for one backend. Introspector parses
// names, runs every call through a database.Session and turns catalog
// failures into errs.ErrKindCatalogQuery errors labelled with the operation
// and the object.
package schema

import (
	"context"

	"github.com/koustreak/syncmeta/internal/database"
	"github.com/koustreak/syncmeta/internal/errs"
	"github.com/koustreak/syncmeta/internal/ident"
	"github.com/koustreak/syncmeta/internal/logger"
)

// Operation names reported in errors and logs.
const (
	opColumns         = "schema.columns"
	opPrimaryKey      = "schema.primary_key"
	opForeignKeys     = "schema.foreign_keys"
	opReferencingKeys = "schema.referencing_keys"
	opTableExists     = "schema.table_exists"
	opTriggerExists   = "schema.trigger_exists"
	opProcedureExists = "schema.procedure_exists"
	opTypeExists      = "schema.type_exists"
	opSchemaExists    = "schema.schema_exists"
	opDescribe        = "schema.describe"
)

// Introspector answers metadata questions about one database.
// Nothing is cached: every call reads the catalog.
type Introspector struct {
	session *database.Session
	catalog Catalog
	log     *logger.Logger
}

// Option configures an Introspector.
type Option func(*Introspector)

// WithLogger sets the logger used for catalog anomalies.
func WithLogger(l *logger.Logger) Option {
	return func(in *Introspector) {
		if l != nil {
			in.log = l.Component("schema")
		}
	}
}

// NewIntrospector returns an Introspector reading catalog through session.
func NewIntrospector(session *database.Session, catalog Catalog, opts ...Option) *Introspector {
	in := &Introspector{session: session, catalog: catalog, log: logger.Nop()}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Catalog returns the backend catalog in use.
func (in *Introspector) Catalog() Catalog { return in.catalog }

// Parse normalizes name with the backend's identifier convention.
func (in *Introspector) Parse(name string) (ident.Identifier, error) {
	return ident.Parse(name, in.catalog.Convention())
}

// DescribeOptions controls Describe.
type DescribeOptions struct {
	// RequirePrimaryKey turns a table without a primary key into an error
	// wrapping ErrNoPrimaryKey instead of a warning.
	RequirePrimaryKey bool
}

// ColumnsForTable returns the columns of name in ordinal order.
//
// An absent table fails with an ErrKindCatalogQuery error wrapping
// ErrTableNotFound. A table that exists but reports no columns yields an
// empty slice and a warning.
func (in *Introspector) ColumnsForTable(ctx context.Context, name string) ([]Column, error) {
	id, err := in.Parse(name)
	if err != nil {
		return nil, err
	}

	var cols []Column
	err = in.session.Run(ctx, opColumns, id.String(), func(q database.Querier) error {
		var err error
		cols, err = in.columns(ctx, q, id)
		return err
	})
	return cols, err
}

// PrimaryKeyForTable returns the primary-key columns of name by key position.
// An empty slice means the table declares no primary key.
func (in *Introspector) PrimaryKeyForTable(ctx context.Context, name string) ([]KeyColumn, error) {
	return runList(ctx, in, opPrimaryKey, name, in.catalog.PrimaryKey)
}

// ForeignKeysForTable returns the relations in which name is the referencing
// table. A composite key yields one entry per column sharing a constraint.
func (in *Introspector) ForeignKeysForTable(ctx context.Context, name string) ([]ForeignKey, error) {
	return runList(ctx, in, opForeignKeys, name, in.catalog.ForeignKeys)
}

// ReferencingForeignKeys returns the relations in which name is referenced.
func (in *Introspector) ReferencingForeignKeys(ctx context.Context, name string) ([]ForeignKey, error) {
	return runList(ctx, in, opReferencingKeys, name, in.catalog.ReferencingKeys)
}

func (in *Introspector) TableExists(ctx context.Context, name string) (bool, error) {
	return in.probe(ctx, opTableExists, name, in.catalog.TableExists)
}

func (in *Introspector) TriggerExists(ctx context.Context, name string) (bool, error) {
	return in.probe(ctx, opTriggerExists, name, in.catalog.TriggerExists)
}

func (in *Introspector) ProcedureExists(ctx context.Context, name string) (bool, error) {
	return in.probe(ctx, opProcedureExists, name, in.catalog.ProcedureExists)
}

func (in *Introspector) TypeExists(ctx context.Context, name string) (bool, error) {
	return in.probe(ctx, opTypeExists, name, in.catalog.TypeExists)
}

// SchemaExists reports whether schema is a registered schema, database or
// user, depending on what the backend calls its namespaces.
func (in *Introspector) SchemaExists(ctx context.Context, schema string) (bool, error) {
	id, err := in.Parse(schema)
	if err != nil {
		return false, err
	}
	if id.Schema != "" {
		return false, errs.New(errs.ErrKindInvalidInput, "schema name must not be qualified: "+schema)
	}

	var exists bool
	err = in.session.Run(ctx, opSchemaExists, id.String(), func(q database.Querier) error {
		var err error
		exists, err = in.catalog.SchemaExists(ctx, q, id.Object)
		if err != nil {
			return errs.Op(errs.ErrKindCatalogQuery, opSchemaExists, id.String(), err)
		}
		return nil
	})
	return exists, err
}

// Describe assembles the full descriptor of name on a single connection.
func (in *Introspector) Describe(ctx context.Context, name string, opts DescribeOptions) (*TableDescriptor, error) {
	id, err := in.Parse(name)
	if err != nil {
		return nil, err
	}

	td := &TableDescriptor{Name: id, Key: id.Key()}
	err = in.session.Run(ctx, opDescribe, id.String(), func(q database.Querier) error {
		cols, err := in.columns(ctx, q, id)
		if err != nil {
			return err
		}
		td.Columns = cols

		if td.PrimaryKey, err = in.catalog.PrimaryKey(ctx, q, id); err != nil {
			return errs.Op(errs.ErrKindCatalogQuery, opPrimaryKey, id.String(), err)
		}
		if td.ForeignKeys, err = in.catalog.ForeignKeys(ctx, q, id); err != nil {
			return errs.Op(errs.ErrKindCatalogQuery, opForeignKeys, id.String(), err)
		}
		return in.validate(td, opts)
	})
	if err != nil {
		return nil, err
	}
	return td, nil
}

// validate checks the primary key against the column list.
func (in *Introspector) validate(td *TableDescriptor, opts DescribeOptions) error {
	for _, k := range td.PrimaryKey {
		if _, ok := td.Column(k.Column); !ok {
			return errs.Opf(errs.ErrKindCatalogQuery, opDescribe, td.Name.String(),
				"primary key column %q is not a column of the table", k.Column)
		}
	}

	if td.HasPrimaryKey() {
		return nil
	}
	if opts.RequirePrimaryKey {
		return errs.Op(errs.ErrKindCatalogQuery, opDescribe, td.Name.String(), ErrNoPrimaryKey)
	}
	in.log.WarnWith("table has no primary key", map[string]interface{}{
		"table": td.Name.String(),
	})
	return nil
}

// columns probes existence before reading columns so that an absent table is
// told apart from an empty result. The probe matches the name exactly: a
// table that only differs in case is absent to the column query too.
func (in *Introspector) columns(ctx context.Context, q database.Querier, id ident.Identifier) ([]Column, error) {
	exists, err := in.catalog.HasTable(ctx, q, id)
	if err != nil {
		return nil, errs.Op(errs.ErrKindCatalogQuery, opTableExists, id.String(), err)
	}
	if !exists {
		return nil, errs.Op(errs.ErrKindCatalogQuery, opColumns, id.String(), ErrTableNotFound)
	}

	cols, err := in.catalog.Columns(ctx, q, id)
	if err != nil {
		return nil, errs.Op(errs.ErrKindCatalogQuery, opColumns, id.String(), err)
	}
	if len(cols) == 0 {
		in.log.WarnWith("table reports no columns", map[string]interface{}{
			"table": id.String(),
		})
	}
	return cols, nil
}

func (in *Introspector) probe(ctx context.Context, op, name string,
	fn func(context.Context, database.Querier, ident.Identifier) (bool, error)) (bool, error) {
	id, err := in.Parse(name)
	if err != nil {
		return false, err
	}

	var exists bool
	err = in.session.Run(ctx, op, id.String(), func(q database.Querier) error {
		var err error
		exists, err = fn(ctx, q, id)
		if err != nil {
			return errs.Op(errs.ErrKindCatalogQuery, op, id.String(), err)
		}
		return nil
	})
	return exists, err
}

func runList[T any](ctx context.Context, in *Introspector, op, name string,
	fn func(context.Context, database.Querier, ident.Identifier) ([]T, error)) ([]T, error) {
	id, err := in.Parse(name)
	if err != nil {
		return nil, err
	}

	var out []T
	err = in.session.Run(ctx, op, id.String(), func(q database.Querier) error {
		var err error
		out, err = fn(ctx, q, id)
		if err != nil {
			return errs.Op(errs.ErrKindCatalogQuery, op, id.String(), err)
		}
		return nil
	})
	return out, err
}

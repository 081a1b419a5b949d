// Package scope persists per-scope sync state and its logical clock.
//
// The scope table holds one row per scope id. Upsert writes a row in a single
// statement that also stamps it with the backend's clock, then reads the row
// back; the returned Info is the stored state, not the input.
package scope

import (
	"context"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/koustreak/syncmeta/internal/database"
	"github.com/koustreak/syncmeta/internal/errs"
	"github.com/koustreak/syncmeta/internal/ident"
	"github.com/koustreak/syncmeta/internal/logger"
)

// DefaultTableName is the scope table used unless WithTableName overrides it.
const DefaultTableName = "scope_info"

const maxNameLength = 100

// Operation names reported in errors and logs.
const (
	opNeedsCreation = "scope.needs_creation"
	opCreateTable   = "scope.create_table"
	opDropTable     = "scope.drop_table"
	opList          = "scope.list"
	opGet           = "scope.get"
	opTimestamp     = "scope.server_timestamp"
	opUpsert        = "scope.upsert"
)

// Store reads and writes the scope table of one database.
type Store struct {
	session   *database.Session
	dialect   Dialect
	tableName string
	table     ident.Identifier
	log       *logger.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithTableName overrides DefaultTableName. name may be schema-qualified and
// quoted; it is normalized with the backend's identifier convention.
func WithTableName(name string) Option {
	return func(s *Store) { s.tableName = name }
}

// WithLogger sets the logger for store diagnostics.
func WithLogger(l *logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l.Component("scope")
		}
	}
}

// NewStore returns a Store running its statements through session.
func NewStore(session *database.Session, dialect Dialect, opts ...Option) (*Store, error) {
	s := &Store{
		session:   session,
		dialect:   dialect,
		tableName: DefaultTableName,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	table, err := ident.Parse(s.tableName, dialect.Catalog().Convention())
	if err != nil {
		return nil, err
	}
	s.table = table
	return s, nil
}

// Table returns the normalized scope table name.
func (s *Store) Table() ident.Identifier { return s.table }

// Driver returns the backend the store's dialect targets.
func (s *Store) Driver() database.Driver { return s.dialect.Driver() }

// NeedsCreation reports whether the scope table is absent.
func (s *Store) NeedsCreation(ctx context.Context) (bool, error) {
	var exists bool
	err := s.session.Run(ctx, opNeedsCreation, s.table.String(), func(q database.Querier) error {
		var err error
		exists, err = s.dialect.Catalog().TableExists(ctx, q, s.table)
		if err != nil {
			return errs.Op(errs.ErrKindCatalogQuery, opNeedsCreation, s.table.String(), err)
		}
		return nil
	})
	return !exists, err
}

// CreateTable creates the scope table. It fails with an ErrKindDDL error when
// the backend rejects the statement, including when the table already exists.
func (s *Store) CreateTable(ctx context.Context) error {
	return s.exec(ctx, opCreateTable, s.dialect.CreateTableSQL(s.table))
}

// DropTable drops the scope table and every scope row with it. It fails with
// an ErrKindDDL error when the table does not exist.
func (s *Store) DropTable(ctx context.Context) error {
	return s.exec(ctx, opDropTable, s.dialect.DropTableSQL(s.table))
}

func (s *Store) exec(ctx context.Context, op, stmt string) error {
	return s.session.Run(ctx, op, s.table.String(), func(q database.Querier) error {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return errs.Op(errs.ErrKindDDL, op, s.table.String(), err)
		}
		s.log.InfoWith("scope table changed", map[string]interface{}{
			"op":    op,
			"table": s.table.String(),
		})
		return nil
	})
}

// ListScopes returns every row named name, ordered by id.
func (s *Store) ListScopes(ctx context.Context, name string) ([]Info, error) {
	sql, args, err := database.Select(s.table, s.dialect.Placeholder()).
		Columns(infoColumns...).
		Where(colName, "=", name).
		OrderBy(colID, database.Asc).
		Build()
	if err != nil {
		return nil, err
	}

	var out []Info
	err = s.session.Run(ctx, opList, name, func(q database.Querier) error {
		var err error
		out, err = s.query(ctx, q, opList, name, sql, args)
		return err
	})
	return out, err
}

// Scope returns the row with id. It fails with an ErrKindNotFound error when
// there is none.
func (s *Store) Scope(ctx context.Context, id uuid.UUID) (Info, error) {
	var info Info
	err := s.session.Run(ctx, opGet, id.String(), func(q database.Querier) error {
		var err error
		info, err = s.get(ctx, q, opGet, id)
		return err
	})
	return info, err
}

// CurrentServerTimestamp reads the backend clock as a logical clock value.
// It is the only clock scope timestamps are taken from.
func (s *Store) CurrentServerTimestamp(ctx context.Context) (int64, error) {
	var clock clockValue
	err := s.session.Run(ctx, opTimestamp, string(s.dialect.Driver()), func(q database.Querier) error {
		if err := q.QueryRow(ctx, s.dialect.TimestampSQL()).Scan(&clock); err != nil {
			return errs.Op(errs.ErrKindQueryFailed, opTimestamp, string(s.dialect.Driver()), err)
		}
		return nil
	})
	return clock.v, err
}

// Upsert inserts info or updates the row with the same ID in one statement
// that also stamps the row with the backend clock, then returns the row as
// stored. LastTimestamp of the input is ignored; LastSync is truncated to the
// second.
//
// Both statements run on one connection. Concurrent upserts of the same id
// race at the backend's isolation level; either way the stored clock never
// moves backwards.
func (s *Store) Upsert(ctx context.Context, info Info) (Info, error) {
	if err := validate(info); err != nil {
		return Info{}, err
	}

	var stored Info
	err := s.session.Run(ctx, opUpsert, info.ID.String(), func(q database.Querier) error {
		_, err := q.Exec(ctx, s.dialect.UpsertSQL(s.table),
			info.ID.String(), info.Name, info.isLocalArg(), info.lastSyncArg())
		if err != nil {
			return errs.Op(errs.ErrKindQueryFailed, opUpsert, info.ID.String(), err)
		}

		stored, err = s.get(ctx, q, opUpsert, info.ID)
		return err
	})
	return stored, err
}

func validate(info Info) error {
	switch {
	case info.ID == uuid.Nil:
		return errs.New(errs.ErrKindInvalidInput, "scope id is required")
	case info.Name == "":
		return errs.New(errs.ErrKindInvalidInput, "scope name is required")
	case utf8.RuneCountInString(info.Name) > maxNameLength:
		return errs.New(errs.ErrKindInvalidInput, "scope name is longer than 100 characters")
	}
	return nil
}

func (s *Store) get(ctx context.Context, q database.Querier, op string, id uuid.UUID) (Info, error) {
	sql, args, err := database.Select(s.table, s.dialect.Placeholder()).
		Columns(infoColumns...).
		Where(colID, "=", id.String()).
		Build()
	if err != nil {
		return Info{}, err
	}

	rows, err := s.query(ctx, q, op, id.String(), sql, args)
	if err != nil {
		return Info{}, err
	}
	if len(rows) == 0 {
		return Info{}, errs.Opf(errs.ErrKindNotFound, op, id.String(), "no scope row with this id")
	}
	return rows[0], nil
}

func (s *Store) query(ctx context.Context, q database.Querier, op, object, sql string, args []any) ([]Info, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, errs.Op(errs.ErrKindQueryFailed, op, object, err)
	}
	defer rows.Close()

	out := []Info{}
	for rows.Next() {
		info, err := scanInfo(rows)
		if err != nil {
			return nil, errs.Op(errs.ErrKindCatalogQuery, op, object, err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Op(errs.ErrKindQueryFailed, op, object, err)
	}
	return out, nil
}

// scanInfo reads one row selected with infoColumns.
func scanInfo(rows database.Rows) (Info, error) {
	var (
		info     Info
		rawID    string
		clock    clockValue
		isLocal  int64
		lastSync timeValue
	)
	if err := rows.Scan(&rawID, &info.Name, &clock, &isLocal, &lastSync); err != nil {
		return Info{}, err
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return Info{}, errs.Wrap(errs.ErrKindInvalidInput, "stored scope id is not a UUID", err)
	}
	info.ID = id
	info.LastTimestamp = clock.v
	info.IsLocal = isLocal != 0
	info.LastSync = lastSync.t
	return info, nil
}

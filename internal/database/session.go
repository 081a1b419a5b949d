package database

import (
	"context"
	"errors"

	"github.com/koustreak/syncmeta/internal/errs"
	"github.com/koustreak/syncmeta/internal/logger"
)

// Session is the connection/transaction pair an operation runs against.
//
// A session built over a caller-held Querier (a transaction or an acquired
// connection) uses it as-is and never releases it. A session over a bare pool
// acquires one connection per Run and releases it on every exit path.
//
// A Session holding a caller handle is not safe for concurrent use; concurrent
// callers must use distinct handles.
type Session struct {
	db   DB
	held Querier
	log  *logger.Logger
}

// NewSession returns a session that acquires from db on demand.
func NewSession(db DB, log *logger.Logger) *Session {
	if log == nil {
		log = logger.Nop()
	}
	return &Session{db: db, log: log}
}

// WithTx returns a copy of s that runs every operation inside tx.
func (s *Session) WithTx(tx Tx) *Session {
	return &Session{db: s.db, held: tx, log: s.log}
}

// WithConn returns a copy of s that runs every operation on conn.
func (s *Session) WithConn(conn Conn) *Session {
	return &Session{db: s.db, held: conn, log: s.log}
}

// Driver returns the backend of the underlying pool, or "" when the session
// only wraps a caller handle.
func (s *Session) Driver() Driver {
	if s.db == nil {
		return ""
	}
	return s.db.Driver()
}

// Run executes fn against the session's Querier.
//
// op and object label the failure: a non-nil error from fn, or from acquiring
// a connection, is logged once with both and returned as an *errs.Error.
func (s *Session) Run(ctx context.Context, op, object string, fn func(q Querier) error) error {
	err := s.run(ctx, op, object, fn)
	if err == nil {
		return nil
	}

	e := annotate(err, op, object)
	s.log.ErrorWith("metadata operation failed", e, map[string]interface{}{
		"op":     op,
		"object": object,
		"kind":   e.Kind.String(),
	})
	return e
}

func (s *Session) run(ctx context.Context, op, object string, fn func(q Querier) error) error {
	if s.held != nil {
		return fn(s.held)
	}
	if s.db == nil {
		return errs.Opf(errs.ErrKindConnectionFailed, op, object, "session has neither a pool nor a held connection")
	}

	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return errs.Op(errs.ErrKindConnectionFailed, op, object, err)
	}
	defer conn.Release()

	return fn(conn)
}

// annotate makes sure err is an *errs.Error labelled with op and object.
func annotate(err error, op, object string) *errs.Error {
	if e, ok := err.(*errs.Error); ok {
		if e.Op != "" {
			return e
		}
		cp := *e
		cp.Op, cp.Object = op, object
		return &cp
	}
	var inner *errs.Error
	if errors.As(err, &inner) && inner.Op != "" {
		return errs.Op(inner.Kind, inner.Op, inner.Object, err)
	}
	return errs.Op(errs.KindOf(err), op, object, err)
}

package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"

	"github.com/jackc/pgx/v5"

	"github.com/koustreak/syncmeta/internal/errs"
)

// ErrorMapper translates a driver-native error into *errs.Error. msg is the
// operation-level description ("query failed", "ping failed", …).
type ErrorMapper func(err error, msg string) *errs.Error

// MapCommon handles the cases every driver shares: context cancellation and
// "no rows". It reports false when the error needs driver-specific mapping.
func MapCommon(err error, msg string) (*errs.Error, bool) {
	var e *errs.Error
	if errors.As(err, &e) {
		return e, true
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err), true
	}

	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err), true
	}

	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) {
		return errs.Wrap(errs.ErrKindConnectionFailed, msg, err), true
	}

	return nil, false
}

// IsTransport reports whether err came from the connection rather than from a
// statement: a bad or dropped connection, a network error, or a stream that
// ended mid-protocol.
func IsTransport(err error) bool {
	var netErr net.Error
	return errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.As(err, &netErr)
}

// MapConnect maps a failure to reach the database (ping, checkout, begin).
// Whatever the driver cannot classify more precisely is a connection failure.
func MapConnect(mapErr ErrorMapper, err error, msg string) *errs.Error {
	e := mapErr(err, msg)
	if e.Kind != errs.ErrKindQueryFailed {
		return e
	}
	cp := *e
	cp.Kind = errs.ErrKindConnectionFailed
	return &cp
}

package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/koustreak/syncmeta/internal/database"
	"github.com/koustreak/syncmeta/internal/errs"
)

// PostgreSQL SQLSTATE codes this package classifies individually.
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgErrQueryCanceled         = "57014"
	pgErrInsufficientPrivilege = "42501"
	pgErrUniqueViolation       = "23505"
)

// mapError translates pgx / pgconn native errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if e, ok := database.MapCommon(err, msg); ok {
		return e
	}

	// Postgres server-side error (SQLSTATE codes)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return errs.Wrap(classifySQLState(pgErr.Code), fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || database.IsTransport(err) {
		return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
	}

	// Client-side failures such as Scan conversions
	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}

// classifySQLState maps a SQLSTATE to an ErrKind by class, with a few
// individually significant codes.
func classifySQLState(code string) errs.ErrKind {
	switch code {
	case pgErrQueryCanceled:
		return errs.ErrKindTimeout
	case pgErrInsufficientPrivilege:
		return errs.ErrKindPermissionDenied
	case pgErrUniqueViolation:
		return errs.ErrKindConstraintViolation
	}

	if len(code) < 2 {
		return errs.ErrKindUnknown
	}
	switch code[:2] {
	case "08", "57": // connection exception, operator intervention
		return errs.ErrKindConnectionFailed
	case "28": // invalid authorization specification
		return errs.ErrKindPermissionDenied
	case "23": // integrity constraint violation
		return errs.ErrKindConstraintViolation
	default:
		return errs.ErrKindQueryFailed
	}
}

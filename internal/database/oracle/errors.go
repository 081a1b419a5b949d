package oracle

import (
	"regexp"
	"strconv"

	"github.com/koustreak/syncmeta/internal/database"
	"github.com/koustreak/syncmeta/internal/errs"
)

// Oracle error numbers
// Full list: https://docs.oracle.com/en/database/oracle/oracle-database/19/errmg/
const (
	oraUniqueConstraint    = 1
	oraCancelled           = 1013
	oraInvalidLogon        = 1017
	oraInsufficientPrivs   = 1031
	oraIntegrityParentKey  = 2291
	oraIntegrityChildFound = 2292
	oraEndOfChannel        = 3113
	oraNotConnected        = 3114
	oraConnectionLost      = 3135
	oraListenerNoService   = 12514
	oraConnectTimeout      = 12170
	oraNoListener          = 12541
)

// oraCode extracts the ORA-nnnnn number go-ora puts in its error text. The
// driver surfaces server errors through more than one wrapper type, the text
// is the one stable carrier.
var oraCode = regexp.MustCompile(`ORA-(\d{5})`)

// mapError translates go-ora errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if e, ok := database.MapCommon(err, msg); ok {
		return e
	}

	m := oraCode.FindStringSubmatch(err.Error())
	if m == nil {
		if database.IsTransport(err) {
			return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
		}
		// Client-side failures such as Scan conversions
		return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
	}
	code, _ := strconv.Atoi(m[1])
	return errs.Wrap(classifyORA(code), msg, err)
}

// classifyORA maps Oracle error numbers to ErrKind.
func classifyORA(code int) errs.ErrKind {
	switch code {
	case oraUniqueConstraint, oraIntegrityParentKey, oraIntegrityChildFound:
		return errs.ErrKindConstraintViolation
	case oraCancelled:
		return errs.ErrKindTimeout
	case oraInvalidLogon, oraInsufficientPrivs:
		return errs.ErrKindPermissionDenied
	case oraEndOfChannel, oraNotConnected, oraConnectionLost,
		oraListenerNoService, oraConnectTimeout, oraNoListener:
		return errs.ErrKindConnectionFailed
	default:
		return errs.ErrKindQueryFailed
	}
}

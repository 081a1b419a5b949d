// Package errs provides the unified error type used across syncmeta.
//
// Every subsystem (drivers, catalog introspection, scope store) wraps its
// native errors into *errs.Error before returning them to callers. Callers use
// the Is* predicates to decide whether to retry, abort the sync round, or
// surface the failure to an operator, without importing driver packages.
//
// Usage:
//
//	// In a driver — wrap native errors:
//	return errs.Wrap(errs.ErrKindTimeout, "query timed out", pgErr)
//
//	// In an operation — attach the operation and its target:
//	return errs.Op(errs.ErrKindDDL, "scope.create_table", "scope_info", err)
//
//	// In the orchestrator — check error kind:
//	if errs.IsConnectionFailed(err) {
//	    // retry on a fresh connection
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing backend-specific codes.
// All backends (PostgreSQL, MySQL, SQLite, Oracle) map their native errors
// to one of these kinds, giving callers a single consistent API.
type ErrKind int

const (
	ErrKindUnknown             ErrKind = iota
	ErrKindNotFound                    // no rows, no object
	ErrKindConnectionFailed            // cannot open, reach or close the backend
	ErrKindTimeout                     // context deadline / cancellation
	ErrKindQueryFailed                 // SQL execution error
	ErrKindInvalidInput                // bad arguments from the caller
	ErrKindPermissionDenied            // access denied / auth failure
	ErrKindCatalogQuery                // metadata probe failed or returned an unexpected shape
	ErrKindDDL                         // create/drop rejected or issued in the wrong state
	ErrKindConstraintViolation         // unique / key constraint rejected a write
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPermissionDenied:
		return "permission_denied"
	case ErrKindCatalogQuery:
		return "catalog_query"
	case ErrKindDDL:
		return "ddl"
	case ErrKindConstraintViolation:
		return "constraint_violation"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all syncmeta subsystems.
// Drivers produce it; operations enrich it with Op and Object.
type Error struct {
	Kind    ErrKind
	Op      string // failing operation, e.g. "schema.columns"
	Object  string // target object, e.g. a table name
	Message string
	Cause   error // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	prefix := fmt.Sprintf("[%s]", e.Kind)
	if e.Op != "" {
		prefix += " " + e.Op
		if e.Object != "" {
			prefix += "(" + e.Object + ")"
		}
	}
	switch {
	case e.Message != "" && e.Cause != nil:
		return fmt.Sprintf("%s %s: %v", prefix, e.Message, e.Cause)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", prefix, e.Cause)
	case e.Message == "":
		return prefix
	default:
		return fmt.Sprintf("%s %s", prefix, e.Message)
	}
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// Op wraps cause as a failure of operation op against object.
//
// kind is the category the operation reports (catalog query, DDL, …). A kind
// the driver already assigned to the cause wins when it describes the
// transport rather than the statement: connection, timeout, permission or
// constraint failures stay as they are.
func Op(kind ErrKind, op, object string, cause error) *Error {
	switch k := KindOf(cause); k {
	case ErrKindConnectionFailed, ErrKindTimeout, ErrKindPermissionDenied, ErrKindConstraintViolation:
		kind = k
	}
	return &Error{Kind: kind, Op: op, Object: object, Cause: cause}
}

// Opf is Op with a formatted message and no cause.
func Opf(kind ErrKind, op, object, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Object: object, Message: fmt.Sprintf(format, args...)}
}

// --- Predicates ---

// IsNotFound reports whether err represents a "not found" result.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a connectivity or auth failure.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == ErrKindConnectionFailed
}

// IsQueryFailed reports whether err is a SQL execution failure.
func IsQueryFailed(err error) bool {
	return KindOf(err) == ErrKindQueryFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return KindOf(err) == ErrKindInvalidInput
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return KindOf(err) == ErrKindPermissionDenied
}

// IsCatalogQuery reports whether err is a failed or malformed metadata probe.
func IsCatalogQuery(err error) bool {
	return KindOf(err) == ErrKindCatalogQuery
}

// IsDDL reports whether err is a rejected create/drop statement.
func IsDDL(err error) bool {
	return KindOf(err) == ErrKindDDL
}

// IsConstraintViolation reports whether err is a rejected write.
func IsConstraintViolation(err error) bool {
	return KindOf(err) == ErrKindConstraintViolation
}

// KindOf extracts the ErrKind of the outermost *Error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}

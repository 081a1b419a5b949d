package database

import "context"

// Querier is the statement surface shared by pooled connections and
// transactions. Catalog adapters and the scope store only ever see a Querier,
// never a concrete driver type.
type Querier interface {
	// Query executes a SQL statement that returns multiple rows.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// QueryRow executes a SQL statement that returns at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) Row

	// Exec executes a statement and returns the number of rows affected.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
}

// Conn is a single connection checked out of a pool. Release returns it.
type Conn interface {
	Querier
	Release()
}

// Tx is an open transaction. The caller that began it owns it.
type Tx interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DB is a backend connection pool.
type DB interface {
	// Driver identifies the backend.
	Driver() Driver

	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Acquire checks out a dedicated connection.
	Acquire(ctx context.Context) (Conn, error)

	// Begin starts a transaction on a pooled connection.
	Begin(ctx context.Context) (Tx, error)

	// Close releases all resources held by the pool.
	Close() error
}

// Rows is an abstraction over a database result set.
// Callers must always call Close() when done, even on error.
type Rows interface {
	// Next advances to the next row.
	// Returns false when no more rows exist or on error.
	Next() bool

	// Scan copies the current row's columns into the provided destinations.
	Scan(dest ...any) error

	// Close releases resources held by the result set.
	Close()

	// Err returns any error encountered during iteration.
	Err() error
}

// Row is an abstraction over a single database row.
type Row interface {
	Scan(dest ...any) error
}

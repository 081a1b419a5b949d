package database

import (
	"context"
	"database/sql"

	"github.com/koustreak/syncmeta/internal/errs"
)

// SQLDB implements DB over database/sql. MySQL, SQLite and Oracle share it;
// each driver package supplies the driver name and its error mapper.
// It is safe for concurrent use by multiple goroutines.
type SQLDB struct {
	db     *sql.DB
	driver Driver
	mapErr ErrorMapper
}

// OpenSQL opens a database/sql pool for driverName, applies cfg's pool
// settings and pings it before returning.
func OpenSQL(ctx context.Context, driverName string, cfg *Config, mapErr ErrorMapper) (*SQLDB, error) {
	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(int(cfg.MaxConns))
	}
	if cfg.MinConns > 0 {
		db.SetMaxIdleConns(int(cfg.MinConns))
	}
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	d := WrapSQL(db, cfg.Driver, mapErr)

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	if err := d.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

// WrapSQL adapts an already-open *sql.DB.
func WrapSQL(db *sql.DB, driver Driver, mapErr ErrorMapper) *SQLDB {
	if mapErr == nil {
		mapErr = mapGeneric
	}
	return &SQLDB{db: db, driver: driver, mapErr: mapErr}
}

// --- DB implementation ---

func (d *SQLDB) Driver() Driver { return d.driver }

func (d *SQLDB) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return MapConnect(d.mapErr, err, "ping failed")
	}
	return nil
}

func (d *SQLDB) Acquire(ctx context.Context) (Conn, error) {
	conn, err := d.db.Conn(ctx)
	if err != nil {
		return nil, MapConnect(d.mapErr, err, "acquire connection failed")
	}
	return &sqlConn{sqlQuerier: sqlQuerier{ex: conn, mapErr: d.mapErr}, conn: conn}, nil
}

func (d *SQLDB) Begin(ctx context.Context) (Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, MapConnect(d.mapErr, err, "begin transaction failed")
	}
	return &sqlTx{sqlQuerier: sqlQuerier{ex: tx, mapErr: d.mapErr}, tx: tx}, nil
}

func (d *SQLDB) Close() error {
	if err := d.db.Close(); err != nil {
		return d.mapErr(err, "close failed")
	}
	return nil
}

// SQL returns the underlying *sql.DB (for advanced use)
func (d *SQLDB) SQL() *sql.DB {
	return d.db
}

// --- Querier over *sql.Conn / *sql.Tx ---

type execer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type sqlQuerier struct {
	ex     execer
	mapErr ErrorMapper
}

func (q sqlQuerier) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := q.ex.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, q.mapErr(err, "query failed")
	}
	return &sqlRows{rows: rows, mapErr: q.mapErr}, nil
}

func (q sqlQuerier) QueryRow(ctx context.Context, query string, args ...any) Row {
	return &sqlRow{row: q.ex.QueryRowContext(ctx, query, args...), mapErr: q.mapErr}
}

func (q sqlQuerier) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.ex.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, q.mapErr(err, "exec failed")
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Some drivers do not report affected rows for DDL.
		return 0, nil
	}
	return n, nil
}

type sqlConn struct {
	sqlQuerier
	conn *sql.Conn
}

func (c *sqlConn) Release() { _ = c.conn.Close() }

type sqlTx struct {
	sqlQuerier
	tx *sql.Tx
}

func (t *sqlTx) Commit(_ context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return t.mapErr(err, "commit failed")
	}
	return nil
}

func (t *sqlTx) Rollback(_ context.Context) error {
	if err := t.tx.Rollback(); err != nil {
		return t.mapErr(err, "rollback failed")
	}
	return nil
}

// --- sql.Rows / sql.Row wrappers ---

type sqlRows struct {
	rows   *sql.Rows
	mapErr ErrorMapper
}

func (r *sqlRows) Next() bool { return r.rows.Next() }
func (r *sqlRows) Close()     { _ = r.rows.Close() }

func (r *sqlRows) Scan(dest ...any) error {
	if err := r.rows.Scan(dest...); err != nil {
		return r.mapErr(err, "scan failed")
	}
	return nil
}

func (r *sqlRows) Err() error {
	if err := r.rows.Err(); err != nil {
		return r.mapErr(err, "row iteration failed")
	}
	return nil
}

type sqlRow struct {
	row    *sql.Row
	mapErr ErrorMapper
}

func (r *sqlRow) Scan(dest ...any) error {
	if err := r.row.Scan(dest...); err != nil {
		return r.mapErr(err, "scan failed")
	}
	return nil
}

// mapGeneric is the fallback mapper for drivers without specific codes.
func mapGeneric(err error, msg string) *errs.Error {
	if e, ok := MapCommon(err, msg); ok {
		return e
	}
	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}

package mysql

import (
	"context"

	_ "github.com/go-sql-driver/mysql" // register "mysql" driver

	"github.com/koustreak/syncmeta/internal/database"
)

// New opens a MySQL connection pool using the provided Config.
// It calls Ping to validate the connection before returning.
//
// The DSN must enable parseTime=true so DATETIME columns scan into time.Time,
// e.g. "user:pass@tcp(localhost:3306)/sync?parseTime=true".
func New(ctx context.Context, cfg *database.Config) (*database.SQLDB, error) {
	return database.OpenSQL(ctx, "mysql", cfg, mapError)
}

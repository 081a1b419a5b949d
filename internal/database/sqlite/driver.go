// Package sqlite opens SQLite databases through the pure Go modernc.org/sqlite
// driver.
package sqlite

import (
	"context"
	"strings"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/koustreak/syncmeta/internal/database"
)

// DriverName is the database/sql driver name registered by modernc.org/sqlite.
const DriverName = "sqlite"

// New opens a SQLite database using the provided Config.
//
// An in-memory DSN is pinned to a single connection: every pooled connection
// to ":memory:" would otherwise see its own empty database.
func New(ctx context.Context, cfg *database.Config) (*database.SQLDB, error) {
	c := *cfg
	if isMemory(c.DSN) {
		c.MaxConns, c.MinConns = 1, 1
		c.MaxConnLifetime, c.MaxConnIdleTime = 0, 0
	}
	return database.OpenSQL(ctx, DriverName, &c, mapError)
}

func isMemory(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

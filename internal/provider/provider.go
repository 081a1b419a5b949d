// Package provider wires a configured backend into ready-to-use metadata
// components: the driver pool, a logged session, the catalog-backed
// introspector and the scope store.
//
// Usage:
//
//	p, err := provider.Open(ctx, cfg)
//	if err != nil { ... }
//	defer p.Close()
//
//	td, err := p.Introspector().Describe(ctx, "orders", schema.DescribeOptions{})
package provider

import (
	"context"
	"fmt"

	"github.com/koustreak/syncmeta/internal/config"
	"github.com/koustreak/syncmeta/internal/database"
	"github.com/koustreak/syncmeta/internal/database/mysql"
	"github.com/koustreak/syncmeta/internal/database/oracle"
	"github.com/koustreak/syncmeta/internal/database/postgres"
	"github.com/koustreak/syncmeta/internal/database/sqlite"
	"github.com/koustreak/syncmeta/internal/errs"
	"github.com/koustreak/syncmeta/internal/filestore/minio"
	"github.com/koustreak/syncmeta/internal/logger"
	"github.com/koustreak/syncmeta/internal/schema"
	"github.com/koustreak/syncmeta/internal/scope"
	"github.com/koustreak/syncmeta/internal/snapshot"
)

// Provider owns one database pool and the components running against it.
// It is safe for concurrent use; each operation acquires its own connection.
type Provider struct {
	cfg          *config.Config
	db           database.DB
	log          *logger.Logger
	session      *database.Session
	introspector *schema.Introspector
	scopes       *scope.Store
}

// Open connects to the backend named by cfg.Database.Driver and builds the
// components for it.
func Open(ctx context.Context, cfg *config.Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.New(&cfg.Log)
	db, err := openDB(ctx, &cfg.Database)
	if err != nil {
		log.ErrorWith("failed to open database", err, map[string]interface{}{
			"driver": string(cfg.Database.Driver),
		})
		return nil, err
	}

	p, err := New(db, cfg, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	log.InfoWith("database opened", map[string]interface{}{
		"driver":      string(cfg.Database.Driver),
		"scope_table": p.scopes.Table().String(),
	})
	return p, nil
}

// New builds a Provider over an already open db. The Provider takes
// ownership: Close closes db. A nil log discards output.
func New(db database.DB, cfg *config.Config, log *logger.Logger) (*Provider, error) {
	if log == nil {
		log = logger.Nop()
	}

	catalog, err := schema.CatalogFor(db.Driver())
	if err != nil {
		return nil, err
	}
	dialect, err := scope.DialectFor(db.Driver())
	if err != nil {
		return nil, err
	}

	session := database.NewSession(db, log)
	scopes, err := scope.NewStore(session, dialect,
		scope.WithTableName(cfg.Scope.Table),
		scope.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	return &Provider{
		cfg:          cfg,
		db:           db,
		log:          log,
		session:      session,
		introspector: schema.NewIntrospector(session, catalog, schema.WithLogger(log)),
		scopes:       scopes,
	}, nil
}

func openDB(ctx context.Context, cfg *database.Config) (database.DB, error) {
	switch cfg.Driver {
	case database.DriverPostgres:
		return postgres.New(ctx, cfg)
	case database.DriverMySQL:
		return mysql.New(ctx, cfg)
	case database.DriverSQLite:
		return sqlite.New(ctx, cfg)
	case database.DriverOracle:
		return oracle.New(ctx, cfg)
	default:
		return nil, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("unsupported driver %q", cfg.Driver))
	}
}

// Driver returns the configured backend.
func (p *Provider) Driver() database.Driver { return p.db.Driver() }

// DB returns the underlying pool.
func (p *Provider) DB() database.DB { return p.db }

// Logger returns the root logger components log through.
func (p *Provider) Logger() *logger.Logger { return p.log }

// Session returns the pool-backed session. Use WithTx/WithConn on it to run
// components inside a caller-held transaction.
func (p *Provider) Session() *database.Session { return p.session }

// Introspector returns the schema introspector.
func (p *Provider) Introspector() *schema.Introspector { return p.introspector }

// Scopes returns the scope store.
func (p *Provider) Scopes() *scope.Store { return p.scopes }

// Ping verifies the database is reachable.
func (p *Provider) Ping(ctx context.Context) error { return p.db.Ping(ctx) }

// OpenArchive connects to the configured snapshot archive. It fails with an
// ErrKindInvalidInput error when no archive endpoint is configured.
func (p *Provider) OpenArchive(ctx context.Context) (*snapshot.Archive, error) {
	if !p.cfg.Archive.Enabled() {
		return nil, errs.New(errs.ErrKindInvalidInput, "no snapshot archive configured (archive.endpoint)")
	}
	store, err := minio.New(ctx, &p.cfg.Archive)
	if err != nil {
		return nil, err
	}
	return snapshot.NewArchive(store, p.cfg.Archive.Bucket, p.cfg.Archive.Prefix, snapshot.WithLogger(p.log)), nil
}

// Close releases the database pool.
func (p *Provider) Close() error {
	return p.db.Close()
}

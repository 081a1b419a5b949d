package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/koustreak/syncmeta/internal/config"
	"github.com/koustreak/syncmeta/internal/database"
	"github.com/koustreak/syncmeta/internal/provider"
)

// app holds the global flags shared by every subcommand.
type app struct {
	configPath string
	driver     string
	dsn        string
	logLevel   string
	logFormat  string
	scopeTable string
	jsonOut    bool
}

var (
	green  = color.New(color.FgGreen, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	yellow = color.New(color.FgYellow, color.Bold)
	cyan   = color.New(color.FgCyan)
)

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "syncmeta",
		Short: "Inspect catalog metadata and manage sync scopes",
		Long: `syncmeta reflects a database catalog into backend-agnostic table
descriptors and manages the scope table holding each scope's logical clock.

Examples:

  syncmeta --driver sqlite --dsn ./app.db describe orders
  syncmeta exists trigger orders_insert_trigger
  syncmeta scope init
  syncmeta scope touch sales --local
  syncmeta snapshot save orders customers --scope sales
  syncmeta serve --addr :8080
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")
	pf.StringVar(&a.driver, "driver", "", "database driver: postgres, mysql, sqlite, oracle")
	pf.StringVar(&a.dsn, "dsn", "", "database connection string")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error, disabled")
	pf.StringVar(&a.logFormat, "log-format", "", "log format: json, console")
	pf.StringVar(&a.scopeTable, "scope-table", "", "scope table name (default scope_info)")
	pf.BoolVar(&a.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		newDescribeCmd(a),
		newExistsCmd(a),
		newScopeCmd(a),
		newSnapshotCmd(a),
		newServeCmd(a),
	)
	return root
}

// loadConfig merges the config file, the environment and the global flags,
// flags taking precedence.
func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Read(a.configPath)
	if err != nil {
		return nil, err
	}

	if a.driver != "" {
		cfg.Database.Driver = database.Driver(a.driver)
	}
	if a.dsn != "" {
		cfg.Database.DSN = a.dsn
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if a.scopeTable != "" {
		cfg.Scope.Table = a.scopeTable
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *app) open(ctx context.Context) (*provider.Provider, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	return provider.Open(ctx, cfg)
}

// withProvider opens the configured backend, runs fn and closes it.
func (a *app) withProvider(cmd *cobra.Command, fn func(ctx context.Context, p *provider.Provider) error) error {
	ctx := cmd.Context()
	p, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer p.Close()
	return fn(ctx, p)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

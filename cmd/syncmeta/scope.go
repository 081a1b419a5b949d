package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/koustreak/syncmeta/internal/provider"
	"github.com/koustreak/syncmeta/internal/scope"
	"github.com/koustreak/syncmeta/internal/snapshot"
)

func newScopeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scope",
		Short: "Manage the scope table and its rows",
	}
	cmd.AddCommand(
		newScopeInitCmd(a),
		newScopeDropCmd(a),
		newScopeListCmd(a),
		newScopeGetCmd(a),
		newScopeTouchCmd(a),
		newScopeNowCmd(a),
	)
	return cmd
}

func newScopeInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the scope table when it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProvider(cmd, func(ctx context.Context, p *provider.Provider) error {
				store := p.Scopes()
				needs, err := store.NeedsCreation(ctx)
				if err != nil {
					return err
				}
				if !needs {
					yellow.Fprintf(cmd.OutOrStdout(), "scope table %s already exists\n", store.Table())
					return nil
				}
				if err := store.CreateTable(ctx); err != nil {
					return err
				}
				green.Fprintf(cmd.OutOrStdout(), "created scope table %s\n", store.Table())
				return nil
			})
		},
	}
}

func newScopeDropCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Drop the scope table and every scope row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("drop deletes every scope row; pass --force to confirm")
			}
			return a.withProvider(cmd, func(ctx context.Context, p *provider.Provider) error {
				if err := p.Scopes().DropTable(ctx); err != nil {
					return err
				}
				green.Fprintf(cmd.OutOrStdout(), "dropped scope table %s\n", p.Scopes().Table())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "confirm dropping the table")
	return cmd
}

func newScopeListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <name>",
		Short: "List the rows of a scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProvider(cmd, func(ctx context.Context, p *provider.Provider) error {
				rows, err := p.Scopes().ListScopes(ctx, args[0])
				if err != nil {
					return err
				}
				return a.printScopes(cmd, rows)
			})
		},
	}
}

func newScopeGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print one scope row by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid scope id %q: %w", args[0], err)
			}
			return a.withProvider(cmd, func(ctx context.Context, p *provider.Provider) error {
				info, err := p.Scopes().Scope(ctx, id)
				if err != nil {
					return err
				}
				return a.printScopes(cmd, []scope.Info{info})
			})
		},
	}
}

func newScopeTouchCmd(a *app) *cobra.Command {
	var (
		id       string
		local    bool
		lastSync string
	)
	cmd := &cobra.Command{
		Use:   "touch <name>",
		Short: "Upsert a scope row, stamping it with the server clock",
		Long: `Upsert a scope row. The row's timestamp is taken from the database clock
and never moves backwards. Without --id a new row is created.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info := scope.Info{Name: args[0], IsLocal: local}

			info.ID = uuid.New()
			if id != "" {
				parsed, err := uuid.Parse(id)
				if err != nil {
					return fmt.Errorf("invalid --id %q: %w", id, err)
				}
				info.ID = parsed
			}
			if lastSync != "" {
				t, err := time.Parse(time.RFC3339, lastSync)
				if err != nil {
					return fmt.Errorf("invalid --last-sync %q: %w", lastSync, err)
				}
				info.LastSync = &t
			}

			return a.withProvider(cmd, func(ctx context.Context, p *provider.Provider) error {
				stored, err := p.Scopes().Upsert(ctx, info)
				if err != nil {
					return err
				}
				return a.printScopes(cmd, []scope.Info{stored})
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "scope row id (default: a new random id)")
	cmd.Flags().BoolVar(&local, "local", false, "mark the row as the local scope")
	cmd.Flags().StringVar(&lastSync, "last-sync", "", "end of the last completed sync, RFC 3339")
	return cmd
}

func newScopeNowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "now",
		Short: "Print the server clock as a logical timestamp",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProvider(cmd, func(ctx context.Context, p *provider.Provider) error {
				ts, err := p.Scopes().CurrentServerTimestamp(ctx)
				if err != nil {
					return err
				}
				if a.jsonOut {
					return printJSON(cmd.OutOrStdout(), map[string]int64{"clock": ts})
				}
				fmt.Fprintln(cmd.OutOrStdout(), ts)
				return nil
			})
		},
	}
}

func (a *app) printScopes(cmd *cobra.Command, rows []scope.Info) error {
	out := cmd.OutOrStdout()
	if a.jsonOut {
		views := make([]snapshot.Scope, 0, len(rows))
		for _, r := range rows {
			views = append(views, snapshot.ScopeFrom(r))
		}
		return printJSON(out, views)
	}
	if len(rows) == 0 {
		yellow.Fprintln(out, "no scope rows")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTIMESTAMP\tLOCAL\tLAST SYNC")
	for _, r := range rows {
		last := "-"
		if r.LastSync != nil {
			last = r.LastSync.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%t\t%s\n", r.ID, r.Name, r.LastTimestamp, r.IsLocal, last)
	}
	return tw.Flush()
}

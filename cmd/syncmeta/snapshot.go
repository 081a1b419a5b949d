package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koustreak/syncmeta/internal/provider"
	"github.com/koustreak/syncmeta/internal/snapshot"
)

func newSnapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Archive table descriptors and scope rows in object storage",
	}
	cmd.AddCommand(
		newSnapshotSaveCmd(a),
		newSnapshotListCmd(a),
		newSnapshotDiffCmd(a),
	)
	return cmd
}

func newSnapshotSaveCmd(a *app) *cobra.Command {
	var scopeName string
	cmd := &cobra.Command{
		Use:   "save <table>...",
		Short: "Capture the given tables (and optionally a scope) and archive them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProvider(cmd, func(ctx context.Context, p *provider.Provider) error {
				archive, err := p.OpenArchive(ctx)
				if err != nil {
					return err
				}
				defer archive.Close()

				snap, err := snapshot.Capture(ctx, p, snapshot.Request{Tables: args, ScopeName: scopeName})
				if err != nil {
					return err
				}
				info, err := archive.Save(ctx, snap)
				if err != nil {
					return err
				}
				green.Fprintf(cmd.OutOrStdout(), "saved %s", info.Key)
				fmt.Fprintf(cmd.OutOrStdout(), " (%d tables, %d scope rows)\n", len(snap.Tables), len(snap.Scopes))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&scopeName, "scope", "", "also capture the rows of this scope")
	return cmd
}

func newSnapshotListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archived snapshots of the configured backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProvider(cmd, func(ctx context.Context, p *provider.Provider) error {
				archive, err := p.OpenArchive(ctx)
				if err != nil {
					return err
				}
				defer archive.Close()

				objs, err := archive.List(ctx, string(p.Driver()))
				if err != nil {
					return err
				}
				if a.jsonOut {
					return printJSON(cmd.OutOrStdout(), objs)
				}
				for _, o := range objs {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\n", o.Key, o.Size, o.LastModified.Format("2006-01-02 15:04:05"))
				}
				return nil
			})
		},
	}
}

func newSnapshotDiffCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff [table]...",
		Short: "Compare the live schema with the latest archived snapshot",
		Long: `Compare the live schema with the latest archived snapshot. Without
arguments every table of the snapshot is re-described. The command fails
when any drift is found.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProvider(cmd, func(ctx context.Context, p *provider.Provider) error {
				archive, err := p.OpenArchive(ctx)
				if err != nil {
					return err
				}
				defer archive.Close()

				old, err := archive.Latest(ctx, string(p.Driver()))
				if err != nil {
					return err
				}

				tables := args
				if len(tables) == 0 {
					for _, t := range old.Tables {
						tables = append(tables, t.Name)
					}
				}
				cur, err := captureExisting(ctx, p, tables)
				if err != nil {
					return err
				}

				changes := snapshot.Diff(old, cur)
				if a.jsonOut {
					if err := printJSON(cmd.OutOrStdout(), changes); err != nil {
						return err
					}
				} else {
					for _, c := range changes {
						yellow.Fprintln(cmd.OutOrStdout(), c.String())
					}
				}
				if len(changes) > 0 {
					return fmt.Errorf("%d schema changes since snapshot %d", len(changes), old.Clock)
				}
				if !a.jsonOut {
					green.Fprintf(cmd.OutOrStdout(), "no drift since snapshot %d\n", old.Clock)
				}
				return nil
			})
		},
	}
	return cmd
}

// captureExisting captures the tables that still exist, so that a dropped
// table shows up as removed rather than failing the capture.
func captureExisting(ctx context.Context, p *provider.Provider, tables []string) (*snapshot.Snapshot, error) {
	present := make([]string, 0, len(tables))
	for _, t := range tables {
		ok, err := p.Introspector().TableExists(ctx, t)
		if err != nil {
			return nil, err
		}
		if ok {
			present = append(present, t)
		}
	}
	return snapshot.Capture(ctx, p, snapshot.Request{Tables: present})
}

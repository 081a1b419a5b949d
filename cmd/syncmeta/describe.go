package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/koustreak/syncmeta/internal/clause"
	"github.com/koustreak/syncmeta/internal/provider"
	"github.com/koustreak/syncmeta/internal/schema"
	"github.com/koustreak/syncmeta/internal/snapshot"
)

func newDescribeCmd(a *app) *cobra.Command {
	var (
		requirePK bool
		showSQL   bool
	)

	cmd := &cobra.Command{
		Use:   "describe <table>",
		Short: "Print a table's columns, primary key and foreign keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProvider(cmd, func(ctx context.Context, p *provider.Provider) error {
				td, err := p.Introspector().Describe(ctx, args[0], schema.DescribeOptions{RequirePrimaryKey: requirePK})
				if err != nil {
					return err
				}
				if a.jsonOut {
					return printJSON(cmd.OutOrStdout(), snapshot.TableFrom(td))
				}
				printDescriptor(cmd, td)
				if showSQL {
					printClauses(cmd, td)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&requirePK, "require-pk", false, "fail when the table has no primary key")
	cmd.Flags().BoolVar(&showSQL, "clauses", false, "also print the predicate and assignment clauses for the table")
	return cmd
}

func printDescriptor(cmd *cobra.Command, td *schema.TableDescriptor) {
	out := cmd.OutOrStdout()
	green.Fprintf(out, "%s", td.Name.String())
	fmt.Fprintf(out, " (key %s)\n\n", td.Key)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tCOLUMN\tTYPE\tNULL\tFLAGS")
	for _, c := range td.Columns {
		flags := ""
		if td.IsKey(c.Name) {
			flags = "PK"
		}
		if c.ReadOnly {
			flags += " GENERATED"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\n", c.Ordinal, c.Name, typeOf(c), c.Nullable, flags)
	}
	tw.Flush()

	fmt.Fprintln(out)
	if !td.HasPrimaryKey() {
		yellow.Fprintln(out, "no primary key")
	} else {
		cyan.Fprintf(out, "primary key %s:", td.PrimaryKey[0].Constraint)
		for _, k := range td.PrimaryKey {
			fmt.Fprintf(out, " %s", k.Column)
		}
		fmt.Fprintln(out)
	}
	for _, fk := range td.ForeignKeys {
		cyan.Fprintf(out, "foreign key %s:", fk.Constraint)
		fmt.Fprintf(out, " %s -> %s.%s\n", fk.Column, fk.ReferencedTable, fk.ReferencedColumn)
	}
}

func typeOf(c schema.Column) string {
	switch {
	case c.Length > 0:
		return fmt.Sprintf("%s(%d)", c.DataType, c.Length)
	case c.Precision > 0:
		return fmt.Sprintf("%s(%d,%d)", c.DataType, c.Precision, c.Scale)
	}
	return c.DataType
}

func printClauses(cmd *cobra.Command, td *schema.TableDescriptor) {
	out := cmd.OutOrStdout()
	keys := td.KeyColumns()

	fmt.Fprintln(out)
	cyan.Fprintln(out, "join on key:")
	fmt.Fprintf(out, "  %s\n", clause.JoinPredicate(keys, "base", "side"))
	cyan.Fprintln(out, "key parameters:")
	fmt.Fprintf(out, "  %s\n", clause.ParameterEqualityPredicate(keys, "base"))
	cyan.Fprintln(out, "update assignment:")
	fmt.Fprintf(out, "  %s\n", clause.CommaSeparatedAssignment(td, ""))
}

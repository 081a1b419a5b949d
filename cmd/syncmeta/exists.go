package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koustreak/syncmeta/internal/provider"
)

func newExistsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exists <table|trigger|procedure|type|schema> <name>",
		Short: "Report whether a catalog object exists",
		Long: `Report whether a catalog object exists. The command exits 0 either way;
use --json or the printed answer to branch in scripts.`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"table", "trigger", "procedure", "type", "schema"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, name := args[0], args[1]
			return a.withProvider(cmd, func(ctx context.Context, p *provider.Provider) error {
				probe, err := existenceProbe(p, kind)
				if err != nil {
					return err
				}
				ok, err := probe(ctx, name)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if a.jsonOut {
					return printJSON(out, map[string]any{"kind": kind, "name": name, "exists": ok})
				}
				if ok {
					green.Fprintf(out, "%s %s exists\n", kind, name)
				} else {
					red.Fprintf(out, "%s %s does not exist\n", kind, name)
				}
				return nil
			})
		},
	}
	return cmd
}

func existenceProbe(p *provider.Provider, kind string) (func(context.Context, string) (bool, error), error) {
	in := p.Introspector()
	switch kind {
	case "table":
		return in.TableExists, nil
	case "trigger":
		return in.TriggerExists, nil
	case "procedure":
		return in.ProcedureExists, nil
	case "type":
		return in.TypeExists, nil
	case "schema":
		return in.SchemaExists, nil
	}
	return nil, fmt.Errorf("unknown object kind %q (want table, trigger, procedure, type or schema)", kind)
}

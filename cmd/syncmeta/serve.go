package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/koustreak/syncmeta/internal/httpapi"
	"github.com/koustreak/syncmeta/internal/provider"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only metadata API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			p, err := provider.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer p.Close()

			srv := httpapi.New(p, httpapi.WithLogger(p.Logger()))
			return srv.ListenAndServe(ctx, cfg.HTTP.Addr, cfg.HTTP.ReadTimeout)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}

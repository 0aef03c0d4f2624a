package commands

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/metalake-labs/mdlh/internal/lineage"
	"github.com/metalake-labs/mdlh/internal/refresh"
	"github.com/metalake-labs/mdlh/internal/server"
	"github.com/metalake-labs/mdlh/internal/views"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	NoRefresh bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the metadata API",
		Long: `Start the HTTP API over the snapshot store. When a source is configured
and refresh.interval is positive, a background ticker runs periodic
refresh cycles; a failed cycle keeps the previous snapshot serving.`,
		Example: `  # Serve on the configured address
  mdlh serve

  # Serve without the background refresh ticker
  mdlh serve --no-refresh`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var runner *refresh.Runner
			interval := cc.Cfg.Refresh.Interval
			if opts.NoRefresh {
				interval = 0
			}
			if source, err := cc.connectSource(ctx); err != nil {
				// The API can still serve the existing snapshot
				cc.Logger.Warn("source unavailable, refresh disabled", "error", err)
			} else {
				defer func() { _ = source.Close() }()
				runner = cc.newRunner(source)
			}

			srv := server.NewServer(server.Config{
				Store:           cc.Store,
				Lineage:         lineage.NewService(cc.Store, cc.Logger),
				Views:           views.NewService(cc.Store, cc.Logger),
				Runner:          runner,
				Host:            cc.Cfg.Server.Host,
				Port:            cc.Cfg.Server.Port,
				RefreshInterval: interval,
				MaxDepth:        cc.Cfg.Refresh.MaxDepth,
				Logger:          cc.Logger,
			})

			err = srv.Serve(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&opts.NoRefresh, "no-refresh", false, "Disable the periodic refresh ticker")

	return cmd
}

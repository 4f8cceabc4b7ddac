package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dailypost/backend/internal/api"
	"github.com/dailypost/backend/internal/search"
)

func newServeCommand(opts *options) *cobra.Command {
	var (
		addr  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the feed, search and novelty checks over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = opts.cfg.Server.Addr
			}
			if !cmd.Flags().Changed("watch") {
				watch = opts.cfg.Server.WatchFeed
			}

			gen, err := opts.newGenerator()
			if err != nil {
				return err
			}
			defer gen.Storage.Close()

			server := api.NewServer(gen, search.NewVectorStore(), opts.log)
			if err := server.Reindex(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if watch {
				go func() {
					if err := server.WatchFeed(ctx, time.Second); err != nil {
						opts.log.WithError(err).Error("Feed watcher stopped")
					}
				}()
			}

			return server.Start(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr)")
	cmd.Flags().BoolVar(&watch, "watch", false, "rebuild the search index when the feed file changes")

	return cmd
}

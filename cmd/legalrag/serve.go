package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aqua777/go-legalrag/server"
	"github.com/aqua777/go-legalrag/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Starts the HTTP API. When the watcher is enabled in configuration, new
documents dropped into the watch directory are ingested automatically.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(a.pipeline,
		server.WithLogger(a.logger),
		server.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		server.WithFileDir(a.blobStore.Dir()),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(ctx, cfg.Addr())
	})
	if cfg.Watch.Enabled {
		g.Go(func() error {
			w, err := watcher.NewWatcher(a.pipeline, cfg.Watch.Dir,
				watcher.WithLogger(a.logger))
			if err != nil {
				return err
			}
			return w.Run(ctx)
		})
	}
	return g.Wait()
}

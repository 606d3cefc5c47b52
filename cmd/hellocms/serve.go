package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/hellocms/internal/app"
	"github.com/dropDatabas3/hellocms/internal/config"
	httpserver "github.com/dropDatabas3/hellocms/internal/http"
	"github.com/dropDatabas3/hellocms/internal/observability/logger"
)

func newServeCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, g.cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.Named("serve")

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("close failed", logger.Err(err))
		}
	}()

	srv := httpserver.NewServer(httpserver.ServerConfig{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     config.Dur(cfg.Server.ReadTimeout),
		WriteTimeout:    config.Dur(cfg.Server.WriteTimeout),
		ShutdownTimeout: config.Dur(cfg.Server.ShutdownTimeout),
	}, a.Handler)

	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error { return srv.Run(gctx) })
	grp.Go(func() error {
		<-gctx.Done()
		log.Info("stopping", logger.String("reason", context.Cause(gctx).Error()))
		return nil
	})
	return grp.Wait()
}

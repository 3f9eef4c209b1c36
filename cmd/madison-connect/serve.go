package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/madison-studio/madison-connect/internal/adapters/driven/metrics"
	"github.com/madison-studio/madison-connect/internal/adapters/driving/http"
	"github.com/madison-studio/madison-connect/internal/config"
)

func newServeCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the state janitor",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*envFile)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log.Printf("madison-connect %s starting", version)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	m := metrics.New()
	svc, err := a.buildServices(m)
	if err != nil {
		return err
	}
	log.Printf("Configured providers: %v", svc.registry.Configured())

	httpCfg := http.DefaultConfig()
	httpCfg.Host = cfg.Host
	httpCfg.Port = cfg.Port
	httpCfg.Version = version
	httpCfg.CORSAllowedOrigins = cfg.CORSAllowedOrigins
	httpCfg.Logger = a.logger

	var redisPinger http.Pinger
	if a.redisLock != nil {
		redisPinger = a.redisLock
	}
	server := http.NewServer(httpCfg, svc.auth, svc.connections, m, a.db, redisPinger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	g.Go(func() error {
		return svc.janitor.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Println("Shutdown complete")
	return nil
}

package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/reachskumar/echomarket/config"
	"github.com/reachskumar/echomarket/internal/cache"
	"github.com/reachskumar/echomarket/internal/server"
	"github.com/reachskumar/echomarket/internal/store"
	"github.com/reachskumar/echomarket/internal/telemetry"
)

func serveCMD() *cobra.Command {
	var cfgPath string
	var addr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Address = addr
			}
			log := newLogger(cfg)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if dsn, ok := cfg.Storage.Postgres.DSN(); ok {
				if err := store.Migrate("file://migrations", dsn, "up", 0); err != nil {
					log.WithError(err).Warn("migrations failed, continuing with existing schema")
				}
			}

			st := openStore(ctx, cfg, log)
			if st != nil {
				defer st.Close()
			}
			resultCache, err := cache.New(ctx, cfg.Storage.Redis, cfg.Pipeline.ResultCacheTTL)
			if err != nil {
				log.WithError(err).Warn("redis unavailable, continuing without result cache")
			}
			if resultCache != nil {
				defer resultCache.Close()
			}

			metrics := telemetry.New(prometheus.DefaultRegisterer)
			p := buildPipeline(cfg, st, log, metrics)

			var history server.History
			if st != nil {
				history = st
			}
			srv := server.New(p, history, resultCache, cfg.Pipeline.MaxConcurrent, log)
			log.WithField("addr", cfg.Server.Address).Info("starting server")
			return srv.Start(ctx, cfg.Server.Address)
		},
	}
	serve.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	serve.Flags().StringVarP(&cfgPath, "config", "c", "", "config file path")
	return serve
}

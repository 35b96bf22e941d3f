package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/tjfontaine/replyloop/internal/auth"
	"github.com/tjfontaine/replyloop/internal/server"
	"github.com/tjfontaine/replyloop/internal/telemetry"
	"github.com/tjfontaine/replyloop/internal/workflow"
)

func newServeCmd(global *globalOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /v1/runs for triggering runs over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := newLogger(cmd.ErrOrStderr(), cfg.Log)
			if err != nil {
				return err
			}

			shutdown, err := telemetry.InitTracer(telemetry.Options{
				Enabled:     cfg.Telemetry.Enabled,
				ServiceName: cfg.Telemetry.ServiceName,
			}, logger)
			if err != nil {
				return fmt.Errorf("init tracer: %w", err)
			}
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error("failed to shutdown tracer", "error", err)
				}
			}()

			reg := prometheus.NewRegistry()
			orch, err := buildPipeline(cfg, logger, reg, workflow.LifecycleHooks{})
			if err != nil {
				return err
			}

			clients := make([]auth.Client, 0, len(cfg.Server.APIKeys))
			for _, k := range cfg.Server.APIKeys {
				clients = append(clients, auth.Client{KeyHash: k.KeyHash, Description: k.Description})
			}
			if len(clients) == 0 {
				logger.Warn("no server.api_keys configured; /v1/runs is unauthenticated")
			}

			srv := server.New(orch, server.Options{
				Port:           cfg.Server.Port,
				Logger:         logger,
				Authenticator:  auth.NewAuthenticator(clients),
				RequestTimeout: cfg.ServerTimeout(),
				Gatherer:       reg,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return srv.Start(ctx, 30*time.Second)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides server.port)")
	return cmd
}

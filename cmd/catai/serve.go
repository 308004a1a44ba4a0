package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/s0ngyang/catai/internal/config"
	handler "github.com/s0ngyang/catai/internal/transport/http"
)

func buildServeCmd(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway server",
		Long: `Start the gateway server.

The gateway exposes the thread, message and run API of the configured backend
(mock or openai), plus POST /get_cats, POST /chat, /health and /metrics.
Graceful shutdown is handled on SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.HTTPPort = port
			}
			if cfg.Backend == config.BackendGateway {
				return fmt.Errorf("the gateway cannot use the gateway backend; pick mock or openai")
			}

			rt, err := newRuntime(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer rt.close()

			h := handler.NewHandler(rt.client, rt.cats, cfg.MaxImages, rt.newSession, logger)
			server := handler.NewServer(h, rt.metrics)

			errCh := make(chan error, 1)
			go func() {
				addr := fmt.Sprintf(":%d", cfg.HTTPPort)
				if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()
			logger.Info("gateway started", "port", cfg.HTTPPort, "backend", cfg.Backend)

			select {
			case err := <-errCh:
				return fmt.Errorf("failed to start gateway: %w", err)
			case <-cmd.Context().Done():
			}

			logger.Info("shutting down gateway")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Warn("failed to shutdown gateway gracefully", "error", err)
			}
			logger.Info("gateway stopped")
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (overrides HTTP_PORT)")
	return cmd
}

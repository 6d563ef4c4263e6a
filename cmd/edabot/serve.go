package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fwojciec/edabot/fiber"
	edahttp "github.com/fwojciec/edabot/http"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the question-answering API over HTTP",
		Long: `Serve the question-answering API over HTTP.

Routes:
  GET  /health       liveness probe
  GET  /v1/settings  introduction message and model dependency
  POST /v1/query     {"conversation": [...]} in, answer envelope out`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				a.cfg.Server.ListenAddr = listen
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Address to listen on (overrides server.listen_addr)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	defer func() { _ = a.logger.Sync() }()

	provider, err := resolveProvider(ctx, a.cfg.LLM, a.keys)
	if err != nil {
		return err
	}
	loader := edahttp.NewLoader(
		edahttp.WithMaxBytes(a.cfg.Dataset.MaxBytes),
		edahttp.WithLogger(a.logger),
	)
	srv := fiber.New(fiber.Config{ListenAddr: a.cfg.Server.ListenAddr}, a.pipeline(provider, loader), a.logger)

	errc := make(chan error, 1)
	go func() { errc <- srv.Run() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("shutdown failed", zap.Error(err))
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"labelforge/internal/lineage/handler"
	"labelforge/internal/platform/httpserver"
	"labelforge/internal/platform/metrics"
)

func serveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the lineage admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&a.cfg.Server.Addr, "addr", a.cfg.Server.Addr, "listen address")
	cmd.Flags().StringVar(&a.cfg.Server.AdminToken, "admin-token", a.cfg.Server.AdminToken, "token required in X-Admin-Token")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	if a.cfg.Server.AdminToken == "" {
		a.logger.WarnContext(ctx, "no admin token configured; lineage endpoints will reject every request")
	}

	svc, closeLineage, err := a.openLineage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeLineage(); err != nil {
			a.logger.WarnContext(ctx, "lineage shutdown incomplete", "error", err)
		}
	}()

	router := handler.NewRouter(
		handler.New(svc, a.logger),
		a.cfg.Server.AdminToken,
		metrics.Handler(a.registry),
		a.logger,
	)
	srv := httpserver.New(a.cfg.Server.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		a.logger.InfoContext(ctx, "admin API listening", "addr", a.cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	a.logger.Info("admin API stopped")
	return nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradejournal/api"
	"github.com/rustyeddy/tradejournal/settings"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the journal and the rule engine over HTTP",
	Long: `Serve starts an HTTP server exposing the journal and the rule engine.

Endpoints:
  GET    /health
  GET    /api/v1/trades?from=&to=
  POST   /api/v1/trades
  GET    /api/v1/trades/:id
  DELETE /api/v1/trades/:id
  POST   /api/v1/evaluate
  POST   /api/v1/evolution
  GET    /api/v1/evolution

The settings document is re-read on every request.`,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.http_addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := cfg.Server.HTTPAddr
	if serveAddr != "" {
		addr = serveAddr
	}

	j, err := openStore()
	if err != nil {
		return err
	}
	defer j.Close()

	eng, release, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer release()

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Deps{
		Store:  j,
		Engine: eng,
		Settings: func(context.Context) (settings.Settings, error) {
			return loadSettings()
		},
		Logger: log,
	})

	srv := &http.Server{Addr: addr, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", addr), zap.String("db", cfg.Journal.DBPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

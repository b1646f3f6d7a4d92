package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bankclean/bankclean/internal/api"
	"github.com/bankclean/bankclean/internal/ws"
)

var (
	servePort    int
	serveDevMode bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serve the pipeline over HTTP: start runs, read the last report and the
schema, and follow progress over a websocket at /api/ws.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		logger := eng.Logger

		hub := ws.NewHub(logger)
		go hub.Run()
		defer hub.Stop()

		srv := api.New(eng, logger, servePort,
			api.WithHub(hub),
			api.WithDevMode(serveDevMode),
		)

		// Graceful shutdown on signals
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		fmt.Fprintf(os.Stderr, "bankclean API: http://localhost:%d/api/health\n", servePort)

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case <-ctx.Done():
			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8230, "port for the API server")
	serveCmd.Flags().BoolVar(&serveDevMode, "dev", false, "enable CORS and cross-origin websockets for development")
	rootCmd.AddCommand(serveCmd)
}

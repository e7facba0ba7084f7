package cli

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

	"github.com/prasadk/complyscan/internal/api"
	"github.com/prasadk/complyscan/internal/pipeline"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the compliance HTTP API",
	Long: `Serve exposes validation over HTTP:
  POST /api/v1/documents/{id}/validate?framework=<name>
  GET  /api/v1/documents/{id}/results
  GET  /api/v1/documents
  GET  /api/v1/runs/{id}
  GET  /api/v1/frameworks
  GET  /api/v1/search?document_id=&q=&k=
  GET  /healthz
  GET  /metrics

Example:
  complyscan serve
  complyscan serve --addr :9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.API.Addr = serveAddr
	}

	logger := newLogger()
	p, err := pipeline.New(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	server := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           api.NewServer(p, p.Store(), p.Rules(), logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "Listening on %s\n", cfg.API.Addr)
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		fmt.Fprintf(os.Stderr, "Received %s, shutting down\n", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

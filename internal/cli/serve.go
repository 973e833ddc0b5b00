package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kilupskalvis/kbsync/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP ingestion and query API",
	Long: `Serve the knowledge base over HTTP: document ingestion, sync
triggering, filtered entry queries, and similarity search.`,
	Run: runServe,
}

var (
	serveListen    string
	serveLogFormat string
)

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "0.0.0.0:8099", "listen address")
	serveCmd.Flags().StringVar(&serveLogFormat, "log-format", "json", "log format (json, text)")
}

func runServe(cmd *cobra.Command, args []string) {
	c := initFullContext()
	defer c.Close()

	// The server logs structured; the CLI logger is for command output.
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if serveLogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	c.Logger = logger

	engine := c.buildEngine()

	cfg := server.DefaultConfig()
	cfg.UploadsDir = c.Config.Source.UploadsDir
	cfg.ChunkClass = c.Config.ChunkClass

	httpHandler, cleanup := server.New(c.Store, c.Client, c.Embed, engine, cfg, logger).Handler()
	defer cleanup()

	srv := &http.Server{
		Addr:              serveListen,
		Handler:           httpHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", serveListen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			exitError("server failed: %v", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pavelbre/copycheck/internal/ai"
	"github.com/pavelbre/copycheck/internal/config"
	"github.com/pavelbre/copycheck/internal/pipeline"
	"github.com/pavelbre/copycheck/internal/web"
	"github.com/pavelbre/copycheck/internal/web/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the copycheck web server.
The server exposes an HTTP API for submitting images, polling check
jobs, and streaming progress events.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (0 = use config)")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")
	if port == 0 {
		port = cfg.Web.Port
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	factory := func(ctx context.Context, provider string) (*pipeline.Runner, ai.Analyzer, error) {
		analyzer, err := newAnalyzer(ctx, cfg, provider)
		if err != nil {
			return nil, nil, err
		}
		runner, err := newRunner(cfg, analyzer, logger)
		if err != nil {
			return nil, nil, err
		}
		return runner, analyzer, nil
	}

	server := web.NewServer(cfg, port, host, handlers.RunnerFactory(factory))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting copycheck API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}

package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"course-ledger-service/internal/config"
	"course-ledger-service/internal/scheduler"
	transport "course-ledger-service/internal/transport/http"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the ledger API and the periodic sweep worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	if ctx == nil {
		ctx = context.Background()
	}
	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()

	rt, err := buildRuntime(workerCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	sweeperDone := startSweeper(workerCtx, rt.ledger, cfg.Sweep.Interval, logger)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewAPI(rt.ledger, rt.hub, logger),
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting course ledger service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server...")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server...")
	}

	stopWorker()
	if sweeperDone != nil {
		<-sweeperDone
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// startSweeper launches scheduled sweeps. An empty, invalid or non-positive interval disables
// them and returns a nil channel.
func startSweeper(ctx context.Context, ledger scheduler.CourseSweeper, rawInterval string, logger *slog.Logger) <-chan struct{} {
	interval := config.TTLDuration(rawInterval, 0)
	if interval <= 0 {
		logger.Info("scheduled sweeps disabled", "interval", rawInterval)
		return nil
	}
	return scheduler.NewSweeper(ledger, interval, logger).Start(ctx)
}

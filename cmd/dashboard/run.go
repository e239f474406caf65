package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"trade-dashboard/src/grpc_control"
	"trade-dashboard/src/live"
	"trade-dashboard/src/logger"
	"trade-dashboard/src/metrics"
	"trade-dashboard/src/pipeline"
	"trade-dashboard/src/server"
	"trade-dashboard/src/storage"
	"trade-dashboard/src/utils"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the dashboard server",
	Long: `Run the synchronization pipeline and serve the dashboard.

Example:
  dashboard run --config dashboard.yaml
  dashboard run --poll-only
  dashboard run --push-url ws://127.0.0.1:8765`,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// -----------------------------------------------------------------------------

func runDashboard(cmd *cobra.Command, args []string) error {
	// 1. Load config
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg := conf.MConfig

	// 2. Setup Logger
	appLogger := logger.NewLogger(cfg, cfg.Name)
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Setup Components
	clock := utils.RealClock()
	m := metrics.NewMetrics()
	source := setupSource(cfg, setupNetwork(cfg), clock)

	db, err := storage.NewDatabase(cfg, logger.NewLogger(cfg, "Storage"))
	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
	}

	srv := server.NewDashboardServer(cfg, db, m, logger.NewLogger(cfg, "DashboardServer"))
	sinks := server.MultiRenderer{srv}

	g, gctx := errgroup.WithContext(ctx)

	// 4. Optional sinks
	if db != nil {
		defer db.Close()
		recorder := storage.NewRecorder(db, clock, logger.NewLogger(cfg, "Recorder"))
		sinks = append(sinks, recorder)
		g.Go(func() error {
			recorder.Run(gctx)
			return nil
		})
	}

	if cfg.Redis.URL != "" {
		publisher, err := storage.NewRedisPublisher(cfg, logger.NewLogger(cfg, "RedisPublisher"))
		if err != nil {
			appLogger.Warning("Redis fan-out disabled: %v", err)
		} else {
			sinks = append(sinks, publisher)
			g.Go(func() error {
				publisher.Run(gctx)
				return nil
			})
		}
	}

	if cfg.GrpcPort > 0 {
		reporter := grpc_control.NewHealthReporter(logger.NewLogger(cfg, "HealthReporter"))
		sinks = append(sinks, reporter)
		g.Go(func() error { return reporter.Start(cfg.GrpcPort) })
		g.Go(func() error {
			<-gctx.Done()
			reporter.Stop()
			return nil
		})
	}

	// 5. Pipeline
	pipe := pipeline.New(cfg, source, live.NewWebsocketTransport(), sinks, clock, m, logger.NewLogger(cfg, "Pipeline"))
	srv.SetController(pipe)

	// 6. Start Servers
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	// 7. Run Main Loop (Blocking)
	g.Go(func() error { return pipe.Run(gctx) })

	if err := g.Wait(); err != nil {
		appLogger.Error("Dashboard stopped with error: %v", err)
		return err
	}
	appLogger.Info("Shutdown complete.")
	return nil
}

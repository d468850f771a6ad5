package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/controller"
	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/ingest"
	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/server"
	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/service"
	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/weather"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := openStore()
		if err != nil {
			return err
		}
		defer env.Close()

		clock := clockwork.NewRealClock()
		pipeline := env.pipeline()

		authService := service.NewAuthService(env.Users, clock, cfg.Auth.SessionTTL)
		analyticsService := service.NewAnalyticsService(env.Records, clock, cfg.Analysis.ClusterLookbackDays, cfg.Analysis.ClusterSeed)
		exportService := service.NewExportService(env.Records, clock)

		wxClient := weather.NewClient(cfg.Weather.BaseURL, cfg.Weather.Latitude, cfg.Weather.Longitude, cfg.Weather.Timeout, logger)
		wxCache := weather.NewCache(wxClient, clock, cfg.Weather.Timeout, logger)

		scheduler := cron.New()
		if cfg.Weather.Refresh != "" {
			if _, err := wxCache.Schedule(scheduler, cfg.Weather.Refresh); err != nil {
				return eris.Wrapf(err, "schedule weather refresh %q", cfg.Weather.Refresh)
			}
		}
		if err := scheduleIngestion(ctx, scheduler, pipeline); err != nil {
			return err
		}
		scheduler.Start()
		defer func() { <-scheduler.Stop().Done() }()

		go func() {
			refreshCtx, cancel := context.WithTimeout(ctx, cfg.Weather.Timeout)
			defer cancel()
			if err := wxCache.Refresh(refreshCtx); err != nil {
				logger.Warn("initial weather refresh failed", "error", err)
			}
		}()

		router := server.NewRouter(server.Handlers{
			Analytics:     controller.NewAnalyticsController(analyticsService, exportService, logger),
			Data:          controller.NewDataController(env.Records, clock, logger),
			Ingest:        controller.NewIngestController(pipeline, env.Runs, cfg.Ingest.UploadDir, cfg.Ingest.MaxUploadMB<<20, logger),
			Auth:          controller.NewAuthController(authService, logger),
			Locations:     controller.NewLocationController(env.Locations, logger),
			Weather:       controller.NewWeatherController(wxCache, logger),
			Authenticator: authService,
			Metrics:       env.Metrics,
			Ready:         server.StoreChecker{DB: env.DB},
		}, logger)

		addr := serveAddr
		if addr == "" {
			addr = cfg.Server.Addr
		}
		srv := server.NewServer(addr, router, logger)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		case <-ctx.Done():
		}

		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return eris.Wrap(err, "server shutdown")
		}
		return nil
	},
}

// scheduleIngestion re-runs ingestion over the configured root on the configured schedule
func scheduleIngestion(ctx context.Context, scheduler *cron.Cron, pipeline *ingest.Pipeline) error {
	if cfg.Ingest.Schedule == "" {
		return nil
	}
	if cfg.Ingest.Root == "" {
		return eris.New("ingest.schedule requires ingest.root")
	}

	_, err := scheduler.AddFunc(cfg.Ingest.Schedule, func() {
		_, err := pipeline.Run(ctx, cfg.Ingest.Root)
		if errors.Is(err, ingest.ErrIngestionInProgress) {
			logger.Info("scheduled ingestion skipped, previous run still active")
			return
		}
		if err != nil {
			logger.Error("scheduled ingestion failed", "root", cfg.Ingest.Root, "error", err)
		}
	})
	if err != nil {
		return eris.Wrapf(err, "schedule ingestion %q", cfg.Ingest.Schedule)
	}
	logger.Info("ingestion scheduled", "root", cfg.Ingest.Root, "schedule", cfg.Ingest.Schedule)
	return nil
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

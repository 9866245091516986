package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maxpert/modjournal/admin"
	"github.com/maxpert/modjournal/cfg"
	"github.com/maxpert/modjournal/coordinator"
	"github.com/maxpert/modjournal/telemetry"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	flag.Parse()

	// Load configuration
	err := cfg.Load(*cfg.ConfigPathFlag)
	if err != nil {
		panic(err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}

	// Setup logging
	var writer io.Writer = zerolog.NewConsoleWriter()
	if cfg.Config.Logging.Format == "json" {
		writer = os.Stdout
	}
	gLog := zerolog.New(writer).
		With().
		Timestamp().
		Str("instance", cfg.Config.InstanceName).
		Logger()

	if cfg.Config.Logging.Verbose {
		log.Logger = gLog.Level(zerolog.DebugLevel)
	} else {
		log.Logger = gLog.Level(zerolog.InfoLevel)
	}

	log.Info().Msg("modjournal - folder change journal")
	log.Debug().Msg("Initializing telemetry")
	telemetry.InitializeTelemetry()
	telemetry.InitMetrics()

	coord, err := coordinator.NewFromConfig(cfg.Config)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize journal coordinator")
		return
	}
	defer coord.Close()

	if cfg.Config.Prometheus.Enabled {
		collector := telemetry.NewMetricsCollector(
			coord.Registry(),
			time.Duration(cfg.Config.Prometheus.CollectIntervalSeconds)*time.Second,
		)
		collector.Start()
		defer collector.Stop()
	}

	var srv *http.Server
	if cfg.Config.Admin.Enabled {
		srv = startAdminServer(coord)
	}

	log.Info().
		Int("folders", coord.Registry().Len()).
		Bool("admin", cfg.Config.Admin.Enabled).
		Msg("modjournal started successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("Shutting down")
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Admin server shutdown failed")
		}
	}
}

func startAdminServer(coord *coordinator.Coordinator) *http.Server {
	mux := http.NewServeMux()
	admin.RegisterRoutes(mux, admin.NewAdminHandlers(coord))
	if h := telemetry.GetMetricsHandler(); h != nil {
		mux.Handle("/metrics", h)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Config.Admin.BindAddress, cfg.Config.Admin.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Str("address", addr).Msg("Admin server failed")
		}
	}()

	log.Info().Str("address", addr).Msg("Admin server listening")
	return srv
}

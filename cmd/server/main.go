package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	callRouters "github.com/vocalbridge/vocalbridge/api/routers"
	"github.com/vocalbridge/vocalbridge/config"
	internal_bridge "github.com/vocalbridge/vocalbridge/internal/bridge"
	internal_metrics "github.com/vocalbridge/vocalbridge/internal/metrics"
	internal_realtime "github.com/vocalbridge/vocalbridge/internal/realtime"
	internal_recorder "github.com/vocalbridge/vocalbridge/internal/recorder"
	"github.com/vocalbridge/vocalbridge/pkg/commons"
)

const shutdownTimeout = 10 * time.Second

func main() {
	vConfig, err := config.InitConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize configuration: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.GetApplicationConfig(vConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := commons.NewApplicationLogger(
		commons.Name(cfg.Name),
		commons.Path(cfg.LogPath),
		commons.Level(cfg.LogLevel),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Infow("service starting",
		"service", cfg.Name,
		"version", cfg.Version,
		"port", cfg.Port,
		"recording_enabled", cfg.RecordingEnabled,
		"converter_engine", cfg.ConverterEngine)

	if cfg.RecordingEnabled {
		if err := os.MkdirAll(cfg.RecordingDir, 0o755); err != nil {
			logger.Errorf("failed to create recording directory %s: %v", cfg.RecordingDir, err)
			os.Exit(1)
		}
	}

	metrics := internal_metrics.NewMetrics(prometheus.DefaultRegisterer)

	var converter internal_recorder.Converter
	switch cfg.ConverterEngine {
	case "native":
		converter = internal_recorder.NewNativeConverter(logger)
	default:
		converter = internal_recorder.NewFFmpegConverter(logger, cfg.FFmpegBinary)
	}

	bridge := internal_bridge.New(logger, internal_bridge.Config{
		Realtime: internal_realtime.Config{
			URL:    cfg.RealtimeURL,
			APIKey: cfg.OpenAIAPIKey,
		},
		Session: internal_realtime.SessionConfig{
			TurnDetection:     &internal_realtime.TurnDetection{Type: "server_vad"},
			InputAudioFormat:  "g711_ulaw",
			OutputAudioFormat: "g711_ulaw",
			Voice:             cfg.Voice,
			Instructions:      cfg.Instructions,
			Modalities:        []string{"text", "audio"},
			Temperature:       cfg.Temperature,
		},
		RecordingEnabled: cfg.RecordingEnabled,
		RecordingDir:     cfg.RecordingDir,
		Converter:        converter,
		Metrics:          metrics,
	})

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	callRouters.HealthCheckRoutes(cfg, engine, logger)
	callRouters.CallApiRoutes(cfg, engine, logger, bridge)
	callRouters.MetricsRoutes(engine)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: engine,
	}

	go func() {
		logger.Infof("listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("server stopped unexpectedly: %v", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	logger.Infow("shutdown signal received", "signal", sig.String())

	// In-flight calls get the shutdown window to wind down; the relays end
	// when their sockets close.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown incomplete: %v", err)
	}
	logger.Info("service stopped")
}

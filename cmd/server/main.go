package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fastx-gateway/internal/api"
	"fastx-gateway/internal/audit"
	"fastx-gateway/internal/config"
	"fastx-gateway/internal/monitor"
	"fastx-gateway/internal/pipeline"
	"fastx-gateway/internal/seqkit"
	"fastx-gateway/internal/storage"
)

func main() {
	// Structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	cfg := loadConfig()

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Warn().Str("level", cfg.Logging.Level).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := monitor.NewMetrics()
	auditLog := audit.NewLog(cfg.Audit.MaxRecords)

	// seqkit backend: local binary or Docker, behind a circuit breaker.
	// Startup continues without it so the library endpoints keep working.
	backend, err := seqkit.NewBackend(cfg.Seqkit)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create seqkit backend")
	}
	guarded := seqkit.NewGuarded(backend, cfg.Seqkit.Breaker, metrics, monitor.NewTracer())
	registry := seqkit.NewRegistry(monitor.NewArgInspector(), metrics)
	client := seqkit.NewClient(guarded, registry, cfg.Seqkit)

	if v, err := client.Version(ctx); err != nil {
		log.Warn().Err(err).Msg("seqkit unavailable, seqkit endpoints will return 503")
	} else {
		log.Info().Str("version", v).Str("backend", client.BackendName()).Msg("seqkit ready")
	}

	// Archive database (optional; the in-memory log works without it)
	var db *storage.DB
	var auditWriter *storage.AuditWriter
	if cfg.Database.DSN != "" {
		db, err = storage.New(ctx, cfg.Database)
		if err != nil {
			log.Warn().Err(err).Msg("database unavailable, audit archiving disabled")
		} else if err := db.EnsureSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to create audit schema, audit archiving disabled")
			db.Close()
			db = nil
		}
	}
	if db != nil {
		defer db.Close()
		auditWriter = storage.NewAuditWriter(db, cfg.Audit.BufferSize, cfg.Database, metrics)
		auditWriter.Start()
		defer auditWriter.Flush(10 * time.Second)
		auditLog.AddSink(auditWriter)
	}

	pipe := pipeline.New(auditLog, pipeline.Limits{
		MaxContentBytes: cfg.Limits.MaxContentBytes,
		Enforce:         cfg.Limits.EnforceMaxContent,
	}, metrics)

	// A nil *storage.DB must not become a non-nil interface.
	var health api.HealthChecker
	if db != nil {
		health = db
	}

	server, err := api.NewServer(cfg, pipe, client, health, metrics)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create server")
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		log.Info().Str("signal", sig.String()).Msg("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		}

		if err := client.Close(); err != nil {
			log.Error().Err(err).Msg("seqkit backend close error")
		}

		cancel()
	}()

	log.Info().
		Str("addr", cfg.Address()).
		Bool("db_enabled", db != nil).
		Str("seqkit_backend", client.BackendName()).
		Int("audit_capacity", auditLog.Capacity()).
		Msg("server starting")

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}

	log.Info().Msg("server stopped")
}

// loadConfig reads CONFIG_PATH (default configs/config.yaml), falling back
// to defaults plus environment overrides when the file does not exist.
func loadConfig() *config.Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		cfg, err := config.Load(configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", configPath).Msg("failed to load config")
		}
		return cfg
	}

	log.Info().Str("path", configPath).Msg("no config file found, using defaults")
	cfg := config.DefaultConfig()
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		log.Fatal().Err(err).Msg("invalid environment override")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	return cfg
}

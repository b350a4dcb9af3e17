package api

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"fastx-gateway/internal/config"
	"fastx-gateway/internal/monitor"
	"fastx-gateway/internal/pipeline"
	"fastx-gateway/internal/seqkit"
)

// Server is the HTTP front end of the gateway.
type Server struct {
	httpServer *http.Server
	handlers   *Handlers
	cfg        *config.Config
	cancel     context.CancelFunc
}

// NewServer creates and configures the HTTP server with all routes and
// middleware. db may be nil.
func NewServer(cfg *config.Config, pipe *pipeline.Pipeline, client *seqkit.Client, db HealthChecker, metrics *monitor.Metrics) (*Server, error) {
	handlers, err := NewHandlers(cfg, pipe, client, db, metrics)
	if err != nil {
		return nil, err
	}

	if len(cfg.Security.AllowedKeys) == 0 {
		if cfg.Security.AllowUnauthenticated {
			log.Warn().Msg("no API keys configured, allow_unauthenticated is true so all requests will be accepted")
		} else {
			log.Warn().Msg("no API keys configured and allow_unauthenticated is false, all requests will be rejected")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		handlers: handlers,
		cfg:      cfg,
		cancel:   cancel,
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      s.routes(ctx, metrics),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
	return s, nil
}

// routes builds the router. Middleware runs outermost first.
func (s *Server) routes(ctx context.Context, metrics *monitor.Metrics) http.Handler {
	h := s.handlers
	cfg := s.cfg

	r := chi.NewRouter()
	r.Use(RecoveryMiddleware)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(SecurityHeadersMiddleware)
	r.Use(CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(MaxBodyMiddleware(cfg.Server.MaxRequestBody))
	r.Use(RateLimitMiddleware(ctx, cfg.Security.RateLimitRPS, cfg.Security.RateLimitBurst))
	r.Use(MetricsMiddleware(metrics))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	// Infrastructure endpoints bypass auth.
	r.Get("/health", h.HandleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	r.Get("/openapi.yaml", h.HandleOpenAPI)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Security.AllowedKeys, cfg.Security.AllowUnauthenticated))

		r.Get("/", h.HandleRoot)

		r.Route("/convert", func(r chi.Router) {
			r.Post("/genbank-to-fasta", h.HandleGenBankToFasta)
			r.Get("/formats", h.HandleConvertFormats)
		})

		r.Route("/manipulate", func(r chi.Router) {
			r.Post("/reverse-complement", h.HandleReverseComplement)
			r.Post("/extract-subsequence", h.HandleExtractSubsequence)
			r.Get("/operations", h.HandleManipulateOperations)
		})

		r.Route("/seqkit", func(r chi.Router) {
			r.Post("/stats", h.HandleSeqkitStats)
			r.Post("/command", h.HandleSeqkitCommand)
			r.Post("/command/stream", h.HandleSeqkitCommandStream)
			r.Get("/info", h.HandleSeqkitInfo)
		})

		r.Route("/logs", func(r chi.Router) {
			r.Get("/", h.HandleGetLogs)
			r.Get("/stats", h.HandleLogStats)
			r.Delete("/clear", h.HandleClearLogs)
			r.Get("/operations", h.HandleLogOperations)
			r.Get("/info", h.HandleLogInfo)
		})

		r.Route("/mcp", func(r chi.Router) {
			r.Get("/tools", h.HandleMCPTools)
			r.Get("/manifest", h.HandleMCPManifest)
			r.Get("/status", h.HandleMCPStatus)
			r.Get("/info", h.HandleMCPInfo)
		})
	})

	return r
}

// Handler exposes the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for requests. Uses TLS if configured.
func (s *Server) Start() error {
	if s.cfg.TLS.Enabled {
		log.Info().
			Str("addr", s.httpServer.Addr).
			Str("cert", s.cfg.TLS.CertFile).
			Msg("starting HTTPS server with TLS")

		s.httpServer.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
		return s.httpServer.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
	}

	log.Warn().Msg("TLS not enabled, running plain HTTP")
	log.Info().
		Str("addr", s.httpServer.Addr).
		Msg("starting HTTP server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down HTTP server")
	defer s.cancel()
	return s.httpServer.Shutdown(ctx)
}

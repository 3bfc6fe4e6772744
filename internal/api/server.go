package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/raaihank/anonimizador/internal/blob"
	"github.com/raaihank/anonimizador/internal/config"
	"github.com/raaihank/anonimizador/internal/logger"
	"github.com/raaihank/anonimizador/internal/privacy"
	"github.com/raaihank/anonimizador/internal/security"
	"github.com/raaihank/anonimizador/internal/web"
	"github.com/raaihank/anonimizador/internal/websocket"
	"github.com/raaihank/anonimizador/internal/workflow"
)

// DownloadPrefix is the route prefix of one-shot document downloads
const DownloadPrefix = "/api/download/"

// BuildInfo identifies the running binary
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Server is the HTTP front end of the anonymizer
type Server struct {
	config    *config.Config
	logger    *logger.Logger
	build     BuildInfo
	redactor  *privacy.Redactor
	messages  workflow.Messages
	store     blob.Store
	limiter   *security.RateLimiter
	validate  *validator.Validate
	wsHub     *websocket.Hub
	router    *mux.Router
	server    *http.Server
	startedAt time.Time

	ctx      context.Context
	stop     context.CancelFunc
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a server that parks downloads in store
func New(cfg *config.Config, log *logger.Logger, store blob.Store, build BuildInfo) (*Server, error) {
	messages, err := workflow.MessagesFor(cfg.Workflow.Language)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:    cfg,
		logger:    log.WithComponent("api"),
		build:     build,
		redactor:  privacy.NewRedactor(),
		messages:  messages,
		store:     store,
		limiter:   security.NewRateLimiter(&cfg.Security),
		validate:  validator.New(),
		router:    mux.NewRouter(),
		startedAt: time.Now(),
		stopCh:    make(chan struct{}),
	}
	s.ctx, s.stop = context.WithCancel(context.Background())

	if cfg.WebSocket.Enabled {
		s.wsHub = websocket.NewHub(&websocket.HubConfig{
			BroadcastStatus:      cfg.WebSocket.Events.BroadcastStatus,
			BroadcastRedactions:  cfg.WebSocket.Events.BroadcastRedactions,
			BroadcastConnections: cfg.WebSocket.Events.BroadcastConnections,
			MaxConnections:       cfg.WebSocket.MaxConnections,
			Username:             cfg.WebSocket.Username,
			Password:             cfg.WebSocket.Password,
			AllowedOrigins:       cfg.WebSocket.AllowedOrigins,
		}, log.Logger)
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/info", s.handleInfo).Methods(http.MethodGet)

	s.router.HandleFunc("/", web.ServeDashboard).Methods(http.MethodGet, http.MethodHead)
	s.router.HandleFunc("/dashboard", web.ServeDashboard).Methods(http.MethodGet, http.MethodHead)

	if s.wsHub != nil {
		s.router.HandleFunc(s.config.WebSocket.Path, s.wsHub.HandleWebSocket).Methods(http.MethodGet)
	}
	if s.config.Metrics.Enabled {
		s.router.Handle(s.config.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
	}

	apiRouter := s.router.PathPrefix("/api").Subrouter()
	apiRouter.Use(s.rateLimitMiddleware)
	apiRouter.HandleFunc("/process", s.handleProcess).Methods(http.MethodPost)
	apiRouter.HandleFunc("/redact", s.handleRedact).Methods(http.MethodPost)
	apiRouter.HandleFunc("/download/{token}", s.handleDownload).Methods(http.MethodGet)
	apiRouter.HandleFunc("/download/{token}", s.handleRevoke).Methods(http.MethodDelete)
}

// Handler returns the routed handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs background workers and serves HTTP until Stop is called
func (s *Server) Start() error {
	s.logger.Info("Starting anonimizador server",
		zap.Int("port", s.config.Server.Port),
		zap.String("version", s.build.Version),
		zap.String("language", s.config.Workflow.Language),
		zap.String("blob_backend", s.config.Blob.Backend),
		zap.Bool("websocket", s.wsHub != nil),
	)

	if s.wsHub != nil {
		go s.wsHub.Run(s.ctx)
	}
	if s.config.Security.RateLimit.Enabled {
		s.limiter.StartCleanupRoutine(10*time.Minute, s.stopCh)
	}

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server and the background workers. Calls
// after the first are no-ops.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping anonimizador server")

		err = s.server.Shutdown(ctx)
		s.stop()
		close(s.stopCh)
	})
	return err
}

// GetWebSocketHub returns the WebSocket hub, nil when disabled
func (s *Server) GetWebSocketHub() *websocket.Hub {
	return s.wsHub
}

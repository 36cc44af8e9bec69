package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mikey/mail-threat-analyzer/internal/core"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Service is the part of the analysis pipeline the API exposes
type Service interface {
	Analyze(ctx context.Context, upload core.Upload) (*core.AnalysisRecord, error)
	Get(ctx context.Context, id int64) (*core.AnalysisRecord, error)
	Recent(ctx context.Context, limit int) ([]*core.AnalysisRecord, error)
	Stats(ctx context.Context) (*core.AnalysisStats, error)
}

// Options configures the HTTP API
type Options struct {
	Env               string
	ListenAddress     string
	MaxUploadBytes    int64
	AllowedExtensions []string
	AllowedOrigins    []string
}

// Server is the upload and query API
type Server struct {
	service Service
	opts    Options
	logger  *zap.Logger
	router  *gin.Engine

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
}

// NewServer creates and configures the gin engine
func NewServer(service Service, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 * 1024 * 1024
	}
	if len(opts.AllowedExtensions) == 0 {
		opts.AllowedExtensions = []string{".eml", ".msg", ".txt"}
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	if opts.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		service: service,
		opts:    opts,
		logger:  logger,
	}

	router := gin.New()
	router.Use(cors.New(cors.Config{
		AllowOrigins:  opts.AllowedOrigins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", requestIDHeader},
	}))
	router.Use(gin.Recovery(), RequestID(), Logging(logger), PrometheusMetrics())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.GET("/stats", s.stats)
	api.GET("/analyses/recent", s.recent)
	api.POST("/analyze", s.analyze)
	api.GET("/analyses/:id", s.get)
	api.GET("/analyses/:id/export", s.export)

	s.router = router
	return s
}

// Handler returns the routed engine
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts serving in the background
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.ListenAddress, err)
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.srv = srv
	s.listener = l
	s.mu.Unlock()

	s.logger.Info("HTTP API starting", zap.String("address", l.Addr().String()))

	go func() {
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop drains in-flight requests
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// Addr returns the bound address once started
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

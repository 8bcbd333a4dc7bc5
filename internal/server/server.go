package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"finsight/internal/logger"
	"finsight/internal/query"
)

// QueryService answers one planned query and returns the full audit trail.
type QueryService interface {
	Answer(ctx context.Context, q string, plan []query.ToolCall) *query.AuditTrail
}

// CacheAdmin exposes the manual cache controls the API surfaces.
type CacheAdmin interface {
	EvictCapability(ctx context.Context, capability string) (int64, error)
}

// Server is the query HTTP front end.
type Server struct {
	addr   string
	router *gin.Engine
}

type Config struct {
	Addr    string
	Service QueryService
	Cache   CacheAdmin
	Stats   StatsSource
}

func New(cfg Config) (*Server, error) {
	if cfg.Service == nil {
		return nil, errors.New("query http server requires a query service")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9980"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	registerAPIRoutes(router.Group("/api"), cfg.Service, cfg.Cache, cfg.Stats)

	return &Server{addr: cfg.Addr, router: router}, nil
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s",
			method, path, c.Writer.Status(), c.ClientIP(), time.Since(start))
	}
}

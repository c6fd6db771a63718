// Package api exposes the translation layer over HTTP: canonical completions
// (JSON or SSE), translation debugging endpoints and token estimates.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sashabogi/agent-router/internal/config"
	log "github.com/sashabogi/agent-router/internal/logging"
	"github.com/sashabogi/agent-router/internal/runtime/executor"
)

const (
	maxRequestBody  = 32 << 20
	shutdownTimeout = 10 * time.Second
)

// Server is the gin gateway in front of an executor pool.
type Server struct {
	engine *gin.Engine
	server *http.Server
	pool   *executor.Pool
}

// NewServer builds the router. cfg supplies the listen address.
func NewServer(cfg *config.Config, pool *executor.Pool, extra ...gin.HandlerFunc) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{
		engine: gin.New(),
		pool:   pool,
	}
	s.setupMiddleware(extra)
	s.setupRoutes()
	s.server = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", s.healthz)

	v1 := s.engine.Group("/v1")
	v1.POST("/complete", s.complete)
	v1.POST("/count_tokens", s.countTokens)

	tr := v1.Group("/translate")
	tr.POST("/tools/:from/:to", s.translateTools)
	tr.POST("/request/:format", s.translateRequest)
	tr.POST("/response/:format", s.translateResponse)
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// UpdateConfig rebuilds provider clients from cfg. The listen address is
// not changed.
func (s *Server) UpdateConfig(cfg *config.Config) {
	if err := s.pool.Update(cfg); err != nil {
		log.WithError(err).Warn("provider update rejected, keeping previous providers")
		return
	}
	log.SetDebug(cfg.Debug)
	log.Infof("providers updated: %v", s.pool.Names())
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Infof("agent-router listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info("shutting down server")
	return s.server.Shutdown(shutdownCtx)
}

// Package api serves session operations over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/petasbytes/theraia/internal/config"
	"github.com/petasbytes/theraia/internal/log"
	"github.com/petasbytes/theraia/internal/session"
)

// Server owns the router and the HTTP listener.
type Server struct {
	cfg     *config.Config
	manager *session.Manager
	router  *gin.Engine
	http    *http.Server
}

// NewServer builds the router for manager.
func NewServer(cfg *config.Config, manager *session.Manager) *Server {
	s := &Server{cfg: cfg, manager: manager}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	if !s.cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(log.GinLogger())
	s.router.Use(gzip.Gzip(gzip.DefaultCompression))
	_ = s.router.SetTrustedProxies(nil)

	SetupRoutes(s.router, NewHandlers(s.manager))
	s.router.NoRoute(func(c *gin.Context) {
		RespondNotFound(c, "No such endpoint.")
	})
}

// Router returns the configured engine.
func (s *Server) Router() *gin.Engine { return s.router }

// Start listens on the configured address and blocks.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:     s.cfg.Addr(),
		Handler:  s.router,
		ErrorLog: log.StdErrorLogger(),
	}
	log.Info().Str("addr", s.http.Addr).Str("env", s.cfg.Env).Msg("HTTP server starting")
	return s.http.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down server")
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

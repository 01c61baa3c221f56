package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pathwaylab/pathway-core/internal/config"
)

// Server wraps a gin.Engine and its underlying http.Server for graceful
// shutdown, mirroring the teacher's internal/server package.
type Server struct {
	Engine *gin.Engine
	Addr   string
}

// New builds a Server with health, append, and read routes registered, and
// API-key middleware in front of the mutating endpoint only; health and
// read endpoints stay open.
func New(cfg *config.Config, handler *Handler) *Server {
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", handler.HandleHealth)
	handler.registerReadRoutes(r)

	writes := r.Group("/")
	writes.Use(APIKeyAuth(cfg.Ingest.APIKey))
	writes.POST("/v1/events", handler.HandleAppend)

	return &Server{
		Engine: r,
		Addr:   fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
	}
}

// Run starts the HTTP server and blocks until ctx is cancelled, then drains
// in-flight requests before returning.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.Addr,
		Handler: s.Engine,
	}

	slog.Info("starting HTTP server", "address", s.Addr)

	go func() {
		<-ctx.Done()
		slog.Info("stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server forced to shutdown", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

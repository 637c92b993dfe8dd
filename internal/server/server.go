package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/julianstephens/habitloop/internal/auth"
	"github.com/julianstephens/habitloop/internal/habits"
	"github.com/julianstephens/habitloop/internal/logger"
)

const shutdownTimeout = 10 * time.Second

// Server is the habitloop HTTP API.
type Server struct {
	habits   *habits.Service
	verifier auth.Verifier
	router   *gin.Engine
}

// NewServer wires the routes. Everything under /api requires a bearer token.
func NewServer(svc *habits.Service, verifier auth.Verifier) *Server {
	router := gin.New()
	router.Use(requestLogger(), recovery())
	router.HandleMethodNotAllowed = true
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorBody{Error: "route not found", Code: "not_found"})
	})
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, errorBody{Error: "method not allowed", Code: "method_not_allowed"})
	})

	s := &Server{
		habits:   svc,
		verifier: verifier,
		router:   router,
	}

	router.GET("/healthz", s.handleHealth)

	api := router.Group("/api", s.requireUser())
	{
		api.POST("/habits", s.handleCreate)
		api.GET("/habits", s.handleList)
		api.GET("/habits/stats", s.handleStats)
		api.PATCH("/habits/:id/complete", s.handleComplete)
		api.DELETE("/habits/:id", s.handleDelete)
	}

	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

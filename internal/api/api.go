// Package api provides the HTTP API server for Forge.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	v1 "forge/internal/api/v1"
	"forge/internal/config"
	"forge/internal/db/repositories"
	"forge/internal/logging"
)

type Server struct {
	cfg        *config.Config
	repos      *repositories.Repositories
	publisher  v1.RunPublisher
	httpServer *http.Server
}

func New(cfg *config.Config, repos *repositories.Repositories, publisher v1.RunPublisher) *Server {
	return &Server{cfg: cfg, repos: repos, publisher: publisher}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	router.GET("/health", s.healthCheck)

	v1Group := router.Group("/api/v1")
	handlers := v1.NewAPIHandlers(s.repos, s.publisher)
	handlers.RegisterRoutes(v1Group)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.APIPort),
		Handler: router,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("API server error: %v", err)
		}
	}()
	logging.Info("API server listening on :%d", s.cfg.APIPort)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "forge-api",
	})
}

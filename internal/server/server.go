// Package server exposes the workflow over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/lead-responder/internal/workflow"
)

const shutdownTimeout = 10 * time.Second

type Config struct {
	CORSOrigins []string
	Version     string
}

type Server struct {
	engine *gin.Engine
	svc    *workflow.Service
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

func New(svc *workflow.Service, logger *zap.Logger, cfg Config) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger), cors(cfg.CORSOrigins))

	s := &Server{
		engine: engine,
		svc:    svc,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/health", s.health)
	s.engine.GET("/", s.root)

	api := s.engine.Group("/api")

	leads := api.Group("/leads")
	{
		leads.GET("", s.listLeads)
		leads.POST("", s.createLead)
		leads.POST("/import", s.importLeads)
		leads.POST("/seed", s.seedLeads)
		leads.DELETE("/:id", s.deleteLead)
		leads.POST("/:id/score", s.scoreLead)
		leads.GET("/:id/activities", s.leadActivities)
		leads.POST("/:id/qualify", s.qualifyLead)
		leads.POST("/:id/message", s.generateOutreach)
	}

	api.GET("/companies", s.listCompanies)
	api.GET("/scoring/config", s.scoringConfig)
	api.PUT("/scoring/config", s.updateScoringConfig)

	evals := api.Group("/evals")
	{
		evals.POST("/run", s.runEvaluation)
		evals.GET("", s.listEvaluations)
		evals.GET("/:id", s.getEvaluation)
	}

	meetings := api.Group("/meetings")
	{
		meetings.POST("/slots", s.suggestSlots)
		meetings.POST("/ics", s.generateICS)
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "lead-responder"})
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Lead Responder API", "version": s.cfg.Version})
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request failed", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("request rejected", fields...)
		default:
			logger.Debug("request served", fields...)
		}
	}
}

// cors allows the configured origins; "*" allows any.
func cors(origins []string) gin.HandlerFunc {
	allowAll := slices.Contains(origins, "*")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowAll || slices.Contains(origins, origin)) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin, X-Requested-With")
			h.Add("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

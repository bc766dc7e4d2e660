package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lumen-studio/checkout-service/internal/config"
	"github.com/lumen-studio/checkout-service/internal/handlers"
	"github.com/lumen-studio/checkout-service/internal/metrics"
)

type Server struct {
	config   *config.Config
	router   *gin.Engine
	handlers *handlers.Handlers
	logger   *zap.Logger
	httpSrv  *http.Server
}

func NewServer(cfg *config.Config, h *handlers.Handlers, logger *zap.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestMetrics())

	s := &Server{
		config:   cfg,
		router:   router,
		handlers: h,
		logger:   logger,
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handlers.Health)
	s.router.GET("/ready", s.handlers.Ready)
	s.router.GET("/live", s.handlers.Live)
	s.router.GET("/version", s.handlers.Version)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/checkout/sessions", s.handlers.StartCheckout)
		v1.GET("/checkout/sessions/:id", s.handlers.GetSession)
		v1.POST("/checkout/sessions/:id/provider", s.handlers.SelectProvider)
		v1.POST("/checkout/sessions/:id/initiate", s.handlers.Initiate)
		v1.POST("/checkout/sessions/:id/widget-callback", s.handlers.WidgetCallback)
		v1.POST("/checkout/sessions/:id/restart", s.handlers.Restart)
		v1.GET("/checkout/return", s.handlers.RedirectReturn)
		v1.GET("/checkout/outcomes/:reference", s.handlers.GetOutcome)
	}
}

func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestsTotal.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
	}
}

func (s *Server) Run() error {
	addr := fmt.Sprintf(":%d", s.config.Server.Port)
	s.logger.Info("Starting server", zap.String("addr", addr))

	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

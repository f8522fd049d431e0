// Package api provides the HTTP surface: landing page, health check,
// MJPEG stream, control websocket and status.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"lrc/internal/config"
	"lrc/internal/control"
	"lrc/internal/network"
	"lrc/internal/session"
	"lrc/internal/stream"
)

// LandingText is the body of GET /.
const LandingText = "LAN Remote Control server is running. Open client.html on the controller and point it here."

const shutdownTimeout = 5 * time.Second

// Status is the body of GET /api/status.
type Status struct {
	Stream      stream.Stats  `json:"stream"`
	Controllers session.Stats `json:"controllers"`
	Sockets     int           `json:"sockets"`
	FPS         int           `json:"fps"`
	Quality     int           `json:"quality"`
}

// Server wires the streamer and the control channel to HTTP.
type Server struct {
	cfg       *config.Config
	streamer  *stream.Streamer
	authority *session.Authority
	hub       *Hub
	logger    *zap.Logger
	handler   http.Handler
}

// NewServer builds the router. Nothing listens until Run or Serve.
func NewServer(cfg *config.Config, streamer *stream.Streamer, authority *session.Authority, dispatcher *control.Dispatcher, logger *zap.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		streamer:  streamer,
		authority: authority,
		logger:    logger.With(zap.String("component", "api")),
	}
	s.hub = newHub(authority, dispatcher, s.logger)
	s.handler = cors.AllowAll().Handler(s.router())
	return s
}

func (s *Server) router() *gin.Engine {
	if !s.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(s.requestLogger())
	router.Use(gin.Recovery())

	router.GET("/", s.handleLanding)
	router.GET("/health", s.handleHealth)
	router.GET("/stream", s.handleStream)
	router.GET("/ws", s.hub.handleWebSocket)
	router.GET("/api/status", s.handleStatus)

	return router
}

// requestLogger logs each request through zap once the handler returns.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// Handler returns the root handler, CORS included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Status returns a snapshot of viewers and controllers.
func (s *Server) Status() Status {
	return Status{
		Stream:      s.streamer.Stats(),
		Controllers: s.authority.Stats(),
		Sockets:     s.hub.Count(),
		FPS:         s.cfg.FPS,
		Quality:     s.cfg.JPEGQuality,
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	addr := s.cfg.Addr()

	// Diagnostic: print all local IPs so the user can find the right one
	if ips, err := network.GetLocalIPs(); err == nil {
		for _, ip := range ips {
			s.logger.Info("Found local IPv4", zap.String("ip", ip),
				zap.String("stream", fmt.Sprintf("http://%s:%d/stream?token=<password>", ip, s.cfg.Port)),
				zap.String("control", fmt.Sprintf("ws://%s:%d/ws", ip, s.cfg.Port)))
		}
	}

	// An IPv4 host is bound with tcp4 to avoid IPv6-only binding on Windows
	netw := "tcp"
	if ip := net.ParseIP(s.cfg.Host); ip != nil && ip.To4() != nil {
		netw = "tcp4"
	}
	ln, err := net.Listen(netw, addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	s.logger.Info("Server listening", zap.String("addr", ln.Addr().String()))
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
// Open streams see their request context cancelled and control
// connections are closed.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.authority.CloseAll()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down")
	s.authority.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleLanding(c *gin.Context) {
	c.String(http.StatusOK, LandingText)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": network.ServiceName,
	})
}

// handleStream answers a wrong token with a bare 401 before anything is
// captured, otherwise streams until the viewer goes away.
func (s *Server) handleStream(c *gin.Context) {
	token := c.Query("token")
	if !s.streamer.Authorize(token) {
		s.logger.Warn("Rejected stream request", zap.String("client_ip", c.ClientIP()))
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	c.Header("Content-Type", stream.ContentType)
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Connection", "close")
	c.Status(http.StatusOK)

	s.logger.Info("Viewer connected", zap.String("client_ip", c.ClientIP()))
	err := s.streamer.Serve(c.Request.Context(), c.Writer, token)
	s.logger.Info("Viewer disconnected", zap.String("client_ip", c.ClientIP()), zap.NamedError("reason", err))
}

func (s *Server) handleStatus(c *gin.Context) {
	if !s.streamer.Authorize(c.Query("token")) {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	c.JSON(http.StatusOK, s.Status())
}

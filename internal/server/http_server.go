package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Tyrowin/reddnotes/internal/hub"
)

// Server owns the HTTP handlers for the WebSocket endpoint and the
// supporting routes.
type Server struct {
	hub        *hub.Hub
	dispatcher Dispatcher
	db         Pinger
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

// Pinger checks that a backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New creates a Server that registers connections with h and hands their
// frames to d. It applies cfg as the active configuration; nil keeps the
// current one.
func New(cfg *Config, h *hub.Hub, d Dispatcher, logger *zap.Logger) *Server {
	if cfg != nil {
		SetConfig(cfg)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		hub:        h,
		dispatcher: d,
		logger:     logger.With(zap.String("component", "server")),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// WithDatabase makes /stats report whether db answers a ping.
func (s *Server) WithDatabase(db Pinger) *Server {
	s.db = db
	return s
}

// CreateServer creates and configures an HTTP server with the specified port and handler.
// It sets reasonable timeout values for production use.
func CreateServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// StartServer starts the HTTP server and begins listening for connections.
// It returns an error if the server fails to start.
func StartServer(server *http.Server) error {
	zap.L().Info("server listening", zap.String("addr", server.Addr))
	return server.ListenAndServe()
}

// ShutdownServer gracefully shuts down the HTTP server without interrupting active connections.
// It waits for active requests to finish or until the timeout is reached.
func ShutdownServer(server *http.Server, timeout time.Duration) error {
	zap.L().Info("shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zap.L().Error("HTTP server shutdown error", zap.Error(err))
		return err
	}

	zap.L().Info("HTTP server shutdown completed")
	return nil
}

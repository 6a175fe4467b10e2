package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocketHandler handles WebSocket upgrade requests. It validates that the
// request uses the GET method, upgrades the HTTP connection, registers a new
// Client with the hub and starts its pumps.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("WebSocket upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}

	client := NewClient(conn, s.hub, s.dispatcher, r.RemoteAddr, s.logger)
	if err := s.hub.Add(client); err != nil {
		s.logger.Debug("refusing connection", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	if err := client.Start(); err != nil {
		s.logger.Debug("refusing connection", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}
	client.logger.Info("client connected")
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "ReddNotes server is running!")
}

// Stats is the body of the /stats endpoint. Database is set only when the
// server was given a database to check.
type Stats struct {
	Connections   int    `json:"connections"`
	Authenticated int    `json:"authenticated"`
	Database      string `json:"database,omitempty"`
}

// Database health values reported by /stats.
const (
	DatabaseOK          = "ok"
	DatabaseUnavailable = "unavailable"
)

const databasePingTimeout = 2 * time.Second

// StatsHandler reports how many connections are registered and how many of
// them carry an identity.
func (s *Server) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var stats Stats
	stats.Connections, stats.Authenticated = s.hub.Stats()

	status := http.StatusOK
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), databasePingTimeout)
		err := s.db.Ping(ctx)
		cancel()
		if err != nil {
			s.logger.Warn("database ping failed", zap.Error(err))
			stats.Database = DatabaseUnavailable
			status = http.StatusServiceUnavailable
		} else {
			stats.Database = DatabaseOK
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		s.logger.Debug("error writing stats response", zap.Error(err))
	}
}

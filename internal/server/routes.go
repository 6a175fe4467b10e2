package server

import "net/http"

// SetupRoutes configures and returns an HTTP ServeMux with all application routes.
func (s *Server) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/ws", s.WebSocketHandler)
	mux.HandleFunc("/stats", s.StatsHandler)
	return mux
}

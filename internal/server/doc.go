// Package server implements the HTTP side of ReddNotes: the WebSocket
// endpoint with its per-connection read and write pumps, origin checks,
// rate limiting, the health and stats routes, and configuration loading.
//
// Connections are registered with a hub.Hub and every inbound frame is handed
// to a Dispatcher. The package never interprets envelope contents itself.
package server

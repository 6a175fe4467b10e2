package server

import (
	"context"
	"errors"
	"strings"

	"github.com/Tyrowin/reddnotes/internal/apperr"
)

// Dispatcher handles the frames read from a client.
type Dispatcher interface {
	Dispatch(ctx context.Context, connID string, frame []byte)
	Reject(connID string, err *apperr.Error)
}

var (
	errClientClosed  = errors.New("client closed")
	errSendQueueFull = errors.New("send queue full")
)

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}

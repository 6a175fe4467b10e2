package server

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Tyrowin/reddnotes/internal/apperr"
	"github.com/Tyrowin/reddnotes/internal/hub"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	sendBufferSize = 256
)

// Client is one WebSocket connection. It implements hub.Conn: the hub
// enqueues outbound envelopes with Send and the write pump drains them.
// Inbound frames are dispatched one at a time, in arrival order.
type Client struct {
	id             string
	conn           *websocket.Conn
	send           chan []byte
	registry       *hub.Hub
	dispatcher     Dispatcher
	addr           string
	mu             sync.Mutex
	closed         bool
	maxMessageSize int64
	rateLimiter    *rateLimiter
	rateLimit      RateLimitConfig
	logger         *zap.Logger
}

// NewClient creates a Client for conn with a fresh connection id. The
// client's send channel is buffered to handle message queuing.
func NewClient(conn *websocket.Conn, registry *hub.Hub, dispatcher Dispatcher, addr string, logger *zap.Logger) *Client {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()

	return &Client{
		id:             id,
		conn:           conn,
		send:           make(chan []byte, sendBufferSize),
		registry:       registry,
		dispatcher:     dispatcher,
		addr:           addr,
		maxMessageSize: cfg.MaxMessageSize,
		rateLimiter:    newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		rateLimit:      cfg.RateLimit,
		logger:         logger.With(zap.String("conn_id", id), zap.String("remote_addr", addr)),
	}
}

// ID returns the connection id.
func (c *Client) ID() string {
	return c.id
}

// Send queues payload for the write pump. It fails without blocking when the
// client is closed or its queue is full.
func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errClientClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return errSendQueueFull
	}
}

// Close stops the write pump, which sends a close frame and closes the
// underlying connection. It is safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
	return nil
}

// Start launches the read and write pumps on the registry so that a hub
// shutdown waits for them. Once the hub is shutting down it returns
// hub.ErrClosing and the client is unregistered and closed.
func (c *Client) Start() error {
	if err := c.registry.Go(c.writePump); err != nil {
		c.registry.Remove(c.id)
		_ = c.Close()
		c.closeConnection()
		return err
	}
	if err := c.registry.Go(c.readPump); err != nil {
		// writePump closes the socket once the send queue is closed.
		c.registry.Remove(c.id)
		_ = c.Close()
		return err
	}
	return nil
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Debug("error setting initial read deadline", zap.Error(err))
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Debug("error setting read deadline in pong handler", zap.Error(err))
		}
		return nil
	})
}

// logReadError logs the reason the read loop is ending.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.logger.Warn("message exceeded maximum size", zap.Int64("max_message_size", c.maxMessageSize))
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.logger.Info("client disconnected", zap.Error(err))
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.logger.Info("client connection closed", zap.Error(err))
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		c.logger.Warn("unexpected WebSocket close", zap.Error(err))
	default:
		c.logger.Warn("WebSocket read error", zap.Error(err))
	}
}

// checkRateLimit reports whether the frame may be processed. Excess frames
// are answered with a 429 error envelope.
func (c *Client) checkRateLimit() bool {
	if c.rateLimiter == nil || c.rateLimiter.allow() {
		return true
	}
	c.logger.Debug("rate limit exceeded",
		zap.Int("burst", c.rateLimit.Burst),
		zap.Duration("refill_interval", c.rateLimit.RefillInterval))
	c.dispatcher.Reject(c.id, apperr.TooManyRequests(apperr.MsgRateLimited))
	return false
}

func (c *Client) readPump() {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		c.registry.Remove(c.id)
		_ = c.Close()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.logger.Debug("error closing connection in readPump", zap.Error(err))
		}
	}()

	c.setupReadConnection()

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if !c.checkRateLimit() {
			continue
		}

		c.dispatcher.Dispatch(ctx, c.id, frame)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleMessage(message, ok)
	case <-ticker.C:
		return c.handlePing()
	}
}

// closeConnection safely closes the WebSocket connection with proper error handling
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.logger.Debug("error closing connection in writePump", zap.Error(err))
	}
}

// handleMessage writes one outgoing envelope and returns false if the connection should be closed
func (c *Client) handleMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Debug("error setting write deadline", zap.Error(err))
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		if !isExpectedCloseError(err) {
			c.logger.Warn("error writing message", zap.Error(err))
		}
		return false
	}
	return true
}

// writeCloseMessage sends a close message to the client
func (c *Client) writeCloseMessage() bool {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.conn.WriteMessage(websocket.CloseMessage, msg); err != nil && !isExpectedCloseError(err) {
		c.logger.Debug("error writing close message", zap.Error(err))
	}
	return false
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Debug("error setting write deadline for ping", zap.Error(err))
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Debug("error writing ping message", zap.Error(err))
		return false
	}
	return true
}

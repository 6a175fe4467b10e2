// Package hub tracks live connections with their bound identities and
// delivers outbound frames to them.
//
// The Hub is the only mutable state shared between connections. Every
// mutation (add, bind, remove) is a single step under the hub mutex, and
// broadcasts iterate a snapshot taken before any frame is sent.
package hub

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Tyrowin/reddnotes/internal/auth"
)

// Conn is the send/close capability of one transport session.
type Conn interface {
	ID() string
	Send(payload []byte) error
	Close() error
}

// Entry is a copy of one registry record. Identity is nil until a login or
// signup succeeds on the connection.
type Entry struct {
	Conn      Conn
	Identity  *auth.Identity
	CreatedAt time.Time
}

type entry struct {
	conn      Conn
	identity  *auth.Identity
	createdAt time.Time
}

// Hub is the connection registry and broadcaster.
type Hub struct {
	conns   map[string]*entry
	mutex   sync.RWMutex
	closing bool
	wg      sync.WaitGroup
	logger  *zap.Logger
	now     func() time.Time
}

// ErrClosing is returned once Shutdown has started.
var ErrClosing = errors.New("hub: shutting down")

// New creates an empty Hub.
func New(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		conns:  make(map[string]*entry),
		logger: logger.With(zap.String("component", "hub")),
		now:    time.Now,
	}
}

// Add registers conn with no bound identity. A second Add for an id that is
// already present keeps the existing entry. After Shutdown has started Add
// refuses the connection and returns ErrClosing; the caller still owns conn.
func (h *Hub) Add(conn Conn) error {
	if conn == nil {
		h.logger.Warn("received nil connection registration; skipping")
		return nil
	}

	h.mutex.Lock()
	if h.closing {
		h.mutex.Unlock()
		h.logger.Debug("rejected connection during shutdown", zap.String("conn_id", conn.ID()))
		return ErrClosing
	}
	if _, exists := h.conns[conn.ID()]; exists {
		h.mutex.Unlock()
		h.logger.Warn("connection already registered", zap.String("conn_id", conn.ID()))
		return nil
	}
	h.conns[conn.ID()] = &entry{conn: conn, createdAt: h.now()}
	count := len(h.conns)
	h.mutex.Unlock()

	h.logger.Info("connection registered", zap.String("conn_id", conn.ID()), zap.Int("total", count))
	return nil
}

// BindIdentity replaces the identity bound to the connection. It reports
// false when the connection is no longer registered.
func (h *Hub) BindIdentity(connID string, id auth.Identity) bool {
	h.mutex.Lock()
	e, ok := h.conns[connID]
	if ok {
		bound := id
		e.identity = &bound
	}
	h.mutex.Unlock()

	if ok {
		h.logger.Debug("identity bound",
			zap.String("conn_id", connID),
			zap.String("user_id", id.UserID),
		)
	}
	return ok
}

// Identity returns the identity currently bound to the connection.
func (h *Hub) Identity(connID string) (auth.Identity, bool) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	e, ok := h.conns[connID]
	if !ok || e.identity == nil {
		return auth.Identity{}, false
	}
	return *e.identity, true
}

// Remove drops the connection from the registry. Removing an absent id is a
// no-op; the return value reports whether anything was removed.
func (h *Hub) Remove(connID string) bool {
	h.mutex.Lock()
	_, ok := h.conns[connID]
	delete(h.conns, connID)
	count := len(h.conns)
	h.mutex.Unlock()

	if ok {
		h.logger.Info("connection unregistered", zap.String("conn_id", connID), zap.Int("total", count))
	}
	return ok
}

// Snapshot returns a stable copy of the current entries.
func (h *Hub) Snapshot() []Entry {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	entries := make([]Entry, 0, len(h.conns))
	for _, e := range h.conns {
		out := Entry{Conn: e.conn, CreatedAt: e.createdAt}
		if e.identity != nil {
			bound := *e.identity
			out.Identity = &bound
		}
		entries = append(entries, out)
	}
	return entries
}

// ForEach calls visit for every entry of a snapshot taken at call time.
// visit runs without the hub lock held, so it may add, bind or remove
// connections; those changes do not affect the ongoing iteration.
func (h *Hub) ForEach(visit func(Entry)) {
	for _, e := range h.Snapshot() {
		visit(e)
	}
}

// Stats returns the number of registered connections and how many of them
// carry a bound identity.
func (h *Hub) Stats() (connections, authenticated int) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for _, e := range h.conns {
		if e.identity != nil {
			authenticated++
		}
	}
	return len(h.conns), authenticated
}

// Go runs fn in a goroutine that Shutdown waits for. It returns ErrClosing
// without running fn once Shutdown has started.
func (h *Hub) Go(fn func()) error {
	h.mutex.Lock()
	if h.closing {
		h.mutex.Unlock()
		return ErrClosing
	}
	h.wg.Add(1)
	h.mutex.Unlock()

	go func() {
		defer h.wg.Done()
		fn()
	}()
	return nil
}

// Shutdown closes every registered connection and waits for goroutines
// started with Go to return, or for the timeout to elapse.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info("initiating hub shutdown")

	h.mutex.Lock()
	h.closing = true
	conns := make([]Conn, 0, len(h.conns))
	for _, e := range h.conns {
		conns = append(conns, e.conn)
	}
	h.mutex.Unlock()

	for _, conn := range conns {
		if err := conn.Close(); err != nil {
			h.logger.Debug("error closing connection", zap.String("conn_id", conn.ID()), zap.Error(err))
		}
	}
	h.logger.Info("closed client connections", zap.Int("count", len(conns)))

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.logger.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}

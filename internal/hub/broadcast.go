package hub

import (
	"go.uber.org/zap"
)

// TargetKind selects the recipients of a delivery.
type TargetKind int

// Delivery targets.
const (
	TargetOne TargetKind = iota
	TargetAll
	TargetAllExcept
)

// Target addresses a delivery. ID names the single recipient for TargetOne
// and the excluded connection for TargetAllExcept.
type Target struct {
	Kind TargetKind
	ID   string
}

// To addresses a single connection.
func To(connID string) Target { return Target{Kind: TargetOne, ID: connID} }

// All addresses every registered connection.
func All() Target { return Target{Kind: TargetAll} }

// AllExcept addresses every registered connection but one.
func AllExcept(connID string) Target { return Target{Kind: TargetAllExcept, ID: connID} }

// Deliver sends payload to the target connections and returns how many sends
// succeeded. Delivery is best effort: a failing connection is removed from
// the registry and closed, and the remaining targets still receive payload.
func (h *Hub) Deliver(payload []byte, target Target) int {
	var recipients []Conn
	if target.Kind == TargetOne {
		h.mutex.RLock()
		if e, ok := h.conns[target.ID]; ok {
			recipients = append(recipients, e.conn)
		}
		h.mutex.RUnlock()
	} else {
		h.ForEach(func(e Entry) {
			if target.Kind == TargetAllExcept && e.Conn.ID() == target.ID {
				return
			}
			recipients = append(recipients, e.Conn)
		})
	}

	if target.Kind != TargetOne {
		h.logger.Debug("broadcasting message", zap.Int("targets", len(recipients)))
	}

	delivered := 0
	var failed []Conn
	for _, conn := range recipients {
		if err := conn.Send(payload); err != nil {
			h.logger.Debug("send failed", zap.String("conn_id", conn.ID()), zap.Error(err))
			failed = append(failed, conn)
			continue
		}
		delivered++
	}

	h.removeFailed(failed)
	return delivered
}

// removeFailed unregisters and closes connections whose send failed. An
// entry replaced by a different Conn under the same id is left alone.
func (h *Hub) removeFailed(failed []Conn) {
	if len(failed) == 0 {
		return
	}

	h.mutex.Lock()
	toClose := make([]Conn, 0, len(failed))
	for _, conn := range failed {
		if e, ok := h.conns[conn.ID()]; ok && e.conn == conn {
			delete(h.conns, conn.ID())
			toClose = append(toClose, conn)
		}
	}
	h.mutex.Unlock()

	for _, conn := range toClose {
		h.logger.Info("connection removed after failed send", zap.String("conn_id", conn.ID()))
		if err := conn.Close(); err != nil {
			h.logger.Debug("error closing connection", zap.String("conn_id", conn.ID()), zap.Error(err))
		}
	}
}

package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Tyrowin/reddnotes/internal/apperr"
	"github.com/Tyrowin/reddnotes/internal/auth"
	"github.com/Tyrowin/reddnotes/internal/hub"
)

// Registry is the part of the connection registry the dispatcher mutates.
type Registry interface {
	BindIdentity(connID string, id auth.Identity) bool
}

// Broadcaster delivers encoded envelopes.
type Broadcaster interface {
	Deliver(payload []byte, target hub.Target) int
}

// Dispatcher runs the per-frame pipeline: decode, resolve, authenticate,
// invoke, bind, notify. Broadcasts a handler requests through its Notifier
// go out last, after the bind and the caller's response.
type Dispatcher struct {
	table    *Table
	verifier auth.Verifier
	registry Registry
	out      Broadcaster
	logger   *zap.Logger
}

// New creates a Dispatcher. The hub usually serves as both registry and
// broadcaster.
func New(table *Table, verifier auth.Verifier, registry Registry, out Broadcaster, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		table:    table,
		verifier: verifier,
		registry: registry,
		out:      out,
		logger:   logger.With(zap.String("component", "dispatcher")),
	}
}

// Dispatch processes one inbound frame from connID. It never panics and
// never returns an error: every failure becomes an error envelope for the
// sender.
func (d *Dispatcher) Dispatch(ctx context.Context, connID string, frame []byte) {
	env, derr := DecodeEnvelope(frame)
	if derr != nil {
		d.logger.Debug("rejected malformed envelope", zap.String("conn_id", connID), zap.String("reason", derr.Message))
		d.Reject(connID, derr)
		return
	}

	log := d.logger.With(
		zap.String("conn_id", connID),
		zap.String("type", env.Type),
		zap.String("action", env.Action),
		zap.String("method", env.Method),
	)

	route, rerr := d.table.Resolve(env.Type, env.Action, env.Method)
	if rerr != nil {
		log.Debug("no route for envelope")
		d.Reject(connID, rerr.WithRoute(env.Type, env.Action, env.Method))
		return
	}

	pending := &notifier{d: d, connID: connID}
	req := &Request{
		Token:    env.Token,
		Data:     env.Data,
		Notifier: pending,
	}

	if route.RequiresAuth {
		caller, aerr := d.authenticate(env.Token)
		if aerr != nil {
			log.Debug("authentication failed", zap.String("reason", aerr.Message))
			d.Reject(connID, aerr.WithRoute(env.Type, env.Action, env.Method))
			return
		}
		req.Caller = &caller
	}

	result, err := d.invoke(ctx, route, req)
	if err != nil {
		d.fail(log, connID, env, err)
		return
	}

	if route.EstablishesIdentity {
		if result.Identity == nil {
			d.fail(log, connID, env, errors.New("identity-establishing handler returned no identity"))
			return
		}
		if !d.registry.BindIdentity(connID, *result.Identity) {
			log.Debug("connection closed before identity could be bound")
		}
	}

	policy := route.Notify
	if result.Notify != nil {
		policy = *result.Notify
	}

	resp := Response{
		Type:          env.Type,
		Action:        env.Action,
		Method:        env.Method,
		StatusCode:    result.StatusCode,
		StatusMessage: result.StatusMessage,
		Data:          result.Data,
	}
	if resp.StatusCode == 0 {
		resp.StatusCode = apperr.StatusOK
	}
	d.notify(log, connID, policy, resp)
	pending.flush(log)
}

// Reject sends an error envelope to connID only.
func (d *Dispatcher) Reject(connID string, err *apperr.Error) {
	payload, merr := json.Marshal(NewErrorResponse(err))
	if merr != nil {
		d.logger.Error("failed to encode error envelope", zap.Error(merr))
		return
	}
	d.out.Deliver(payload, hub.To(connID))
}

// authenticate runs the verifier and maps its failures onto the taxonomy.
func (d *Dispatcher) authenticate(token string) (auth.Identity, *apperr.Error) {
	if token == "" {
		return auth.Identity{}, apperr.NotAuthorized(apperr.MsgMissingToken)
	}
	id, err := d.verifier.Verify(token)
	switch {
	case err == nil:
		return id, nil
	case errors.Is(err, auth.ErrMissingToken):
		return auth.Identity{}, apperr.NotAuthorized(apperr.MsgMissingToken)
	default:
		return auth.Identity{}, apperr.Forbidden(apperr.MsgInvalidToken)
	}
}

// invoke calls the handler, converting panics into errors.
func (d *Dispatcher) invoke(ctx context.Context, route Route, req *Request) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	result, err = route.Handler(ctx, req)
	if err == nil && result == nil {
		err = errors.New("handler returned neither result nor error")
	}
	return result, err
}

// fail reports a handler failure to the caller. Domain errors surface
// verbatim; anything else is logged and reported as a server error.
func (d *Dispatcher) fail(log *zap.Logger, connID string, env *Envelope, err error) {
	if derr, ok := apperr.As(err); ok {
		log.Debug("handler failed", zap.Int("status", derr.StatusCode()), zap.String("reason", derr.Message))
		d.Reject(connID, derr.WithRoute(env.Type, env.Action, env.Method))
		return
	}

	log.Error("unexpected handler failure", zap.Error(err))
	d.Reject(connID, &apperr.Error{
		Kind:    apperr.KindInternal,
		Type:    env.Type,
		Action:  env.Action,
		Method:  env.Method,
		Message: apperr.MessageServer,
	})
}

func (d *Dispatcher) notify(log *zap.Logger, connID string, policy Notify, resp Response) {
	if policy == NotifyNone {
		return
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		log.Error("failed to encode response", zap.Error(err))
		d.Reject(connID, &apperr.Error{
			Kind:    apperr.KindInternal,
			Type:    resp.Type,
			Action:  resp.Action,
			Method:  resp.Method,
			Message: apperr.MessageServer,
		})
		return
	}

	var target hub.Target
	switch policy {
	case NotifyCaller:
		target = hub.To(connID)
	case NotifyAll:
		target = hub.All()
	case NotifyAllExceptCaller:
		target = hub.AllExcept(connID)
	default:
		log.Error("unknown notify policy", zap.Stringer("policy", policy))
		return
	}

	n := d.out.Deliver(payload, target)
	log.Debug("response delivered", zap.Stringer("policy", policy), zap.Int("recipients", n))
}

// notifier is the broadcast capability handed to handlers. It is bound to
// the calling connection so the handler never sees the registry. Broadcasts
// are queued until flush; a failed handler's queue is dropped.
type notifier struct {
	d      *Dispatcher
	connID string

	mu      sync.Mutex
	queued  []queuedBroadcast
	flushed bool
}

type queuedBroadcast struct {
	policy Notify
	resp   Response
}

func (n *notifier) Broadcast(resp Response, includeCaller bool) {
	policy := NotifyAllExceptCaller
	if includeCaller {
		policy = NotifyAll
	}

	n.mu.Lock()
	if !n.flushed {
		n.queued = append(n.queued, queuedBroadcast{policy: policy, resp: resp})
		n.mu.Unlock()
		return
	}
	n.mu.Unlock()

	n.d.notify(n.d.logger.With(zap.String("conn_id", n.connID)), n.connID, policy, resp)
}

// flush sends the queued broadcasts in order. Later Broadcast calls are
// sent immediately.
func (n *notifier) flush(log *zap.Logger) {
	n.mu.Lock()
	queued := n.queued
	n.queued = nil
	n.flushed = true
	n.mu.Unlock()

	for _, b := range queued {
		n.d.notify(log, n.connID, b.policy, b.resp)
	}
}

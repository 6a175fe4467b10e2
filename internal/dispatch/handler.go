package dispatch

import (
	"context"
	"encoding/json"

	"github.com/Tyrowin/reddnotes/internal/apperr"
	"github.com/Tyrowin/reddnotes/internal/auth"
)

// Handler performs one operation. It returns a Result or fails with an
// *apperr.Error; any other error is reported to the caller as a server error.
type Handler func(ctx context.Context, req *Request) (*Result, error)

// Notifier lets a handler publish an extra envelope to other connections.
type Notifier interface {
	// Broadcast sends resp to every connection, or to every connection but
	// the caller when includeCaller is false.
	Broadcast(resp Response, includeCaller bool)
}

// Request is what a handler sees of one inbound envelope.
type Request struct {
	// Caller is the verified identity for routes that require auth and nil
	// otherwise.
	Caller *auth.Identity
	// Token is the raw bearer token the caller presented, if any.
	Token    string
	Data     json.RawMessage
	Notifier Notifier
}

// Bind decodes the request data into v. Missing data leaves v untouched.
func (r *Request) Bind(v any) error {
	if len(r.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return apperr.BadRequest(apperr.MsgIncorrectData)
	}
	return nil
}

// Result is a successful handler outcome.
type Result struct {
	StatusCode    int
	StatusMessage string
	Data          any
	// Identity must be set by identity-establishing handlers; the dispatcher
	// binds it to the connection before notifying.
	Identity *auth.Identity
	// Notify overrides the route's notify policy when non-nil.
	Notify *Notify
}

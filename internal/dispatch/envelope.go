// Package dispatch turns inbound envelopes into handler invocations and
// outbound envelopes.
//
// A Dispatcher owns no connection state. It resolves each frame against a
// static route Table, runs the authentication gate, invokes the handler and
// hands the encoded result to a Broadcaster according to the route's
// notify policy.
package dispatch

import (
	"bytes"
	"encoding/json"

	"github.com/Tyrowin/reddnotes/internal/apperr"
)

// Envelope is one inbound message.
type Envelope struct {
	Type   string          `json:"type"`
	Action string          `json:"action"`
	Method string          `json:"method,omitempty"`
	Token  string          `json:"token,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Response is the outbound success envelope.
type Response struct {
	Type          string `json:"type"`
	Action        string `json:"action"`
	Method        string `json:"method,omitempty"`
	StatusCode    int    `json:"statusCode"`
	StatusMessage string `json:"statusMessage"`
	Data          any    `json:"data"`
}

// ErrorResponse is the outbound error envelope. Clients tell it apart from
// a Response by the errorMessage field.
type ErrorResponse struct {
	Type         string `json:"type,omitempty"`
	Action       string `json:"action,omitempty"`
	Method       string `json:"method,omitempty"`
	StatusCode   int    `json:"statusCode"`
	ErrorMessage string `json:"errorMessage"`
}

// DecodeEnvelope parses a raw frame. Anything that is not a JSON object with
// a string type, or whose data is neither an object nor null, is a bad
// request.
func DecodeEnvelope(frame []byte) (*Envelope, *apperr.Error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, apperr.BadRequest(apperr.MsgInvalidJSON)
	}
	if env.Type == "" {
		return nil, apperr.BadRequest(apperr.MsgMissingType)
	}

	data := bytes.TrimSpace(env.Data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		env.Data = nil
	case data[0] != '{':
		return nil, apperr.BadRequest(apperr.MsgInvalidJSON).WithRoute(env.Type, env.Action, env.Method)
	}
	return &env, nil
}

// NewErrorResponse builds the error envelope for err.
func NewErrorResponse(err *apperr.Error) ErrorResponse {
	return ErrorResponse{
		Type:         err.Type,
		Action:       err.Action,
		Method:       err.Method,
		StatusCode:   err.StatusCode(),
		ErrorMessage: err.Message,
	}
}

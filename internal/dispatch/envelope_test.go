package dispatch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/reddnotes/internal/apperr"
)

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"type":"auth","action":"login","method":"by data","token":"t","data":{"nickname":"ann"}}`))
	require.Nil(t, err)
	assert.Equal(t, "auth", env.Type)
	assert.Equal(t, "login", env.Action)
	assert.Equal(t, "by data", env.Method)
	assert.Equal(t, "t", env.Token)
	assert.JSONEq(t, `{"nickname":"ann"}`, string(env.Data))

	env, err = DecodeEnvelope([]byte(`{"type":"info","action":"count all users","data":null}`))
	require.Nil(t, err)
	assert.Nil(t, env.Data)
}

func TestDecodeEnvelopeDataMustBeObject(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`{"type":"note","action":"create","method":"m","data":[1]}`))
	require.NotNil(t, err)
	assert.Equal(t, apperr.KindBadRequest, err.Kind)
	assert.Equal(t, "note", err.Type)
	assert.Equal(t, "m", err.Method)
}

func TestOutboundShapes(t *testing.T) {
	ok, err := json.Marshal(Response{Type: "note", Action: "create", StatusCode: 201, StatusMessage: "Created"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"note","action":"create","statusCode":201,"statusMessage":"Created","data":null}`, string(ok))

	bad, err := json.Marshal(NewErrorResponse(apperr.NotFound("Not found this type [bogus]")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"statusCode":404,"errorMessage":"Not found this type [bogus]"}`, string(bad))
}

func TestRequestBind(t *testing.T) {
	var in struct {
		Title string `json:"title"`
	}
	req := &Request{Data: json.RawMessage(`{"title":"t"}`)}
	require.NoError(t, req.Bind(&in))
	assert.Equal(t, "t", in.Title)

	req = &Request{Data: json.RawMessage(`{"title":5}`)}
	err := req.Bind(&in)
	derr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindBadRequest, derr.Kind)

	assert.NoError(t, (&Request{}).Bind(&in))
}

package unit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Tyrowin/reddnotes/internal/hub"
	"github.com/Tyrowin/reddnotes/internal/server"
)

// fakeConn is a hub.Conn that records payloads.
type fakeConn struct {
	id     string
	mu     sync.Mutex
	sent   [][]byte
	closed bool
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: id} }

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, p)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestNewClient(t *testing.T) {
	h := hub.New(zap.NewNop())
	a := server.NewClient(nil, h, stubDispatcher{}, "127.0.0.1:1", nil)
	b := server.NewClient(nil, h, stubDispatcher{}, "127.0.0.1:2", nil)

	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestClientSendAndClose(t *testing.T) {
	h := hub.New(zap.NewNop())
	c := server.NewClient(nil, h, stubDispatcher{}, "127.0.0.1:1", nil)

	require.NoError(t, c.Send([]byte(`{"statusCode":200}`)))
	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "Close is idempotent")
	assert.Error(t, c.Send([]byte(`{}`)), "Send after Close fails")
}

func TestClientSendQueueOverflowRemovesClient(t *testing.T) {
	h := hub.New(zap.NewNop())
	c := server.NewClient(nil, h, stubDispatcher{}, "127.0.0.1:1", nil)
	h.Add(c)

	// Nothing drains the queue, so it eventually overflows.
	delivered := 0
	for i := 0; i < 300; i++ {
		delivered += h.Deliver([]byte(`{}`), hub.To(c.ID()))
	}

	assert.Equal(t, 256, delivered)
	n, _ := h.Stats()
	assert.Zero(t, n, "a client whose queue overflowed is removed")
	assert.Error(t, c.Send([]byte(`{}`)), "the removed client is closed")
}

func TestConcurrentClientSends(t *testing.T) {
	h := hub.New(zap.NewNop())
	c := server.NewClient(nil, h, stubDispatcher{}, "127.0.0.1:1", nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = c.Send([]byte(`{}`))
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = c.Close()
	}()
	wg.Wait()

	assert.Error(t, c.Send([]byte(`{}`)))
}

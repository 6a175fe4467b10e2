package hub

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Tyrowin/reddnotes/internal/auth"
)

type mockConn struct {
	id       string
	mu       sync.Mutex
	received [][]byte
	closed   bool
	sendErr  error
	onSend   func()
}

func (m *mockConn) ID() string { return m.id }

func (m *mockConn) Send(payload []byte) error {
	if m.onSend != nil {
		m.onSend()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.received = append(m.received, payload)
	return nil
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockConn) getReceived() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.received...)
}

func (m *mockConn) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func newTestHub(t *testing.T) *Hub {
	return New(zaptest.NewLogger(t))
}

func TestHub_AddAndRemove(t *testing.T) {
	h := newTestHub(t)
	c1 := &mockConn{id: "c1"}

	h.Add(c1)
	h.Add(c1)
	conns, authed := h.Stats()
	assert.Equal(t, 1, conns)
	assert.Equal(t, 0, authed)

	assert.True(t, h.Remove("c1"))
	assert.False(t, h.Remove("c1"), "second remove is a no-op")
	conns, _ = h.Stats()
	assert.Equal(t, 0, conns)
}

func TestHub_AddNilIsIgnored(t *testing.T) {
	h := newTestHub(t)
	h.Add(nil)
	assert.Empty(t, h.Snapshot())
}

func TestHub_BindIdentity(t *testing.T) {
	h := newTestHub(t)
	h.Add(&mockConn{id: "c1"})

	_, ok := h.Identity("c1")
	assert.False(t, ok, "fresh connection has no identity")

	ann := auth.Identity{UserID: "u-ann", Username: "ann"}
	bob := auth.Identity{UserID: "u-bob", Username: "bob"}

	require.True(t, h.BindIdentity("c1", ann))
	got, ok := h.Identity("c1")
	require.True(t, ok)
	assert.Equal(t, ann, got)

	require.True(t, h.BindIdentity("c1", bob))
	got, ok = h.Identity("c1")
	require.True(t, ok)
	assert.Equal(t, bob, got)

	assert.Len(t, h.Snapshot(), 1, "rebinding must not duplicate the entry")
	_, authed := h.Stats()
	assert.Equal(t, 1, authed)

	assert.False(t, h.BindIdentity("missing", ann))
}

func TestHub_BindIdentityConcurrentWithReads(t *testing.T) {
	h := newTestHub(t)
	h.Add(&mockConn{id: "c1"})
	ids := []auth.Identity{
		{UserID: "u-1", Username: "one"},
		{UserID: "u-2", Username: "two"},
	}
	require.True(t, h.BindIdentity("c1", ids[0]))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			h.BindIdentity("c1", ids[i%2])
		}(i)
		go func() {
			defer wg.Done()
			got, ok := h.Identity("c1")
			assert.True(t, ok, "identity never observed absent")
			assert.Contains(t, ids, got)
			assert.Len(t, h.Snapshot(), 1)
		}()
	}
	wg.Wait()
}

func TestHub_SnapshotIsACopy(t *testing.T) {
	h := newTestHub(t)
	h.Add(&mockConn{id: "c1"})
	h.BindIdentity("c1", auth.Identity{UserID: "u-1"})

	snap := h.Snapshot()
	snap[0].Identity.UserID = "changed"

	got, _ := h.Identity("c1")
	assert.Equal(t, "u-1", got.UserID)
}

func TestHub_Deliver(t *testing.T) {
	tests := []struct {
		name         string
		target       Target
		wantReceived map[string]int
		wantCount    int
	}{
		{
			name:         "single connection",
			target:       To("c2"),
			wantReceived: map[string]int{"c1": 0, "c2": 1, "c3": 0},
			wantCount:    1,
		},
		{
			name:         "all connections",
			target:       All(),
			wantReceived: map[string]int{"c1": 1, "c2": 1, "c3": 1},
			wantCount:    3,
		},
		{
			name:         "all except caller",
			target:       AllExcept("c1"),
			wantReceived: map[string]int{"c1": 0, "c2": 1, "c3": 1},
			wantCount:    2,
		},
		{
			name:         "unknown single target",
			target:       To("gone"),
			wantReceived: map[string]int{"c1": 0, "c2": 0, "c3": 0},
			wantCount:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHub(t)
			conns := map[string]*mockConn{}
			for _, id := range []string{"c1", "c2", "c3"} {
				conns[id] = &mockConn{id: id}
				h.Add(conns[id])
			}

			count := h.Deliver([]byte(`{"statusCode":200}`), tt.target)
			assert.Equal(t, tt.wantCount, count)

			for id, want := range tt.wantReceived {
				got := conns[id].getReceived()
				require.Len(t, got, want, id)
				for _, payload := range got {
					assert.Equal(t, `{"statusCode":200}`, string(payload))
				}
			}
		})
	}
}

func TestHub_DeliverRemovesFailedConnections(t *testing.T) {
	h := newTestHub(t)
	good := &mockConn{id: "good"}
	bad := &mockConn{id: "bad", sendErr: errors.New("send buffer full")}
	h.Add(good)
	h.Add(bad)

	count := h.Deliver([]byte("x"), All())

	assert.Equal(t, 1, count)
	assert.Len(t, good.getReceived(), 1, "failure on one target must not abort the rest")
	assert.True(t, bad.isClosed())
	conns, _ := h.Stats()
	assert.Equal(t, 1, conns)
}

func TestHub_BroadcastUsesSnapshot(t *testing.T) {
	h := newTestHub(t)
	late := &mockConn{id: "late"}

	var once sync.Once
	first := &mockConn{id: "first"}
	first.onSend = func() {
		once.Do(func() {
			h.Add(late)
			h.Remove("second")
		})
	}
	second := &mockConn{id: "second"}
	second.onSend = first.onSend

	h.Add(first)
	h.Add(second)

	count := h.Deliver([]byte("x"), All())

	assert.Equal(t, 2, count)
	assert.Len(t, first.getReceived(), 1)
	assert.Len(t, second.getReceived(), 1)
	assert.Empty(t, late.getReceived(), "connections added mid-broadcast are not in the snapshot")
}

func TestHub_ConcurrentOperations(t *testing.T) {
	h := newTestHub(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i)
			h.Add(&mockConn{id: id})
			h.BindIdentity(id, auth.Identity{UserID: id})
			h.Deliver([]byte("x"), AllExcept(id))
			h.Remove(id)
		}(i)
	}
	wg.Wait()

	conns, _ := h.Stats()
	assert.Equal(t, 0, conns)
}

func TestHub_ShutdownClosesConnections(t *testing.T) {
	h := newTestHub(t)
	c := &mockConn{id: "c1"}
	h.Add(c)

	stop := make(chan struct{})
	require.NoError(t, h.Go(func() { <-stop }))
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(stop)
	}()

	require.NoError(t, h.Shutdown(time.Second))
	assert.True(t, c.isClosed())
}

func TestHub_ShutdownTimeout(t *testing.T) {
	h := newTestHub(t)
	stop := make(chan struct{})
	defer close(stop)
	require.NoError(t, h.Go(func() { <-stop }))

	err := h.Shutdown(20 * time.Millisecond)
	assert.Error(t, err)
}

func TestHub_ShutdownRefusesNewWork(t *testing.T) {
	h := newTestHub(t)
	require.NoError(t, h.Shutdown(time.Second))

	late := &mockConn{id: "late"}
	assert.ErrorIs(t, h.Add(late), ErrClosing)
	conns, _ := h.Stats()
	assert.Equal(t, 0, conns)

	ran := make(chan struct{}, 1)
	assert.ErrorIs(t, h.Go(func() { ran <- struct{}{} }), ErrClosing)
	select {
	case <-ran:
		t.Fatal("goroutine started after shutdown")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHub_ShutdownRacesWithStart(t *testing.T) {
	h := newTestHub(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := &mockConn{id: fmt.Sprintf("c%d", i)}
			if h.Add(c) != nil {
				return
			}
			_ = h.Go(func() {})
		}(i)
	}
	require.NoError(t, h.Shutdown(time.Second))
	wg.Wait()

	h.ForEach(func(e Entry) {
		assert.True(t, e.Conn.(*mockConn).isClosed(), "%s registered but left open", e.Conn.ID())
	})
}

func TestHub_ForEachToleratesMutation(t *testing.T) {
	h := newTestHub(t)
	require.NoError(t, h.Add(&mockConn{id: "a"}))
	require.NoError(t, h.Add(&mockConn{id: "b"}))

	var visited []string
	h.ForEach(func(e Entry) {
		visited = append(visited, e.Conn.ID())
		h.Remove(e.Conn.ID())
		require.NoError(t, h.Add(&mockConn{id: "new-" + e.Conn.ID()}))
		h.BindIdentity("new-"+e.Conn.ID(), auth.Identity{UserID: e.Conn.ID()})
	})

	assert.ElementsMatch(t, []string{"a", "b"}, visited, "entries added during iteration are not visited")
	conns, authenticated := h.Stats()
	assert.Equal(t, 2, conns)
	assert.Equal(t, 2, authenticated)
}

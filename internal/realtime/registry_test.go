package realtime

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChannel records deliveries and can be told to fail sends.
type fakeChannel struct {
	mu       sync.Mutex
	sent     [][]byte
	failSend bool
	closed   bool
}

func (c *fakeChannel) Send(message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend || c.closed {
		return errors.New("send failed")
	}
	msg := make([]byte, len(message))
	copy(msg, message)
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChannel) messages(t *testing.T) []string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	for i, m := range c.sent {
		out[i] = string(m)
	}
	return out
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestRegisterDeregisterRoundTrip(t *testing.T) {
	reg := NewRegistry()
	before := reg.Count()

	ch := &fakeChannel{}
	id := reg.Register(ch)
	require.NotEmpty(t, id)
	assert.Equal(t, before+1, reg.Count())

	reg.Deregister(id)
	assert.Equal(t, before, reg.Count())
	assert.True(t, ch.isClosed())
}

func TestRegisterIssuesDistinctIdentities(t *testing.T) {
	reg := NewRegistry()
	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		id := reg.Register(&fakeChannel{})
		assert.False(t, seen[id])
		seen[id] = true
	}
	assert.Equal(t, 10, reg.Count())
}

func TestDeregisterIdempotent(t *testing.T) {
	reg := NewRegistry()
	id := reg.Register(&fakeChannel{})

	reg.Deregister(id)
	reg.Deregister(id)
	reg.Deregister("never-existed")

	assert.Equal(t, 0, reg.Count())
}

func TestBroadcastReachesEveryObserverOnce(t *testing.T) {
	reg := NewRegistry()
	channels := []*fakeChannel{{}, {}, {}}
	for _, ch := range channels {
		reg.Register(ch)
	}

	reg.Broadcast([]byte("status:ok"))

	assert.Equal(t, 3, reg.Count())
	for _, ch := range channels {
		assert.Equal(t, []string{"status:ok"}, ch.messages(t))
	}
}

func TestBroadcastDropsFailingObserver(t *testing.T) {
	reg := NewRegistry()
	healthy := &fakeChannel{}
	broken := &fakeChannel{failSend: true}
	reg.Register(healthy)
	brokenID := reg.Register(broken)

	// Never errors to the caller; the broken observer is simply removed.
	reg.Broadcast([]byte("first"))

	assert.Equal(t, 1, reg.Count())
	assert.True(t, broken.isClosed())
	assert.Equal(t, []string{"first"}, healthy.messages(t))

	// A later broadcast no longer touches the dropped observer.
	reg.Broadcast([]byte("second"))
	assert.Equal(t, []string{"first", "second"}, healthy.messages(t))
	assert.Empty(t, broken.messages(t))

	// Its id stays dead even if deregistered again.
	reg.Deregister(brokenID)
	assert.Equal(t, 1, reg.Count())
}

func TestSendTo(t *testing.T) {
	reg := NewRegistry()
	a := &fakeChannel{}
	b := &fakeChannel{}
	idA := reg.Register(a)
	reg.Register(b)

	reg.SendTo(idA, []byte("only-a"))
	assert.Equal(t, []string{"only-a"}, a.messages(t))
	assert.Empty(t, b.messages(t))

	// Unknown id is a benign no-op.
	reg.SendTo("unknown", []byte("dropped"))
	assert.Equal(t, 2, reg.Count())
}

func TestSendToDropsFailingObserver(t *testing.T) {
	reg := NewRegistry()
	broken := &fakeChannel{failSend: true}
	id := reg.Register(broken)

	reg.SendTo(id, []byte("ping"))

	assert.Equal(t, 0, reg.Count())
	assert.True(t, broken.isClosed())
}

func TestConcurrentBroadcastAndChurn(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := reg.Register(&fakeChannel{})
				reg.Broadcast([]byte("tick"))
				reg.Deregister(id)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, reg.Count())
}

// Package realtime tracks connected observers and fans events out to all
// of them with best-effort delivery. The registry is the one piece of
// state shared across observer tasks; every mutation funnels through it.
package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/archaeoscan/archaeoscan/internal/errors"
)

// Channel is the outbound half of an observer connection. Send on a closed
// channel must return an error, never panic; the registry treats any send
// error as a disconnect.
type Channel interface {
	Send(message []byte) error
	Close() error
}

type observer struct {
	id          string
	channel     Channel
	connectedAt time.Time
}

// Registry owns the set of live observers. An observer removed from the
// registry is gone for good; identities are never reused.
type Registry struct {
	mu        sync.Mutex
	observers map[string]*observer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{observers: make(map[string]*observer)}
}

// Register adds a live channel under a fresh identity and returns it.
func (r *Registry) Register(ch Channel) string {
	id := uuid.NewString()

	r.mu.Lock()
	r.observers[id] = &observer{id: id, channel: ch, connectedAt: time.Now()}
	count := len(r.observers)
	r.mu.Unlock()

	slog.Info("observer connected", "observer_id", id, "total", count)
	return id
}

// Deregister removes an observer and closes its channel. Removing an
// already-absent id is a no-op; disconnect races are expected.
func (r *Registry) Deregister(id string) {
	r.mu.Lock()
	obs, ok := r.observers[id]
	if ok {
		delete(r.observers, id)
	}
	count := len(r.observers)
	r.mu.Unlock()

	if ok {
		apperrors.SafeClose(obs.channel, "observer channel")
		slog.Info("observer disconnected", "observer_id", id, "total", count)
	}
}

// Broadcast delivers message to every currently-registered observer.
// Delivery is best-effort per observer: a failed send removes that
// observer and delivery continues to the rest. Broadcast never reports an
// error to its caller.
func (r *Registry) Broadcast(message []byte) {
	r.mu.Lock()
	snapshot := make([]*observer, 0, len(r.observers))
	for _, obs := range r.observers {
		snapshot = append(snapshot, obs)
	}
	r.mu.Unlock()

	for _, obs := range snapshot {
		if err := obs.channel.Send(message); err != nil {
			slog.Info("dropping observer after failed delivery",
				"observer_id", obs.id,
				"error", apperrors.NewDeliveryFailure(obs.id, err))
			r.Deregister(obs.id)
		}
	}
}

// SendTo unicasts to one observer, with the same removal-on-failure policy
// as Broadcast. An unknown id is a benign no-op.
func (r *Registry) SendTo(id string, message []byte) {
	r.mu.Lock()
	obs, ok := r.observers[id]
	r.mu.Unlock()

	if !ok {
		return
	}
	if err := obs.channel.Send(message); err != nil {
		slog.Info("dropping observer after failed delivery",
			"observer_id", id,
			"error", apperrors.NewDeliveryFailure(id, err))
		r.Deregister(id)
	}
}

// Count returns the number of live observers.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.observers)
}

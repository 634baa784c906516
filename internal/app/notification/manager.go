// Package notification provides the manager broadcasting status
// snapshots to subscribed observers.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bertibox/bertibox/internal/domain/status"
)

// Stream delivers snapshots to one subscriber. The push channel to UI
// clients (WebSocket or similar) implements this.
type Stream interface {
	Send(*status.Snapshot) error
}

// sendTimeout bounds how long one slow subscriber may delay a broadcast.
const sendTimeout = 500 * time.Millisecond

type subscription struct {
	id     string
	stream Stream
}

// Manager manages status subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription

	seqMu sync.Mutex
	seq   uint64
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{subscriptions: make(map[string]*subscription)}
}

// Subscribe adds a subscriber and returns its subscription id.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{id: id, stream: stream}
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, id)
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Broadcast stamps the snapshot with the next sequence number and sends
// it to all subscribers in parallel. A subscriber that does not accept
// the send within sendTimeout is skipped; delivery errors are left to
// the stream owner to handle on its next interaction.
func (m *Manager) Broadcast(snap *status.Snapshot) error {
	m.seqMu.Lock()
	m.seq++
	snap.Seq = m.seq
	m.seqMu.Unlock()

	m.mu.RLock()
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() { done <- s.stream.Send(snap) }()

			select {
			case <-done:
			case <-ctx.Done():
			}
		}(sub)
	}
	wg.Wait()
	return nil
}

// Close removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}

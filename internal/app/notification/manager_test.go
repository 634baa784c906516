package notification

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bertibox/bertibox/internal/domain/status"
)

type recordingStream struct {
	mu       sync.Mutex
	received []*status.Snapshot
}

func (r *recordingStream) Send(s *status.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received = append(r.received, s)
	return nil
}

func (r *recordingStream) snapshots() []*status.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*status.Snapshot(nil), r.received...)
}

// blockingStream never accepts a send.
type blockingStream struct{}

func (blockingStream) Send(*status.Snapshot) error {
	select {}
}

func TestManager_SubscribeAndBroadcast(t *testing.T) {
	m := NewManager()
	defer m.Close()

	first := &recordingStream{}
	second := &recordingStream{}
	m.Subscribe(first)
	m.Subscribe(second)
	assert.Equal(t, 2, m.SubscriberCount())

	require.NoError(t, m.Broadcast(&status.Snapshot{TagUID: "TAG1"}))

	for _, stream := range []*recordingStream{first, second} {
		got := stream.snapshots()
		require.Len(t, got, 1)
		assert.Equal(t, "TAG1", got[0].TagUID)
	}
}

func TestManager_SequenceNumbersIncrease(t *testing.T) {
	m := NewManager()
	defer m.Close()

	stream := &recordingStream{}
	m.Subscribe(stream)

	for i := 0; i < 3; i++ {
		require.NoError(t, m.Broadcast(&status.Snapshot{}))
	}

	got := stream.snapshots()
	require.Len(t, got, 3)
	assert.Equal(t, uint64(1), got[0].Seq)
	assert.Equal(t, uint64(2), got[1].Seq)
	assert.Equal(t, uint64(3), got[2].Seq)
}

func TestManager_Unsubscribe(t *testing.T) {
	m := NewManager()
	defer m.Close()

	stream := &recordingStream{}
	id := m.Subscribe(stream)
	m.Unsubscribe(id)
	assert.Equal(t, 0, m.SubscriberCount())

	require.NoError(t, m.Broadcast(&status.Snapshot{}))
	assert.Empty(t, stream.snapshots())
}

func TestManager_SlowSubscriberDoesNotBlockOthers(t *testing.T) {
	m := NewManager()
	defer m.Close()

	healthy := &recordingStream{}
	m.Subscribe(blockingStream{})
	m.Subscribe(healthy)

	start := time.Now()
	require.NoError(t, m.Broadcast(&status.Snapshot{}))
	elapsed := time.Since(start)

	// The broadcast waits out the send timeout for the stuck stream but
	// still delivers to the healthy one.
	assert.Less(t, elapsed, 2*sendTimeout)
	assert.Len(t, healthy.snapshots(), 1)
}

func TestManager_BroadcastWithoutSubscribers(t *testing.T) {
	m := NewManager()
	defer m.Close()

	assert.NoError(t, m.Broadcast(&status.Snapshot{}))
}

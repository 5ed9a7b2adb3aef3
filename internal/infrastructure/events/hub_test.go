package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
)

func TestHubFansOutToAllSubscribers(t *testing.T) {
	hub := NewHub("api-1")
	a, cancelA := hub.Subscribe(4)
	defer cancelA()
	b, cancelB := hub.Subscribe(4)
	defer cancelB()

	hub.Publish(domain.Event{Type: domain.EventDocumentIndexed, DocumentID: "d1"})

	for _, ch := range []<-chan domain.Event{a, b} {
		got := <-ch
		assert.Equal(t, "d1", got.DocumentID)
		assert.Equal(t, "api-1", got.Origin)
		assert.False(t, got.At.IsZero())
	}
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub("api-1")
	slow, cancel := hub.Subscribe(1)
	defer cancel()

	for i := 0; i < 5; i++ {
		hub.Publish(domain.Event{Type: domain.EventMessage})
	}

	assert.Len(t, slow, 1)
	assert.Equal(t, int64(4), hub.Dropped())
}

func TestHubCancelIsIdempotent(t *testing.T) {
	hub := NewHub("")
	require.NotEmpty(t, hub.Origin())

	ch, cancel := hub.Subscribe(1)
	assert.Equal(t, 1, hub.Subscribers())
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, hub.Subscribers())

	hub.Publish(domain.Event{Type: domain.EventMessage})
}

func TestHubRelaysOnlyLocalEvents(t *testing.T) {
	hub := NewHub("api-1")
	var (
		mu      sync.Mutex
		relayed []domain.Event
	)
	hub.OnPublish(func(e domain.Event) {
		mu.Lock()
		relayed = append(relayed, e)
		mu.Unlock()
	})
	ch, cancel := hub.Subscribe(4)
	defer cancel()

	hub.Publish(domain.Event{Type: domain.EventDocumentDeleted, DocumentID: "d1"})
	hub.Deliver(domain.Event{Type: domain.EventDocumentDeleted, DocumentID: "d2", Origin: "worker-1"})
	hub.Deliver(domain.Event{Type: domain.EventDocumentDeleted, DocumentID: "echo", Origin: "api-1"})

	require.Len(t, ch, 2)
	assert.Equal(t, "d1", (<-ch).DocumentID)
	assert.Equal(t, "d2", (<-ch).DocumentID)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, relayed, 1)
	assert.Equal(t, "d1", relayed[0].DocumentID)
}

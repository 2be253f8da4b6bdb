package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"joblist-engine/internal/domain"
)

func TestHubPublishReachesAllSubscribers(t *testing.T) {
	h := NewHub()
	a := h.Subscribe()
	b := h.Subscribe()
	defer h.Unsubscribe(a)
	defer h.Unsubscribe(b)

	h.Publish(ListingCreated(domain.Listing{
		Title: "Pricing Actuary", Company: "Acme Re", Source: domain.SourceScraped,
	}))

	for _, ch := range []chan string{a, b} {
		select {
		case msg := <-ch:
			assert.Contains(t, msg, `"job_created"`)
			assert.Contains(t, msg, "Pricing Actuary")
		case <-time.After(time.Second):
			t.Fatal("subscriber never received the event")
		}
	}
}

func TestRunFinishedEvent(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	h.Publish(RunFinished(domain.RunResult{Success: true, ListingsSaved: 3}))

	select {
	case msg := <-ch:
		assert.Contains(t, msg, `"run_finished"`)
		assert.Contains(t, msg, domain.SourceScraped)
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the event")
	}
}

func TestHubDropsWhenSubscriberIsFull(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	// Fill the subscriber's buffer; further publishes must not block.
	for i := 0; i < cap(ch)+5; i++ {
		h.Publish(ListingDeleted("42"))
	}
	assert.Len(t, ch, cap(ch))
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	h.Unsubscribe(ch)

	// The channel is closed and out of the fan-out set.
	h.Publish(ListingDeleted("42"))
	_, open := <-ch
	require.False(t, open)
}

// Package events fans listing lifecycle events out to SSE subscribers
// so a UI can refresh without polling.
package events

import (
	"encoding/json"
	"sync"

	"joblist-engine/internal/domain"
)

type Event struct {
	Type    string `json:"type"`
	Title   string `json:"title,omitempty"`
	Company string `json:"company,omitempty"`
	Source  string `json:"source,omitempty"`
	ID      string `json:"id,omitempty"`
}

func ListingCreated(l domain.Listing) Event {
	return Event{Type: "job_created", Title: l.Title, Company: l.Company, Source: l.Source}
}

func ListingDeleted(id string) Event {
	return Event{Type: "job_deleted", ID: id}
}

func RunFinished(res domain.RunResult) Event {
	ev := Event{Type: "run_finished"}
	if res.Success {
		ev.Source = domain.SourceScraped
	}
	return ev
}

type Hub struct {
	mu      sync.Mutex
	clients map[chan string]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan string]struct{})}
}

func (h *Hub) Subscribe() chan string {
	ch := make(chan string, 10)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan string) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

func (h *Hub) Publish(ev Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		return
	}
	msg := string(b)

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
			// drop if slow
		}
	}
}

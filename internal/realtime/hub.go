package realtime

import (
	"sync"

	"fila-system/models"
)

// Hub fans ordered queue snapshots out to in-process subscribers. The
// queue service publishes after every mutation; subscribers (the PubNub
// publisher, the monitoring gauge) receive the full sorted entry list.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func([]models.QueueEntry)
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]func([]models.QueueEntry))}
}

// Subscribe registers onChange and returns a function that cancels the
// subscription.
func (h *Hub) Subscribe(onChange func([]models.QueueEntry)) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	h.subs[id] = onChange

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

// Publish delivers the snapshot to every subscriber. Each subscriber gets
// its own copy so one cannot mutate what another sees.
func (h *Hub) Publish(entries []models.QueueEntry) {
	h.mu.Lock()
	subs := make([]func([]models.QueueEntry), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.Unlock()

	for _, fn := range subs {
		snapshot := make([]models.QueueEntry, len(entries))
		copy(snapshot, entries)
		fn(snapshot)
	}
}

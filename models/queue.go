package models

// QueueEntry is one person currently waiting. Entries are immutable while
// live: created on join, deleted on dequeue, never updated in between.
type QueueEntry struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Phone      string `json:"phone,omitempty"`
	EnqueuedAt int64  `json:"enqueuedAt"` // milliseconds since epoch
}

// ServiceRecord is the append-only log line written when an entry leaves
// the queue, capturing how long it waited.
type ServiceRecord struct {
	Name       string `json:"name"`
	EnqueuedAt int64  `json:"enqueuedAt"`
	ServicedAt int64  `json:"servicedAt"`
	// ServiceDurationMs is servicedAt - enqueuedAt. Records loaded from
	// storage without a duration carry -1 and are excluded from averages.
	ServiceDurationMs int64 `json:"serviceDurationMs"`
}

package store

import (
	"context"
	"errors"

	"fila-system/models"
)

// ErrNotFound is returned when an operation targets a queue entry that is
// no longer in the store. Callers treat it as a benign outcome: the entry
// may simply have been dequeued already.
var ErrNotFound = errors.New("queue entry not found")

// QueueStore owns the live collection of waiting entries. Implementations
// do not guarantee any ordering on List; the service layer sorts by
// EnqueuedAt before presenting the queue.
type QueueStore interface {
	List(ctx context.Context) ([]models.QueueEntry, error)
	Get(ctx context.Context, id string) (models.QueueEntry, error)
	// Append stores a new entry and returns it with its assigned id.
	Append(ctx context.Context, entry models.QueueEntry) (models.QueueEntry, error)
	Remove(ctx context.Context, id string) error
}

// ServiceLog is the append-only record of completed services. Records are
// never mutated or deleted.
type ServiceLog interface {
	Append(ctx context.Context, rec models.ServiceRecord) error
	// Records returns the full log in append order.
	Records(ctx context.Context) ([]models.ServiceRecord, error)
}

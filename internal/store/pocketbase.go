package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"

	"fila-system/models"
)

const (
	CollectionFila         = "fila"
	CollectionAtendimentos = "atendimentos"
)

// PBQueueStore keeps the live queue in the PocketBase "fila" collection.
// Clients observe it through the PocketBase realtime subscription, which
// pushes the full collection state on every change.
type PBQueueStore struct {
	app core.App
}

func NewPBQueueStore(app core.App) *PBQueueStore {
	return &PBQueueStore{app: app}
}

func (s *PBQueueStore) List(_ context.Context) ([]models.QueueEntry, error) {
	records, err := s.app.FindAllRecords(CollectionFila)
	if err != nil {
		return nil, err
	}

	entries := make([]models.QueueEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, recordToEntry(r))
	}
	return entries, nil
}

func (s *PBQueueStore) Get(_ context.Context, id string) (models.QueueEntry, error) {
	record, err := s.app.FindRecordById(CollectionFila, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.QueueEntry{}, ErrNotFound
		}
		return models.QueueEntry{}, err
	}
	return recordToEntry(record), nil
}

func (s *PBQueueStore) Append(ctx context.Context, entry models.QueueEntry) (models.QueueEntry, error) {
	collection, err := s.app.FindCollectionByNameOrId(CollectionFila)
	if err != nil {
		return models.QueueEntry{}, err
	}

	record := core.NewRecord(collection)
	record.Set("name", entry.Name)
	record.Set("phone", entry.Phone)
	record.Set("enqueuedAt", entry.EnqueuedAt)

	if err := s.app.SaveWithContext(ctx, record); err != nil {
		return models.QueueEntry{}, err
	}

	entry.ID = record.Id
	return entry, nil
}

func (s *PBQueueStore) Remove(ctx context.Context, id string) error {
	record, err := s.app.FindRecordById(CollectionFila, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return s.app.DeleteWithContext(ctx, record)
}

func recordToEntry(r *core.Record) models.QueueEntry {
	return models.QueueEntry{
		ID:         r.Id,
		Name:       r.GetString("name"),
		Phone:      r.GetString("phone"),
		EnqueuedAt: int64(r.GetFloat("enqueuedAt")),
	}
}

// PBServiceLog appends completed services to the "atendimentos"
// collection.
type PBServiceLog struct {
	app core.App
}

func NewPBServiceLog(app core.App) *PBServiceLog {
	return &PBServiceLog{app: app}
}

func (l *PBServiceLog) Append(ctx context.Context, rec models.ServiceRecord) error {
	collection, err := l.app.FindCollectionByNameOrId(CollectionAtendimentos)
	if err != nil {
		return err
	}

	record := core.NewRecord(collection)
	record.Set("name", rec.Name)
	record.Set("enqueuedAt", rec.EnqueuedAt)
	record.Set("servicedAt", rec.ServicedAt)
	record.Set("serviceDurationMs", rec.ServiceDurationMs)

	return l.app.SaveWithContext(ctx, record)
}

// Records scans the whole log in append order. The statistics aggregator
// recomputes from scratch on every call, so this is a plain ordered read
// with no pagination; acceptable at walk-in queue scale.
func (l *PBServiceLog) Records(_ context.Context) ([]models.ServiceRecord, error) {
	var rows []dbx.NullStringMap
	err := l.app.DB().
		NewQuery("SELECT name, enqueuedAt, servicedAt, serviceDurationMs FROM atendimentos ORDER BY servicedAt ASC, id ASC").
		All(&rows)
	if err != nil {
		return nil, err
	}

	records := make([]models.ServiceRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, models.ServiceRecord{
			Name:              row["name"].String,
			EnqueuedAt:        nullInt64(row["enqueuedAt"]),
			ServicedAt:        nullInt64(row["servicedAt"]),
			ServiceDurationMs: nullInt64(row["serviceDurationMs"]),
		})
	}
	return records, nil
}

// nullInt64 maps a missing or malformed numeric column to -1 so that old
// rows without a duration are excluded from the rolling average.
func nullInt64(v sql.NullString) int64 {
	if !v.Valid || v.String == "" {
		return -1
	}
	f, err := strconv.ParseFloat(v.String, 64)
	if err != nil {
		return -1
	}
	return int64(f)
}

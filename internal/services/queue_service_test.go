package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fila-system/config"
	"fila-system/internal/notify"
	"fila-system/internal/realtime"
	"fila-system/internal/store"
	"fila-system/models"
)

type queueFixture struct {
	svc   *QueueService
	store *store.MemoryQueueStore
	log   *store.MemoryServiceLog
	clock *fakeClock
}

type fakeClock struct {
	mu      sync.Mutex
	current time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

func newQueueFixture(t *testing.T) *queueFixture {
	t.Helper()

	cfg := &config.Config{
		CountryCode:        "55",
		StatsWindow:        20,
		StatsCacheTTL:      30 * time.Second,
		PositionTTL:        5 * time.Second,
		FallbackAvgService: 5 * time.Minute,
	}

	queueStore := store.NewMemoryQueueStore()
	serviceLog := store.NewMemoryServiceLog()
	stats := NewStatsService(serviceLog, nil, cfg.StatsWindow, cfg.StatsCacheTTL)
	notifier := notify.NewNotifier(notify.NewStubProvider(), 0)

	svc := NewQueueService(queueStore, serviceLog, stats, realtime.NewHub(), notifier, nil, cfg)

	clock := &fakeClock{current: time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)}
	svc.now = clock.Now
	stats.now = clock.Now

	return &queueFixture{svc: svc, store: queueStore, log: serviceLog, clock: clock}
}

func TestQueueService_JoinRejectsBlankName(t *testing.T) {
	f := newQueueFixture(t)

	for _, name := range []string{"", "   ", "\t\n"} {
		_, _, err := f.svc.Join(context.Background(), name, "")
		assert.ErrorIs(t, err, ErrEmptyName)
	}

	entries, err := f.svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestQueueService_JoinTrimsNameAndSetsEnqueuedAt(t *testing.T) {
	f := newQueueFixture(t)

	entry, alreadyQueued, err := f.svc.Join(context.Background(), "  Maria  ", "")
	require.NoError(t, err)

	assert.False(t, alreadyQueued)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "Maria", entry.Name)
	assert.Equal(t, f.clock.Now().UnixMilli(), entry.EnqueuedAt)
}

func TestQueueService_JoinDuplicateNameReturnsExisting(t *testing.T) {
	f := newQueueFixture(t)
	ctx := context.Background()

	first, _, err := f.svc.Join(ctx, "Maria", "11912345678")
	require.NoError(t, err)

	f.clock.Advance(time.Minute)

	// Case and surrounding whitespace do not make a new person.
	again, alreadyQueued, err := f.svc.Join(ctx, "  maria ", "")
	require.NoError(t, err)

	assert.True(t, alreadyQueued)
	assert.Equal(t, first.ID, again.ID)

	entries, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestQueueService_ListSortedByEnqueuedAt(t *testing.T) {
	f := newQueueFixture(t)
	ctx := context.Background()

	// Seed the store out of order; the service sorts on read.
	_, err := f.store.Append(ctx, models.QueueEntry{ID: "b", Name: "Bruno", EnqueuedAt: 200})
	require.NoError(t, err)
	_, err = f.store.Append(ctx, models.QueueEntry{ID: "a", Name: "Ana", EnqueuedAt: 100})
	require.NoError(t, err)
	_, err = f.store.Append(ctx, models.QueueEntry{ID: "c", Name: "Clara", EnqueuedAt: 300})
	require.NoError(t, err)

	entries, err := f.svc.List(ctx)
	require.NoError(t, err)

	require.Len(t, entries, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{entries[0].ID, entries[1].ID, entries[2].ID})
}

func TestQueueService_LeaveRecordsThenRemoves(t *testing.T) {
	f := newQueueFixture(t)
	ctx := context.Background()

	entry, _, err := f.svc.Join(ctx, "Maria", "")
	require.NoError(t, err)

	f.clock.Advance(90 * time.Second)

	left, err := f.svc.Leave(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, left.ID)

	records, err := f.log.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Maria", records[0].Name)
	assert.Equal(t, entry.EnqueuedAt, records[0].EnqueuedAt)
	assert.Equal(t, int64(90000), records[0].ServiceDurationMs)

	entries, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestQueueService_LeaveNotFound(t *testing.T) {
	f := newQueueFixture(t)

	_, err := f.svc.Leave(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	records, err := f.log.Records(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestQueueService_DequeueNextRemovesHead(t *testing.T) {
	f := newQueueFixture(t)
	ctx := context.Background()

	first, _, err := f.svc.Join(ctx, "Ana", "")
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	_, _, err = f.svc.Join(ctx, "Bruno", "")
	require.NoError(t, err)

	dequeued, err := f.svc.DequeueNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, dequeued.ID)

	entries, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Bruno", entries[0].Name)
}

func TestQueueService_DequeueNextEmptyQueue(t *testing.T) {
	f := newQueueFixture(t)

	_, err := f.svc.DequeueNext(context.Background())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestQueueService_PositionInfo(t *testing.T) {
	f := newQueueFixture(t)
	ctx := context.Background()

	// Two serviced records at a flat 5 minutes fix the rolling average.
	for i := 0; i < 2; i++ {
		require.NoError(t, f.log.Append(ctx, models.ServiceRecord{
			Name:              "cliente",
			EnqueuedAt:        f.clock.Now().Add(-5 * time.Minute).UnixMilli(),
			ServicedAt:        f.clock.Now().UnixMilli(),
			ServiceDurationMs: 300000,
		}))
	}

	_, _, err := f.svc.Join(ctx, "Ana", "")
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	_, _, err = f.svc.Join(ctx, "Bruno", "")
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	third, _, err := f.svc.Join(ctx, "Clara", "")
	require.NoError(t, err)

	position, eta, err := f.svc.PositionInfo(ctx, third.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, position)
	assert.Equal(t, 10, eta)
}

func TestQueueService_PositionInfoNotFound(t *testing.T) {
	f := newQueueFixture(t)

	_, _, err := f.svc.PositionInfo(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestQueueService_EffectiveAverageFallsBack(t *testing.T) {
	f := newQueueFixture(t)

	avg := f.svc.EffectiveAverageMs(context.Background())
	assert.Equal(t, float64(300000), avg)
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"formatted local number", "(11) 91234-5678", "+5511912345678"},
		{"already has country code", "5511912345678", "+5511912345678"},
		{"plus prefix stripped and rebuilt", "+55 11 91234-5678", "+5511912345678"},
		{"blank stays blank", "", ""},
		{"whitespace only", "   ", ""},
		{"no digits at all", "abc", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePhone(tt.raw, "55"))
		})
	}
}

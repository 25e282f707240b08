package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"fila-system/config"
	"fila-system/internal/notify"
	"fila-system/internal/realtime"
	"fila-system/internal/store"
	"fila-system/models"
	"fila-system/monitoring"
)

// ErrEmptyName rejects joins whose name is blank after trimming.
var ErrEmptyName = errors.New("name is required")

// QueueService implements the queue operations: ordered listing, join
// with duplicate-name reuse, and dequeue with service-record logging and
// best-effort notification fan-out.
type QueueService struct {
	store    store.QueueStore
	log      store.ServiceLog
	stats    *StatsService
	hub      *realtime.Hub
	notifier *notify.Notifier
	redis    *redis.Client
	cfg      *config.Config
	now      func() time.Time
}

func NewQueueService(
	queueStore store.QueueStore,
	serviceLog store.ServiceLog,
	stats *StatsService,
	hub *realtime.Hub,
	notifier *notify.Notifier,
	redisClient *redis.Client,
	cfg *config.Config,
) *QueueService {
	return &QueueService{
		store:    queueStore,
		log:      serviceLog,
		stats:    stats,
		hub:      hub,
		notifier: notifier,
		redis:    redisClient,
		cfg:      cfg,
		now:      time.Now,
	}
}

// List returns every live entry sorted ascending by EnqueuedAt. Position
// of an entry is its index+1 in this ordering.
func (s *QueueService) List(ctx context.Context) ([]models.QueueEntry, error) {
	entries, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	sortEntries(entries)
	return entries, nil
}

// Join validates and inserts a new entry. When a live entry already
// carries the same name (trimmed, case-insensitive) the existing entry is
// returned with alreadyQueued=true instead of creating a duplicate. Two
// concurrent joins with the same name can still both pass this check;
// that race is accepted, the store has no transactional check-and-insert.
func (s *QueueService) Join(ctx context.Context, name, phone string) (entry models.QueueEntry, alreadyQueued bool, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.QueueEntry{}, false, ErrEmptyName
	}

	entries, err := s.List(ctx)
	if err != nil {
		return models.QueueEntry{}, false, err
	}
	for _, e := range entries {
		if strings.EqualFold(strings.TrimSpace(e.Name), name) {
			return e, true, nil
		}
	}

	created, err := s.store.Append(ctx, models.QueueEntry{
		Name:       name,
		Phone:      NormalizePhone(phone, s.cfg.CountryCode),
		EnqueuedAt: s.now().UnixMilli(),
	})
	if err != nil {
		monitoring.IncOperation("join", "error")
		return models.QueueEntry{}, false, err
	}

	monitoring.IncOperation("join", "ok")
	go s.publishQueueState()

	return created, false, nil
}

// Leave removes the entry with the given id, writing its ServiceRecord
// first so the removal cannot lose the service event. Self-withdrawal and
// administrator dequeue share this path and are both logged as serviced.
// Returns store.ErrNotFound when the id is no longer queued.
func (s *QueueService) Leave(ctx context.Context, id string) (models.QueueEntry, error) {
	entry, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			monitoring.IncOperation("leave", "not_found")
		} else {
			monitoring.IncOperation("leave", "error")
		}
		return models.QueueEntry{}, err
	}

	servicedAt := s.now().UnixMilli()
	rec := models.ServiceRecord{
		Name:              entry.Name,
		EnqueuedAt:        entry.EnqueuedAt,
		ServicedAt:        servicedAt,
		ServiceDurationMs: servicedAt - entry.EnqueuedAt,
	}

	// Record first, then delete. A crash in between double-counts the
	// service rather than losing it.
	if err := s.log.Append(ctx, rec); err != nil {
		monitoring.IncOperation("leave", "error")
		return models.QueueEntry{}, err
	}
	if err := s.store.Remove(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		monitoring.IncOperation("leave", "error")
		return models.QueueEntry{}, err
	}

	monitoring.IncOperation("leave", "ok")
	monitoring.ObserveServiceDuration(time.Duration(rec.ServiceDurationMs) * time.Millisecond)
	s.stats.Invalidate(ctx)

	go s.afterDequeue()

	return entry, nil
}

// DequeueNext removes the head of the queue through Leave. Returns
// store.ErrNotFound when the queue is empty.
func (s *QueueService) DequeueNext(ctx context.Context) (models.QueueEntry, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return models.QueueEntry{}, err
	}
	if len(entries) == 0 {
		return models.QueueEntry{}, store.ErrNotFound
	}
	return s.Leave(ctx, entries[0].ID)
}

// PositionInfo derives the 1-based position and ETA for an entry from the
// current queue and statistics snapshot.
func (s *QueueService) PositionInfo(ctx context.Context, id string) (position, etaMinutes int, err error) {
	entries, err := s.List(ctx)
	if err != nil {
		return 0, 0, err
	}

	position = models.Position(entries, id)
	if position == 0 {
		return 0, 0, store.ErrNotFound
	}

	snapshot, err := s.stats.Compute(ctx, false)
	if err != nil {
		return 0, 0, err
	}

	return position, models.ETAMinutes(s.effectiveAvg(snapshot), position), nil
}

// EffectiveAverageMs is the rolling average used for ETA derivation, with
// the configured fallback when the log has no durations yet.
func (s *QueueService) EffectiveAverageMs(ctx context.Context) float64 {
	snapshot, err := s.stats.Compute(ctx, false)
	if err != nil {
		slog.Warn("stats computation failed, using fallback average", "error", err)
		return float64(s.cfg.FallbackAvgService.Milliseconds())
	}
	return s.effectiveAvg(snapshot)
}

func (s *QueueService) effectiveAvg(snapshot models.StatsSnapshot) float64 {
	if snapshot.AverageServiceDurationMs > 0 {
		return snapshot.AverageServiceDurationMs
	}
	return float64(s.cfg.FallbackAvgService.Milliseconds())
}

// afterDequeue publishes the post-dequeue queue state and fans out SMS
// position updates to the remaining entries. Runs detached from the
// request: once a dequeue starts it proceeds to completion or failure
// independently and cannot be aborted by the caller.
func (s *QueueService) afterDequeue() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	entries, err := s.List(ctx)
	if err != nil {
		slog.Error("post-dequeue listing failed", "error", err)
		return
	}

	s.hub.Publish(entries)
	s.cachePositions(ctx, entries)
	s.notifier.FanOut(ctx, entries, s.EffectiveAverageMs(ctx))
}

// publishQueueState pushes the current snapshot to hub subscribers after
// a join.
func (s *QueueService) publishQueueState() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entries, err := s.List(ctx)
	if err != nil {
		slog.Error("queue state publish failed", "error", err)
		return
	}

	s.hub.Publish(entries)
	s.cachePositions(ctx, entries)
}

// cachePositions mirrors each entry's position into Redis with a short
// TTL so position lookups do not rescan the store between changes.
func (s *QueueService) cachePositions(ctx context.Context, entries []models.QueueEntry) {
	if s.redis == nil {
		return
	}
	for i, entry := range entries {
		key := fmt.Sprintf("fila:position:%s", entry.ID)
		if err := s.redis.Set(ctx, key, i+1, s.cfg.PositionTTL).Err(); err != nil {
			slog.Warn("position cache write failed", "entry", entry.ID, "error", err)
			return
		}
	}
}

// NormalizePhone strips non-digits, prefixes the country code when absent
// and returns the +-prefixed E.164-like form. Blank input stays blank.
func NormalizePhone(raw, countryCode string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return ""
	}

	normalized := digits.String()
	if !strings.HasPrefix(normalized, countryCode) {
		normalized = countryCode + normalized
	}
	return "+" + normalized
}

func sortEntries(entries []models.QueueEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].EnqueuedAt < entries[j].EnqueuedAt
	})
}

package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"fila-system/internal/store"
	"fila-system/models"
)

const statsCacheKey = "fila:stats"

// StatsService derives a StatsSnapshot from the service log. Every
// computation re-scans the full log; there is no incrementally maintained
// aggregate. The HTTP path goes through a short-TTL Redis cache so a
// dashboard polling every few seconds does not rescan on each hit.
type StatsService struct {
	log      store.ServiceLog
	redis    *redis.Client
	window   int
	cacheTTL time.Duration
	now      func() time.Time
}

// NewStatsService builds an aggregator over the given log. redisClient
// may be nil, in which case snapshots are always recomputed.
func NewStatsService(serviceLog store.ServiceLog, redisClient *redis.Client, window int, cacheTTL time.Duration) *StatsService {
	return &StatsService{
		log:      serviceLog,
		redis:    redisClient,
		window:   window,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// Compute scans the full service log and aggregates it against the
// current local time:
//
//   - servicedToday counts records on or after local midnight
//   - the average is the mean of the last `window` duration-bearing
//     records, across all days, or 0 when there are none
//   - the histogram and peak hour are filled only when requested and
//     when anything was serviced today
func (s *StatsService) Compute(ctx context.Context, includeHistogram bool) (models.StatsSnapshot, error) {
	records, err := s.log.Records(ctx)
	if err != nil {
		return models.StatsSnapshot{}, err
	}

	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).UnixMilli()

	snapshot := models.StatsSnapshot{
		HourlyHistogram: []models.HourlyCount{},
		PeakHour:        -1,
	}

	var today []models.ServiceRecord
	for _, r := range records {
		if r.ServicedAt >= startOfDay {
			today = append(today, r)
		}
	}
	snapshot.ServicedToday = len(today)

	sum := decimal.Zero
	n := 0
	for i := len(records) - 1; i >= 0 && n < s.window; i-- {
		if records[i].ServiceDurationMs < 0 {
			continue
		}
		sum = sum.Add(decimal.NewFromInt(records[i].ServiceDurationMs))
		n++
	}
	if n > 0 {
		avg, _ := sum.Div(decimal.NewFromInt(int64(n))).Float64()
		snapshot.AverageServiceDurationMs = avg
	}

	if includeHistogram && snapshot.ServicedToday > 0 {
		counts := make([]int, 24)
		for _, r := range today {
			h := time.UnixMilli(r.ServicedAt).In(now.Location()).Hour()
			counts[h]++
		}

		hist := make([]models.HourlyCount, 0, 24)
		peakHour, peakCount := -1, 0
		for h, c := range counts {
			hist = append(hist, models.HourlyCount{Hour: h, Count: c})
			if c > peakCount {
				peakHour, peakCount = h, c
			}
		}
		snapshot.HourlyHistogram = hist
		snapshot.PeakHour = peakHour
	}

	return snapshot, nil
}

// Snapshot returns the full snapshot (histogram included), served from
// the Redis cache when fresh.
func (s *StatsService) Snapshot(ctx context.Context) (models.StatsSnapshot, error) {
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, statsCacheKey).Bytes()
		if err == nil {
			var snapshot models.StatsSnapshot
			if err := json.Unmarshal(cached, &snapshot); err == nil {
				return snapshot, nil
			}
		} else if err != redis.Nil {
			slog.Warn("stats cache read failed", "error", err)
		}
	}

	snapshot, err := s.Compute(ctx, true)
	if err != nil {
		return models.StatsSnapshot{}, err
	}

	if s.redis != nil {
		data, err := json.Marshal(snapshot)
		if err == nil {
			if err := s.redis.Set(ctx, statsCacheKey, data, s.cacheTTL).Err(); err != nil {
				slog.Warn("stats cache write failed", "error", err)
			}
		}
	}

	return snapshot, nil
}

// Invalidate drops the cached snapshot. Called after every dequeue so the
// next poll reflects the new service record.
func (s *StatsService) Invalidate(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, statsCacheKey).Err(); err != nil {
		slog.Warn("stats cache invalidation failed", "error", err)
	}
}

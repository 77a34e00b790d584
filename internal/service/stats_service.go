package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/fieldserve/ticket-tracker/internal/domain"
	"github.com/fieldserve/ticket-tracker/internal/persistence"
	"github.com/fieldserve/ticket-tracker/internal/repository"
	apperrors "github.com/fieldserve/ticket-tracker/pkg/util"
)

const statsCacheKey = "ticket_stats"

// AssigneeStats summarizes one technician's workload.
type AssigneeStats struct {
	Total     int64            `json:"total"`
	PerStatus map[string]int64 `json:"per_status"`
}

// Stats is the point-in-time workload snapshot. Every status in the
// configured vocabulary appears in PerStatus, zero-filled when absent.
// PerAssignee excludes unassigned tickets.
type Stats struct {
	Total       int64                    `json:"total"`
	PerStatus   map[string]int64         `json:"per_status"`
	PerAssignee map[string]AssigneeStats `json:"per_assignee"`
}

// StatsService computes aggregate ticket counts. Snapshots are cached in
// Redis for a short TTL; stats are explicitly eventual-consistent with
// in-flight mutations, so a stale read is acceptable.
type StatsService struct {
	tickets repository.TicketRepository
	cache   *persistence.Redis
	vocab   domain.StatusVocabulary
	ttl     time.Duration
	logger  *zap.Logger
}

// NewStatsService constructs the service.
func NewStatsService(tickets repository.TicketRepository, cache *persistence.Redis, vocab domain.StatusVocabulary, ttl time.Duration, logger *zap.Logger) *StatsService {
	if len(vocab) == 0 {
		vocab = domain.DefaultStatusVocabulary()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{tickets: tickets, cache: cache, vocab: vocab, ttl: ttl, logger: logger}
}

// ComputeStats returns the current snapshot, serving from cache when fresh.
func (s *StatsService) ComputeStats(ctx context.Context) (*Stats, error) {
	if cached := s.fromCache(ctx); cached != nil {
		return cached, nil
	}

	total, err := s.tickets.CountAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	statusCounts, err := s.tickets.CountByStatus(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	assigneeCounts, err := s.tickets.CountByAssigneeStatus(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	stats := &Stats{
		Total:       total,
		PerStatus:   make(map[string]int64, len(s.vocab)),
		PerAssignee: make(map[string]AssigneeStats),
	}
	for _, status := range s.vocab {
		stats.PerStatus[status] = 0
	}
	for _, sc := range statusCounts {
		stats.PerStatus[sc.Status] = sc.Count
	}
	for _, ac := range assigneeCounts {
		entry, ok := stats.PerAssignee[ac.AssignedTo]
		if !ok {
			entry = AssigneeStats{PerStatus: make(map[string]int64)}
		}
		entry.Total += ac.Count
		entry.PerStatus[ac.Status] = ac.Count
		stats.PerAssignee[ac.AssignedTo] = entry
	}

	s.toCache(ctx, stats)
	return stats, nil
}

func (s *StatsService) fromCache(ctx context.Context) *Stats {
	if s.cache == nil || s.cache.Client == nil || s.ttl <= 0 {
		return nil
	}
	raw, err := s.cache.Client.Get(ctx, statsCacheKey).Bytes()
	if err != nil {
		return nil
	}
	var stats Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil
	}
	return &stats
}

func (s *StatsService) toCache(ctx context.Context, stats *Stats) {
	if s.cache == nil || s.cache.Client == nil || s.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.cache.Client.Set(ctx, statsCacheKey, raw, s.ttl).Err(); err != nil {
		s.logger.Debug("stats cache write failed", zap.Error(err))
	}
}

package service

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/events"
	"github.com/spec-kit/repair-service/internal/persistence"
	"github.com/spec-kit/repair-service/internal/repository"
)

const (
	defaultLocationTop = 8
	statsKeyPrefix     = "stats:"
)

// StatsCache stores computed admin statistics. *persistence.Redis implements it.
type StatsCache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// CategoryCount is one bar of the category distribution.
type CategoryCount struct {
	Category domain.TicketCategory `json:"category"`
	Label    string                `json:"label"`
	Count    int                   `json:"count"`
}

// LocationCount is one entry of the location ranking.
type LocationCount struct {
	Location string `json:"location"`
	Count    int    `json:"count"`
}

// Overview summarizes the whole ticket population.
type Overview struct {
	Total                  int                         `json:"total"`
	ByStatus               map[domain.TicketStatus]int `json:"byStatus"`
	AverageProcessingHours float64                     `json:"averageProcessingHours"`
	SatisfactionRate       float64                     `json:"satisfactionRate"`
	RatedOrders            int                         `json:"ratedOrders"`
}

// RepairmanStats is the personal dashboard of one repairman.
type RepairmanStats struct {
	Total         int                         `json:"total"`
	ByStatus      map[domain.TicketStatus]int `json:"byStatus"`
	AverageRating float64                     `json:"averageRating"`
	RatedOrders   int                         `json:"ratedOrders"`
}

// StatisticsService computes dashboard aggregates, caching admin views.
type StatisticsService struct {
	tickets  repository.TicketRepository
	feedback *FeedbackService
	cache    StatsCache
	ttl      time.Duration
	logger   *zap.Logger

	// generation advances on every invalidation. A computation that
	// started before the latest invalidation does not write the cache.
	// Across instances a stale write can still live until the TTL.
	generation atomic.Uint64
}

// StatisticsDependencies bundles collaborators. Cache may be nil.
type StatisticsDependencies struct {
	TicketRepo repository.TicketRepository
	Feedback   *FeedbackService
	Cache      StatsCache
	CacheTTL   time.Duration
	Logger     *zap.Logger
}

// NewStatisticsService builds the service.
func NewStatisticsService(deps StatisticsDependencies) *StatisticsService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatisticsService{
		tickets:  deps.TicketRepo,
		feedback: deps.Feedback,
		cache:    deps.Cache,
		ttl:      deps.CacheTTL,
		logger:   logger,
	}
}

// RegisterHandlers drops cached statistics on every lifecycle event.
func (s *StatisticsService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil || s.cache == nil {
		return
	}
	dispatcher.SubscribeAll(func(ctx context.Context, _ events.Event) error {
		return s.Invalidate(ctx)
	})
}

// Invalidate removes every cached statistic.
func (s *StatisticsService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	s.generation.Add(1)
	return s.cache.DeletePrefix(ctx, statsKeyPrefix)
}

// CategoryDistribution counts tickets per category, in category table order.
func (s *StatisticsService) CategoryDistribution(ctx context.Context) ([]CategoryCount, error) {
	return cached(ctx, s, "category", func(tickets []domain.Ticket) ([]CategoryCount, error) {
		return countCategories(tickets), nil
	})
}

// LocationRanking returns the top locations by ticket count.
func (s *StatisticsService) LocationRanking(ctx context.Context, top int) ([]LocationCount, error) {
	if top <= 0 {
		top = defaultLocationTop
	}
	all, err := cached(ctx, s, "location", func(tickets []domain.Ticket) ([]LocationCount, error) {
		return rankLocations(tickets), nil
	})
	if err != nil {
		return nil, err
	}
	if len(all) > top {
		all = all[:top]
	}
	return all, nil
}

// RepairmanRanking ranks repairmen by average rating.
func (s *StatisticsService) RepairmanRanking(ctx context.Context) ([]RepairmanRating, error) {
	key := statsKeyPrefix + "repairman-rating"
	var out []RepairmanRating
	if s.readCache(ctx, key, &out) {
		return out, nil
	}
	gen := s.generation.Load()
	out, err := s.feedback.RepairmanRatings(ctx)
	if err != nil {
		return nil, err
	}
	s.writeCache(ctx, key, out, gen)
	return out, nil
}

// Overview summarizes totals, processing time and satisfaction.
func (s *StatisticsService) Overview(ctx context.Context) (Overview, error) {
	return cached(ctx, s, "overview", func(tickets []domain.Ticket) (Overview, error) {
		return summarize(tickets), nil
	})
}

// ForRepairman computes the personal statistics of one repairman. It is not cached.
func (s *StatisticsService) ForRepairman(ctx context.Context, repairmanID int64) (RepairmanStats, error) {
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{RepairmanID: &repairmanID})
	if err != nil {
		return RepairmanStats{}, storeError(err)
	}
	stats := RepairmanStats{Total: len(tickets), ByStatus: emptyStatusCounts()}
	sum := 0
	for _, t := range tickets {
		stats.ByStatus[t.Status]++
		if t.Rating != nil {
			sum += *t.Rating
			stats.RatedOrders++
		}
	}
	if stats.RatedOrders > 0 {
		stats.AverageRating = roundTenth(float64(sum) / float64(stats.RatedOrders))
	}
	return stats, nil
}

func cached[T any](ctx context.Context, s *StatisticsService, name string, compute func([]domain.Ticket) (T, error)) (T, error) {
	key := statsKeyPrefix + name
	var out T
	if s.readCache(ctx, key, &out) {
		return out, nil
	}
	gen := s.generation.Load()
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{})
	if err != nil {
		return out, storeError(err)
	}
	out, err = compute(tickets)
	if err != nil {
		return out, err
	}
	s.writeCache(ctx, key, out, gen)
	return out, nil
}

func (s *StatisticsService) readCache(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	err := s.cache.GetJSON(ctx, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, persistence.ErrCacheMiss) {
		s.logger.Warn("stats cache read failed", zap.String("key", key), zap.Error(err))
	}
	return false
}

func (s *StatisticsService) writeCache(ctx context.Context, key string, value any, gen uint64) {
	if s.cache == nil || s.ttl <= 0 {
		return
	}
	if s.generation.Load() != gen {
		s.logger.Debug("stats invalidated during computation, not caching", zap.String("key", key))
		return
	}
	if err := s.cache.SetJSON(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("stats cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func countCategories(tickets []domain.Ticket) []CategoryCount {
	counts := map[domain.TicketCategory]int{}
	for _, t := range tickets {
		counts[t.Category]++
	}
	out := make([]CategoryCount, 0, len(counts))
	for _, category := range domain.Categories() {
		info, _ := domain.DescribeCategory(category)
		out = append(out, CategoryCount{Category: category, Label: info.Label, Count: counts[category]})
	}
	return out
}

func rankLocations(tickets []domain.Ticket) []LocationCount {
	counts := map[string]int{}
	for _, t := range tickets {
		counts[t.Location]++
	}
	out := make([]LocationCount, 0, len(counts))
	for location, count := range counts {
		out = append(out, LocationCount{Location: location, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Location < out[j].Location
	})
	return out
}

func summarize(tickets []domain.Ticket) Overview {
	ov := Overview{Total: len(tickets), ByStatus: emptyStatusCounts()}
	var processing time.Duration
	processed, satisfied := 0, 0
	for _, t := range tickets {
		ov.ByStatus[t.Status]++
		if t.AssignedAt != nil && t.CompletedAt != nil {
			processing += t.CompletedAt.Sub(*t.AssignedAt)
			processed++
		}
		if t.Rating != nil {
			ov.RatedOrders++
			if *t.Rating >= 4 {
				satisfied++
			}
		}
	}
	if processed > 0 {
		ov.AverageProcessingHours = roundTenth(processing.Hours() / float64(processed))
	}
	if ov.RatedOrders > 0 {
		ov.SatisfactionRate = roundTenth(float64(satisfied) * 100 / float64(ov.RatedOrders))
	}
	return ov
}

func emptyStatusCounts() map[domain.TicketStatus]int {
	counts := map[domain.TicketStatus]int{}
	for _, status := range domain.Statuses() {
		counts[status] = 0
	}
	return counts
}

// Package dashboard aggregates headline numbers for the staff home page.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
)

// Stats is the dashboard payload.
type Stats struct {
	TotalClients      int64   `json:"totalClients"`
	ActiveJobs        int64   `json:"activeJobs"`
	ApplicationsToday int64   `json:"applicationsToday"`
	PlacedClients     int64   `json:"placedClients"`
	PlacementRate     float64 `json:"placementRate"`
}

// Counter runs the underlying counts.
type Counter interface {
	CountClients(ctx context.Context) (int64, error)
	CountPlacedClients(ctx context.Context) (int64, error)
	CountActiveJobs(ctx context.Context) (int64, error)
	CountApplicationsOn(ctx context.Context, day time.Time) (int64, error)
}

// Service computes dashboard stats.
type Service struct {
	counter Counter
	cache   *Cache
	logger  *slog.Logger
	now     func() time.Time
}

// NewService builds Service instance. cache may be nil.
func NewService(counter Counter, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		counter: counter,
		cache:   cache,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Stats returns the current figures, served from cache when fresh.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	today := s.today()
	var out Stats
	err := s.cache.FetchJSON(ctx, statsKey(today), &out, func(ctx context.Context) (any, error) {
		return s.compute(ctx, today)
	})
	return out, err
}

// Invalidate drops today's cached figures so the next Stats call recounts.
func (s *Service) Invalidate(ctx context.Context) {
	key := statsKey(s.today())
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "dashboard cache invalidate", slog.String("key", key), slog.Any("error", err))
	}
}

func (s *Service) today() time.Time {
	return s.now().Truncate(24 * time.Hour)
}

func statsKey(day time.Time) string {
	return "dashboard:stats:" + day.Format("2006-01-02")
}

func (s *Service) compute(ctx context.Context, today time.Time) (Stats, error) {
	var stats Stats
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.counter.CountClients(ctx)
		if err != nil {
			return fmt.Errorf("count clients: %w", err)
		}
		stats.TotalClients = n
		return nil
	})
	g.Go(func() error {
		n, err := s.counter.CountPlacedClients(ctx)
		if err != nil {
			return fmt.Errorf("count placed clients: %w", err)
		}
		stats.PlacedClients = n
		return nil
	})
	g.Go(func() error {
		n, err := s.counter.CountActiveJobs(ctx)
		if err != nil {
			return fmt.Errorf("count active jobs: %w", err)
		}
		stats.ActiveJobs = n
		return nil
	})
	g.Go(func() error {
		n, err := s.counter.CountApplicationsOn(ctx, today)
		if err != nil {
			return fmt.Errorf("count applications: %w", err)
		}
		stats.ApplicationsToday = n
		return nil
	})

	if err := g.Wait(); err != nil {
		return Stats{}, fmt.Errorf("dashboard: %w", err)
	}
	stats.PlacementRate = PlacementRate(stats.PlacedClients, stats.TotalClients)
	return stats, nil
}

// PlacementRate is placed over total as a percentage rounded to one decimal.
// It is 0 when there are no clients.
func PlacementRate(placed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(placed)*1000/float64(total)) / 10
}

// Package schedule answers day, range and whole-term schedule queries on top of
// the portal's per-week schedule endpoint.
package schedule

import (
	"context"
	"errors"
	"time"

	"kgeu-bot/internal/calendar"
	"kgeu-bot/internal/models"
	"kgeu-bot/internal/portal"
	"kgeu-bot/pkg/logger"

	"go.uber.org/zap"
)

const (
	// DefaultLastWeek is the last academic week included in exports.
	DefaultLastWeek = 30

	defaultWorkers = 4
)

// WeekFetcher fetches the entries of one academic week.
type WeekFetcher interface {
	ScheduleWeek(ctx context.Context, token string, week int) ([]models.ScheduleEntry, error)
}

type Service struct {
	fetcher  WeekFetcher
	resolver *calendar.Resolver
	lastWeek int
	workers  int
	log      *zap.Logger
}

type Option func(*Service)

// WithLastWeek sets the last week included in exports.
func WithLastWeek(week int) Option {
	return func(s *Service) {
		if week > 0 {
			s.lastWeek = week
		}
	}
}

// WithWorkers bounds the number of concurrent week fetches during export.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

func NewService(fetcher WeekFetcher, resolver *calendar.Resolver, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		fetcher:  fetcher,
		resolver: resolver,
		lastWeek: DefaultLastWeek,
		workers:  defaultWorkers,
		log:      logger.OrNop(log).Named("schedule"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolver exposes the week resolver the service works with.
func (s *Service) Resolver() *calendar.Resolver {
	return s.resolver
}

// ForDay returns the classes of the given calendar date.
//
// The portal's week boundary sits one day off: the date is taken at local
// midnight, shifted forward by one day, and both the week lookup and the
// entry filter (by UTC calendar date) use the shifted instant.
func (s *Service) ForDay(ctx context.Context, token string, date time.Time) []models.ScheduleEntry {
	target := s.resolver.Day(date).AddDate(0, 0, 1)
	week := s.resolver.WeekIndex(target)

	entries := s.fetchWeek(ctx, token, week)
	if len(entries) == 0 {
		return nil
	}

	day := target.UTC().Format("2006-01-02")
	var out []models.ScheduleEntry
	for _, e := range entries {
		if e.Day() == day {
			out = append(out, e)
		}
	}
	return out
}

// ForRange concatenates ForDay for every day in [start, end], in date order.
func (s *Service) ForRange(ctx context.Context, token string, start, end time.Time) []models.ScheduleEntry {
	var out []models.ScheduleEntry
	last := s.resolver.Day(end)
	for d := s.resolver.Day(start); !d.After(last); d = d.AddDate(0, 0, 1) {
		out = append(out, s.ForDay(ctx, token, d)...)
	}
	return out
}

// ForWeek returns Monday through Sunday of the week containing now.
func (s *Service) ForWeek(ctx context.Context, token string, now time.Time) []models.ScheduleEntry {
	monday, sunday := s.resolver.WeekBounds(now)
	return s.ForRange(ctx, token, monday, sunday)
}

// fetchWeek collapses remote failures into "no data"; the cause is only logged.
func (s *Service) fetchWeek(ctx context.Context, token string, week int) []models.ScheduleEntry {
	entries, err := s.fetcher.ScheduleWeek(ctx, token, week)
	if err != nil {
		level := zap.WarnLevel
		if errors.Is(err, context.Canceled) {
			level = zap.DebugLevel
		}
		if ce := s.log.Check(level, "week fetch failed, treating as empty"); ce != nil {
			ce.Write(zap.Int(logger.FieldWeek, week), zap.Bool("remote_unavailable", errors.Is(err, portal.ErrRemoteUnavailable)), zap.Error(err))
		}
		return nil
	}
	if len(entries) == 0 {
		s.log.Debug("week is empty", zap.Int(logger.FieldWeek, week))
	}
	return entries
}

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"domu/internal/domain"
)

// QueryService serves the derived read models (calendar, financial summary)
// with a cache-aside layer in front of the repositories.
type QueryService struct {
	props    domain.PropertyRepository
	rules    domain.PricingRuleRepository
	costs    domain.CostRepository
	bookings domain.BookingRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(
	props domain.PropertyRepository,
	rules domain.PricingRuleRepository,
	costs domain.CostRepository,
	bookings domain.BookingRepository,
	cache domain.Cache,
	ttl time.Duration,
) *QueryService {
	return &QueryService{props: props, rules: rules, costs: costs, bookings: bookings, cache: cache, cacheTTL: ttl}
}

func calendarKey(propertyID uuid.UUID, start, end time.Time) string {
	return fmt.Sprintf("calendar:%s:%s:%s",
		propertyID, start.Format(domain.DateLayout), end.Format(domain.DateLayout))
}

func summaryKey(propertyID uuid.UUID, year int, month time.Month) string {
	return fmt.Sprintf("finsum:%s:%d-%02d", propertyID, year, int(month))
}

// Calendar returns one CalendarDay per date in [start, end] inclusive.
func (s *QueryService) Calendar(ctx context.Context, propertyID uuid.UUID, start, end time.Time) ([]domain.CalendarDay, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end_date before start_date", domain.ErrValidation)
	}

	key := calendarKey(propertyID, start, end)
	var cached []domain.CalendarDay
	if ok, _ := s.cache.Get(ctx, key, &cached); ok {
		return cached, nil
	}

	prop, err := s.props.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	rules, err := s.rules.ListRules(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	costs, err := s.costs.ListCosts(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	bookings, err := s.bookings.ListBookingsByProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	days := domain.BuildCalendar(prop, rules, costs, bookings, start, end)
	_ = s.cache.Set(ctx, key, days, int(s.cacheTTL.Seconds()))
	return days, nil
}

// FinancialSummary aggregates one month of income, costs and occupancy.
func (s *QueryService) FinancialSummary(ctx context.Context, propertyID uuid.UUID, year int, month time.Month) (domain.FinancialSummary, error) {
	key := summaryKey(propertyID, year, month)
	var cached domain.FinancialSummary
	if ok, _ := s.cache.Get(ctx, key, &cached); ok {
		return cached, nil
	}

	prop, err := s.props.GetProperty(ctx, propertyID)
	if err != nil {
		return domain.FinancialSummary{}, err
	}
	rules, err := s.rules.ListRules(ctx, propertyID)
	if err != nil {
		return domain.FinancialSummary{}, err
	}
	costs, err := s.costs.ListCosts(ctx, propertyID)
	if err != nil {
		return domain.FinancialSummary{}, err
	}
	bookings, err := s.bookings.ListBookingsByProperty(ctx, propertyID)
	if err != nil {
		return domain.FinancialSummary{}, err
	}

	sum := domain.Summarize(prop, rules, costs, bookings, year, month)
	_ = s.cache.Set(ctx, key, sum, int(s.cacheTTL.Seconds()))
	return sum, nil
}

// Invalidate drops the cached months touched by a write. The frontend asks
// for month-aligned calendar windows, so those are the variants worth
// clearing; odd windows simply age out with the TTL (stale-but-consistent
// reads are acceptable here).
func (s *QueryService) Invalidate(ctx context.Context, propertyID uuid.UUID, from, to time.Time) {
	from, to = domain.Date(from), domain.Date(to)
	if to.Before(from) {
		return
	}
	for m := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC); !m.After(to); m = m.AddDate(0, 1, 0) {
		_, next, _ := domain.MonthBounds(m.Year(), m.Month())
		_ = s.cache.Del(ctx, summaryKey(propertyID, m.Year(), m.Month()))
		_ = s.cache.Del(ctx, calendarKey(propertyID, m, next.AddDate(0, 0, -1)))
	}
}

// InvalidateOpenEnded clears a write whose effect has no upper bound (base
// price or cost modified with a future effective date). One year ahead
// covers every window the dashboard renders.
func (s *QueryService) InvalidateOpenEnded(ctx context.Context, propertyID uuid.UUID, from time.Time) {
	s.Invalidate(ctx, propertyID, from, from.AddDate(1, 0, 0))
}

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"domu/internal/adapters/observability"
	"domu/internal/domain"
)

// SyncService pulls OTA iCal feeds and mirrors their events as bookings.
// External events are matched by iCal UID: new UIDs insert, known UIDs
// update dates/status, and a CANCELLED event cancels the mirrored booking.
type SyncService struct {
	client   domain.FeedClient
	bookings domain.BookingRepository
	q        *QueryService

	now func() time.Time
}

func NewSyncService(client domain.FeedClient, bookings domain.BookingRepository, q *QueryService) *SyncService {
	return &SyncService{client: client, bookings: bookings, q: q, now: time.Now}
}

// SyncFeed fetches one feed and upserts its events. Per-event failures are
// logged and skipped so a single bad VEVENT does not abort the feed.
func (s *SyncService) SyncFeed(ctx context.Context, feed domain.Feed) error {
	events, err := s.client.FetchFeed(ctx, feed.URL)
	if err != nil {
		return fmt.Errorf("fetch feed %s: %w", feed.URL, err)
	}

	synced := 0
	for _, ev := range events {
		if err := s.upsertEvent(ctx, feed, ev); err != nil {
			log.Warn().Err(err).Str("uid", ev.UID).Str("source", string(feed.Source)).Msg("event sync failed")
			observability.ObserveFeedEvent(string(feed.Source), "skipped")
			continue
		}
		observability.ObserveFeedEvent(string(feed.Source), "synced")
		synced++
	}
	log.Info().
		Str("property", feed.PropertyID.String()).
		Str("source", string(feed.Source)).
		Int("events", len(events)).
		Int("synced", synced).
		Msg("feed synced")
	return nil
}

func (s *SyncService) upsertEvent(ctx context.Context, feed domain.Feed, ev domain.FeedEvent) error {
	if ev.UID == "" {
		return fmt.Errorf("%w: event without UID", domain.ErrValidation)
	}
	if !domain.Date(ev.Start).Before(domain.Date(ev.End)) {
		return fmt.Errorf("%w: event %s has an empty stay", domain.ErrValidation, ev.UID)
	}
	status := ev.Status
	if status == "" {
		status = domain.BookingConfirmed
	}

	syncedAt := s.now()
	existing, err := s.bookings.GetBookingByICalUID(ctx, ev.UID)
	switch {
	case err == nil:
		changed := !domain.Date(existing.CheckIn).Equal(domain.Date(ev.Start)) ||
			!domain.Date(existing.CheckOut).Equal(domain.Date(ev.End)) ||
			existing.Status != status
		existing.CheckIn, existing.CheckOut = domain.Date(ev.Start), domain.Date(ev.End)
		if existing.Status != status && existing.Status.CanTransitionTo(status) {
			existing.Status = status
		}
		if ev.Summary != "" {
			existing.Summary = ev.Summary
		}
		existing.LastSyncedAt = &syncedAt
		if err := s.bookings.UpdateBooking(ctx, existing); err != nil {
			return err
		}
		if changed && s.q != nil {
			s.q.Invalidate(ctx, feed.PropertyID, existing.CheckIn, existing.CheckOut)
		}
		return nil

	case errors.Is(err, domain.ErrNotFound):
		// Feeds for the same property legitimately republish each other's
		// blocks; an overlapping external event is recorded anyway and left
		// to the operator, so no conflict check here.
		summary := ev.Summary
		if summary == "" {
			summary = fmt.Sprintf("%s import", feed.Source)
		}
		externalID := ev.UID
		icalURL := feed.URL
		b := domain.Booking{
			ICalUID:      ev.UID,
			PropertyID:   feed.PropertyID,
			CheckIn:      domain.Date(ev.Start),
			CheckOut:     domain.Date(ev.End),
			Summary:      summary,
			Status:       status,
			Source:       feed.Source,
			ExternalID:   &externalID,
			ICalURL:      &icalURL,
			LastSyncedAt: &syncedAt,
		}
		b.ID = uuid.New()
		if err := s.bookings.CreateBooking(ctx, b); err != nil {
			return err
		}
		if s.q != nil {
			s.q.Invalidate(ctx, feed.PropertyID, b.CheckIn, b.CheckOut)
		}
		return nil

	default:
		return err
	}
}

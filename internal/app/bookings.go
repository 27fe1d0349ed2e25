package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"domu/internal/domain"
)

const icalDomain = "domu.app"

// BookingService enforces the booking lifecycle and the no-double-booking
// rule: a new or re-dated stay must not overlap any CONFIRMED or TENTATIVE
// stay of the same property.
type BookingService struct {
	bookings domain.BookingRepository
	props    domain.PropertyRepository
	q        *QueryService

	now func() time.Time
}

func NewBookingService(bookings domain.BookingRepository, props domain.PropertyRepository, q *QueryService) *BookingService {
	return &BookingService{bookings: bookings, props: props, q: q, now: time.Now}
}

func (s *BookingService) Create(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	if _, err := s.props.GetProperty(ctx, b.PropertyID); err != nil {
		return domain.Booking{}, err
	}
	if !domain.Date(b.CheckIn).Before(domain.Date(b.CheckOut)) {
		return domain.Booking{}, fmt.Errorf("%w: check-in must be before check-out", domain.ErrValidation)
	}
	if b.Status == "" {
		b.Status = domain.BookingConfirmed
	}
	if b.Source == "" {
		b.Source = domain.SourceManual
	}
	if !domain.ValidBookingStatus(b.Status) || !domain.ValidBookingSource(b.Source) {
		return domain.Booking{}, fmt.Errorf("%w: unknown booking status or source", domain.ErrValidation)
	}

	conflicts, err := s.bookings.FindConflicts(ctx, b.PropertyID, b.CheckIn, b.CheckOut, nil)
	if err != nil {
		return domain.Booking{}, err
	}
	if len(conflicts) > 0 {
		return domain.Booking{}, fmt.Errorf("%w: dates overlap %d existing booking(s)", domain.ErrConflict, len(conflicts))
	}

	b.ID = uuid.New()
	if b.ICalUID == "" {
		b.ICalUID = fmt.Sprintf("%s@%s", b.ID, icalDomain)
	}
	b.CheckIn, b.CheckOut = domain.Date(b.CheckIn), domain.Date(b.CheckOut)
	if err := s.bookings.CreateBooking(ctx, b); err != nil {
		return domain.Booking{}, err
	}
	s.invalidateStay(ctx, b)
	return b, nil
}

func (s *BookingService) Get(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	return s.bookings.GetBooking(ctx, id)
}

func (s *BookingService) List(ctx context.Context) ([]domain.Booking, error) {
	return s.bookings.ListBookings(ctx)
}

func (s *BookingService) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]domain.Booking, error) {
	if _, err := s.props.GetProperty(ctx, propertyID); err != nil {
		return nil, err
	}
	return s.bookings.ListBookingsByProperty(ctx, propertyID)
}

// Update re-dates or re-labels a booking. Status changes must follow the
// lifecycle; date changes are re-checked for conflicts excluding the booking
// itself.
func (s *BookingService) Update(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	existing, err := s.bookings.GetBooking(ctx, b.ID)
	if err != nil {
		return domain.Booking{}, err
	}

	if b.CheckIn.IsZero() {
		b.CheckIn = existing.CheckIn
	}
	if b.CheckOut.IsZero() {
		b.CheckOut = existing.CheckOut
	}
	if !domain.Date(b.CheckIn).Before(domain.Date(b.CheckOut)) {
		return domain.Booking{}, fmt.Errorf("%w: check-in must be before check-out", domain.ErrValidation)
	}
	if b.Status == "" {
		b.Status = existing.Status
	}
	if b.Status != existing.Status && !existing.Status.CanTransitionTo(b.Status) {
		return domain.Booking{}, fmt.Errorf("%w: cannot move booking from %s to %s", domain.ErrConflict, existing.Status, b.Status)
	}
	if b.Summary == "" {
		b.Summary = existing.Summary
	}
	if b.Source == "" {
		b.Source = existing.Source
	}

	datesChanged := !domain.Date(b.CheckIn).Equal(domain.Date(existing.CheckIn)) ||
		!domain.Date(b.CheckOut).Equal(domain.Date(existing.CheckOut))
	if datesChanged && b.Status != domain.BookingCancelled {
		conflicts, err := s.bookings.FindConflicts(ctx, existing.PropertyID, b.CheckIn, b.CheckOut, &b.ID)
		if err != nil {
			return domain.Booking{}, err
		}
		if len(conflicts) > 0 {
			return domain.Booking{}, fmt.Errorf("%w: dates overlap %d existing booking(s)", domain.ErrConflict, len(conflicts))
		}
	}

	b.PropertyID = existing.PropertyID
	b.ICalUID = existing.ICalUID
	b.GuestID = existing.GuestID
	b.CheckIn, b.CheckOut = domain.Date(b.CheckIn), domain.Date(b.CheckOut)
	if err := s.bookings.UpdateBooking(ctx, b); err != nil {
		return domain.Booking{}, err
	}
	s.invalidateStay(ctx, existing)
	s.invalidateStay(ctx, b)
	return b, nil
}

// Accept confirms a tentative hold.
func (s *BookingService) Accept(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	return s.transition(ctx, id, domain.BookingConfirmed)
}

// Cancel releases a confirmed or tentative stay. CANCELLED is terminal.
func (s *BookingService) Cancel(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	return s.transition(ctx, id, domain.BookingCancelled)
}

func (s *BookingService) transition(ctx context.Context, id uuid.UUID, next domain.BookingStatus) (domain.Booking, error) {
	b, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return domain.Booking{}, err
	}
	if !b.Status.CanTransitionTo(next) {
		return domain.Booking{}, fmt.Errorf("%w: cannot move booking from %s to %s", domain.ErrConflict, b.Status, next)
	}
	b.Status = next
	if err := s.bookings.UpdateBooking(ctx, b); err != nil {
		return domain.Booking{}, err
	}
	s.invalidateStay(ctx, b)
	return b, nil
}

// Delete hard-deletes a booking; only cancelled bookings may go. Cancel
// first, then delete.
func (s *BookingService) Delete(ctx context.Context, id uuid.UUID) error {
	b, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if b.Status != domain.BookingCancelled {
		return fmt.Errorf("%w: only cancelled bookings can be deleted", domain.ErrConflict)
	}
	if err := s.bookings.DeleteBooking(ctx, id); err != nil {
		return err
	}
	s.invalidateStay(ctx, b)
	return nil
}

func (s *BookingService) invalidateStay(ctx context.Context, b domain.Booking) {
	if s.q != nil {
		s.q.Invalidate(ctx, b.PropertyID, b.CheckIn, b.CheckOut)
	}
}

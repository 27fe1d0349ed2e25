package domain

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingTentative BookingStatus = "TENTATIVE"
	BookingCancelled BookingStatus = "CANCELLED"
)

type BookingSource string

const (
	SourceAirbnb  BookingSource = "AIRBNB"
	SourceBooking BookingSource = "BOOKING"
	SourceDomu    BookingSource = "DOMU"
	SourceManual  BookingSource = "MANUAL"
)

// Booking is a half-open stay: CheckIn inclusive, CheckOut exclusive, so a
// checkout day is free for a new check-in.
type Booking struct {
	ID         uuid.UUID
	ICalUID    string
	PropertyID uuid.UUID
	GuestID    *uuid.UUID

	CheckIn  time.Time
	CheckOut time.Time

	Summary     string
	Description *string
	Status      BookingStatus
	Source      BookingSource

	// External sync metadata (OTA feeds).
	ExternalID   *string
	ICalURL      *string
	LastSyncedAt *time.Time

	CreatedAt time.Time
	UpdatedAt *time.Time
}

// Covers reports whether the stay occupies the night of d.
func (b Booking) Covers(d time.Time) bool {
	d = Date(d)
	return !d.Before(Date(b.CheckIn)) && d.Before(Date(b.CheckOut))
}

// Overlaps reports whether the stay intersects the half-open range
// [start, end).
func (b Booking) Overlaps(start, end time.Time) bool {
	return Date(b.CheckIn).Before(Date(end)) && Date(b.CheckOut).After(Date(start))
}

// Nights is the number of occupied nights.
func (b Booking) Nights() int {
	return DaysBetween(b.CheckIn, b.CheckOut)
}

// CanTransitionTo enforces the booking lifecycle:
// TENTATIVE -> CONFIRMED or CANCELLED, CONFIRMED -> CANCELLED,
// CANCELLED is terminal.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingTentative:
		return next == BookingConfirmed || next == BookingCancelled
	case BookingConfirmed:
		return next == BookingCancelled
	default:
		return false
	}
}

func ValidBookingStatus(s BookingStatus) bool {
	switch s {
	case BookingConfirmed, BookingTentative, BookingCancelled:
		return true
	}
	return false
}

func ValidBookingSource(s BookingSource) bool {
	switch s {
	case SourceAirbnb, SourceBooking, SourceDomu, SourceManual:
		return true
	}
	return false
}

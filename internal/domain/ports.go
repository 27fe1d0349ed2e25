package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PropertyRepository interface {
	// CreateProperty inserts the property together with the root revision of
	// its base-price chain in one transaction, so a property can never exist
	// without an open revision.
	CreateProperty(ctx context.Context, p Property, root BasePrice) error
	GetProperty(ctx context.Context, id uuid.UUID) (Property, error)
	ListProperties(ctx context.Context) ([]Property, error)
	UpdateProperty(ctx context.Context, p Property) error
	DeactivateProperty(ctx context.Context, id uuid.UUID) error
	ListFeeds(ctx context.Context) ([]Feed, error)
}

type BookingRepository interface {
	CreateBooking(ctx context.Context, b Booking) error
	GetBooking(ctx context.Context, id uuid.UUID) (Booking, error)
	GetBookingByICalUID(ctx context.Context, uid string) (Booking, error)
	ListBookings(ctx context.Context) ([]Booking, error)
	ListBookingsByProperty(ctx context.Context, propertyID uuid.UUID) ([]Booking, error)
	// FindConflicts returns CONFIRMED/TENTATIVE bookings of the property
	// whose half-open [check_in, check_out) range intersects [start, end),
	// excluding excludeID when non-nil.
	FindConflicts(ctx context.Context, propertyID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]Booking, error)
	UpdateBooking(ctx context.Context, b Booking) error
	DeleteBooking(ctx context.Context, id uuid.UUID) error
}

type PricingRuleRepository interface {
	CreateRule(ctx context.Context, r PricingRule) error
	GetRule(ctx context.Context, id uuid.UUID) (PricingRule, error)
	ListRules(ctx context.Context, propertyID uuid.UUID) ([]PricingRule, error)
	UpdateRule(ctx context.Context, r PricingRule) error
	DeleteRule(ctx context.Context, id uuid.UUID) error
}

// BasePriceRepository manages the base-price revision chain. Modify and
// Revert are atomic: the storage layer serializes concurrent calls against
// the same chain (row locks on the chain inside one transaction) so the
// single-open-revision invariant survives racing writers.
type BasePriceRepository interface {
	// CurrentBasePrice returns the open-ended active revision.
	CurrentBasePrice(ctx context.Context, propertyID uuid.UUID) (BasePrice, error)
	// BasePriceHistory returns every revision of the property's chain in
	// chronological order; the last element is the current one.
	BasePriceHistory(ctx context.Context, propertyID uuid.UUID) ([]BasePrice, error)
	// ModifyBasePrice closes the current revision at startDate-1, inserts a
	// new open revision and syncs the property's denormalized base_price.
	ModifyBasePrice(ctx context.Context, propertyID uuid.UUID, value decimal.Decimal, startDate time.Time) (BasePrice, error)
	// RevertBasePrice removes the newest revision and reopens the previous
	// one. ErrNotFound when the chain has a single revision.
	RevertBasePrice(ctx context.Context, propertyID uuid.UUID) (BasePrice, error)
}

type CostRepository interface {
	CreateCost(ctx context.Context, c Cost) error
	GetCost(ctx context.Context, id uuid.UUID) (Cost, error)
	// ListCosts returns the current active revision of every cost concept of
	// the property.
	ListCosts(ctx context.Context, propertyID uuid.UUID) ([]Cost, error)
	UpdateCost(ctx context.Context, c Cost) error
	// SoftDeleteCost deactivates the cost concept.
	SoftDeleteCost(ctx context.Context, id uuid.UUID) error
	// CostHistory returns every revision of the cost's chain chronologically.
	CostHistory(ctx context.Context, costID uuid.UUID) ([]Cost, error)
	// ModifyCost and RevertCost mirror the base-price versioning contract,
	// keyed by any revision id of the chain.
	ModifyCost(ctx context.Context, costID uuid.UUID, value decimal.Decimal, startDate time.Time) (Cost, error)
	RevertCost(ctx context.Context, costID uuid.UUID) (Cost, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// FeedEvent is one VEVENT pulled from an OTA iCal feed.
type FeedEvent struct {
	UID     string
	Start   time.Time
	End     time.Time
	Summary string
	Status  BookingStatus
}

type FeedClient interface {
	FetchFeed(ctx context.Context, url string) ([]FeedEvent, error)
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Property struct {
	ID      uuid.UUID
	Name    string
	Address string
	Lat     *float64
	Lon     *float64

	// BasePrice is the denormalized current nightly rate; the authoritative
	// value lives in the base-price revision chain and is kept in sync by
	// modify/revert.
	BasePrice   decimal.Decimal
	AvgStayDays int
	Active      bool

	CreatedAt time.Time
	UpdatedAt *time.Time
}

// Feed is an external OTA calendar subscribed for a property.
type Feed struct {
	PropertyID uuid.UUID
	Source     BookingSource
	URL        string
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BasePrice is one revision of a property's nightly base price.
// Invariant: per property, exactly one revision is open-ended
// (EndDate nil) at any time outside the atomic swap of a modify.
type BasePrice struct {
	ID         uuid.UUID
	PropertyID uuid.UUID
	Value      decimal.Decimal
	Active     bool

	StartDate   *time.Time // nil = since beginning
	EndDate     *time.Time // nil = open-ended, currently effective
	RootPriceID *uuid.UUID // nil = this revision is the root

	CreatedAt time.Time
	UpdatedAt *time.Time
}

// RootID returns the id of the root revision of this price chain.
func (p BasePrice) RootID() uuid.UUID {
	if p.RootPriceID != nil {
		return *p.RootPriceID
	}
	return p.ID
}

// EffectiveOn reports whether this revision's range contains d.
func (p BasePrice) EffectiveOn(d time.Time) bool {
	d = Date(d)
	if p.StartDate != nil && d.Before(Date(*p.StartDate)) {
		return false
	}
	if p.EndDate != nil && d.After(Date(*p.EndDate)) {
		return false
	}
	return true
}

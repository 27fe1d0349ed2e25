package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CostCategory string

const (
	CostRecurringMonthly CostCategory = "RECURRING_MONTHLY"
	CostRecurringDaily   CostCategory = "RECURRING_DAILY"
	CostPerReservation   CostCategory = "PER_RESERVATION"
)

type CostCalculationType string

const (
	CalcFixedAmount CostCalculationType = "FIXED_AMOUNT"
	CalcPercentage  CostCalculationType = "PERCENTAGE"
)

// Cost is one revision of a recurring or per-reservation cost concept.
// Revisions share the versioning pattern of BasePrice: the root revision has
// RootCostID nil, later revisions point back at the root, and consecutive
// date ranges never overlap or leave a gap.
type Cost struct {
	ID         uuid.UUID
	PropertyID uuid.UUID

	Name            string
	Category        CostCategory
	CalculationType CostCalculationType

	// Value is an absolute amount for FIXED_AMOUNT, a percentage for
	// PERCENTAGE (10 means 10%).
	Value  decimal.Decimal
	Active bool

	StartDate  *time.Time // nil = since beginning
	EndDate    *time.Time // nil = open-ended, currently effective
	RootCostID *uuid.UUID

	CreatedAt time.Time
	UpdatedAt *time.Time
}

// RootID returns the id of the root revision of this cost concept.
func (c Cost) RootID() uuid.UUID {
	if c.RootCostID != nil {
		return *c.RootCostID
	}
	return c.ID
}

func ValidCostCategory(c CostCategory) bool {
	switch c {
	case CostRecurringMonthly, CostRecurringDaily, CostPerReservation:
		return true
	}
	return false
}

func ValidCalculationType(t CostCalculationType) bool {
	return t == CalcFixedAmount || t == CalcPercentage
}

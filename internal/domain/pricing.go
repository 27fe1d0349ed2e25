package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	hundred    = decimal.NewFromInt(100)
	thirtyDays = decimal.NewFromInt(30)
)

// PricingRule is a named, date-ranged profitability modifier. Both bounds
// are inclusive and required; rules may overlap.
type PricingRule struct {
	ID         uuid.UUID
	PropertyID uuid.UUID
	Name       string
	StartDate  time.Time
	EndDate    time.Time

	// ProfitabilityPercent positions the nightly price between the floor
	// price (0) and the base price (100); values above 100 extrapolate
	// linearly above base.
	ProfitabilityPercent decimal.Decimal

	CreatedAt time.Time
	UpdatedAt *time.Time
}

// AppliesOn reports whether d falls inside the rule's inclusive range.
func (r PricingRule) AppliesOn(d time.Time) bool {
	d = Date(d)
	return !d.Before(Date(r.StartDate)) && !d.After(Date(r.EndDate))
}

// ResolveRule picks the rule in effect on d. When several rules overlap the
// winner is the most recently created one; rule id breaks exact creation-time
// ties so repeated calls always agree. Returns nil when no rule applies.
func ResolveRule(rules []PricingRule, d time.Time) *PricingRule {
	var win *PricingRule
	for i := range rules {
		r := &rules[i]
		if !r.AppliesOn(d) {
			continue
		}
		if win == nil || r.CreatedAt.After(win.CreatedAt) ||
			(r.CreatedAt.Equal(win.CreatedAt) && r.ID.String() > win.ID.String()) {
			win = r
		}
	}
	return win
}

// FloorPrice computes the zero-profit nightly price from the active
// fixed-amount costs:
//
//	monthly/30 + daily + per-reservation/avg_stay
//
// Percentage costs are commissions handled by the financial summary, never
// part of the floor.
func FloorPrice(costs []Cost, avgStayDays int) decimal.Decimal {
	floor := decimal.Zero
	for _, c := range costs {
		if !c.Active || c.CalculationType != CalcFixedAmount {
			continue
		}
		switch c.Category {
		case CostRecurringMonthly:
			floor = floor.Add(c.Value.Div(thirtyDays))
		case CostRecurringDaily:
			floor = floor.Add(c.Value)
		case CostPerReservation:
			if avgStayDays > 0 {
				floor = floor.Add(c.Value.Div(decimal.NewFromInt(int64(avgStayDays))))
			}
		}
	}
	return floor
}

// EffectivePrice interpolates linearly between floor (0%) and base (100%):
//
//	price = floor + (base - floor) * percent / 100
//
// so 0% yields the floor exactly, 100% the base exactly, and >100%
// extrapolates above base.
func EffectivePrice(base, floor, percent decimal.Decimal) decimal.Decimal {
	return floor.Add(base.Sub(floor).Mul(percent).Div(hundred))
}

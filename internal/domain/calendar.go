package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DayStatus string

const (
	DayAvailable DayStatus = "AVAILABLE"
	DayReserved  DayStatus = "RESERVED"
)

// CalendarDay is the derived per-night view: occupancy plus the price the
// night costs (or would have cost, when reserved).
type CalendarDay struct {
	Date                 time.Time
	Status               DayStatus
	Price                decimal.Decimal
	FloorPrice           decimal.Decimal
	RuleName             *string
	ProfitabilityPercent decimal.Decimal
}

// BuildCalendar expands [start, end] (both inclusive) into one CalendarDay
// per date, ascending, no gaps. A day is RESERVED when a CONFIRMED booking
// covers it; tentative holds never block. Prices are rounded to cents.
func BuildCalendar(prop Property, rules []PricingRule, costs []Cost, bookings []Booking, start, end time.Time) []CalendarDay {
	start, end = Date(start), Date(end)
	if end.Before(start) {
		return nil
	}

	floor := FloorPrice(costs, prop.AvgStayDays)
	floorRounded := floor.Round(2)

	days := make([]CalendarDay, 0, DaysBetween(start, end)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		percent := hundred
		var ruleName *string
		if r := ResolveRule(rules, d); r != nil {
			percent = r.ProfitabilityPercent
			name := r.Name
			ruleName = &name
		}

		status := DayAvailable
		for _, b := range bookings {
			if b.Status == BookingConfirmed && b.Covers(d) {
				status = DayReserved
				break
			}
		}

		days = append(days, CalendarDay{
			Date:                 d,
			Status:               status,
			Price:                EffectivePrice(prop.BasePrice, floor, percent).Round(2),
			FloorPrice:           floorRounded,
			RuleName:             ruleName,
			ProfitabilityPercent: percent,
		})
	}
	return days
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CostBreakdown struct {
	FixedMonthly           decimal.Decimal
	FixedDaily             decimal.Decimal
	VariablePerReservation decimal.Decimal
	Commissions            decimal.Decimal
	Total                  decimal.Decimal
}

type FinancialSummary struct {
	Year        int
	Month       time.Month
	DaysInMonth int

	OccupiedDays  int
	OccupancyRate decimal.Decimal

	TotalBookings int
	TotalIncome   decimal.Decimal

	Costs CostBreakdown

	NetProfit           decimal.Decimal
	ProfitMarginPercent decimal.Decimal
}

// Summarize aggregates one month of bookings and costs into income, cost and
// profit figures. Only CONFIRMED bookings count; partial-month stays are
// prorated to the nights inside the month; income is the sum of the resolved
// nightly prices for those nights. Occupied days are counted as distinct
// calendar days, so overlapping stays (possible via feed imports) cannot
// push the occupancy rate past 100%.
//
// Cost policy (see DESIGN.md): fixed monthly costs apply in full, fixed daily
// costs apply for every day of the month, per-reservation costs apply once
// per overlapping booking (a percentage one against that booking's in-month
// revenue), and remaining percentage costs are commissions against the
// month's total income. Zero bookings, costs or income yield a well-formed
// zero-valued summary, never an error.
func Summarize(prop Property, rules []PricingRule, costs []Cost, bookings []Booking, year int, month time.Month) FinancialSummary {
	monthStart, monthNext, daysInMonth := MonthBounds(year, month)

	floor := FloorPrice(costs, prop.AvgStayDays)

	covered := make([]bool, daysInMonth)
	totalIncome := decimal.Zero
	perReservation := decimal.Zero
	totalBookings := 0

	for _, b := range bookings {
		if b.Status != BookingConfirmed || !b.Overlaps(monthStart, monthNext) {
			continue
		}
		totalBookings++

		stayStart := maxDate(Date(b.CheckIn), monthStart)
		stayEnd := minDate(Date(b.CheckOut), monthNext)

		bookingRevenue := decimal.Zero
		for d := stayStart; d.Before(stayEnd); d = d.AddDate(0, 0, 1) {
			percent := hundred
			if r := ResolveRule(rules, d); r != nil {
				percent = r.ProfitabilityPercent
			}
			bookingRevenue = bookingRevenue.Add(EffectivePrice(prop.BasePrice, floor, percent))
			covered[d.Day()-1] = true
		}
		totalIncome = totalIncome.Add(bookingRevenue)

		for _, c := range costs {
			if !c.Active || c.Category != CostPerReservation {
				continue
			}
			switch c.CalculationType {
			case CalcFixedAmount:
				perReservation = perReservation.Add(c.Value)
			case CalcPercentage:
				perReservation = perReservation.Add(bookingRevenue.Mul(c.Value).Div(hundred))
			}
		}
	}

	fixedMonthly := decimal.Zero
	fixedDaily := decimal.Zero
	commissions := decimal.Zero
	days := decimal.NewFromInt(int64(daysInMonth))

	for _, c := range costs {
		if !c.Active {
			continue
		}
		switch {
		case c.CalculationType == CalcFixedAmount && c.Category == CostRecurringMonthly:
			fixedMonthly = fixedMonthly.Add(c.Value)
		case c.CalculationType == CalcFixedAmount && c.Category == CostRecurringDaily:
			fixedDaily = fixedDaily.Add(c.Value.Mul(days))
		case c.CalculationType == CalcPercentage && c.Category != CostPerReservation:
			commissions = commissions.Add(totalIncome.Mul(c.Value).Div(hundred))
		}
	}

	totalCosts := fixedMonthly.Add(fixedDaily).Add(perReservation).Add(commissions)
	netProfit := totalIncome.Sub(totalCosts)

	occupiedDays := 0
	for _, day := range covered {
		if day {
			occupiedDays++
		}
	}

	occupancy := decimal.Zero
	if daysInMonth > 0 {
		occupancy = decimal.NewFromInt(int64(occupiedDays)).Div(days).Mul(hundred)
	}
	margin := decimal.Zero
	if totalIncome.IsPositive() {
		margin = netProfit.Div(totalIncome).Mul(hundred)
	}

	return FinancialSummary{
		Year:          year,
		Month:         month,
		DaysInMonth:   daysInMonth,
		OccupiedDays:  occupiedDays,
		OccupancyRate: occupancy.Round(2),
		TotalBookings: totalBookings,
		TotalIncome:   totalIncome.Round(2),
		Costs: CostBreakdown{
			FixedMonthly:           fixedMonthly.Round(2),
			FixedDaily:             fixedDaily.Round(2),
			VariablePerReservation: perReservation.Round(2),
			Commissions:            commissions.Round(2),
			Total:                  totalCosts.Round(2),
		},
		NetProfit:           netProfit.Round(2),
		ProfitMarginPercent: margin.Round(2),
	}
}

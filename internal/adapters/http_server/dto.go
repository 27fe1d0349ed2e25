package httpserver

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"domu/internal/domain"
)

// Money travels as JSON numbers, not strings.
func init() { decimal.MarshalJSONWithoutQuotes = true }

var validate = validator.New()

const dateLayout = domain.DateLayout

// ---- requests ----

type propertyCreateRequest struct {
	Name        string          `json:"name" validate:"required"`
	Address     string          `json:"address" validate:"required"`
	Lat         *float64        `json:"lat"`
	Lon         *float64        `json:"lon"`
	BasePrice   decimal.Decimal `json:"base_price"`
	AvgStayDays int             `json:"avg_stay_days" validate:"omitempty,min=1"`
}

type propertyUpdateRequest struct {
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	AvgStayDays int      `json:"avg_stay_days" validate:"omitempty,min=1"`
}

type modifyRequest struct {
	Value     decimal.Decimal `json:"value"`
	StartDate string          `json:"start_date" validate:"required,datetime=2006-01-02"`
}

type costCreateRequest struct {
	Name            string          `json:"name" validate:"required"`
	Category        string          `json:"category" validate:"required,oneof=RECURRING_MONTHLY RECURRING_DAILY PER_RESERVATION"`
	CalculationType string          `json:"calculation_type" validate:"required,oneof=FIXED_AMOUNT PERCENTAGE"`
	Value           decimal.Decimal `json:"value"`
}

type costUpdateRequest struct {
	Name            string          `json:"name"`
	Category        string          `json:"category" validate:"required,oneof=RECURRING_MONTHLY RECURRING_DAILY PER_RESERVATION"`
	CalculationType string          `json:"calculation_type" validate:"required,oneof=FIXED_AMOUNT PERCENTAGE"`
	Value           decimal.Decimal `json:"value"`
}

type ruleRequest struct {
	Name                 string          `json:"name"`
	StartDate            string          `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate              string          `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	ProfitabilityPercent decimal.Decimal `json:"profitability_percent"`
}

type bookingCreateRequest struct {
	PropertyID  string  `json:"property_id" validate:"required,uuid4"`
	CheckIn     string  `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut    string  `json:"check_out" validate:"required,datetime=2006-01-02"`
	Summary     string  `json:"summary"`
	Description *string `json:"description"`
	Status      string  `json:"status" validate:"omitempty,oneof=CONFIRMED TENTATIVE CANCELLED"`
	Source      string  `json:"source" validate:"omitempty,oneof=AIRBNB BOOKING DOMU MANUAL"`
}

type bookingUpdateRequest struct {
	CheckIn     string  `json:"check_in" validate:"omitempty,datetime=2006-01-02"`
	CheckOut    string  `json:"check_out" validate:"omitempty,datetime=2006-01-02"`
	Summary     string  `json:"summary"`
	Description *string `json:"description"`
	Status      string  `json:"status" validate:"omitempty,oneof=CONFIRMED TENTATIVE CANCELLED"`
	Source      string  `json:"source" validate:"omitempty,oneof=AIRBNB BOOKING DOMU MANUAL"`
}

// ---- responses ----

func fmtDate(t time.Time) string { return domain.Date(t).Format(dateLayout) }

func fmtDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := fmtDate(*t)
	return &s
}

type propertyResponse struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Address     string          `json:"address"`
	Lat         *float64        `json:"lat,omitempty"`
	Lon         *float64        `json:"lon,omitempty"`
	BasePrice   decimal.Decimal `json:"base_price"`
	AvgStayDays int             `json:"avg_stay_days"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
}

func toPropertyResponse(p domain.Property) propertyResponse {
	return propertyResponse{
		ID:          p.ID,
		Name:        p.Name,
		Address:     p.Address,
		Lat:         p.Lat,
		Lon:         p.Lon,
		BasePrice:   p.BasePrice,
		AvgStayDays: p.AvgStayDays,
		IsActive:    p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type basePriceResponse struct {
	ID          uuid.UUID       `json:"id"`
	PropertyID  uuid.UUID       `json:"property_id"`
	Value       decimal.Decimal `json:"value"`
	IsActive    bool            `json:"is_active"`
	StartDate   *string         `json:"start_date"`
	EndDate     *string         `json:"end_date"`
	RootPriceID *uuid.UUID      `json:"root_price_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func toBasePriceResponse(bp domain.BasePrice) basePriceResponse {
	return basePriceResponse{
		ID:          bp.ID,
		PropertyID:  bp.PropertyID,
		Value:       bp.Value,
		IsActive:    bp.Active,
		StartDate:   fmtDatePtr(bp.StartDate),
		EndDate:     fmtDatePtr(bp.EndDate),
		RootPriceID: bp.RootPriceID,
		CreatedAt:   bp.CreatedAt,
	}
}

type costResponse struct {
	ID              uuid.UUID       `json:"id"`
	PropertyID      uuid.UUID       `json:"property_id"`
	Name            string          `json:"name"`
	Category        string          `json:"category"`
	CalculationType string          `json:"calculation_type"`
	Value           decimal.Decimal `json:"value"`
	IsActive        bool            `json:"is_active"`
	StartDate       *string         `json:"start_date"`
	EndDate         *string         `json:"end_date"`
	RootCostID      *uuid.UUID      `json:"root_cost_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

func toCostResponse(c domain.Cost) costResponse {
	return costResponse{
		ID:              c.ID,
		PropertyID:      c.PropertyID,
		Name:            c.Name,
		Category:        string(c.Category),
		CalculationType: string(c.CalculationType),
		Value:           c.Value,
		IsActive:        c.Active,
		StartDate:       fmtDatePtr(c.StartDate),
		EndDate:         fmtDatePtr(c.EndDate),
		RootCostID:      c.RootCostID,
		CreatedAt:       c.CreatedAt,
	}
}

type ruleResponse struct {
	ID                   uuid.UUID       `json:"id"`
	PropertyID           uuid.UUID       `json:"property_id"`
	Name                 string          `json:"name"`
	StartDate            string          `json:"start_date"`
	EndDate              string          `json:"end_date"`
	ProfitabilityPercent decimal.Decimal `json:"profitability_percent"`
	CreatedAt            time.Time       `json:"created_at"`
}

func toRuleResponse(r domain.PricingRule) ruleResponse {
	return ruleResponse{
		ID:                   r.ID,
		PropertyID:           r.PropertyID,
		Name:                 r.Name,
		StartDate:            fmtDate(r.StartDate),
		EndDate:              fmtDate(r.EndDate),
		ProfitabilityPercent: r.ProfitabilityPercent,
		CreatedAt:            r.CreatedAt,
	}
}

type bookingResponse struct {
	ID           uuid.UUID  `json:"id"`
	ICalUID      string     `json:"ical_uid"`
	PropertyID   uuid.UUID  `json:"property_id"`
	CheckIn      string     `json:"check_in"`
	CheckOut     string     `json:"check_out"`
	Nights       int        `json:"nights"`
	Summary      string     `json:"summary"`
	Description  *string    `json:"description,omitempty"`
	Status       string     `json:"status"`
	Source       string     `json:"source"`
	ExternalID   *string    `json:"external_id,omitempty"`
	ICalURL      *string    `json:"ical_url,omitempty"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toBookingResponse(b domain.Booking) bookingResponse {
	return bookingResponse{
		ID:           b.ID,
		ICalUID:      b.ICalUID,
		PropertyID:   b.PropertyID,
		CheckIn:      fmtDate(b.CheckIn),
		CheckOut:     fmtDate(b.CheckOut),
		Nights:       b.Nights(),
		Summary:      b.Summary,
		Description:  b.Description,
		Status:       string(b.Status),
		Source:       string(b.Source),
		ExternalID:   b.ExternalID,
		ICalURL:      b.ICalURL,
		LastSyncedAt: b.LastSyncedAt,
		CreatedAt:    b.CreatedAt,
	}
}

type calendarDayResponse struct {
	Date                 string          `json:"date"`
	Status               string          `json:"status"`
	Price                decimal.Decimal `json:"price"`
	FloorPrice           decimal.Decimal `json:"floor_price"`
	RuleName             *string         `json:"rule_name,omitempty"`
	ProfitabilityPercent decimal.Decimal `json:"profitability_percent"`
}

func toCalendarResponse(days []domain.CalendarDay) []calendarDayResponse {
	out := make([]calendarDayResponse, 0, len(days))
	for _, d := range days {
		out = append(out, calendarDayResponse{
			Date:                 fmtDate(d.Date),
			Status:               string(d.Status),
			Price:                d.Price,
			FloorPrice:           d.FloorPrice,
			RuleName:             d.RuleName,
			ProfitabilityPercent: d.ProfitabilityPercent,
		})
	}
	return out
}

type costBreakdownResponse struct {
	FixedMonthly           decimal.Decimal `json:"fixed_monthly"`
	FixedDaily             decimal.Decimal `json:"fixed_daily"`
	VariablePerReservation decimal.Decimal `json:"variable_per_reservation"`
	Commissions            decimal.Decimal `json:"commissions"`
	Total                  decimal.Decimal `json:"total"`
}

type financialSummaryResponse struct {
	Year                int                   `json:"year"`
	Month               int                   `json:"month"`
	DaysInMonth         int                   `json:"days_in_month"`
	OccupiedDays        int                   `json:"occupied_days"`
	OccupancyRate       decimal.Decimal       `json:"occupancy_rate"`
	TotalBookings       int                   `json:"total_bookings"`
	TotalIncome         decimal.Decimal       `json:"total_income"`
	Costs               costBreakdownResponse `json:"costs"`
	NetProfit           decimal.Decimal       `json:"net_profit"`
	ProfitMarginPercent decimal.Decimal       `json:"profit_margin_percent"`
}

func toSummaryResponse(s domain.FinancialSummary) financialSummaryResponse {
	return financialSummaryResponse{
		Year:          s.Year,
		Month:         int(s.Month),
		DaysInMonth:   s.DaysInMonth,
		OccupiedDays:  s.OccupiedDays,
		OccupancyRate: s.OccupancyRate,
		TotalBookings: s.TotalBookings,
		TotalIncome:   s.TotalIncome,
		Costs: costBreakdownResponse{
			FixedMonthly:           s.Costs.FixedMonthly,
			FixedDaily:             s.Costs.FixedDaily,
			VariablePerReservation: s.Costs.VariablePerReservation,
			Commissions:            s.Costs.Commissions,
			Total:                  s.Costs.Total,
		},
		NetProfit:           s.NetProfit,
		ProfitMarginPercent: s.ProfitMarginPercent,
	}
}

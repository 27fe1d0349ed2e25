package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"domu/internal/app"
	"domu/internal/domain"
)

type Handlers struct {
	Props    *app.PropertyService
	Prices   *app.BasePriceService
	Costs    *app.CostService
	Rules    *app.RuleService
	Bookings *app.BookingService
	Q        *app.QueryService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1", func(r chi.Router) {
		r.Get("/properties", h.listProperties)
		r.Post("/properties", h.createProperty)
		r.Get("/properties/{id}", h.getProperty)
		r.Put("/properties/{id}", h.updateProperty)
		r.Delete("/properties/{id}", h.deleteProperty)

		r.Get("/properties/{id}/calendar", h.getCalendar)
		r.Get("/properties/{id}/financial-summary", h.getFinancialSummary)

		r.Post("/properties/{id}/base-price/modify", h.modifyBasePrice)
		r.Post("/properties/{id}/base-price/revert", h.revertBasePrice)
		r.Get("/properties/{id}/base-price/history", h.basePriceHistory)

		r.Get("/properties/{id}/costs", h.listCosts)
		r.Post("/properties/{id}/costs", h.createCost)
		r.Put("/costs/{id}", h.updateCost)
		r.Delete("/costs/{id}", h.deleteCost)
		r.Post("/costs/{id}/modify", h.modifyCost)
		r.Post("/costs/{id}/revert", h.revertCost)
		r.Get("/costs/{id}/history", h.costHistory)

		r.Get("/properties/{id}/pricing-rules", h.listRules)
		r.Post("/properties/{id}/pricing-rules", h.createRule)
		r.Put("/pricing-rules/{id}", h.updateRule)
		r.Delete("/pricing-rules/{id}", h.deleteRule)

		r.Get("/bookings", h.listBookings)
		r.Post("/bookings", h.createBooking)
		r.Get("/bookings/{id}", h.getBooking)
		r.Put("/bookings/{id}", h.updateBooking)
		r.Delete("/bookings/{id}", h.deleteBooking)
		r.Post("/bookings/{id}/accept", h.acceptBooking)
		r.Post("/bookings/{id}/cancel", h.cancelBooking)
		r.Get("/properties/{id}/bookings", h.listPropertyBookings)
	})
}

// ---- plumbing ----

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain sentinels to problem+json statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrValidation):
		writeProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// bind decodes and validates a request body; on failure it writes the
// problem response and returns false.
func bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", err.Error())
		return false
	}
	return true
}

func urlID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a UUID")
		return uuid.UUID{}, false
	}
	return id, true
}

func mustDate(s string) time.Time {
	d, _ := domain.ParseDate(s)
	return d
}

// ---- properties ----

func (h *Handlers) createProperty(w http.ResponseWriter, r *http.Request) {
	var req propertyCreateRequest
	if !bind(w, r, &req) {
		return
	}
	p, err := h.Props.Create(r.Context(), domain.Property{
		Name:        req.Name,
		Address:     req.Address,
		Lat:         req.Lat,
		Lon:         req.Lon,
		BasePrice:   req.BasePrice,
		AvgStayDays: req.AvgStayDays,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPropertyResponse(p))
}

func (h *Handlers) getProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	p, err := h.Props.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPropertyResponse(p))
}

func (h *Handlers) listProperties(w http.ResponseWriter, r *http.Request) {
	props, err := h.Props.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]propertyResponse, 0, len(props))
	for _, p := range props {
		out = append(out, toPropertyResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) updateProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var req propertyUpdateRequest
	if !bind(w, r, &req) {
		return
	}
	p, err := h.Props.Update(r.Context(), domain.Property{
		ID:          id,
		Name:        req.Name,
		Address:     req.Address,
		Lat:         req.Lat,
		Lon:         req.Lon,
		AvgStayDays: req.AvgStayDays,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPropertyResponse(p))
}

func (h *Handlers) deleteProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if err := h.Props.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- calendar & financial summary ----

func (h *Handlers) getCalendar(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	start, err := domain.ParseDate(r.URL.Query().Get("start_date"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid start_date", "start_date must be YYYY-MM-DD")
		return
	}
	end, err := domain.ParseDate(r.URL.Query().Get("end_date"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid end_date", "end_date must be YYYY-MM-DD")
		return
	}
	days, err := h.Q.Calendar(r.Context(), id, start, end)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCalendarResponse(days))
}

func (h *Handlers) getFinancialSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 2000 || year > 2200 {
		writeProblem(w, http.StatusBadRequest, "Invalid year", "year must be a plausible integer")
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		writeProblem(w, http.StatusBadRequest, "Invalid month", "month must be 1-12")
		return
	}
	sum, err := h.Q.FinancialSummary(r.Context(), id, year, time.Month(month))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryResponse(sum))
}

// ---- base price versioning ----

func (h *Handlers) modifyBasePrice(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var req modifyRequest
	if !bind(w, r, &req) {
		return
	}
	bp, err := h.Prices.Modify(r.Context(), id, req.Value, mustDate(req.StartDate))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBasePriceResponse(bp))
}

func (h *Handlers) revertBasePrice(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	bp, err := h.Prices.Revert(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBasePriceResponse(bp))
}

func (h *Handlers) basePriceHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	hist, err := h.Prices.History(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]basePriceResponse, 0, len(hist))
	for _, bp := range hist {
		out = append(out, toBasePriceResponse(bp))
	}
	writeJSON(w, http.StatusOK, out)
}

// ---- costs ----

func (h *Handlers) createCost(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var req costCreateRequest
	if !bind(w, r, &req) {
		return
	}
	c, err := h.Costs.Create(r.Context(), domain.Cost{
		PropertyID:      id,
		Name:            req.Name,
		Category:        domain.CostCategory(req.Category),
		CalculationType: domain.CostCalculationType(req.CalculationType),
		Value:           req.Value,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCostResponse(c))
}

func (h *Handlers) listCosts(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	costs, err := h.Costs.List(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]costResponse, 0, len(costs))
	for _, c := range costs {
		out = append(out, toCostResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) updateCost(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var req costUpdateRequest
	if !bind(w, r, &req) {
		return
	}
	c, err := h.Costs.Update(r.Context(), domain.Cost{
		ID:              id,
		Name:            req.Name,
		Category:        domain.CostCategory(req.Category),
		CalculationType: domain.CostCalculationType(req.CalculationType),
		Value:           req.Value,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCostResponse(c))
}

func (h *Handlers) deleteCost(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if err := h.Costs.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) modifyCost(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var req modifyRequest
	if !bind(w, r, &req) {
		return
	}
	c, err := h.Costs.Modify(r.Context(), id, req.Value, mustDate(req.StartDate))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCostResponse(c))
}

func (h *Handlers) revertCost(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	c, err := h.Costs.Revert(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCostResponse(c))
}

func (h *Handlers) costHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	hist, err := h.Costs.History(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]costResponse, 0, len(hist))
	for _, c := range hist {
		out = append(out, toCostResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

// ---- pricing rules ----

func (h *Handlers) createRule(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var req ruleRequest
	if !bind(w, r, &req) {
		return
	}
	rule := domain.PricingRule{
		PropertyID:           id,
		Name:                 req.Name,
		ProfitabilityPercent: req.ProfitabilityPercent,
	}
	if req.StartDate != "" {
		rule.StartDate = mustDate(req.StartDate)
	}
	if req.EndDate != "" {
		rule.EndDate = mustDate(req.EndDate)
	}
	created, err := h.Rules.Create(r.Context(), rule)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRuleResponse(created))
}

func (h *Handlers) listRules(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	rules, err := h.Rules.List(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]ruleResponse, 0, len(rules))
	for _, rule := range rules {
		out = append(out, toRuleResponse(rule))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) updateRule(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var req ruleRequest
	if !bind(w, r, &req) {
		return
	}
	rule := domain.PricingRule{
		ID:                   id,
		Name:                 req.Name,
		ProfitabilityPercent: req.ProfitabilityPercent,
	}
	if req.StartDate != "" {
		rule.StartDate = mustDate(req.StartDate)
	}
	if req.EndDate != "" {
		rule.EndDate = mustDate(req.EndDate)
	}
	updated, err := h.Rules.Update(r.Context(), rule)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRuleResponse(updated))
}

func (h *Handlers) deleteRule(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if err := h.Rules.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- bookings ----

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	var req bookingCreateRequest
	if !bind(w, r, &req) {
		return
	}
	propertyID, err := uuid.Parse(req.PropertyID)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid property_id", "property_id must be a UUID")
		return
	}
	b, err := h.Bookings.Create(r.Context(), domain.Booking{
		PropertyID:  propertyID,
		CheckIn:     mustDate(req.CheckIn),
		CheckOut:    mustDate(req.CheckOut),
		Summary:     req.Summary,
		Description: req.Description,
		Status:      domain.BookingStatus(req.Status),
		Source:      domain.BookingSource(req.Source),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingResponse(b))
}

func (h *Handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	b, err := h.Bookings.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

func (h *Handlers) listBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.Bookings.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingsResponse(bookings))
}

func (h *Handlers) listPropertyBookings(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	bookings, err := h.Bookings.ListByProperty(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingsResponse(bookings))
}

func toBookingsResponse(bookings []domain.Booking) []bookingResponse {
	out := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResponse(b))
	}
	return out
}

func (h *Handlers) updateBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var req bookingUpdateRequest
	if !bind(w, r, &req) {
		return
	}
	b := domain.Booking{
		ID:          id,
		Summary:     req.Summary,
		Description: req.Description,
		Status:      domain.BookingStatus(req.Status),
		Source:      domain.BookingSource(req.Source),
	}
	if req.CheckIn != "" {
		b.CheckIn = mustDate(req.CheckIn)
	}
	if req.CheckOut != "" {
		b.CheckOut = mustDate(req.CheckOut)
	}
	updated, err := h.Bookings.Update(r.Context(), b)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(updated))
}

func (h *Handlers) deleteBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if err := h.Bookings.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) acceptBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	b, err := h.Bookings.Accept(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

func (h *Handlers) cancelBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	b, err := h.Bookings.Cancel(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

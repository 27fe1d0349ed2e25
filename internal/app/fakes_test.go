package app

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"domu/internal/domain"
)

// ---- in-memory fakes ----

type fakeProps struct {
	byID   map[uuid.UUID]domain.Property
	feeds  []domain.Feed
	prices *fakePrices
}

func newFakeProps(ps ...domain.Property) *fakeProps {
	f := &fakeProps{byID: map[uuid.UUID]domain.Property{}}
	for _, p := range ps {
		f.byID[p.ID] = p
	}
	return f
}

func (f *fakeProps) CreateProperty(ctx context.Context, p domain.Property, root domain.BasePrice) error {
	f.byID[p.ID] = p
	if f.prices != nil {
		f.prices.chains[p.ID] = append(f.prices.chains[p.ID], root)
	}
	return nil
}
func (f *fakeProps) GetProperty(ctx context.Context, id uuid.UUID) (domain.Property, error) {
	p, ok := f.byID[id]
	if !ok {
		return domain.Property{}, domain.ErrNotFound
	}
	return p, nil
}
func (f *fakeProps) ListProperties(ctx context.Context) ([]domain.Property, error) {
	var out []domain.Property
	for _, p := range f.byID {
		out = append(out, p)
	}
	return out, nil
}
func (f *fakeProps) UpdateProperty(ctx context.Context, p domain.Property) error {
	f.byID[p.ID] = p
	return nil
}
func (f *fakeProps) DeactivateProperty(ctx context.Context, id uuid.UUID) error {
	p := f.byID[id]
	p.Active = false
	f.byID[id] = p
	return nil
}
func (f *fakeProps) ListFeeds(ctx context.Context) ([]domain.Feed, error) { return f.feeds, nil }

type fakeBookings struct {
	byID map[uuid.UUID]domain.Booking
}

func newFakeBookings(bs ...domain.Booking) *fakeBookings {
	f := &fakeBookings{byID: map[uuid.UUID]domain.Booking{}}
	for _, b := range bs {
		f.byID[b.ID] = b
	}
	return f
}

func (f *fakeBookings) CreateBooking(ctx context.Context, b domain.Booking) error {
	f.byID[b.ID] = b
	return nil
}
func (f *fakeBookings) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	b, ok := f.byID[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, nil
}
func (f *fakeBookings) GetBookingByICalUID(ctx context.Context, uid string) (domain.Booking, error) {
	for _, b := range f.byID {
		if b.ICalUID == uid {
			return b, nil
		}
	}
	return domain.Booking{}, domain.ErrNotFound
}
func (f *fakeBookings) ListBookings(ctx context.Context) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range f.byID {
		out = append(out, b)
	}
	return out, nil
}
func (f *fakeBookings) ListBookingsByProperty(ctx context.Context, propertyID uuid.UUID) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range f.byID {
		if b.PropertyID == propertyID {
			out = append(out, b)
		}
	}
	return out, nil
}
func (f *fakeBookings) FindConflicts(ctx context.Context, propertyID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range f.byID {
		if b.PropertyID != propertyID || b.Status == domain.BookingCancelled {
			continue
		}
		if excludeID != nil && b.ID == *excludeID {
			continue
		}
		if b.Overlaps(start, end) {
			out = append(out, b)
		}
	}
	return out, nil
}
func (f *fakeBookings) UpdateBooking(ctx context.Context, b domain.Booking) error {
	if _, ok := f.byID[b.ID]; !ok {
		return domain.ErrNotFound
	}
	f.byID[b.ID] = b
	return nil
}
func (f *fakeBookings) DeleteBooking(ctx context.Context, id uuid.UUID) error {
	delete(f.byID, id)
	return nil
}

type fakeRules struct {
	byID map[uuid.UUID]domain.PricingRule
}

func newFakeRules(rs ...domain.PricingRule) *fakeRules {
	f := &fakeRules{byID: map[uuid.UUID]domain.PricingRule{}}
	for _, r := range rs {
		f.byID[r.ID] = r
	}
	return f
}

func (f *fakeRules) CreateRule(ctx context.Context, r domain.PricingRule) error {
	f.byID[r.ID] = r
	return nil
}
func (f *fakeRules) GetRule(ctx context.Context, id uuid.UUID) (domain.PricingRule, error) {
	r, ok := f.byID[id]
	if !ok {
		return domain.PricingRule{}, domain.ErrNotFound
	}
	return r, nil
}
func (f *fakeRules) ListRules(ctx context.Context, propertyID uuid.UUID) ([]domain.PricingRule, error) {
	var out []domain.PricingRule
	for _, r := range f.byID {
		if r.PropertyID == propertyID {
			out = append(out, r)
		}
	}
	return out, nil
}
func (f *fakeRules) UpdateRule(ctx context.Context, r domain.PricingRule) error {
	if _, ok := f.byID[r.ID]; !ok {
		return domain.ErrNotFound
	}
	f.byID[r.ID] = r
	return nil
}
func (f *fakeRules) DeleteRule(ctx context.Context, id uuid.UUID) error {
	delete(f.byID, id)
	return nil
}

// fakePrices keeps one revision chain per property and mimics the storage
// layer's modify/revert swap.
type fakePrices struct {
	chains map[uuid.UUID][]domain.BasePrice
	props  *fakeProps
}

func newFakePrices(props *fakeProps) *fakePrices {
	f := &fakePrices{chains: map[uuid.UUID][]domain.BasePrice{}, props: props}
	if props != nil {
		props.prices = f
	}
	return f
}

func (f *fakePrices) CreateBasePrice(ctx context.Context, bp domain.BasePrice) error {
	f.chains[bp.PropertyID] = append(f.chains[bp.PropertyID], bp)
	return nil
}
func (f *fakePrices) CurrentBasePrice(ctx context.Context, propertyID uuid.UUID) (domain.BasePrice, error) {
	for _, bp := range f.chains[propertyID] {
		if bp.Active && bp.EndDate == nil {
			return bp, nil
		}
	}
	return domain.BasePrice{}, domain.ErrIntegrity
}
func (f *fakePrices) BasePriceHistory(ctx context.Context, propertyID uuid.UUID) ([]domain.BasePrice, error) {
	out := append([]domain.BasePrice(nil), f.chains[propertyID]...)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].StartDate, out[j].StartDate
		if a == nil {
			return true
		}
		if b == nil {
			return false
		}
		return a.Before(*b)
	})
	return out, nil
}
func (f *fakePrices) ModifyBasePrice(ctx context.Context, propertyID uuid.UUID, value decimal.Decimal, startDate time.Time) (domain.BasePrice, error) {
	chain := f.chains[propertyID]
	cur := -1
	for i, bp := range chain {
		if bp.Active && bp.EndDate == nil {
			cur = i
		}
	}
	if cur < 0 {
		return domain.BasePrice{}, domain.ErrIntegrity
	}
	closed := startDate.AddDate(0, 0, -1)
	chain[cur].EndDate = &closed
	root := chain[cur].RootID()
	next := domain.BasePrice{
		ID:          uuid.New(),
		PropertyID:  propertyID,
		Value:       value,
		Active:      true,
		StartDate:   &startDate,
		RootPriceID: &root,
	}
	f.chains[propertyID] = append(chain, next)
	if f.props != nil {
		p := f.props.byID[propertyID]
		p.BasePrice = value
		f.props.byID[propertyID] = p
	}
	return next, nil
}
func (f *fakePrices) RevertBasePrice(ctx context.Context, propertyID uuid.UUID) (domain.BasePrice, error) {
	chain, err := f.BasePriceHistory(ctx, propertyID)
	if err != nil || len(chain) < 2 {
		return domain.BasePrice{}, domain.ErrNotFound
	}
	prev := chain[len(chain)-2]
	prev.EndDate = nil
	rest := chain[:len(chain)-1]
	rest[len(rest)-1] = prev
	f.chains[propertyID] = append([]domain.BasePrice(nil), rest...)
	if f.props != nil {
		p := f.props.byID[propertyID]
		p.BasePrice = prev.Value
		f.props.byID[propertyID] = p
	}
	return prev, nil
}

type fakeCosts struct {
	byID map[uuid.UUID]domain.Cost
}

func newFakeCosts(cs ...domain.Cost) *fakeCosts {
	f := &fakeCosts{byID: map[uuid.UUID]domain.Cost{}}
	for _, c := range cs {
		f.byID[c.ID] = c
	}
	return f
}

func (f *fakeCosts) CreateCost(ctx context.Context, c domain.Cost) error {
	f.byID[c.ID] = c
	return nil
}
func (f *fakeCosts) GetCost(ctx context.Context, id uuid.UUID) (domain.Cost, error) {
	c, ok := f.byID[id]
	if !ok {
		return domain.Cost{}, domain.ErrNotFound
	}
	return c, nil
}
func (f *fakeCosts) ListCosts(ctx context.Context, propertyID uuid.UUID) ([]domain.Cost, error) {
	var out []domain.Cost
	for _, c := range f.byID {
		if c.PropertyID == propertyID && c.Active && c.EndDate == nil {
			out = append(out, c)
		}
	}
	return out, nil
}
func (f *fakeCosts) UpdateCost(ctx context.Context, c domain.Cost) error {
	if _, ok := f.byID[c.ID]; !ok {
		return domain.ErrNotFound
	}
	f.byID[c.ID] = c
	return nil
}
func (f *fakeCosts) SoftDeleteCost(ctx context.Context, id uuid.UUID) error {
	c, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.Active = false
	f.byID[id] = c
	return nil
}
func (f *fakeCosts) chain(costID uuid.UUID) []domain.Cost {
	c, ok := f.byID[costID]
	if !ok {
		return nil
	}
	root := c.RootID()
	var out []domain.Cost
	for _, cc := range f.byID {
		if cc.RootID() == root {
			out = append(out, cc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].StartDate, out[j].StartDate
		if a == nil {
			return true
		}
		if b == nil {
			return false
		}
		return a.Before(*b)
	})
	return out
}
func (f *fakeCosts) CostHistory(ctx context.Context, costID uuid.UUID) ([]domain.Cost, error) {
	chain := f.chain(costID)
	if chain == nil {
		return nil, domain.ErrNotFound
	}
	return chain, nil
}
func (f *fakeCosts) ModifyCost(ctx context.Context, costID uuid.UUID, value decimal.Decimal, startDate time.Time) (domain.Cost, error) {
	chain := f.chain(costID)
	if chain == nil {
		return domain.Cost{}, domain.ErrNotFound
	}
	cur := chain[len(chain)-1]
	closed := startDate.AddDate(0, 0, -1)
	cur.EndDate = &closed
	f.byID[cur.ID] = cur
	root := cur.RootID()
	next := cur
	next.ID = uuid.New()
	next.Value = value
	next.StartDate = &startDate
	next.EndDate = nil
	next.RootCostID = &root
	f.byID[next.ID] = next
	return next, nil
}
func (f *fakeCosts) RevertCost(ctx context.Context, costID uuid.UUID) (domain.Cost, error) {
	chain := f.chain(costID)
	if len(chain) < 2 {
		return domain.Cost{}, domain.ErrNotFound
	}
	cur, prev := chain[len(chain)-1], chain[len(chain)-2]
	delete(f.byID, cur.ID)
	prev.EndDate = nil
	f.byID[prev.ID] = prev
	return prev, nil
}

// fakeCache round-trips through JSON so cached values cannot alias repo
// state, matching the redis adapter's behavior.
type fakeCache struct {
	store map[string][]byte
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}
func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	return nil
}

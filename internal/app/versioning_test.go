package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"domu/internal/domain"
)

func fixedNow() time.Time {
	return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
}

func newPriceFixture(t *testing.T) (*BasePriceService, *fakeProps, *fakePrices, domain.Property) {
	t.Helper()
	prop := domain.Property{ID: uuid.New(), Name: "Casa Azul", Address: "x", BasePrice: dec("100"), AvgStayDays: 3, Active: true}
	props := newFakeProps(prop)
	prices := newFakePrices(props)
	root := domain.BasePrice{ID: uuid.New(), PropertyID: prop.ID, Value: dec("100"), Active: true}
	if err := prices.CreateBasePrice(context.Background(), root); err != nil {
		t.Fatal(err)
	}
	svc := NewBasePriceService(props, prices, nil)
	svc.now = fixedNow
	return svc, props, prices, prop
}

func TestBasePriceModify_Validation(t *testing.T) {
	svc, _, _, prop := newPriceFixture(t)
	ctx := context.Background()

	if _, err := svc.Modify(ctx, prop.ID, dec("0"), day(t, "2024-04-01")); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("zero value: expected validation error, got %v", err)
	}
	if _, err := svc.Modify(ctx, prop.ID, dec("-5"), day(t, "2024-04-01")); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("negative value: expected validation error, got %v", err)
	}
	// "Today" is not strictly future.
	if _, err := svc.Modify(ctx, prop.ID, dec("120"), day(t, "2024-03-15")); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("today: expected validation error, got %v", err)
	}
	if _, err := svc.Modify(ctx, prop.ID, dec("120"), day(t, "2024-03-01")); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("past: expected validation error, got %v", err)
	}
	if _, err := svc.Modify(ctx, uuid.New(), dec("120"), day(t, "2024-04-01")); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown property: expected not found, got %v", err)
	}
}

func TestBasePriceModify_RejectsOutOfOrderEffectiveDate(t *testing.T) {
	svc, _, prices, prop := newPriceFixture(t)
	ctx := context.Background()

	if _, err := svc.Modify(ctx, prop.ID, dec("120"), day(t, "2024-04-10")); err != nil {
		t.Fatalf("modify: %v", err)
	}

	// Starting at or before the current revision's own start would leave two
	// revisions covering the same dates.
	if _, err := svc.Modify(ctx, prop.ID, dec("130"), day(t, "2024-04-05")); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("earlier effective date: expected validation error, got %v", err)
	}
	if _, err := svc.Modify(ctx, prop.ID, dec("130"), day(t, "2024-04-10")); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("same effective date: expected validation error, got %v", err)
	}

	hist, err := prices.BasePriceHistory(ctx, prop.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	sample := day(t, "2024-04-07")
	covering := 0
	for _, bp := range hist {
		if (bp.StartDate == nil || !sample.Before(*bp.StartDate)) &&
			(bp.EndDate == nil || !sample.After(*bp.EndDate)) {
			covering++
		}
	}
	if covering != 1 {
		t.Fatalf("expected exactly one revision covering 2024-04-07, got %d", covering)
	}

	// A later effective date still goes through.
	if _, err := svc.Modify(ctx, prop.ID, dec("140"), day(t, "2024-05-01")); err != nil {
		t.Fatalf("later modify: %v", err)
	}
}

func TestBasePriceModifyThenRevert_RoundTrip(t *testing.T) {
	svc, props, _, prop := newPriceFixture(t)
	ctx := context.Background()

	orig, err := svc.Current(ctx, prop.ID)
	if err != nil {
		t.Fatalf("current: %v", err)
	}

	effective := day(t, "2024-04-01")
	next, err := svc.Modify(ctx, prop.ID, dec("150"), effective)
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if !next.Value.Equal(dec("150")) || next.EndDate != nil {
		t.Fatalf("unexpected new revision: %+v", next)
	}
	if next.RootPriceID == nil || *next.RootPriceID != orig.ID {
		t.Fatalf("new revision must point at the root")
	}

	hist, err := svc.History(ctx, prop.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 revisions, got %d", len(hist))
	}
	// Previous revision closed the day before the new one starts: no
	// overlap, no gap.
	closed := hist[0]
	if closed.EndDate == nil || !closed.EndDate.Equal(effective.AddDate(0, 0, -1)) {
		t.Fatalf("previous revision not closed at effective-1: %+v", closed)
	}
	if got := props.byID[prop.ID].BasePrice; !got.Equal(dec("150")) {
		t.Fatalf("denormalized base price not synced: %s", got)
	}

	restored, err := svc.Revert(ctx, prop.ID)
	if err != nil {
		t.Fatalf("revert: %v", err)
	}
	if !restored.Value.Equal(orig.Value) || restored.EndDate != nil || restored.ID != orig.ID {
		t.Fatalf("revert did not restore the prior revision: %+v", restored)
	}
	if restored.StartDate != nil && orig.StartDate != nil && !restored.StartDate.Equal(*orig.StartDate) {
		t.Fatalf("revert changed the prior start date")
	}
	if got := props.byID[prop.ID].BasePrice; !got.Equal(dec("100")) {
		t.Fatalf("denormalized base price not restored: %s", got)
	}
}

func TestBasePriceRevert_NothingToRevert(t *testing.T) {
	svc, _, _, prop := newPriceFixture(t)

	_, err := svc.Revert(context.Background(), prop.ID)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func newCostFixture(t *testing.T) (*CostService, *fakeCosts, domain.Property) {
	t.Helper()
	prop := domain.Property{ID: uuid.New(), Name: "Casa Azul", Address: "x", BasePrice: dec("100"), AvgStayDays: 3, Active: true}
	costs := newFakeCosts()
	svc := NewCostService(newFakeProps(prop), costs, nil)
	svc.now = fixedNow
	return svc, costs, prop
}

func TestCostCreate_Validation(t *testing.T) {
	svc, _, prop := newCostFixture(t)
	ctx := context.Background()

	base := domain.Cost{
		PropertyID:      prop.ID,
		Name:            "cleaning",
		Category:        domain.CostPerReservation,
		CalculationType: domain.CalcFixedAmount,
		Value:           dec("30"),
	}
	if _, err := svc.Create(ctx, base); err != nil {
		t.Fatalf("create: %v", err)
	}

	pct := base
	pct.Name = "ota fee"
	pct.CalculationType = domain.CalcPercentage
	pct.Value = dec("120")
	if _, err := svc.Create(ctx, pct); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("percentage > 100: expected validation error, got %v", err)
	}

	bad := base
	bad.Category = "WEEKLY"
	if _, err := svc.Create(ctx, bad); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("bad category: expected validation error, got %v", err)
	}
}

func TestCostModifyThenRevert_RoundTrip(t *testing.T) {
	svc, _, prop := newCostFixture(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, domain.Cost{
		PropertyID:      prop.ID,
		Name:            "rent",
		Category:        domain.CostRecurringMonthly,
		CalculationType: domain.CalcFixedAmount,
		Value:           dec("300"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Modify(ctx, c.ID, dec("350"), day(t, "2024-03-15")); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("non-future effective date: expected validation error, got %v", err)
	}

	next, err := svc.Modify(ctx, c.ID, dec("350"), day(t, "2024-05-01"))
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if !next.Value.Equal(dec("350")) || next.RootCostID == nil || *next.RootCostID != c.ID {
		t.Fatalf("unexpected revision: %+v", next)
	}

	hist, err := svc.History(ctx, c.ID)
	if err != nil || len(hist) != 2 {
		t.Fatalf("history: %v (%d revisions)", err, len(hist))
	}

	restored, err := svc.Revert(ctx, next.ID)
	if err != nil {
		t.Fatalf("revert: %v", err)
	}
	if restored.ID != c.ID || !restored.Value.Equal(dec("300")) || restored.EndDate != nil {
		t.Fatalf("revert did not restore the root: %+v", restored)
	}
}

func TestCostModify_RejectsOutOfOrderEffectiveDate(t *testing.T) {
	svc, _, prop := newCostFixture(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, domain.Cost{
		PropertyID:      prop.ID,
		Name:            "rent",
		Category:        domain.CostRecurringMonthly,
		CalculationType: domain.CalcFixedAmount,
		Value:           dec("300"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Modify(ctx, c.ID, dec("350"), day(t, "2024-05-01")); err != nil {
		t.Fatalf("modify: %v", err)
	}

	if _, err := svc.Modify(ctx, c.ID, dec("400"), day(t, "2024-04-20")); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("earlier effective date: expected validation error, got %v", err)
	}
	if _, err := svc.Modify(ctx, c.ID, dec("400"), day(t, "2024-05-01")); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("same effective date: expected validation error, got %v", err)
	}

	hist, err := svc.History(ctx, c.ID)
	if err != nil || len(hist) != 2 {
		t.Fatalf("rejected modify must not touch the chain: %v (%d revisions)", err, len(hist))
	}
}

func TestCostRevert_NoHistory(t *testing.T) {
	svc, _, prop := newCostFixture(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, domain.Cost{
		PropertyID:      prop.ID,
		Name:            "rent",
		Category:        domain.CostRecurringMonthly,
		CalculationType: domain.CalcFixedAmount,
		Value:           dec("300"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Revert(ctx, c.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

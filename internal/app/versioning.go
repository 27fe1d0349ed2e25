package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"domu/internal/domain"
)

// BasePriceService owns the base-price revision chain of a property:
// modify with a future effective date, revert the last modification, and
// expose the chain's history.
type BasePriceService struct {
	props  domain.PropertyRepository
	prices domain.BasePriceRepository
	q      *QueryService

	// now is swappable for tests.
	now func() time.Time
}

func NewBasePriceService(props domain.PropertyRepository, prices domain.BasePriceRepository, q *QueryService) *BasePriceService {
	return &BasePriceService{props: props, prices: prices, q: q, now: time.Now}
}

// Modify creates a new revision effective startDate and closes the current
// one the day before. The effective date must be strictly in the future and
// strictly after the current revision's own start, or the chain would carry
// two revisions covering the same dates; the value must be positive.
func (s *BasePriceService) Modify(ctx context.Context, propertyID uuid.UUID, value decimal.Decimal, startDate time.Time) (domain.BasePrice, error) {
	if _, err := s.props.GetProperty(ctx, propertyID); err != nil {
		return domain.BasePrice{}, err
	}
	if !value.IsPositive() {
		return domain.BasePrice{}, fmt.Errorf("%w: base price must be positive", domain.ErrValidation)
	}
	today := domain.Date(s.now())
	if !domain.Date(startDate).After(today) {
		return domain.BasePrice{}, fmt.Errorf("%w: effective date must be after today", domain.ErrValidation)
	}
	current, err := s.prices.CurrentBasePrice(ctx, propertyID)
	if err != nil {
		return domain.BasePrice{}, err
	}
	if current.StartDate != nil && !domain.Date(startDate).After(domain.Date(*current.StartDate)) {
		return domain.BasePrice{}, fmt.Errorf("%w: effective date must be after the current revision's start (%s)",
			domain.ErrValidation, current.StartDate.Format(domain.DateLayout))
	}

	bp, err := s.prices.ModifyBasePrice(ctx, propertyID, value, domain.Date(startDate))
	if err != nil {
		return domain.BasePrice{}, err
	}
	if s.q != nil {
		s.q.InvalidateOpenEnded(ctx, propertyID, domain.Date(startDate))
	}
	return bp, nil
}

// Revert undoes the last modification, restoring the previous revision's
// value and open-ended range. ErrNotFound when the chain has nothing to
// fall back to.
func (s *BasePriceService) Revert(ctx context.Context, propertyID uuid.UUID) (domain.BasePrice, error) {
	if _, err := s.props.GetProperty(ctx, propertyID); err != nil {
		return domain.BasePrice{}, err
	}
	bp, err := s.prices.RevertBasePrice(ctx, propertyID)
	if err != nil {
		return domain.BasePrice{}, err
	}
	if s.q != nil {
		s.q.InvalidateOpenEnded(ctx, propertyID, domain.Date(s.now()))
	}
	return bp, nil
}

// History returns every revision chronologically; the last one is current.
func (s *BasePriceService) History(ctx context.Context, propertyID uuid.UUID) ([]domain.BasePrice, error) {
	if _, err := s.props.GetProperty(ctx, propertyID); err != nil {
		return nil, err
	}
	return s.prices.BasePriceHistory(ctx, propertyID)
}

// Current returns the revision effective today.
func (s *BasePriceService) Current(ctx context.Context, propertyID uuid.UUID) (domain.BasePrice, error) {
	if _, err := s.props.GetProperty(ctx, propertyID); err != nil {
		return domain.BasePrice{}, err
	}
	return s.prices.CurrentBasePrice(ctx, propertyID)
}

// CostService manages cost concepts and their revision chains with the same
// versioning contract as base prices.
type CostService struct {
	props domain.PropertyRepository
	costs domain.CostRepository
	q     *QueryService

	now func() time.Time
}

func NewCostService(props domain.PropertyRepository, costs domain.CostRepository, q *QueryService) *CostService {
	return &CostService{props: props, costs: costs, q: q, now: time.Now}
}

func validateCostValue(calc domain.CostCalculationType, value decimal.Decimal) error {
	if !value.IsPositive() {
		return fmt.Errorf("%w: cost value must be positive", domain.ErrValidation)
	}
	if calc == domain.CalcPercentage && value.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: percentage cannot exceed 100", domain.ErrValidation)
	}
	return nil
}

func (s *CostService) Create(ctx context.Context, c domain.Cost) (domain.Cost, error) {
	if _, err := s.props.GetProperty(ctx, c.PropertyID); err != nil {
		return domain.Cost{}, err
	}
	if c.Name == "" {
		return domain.Cost{}, fmt.Errorf("%w: cost name is required", domain.ErrValidation)
	}
	if !domain.ValidCostCategory(c.Category) || !domain.ValidCalculationType(c.CalculationType) {
		return domain.Cost{}, fmt.Errorf("%w: unknown cost category or calculation type", domain.ErrValidation)
	}
	if err := validateCostValue(c.CalculationType, c.Value); err != nil {
		return domain.Cost{}, err
	}

	c.ID = uuid.New()
	c.Active = true
	c.RootCostID = nil
	c.StartDate, c.EndDate = nil, nil
	if err := s.costs.CreateCost(ctx, c); err != nil {
		return domain.Cost{}, err
	}
	s.invalidate(ctx, c.PropertyID)
	return c, nil
}

func (s *CostService) List(ctx context.Context, propertyID uuid.UUID) ([]domain.Cost, error) {
	if _, err := s.props.GetProperty(ctx, propertyID); err != nil {
		return nil, err
	}
	return s.costs.ListCosts(ctx, propertyID)
}

func (s *CostService) Update(ctx context.Context, c domain.Cost) (domain.Cost, error) {
	existing, err := s.costs.GetCost(ctx, c.ID)
	if err != nil {
		return domain.Cost{}, err
	}
	if c.Name == "" {
		c.Name = existing.Name
	}
	if !domain.ValidCostCategory(c.Category) || !domain.ValidCalculationType(c.CalculationType) {
		return domain.Cost{}, fmt.Errorf("%w: unknown cost category or calculation type", domain.ErrValidation)
	}
	if err := validateCostValue(c.CalculationType, c.Value); err != nil {
		return domain.Cost{}, err
	}
	c.PropertyID = existing.PropertyID
	c.RootCostID = existing.RootCostID
	c.StartDate, c.EndDate = existing.StartDate, existing.EndDate
	if err := s.costs.UpdateCost(ctx, c); err != nil {
		return domain.Cost{}, err
	}
	s.invalidate(ctx, existing.PropertyID)
	return c, nil
}

// Delete soft-deletes the cost concept; history stays queryable.
func (s *CostService) Delete(ctx context.Context, costID uuid.UUID) error {
	existing, err := s.costs.GetCost(ctx, costID)
	if err != nil {
		return err
	}
	if err := s.costs.SoftDeleteCost(ctx, costID); err != nil {
		return err
	}
	s.invalidate(ctx, existing.PropertyID)
	return nil
}

func (s *CostService) Modify(ctx context.Context, costID uuid.UUID, value decimal.Decimal, startDate time.Time) (domain.Cost, error) {
	existing, err := s.costs.GetCost(ctx, costID)
	if err != nil {
		return domain.Cost{}, err
	}
	if err := validateCostValue(existing.CalculationType, value); err != nil {
		return domain.Cost{}, err
	}
	today := domain.Date(s.now())
	if !domain.Date(startDate).After(today) {
		return domain.Cost{}, fmt.Errorf("%w: effective date must be after today", domain.ErrValidation)
	}
	hist, err := s.costs.CostHistory(ctx, costID)
	if err != nil {
		return domain.Cost{}, err
	}
	if current := hist[len(hist)-1]; current.StartDate != nil && !domain.Date(startDate).After(domain.Date(*current.StartDate)) {
		return domain.Cost{}, fmt.Errorf("%w: effective date must be after the current revision's start (%s)",
			domain.ErrValidation, current.StartDate.Format(domain.DateLayout))
	}

	c, err := s.costs.ModifyCost(ctx, costID, value, domain.Date(startDate))
	if err != nil {
		return domain.Cost{}, err
	}
	s.invalidate(ctx, existing.PropertyID)
	return c, nil
}

func (s *CostService) Revert(ctx context.Context, costID uuid.UUID) (domain.Cost, error) {
	existing, err := s.costs.GetCost(ctx, costID)
	if err != nil {
		return domain.Cost{}, err
	}
	c, err := s.costs.RevertCost(ctx, costID)
	if err != nil {
		return domain.Cost{}, err
	}
	s.invalidate(ctx, existing.PropertyID)
	return c, nil
}

func (s *CostService) History(ctx context.Context, costID uuid.UUID) ([]domain.Cost, error) {
	return s.costs.CostHistory(ctx, costID)
}

func (s *CostService) invalidate(ctx context.Context, propertyID uuid.UUID) {
	if s.q != nil {
		s.q.InvalidateOpenEnded(ctx, propertyID, domain.Date(s.now()))
	}
}

package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"domu/internal/domain"
)

// RuleService manages the pricing rules of a property. Rules may overlap;
// the calendar resolver breaks ties at read time.
type RuleService struct {
	rules domain.PricingRuleRepository
	props domain.PropertyRepository
	q     *QueryService
}

func NewRuleService(rules domain.PricingRuleRepository, props domain.PropertyRepository, q *QueryService) *RuleService {
	return &RuleService{rules: rules, props: props, q: q}
}

func validateRule(r domain.PricingRule) error {
	if r.Name == "" {
		return fmt.Errorf("%w: rule name is required", domain.ErrValidation)
	}
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return fmt.Errorf("%w: rules require both start and end dates", domain.ErrValidation)
	}
	if domain.Date(r.EndDate).Before(domain.Date(r.StartDate)) {
		return fmt.Errorf("%w: end_date must not precede start_date", domain.ErrValidation)
	}
	if r.ProfitabilityPercent.LessThan(decimal.Zero) {
		return fmt.Errorf("%w: profitability percent cannot be negative", domain.ErrValidation)
	}
	return nil
}

func (s *RuleService) Create(ctx context.Context, r domain.PricingRule) (domain.PricingRule, error) {
	if _, err := s.props.GetProperty(ctx, r.PropertyID); err != nil {
		return domain.PricingRule{}, err
	}
	if err := validateRule(r); err != nil {
		return domain.PricingRule{}, err
	}
	r.ID = uuid.New()
	r.StartDate, r.EndDate = domain.Date(r.StartDate), domain.Date(r.EndDate)
	if err := s.rules.CreateRule(ctx, r); err != nil {
		return domain.PricingRule{}, err
	}
	s.invalidate(ctx, r)
	return r, nil
}

func (s *RuleService) List(ctx context.Context, propertyID uuid.UUID) ([]domain.PricingRule, error) {
	if _, err := s.props.GetProperty(ctx, propertyID); err != nil {
		return nil, err
	}
	return s.rules.ListRules(ctx, propertyID)
}

func (s *RuleService) Update(ctx context.Context, r domain.PricingRule) (domain.PricingRule, error) {
	existing, err := s.rules.GetRule(ctx, r.ID)
	if err != nil {
		return domain.PricingRule{}, err
	}
	if r.Name == "" {
		r.Name = existing.Name
	}
	if r.StartDate.IsZero() {
		r.StartDate = existing.StartDate
	}
	if r.EndDate.IsZero() {
		r.EndDate = existing.EndDate
	}
	if err := validateRule(r); err != nil {
		return domain.PricingRule{}, err
	}
	r.PropertyID = existing.PropertyID
	r.CreatedAt = existing.CreatedAt
	r.StartDate, r.EndDate = domain.Date(r.StartDate), domain.Date(r.EndDate)
	if err := s.rules.UpdateRule(ctx, r); err != nil {
		return domain.PricingRule{}, err
	}
	s.invalidate(ctx, existing)
	s.invalidate(ctx, r)
	return r, nil
}

func (s *RuleService) Delete(ctx context.Context, id uuid.UUID) error {
	existing, err := s.rules.GetRule(ctx, id)
	if err != nil {
		return err
	}
	if err := s.rules.DeleteRule(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, existing)
	return nil
}

func (s *RuleService) invalidate(ctx context.Context, r domain.PricingRule) {
	if s.q != nil {
		s.q.Invalidate(ctx, r.PropertyID, r.StartDate, r.EndDate)
	}
}

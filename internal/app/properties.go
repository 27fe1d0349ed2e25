package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"domu/internal/domain"
)

const defaultAvgStayDays = 3

// PropertyService owns property CRUD. Creating a property also seeds the
// root revision of its base-price chain.
type PropertyService struct {
	props    domain.PropertyRepository
	bookings domain.BookingRepository

	now func() time.Time
}

func NewPropertyService(props domain.PropertyRepository, bookings domain.BookingRepository) *PropertyService {
	return &PropertyService{props: props, bookings: bookings, now: time.Now}
}

func (s *PropertyService) Create(ctx context.Context, p domain.Property) (domain.Property, error) {
	if p.Name == "" || p.Address == "" {
		return domain.Property{}, fmt.Errorf("%w: name and address are required", domain.ErrValidation)
	}
	if !p.BasePrice.IsPositive() {
		return domain.Property{}, fmt.Errorf("%w: base price must be positive", domain.ErrValidation)
	}
	if p.AvgStayDays <= 0 {
		p.AvgStayDays = defaultAvgStayDays
	}

	p.ID = uuid.New()
	p.Active = true
	// Root revision: no start date (since beginning), open-ended. Inserted
	// with the property in one transaction.
	root := domain.BasePrice{
		ID:         uuid.New(),
		PropertyID: p.ID,
		Value:      p.BasePrice,
		Active:     true,
	}
	if err := s.props.CreateProperty(ctx, p, root); err != nil {
		return domain.Property{}, err
	}
	return p, nil
}

func (s *PropertyService) Get(ctx context.Context, id uuid.UUID) (domain.Property, error) {
	return s.props.GetProperty(ctx, id)
}

func (s *PropertyService) List(ctx context.Context) ([]domain.Property, error) {
	return s.props.ListProperties(ctx)
}

func (s *PropertyService) Update(ctx context.Context, p domain.Property) (domain.Property, error) {
	existing, err := s.props.GetProperty(ctx, p.ID)
	if err != nil {
		return domain.Property{}, err
	}
	if p.Name == "" {
		p.Name = existing.Name
	}
	if p.Address == "" {
		p.Address = existing.Address
	}
	if p.AvgStayDays <= 0 {
		p.AvgStayDays = existing.AvgStayDays
	}
	// The denormalized base price only moves through modify/revert.
	p.BasePrice = existing.BasePrice
	p.Active = existing.Active
	if err := s.props.UpdateProperty(ctx, p); err != nil {
		return domain.Property{}, err
	}
	return p, nil
}

// Delete soft-deletes a property. Properties with upcoming confirmed or
// tentative stays cannot go until those are cancelled.
func (s *PropertyService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.props.GetProperty(ctx, id); err != nil {
		return err
	}
	today := domain.Date(s.now())
	upcoming, err := s.bookings.FindConflicts(ctx, id, today, today.AddDate(10, 0, 0), nil)
	if err != nil {
		return err
	}
	if len(upcoming) > 0 {
		return fmt.Errorf("%w: property has %d active booking(s)", domain.ErrConflict, len(upcoming))
	}
	return s.props.DeactivateProperty(ctx, id)
}

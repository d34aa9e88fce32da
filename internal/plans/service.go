package plans

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/kornthana/memberpay-backend/pkg/db/models"
	"github.com/kornthana/memberpay-backend/pkg/enums"
	pkgerrors "github.com/kornthana/memberpay-backend/pkg/errors"
	"github.com/kornthana/memberpay-backend/pkg/pagination"
)

// ServiceParams groups dependencies for the plan service.
type ServiceParams struct {
	Repo Repository
}

// Service orchestrates plan management.
type Service struct {
	repo Repository
}

// NewService builds a plan service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	return &Service{repo: params.Repo}, nil
}

// Create registers a new plan under the owner's catalog.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, input CreatePlanInput) (*models.Plan, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan name is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan price cannot be negative")
	}
	if input.DurationDays <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "duration_days must be positive")
	}

	currency := input.CurrencyCode
	if currency == "" {
		currency = enums.CurrencyTHB
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency code")
	}

	plan := &models.Plan{
		OwnerID:      ownerID,
		Name:         name,
		Description:  input.Description,
		Status:       enums.PlanStatusActive,
		PriceAmount:  input.Price,
		CurrencyCode: currency,
		DurationDays: input.DurationDays,
		Features:     pq.StringArray(input.Features),
	}
	if err := s.repo.Create(ctx, plan); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create plan")
	}
	return plan, nil
}

// Update applies a partial update to an owner's plan.
func (s *Service) Update(ctx context.Context, ownerID, planID uuid.UUID, input UpdatePlanInput) (*models.Plan, error) {
	plan, err := s.getOwned(ctx, ownerID, planID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan name cannot be empty")
		}
		plan.Name = name
	}
	if input.Description != nil {
		plan.Description = input.Description
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan price cannot be negative")
		}
		plan.PriceAmount = *input.Price
	}
	if input.DurationDays != nil {
		if *input.DurationDays <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duration_days must be positive")
		}
		plan.DurationDays = *input.DurationDays
	}
	if input.Features != nil {
		plan.Features = pq.StringArray(input.Features)
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid plan status")
		}
		plan.Status = *input.Status
	}

	if err := s.repo.Update(ctx, plan); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update plan")
	}
	return plan, nil
}

// Get fetches a single plan visible to the caller's tenant.
func (s *Service) Get(ctx context.Context, ownerID, planID uuid.UUID) (*models.Plan, error) {
	return s.getOwned(ctx, ownerID, planID)
}

// List returns the tenant's plans, newest first.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID, status *enums.PlanStatus, page pagination.Params) ([]models.Plan, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid plan status")
	}
	plans, err := s.repo.List(ctx, ListPlansQuery{
		OwnerID: &ownerID,
		Status:  status,
		Page:    page,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list plans")
	}
	return plans, nil
}

func (s *Service) getOwned(ctx context.Context, ownerID, planID uuid.UUID) (*models.Plan, error) {
	plan, err := s.repo.FindByID(ctx, planID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find plan")
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}
	if plan.OwnerID != ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}
	return plan, nil
}

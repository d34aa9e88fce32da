package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kornthana/memberpay-backend/pkg/db/models"
	"github.com/kornthana/memberpay-backend/pkg/enums"
	pkgerrors "github.com/kornthana/memberpay-backend/pkg/errors"
	"github.com/kornthana/memberpay-backend/pkg/logger"
)

// ServiceParams groups dependencies for the subscription service.
type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
	Now    func() time.Time
}

// Service manages subscription windows for paid plans.
type Service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

// NewService builds a subscription service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		repo: params.Repo,
		logg: params.Logger,
		now:  now,
	}, nil
}

// Activate grants or extends the member's subscription for the plan. Callers
// invoke this exactly once per successful payment, inside the same transaction
// that recorded the status change.
//
// An existing active window is extended from its end date. A lapsed or
// cancelled subscription restarts with a fresh window. At most one active row
// exists per (member, plan); the partial unique index backs this up.
func (s *Service) Activate(ctx context.Context, tx *gorm.DB, memberID, planID uuid.UUID, durationDays int) (*models.Subscription, error) {
	if durationDays <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan duration must be positive")
	}

	repo := s.repo.WithTx(tx)
	now := s.now()

	existing, err := repo.FindLatestForMemberPlan(ctx, memberID, planID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find subscription")
	}

	duration := time.Duration(durationDays) * 24 * time.Hour

	if existing == nil {
		sub := &models.Subscription{
			MemberID:  memberID,
			PlanID:    planID,
			Status:    enums.SubscriptionStatusActive,
			StartDate: now,
			EndDate:   now.Add(duration),
		}
		if err := repo.Create(ctx, sub); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create subscription")
		}
		return sub, nil
	}

	if existing.Status == enums.SubscriptionStatusActive && existing.EndDate.After(now) {
		// Renewal: the remaining time is preserved by extending the window end.
		existing.EndDate = existing.EndDate.Add(duration)
		if err := repo.Update(ctx, existing); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "extend subscription")
		}
		if s.logg != nil {
			s.logg.Info(s.logg.WithMemberID(ctx, memberID.String()), "subscription window extended")
		}
		return existing, nil
	}

	existing.Status = enums.SubscriptionStatusActive
	existing.StartDate = now
	existing.EndDate = now.Add(duration)
	if err := repo.Update(ctx, existing); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reactivate subscription")
	}
	return existing, nil
}

// HasActive reports whether the member currently holds an unexpired active
// subscription for the plan.
func (s *Service) HasActive(ctx context.Context, memberID, planID uuid.UUID) (bool, error) {
	sub, err := s.GetForMemberPlan(ctx, memberID, planID)
	if err != nil {
		return false, err
	}
	return sub != nil && sub.Status == enums.SubscriptionStatusActive && sub.EndDate.After(s.now()), nil
}

// GetForMemberPlan returns the latest subscription row for the pair, if any.
func (s *Service) GetForMemberPlan(ctx context.Context, memberID, planID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.repo.FindLatestForMemberPlan(ctx, memberID, planID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find subscription")
	}
	return sub, nil
}

// ListByMember returns all of the member's subscriptions, newest first.
func (s *Service) ListByMember(ctx context.Context, memberID uuid.UUID) ([]models.Subscription, error) {
	subs, err := s.repo.ListByMember(ctx, memberID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list subscriptions")
	}
	return subs, nil
}

// DaysRemaining reports whole days left for the member's plan subscription.
func (s *Service) DaysRemaining(ctx context.Context, memberID, planID uuid.UUID) (int, error) {
	sub, err := s.GetForMemberPlan(ctx, memberID, planID)
	if err != nil {
		return 0, err
	}
	if sub == nil || sub.Status != enums.SubscriptionStatusActive {
		return 0, nil
	}
	return sub.DaysRemaining(s.now()), nil
}

package payments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kornthana/memberpay-backend/pkg/db/models"
	"github.com/kornthana/memberpay-backend/pkg/enums"
	pkgerrors "github.com/kornthana/memberpay-backend/pkg/errors"
	"github.com/kornthana/memberpay-backend/pkg/logger"
	"github.com/kornthana/memberpay-backend/pkg/metrics"
	"github.com/kornthana/memberpay-backend/pkg/omise"
	"github.com/kornthana/memberpay-backend/pkg/pagination"
)

const cardTokenPrefix = "tokn_"

// Gateway is the payment gateway surface the service depends on.
type Gateway interface {
	CreateCharge(ctx context.Context, input omise.ChargeInput) (*omise.Charge, error)
	GetCharge(ctx context.Context, chargeID string) (*omise.Charge, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type planFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Plan, error)
}

type subscriptionEngine interface {
	Activate(ctx context.Context, tx *gorm.DB, memberID, planID uuid.UUID, durationDays int) (*models.Subscription, error)
	HasActive(ctx context.Context, memberID, planID uuid.UUID) (bool, error)
	GetForMemberPlan(ctx context.Context, memberID, planID uuid.UUID) (*models.Subscription, error)
	DaysRemaining(ctx context.Context, memberID, planID uuid.UUID) (int, error)
}

// ServiceParams groups dependencies for the payment service.
type ServiceParams struct {
	Repo          Repository
	Plans         planFinder
	Subscriptions subscriptionEngine
	Gateway       Gateway
	DB            txRunner
	Metrics       *metrics.PaymentMetrics
	Logger        *logger.Logger
	Now           func() time.Time
}

// Service owns the payment lifecycle from charge creation through
// reconciliation.
type Service struct {
	repo    Repository
	plans   planFinder
	subs    subscriptionEngine
	gateway Gateway
	db      txRunner
	metrics *metrics.PaymentMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds a payment service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Plans == nil {
		return nil, errors.New("plan finder is required")
	}
	if params.Subscriptions == nil {
		return nil, errors.New("subscription engine is required")
	}
	if params.Gateway == nil {
		return nil, errors.New("gateway is required")
	}
	if params.DB == nil {
		return nil, errors.New("db tx runner is required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		repo:    params.Repo,
		plans:   params.Plans,
		subs:    params.Subscriptions,
		gateway: params.Gateway,
		db:      params.DB,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     now,
	}, nil
}

// Create opens a payment for the member against the plan and charges the
// gateway. Card charges settle synchronously in most cases; promptpay charges
// stay pending until a webhook or poll observes the settlement.
func (s *Service) Create(ctx context.Context, memberID, ownerID uuid.UUID, input CreatePaymentInput) (*models.Payment, error) {
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
	}
	source := strings.TrimSpace(input.Source)
	if input.Method.RequiresSource() {
		if source == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "card payments require a token source")
		}
		if !strings.HasPrefix(source, cardTokenPrefix) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "card token source is malformed")
		}
	} else if source != "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promptpay payments do not accept a source")
	}

	plan, err := s.plans.FindByID(ctx, input.PlanID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find plan")
	}
	if plan == nil || plan.OwnerID != ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}
	if plan.Status != enums.PlanStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan is not open for subscription")
	}

	// The duplicate check runs before any money moves.
	active, err := s.subs.HasActive(ctx, memberID, plan.ID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "an active subscription for this plan already exists")
	}

	payment := &models.Payment{
		MemberID:     memberID,
		PlanID:       plan.ID,
		AmountSatang: plan.PriceSatang(),
		Currency:     plan.CurrencyCode,
		Method:       input.Method,
		Status:       enums.PaymentStatusPending,
		Description:  input.Description,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment")
	}

	ctx = s.logCtx(ctx, payment)

	description := ""
	if input.Description != nil {
		description = *input.Description
	}
	charge, err := s.gateway.CreateCharge(ctx, omise.ChargeInput{
		AmountSatang: payment.AmountSatang,
		Currency:     payment.Currency.String(),
		Method:       input.Method.String(),
		CardToken:    source,
		Description:  description,
	})
	if err != nil {
		return nil, s.failChargeCreation(ctx, payment, err)
	}

	payment.GatewayChargeID = charge.ID
	payment.QRCodeURL = charge.QRCodeURL
	if err := s.repo.Update(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attach charge to payment")
	}

	if applied, err := s.applyChargeState(ctx, payment, charge); err != nil {
		return nil, err
	} else if applied {
		refreshed, err := s.repo.FindByID(ctx, payment.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload payment")
		}
		if refreshed != nil {
			payment = refreshed
		}
	}

	if payment.Status == enums.PaymentStatusFailed {
		message := "payment was not accepted"
		if payment.FailureMessage != nil {
			message = *payment.FailureMessage
		}
		return nil, pkgerrors.New(pkgerrors.CodePayment, message).WithDetails(map[string]any{
			"payment_id": payment.ID,
			"status":     payment.Status,
		})
	}
	return payment, nil
}

// failChargeCreation records the gateway rejection and classifies the error.
func (s *Service) failChargeCreation(ctx context.Context, payment *models.Payment, cause error) error {
	code, message, declined := omise.DeclineDetails(cause)
	if !declined {
		if s.logg != nil {
			s.logg.Error(ctx, "gateway charge creation failed", cause)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, "create gateway charge")
	}

	updates := map[string]any{"failure_message": message}
	if _, err := s.transition(ctx, payment, enums.PaymentStatusFailed, updates); err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "recording declined charge failed", err)
		}
	}
	return pkgerrors.New(pkgerrors.CodePayment, message).WithDetails(map[string]any{
		"payment_id":   payment.ID,
		"gateway_code": code,
	})
}

// ApplyChargeUpdate reconciles the payment owning the charge with the
// charge's current gateway state. It returns true when a transition was
// applied, and false for no-ops (terminal payments, unknown statuses,
// concurrent writers that already won).
func (s *Service) ApplyChargeUpdate(ctx context.Context, charge *omise.Charge) (bool, error) {
	if charge == nil || charge.ID == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "charge is required")
	}

	payment, err := s.repo.FindByGatewayChargeID(ctx, charge.ID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find payment by charge")
	}
	if payment == nil {
		return false, pkgerrors.New(pkgerrors.CodeNotFound, "no payment for charge").WithDetails(map[string]any{
			"charge_id": charge.ID,
		})
	}

	return s.applyChargeState(s.logCtx(ctx, payment), payment, charge)
}

func (s *Service) applyChargeState(ctx context.Context, payment *models.Payment, charge *omise.Charge) (bool, error) {
	target, ok := MapChargeStatus(charge.Status)
	if !ok {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "charge_status", charge.Status), "ignoring unknown charge status")
		}
		return false, nil
	}
	if target == payment.Status {
		return false, nil
	}

	updates := map[string]any{}
	if charge.FailureMessage != "" {
		updates["failure_message"] = charge.FailureMessage
	}
	return s.transition(ctx, payment, target, updates)
}

// transition moves the payment into the target status. Illegal moves are
// logged no-ops so replayed webhooks and poll races stay harmless. The CAS
// winner into successful activates the subscription inside the same
// transaction.
func (s *Service) transition(ctx context.Context, payment *models.Payment, to enums.PaymentStatus, updates map[string]any) (bool, error) {
	from := payment.Status
	if !CanTransition(from, to) {
		if s.logg != nil {
			fields := map[string]any{"from": from, "to": to}
			s.logg.Warn(s.logg.WithFields(ctx, fields), "ignoring illegal payment transition")
		}
		return false, nil
	}

	if updates == nil {
		updates = map[string]any{}
	}
	if to == enums.PaymentStatusSuccessful {
		updates["paid_at"] = s.now()
	}

	var won bool
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		won, err = s.repo.WithTx(tx).UpdateStatusFrom(ctx, payment.ID, from, to, updates)
		if err != nil {
			return err
		}
		if !won || to != enums.PaymentStatusSuccessful {
			return nil
		}

		plan, err := s.plans.FindByID(ctx, payment.PlanID)
		if err != nil {
			return err
		}
		if plan == nil {
			return errors.New("plan missing for successful payment")
		}
		_, err = s.subs.Activate(ctx, tx, payment.MemberID, payment.PlanID, plan.DurationDays)
		return err
	})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply payment transition")
	}

	if won {
		payment.Status = to
		s.metrics.ObserveTransition(from.String(), to.String())
		if s.logg != nil {
			fields := map[string]any{"from": from, "to": to}
			s.logg.Info(s.logg.WithFields(ctx, fields), "payment transition applied")
		}
	} else if s.logg != nil {
		s.logg.Warn(ctx, "payment transition lost the race, skipping")
	}
	return won, nil
}

// Get returns the payment with its subscription summary. Members only see
// their own payments.
func (s *Service) Get(ctx context.Context, memberID, paymentID uuid.UUID) (*PaymentDetail, error) {
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find payment")
	}
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	if payment.MemberID != memberID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment belongs to another member")
	}

	detail := &PaymentDetail{Payment: *payment}
	if payment.Status == enums.PaymentStatusSuccessful {
		sub, err := s.subs.GetForMemberPlan(ctx, payment.MemberID, payment.PlanID)
		if err != nil {
			return nil, err
		}
		detail.Subscription = sub
		days, err := s.subs.DaysRemaining(ctx, payment.MemberID, payment.PlanID)
		if err != nil {
			return nil, err
		}
		detail.DaysRemaining = days
	}
	return detail, nil
}

// List returns the member's payment history, newest first.
func (s *Service) List(ctx context.Context, memberID uuid.UUID, status *enums.PaymentStatus, page pagination.Params) ([]models.Payment, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status filter")
	}
	payments, err := s.repo.ListByMember(ctx, ListPaymentsQuery{
		MemberID: memberID,
		Status:   status,
		Page:     page,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payments")
	}
	return payments, nil
}

func (s *Service) logCtx(ctx context.Context, payment *models.Payment) context.Context {
	if s.logg == nil {
		return ctx
	}
	ctx = s.logg.WithPaymentID(ctx, payment.ID.String())
	return s.logg.WithMemberID(ctx, payment.MemberID.String())
}

package omise

import (
	"context"
	"errors"

	pkgerrors "github.com/kornthana/memberpay-backend/pkg/errors"
	"github.com/kornthana/memberpay-backend/pkg/logger"
	"github.com/kornthana/memberpay-backend/pkg/metrics"
	"github.com/kornthana/memberpay-backend/pkg/omise"
)

type chargeReconciler interface {
	ApplyChargeUpdate(ctx context.Context, charge *omise.Charge) (bool, error)
}

type chargeFetcher interface {
	GetCharge(ctx context.Context, chargeID string) (*omise.Charge, error)
}

// ServiceParams groups dependencies for the webhook reconciler.
type ServiceParams struct {
	Payments chargeReconciler
	Gateway  chargeFetcher
	Metrics  *metrics.PaymentMetrics
	Logger   *logger.Logger
}

// Service turns Omise webhook deliveries into payment state reconciliation.
// Deliveries are at-least-once and unordered, so every outcome here must be
// safe to repeat.
type Service struct {
	payments chargeReconciler
	gateway  chargeFetcher
	metrics  *metrics.PaymentMetrics
	logg     *logger.Logger
}

// NewService builds a webhook reconciler service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, errors.New("payments reconciler is required")
	}
	if params.Gateway == nil {
		return nil, errors.New("gateway is required")
	}
	return &Service{
		payments: params.Payments,
		gateway:  params.Gateway,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// Ingest processes one webhook delivery. Unrecognized keys and unknown
// charges are acknowledged without effect; only infrastructure failures
// bubble up, and even those are acked by the controller so the gateway does
// not retry forever.
func (s *Service) Ingest(ctx context.Context, payload []byte) error {
	event, err := ParseEvent(payload)
	if err != nil {
		s.metrics.ObserveWebhookEvent("invalid", "rejected")
		return err
	}

	if s.logg != nil {
		ctx = s.logg.WithField(ctx, "event_key", event.Key)
	}

	if !event.Recognized() {
		if s.logg != nil {
			s.logg.Warn(ctx, "ignoring unrecognized webhook event key")
		}
		s.metrics.ObserveWebhookEvent(event.Key, "ignored")
		return nil
	}

	// Authenticity: the delivery only names a charge id; the state that gets
	// applied comes from the gateway API, never from the payload body.
	charge, err := s.gateway.GetCharge(ctx, event.Data.ID)
	if err != nil {
		s.metrics.ObserveWebhookEvent(event.Key, "unverified")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify webhook charge")
	}

	applied, err := s.payments.ApplyChargeUpdate(ctx, charge)
	if err != nil {
		appErr := pkgerrors.As(err)
		if appErr != nil && appErr.Code() == pkgerrors.CodeNotFound {
			if s.logg != nil {
				s.logg.Warn(ctx, "webhook charge has no local payment")
			}
			s.metrics.ObserveWebhookEvent(event.Key, "unknown_charge")
			return nil
		}
		s.metrics.ObserveWebhookEvent(event.Key, "error")
		return err
	}

	result := "noop"
	if applied {
		result = "applied"
	}
	s.metrics.ObserveWebhookEvent(event.Key, result)
	return nil
}

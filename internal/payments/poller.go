package payments

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kornthana/memberpay-backend/pkg/config"
	"github.com/kornthana/memberpay-backend/pkg/db/models"
	pkgerrors "github.com/kornthana/memberpay-backend/pkg/errors"
)

const (
	minPollAttempts = 1
	maxPollAttempts = 300
)

// SleepFunc pauses between poll attempts. Tests swap it for a fake.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Poller drives gateway status polls for pending payments.
type Poller struct {
	svc      *Service
	interval time.Duration
	defaults int
	sleep    SleepFunc
}

// PollerParams groups dependencies for the poller.
type PollerParams struct {
	Service *Service
	Config  config.PollerConfig
	Sleep   SleepFunc
}

// NewPoller builds a payment status poller.
func NewPoller(params PollerParams) (*Poller, error) {
	if params.Service == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment service is required")
	}
	interval := params.Config.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	defaults := params.Config.DefaultMaxAttempts
	if defaults <= 0 {
		defaults = 30
	}
	sleep := params.Sleep
	if sleep == nil {
		sleep = sleepWithContext
	}
	return &Poller{
		svc:      params.Service,
		interval: interval,
		defaults: defaults,
		sleep:    sleep,
	}, nil
}

// Poll re-checks the payment against the gateway until it reaches a terminal
// status or the attempt budget runs out. A zero maxAttempts picks the
// configured default; everything else is clamped into [1, 300].
func (p *Poller) Poll(ctx context.Context, memberID, paymentID uuid.UUID, maxAttempts int) (*models.Payment, error) {
	if maxAttempts == 0 {
		maxAttempts = p.defaults
	}
	maxAttempts = clampAttempts(maxAttempts)

	payment, err := p.authorizedPayment(ctx, memberID, paymentID)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if payment.Status.IsTerminal() {
			p.svc.metrics.ObservePollAttempts(attempt - 1)
			return payment, nil
		}

		if payment.GatewayChargeID != "" {
			charge, err := p.svc.gateway.GetCharge(ctx, payment.GatewayChargeID)
			if err != nil {
				if p.svc.logg != nil {
					p.svc.logg.Warn(ctx, "poll attempt could not reach the gateway")
				}
			} else if _, err := p.svc.applyChargeState(ctx, payment, charge); err != nil {
				return nil, err
			}
		}

		refreshed, err := p.svc.repo.FindByID(ctx, paymentID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload payment")
		}
		if refreshed == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		payment = refreshed

		if payment.Status.IsTerminal() {
			p.svc.metrics.ObservePollAttempts(attempt)
			return payment, nil
		}

		if attempt < maxAttempts {
			if err := p.sleep(ctx, p.interval); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "poll interrupted")
			}
		}
	}

	p.svc.metrics.ObservePollAttempts(maxAttempts)
	return nil, pkgerrors.New(pkgerrors.CodePollTimeout, "payment did not settle within the poll budget").WithDetails(map[string]any{
		"payment_id":   payment.ID,
		"last_status":  payment.Status,
		"max_attempts": maxAttempts,
	})
}

func (p *Poller) authorizedPayment(ctx context.Context, memberID, paymentID uuid.UUID) (*models.Payment, error) {
	payment, err := p.svc.repo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find payment")
	}
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	if payment.MemberID != memberID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment belongs to another member")
	}
	return payment, nil
}

func clampAttempts(attempts int) int {
	if attempts < minPollAttempts {
		return minPollAttempts
	}
	if attempts > maxPollAttempts {
		return maxPollAttempts
	}
	return attempts
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

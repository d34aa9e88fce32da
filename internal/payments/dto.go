package payments

import (
	"github.com/google/uuid"

	"github.com/kornthana/memberpay-backend/pkg/db/models"
	"github.com/kornthana/memberpay-backend/pkg/enums"
)

// CreatePaymentInput carries the subscribe payload.
type CreatePaymentInput struct {
	PlanID      uuid.UUID           `json:"plan_id" validate:"required"`
	Method      enums.PaymentMethod `json:"method" validate:"required"`
	Source      string              `json:"source,omitempty"`
	Description *string             `json:"description,omitempty" validate:"omitempty,max=500"`
}

// PaymentDetail pairs a payment with its resulting subscription, if any.
type PaymentDetail struct {
	Payment       models.Payment
	Subscription  *models.Subscription
	DaysRemaining int
}

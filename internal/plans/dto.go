package plans

import (
	"github.com/shopspring/decimal"

	"github.com/kornthana/memberpay-backend/pkg/enums"
)

// CreatePlanInput carries the payload for creating a plan.
type CreatePlanInput struct {
	Name         string          `json:"name" validate:"required,max=120"`
	Description  *string         `json:"description,omitempty" validate:"omitempty,max=2000"`
	Price        decimal.Decimal `json:"price" validate:"required"`
	CurrencyCode enums.Currency  `json:"currency_code,omitempty"`
	DurationDays int             `json:"duration_days" validate:"required,gt=0,lte=3650"`
	Features     []string        `json:"features,omitempty" validate:"omitempty,max=50,dive,max=200"`
}

// UpdatePlanInput carries partial updates to a plan.
type UpdatePlanInput struct {
	Name         *string          `json:"name,omitempty" validate:"omitempty,max=120"`
	Description  *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	DurationDays *int             `json:"duration_days,omitempty" validate:"omitempty,gt=0,lte=3650"`
	Features     []string         `json:"features,omitempty" validate:"omitempty,max=50,dive,max=200"`
	Status       *enums.PlanStatus `json:"status,omitempty"`
}

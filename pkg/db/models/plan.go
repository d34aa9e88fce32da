package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/kornthana/memberpay-backend/pkg/enums"
)

// Plan captures a subscription offering priced by an owner.
type Plan struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID      uuid.UUID        `gorm:"column:owner_id;type:uuid;not null;index"`
	Name         string           `gorm:"column:name;not null"`
	Description  *string          `gorm:"column:description"`
	Status       enums.PlanStatus `gorm:"column:status;type:plan_status;not null;default:'active'"`
	PriceAmount  decimal.Decimal  `gorm:"column:price_amount;type:numeric(12,2);not null"`
	CurrencyCode enums.Currency   `gorm:"column:currency_code;not null;default:'THB'"`
	DurationDays int              `gorm:"column:duration_days;not null"`
	Features     pq.StringArray   `gorm:"column:features;type:text[];default:ARRAY[]::text[]"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// PriceSatang converts the decimal plan price to minor currency units.
func (p *Plan) PriceSatang() int64 {
	return p.PriceAmount.Shift(2).IntPart()
}

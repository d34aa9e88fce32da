package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kornthana/memberpay-backend/pkg/enums"
)

// Payment records one charge attempt against the payment gateway. Rows are
// never deleted; status moves forward only.
type Payment struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MemberID        uuid.UUID           `gorm:"column:member_id;type:uuid;not null;index"`
	PlanID          uuid.UUID           `gorm:"column:plan_id;type:uuid;not null;index"`
	AmountSatang    int64               `gorm:"column:amount_satang;not null"`
	Currency        enums.Currency      `gorm:"column:currency;not null;default:'THB'"`
	Method          enums.PaymentMethod `gorm:"column:method;type:payment_method;not null"`
	Status          enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	GatewayChargeID string              `gorm:"column:gateway_charge_id;index"`
	QRCodeURL       *string             `gorm:"column:qr_code_url"`
	Description     *string             `gorm:"column:description"`
	FailureMessage  *string             `gorm:"column:failure_message"`
	PaidAt          *time.Time          `gorm:"column:paid_at"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

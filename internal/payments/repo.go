package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kornthana/memberpay-backend/pkg/db/models"
	"github.com/kornthana/memberpay-backend/pkg/enums"
	"github.com/kornthana/memberpay-backend/pkg/pagination"
)

// Repository handles payment persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) error
	Update(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByGatewayChargeID(ctx context.Context, chargeID string) (*models.Payment, error)
	UpdateStatusFrom(ctx context.Context, id uuid.UUID, from, to enums.PaymentStatus, updates map[string]any) (bool, error)
	ListByMember(ctx context.Context, params ListPaymentsQuery) ([]models.Payment, error)
}

// ListPaymentsQuery configures payment history queries.
type ListPaymentsQuery struct {
	MemberID uuid.UUID
	Status   *enums.PaymentStatus
	Page     pagination.Params
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) Update(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&payment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindByGatewayChargeID(ctx context.Context, chargeID string) (*models.Payment, error) {
	if chargeID == "" {
		return nil, nil
	}
	var payment models.Payment
	if err := r.db.WithContext(ctx).
		Where("gateway_charge_id = ?", chargeID).
		First(&payment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// UpdateStatusFrom performs a conditional status move. The WHERE clause pins
// the expected current status, so for any number of concurrent writers exactly
// one observes RowsAffected == 1 and wins.
func (r *repository) UpdateStatusFrom(ctx context.Context, id uuid.UUID, from, to enums.PaymentStatus, updates map[string]any) (bool, error) {
	values := map[string]any{"status": to}
	for k, v := range updates {
		values[k] = v
	}

	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) ListByMember(ctx context.Context, params ListPaymentsQuery) ([]models.Payment, error) {
	page := params.Page.Normalize()
	query := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("member_id = ?", params.MemberID)
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	var payments []models.Payment
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

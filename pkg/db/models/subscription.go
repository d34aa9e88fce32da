package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kornthana/memberpay-backend/pkg/enums"
)

// Subscription ties a member to a plan for a bounded window. At most one
// active row may exist per (member, plan); renewals extend the window.
type Subscription struct {
	ID        uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MemberID  uuid.UUID                `gorm:"column:member_id;type:uuid;not null;index:idx_subscriptions_member_plan"`
	PlanID    uuid.UUID                `gorm:"column:plan_id;type:uuid;not null;index:idx_subscriptions_member_plan"`
	Status    enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null;default:'active'"`
	StartDate time.Time                `gorm:"column:start_date;not null"`
	EndDate   time.Time                `gorm:"column:end_date;not null"`
	CreatedAt time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// DaysRemaining reports whole days left on the window as of now, never negative.
func (s *Subscription) DaysRemaining(now time.Time) int {
	if s == nil || !now.Before(s.EndDate) {
		return 0
	}
	remaining := s.EndDate.Sub(now)
	days := int(remaining / (24 * time.Hour))
	if remaining%(24*time.Hour) > 0 {
		days++
	}
	return days
}

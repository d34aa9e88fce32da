package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kornthana/memberpay-backend/pkg/enums"
)

// Member is a subscriber account scoped to an owner (tenant).
type Member struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID      uuid.UUID       `gorm:"column:owner_id;type:uuid;not null;index"`
	Email        string          `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash string          `gorm:"column:password_hash;not null"`
	FullName     string          `gorm:"column:full_name;not null"`
	Role         enums.ActorRole `gorm:"column:role;type:actor_role;not null;default:'member'"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

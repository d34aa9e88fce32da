package subscriptions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kornthana/memberpay-backend/pkg/db/models"
	"github.com/kornthana/memberpay-backend/pkg/enums"
)

func setupSubscriptionsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:subsrepo?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	subscriptions := `
CREATE TABLE IF NOT EXISTS subscriptions (
  id TEXT PRIMARY KEY,
  member_id TEXT NOT NULL,
  plan_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  start_date DATETIME NOT NULL,
  end_date DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(subscriptions).Error)
	require.NoError(t, db.Exec(`DELETE FROM subscriptions`).Error)
	return db
}

func seedSubscription(t *testing.T, db *gorm.DB, memberID, planID uuid.UUID, status enums.SubscriptionStatus, created time.Time) *models.Subscription {
	t.Helper()

	sub := &models.Subscription{
		ID:        uuid.New(),
		MemberID:  memberID,
		PlanID:    planID,
		Status:    status,
		StartDate: created,
		EndDate:   created.Add(30 * 24 * time.Hour),
		CreatedAt: created,
		UpdatedAt: created,
	}
	require.NoError(t, db.Create(sub).Error)
	return sub
}

func TestFindLatestForMemberPlan(t *testing.T) {
	db := setupSubscriptionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	memberID, planID := uuid.New(), uuid.New()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	seedSubscription(t, db, memberID, planID, enums.SubscriptionStatusExpired, base)
	latest := seedSubscription(t, db, memberID, planID, enums.SubscriptionStatusActive, base.Add(60*24*time.Hour))
	seedSubscription(t, db, memberID, uuid.New(), enums.SubscriptionStatusActive, base.Add(90*24*time.Hour))

	got, err := repo.FindLatestForMemberPlan(ctx, memberID, planID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, latest.ID, got.ID)
}

func TestFindLatestForMemberPlanMissing(t *testing.T) {
	db := setupSubscriptionsTestDB(t)
	repo := NewRepository(db)

	got, err := repo.FindLatestForMemberPlan(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListByMember(t *testing.T) {
	db := setupSubscriptionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	memberID := uuid.New()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	seedSubscription(t, db, memberID, uuid.New(), enums.SubscriptionStatusActive, base)
	seedSubscription(t, db, memberID, uuid.New(), enums.SubscriptionStatusExpired, base.Add(24*time.Hour))
	seedSubscription(t, db, uuid.New(), uuid.New(), enums.SubscriptionStatusActive, base)

	subs, err := repo.ListByMember(ctx, memberID)
	require.NoError(t, err)
	assert.Len(t, subs, 2)
}

func TestActivateAgainstSQLite(t *testing.T) {
	db := setupSubscriptionsTestDB(t)
	repo := NewRepository(db)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, err := NewService(ServiceParams{Repo: repo, Now: func() time.Time { return now }})
	require.NoError(t, err)
	ctx := context.Background()

	memberID, planID := uuid.New(), uuid.New()
	first, err := svc.Activate(ctx, nil, memberID, planID, 30)
	require.NoError(t, err)

	renewed, err := svc.Activate(ctx, nil, memberID, planID, 30)
	require.NoError(t, err)
	assert.Equal(t, first.ID, renewed.ID)
	assert.Equal(t, first.EndDate.Add(30*24*time.Hour).Unix(), renewed.EndDate.Unix())

	var count int64
	require.NoError(t, db.Model(&models.Subscription{}).
		Where("member_id = ? AND plan_id = ? AND status = ?", memberID, planID, enums.SubscriptionStatusActive).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

package members

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kornthana/memberpay-backend/pkg/db/models"
	"github.com/kornthana/memberpay-backend/pkg/enums"
)

func setupMembersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:membersrepo?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	members := `
CREATE TABLE IF NOT EXISTS members (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  full_name TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'member',
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(members).Error)
	require.NoError(t, db.Exec(`DELETE FROM members`).Error)
	return db
}

func seedMember(t *testing.T, db *gorm.DB, email string) *models.Member {
	t.Helper()

	member := &models.Member{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "hash",
		FullName:     "Seed Member",
		Role:         enums.ActorRoleMember,
	}
	member.OwnerID = member.ID
	require.NoError(t, NewRepository(db).Create(context.Background(), member))
	return member
}

func TestMemberRepoCreateAssignsID(t *testing.T) {
	db := setupMembersTestDB(t)
	repo := NewRepository(db)

	member := &models.Member{
		Email:        "assigned@example.com",
		PasswordHash: "hash",
		FullName:     "No ID Yet",
		Role:         enums.ActorRoleOwner,
	}
	require.NoError(t, repo.Create(context.Background(), member))
	assert.NotEqual(t, uuid.Nil, member.ID)
}

func TestMemberRepoFindByEmail(t *testing.T) {
	db := setupMembersTestDB(t)
	repo := NewRepository(db)
	seeded := seedMember(t, db, "findme@example.com")

	found, err := repo.FindByEmail(context.Background(), "  FindMe@Example.com ")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, seeded.ID, found.ID)

	missing, err := repo.FindByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemberRepoDuplicateEmailFails(t *testing.T) {
	db := setupMembersTestDB(t)
	repo := NewRepository(db)
	seedMember(t, db, "dupe@example.com")

	dupe := &models.Member{
		ID:           uuid.New(),
		Email:        "dupe@example.com",
		PasswordHash: "hash",
		FullName:     "Copycat",
		Role:         enums.ActorRoleMember,
	}
	dupe.OwnerID = dupe.ID
	assert.Error(t, repo.Create(context.Background(), dupe))
}

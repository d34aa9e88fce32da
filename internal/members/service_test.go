package members

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgauth "github.com/kornthana/memberpay-backend/pkg/auth"
	"github.com/kornthana/memberpay-backend/pkg/auth/session"
	"github.com/kornthana/memberpay-backend/pkg/config"
	"github.com/kornthana/memberpay-backend/pkg/db/models"
	"github.com/kornthana/memberpay-backend/pkg/enums"
	pkgerrors "github.com/kornthana/memberpay-backend/pkg/errors"
)

type stubMemberRepo struct {
	members   map[uuid.UUID]*models.Member
	createErr error
}

func newStubMemberRepo() *stubMemberRepo {
	return &stubMemberRepo{members: make(map[uuid.UUID]*models.Member)}
}

func (s *stubMemberRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubMemberRepo) Create(ctx context.Context, member *models.Member) error {
	if s.createErr != nil {
		return s.createErr
	}
	if member.ID == uuid.Nil {
		member.ID = uuid.New()
	}
	s.members[member.ID] = member
	return nil
}

func (s *stubMemberRepo) Update(ctx context.Context, member *models.Member) error {
	s.members[member.ID] = member
	return nil
}

func (s *stubMemberRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	return s.members[id], nil
}

func (s *stubMemberRepo) FindByEmail(ctx context.Context, email string) (*models.Member, error) {
	for _, m := range s.members {
		if m.Email == email {
			return m, nil
		}
	}
	return nil, nil
}

type stubSessionManager struct {
	generated []string
	revoked   []string
	rotateErr error
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	s.generated = append(s.generated, accessID)
	return "refresh-" + accessID, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	if provided != "refresh-"+oldAccessID {
		return "", "", session.ErrInvalidRefreshToken
	}
	next := oldAccessID + "-next"
	s.generated = append(s.generated, next)
	return next, "refresh-" + next, nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     8,
		ArgonKeyLen:      16,
	}
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "memberpay",
		ExpirationMinutes: 15,
	}
}

func newMemberService(t *testing.T) (*Service, *stubMemberRepo, *stubSessionManager) {
	t.Helper()
	repo := newStubMemberRepo()
	sessions := &stubSessionManager{}
	svc, err := NewService(ServiceParams{
		Repo:           repo,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig(),
		PasswordConfig: testPasswordConfig(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, repo, sessions
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	appErr := pkgerrors.As(err)
	if appErr == nil {
		t.Fatalf("expected app error, got %v", err)
	}
	if appErr.Code() != code {
		t.Fatalf("expected code %s, got %s", code, appErr.Code())
	}
}

func TestRegisterOwnerAndMember(t *testing.T) {
	svc, _, _ := newMemberService(t)
	ctx := context.Background()

	owner, err := svc.Register(ctx, RegisterRequest{
		Email:    "Owner@Example.com ",
		Password: "super-secret-1",
		FullName: "Korn Thana",
	})
	if err != nil {
		t.Fatalf("register owner: %v", err)
	}
	if owner.Role != enums.ActorRoleOwner {
		t.Fatalf("expected owner role, got %s", owner.Role)
	}
	if owner.OwnerID != owner.ID {
		t.Fatal("an owner must own its own tenant")
	}
	if owner.Email != "owner@example.com" {
		t.Fatalf("expected normalized email, got %q", owner.Email)
	}

	member, err := svc.Register(ctx, RegisterRequest{
		Email:    "member@example.com",
		Password: "super-secret-2",
		FullName: "Member One",
		OwnerID:  &owner.ID,
	})
	if err != nil {
		t.Fatalf("register member: %v", err)
	}
	if member.Role != enums.ActorRoleMember {
		t.Fatalf("expected member role, got %s", member.Role)
	}
	if member.OwnerID != owner.ID {
		t.Fatal("member must join the owner tenant")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newMemberService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterRequest{Email: "dup@example.com", Password: "super-secret-1", FullName: "A"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := svc.Register(ctx, RegisterRequest{Email: "dup@example.com", Password: "super-secret-2", FullName: "B"})
	expectCode(t, err, pkgerrors.CodeConflict)
}

func TestRegisterInsertRaceMapsToConflict(t *testing.T) {
	svc, repo, _ := newMemberService(t)
	ctx := context.Background()

	// A concurrent insert can slip past the lookup and trip the index instead.
	repo.createErr = errors.New(`duplicate key value violates unique constraint "idx_members_email"`)
	_, err := svc.Register(ctx, RegisterRequest{Email: "race@example.com", Password: "super-secret-1", FullName: "R"})
	expectCode(t, err, pkgerrors.CodeConflict)
}

func TestLoginMintsSessionBackedToken(t *testing.T) {
	svc, _, sessions := newMemberService(t)
	ctx := context.Background()

	profile, err := svc.Register(ctx, RegisterRequest{Email: "login@example.com", Password: "super-secret-1", FullName: "L"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	resp, err := svc.Login(ctx, LoginRequest{Email: "login@example.com", Password: "super-secret-1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected token pair")
	}
	if resp.Member.ID != profile.ID {
		t.Fatal("login must return the member profile")
	}
	if len(sessions.generated) != 1 {
		t.Fatalf("expected one session, got %d", len(sessions.generated))
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse minted token: %v", err)
	}
	if claims.MemberID != profile.ID || claims.OwnerID != profile.OwnerID {
		t.Fatal("claims must carry member and owner ids")
	}
	if claims.ID != sessions.generated[0] {
		t.Fatal("jti must match the stored session id")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, _ := newMemberService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterRequest{Email: "creds@example.com", Password: "super-secret-1", FullName: "C"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := svc.Login(ctx, LoginRequest{Email: "creds@example.com", Password: "wrong-password"})
	expectCode(t, err, pkgerrors.CodeUnauthorized)

	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	expectCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, _, sessions := newMemberService(t)

	if err := svc.Logout(context.Background(), "session-1"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != "session-1" {
		t.Fatalf("expected revoked session, got %v", sessions.revoked)
	}

	err := svc.Logout(context.Background(), "  ")
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestGetProfile(t *testing.T) {
	svc, _, _ := newMemberService(t)
	ctx := context.Background()

	created, err := svc.Register(ctx, RegisterRequest{Email: "p@example.com", Password: "super-secret-1", FullName: "P"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := svc.GetProfile(ctx, created.ID)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if got.Email != "p@example.com" {
		t.Fatalf("unexpected profile %+v", got)
	}

	_, err = svc.GetProfile(ctx, uuid.New())
	expectCode(t, err, pkgerrors.CodeNotFound)
}


func TestRefreshRotatesSession(t *testing.T) {
	svc, _, sessions := newMemberService(t)
	ctx := context.Background()

	profile, err := svc.Register(ctx, RegisterRequest{
		Email:    "rotate@example.com",
		Password: "password123",
		FullName: "Rotate Me",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	_ = profile

	login, err := svc.Login(ctx, LoginRequest{Email: "rotate@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	refreshed, err := svc.Refresh(ctx, RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.AccessToken == "" || refreshed.AccessToken == login.AccessToken {
		t.Fatalf("expected a new access token")
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Fatalf("expected a new refresh token")
	}
	if len(sessions.generated) != 2 {
		t.Fatalf("expected two session writes, got %d", len(sessions.generated))
	}
}

func TestRefreshRejectsWrongRefreshToken(t *testing.T) {
	svc, _, _ := newMemberService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterRequest{
		Email:    "wrong@example.com",
		Password: "password123",
		FullName: "Wrong Token",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	login, err := svc.Login(ctx, LoginRequest{Email: "wrong@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	_, err = svc.Refresh(ctx, RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: "not-the-token",
	})
	expectCode(t, err, pkgerrors.CodeUnauthorized)
}

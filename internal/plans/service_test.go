package plans

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kornthana/memberpay-backend/pkg/db/models"
	"github.com/kornthana/memberpay-backend/pkg/enums"
	pkgerrors "github.com/kornthana/memberpay-backend/pkg/errors"
)

type stubPlanRepo struct {
	plans   map[uuid.UUID]*models.Plan
	created []*models.Plan
}

func newStubPlanRepo() *stubPlanRepo {
	return &stubPlanRepo{plans: make(map[uuid.UUID]*models.Plan)}
}

func (s *stubPlanRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubPlanRepo) Create(ctx context.Context, plan *models.Plan) error {
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}
	s.plans[plan.ID] = plan
	s.created = append(s.created, plan)
	return nil
}

func (s *stubPlanRepo) Update(ctx context.Context, plan *models.Plan) error {
	s.plans[plan.ID] = plan
	return nil
}

func (s *stubPlanRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	return s.plans[id], nil
}

func (s *stubPlanRepo) List(ctx context.Context, params ListPlansQuery) ([]models.Plan, error) {
	var out []models.Plan
	for _, p := range s.plans {
		if params.OwnerID != nil && p.OwnerID != *params.OwnerID {
			continue
		}
		if params.Status != nil && p.Status != *params.Status {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	appErr := pkgerrors.As(err)
	if appErr == nil {
		t.Fatalf("expected app error, got %v", err)
	}
	if appErr.Code() != code {
		t.Fatalf("expected code %s, got %s", code, appErr.Code())
	}
}

func TestCreatePlanDefaultsCurrency(t *testing.T) {
	repo := newStubPlanRepo()
	svc, err := NewService(ServiceParams{Repo: repo})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	plan, err := svc.Create(context.Background(), uuid.New(), CreatePlanInput{
		Name:         "  Gold  ",
		Price:        decimal.NewFromInt(500),
		DurationDays: 30,
	})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	if plan.Name != "Gold" {
		t.Fatalf("expected trimmed name, got %q", plan.Name)
	}
	if plan.CurrencyCode != enums.CurrencyTHB {
		t.Fatalf("expected THB default, got %s", plan.CurrencyCode)
	}
	if plan.Status != enums.PlanStatusActive {
		t.Fatalf("expected active status, got %s", plan.Status)
	}
}

func TestCreatePlanRejectsBadInput(t *testing.T) {
	repo := newStubPlanRepo()
	svc, _ := NewService(ServiceParams{Repo: repo})
	ctx := context.Background()
	owner := uuid.New()

	_, err := svc.Create(ctx, owner, CreatePlanInput{Price: decimal.NewFromInt(1), DurationDays: 30})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Create(ctx, owner, CreatePlanInput{Name: "x", Price: decimal.NewFromInt(-1), DurationDays: 30})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Create(ctx, owner, CreatePlanInput{Name: "x", Price: decimal.NewFromInt(1), DurationDays: 0})
	requireCode(t, err, pkgerrors.CodeValidation)

	if len(repo.created) != 0 {
		t.Fatalf("invalid input must not reach the repo")
	}
}

func TestGetPlanScopedToOwner(t *testing.T) {
	repo := newStubPlanRepo()
	svc, _ := NewService(ServiceParams{Repo: repo})
	ctx := context.Background()

	owner := uuid.New()
	plan, err := svc.Create(ctx, owner, CreatePlanInput{Name: "Gold", Price: decimal.NewFromInt(500), DurationDays: 30})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}

	if _, err := svc.Get(ctx, owner, plan.ID); err != nil {
		t.Fatalf("owner should see own plan: %v", err)
	}

	_, err = svc.Get(ctx, uuid.New(), plan.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestUpdatePlanPartial(t *testing.T) {
	repo := newStubPlanRepo()
	svc, _ := NewService(ServiceParams{Repo: repo})
	ctx := context.Background()
	owner := uuid.New()

	plan, err := svc.Create(ctx, owner, CreatePlanInput{Name: "Gold", Price: decimal.NewFromInt(500), DurationDays: 30})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}

	newPrice := decimal.NewFromInt(750)
	archived := enums.PlanStatusArchived
	updated, err := svc.Update(ctx, owner, plan.ID, UpdatePlanInput{Price: &newPrice, Status: &archived})
	if err != nil {
		t.Fatalf("update plan: %v", err)
	}
	if !updated.PriceAmount.Equal(newPrice) {
		t.Fatalf("price not updated: %s", updated.PriceAmount)
	}
	if updated.Status != enums.PlanStatusArchived {
		t.Fatalf("status not updated: %s", updated.Status)
	}
	if updated.Name != "Gold" {
		t.Fatalf("untouched fields must be preserved, got %q", updated.Name)
	}
}

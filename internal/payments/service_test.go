package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	omisesdk "github.com/omise/omise-go"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kornthana/memberpay-backend/pkg/db/models"
	"github.com/kornthana/memberpay-backend/pkg/enums"
	pkgerrors "github.com/kornthana/memberpay-backend/pkg/errors"
	"github.com/kornthana/memberpay-backend/pkg/omise"
)

type stubPaymentRepo struct {
	payments map[uuid.UUID]*models.Payment
}

func newStubPaymentRepo() *stubPaymentRepo {
	return &stubPaymentRepo{payments: make(map[uuid.UUID]*models.Payment)}
}

func (s *stubPaymentRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	clone := *payment
	s.payments[payment.ID] = &clone
	return nil
}

func (s *stubPaymentRepo) Update(ctx context.Context, payment *models.Payment) error {
	clone := *payment
	s.payments[payment.ID] = &clone
	return nil
}

func (s *stubPaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	p, ok := s.payments[id]
	if !ok {
		return nil, nil
	}
	clone := *p
	return &clone, nil
}

func (s *stubPaymentRepo) FindByGatewayChargeID(ctx context.Context, chargeID string) (*models.Payment, error) {
	for _, p := range s.payments {
		if p.GatewayChargeID == chargeID {
			clone := *p
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *stubPaymentRepo) UpdateStatusFrom(ctx context.Context, id uuid.UUID, from, to enums.PaymentStatus, updates map[string]any) (bool, error) {
	p, ok := s.payments[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	if msg, ok := updates["failure_message"].(string); ok {
		p.FailureMessage = &msg
	}
	if paidAt, ok := updates["paid_at"].(time.Time); ok {
		p.PaidAt = &paidAt
	}
	return true, nil
}

func (s *stubPaymentRepo) ListByMember(ctx context.Context, params ListPaymentsQuery) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range s.payments {
		if p.MemberID != params.MemberID {
			continue
		}
		if params.Status != nil && p.Status != *params.Status {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

type stubPlanFinder struct {
	plans map[uuid.UUID]*models.Plan
}

func (s *stubPlanFinder) FindByID(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	return s.plans[id], nil
}

type stubSubs struct {
	active      map[string]bool
	activations []uuid.UUID
}

func subKey(memberID, planID uuid.UUID) string {
	return memberID.String() + "/" + planID.String()
}

func newStubSubs() *stubSubs {
	return &stubSubs{active: make(map[string]bool)}
}

func (s *stubSubs) Activate(ctx context.Context, tx *gorm.DB, memberID, planID uuid.UUID, durationDays int) (*models.Subscription, error) {
	s.active[subKey(memberID, planID)] = true
	s.activations = append(s.activations, planID)
	return &models.Subscription{MemberID: memberID, PlanID: planID, Status: enums.SubscriptionStatusActive}, nil
}

func (s *stubSubs) HasActive(ctx context.Context, memberID, planID uuid.UUID) (bool, error) {
	return s.active[subKey(memberID, planID)], nil
}

func (s *stubSubs) GetForMemberPlan(ctx context.Context, memberID, planID uuid.UUID) (*models.Subscription, error) {
	if !s.active[subKey(memberID, planID)] {
		return nil, nil
	}
	return &models.Subscription{MemberID: memberID, PlanID: planID, Status: enums.SubscriptionStatusActive}, nil
}

func (s *stubSubs) DaysRemaining(ctx context.Context, memberID, planID uuid.UUID) (int, error) {
	if s.active[subKey(memberID, planID)] {
		return 30, nil
	}
	return 0, nil
}

type stubGateway struct {
	createCalls int
	getCalls    int
	charge      *omise.Charge
	createErr   error
	getCharge   *omise.Charge
	getErr      error
}

func (s *stubGateway) CreateCharge(ctx context.Context, input omise.ChargeInput) (*omise.Charge, error) {
	s.createCalls++
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.charge, nil
}

func (s *stubGateway) GetCharge(ctx context.Context, chargeID string) (*omise.Charge, error) {
	s.getCalls++
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.getCharge, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fixture struct {
	svc     *Service
	repo    *stubPaymentRepo
	subs    *stubSubs
	gateway *stubGateway
	plan    *models.Plan
	member  uuid.UUID
	owner   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	owner := uuid.New()
	plan := &models.Plan{
		ID:           uuid.New(),
		OwnerID:      owner,
		Name:         "Gold",
		Status:       enums.PlanStatusActive,
		PriceAmount:  decimal.NewFromInt(500),
		CurrencyCode: enums.CurrencyTHB,
		DurationDays: 30,
	}

	repo := newStubPaymentRepo()
	subs := newStubSubs()
	gateway := &stubGateway{}

	svc, err := NewService(ServiceParams{
		Repo:          repo,
		Plans:         &stubPlanFinder{plans: map[uuid.UUID]*models.Plan{plan.ID: plan}},
		Subscriptions: subs,
		Gateway:       gateway,
		DB:            stubTxRunner{},
		Now:           func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	return &fixture{
		svc:     svc,
		repo:    repo,
		subs:    subs,
		gateway: gateway,
		plan:    plan,
		member:  uuid.New(),
		owner:   owner,
	}
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) *pkgerrors.Error {
	t.Helper()
	appErr := pkgerrors.As(err)
	if appErr == nil {
		t.Fatalf("expected app error, got %v", err)
	}
	if appErr.Code() != code {
		t.Fatalf("expected code %s, got %s", code, appErr.Code())
	}
	return appErr
}

func TestCreateCardPaymentSettlesSynchronously(t *testing.T) {
	f := newFixture(t)
	f.gateway.charge = &omise.Charge{
		ID:           "chrg_test_1",
		Status:       "successful",
		AmountSatang: 50000,
		Currency:     "THB",
		Paid:         true,
	}

	payment, err := f.svc.Create(context.Background(), f.member, f.owner, CreatePaymentInput{
		PlanID: f.plan.ID,
		Method: enums.PaymentMethodCard,
		Source: "tokn_test_abc",
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if payment.AmountSatang != 50000 {
		t.Fatalf("expected 500 THB as 50000 satang, got %d", payment.AmountSatang)
	}
	if payment.Status != enums.PaymentStatusSuccessful {
		t.Fatalf("expected successful, got %s", payment.Status)
	}
	if payment.PaidAt == nil {
		t.Fatal("expected paid_at to be set")
	}
	if len(f.subs.activations) != 1 {
		t.Fatalf("expected exactly one activation, got %d", len(f.subs.activations))
	}
}

func TestCreatePromptpayPaymentStaysPendingWithQR(t *testing.T) {
	f := newFixture(t)
	qr := "https://api.omise.co/qr/abc"
	f.gateway.charge = &omise.Charge{
		ID:           "chrg_test_2",
		Status:       "pending",
		AmountSatang: 50000,
		Currency:     "THB",
		QRCodeURL:    &qr,
	}

	payment, err := f.svc.Create(context.Background(), f.member, f.owner, CreatePaymentInput{
		PlanID: f.plan.ID,
		Method: enums.PaymentMethodPromptPay,
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if payment.Status != enums.PaymentStatusPending {
		t.Fatalf("expected pending, got %s", payment.Status)
	}
	if payment.QRCodeURL == nil || *payment.QRCodeURL != qr {
		t.Fatalf("expected QR url on payment, got %v", payment.QRCodeURL)
	}
	if len(f.subs.activations) != 0 {
		t.Fatal("pending payment must not activate a subscription")
	}
}

func TestCreateRejectsDuplicateActiveSubscriptionBeforeGateway(t *testing.T) {
	f := newFixture(t)
	f.subs.active[subKey(f.member, f.plan.ID)] = true

	_, err := f.svc.Create(context.Background(), f.member, f.owner, CreatePaymentInput{
		PlanID: f.plan.ID,
		Method: enums.PaymentMethodCard,
		Source: "tokn_test_abc",
	})
	expectCode(t, err, pkgerrors.CodeConflict)
	if f.gateway.createCalls != 0 {
		t.Fatal("duplicate check must run before any gateway call")
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.member, f.owner, CreatePaymentInput{PlanID: f.plan.ID, Method: "paypal"})
	expectCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Create(ctx, f.member, f.owner, CreatePaymentInput{PlanID: f.plan.ID, Method: enums.PaymentMethodCard})
	expectCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Create(ctx, f.member, f.owner, CreatePaymentInput{PlanID: f.plan.ID, Method: enums.PaymentMethodCard, Source: "card_12345"})
	expectCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Create(ctx, f.member, f.owner, CreatePaymentInput{PlanID: f.plan.ID, Method: enums.PaymentMethodPromptPay, Source: "tokn_test_abc"})
	expectCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Create(ctx, f.member, f.owner, CreatePaymentInput{PlanID: uuid.New(), Method: enums.PaymentMethodCard, Source: "tokn_test_abc"})
	expectCode(t, err, pkgerrors.CodeNotFound)

	if f.gateway.createCalls != 0 {
		t.Fatal("invalid input must never reach the gateway")
	}
}

func TestCreateRejectsForeignTenantPlan(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), f.member, uuid.New(), CreatePaymentInput{
		PlanID: f.plan.ID,
		Method: enums.PaymentMethodCard,
		Source: "tokn_test_abc",
	})
	expectCode(t, err, pkgerrors.CodeNotFound)
}

func TestCreateDeclinedCardFailsPayment(t *testing.T) {
	f := newFixture(t)
	f.gateway.createErr = &omisesdk.Error{Code: "insufficient_fund", Message: "insufficient funds"}

	_, err := f.svc.Create(context.Background(), f.member, f.owner, CreatePaymentInput{
		PlanID: f.plan.ID,
		Method: enums.PaymentMethodCard,
		Source: "tokn_test_abc",
	})
	expectCode(t, err, pkgerrors.CodePayment)

	var stored *models.Payment
	for _, p := range f.repo.payments {
		stored = p
	}
	if stored == nil || stored.Status != enums.PaymentStatusFailed {
		t.Fatalf("expected payment marked failed, got %+v", stored)
	}
	if stored.FailureMessage == nil || *stored.FailureMessage != "insufficient funds" {
		t.Fatalf("expected gateway failure message, got %v", stored.FailureMessage)
	}
	if len(f.subs.activations) != 0 {
		t.Fatal("declined payment must not activate")
	}
}

func TestCreateGatewayOutageIsDependencyError(t *testing.T) {
	f := newFixture(t)
	f.gateway.createErr = errors.New("connection reset by peer")

	_, err := f.svc.Create(context.Background(), f.member, f.owner, CreatePaymentInput{
		PlanID: f.plan.ID,
		Method: enums.PaymentMethodCard,
		Source: "tokn_test_abc",
	})
	expectCode(t, err, pkgerrors.CodeDependency)

	// The pending row stays pending; reconciliation can still settle it.
	for _, p := range f.repo.payments {
		if p.Status != enums.PaymentStatusPending {
			t.Fatalf("expected pending after outage, got %s", p.Status)
		}
	}
}

func TestApplyChargeUpdateActivatesOnce(t *testing.T) {
	f := newFixture(t)
	payment := &models.Payment{
		MemberID:        f.member,
		PlanID:          f.plan.ID,
		AmountSatang:    50000,
		Currency:        enums.CurrencyTHB,
		Method:          enums.PaymentMethodPromptPay,
		Status:          enums.PaymentStatusPending,
		GatewayChargeID: "chrg_test_3",
	}
	if err := f.repo.Create(context.Background(), payment); err != nil {
		t.Fatalf("seed payment: %v", err)
	}

	charge := &omise.Charge{ID: "chrg_test_3", Status: "successful", Paid: true}

	applied, err := f.svc.ApplyChargeUpdate(context.Background(), charge)
	if err != nil {
		t.Fatalf("apply charge update: %v", err)
	}
	if !applied {
		t.Fatal("first delivery must apply")
	}

	// Replayed webhook: terminal no-op.
	applied, err = f.svc.ApplyChargeUpdate(context.Background(), charge)
	if err != nil {
		t.Fatalf("replayed update: %v", err)
	}
	if applied {
		t.Fatal("replay must be a no-op")
	}
	if len(f.subs.activations) != 1 {
		t.Fatalf("expected exactly one activation, got %d", len(f.subs.activations))
	}
}

func TestApplyChargeUpdateUnknownCharge(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ApplyChargeUpdate(context.Background(), &omise.Charge{ID: "chrg_missing", Status: "successful"})
	expectCode(t, err, pkgerrors.CodeNotFound)
}

func TestApplyChargeUpdateIgnoresIllegalMove(t *testing.T) {
	f := newFixture(t)
	payment := &models.Payment{
		MemberID:        f.member,
		PlanID:          f.plan.ID,
		Status:          enums.PaymentStatusFailed,
		Method:          enums.PaymentMethodCard,
		GatewayChargeID: "chrg_test_4",
	}
	if err := f.repo.Create(context.Background(), payment); err != nil {
		t.Fatalf("seed payment: %v", err)
	}

	applied, err := f.svc.ApplyChargeUpdate(context.Background(), &omise.Charge{ID: "chrg_test_4", Status: "successful"})
	if err != nil {
		t.Fatalf("apply charge update: %v", err)
	}
	if applied {
		t.Fatal("failed -> successful must be ignored")
	}
	if len(f.subs.activations) != 0 {
		t.Fatal("illegal move must not activate")
	}
}

func TestRefundFromSuccessful(t *testing.T) {
	f := newFixture(t)
	payment := &models.Payment{
		MemberID:        f.member,
		PlanID:          f.plan.ID,
		Status:          enums.PaymentStatusSuccessful,
		Method:          enums.PaymentMethodCard,
		GatewayChargeID: "chrg_test_5",
	}
	if err := f.repo.Create(context.Background(), payment); err != nil {
		t.Fatalf("seed payment: %v", err)
	}

	applied, err := f.svc.ApplyChargeUpdate(context.Background(), &omise.Charge{ID: "chrg_test_5", Status: "reversed"})
	if err != nil {
		t.Fatalf("apply charge update: %v", err)
	}
	if !applied {
		t.Fatal("successful -> refunded must apply")
	}
	stored, _ := f.repo.FindByID(context.Background(), payment.ID)
	if stored.Status != enums.PaymentStatusRefunded {
		t.Fatalf("expected refunded, got %s", stored.Status)
	}
}

func TestGetScopedToMember(t *testing.T) {
	f := newFixture(t)
	payment := &models.Payment{
		MemberID: f.member,
		PlanID:   f.plan.ID,
		Status:   enums.PaymentStatusSuccessful,
		Method:   enums.PaymentMethodCard,
	}
	if err := f.repo.Create(context.Background(), payment); err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	f.subs.active[subKey(f.member, f.plan.ID)] = true

	detail, err := f.svc.Get(context.Background(), f.member, payment.ID)
	if err != nil {
		t.Fatalf("get payment: %v", err)
	}
	if detail.Subscription == nil || detail.DaysRemaining != 30 {
		t.Fatalf("expected subscription summary, got %+v", detail)
	}

	_, err = f.svc.Get(context.Background(), uuid.New(), payment.ID)
	expectCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.Get(context.Background(), f.member, uuid.New())
	expectCode(t, err, pkgerrors.CodeNotFound)
}

package payments

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kornthana/memberpay-backend/api/controllers/identity"
	"github.com/kornthana/memberpay-backend/api/responses"
	"github.com/kornthana/memberpay-backend/api/validators"
	"github.com/kornthana/memberpay-backend/internal/payments"
	"github.com/kornthana/memberpay-backend/pkg/db/models"
	"github.com/kornthana/memberpay-backend/pkg/enums"
	pkgerrors "github.com/kornthana/memberpay-backend/pkg/errors"
	"github.com/kornthana/memberpay-backend/pkg/logger"
	"github.com/kornthana/memberpay-backend/pkg/pagination"
)

type paymentResponse struct {
	PaymentID      string  `json:"payment_id"`
	PlanID         string  `json:"plan_id"`
	Status         string  `json:"status"`
	Method         string  `json:"method"`
	Amount         int64   `json:"amount"`
	Currency       string  `json:"currency"`
	QRCodeURL      *string `json:"qr_code_url,omitempty"`
	FailureMessage *string `json:"failure_message,omitempty"`
	CreatedAt      string  `json:"created_at"`
	PaidAt         *string `json:"paid_at,omitempty"`
}

type paymentDetailResponse struct {
	paymentResponse
	Subscription *subscriptionSummary `json:"subscription,omitempty"`
}

type subscriptionSummary struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	DaysRemaining int    `json:"days_remaining"`
}

func toPaymentResponse(p *models.Payment) paymentResponse {
	resp := paymentResponse{
		PaymentID:      p.ID.String(),
		PlanID:         p.PlanID.String(),
		Status:         p.Status.String(),
		Method:         p.Method.String(),
		Amount:         p.AmountSatang,
		Currency:       p.Currency.String(),
		QRCodeURL:      p.QRCodeURL,
		FailureMessage: p.FailureMessage,
		CreatedAt:      p.CreatedAt.UTC().Format(time.RFC3339),
	}
	if p.PaidAt != nil {
		paid := p.PaidAt.UTC().Format(time.RFC3339)
		resp.PaidAt = &paid
	}
	return resp
}

// Subscribe opens a payment for a plan and charges the gateway.
func Subscribe(svc *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		memberID, err := identity.RequireMemberID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ownerID, err := identity.RequireOwnerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body payments.CreatePaymentInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.Create(r.Context(), memberID, ownerID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toPaymentResponse(payment))
	}
}

// Detail returns one payment with its subscription summary.
func Detail(svc *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		memberID, err := identity.RequireMemberID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		paymentID, err := parsePaymentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.Get(r.Context(), memberID, paymentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := paymentDetailResponse{paymentResponse: toPaymentResponse(&detail.Payment)}
		if detail.Subscription != nil {
			resp.Subscription = &subscriptionSummary{
				ID:            detail.Subscription.ID.String(),
				Status:        detail.Subscription.Status.String(),
				StartDate:     detail.Subscription.StartDate.UTC().Format("2006-01-02"),
				EndDate:       detail.Subscription.EndDate.UTC().Format("2006-01-02"),
				DaysRemaining: detail.DaysRemaining,
			}
		}
		responses.WriteSuccess(w, resp)
	}
}

// Poll blocks until the payment reaches a terminal status or attempts run out.
func Poll(poller *payments.Poller, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if poller == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "poller unavailable"))
			return
		}

		memberID, err := identity.RequireMemberID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		paymentID, err := parsePaymentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// The poller clamps attempts to its own bounds; here the value only
		// needs to be numeric.
		maxAttempts, err := validators.ParseQueryInt(r, "maxAttempts", 0, -(1<<30), 1<<30)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := poller.Poll(r.Context(), memberID, paymentID, maxAttempts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toPaymentResponse(payment))
	}
}

// History lists the member's payments, newest first.
func History(svc *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		memberID, err := identity.RequireMemberID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// Out-of-range values are clamped by Normalize below, not rejected.
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, -(1<<30), 1<<30)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, -(1<<30), 1<<30)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var status *enums.PaymentStatus
		if raw := r.URL.Query().Get("status"); raw != "" {
			candidate := enums.PaymentStatus(raw)
			if !candidate.IsValid() {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter").WithDetails(map[string]any{"status": raw}))
				return
			}
			status = &candidate
		}

		page := pagination.Params{Limit: limit, Offset: offset}
		page = page.Normalize()

		list, err := svc.List(r.Context(), memberID, status, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]paymentResponse, 0, len(list))
		for i := range list {
			items = append(items, toPaymentResponse(&list[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"payments": items,
			"limit":    page.Limit,
			"offset":   page.Offset,
		})
	}
}

func parsePaymentID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "paymentId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment id").WithDetails(map[string]any{"payment_id": raw})
	}
	return id, nil
}

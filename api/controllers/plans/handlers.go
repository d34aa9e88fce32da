package plans

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kornthana/memberpay-backend/api/controllers/identity"
	"github.com/kornthana/memberpay-backend/api/responses"
	"github.com/kornthana/memberpay-backend/api/validators"
	"github.com/kornthana/memberpay-backend/internal/plans"
	"github.com/kornthana/memberpay-backend/pkg/db/models"
	"github.com/kornthana/memberpay-backend/pkg/enums"
	pkgerrors "github.com/kornthana/memberpay-backend/pkg/errors"
	"github.com/kornthana/memberpay-backend/pkg/logger"
	"github.com/kornthana/memberpay-backend/pkg/pagination"
)

type planResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  *string  `json:"description,omitempty"`
	Status       string   `json:"status"`
	Price        string   `json:"price"`
	CurrencyCode string   `json:"currency_code"`
	DurationDays int      `json:"duration_days"`
	Features     []string `json:"features,omitempty"`
}

func toPlanResponse(p *models.Plan) planResponse {
	return planResponse{
		ID:           p.ID.String(),
		Name:         p.Name,
		Description:  p.Description,
		Status:       p.Status.String(),
		Price:        p.PriceAmount.StringFixed(2),
		CurrencyCode: p.CurrencyCode.String(),
		DurationDays: p.DurationDays,
		Features:     []string(p.Features),
	}
}

// List returns the tenant's plans.
func List(svc *plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}

		ownerID, err := identity.RequireOwnerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var status *enums.PlanStatus
		if raw := r.URL.Query().Get("status"); raw != "" {
			candidate := enums.PlanStatus(raw)
			status = &candidate
		}

		page := pagination.Params{Limit: limit, Offset: offset}
		page = page.Normalize()

		list, err := svc.List(r.Context(), ownerID, status, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]planResponse, 0, len(list))
		for i := range list {
			items = append(items, toPlanResponse(&list[i]))
		}
		responses.WriteSuccess(w, map[string]any{"plans": items})
	}
}

// Get returns a single plan in the caller's tenant.
func Get(svc *plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}

		ownerID, err := identity.RequireOwnerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		planID, err := parsePlanID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		plan, err := svc.Get(r.Context(), ownerID, planID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toPlanResponse(plan))
	}
}

// Create registers a plan in the owner's catalog.
func Create(svc *plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}

		ownerID, err := identity.RequireOwnerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body plans.CreatePlanInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		plan, err := svc.Create(r.Context(), ownerID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toPlanResponse(plan))
	}
}

// Update applies a partial update to an owner's plan.
func Update(svc *plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}

		ownerID, err := identity.RequireOwnerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		planID, err := parsePlanID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body plans.UpdatePlanInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		plan, err := svc.Update(r.Context(), ownerID, planID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toPlanResponse(plan))
	}
}

func parsePlanID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "planId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid plan id").WithDetails(map[string]any{"plan_id": raw})
	}
	return id, nil
}

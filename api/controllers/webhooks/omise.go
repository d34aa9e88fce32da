package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/kornthana/memberpay-backend/api/responses"
	"github.com/kornthana/memberpay-backend/pkg/logger"
)

// OmiseWebhookService processes gateway event payloads.
type OmiseWebhookService interface {
	Ingest(ctx context.Context, payload []byte) error
}

// OmiseWebhook receives gateway events. The endpoint always acknowledges with
// 200 so the gateway does not retry forever; failures are logged and the
// poller covers any missed settlement.
func OmiseWebhook(svc OmiseWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ack := func() {
			responses.WriteRaw(w, http.StatusOK, map[string]bool{"received": true})
		}

		if svc == nil {
			if logg != nil {
				logg.Warn(ctx, "webhook received with no service wired")
			}
			ack()
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			if logg != nil {
				logg.Error(ctx, "webhook body read failed", err)
			}
			ack()
			return
		}

		if err := svc.Ingest(ctx, payload); err != nil {
			if logg != nil {
				logg.Error(ctx, "webhook processing failed", err)
			}
		}
		ack()
	}
}

package payments

import (
	"github.com/kornthana/memberpay-backend/pkg/enums"
)

// allowedTransitions is the full payment state machine. Terminal states have
// no outgoing edges except successful, which can still be refunded.
var allowedTransitions = map[enums.PaymentStatus][]enums.PaymentStatus{
	enums.PaymentStatusPending: {
		enums.PaymentStatusSuccessful,
		enums.PaymentStatusFailed,
		enums.PaymentStatusExpired,
	},
	enums.PaymentStatusSuccessful: {
		enums.PaymentStatusRefunded,
	},
}

// CanTransition reports whether moving a payment from one status to another
// is legal.
func CanTransition(from, to enums.PaymentStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// MapChargeStatus translates a gateway charge status string into the local
// payment status. Unknown statuses report ok=false and are ignored by
// callers.
func MapChargeStatus(status string) (enums.PaymentStatus, bool) {
	switch status {
	case "pending":
		return enums.PaymentStatusPending, true
	case "successful":
		return enums.PaymentStatusSuccessful, true
	case "failed":
		return enums.PaymentStatusFailed, true
	case "expired":
		return enums.PaymentStatusExpired, true
	case "reversed":
		return enums.PaymentStatusRefunded, true
	default:
		return "", false
	}
}

package payments

import (
	"testing"

	"github.com/kornthana/memberpay-backend/pkg/enums"
)

func TestCanTransitionTable(t *testing.T) {
	statuses := []enums.PaymentStatus{
		enums.PaymentStatusPending,
		enums.PaymentStatusSuccessful,
		enums.PaymentStatusFailed,
		enums.PaymentStatusExpired,
		enums.PaymentStatusRefunded,
	}

	allowed := map[[2]enums.PaymentStatus]bool{
		{enums.PaymentStatusPending, enums.PaymentStatusSuccessful}:  true,
		{enums.PaymentStatusPending, enums.PaymentStatusFailed}:      true,
		{enums.PaymentStatusPending, enums.PaymentStatusExpired}:     true,
		{enums.PaymentStatusSuccessful, enums.PaymentStatusRefunded}: true,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			want := allowed[[2]enums.PaymentStatus{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestFailedIsTerminalForRetries(t *testing.T) {
	// A failed card charge stays failed; retrying means a new payment.
	if CanTransition(enums.PaymentStatusFailed, enums.PaymentStatusPending) {
		t.Fatal("failed payments must not reopen")
	}
	if CanTransition(enums.PaymentStatusFailed, enums.PaymentStatusSuccessful) {
		t.Fatal("failed payments must not succeed afterwards")
	}
}

func TestMapChargeStatus(t *testing.T) {
	cases := []struct {
		in   string
		want enums.PaymentStatus
		ok   bool
	}{
		{in: "pending", want: enums.PaymentStatusPending, ok: true},
		{in: "successful", want: enums.PaymentStatusSuccessful, ok: true},
		{in: "failed", want: enums.PaymentStatusFailed, ok: true},
		{in: "expired", want: enums.PaymentStatusExpired, ok: true},
		{in: "reversed", want: enums.PaymentStatusRefunded, ok: true},
		{in: "unknown_future_status", ok: false},
		{in: "", ok: false},
	}
	for _, tc := range cases {
		got, ok := MapChargeStatus(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("MapChargeStatus(%q) = (%s, %v), want (%s, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

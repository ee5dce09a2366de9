package exchange

import (
	"errors"
	"testing"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

func TestClassifyRejectionCodes(t *testing.T) {
	cases := []struct {
		code int
		want domain.RejectionKind
	}{
		{-4131, domain.RejectPercentPrice},
		{-2027, domain.RejectLeverageBracket},
		{-2019, domain.RejectInsufficientMargin},
		{-1102, domain.RejectOther},
	}
	for _, tc := range cases {
		err := classify(tc.code, "msg")
		if err.Kind != tc.want {
			t.Errorf("classify(%d): got kind %q, want %q", tc.code, err.Kind, tc.want)
		}
		var rej *domain.RejectionError
		if !errors.As(error(err), &rej) {
			t.Errorf("classify(%d): not a RejectionError via errors.As", tc.code)
		}
	}
}

func TestRejectionRetryable(t *testing.T) {
	if !classify(-4131, "").Retryable() {
		t.Error("percent-price rejection should be retryable with smaller size")
	}
	if !classify(-2027, "").Retryable() {
		t.Error("leverage bracket rejection should be retryable with smaller size")
	}
	if classify(-2019, "").Retryable() {
		t.Error("insufficient margin rejection should not be retryable")
	}
	if classify(-1102, "").Retryable() {
		t.Error("unclassified rejection should not be retryable")
	}
}

func TestDecimalsOf(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"0.001000", 3},
		{"1.00", 0},
		{"0.1", 1},
		{"10", 0},
		{"0.00000100", 6},
	}
	for _, tc := range cases {
		if got := decimalsOf(tc.in); got != tc.want {
			t.Errorf("decimalsOf(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

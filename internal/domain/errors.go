package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrNoTradableSymbols  = errors.New("no tradable symbols configured")
	ErrOracleUnavailable  = errors.New("oracle unavailable")
	ErrFiltersUnavailable = errors.New("trading filters unavailable")
)

// RejectionKind classifies an exchange order rejection into the classes the
// executor's retry loop cares about. Only percent-price and leverage-bracket
// rejections are retryable with a reduced quantity; everything else either
// aborts the tick (insufficient margin) or propagates.
type RejectionKind string

const (
	RejectPercentPrice       RejectionKind = "percent_price"
	RejectLeverageBracket    RejectionKind = "leverage_bracket"
	RejectInsufficientMargin RejectionKind = "insufficient_margin"
	RejectOther              RejectionKind = "other"
)

// RejectionError wraps an exchange order rejection with its classified kind
// and the raw exchange error code.
type RejectionError struct {
	Kind    RejectionKind
	Code    int
	Message string
}

func (e *RejectionError) Error() string {
	return "exchange rejection (" + string(e.Kind) + "): " + e.Message
}

// Retryable reports whether the rejection class allows a quantity-backoff
// retry.
func (e *RejectionError) Retryable() bool {
	return e.Kind == RejectPercentPrice || e.Kind == RejectLeverageBracket
}

// RejectionKindOf extracts the rejection class from an error chain. Errors
// that are not RejectionErrors are classified as RejectOther.
func RejectionKindOf(err error) RejectionKind {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Kind
	}
	return RejectOther
}

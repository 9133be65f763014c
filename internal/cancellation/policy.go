package cancellation

import (
	"errors"
	"time"

	"github.com/SafalBhandari12/sojournBackend-sub001/internal/pkg/money"
)

var ErrInvalidPolicy = errors.New("cancellation: invalid refund policy")

// Policy sets how much of the paid amount comes back, by lead time before check-in.
//
//	lead >= FullRefundWindow                      -> everything paid
//	PartialRefundWindow <= lead < FullRefundWindow -> PartialRefundPercent of paid
//	lead < PartialRefundWindow                    -> nothing
type Policy struct {
	FullRefundWindow     time.Duration
	PartialRefundWindow  time.Duration
	PartialRefundPercent int
}

func (p Policy) Validate() error {
	switch {
	case p.FullRefundWindow < 0, p.PartialRefundWindow < 0:
		return ErrInvalidPolicy
	case p.PartialRefundWindow > p.FullRefundWindow:
		return ErrInvalidPolicy
	case p.PartialRefundPercent < 0, p.PartialRefundPercent > 100:
		return ErrInvalidPolicy
	}
	return nil
}

// ComputeRefund prices a cancellation at now for a stay starting at start.
// The result is always within [0, paid].
func ComputeRefund(start, now time.Time, paid money.Money, policy Policy) money.Money {
	if !paid.IsPositive() {
		return money.Zero(paid.Currency)
	}

	lead := start.Sub(now)
	switch {
	case lead >= policy.FullRefundWindow:
		return paid
	case lead >= policy.PartialRefundWindow:
		return paid.Percent(policy.PartialRefundPercent)
	default:
		return money.Zero(paid.Currency)
	}
}

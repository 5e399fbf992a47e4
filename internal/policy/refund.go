// Package policy holds the pure pricing rules: refund tiers by cancellation
// lead time. No storage, no clock reads; callers pass both timestamps in.
package policy

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// RefundTier grants Percentage back when the cancellation happens at least
// MinLeadTime before the scheduled start.
type RefundTier struct {
	MinLeadTime time.Duration
	Percentage  decimal.Decimal
}

// RefundPolicy is an ordered set of tiers. Percentages must not increase as
// lead time shrinks; NewRefundPolicy normalizes ordering so callers can pass
// tiers in any order.
type RefundPolicy struct {
	tiers []RefundTier
}

func NewRefundPolicy(tiers []RefundTier) *RefundPolicy {
	sorted := make([]RefundTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MinLeadTime > sorted[j].MinLeadTime
	})
	return &RefundPolicy{tiers: sorted}
}

// DefaultRefundPolicy: full refund with a day or more of notice, half inside
// a day but with at least six hours, nothing in the final six hours.
func DefaultRefundPolicy() *RefundPolicy {
	return NewRefundPolicy([]RefundTier{
		{MinLeadTime: 24 * time.Hour, Percentage: decimal.NewFromInt(100)},
		{MinLeadTime: 6 * time.Hour, Percentage: decimal.NewFromInt(50)},
	})
}

// Calculate returns the refund percentage and amount for a cancellation at
// cancelledAt of a session starting at scheduledStart. Cancelling after the
// start refunds nothing. The returned amount is rounded to cents.
func (p *RefundPolicy) Calculate(
	cancelledAt time.Time,
	scheduledStart time.Time,
	amount decimal.Decimal,
) (percentage decimal.Decimal, refund decimal.Decimal) {
	leadTime := scheduledStart.Sub(cancelledAt)
	if leadTime <= 0 {
		return decimal.Zero, decimal.Zero
	}

	for _, tier := range p.tiers {
		if leadTime >= tier.MinLeadTime {
			refund = amount.Mul(tier.Percentage).Div(decimal.NewFromInt(100)).Round(2)
			return tier.Percentage, refund
		}
	}
	return decimal.Zero, decimal.Zero
}

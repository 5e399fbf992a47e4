package policy

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionStart = time.Date(2026, 6, 1, 15, 0, 0, 0, time.UTC)

func calc(t *testing.T, lead time.Duration, amount string) (decimal.Decimal, decimal.Decimal) {
	t.Helper()
	amt, err := decimal.NewFromString(amount)
	require.NoError(t, err)
	return DefaultRefundPolicy().Calculate(sessionStart.Add(-lead), sessionStart, amt)
}

func TestRefundTierBoundaries(t *testing.T) {
	cases := []struct {
		name       string
		lead       time.Duration
		percentage int64
		refund     string
	}{
		{"week out", 7 * 24 * time.Hour, 100, "100"},
		{"exactly 24h", 24 * time.Hour, 100, "100"},
		{"just under 24h", 24*time.Hour - time.Minute, 50, "50"},
		{"exactly 6h", 6 * time.Hour, 50, "50"},
		{"just under 6h", 6*time.Hour - time.Minute, 0, "0"},
		{"two hours before", 2 * time.Hour, 0, "0"},
		{"at start", 0, 0, "0"},
		{"after start", -time.Hour, 0, "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pct, refund := calc(t, tc.lead, "100")
			assert.True(t, decimal.NewFromInt(tc.percentage).Equal(pct),
				"percentage: want %d, got %s", tc.percentage, pct)
			assert.True(t, decimal.RequireFromString(tc.refund).Equal(refund),
				"refund: want %s, got %s", tc.refund, refund)
		})
	}
}

func TestRefundRoundsToCents(t *testing.T) {
	_, refund := calc(t, 12*time.Hour, "33.33")
	assert.True(t, decimal.RequireFromString("16.67").Equal(refund), "got %s", refund)
}

func TestRefundPercentageIsMonotonicInLeadTime(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	amount := decimal.NewFromInt(100)
	p := DefaultRefundPolicy()

	leads := make([]time.Duration, 0, 200)
	for i := 0; i < 200; i++ {
		leads = append(leads, time.Duration(rng.Int63n(int64(72*time.Hour))))
	}

	for i := 0; i < len(leads); i++ {
		for j := i + 1; j < len(leads); j++ {
			shorter, longer := leads[i], leads[j]
			if shorter > longer {
				shorter, longer = longer, shorter
			}
			pctShort, _ := p.Calculate(sessionStart.Add(-shorter), sessionStart, amount)
			pctLong, _ := p.Calculate(sessionStart.Add(-longer), sessionStart, amount)
			require.Truef(t, pctLong.GreaterThanOrEqual(pctShort),
				"lead %s gives %s but longer lead %s gives %s", shorter, pctShort, longer, pctLong)
		}
	}
}

func TestTierOrderDoesNotMatter(t *testing.T) {
	scrambled := NewRefundPolicy([]RefundTier{
		{MinLeadTime: 6 * time.Hour, Percentage: decimal.NewFromInt(50)},
		{MinLeadTime: 24 * time.Hour, Percentage: decimal.NewFromInt(100)},
	})
	pct, _ := scrambled.Calculate(sessionStart.Add(-48*time.Hour), sessionStart, decimal.NewFromInt(10))
	assert.True(t, decimal.NewFromInt(100).Equal(pct))
}

package cancellation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/SafalBhandari12/sojournBackend-sub001/internal/pkg/money"
)

func TestComputeRefund(t *testing.T) {
	policy := Policy{
		FullRefundWindow:     48 * time.Hour,
		PartialRefundWindow:  24 * time.Hour,
		PartialRefundPercent: 50,
	}
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	paid := money.Must(800_001, "INR")

	tests := []struct {
		name string
		lead time.Duration
		want int64
	}{
		{"well ahead", 10 * 24 * time.Hour, 800_001},
		{"exactly at the full window", 48 * time.Hour, 800_001},
		{"inside the full window", 47 * time.Hour, 400_000},
		{"exactly at the partial window", 24 * time.Hour, 400_000},
		{"inside the partial window", 23 * time.Hour, 0},
		{"after check-in", -time.Hour, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeRefund(start, start.Add(-tt.lead), paid, policy)
			assert.Equal(t, tt.want, got.Amount)
			assert.Equal(t, "INR", got.Currency)
			assert.LessOrEqual(t, got.Amount, paid.Amount)
		})
	}
}

func TestComputeRefundNothingPaid(t *testing.T) {
	policy := Policy{FullRefundWindow: time.Hour, PartialRefundWindow: time.Minute, PartialRefundPercent: 50}
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	got := ComputeRefund(start, start.AddDate(0, 0, -30), money.Zero("INR"), policy)
	assert.True(t, got.IsZero())
}

func TestPolicyValidate(t *testing.T) {
	valid := Policy{FullRefundWindow: 48 * time.Hour, PartialRefundWindow: 24 * time.Hour, PartialRefundPercent: 50}
	assert.NoError(t, valid.Validate())

	inverted := valid
	inverted.PartialRefundWindow = 72 * time.Hour
	assert.ErrorIs(t, inverted.Validate(), ErrInvalidPolicy)

	tooGenerous := valid
	tooGenerous.PartialRefundPercent = 120
	assert.ErrorIs(t, tooGenerous.Validate(), ErrInvalidPolicy)

	negative := valid
	negative.FullRefundWindow = -time.Hour
	assert.ErrorIs(t, negative.Validate(), ErrInvalidPolicy)
}

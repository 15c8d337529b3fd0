package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromHeader(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"0.05", 0.05, true},
		{"", 0, false},
		{"abc", 0, false},
		{"-1", 0, false},
	}
	for _, tt := range tests {
		got, ok := FromHeader(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, tt.in)
	}
}

func TestFromUsage(t *testing.T) {
	got := FromUsage("openai/gpt-4o-mini", Usage{PromptTokens: 1_000_000, CompletionTokens: 1_000_000})
	assert.InDelta(t, 0.75, got, 1e-9)
	assert.Zero(t, FromUsage("unknown/model", Usage{PromptTokens: 10}))
}

func TestEstimate(t *testing.T) {
	assert.InDelta(t, 0.5, Estimate(Pricing{Unit: PerSecond, Amount: 0.1}, Quantity{Seconds: 5}), 1e-9)
	assert.InDelta(t, 0.1, Estimate(Pricing{Unit: PerSecond, Amount: 0.1}, Quantity{}), 1e-9)
	assert.InDelta(t, 0.12, Estimate(Pricing{Unit: PerImage, Amount: 0.04}, Quantity{Images: 3}), 1e-9)
	assert.InDelta(t, 0.03, Estimate(Pricing{Unit: PerCall, Amount: 0.03}, Quantity{Images: 3}), 1e-9)
	assert.InDelta(t, 0.002, Estimate(Pricing{Unit: PerToken, Amount: 0.000002}, Quantity{Tokens: 1000}), 1e-9)
	assert.Zero(t, Estimate(Pricing{Unit: PerCall}, Quantity{}))
}

func TestSum(t *testing.T) {
	assert.InDelta(t, 0.3, Sum(0.1, 0.2, -5), 1e-9)
	assert.Zero(t, Sum())
}

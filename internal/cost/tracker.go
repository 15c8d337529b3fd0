package cost

import (
	"fmt"
	"math"
)

// Usage holds token counts from an API response.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// ModelPricing holds per-token pricing for a model (in USD per token).
type ModelPricing struct {
	InputPerToken  float64
	OutputPerToken float64
}

// defaultPricing provides fallback pricing for common chat models.
var defaultPricing = map[string]ModelPricing{
	"anthropic/claude-sonnet-4-6": {InputPerToken: 3.0 / 1_000_000, OutputPerToken: 15.0 / 1_000_000},
	"google/gemini-2.5-flash":     {InputPerToken: 0.30 / 1_000_000, OutputPerToken: 2.50 / 1_000_000},
	"openai/gpt-4o-mini":          {InputPerToken: 0.15 / 1_000_000, OutputPerToken: 0.60 / 1_000_000},
}

// Unit is the billing unit of a generation model.
type Unit string

const (
	PerCall   Unit = "per_call"
	PerSecond Unit = "per_second"
	PerImage  Unit = "per_image"
	PerToken  Unit = "per_token"
)

// Pricing is the catalog price of one model.
type Pricing struct {
	Unit   Unit    `yaml:"unit" json:"unit"`
	Amount float64 `yaml:"amount" json:"amount"`
}

// Quantity describes how much of a billed unit a call consumed.
type Quantity struct {
	Seconds float64
	Images  int
	Tokens  int
}

// FromHeader extracts cost from a provider cost header value
// (x-openrouter-cost, x-cost). Returns 0, false if the header is absent or
// unparseable.
func FromHeader(headerValue string) (float64, bool) {
	if headerValue == "" {
		return 0, false
	}
	var v float64
	if _, err := parseFloat(headerValue, &v); err != nil {
		return 0, false
	}
	if v < 0 || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// FromUsage calculates cost from token usage and model pricing.
func FromUsage(model string, usage Usage) float64 {
	pricing, ok := defaultPricing[model]
	if !ok {
		return 0
	}
	return float64(usage.PromptTokens)*pricing.InputPerToken +
		float64(usage.CompletionTokens)*pricing.OutputPerToken
}

// Estimate applies catalog pricing to a consumed quantity. Zero quantities
// default to one unit so a call is never billed as free by accident.
func Estimate(p Pricing, q Quantity) float64 {
	if p.Amount <= 0 {
		return 0
	}
	switch p.Unit {
	case PerSecond:
		if q.Seconds <= 0 {
			return p.Amount
		}
		return p.Amount * q.Seconds
	case PerImage:
		if q.Images <= 0 {
			return p.Amount
		}
		return p.Amount * float64(q.Images)
	case PerToken:
		return p.Amount * float64(q.Tokens)
	default:
		return p.Amount
	}
}

// Sum adds costs, ignoring negative values.
func Sum(costs ...float64) float64 {
	var total float64
	for _, c := range costs {
		if c > 0 {
			total += c
		}
	}
	return total
}

func parseFloat(s string, v *float64) (int, error) {
	_, err := fmt.Sscanf(s, "%f", v)
	return 1, err
}

package generation

import "math"

// Pricing is a provider's per-token dollar price, quoted per million tokens.
type Pricing struct {
	PromptPerMillion     float64
	CompletionPerMillion float64
}

// pricingTable holds published list prices. Unknown providers cost zero; local
// or test providers are free by construction.
var pricingTable = map[string]Pricing{
	"deepseek": {PromptPerMillion: 0.14, CompletionPerMillion: 0.28},
	"claude":   {PromptPerMillion: 3.00, CompletionPerMillion: 15.00},
}

// PricingFor returns the pricing for a provider name, zero when unknown.
func PricingFor(provider string) Pricing {
	return pricingTable[provider]
}

// Cost converts token usage to dollars, rounded to six decimal places.
func Cost(provider string, promptTokens, completionTokens int64) float64 {
	p := pricingTable[provider]
	cost := float64(promptTokens)/1_000_000*p.PromptPerMillion +
		float64(completionTokens)/1_000_000*p.CompletionPerMillion
	return math.Round(cost*1e6) / 1e6
}

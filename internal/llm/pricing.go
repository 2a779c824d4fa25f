package llm

type modelPrice struct {
	// USD per 1000 tokens.
	prompt     float64
	completion float64
}

// Static price table for the models users can select. Models missing from
// the table price at zero.
var prices = map[string]modelPrice{
	"openai/gpt-4o-mini": {
		prompt:     0.00015, // $0.15 per 1M prompt tokens
		completion: 0.0006,  // $0.60 per 1M completion tokens
	},
	"xiaomi/mimo-v2-flash:free": {
		prompt:     0,
		completion: 0,
	},
}

// Cost returns the USD cost of a call, priced per 1000 tokens on each leg.
func Cost(model string, promptTokens, completionTokens int) float64 {
	price, ok := prices[model]
	if !ok {
		return 0
	}

	promptCost := float64(promptTokens) / 1000.0 * price.prompt
	completionCost := float64(completionTokens) / 1000.0 * price.completion

	return promptCost + completionCost
}

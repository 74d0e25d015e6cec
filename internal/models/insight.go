package models

import "time"

// Insight is the result of one analysis pass over a user's transactions.
type Insight struct {
	GeneratedAt              time.Time `json:"generated_at"`
	SuggestedMonthlyBudget   float64   `json:"suggested_monthly_budget"`
	SuggestedSavingsGoal     float64   `json:"suggested_savings_goal"`
	CostReductionSuggestions []string  `json:"cost_reduction_suggestions"`
	Overview                 string    `json:"overview"`
	Mock                     bool      `json:"mock"`
}

// CategoryAmount pairs a category with a summed amount.
type CategoryAmount struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

package analytics

import (
	"fmt"
	"strings"

	"finsight/internal/models"
)

// NoDataContext is the digest for an empty record set.
const NoDataContext = "The user has no transaction data available yet."

// contextTopCategories caps the categories listed in the digest.
const contextTopCategories = 3

// Snapshot is the numeric digest of a record set.
type Snapshot struct {
	Count                int                     `json:"count"`
	DaySpan              int                     `json:"day_span"`
	Frequency            float64                 `json:"frequency"`
	AvgMonthlyIncome     float64                 `json:"avg_monthly_income"`
	AvgMonthlyExpense    float64                 `json:"avg_monthly_expense"`
	MonthlyNet           float64                 `json:"monthly_net"`
	TotalIncome          float64                 `json:"total_income"`
	TotalExpense         float64                 `json:"total_expense"`
	NetTotal             float64                 `json:"net_total"`
	ExpenseIncomeRatio   float64                 `json:"expense_income_ratio"`
	SavingsRate          float64                 `json:"savings_rate"`
	LargestIncome        float64                 `json:"largest_income"`
	LargestExpense       float64                 `json:"largest_expense"`
	TopExpenseCategories []models.CategoryAmount `json:"top_expense_categories"`
}

// Summarize computes the Snapshot of records. Ratios are zero when there is
// no income to divide by.
func Summarize(records []models.Transaction) Snapshot {
	if len(records) == 0 {
		return Snapshot{TopExpenseCategories: []models.CategoryAmount{}}
	}

	minDate, maxDate := dateRange(records)
	daySpan := int(models.CalendarDate(maxDate).Sub(models.CalendarDate(minDate)).Hours()/24) + 1

	s := Snapshot{
		Count:                len(records),
		DaySpan:              daySpan,
		Frequency:            float64(len(records)) / float64(daySpan),
		AvgMonthlyIncome:     AverageMonthlyIncome(records),
		AvgMonthlyExpense:    AverageMonthlyExpense(records),
		TotalIncome:          TotalIncome(records),
		TotalExpense:         TotalExpense(records),
		TopExpenseCategories: TopExpenseCategories(records, contextTopCategories),
	}
	s.MonthlyNet = s.AvgMonthlyIncome - s.AvgMonthlyExpense
	s.NetTotal = s.TotalIncome - s.TotalExpense
	if s.AvgMonthlyIncome != 0 {
		s.ExpenseIncomeRatio = s.AvgMonthlyExpense / s.AvgMonthlyIncome
		s.SavingsRate = (s.AvgMonthlyIncome - s.AvgMonthlyExpense) / s.AvgMonthlyIncome * 100
	}

	for _, r := range records {
		if r.Amount > s.LargestIncome {
			s.LargestIncome = r.Amount
		}
		if -r.Amount > s.LargestExpense {
			s.LargestExpense = -r.Amount
		}
	}
	return s
}

// FinancialContext renders the digest injected into model prompts.
func FinancialContext(records []models.Transaction) string {
	if len(records) == 0 {
		return NoDataContext
	}
	return Summarize(records).String()
}

// String renders the snapshot as the fixed-shape prompt digest.
func (s Snapshot) String() string {
	if s.Count == 0 {
		return NoDataContext
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Records: %d transactions over %d days (%.2f per day).\n",
		s.Count, s.DaySpan, s.Frequency)
	fmt.Fprintf(&b, "Average monthly income: %.2f. Average monthly expense: %.2f. Monthly net: %.2f.\n",
		s.AvgMonthlyIncome, s.AvgMonthlyExpense, s.MonthlyNet)
	fmt.Fprintf(&b, "Total income: %.2f. Total expense: %.2f. Net total: %.2f.\n",
		s.TotalIncome, s.TotalExpense, s.NetTotal)
	fmt.Fprintf(&b, "Expense to income ratio: %.2f%%. Savings rate: %.2f%%.\n",
		s.ExpenseIncomeRatio*100, s.SavingsRate)
	fmt.Fprintf(&b, "Largest single income: %.2f. Largest single expense: %.2f.\n",
		s.LargestIncome, s.LargestExpense)

	b.WriteString("Top expense categories: ")
	if len(s.TopExpenseCategories) == 0 {
		b.WriteString("none")
	}
	for i, c := range s.TopExpenseCategories {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s (%.2f)", c.Category, c.Amount)
	}
	b.WriteString(".")
	return b.String()
}

// Package analytics computes summaries over transaction records. Every
// function is pure: inputs are never modified and empty input yields zero
// values rather than errors.
package analytics

import (
	"fmt"
	"sort"
	"time"

	"finsight/internal/models"
)

// YearMonth is a calendar month bucket key.
type YearMonth struct {
	Year  int
	Month time.Month
}

// String renders the key as yyyy-MM.
func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// MarshalText lets YearMonth serialize as "2024-01".
func (ym YearMonth) MarshalText() ([]byte, error) {
	return []byte(ym.String()), nil
}

// Before orders keys chronologically.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

func yearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// MonthlyAmount is one bucket of a monthly summary.
type MonthlyAmount struct {
	Month  YearMonth `json:"month"`
	Amount float64   `json:"amount"`
}

// RecentTransactions returns the records dated within the last months
// calendar months, newest first.
func RecentTransactions(records []models.Transaction, months int) []models.Transaction {
	return RecentTransactionsAsOf(records, months, time.Now())
}

// RecentTransactionsAsOf is RecentTransactions with an explicit "today".
// The cutoff is today minus months calendar months, with the day clamped to
// the end of a shorter month (Mar 31 minus one month is Feb 28 or 29).
func RecentTransactionsAsOf(records []models.Transaction, months int, now time.Time) []models.Transaction {
	if len(records) == 0 {
		return []models.Transaction{}
	}

	cutoff := minusMonths(models.CalendarDate(now), months)
	out := make([]models.Transaction, 0, len(records))
	for _, r := range records {
		if !models.CalendarDate(r.Date).Before(cutoff) {
			out = append(out, r)
		}
	}
	SortByDateDesc(out)
	return out
}

// SortByDateDesc orders records newest first in place, keeping the relative
// order of records on the same day.
func SortByDateDesc(records []models.Transaction) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.After(records[j].Date)
	})
}

func minusMonths(day time.Time, months int) time.Time {
	y, m, d := day.Date()
	first := time.Date(y, m-time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	if last := daysIn(first); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthlyIncome sums positive amounts per year-month, ascending by month.
func MonthlyIncome(records []models.Transaction) []MonthlyAmount {
	return monthlyBuckets(records, func(amount float64) (float64, bool) {
		return amount, amount > 0
	})
}

// MonthlyExpense sums the absolute value of negative amounts per year-month,
// ascending by month.
func MonthlyExpense(records []models.Transaction) []MonthlyAmount {
	return monthlyBuckets(records, func(amount float64) (float64, bool) {
		return -amount, amount < 0
	})
}

func monthlyBuckets(records []models.Transaction, pick func(float64) (float64, bool)) []MonthlyAmount {
	totals := make(map[YearMonth]float64)
	for _, r := range records {
		v, ok := pick(r.Amount)
		if !ok {
			continue
		}
		totals[yearMonthOf(r.Date)] += v
	}

	out := make([]MonthlyAmount, 0, len(totals))
	for ym, amount := range totals {
		out = append(out, MonthlyAmount{Month: ym, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// CategoryExpenses sums the absolute value of negative amounts per category.
// Categories without any expense are absent.
func CategoryExpenses(records []models.Transaction) map[string]float64 {
	out := make(map[string]float64)
	for _, ca := range categoryTotals(records) {
		out[ca.Category] = ca.Amount
	}
	return out
}

// categoryTotals is CategoryExpenses in first-encountered category order.
func categoryTotals(records []models.Transaction) []models.CategoryAmount {
	index := make(map[string]int)
	var out []models.CategoryAmount
	for _, r := range records {
		if !r.IsExpense() {
			continue
		}
		i, ok := index[r.Category]
		if !ok {
			i = len(out)
			index[r.Category] = i
			out = append(out, models.CategoryAmount{Category: r.Category})
		}
		out[i].Amount += -r.Amount
	}
	return out
}

// TopExpenseCategories returns up to limit categories by descending expense.
// Equal amounts keep the order in which the categories first appear.
func TopExpenseCategories(records []models.Transaction, limit int) []models.CategoryAmount {
	if limit <= 0 {
		return []models.CategoryAmount{}
	}

	totals := categoryTotals(records)
	sort.SliceStable(totals, func(i, j int) bool { return totals[i].Amount > totals[j].Amount })
	if len(totals) > limit {
		totals = totals[:limit]
	}
	if totals == nil {
		return []models.CategoryAmount{}
	}
	return totals
}

// TotalIncome sums all positive amounts.
func TotalIncome(records []models.Transaction) float64 {
	var total float64
	for _, r := range records {
		if r.IsIncome() {
			total += r.Amount
		}
	}
	return total
}

// TotalExpense sums the absolute value of all negative amounts.
func TotalExpense(records []models.Transaction) float64 {
	var total float64
	for _, r := range records {
		if r.IsExpense() {
			total += -r.Amount
		}
	}
	return total
}

// AverageMonthlyIncome divides total income by the number of months spanned.
func AverageMonthlyIncome(records []models.Transaction) float64 {
	if len(records) == 0 {
		return 0
	}
	return TotalIncome(records) / float64(monthsSpanned(records))
}

// AverageMonthlyExpense divides total expense by the number of months spanned.
func AverageMonthlyExpense(records []models.Transaction) float64 {
	if len(records) == 0 {
		return 0
	}
	return TotalExpense(records) / float64(monthsSpanned(records))
}

// monthsSpanned compares only the month-of-year of the earliest and latest
// dates, so a range crossing a year boundary can collapse to 1. Callers rely
// on this exact figure; see TestAverageMonthly_YearBoundary.
func monthsSpanned(records []models.Transaction) int {
	minDate, maxDate := dateRange(records)
	span := int(maxDate.Month()) - int(minDate.Month()) + 1
	if span < 1 {
		return 1
	}
	return span
}

func dateRange(records []models.Transaction) (minDate, maxDate time.Time) {
	for i, r := range records {
		if i == 0 || r.Date.Before(minDate) {
			minDate = r.Date
		}
		if i == 0 || r.Date.After(maxDate) {
			maxDate = r.Date
		}
	}
	return minDate, maxDate
}

// ExpenseGrowthRate compares the average monthly expense of the later half of
// the monthly buckets with the earlier half, as a fraction of the earlier
// half. With an odd bucket count the middle bucket belongs to the later half.
func ExpenseGrowthRate(records []models.Transaction, months int) float64 {
	if months < 2 || len(records) == 0 {
		return 0
	}

	buckets := MonthlyExpense(records)
	if len(buckets) < 2 {
		return 0
	}

	mid := len(buckets) / 2
	first := averageAmount(buckets[:mid])
	second := averageAmount(buckets[mid:])
	if first == 0 {
		return 0
	}
	return (second - first) / first
}

func averageAmount(buckets []MonthlyAmount) float64 {
	if len(buckets) == 0 {
		return 0
	}
	var sum float64
	for _, b := range buckets {
		sum += b.Amount
	}
	return sum / float64(len(buckets))
}

// FilterByDate keeps records dated within [from, to], both inclusive. A zero
// bound is open.
func FilterByDate(records []models.Transaction, from, to time.Time) []models.Transaction {
	out := make([]models.Transaction, 0, len(records))
	for _, r := range records {
		d := models.CalendarDate(r.Date)
		if !from.IsZero() && d.Before(models.CalendarDate(from)) {
			continue
		}
		if !to.IsZero() && d.After(models.CalendarDate(to)) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// MonthStats is the income and expense of one month.
type MonthStats struct {
	Month   YearMonth `json:"month"`
	Income  float64   `json:"income"`
	Expense float64   `json:"expense"`
}

// MonthlyStats returns income and expense side by side per month, ascending.
func MonthlyStats(records []models.Transaction) []MonthStats {
	byMonth := make(map[YearMonth]*MonthStats)
	for _, r := range records {
		ym := yearMonthOf(r.Date)
		s, ok := byMonth[ym]
		if !ok {
			s = &MonthStats{Month: ym}
			byMonth[ym] = s
		}
		switch {
		case r.IsIncome():
			s.Income += r.Amount
		case r.IsExpense():
			s.Expense += -r.Amount
		}
	}

	out := make([]MonthStats, 0, len(byMonth))
	for _, s := range byMonth {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// BalancePoint is the running balance at the end of a day.
type BalancePoint struct {
	Date    string  `json:"date"`
	Balance float64 `json:"balance"`
}

// BalanceTrend accumulates amounts by day, oldest first.
func BalanceTrend(records []models.Transaction) []BalancePoint {
	daily := make(map[time.Time]float64)
	for _, r := range records {
		daily[models.CalendarDate(r.Date)] += r.Amount
	}

	days := make([]time.Time, 0, len(daily))
	for d := range daily {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	out := make([]BalancePoint, 0, len(days))
	var balance float64
	for _, d := range days {
		balance += daily[d]
		out = append(out, BalancePoint{Date: d.Format(models.DateLayout), Balance: balance})
	}
	return out
}

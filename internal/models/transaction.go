package models

import "time"

// DateLayout is the calendar-date format used for transaction dates on the
// wire, in CSV files and in prompts.
const DateLayout = "2006-01-02"

// Default labels applied when a record leaves category or source blank.
const (
	DefaultCategory = "Uncategorized"
	DefaultSource   = "Other"
)

// Categories lists the suggested category labels.
var Categories = []string{
	"Salary", "Rent", "Groceries", "Utilities", "Transport",
	"Entertainment", "Dining Out", "Shopping", "Healthcare", "Education",
	"Savings", "Investment", "Insurance", "Other Income", "Other Expense",
	DefaultCategory,
}

// Sources lists the suggested payment source labels.
var Sources = []string{
	"Bank Transfer", "Credit Card", "Cash", "Alipay", "WeChat Pay",
	"Octopus Card", "PayPal", DefaultSource,
}

// Transaction is one dated, signed money movement. Positive amounts are
// income, negative amounts are expenses. Date carries a calendar day; the
// time-of-day part is always midnight UTC.
type Transaction struct {
	Base
	UserID      string    `gorm:"type:uuid;not null;index" json:"user_id,omitempty"`
	Date        time.Time `gorm:"type:date;not null;index" json:"date"`
	Description string    `gorm:"not null" json:"description"`
	Amount      float64   `gorm:"not null" json:"amount"`
	Category    string    `gorm:"not null;default:'Uncategorized'" json:"category"`
	Source      string    `gorm:"not null;default:'Other'" json:"source"`
	AIGenerated bool      `gorm:"not null;default:false" json:"ai_generated"`
}

// IsIncome reports whether the record adds money.
func (t Transaction) IsIncome() bool { return t.Amount > 0 }

// IsExpense reports whether the record removes money.
func (t Transaction) IsExpense() bool { return t.Amount < 0 }

// DateString renders Date in DateLayout.
func (t Transaction) DateString() string { return t.Date.Format(DateLayout) }

// CalendarDate truncates t to midnight UTC of the same calendar day.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

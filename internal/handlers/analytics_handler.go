package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"finsight/internal/analytics"
	apperrors "finsight/internal/errors"
	"finsight/internal/models"
	"finsight/internal/services"
)

const (
	defaultSummaryMonths = 6
	summaryTopCategories = 3
)

// AnalyticsHandler serves aggregate views over the user's transactions.
type AnalyticsHandler struct {
	transactionService services.TransactionServicer
	now                func() time.Time
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(transactionService services.TransactionServicer) *AnalyticsHandler {
	return &AnalyticsHandler{transactionService: transactionService, now: time.Now}
}

// SummaryQuery selects the summary window.
type SummaryQuery struct {
	Months int `form:"months" binding:"omitempty,min=1,max=120"`
}

// SummaryResponse is the recent-window aggregate view.
type SummaryResponse struct {
	Months               int                       `json:"months"`
	MonthlyIncome        []analytics.MonthlyAmount `json:"monthly_income"`
	MonthlyExpense       []analytics.MonthlyAmount `json:"monthly_expense"`
	CategoryExpenses     map[string]float64        `json:"category_expenses"`
	TopExpenseCategories []models.CategoryAmount   `json:"top_expense_categories"`
	AvgMonthlyIncome     float64                   `json:"avg_monthly_income"`
	AvgMonthlyExpense    float64                   `json:"avg_monthly_expense"`
	ExpenseGrowthRate    float64                   `json:"expense_growth_rate"`
	Snapshot             analytics.Snapshot        `json:"snapshot"`
}

// TrendResponse is the month-by-month and day-by-day history.
type TrendResponse struct {
	Monthly      []analytics.MonthStats   `json:"monthly"`
	Balance      []analytics.BalancePoint `json:"balance"`
	TotalIncome  float64                  `json:"total_income"`
	TotalExpense float64                  `json:"total_expense"`
}

// GetSummary handles the recent-window summary
// @Summary     Spending summary
// @Description Aggregates the transactions of the last N calendar months
// @Tags        analytics
// @Produce     json
// @Security    BearerAuth
// @Param       months query int false "Window in months (default 6, max 120)"
// @Success     200 {object} SummaryResponse
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /analytics/summary [get]
func (h *AnalyticsHandler) GetSummary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var q SummaryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	if q.Months == 0 {
		q.Months = defaultSummaryMonths
	}

	records, err := h.transactionService.ListAll(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	recent := analytics.RecentTransactionsAsOf(records, q.Months, h.now())

	c.JSON(http.StatusOK, SummaryResponse{
		Months:               q.Months,
		MonthlyIncome:        analytics.MonthlyIncome(recent),
		MonthlyExpense:       analytics.MonthlyExpense(recent),
		CategoryExpenses:     analytics.CategoryExpenses(recent),
		TopExpenseCategories: analytics.TopExpenseCategories(recent, summaryTopCategories),
		AvgMonthlyIncome:     analytics.AverageMonthlyIncome(recent),
		AvgMonthlyExpense:    analytics.AverageMonthlyExpense(recent),
		ExpenseGrowthRate:    analytics.ExpenseGrowthRate(recent, q.Months),
		Snapshot:             analytics.Summarize(recent),
	})
}

// GetTrend handles the monthly and balance history
// @Summary     Spending trend
// @Description Monthly income/expense and running balance, optionally limited to a date range
// @Tags        analytics
// @Produce     json
// @Security    BearerAuth
// @Param       from_date query string false "Start date (YYYY-MM-DD, inclusive)"
// @Param       to_date   query string false "End date (YYYY-MM-DD, inclusive)"
// @Success     200 {object} TrendResponse
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /analytics/trend [get]
func (h *AnalyticsHandler) GetTrend(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	records, err := h.transactionService.ListAll(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var from, to time.Time
	if filter.FromDate != nil {
		from = *filter.FromDate
	}
	if filter.ToDate != nil {
		to = *filter.ToDate
	}
	records = analytics.FilterByDate(records, from, to)

	c.JSON(http.StatusOK, TrendResponse{
		Monthly:      analytics.MonthlyStats(records),
		Balance:      analytics.BalanceTrend(records),
		TotalIncome:  analytics.TotalIncome(records),
		TotalExpense: analytics.TotalExpense(records),
	})
}

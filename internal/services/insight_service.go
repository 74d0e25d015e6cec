package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"finsight/internal/analytics"
	apperrors "finsight/internal/errors"
	"finsight/internal/llm"
	"finsight/internal/logger"
	"finsight/internal/models"
	"finsight/internal/task"
)

const (
	// InsightWindowMonths is how far back InsightFor looks.
	InsightWindowMonths = 6
	// insightPromptRows caps the transaction rows sent to the model.
	insightPromptRows = 90
	// suggestionCount is the number of cost-reduction suggestions a mock
	// insight always carries.
	suggestionCount = 3
)

const insightInstructions = `Based on the following transaction data, analyze the user's spending patterns and provide these insights:

1. A suggested monthly budget amount
2. A suggested monthly savings goal amount
3. At least 3 cost reduction suggestions
4. An overview of the financial situation

Reply using exactly this JSON format:
{
  "monthlyBudget": number,
  "savingsGoal": number,
  "costReductionSuggestions": ["suggestion 1", "suggestion 2", "suggestion 3"],
  "overview": "financial overview text"
}

Transaction data (format: date,description,amount,category,source):
`

// Generic advice used when there is no expense data to draw on.
var defaultSuggestions = []string{
	"Consider recording more transaction data to obtain more personalized suggestions.",
	"Try to cut down on unnecessary daily expenses, such as takeout and coffee.",
	"Consider formulating a monthly budget plan and rationally allocating various expenditures.",
}

// Advice appended after category suggestions, indexed by the slot it fills.
var backfillSuggestions = []string{
	"Make a detailed monthly budget plan to avoid impulse consumption.",
	"Compare the prices of different merchants and look for the most cost-effective option.",
	"Consider using automatic savings tools to deposit a fixed portion of your income.",
}

// insightService produces insights from a user's records.
type insightService struct {
	completer llm.Completer
	pool      *task.Pool
	cache     *InsightCache
	now       func() time.Time
}

// NewInsightService creates a new InsightServicer. completer may be nil when
// no completion API is configured; cache may be nil to disable caching.
func NewInsightService(completer llm.Completer, pool *task.Pool, cache *InsightCache) InsightServicer {
	return &insightService{
		completer: completer,
		pool:      pool,
		cache:     cache,
		now:       time.Now,
	}
}

// BuildInsightPrompt renders the insight instructions followed by up to 90
// of the most recent records, one per line.
func BuildInsightPrompt(records []models.Transaction) string {
	rows := make([]models.Transaction, len(records))
	copy(rows, records)
	analytics.SortByDateDesc(rows)
	if len(rows) > insightPromptRows {
		rows = rows[:insightPromptRows]
	}

	var b strings.Builder
	b.WriteString(insightInstructions)
	for _, r := range rows {
		b.WriteString(r.DateString())
		b.WriteByte(',')
		b.WriteString(r.Description)
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(r.Amount, 'f', -1, 64))
		b.WriteByte(',')
		b.WriteString(r.Category)
		b.WriteByte(',')
		b.WriteString(r.Source)
		b.WriteByte('\n')
	}
	return b.String()
}

// GenerateInsight asks the completion API for an insight over records.
func (s *insightService) GenerateInsight(ctx context.Context, records []models.Transaction) (*models.Insight, error) {
	if s.completer == nil {
		return nil, apperrors.WithMessage(apperrors.ErrAPI, "The completion service is not configured")
	}
	if err := llm.Checkpoint(ctx); err != nil {
		return nil, err
	}

	req := llm.NewRequest(llm.Message{Role: llm.RoleUser, Content: BuildInsightPrompt(records)})
	t := task.Submit(ctx, s.pool, func(ctx context.Context) (string, error) {
		return s.completer.Complete(ctx, req)
	})
	reply, err := t.Wait(ctx)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		if ctxErr := llm.Checkpoint(ctx); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperrors.Wrap(apperrors.ErrAPI, err)
	}

	if err := llm.Checkpoint(ctx); err != nil {
		return nil, err
	}
	insight, err := ParseInsight(reply)
	if err != nil {
		return nil, err
	}
	insight.GeneratedAt = s.now()
	return insight, nil
}

// ParseInsight decodes the JSON object spanning the first '{' to the last
// '}' of reply. Missing numbers read as 0, a missing list as empty and a
// missing overview as "".
func ParseInsight(reply string) (*models.Insight, error) {
	start := strings.IndexByte(reply, '{')
	end := strings.LastIndexByte(reply, '}')
	if start < 0 || end <= start {
		return nil, apperrors.WithMessage(apperrors.ErrParse, "The reply contains no JSON object")
	}

	payload := reply[start : end+1]
	if !gjson.Valid(payload) {
		return nil, apperrors.WithMessage(apperrors.ErrParse, "The reply contains malformed JSON")
	}
	root := gjson.Parse(payload)
	if !root.IsObject() {
		return nil, apperrors.WithMessage(apperrors.ErrParse, "The reply JSON is not an object")
	}

	suggestions := []string{}
	if list := root.Get("costReductionSuggestions"); list.IsArray() {
		for _, item := range list.Array() {
			suggestions = append(suggestions, item.String())
		}
	}

	return &models.Insight{
		SuggestedMonthlyBudget:   root.Get("monthlyBudget").Float(),
		SuggestedSavingsGoal:     root.Get("savingsGoal").Float(),
		CostReductionSuggestions: suggestions,
		Overview:                 root.Get("overview").String(),
	}, nil
}

// MockInsight derives an insight from records without calling any service.
func (s *insightService) MockInsight(records []models.Transaction) *models.Insight {
	insight := MockInsight(records)
	insight.GeneratedAt = s.now()
	return insight
}

// mockMonthlyAverages treats every 30 records as one month.
func mockMonthlyAverages(records []models.Transaction) (income, expense float64) {
	months := max(1, float64(len(records))/30.0)
	return analytics.TotalIncome(records) / months, analytics.TotalExpense(records) / months
}

// MockInsight builds the offline insight.
func MockInsight(records []models.Transaction) *models.Insight {
	avgIncome, avgExpense := mockMonthlyAverages(records)

	budget := avgExpense * 0.9
	savings := avgIncome * 0.2

	var suggestions []string
	top := analytics.TopExpenseCategories(records, suggestionCount)
	if len(top) == 0 {
		suggestions = append(suggestions, defaultSuggestions...)
	} else {
		for _, c := range top {
			suggestions = append(suggestions,
				fmt.Sprintf("Consider reducing spending in the %s category, currently %.2f.", c.Category, c.Amount))
		}
		for slot := len(suggestions); slot < suggestionCount; slot++ {
			suggestions = append(suggestions, backfillSuggestions[slot])
		}
	}

	overview := fmt.Sprintf(
		"Based on your past transactions, your average monthly income is about %.2f and your average monthly expense is about %.2f. "+
			"A monthly budget of %.2f and monthly savings of %.2f are suggested.",
		avgIncome, avgExpense, budget, savings)

	return &models.Insight{
		GeneratedAt:              time.Now(),
		SuggestedMonthlyBudget:   budget,
		SuggestedSavingsGoal:     savings,
		CostReductionSuggestions: suggestions,
		Overview:                 overview,
		Mock:                     true,
	}
}

// InsightFor produces an insight over the last six months of records. AI
// results are cached per record set unless refresh is set; mock results are
// always recomputed. InsightModeAuto uses the API when one is configured.
func (s *insightService) InsightFor(ctx context.Context, userID string, records []models.Transaction, mode InsightMode, refresh bool) (*models.Insight, error) {
	window := analytics.RecentTransactionsAsOf(records, InsightWindowMonths, s.now())

	switch mode {
	case InsightModeMock:
		return s.MockInsight(window), nil
	case InsightModeAuto:
		if s.completer == nil {
			return s.MockInsight(window), nil
		}
	case InsightModeAI:
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "mode must be one of: ai, mock")
	}

	key := insightCacheKey(userID, window)
	if !refresh {
		if cached, ok := s.cache.Get(key); ok {
			logger.Get().Debugw("insight cache hit", "user_id", userID)
			return cached, nil
		}
	}

	insight, err := s.GenerateInsight(ctx, window)
	if err != nil {
		logger.Get().Warnw("insight generation failed", "user_id", userID, "error", err)
		return nil, err
	}
	s.cache.Set(key, insight)
	logger.Get().Infow("insight generated", "user_id", userID, "records", len(window))
	return insight, nil
}

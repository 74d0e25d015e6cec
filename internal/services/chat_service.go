package services

import (
	"context"
	"fmt"
	"strings"

	"finsight/internal/analytics"
	apperrors "finsight/internal/errors"
	"finsight/internal/llm"
	"finsight/internal/logger"
	"finsight/internal/models"
	"finsight/internal/task"
)

// Fixed assistant entries for turns that did not produce a reply.
const (
	CancelledReply = "The request has been cancelled."
	ApologyReply   = "Sorry, I'm unable to handle your request for the time being. " +
		"Please check your network connection and API configuration. Try again later."
)

const systemPromptTemplate = "You are a professional personal finance advisor, skilled in money management, budget planning and investment strategy. " +
	"Give professional, practical advice based on the user's transaction history and financial situation. " +
	"Keep your answers friendly, professional and specific. " +
	"You must analyze and cite the user's actual transaction data instead of giving generic advice. " +
	"When the user asks about a specific financial area, use their transaction history to personalize the analysis. " +
	"User's financial profile: %s\n\n" +
	"In every reply, cite the user's actual transaction data to support your analysis and advice."

// chatService drives chat turns. Without a completer every turn is answered
// by MockChatReply.
type chatService struct {
	completer llm.Completer
	pool      *task.Pool
}

// NewChatService creates a new ChatServicer.
func NewChatService(completer llm.Completer, pool *task.Pool) ChatServicer {
	return &chatService{completer: completer, pool: pool}
}

// SystemPrompt embeds the financial digest of records in the advisor prompt.
func SystemPrompt(records []models.Transaction) string {
	return fmt.Sprintf(systemPromptTemplate, analytics.FinancialContext(records))
}

// BuildChatMessages assembles the system prompt, the prior transcript and the
// new user turn.
func BuildChatMessages(systemPrompt string, history []models.ChatMessage, text string) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	for _, m := range history {
		role := llm.RoleAssistant
		if m.Sender == models.SenderUser {
			role = llm.RoleUser
		}
		msgs = append(msgs, llm.Message{Role: role, Content: m.Content})
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: text})
}

// Send runs one chat turn and waits for its transcript entry. Cancelling ctx
// cancels the turn; Send still returns the resulting cancelled reply.
func (s *chatService) Send(ctx context.Context, session *models.ChatSession, text string, records []models.Transaction) (*ChatReply, error) {
	t, err := s.SendAsync(ctx, session, text, records)
	if err != nil {
		return nil, err
	}
	<-t.Done()
	return t.Result()
}

// SendAsync appends the user message and schedules the completion on the
// worker pool. It fails with ErrChatBusy while another turn is outstanding.
func (s *chatService) SendAsync(ctx context.Context, session *models.ChatSession, text string, records []models.Transaction) (*task.Task[*ChatReply], error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "message cannot be empty")
	}

	ctx, cancel := context.WithCancel(ctx)
	if !session.TryBegin(cancel) {
		cancel()
		return nil, apperrors.ErrChatBusy
	}

	history := session.Transcript()
	userMsg := session.Append(models.SenderUser, text)

	return task.Submit(ctx, s.pool, func(ctx context.Context) (*ChatReply, error) {
		defer session.Finish()

		reply, err := s.respond(ctx, history, text, records)
		if err == nil {
			err = llm.Checkpoint(ctx)
		}

		out := &ChatReply{UserMessage: userMsg}
		switch {
		case err == nil:
			out.Outcome = ChatOutcomeReplied
			out.AssistantMessage = session.Append(models.SenderAssistant, reply)
		case llm.IsCancelled(err):
			out.Outcome = ChatOutcomeCancelled
			out.AssistantMessage = session.Append(models.SenderAssistant, CancelledReply)
			logger.Get().Infow("chat request cancelled", "session_id", session.ID)
		default:
			out.Outcome = ChatOutcomeFailed
			out.Err = err
			out.AssistantMessage = session.Append(models.SenderAssistant, ApologyReply)
			logger.Get().Errorw("chat request failed", "session_id", session.ID, "error", err)
		}
		return out, nil
	}), nil
}

func (s *chatService) respond(ctx context.Context, history []models.ChatMessage, text string, records []models.Transaction) (string, error) {
	if err := llm.Checkpoint(ctx); err != nil {
		return "", err
	}
	if s.completer == nil {
		return MockChatReply(text, records), nil
	}

	req := llm.NewRequest(BuildChatMessages(SystemPrompt(records), history, text)...)
	return s.completer.Complete(ctx, req)
}

// Cancel signals the outstanding turn of session. It is a no-op when the
// session is idle.
func (s *chatService) Cancel(session *models.ChatSession) bool {
	return session.RequestCancel()
}

// Clear empties the transcript of an idle session.
func (s *chatService) Clear(session *models.ChatSession) error {
	if !session.TryClear() {
		return apperrors.ErrChatBusy
	}
	return nil
}

// MockChatReply answers text from the user's records by keyword. Averages
// follow MockInsight.
func MockChatReply(text string, records []models.Transaction) string {
	lower := strings.ToLower(text)
	avgIncome, avgExpense := mockMonthlyAverages(records)

	switch {
	case strings.Contains(lower, "budget"):
		return fmt.Sprintf("Based on your transaction records, I suggest keeping your monthly budget at around %.2f. "+
			"Split the budget across your spending categories and track your spending regularly.", avgExpense*0.9)
	case strings.Contains(lower, "saving"):
		return fmt.Sprintf("Financial experts usually recommend saving 20%% of your income. "+
			"Based on your income, aim to save about %.2f per month. "+
			"Consider an emergency fund, retirement savings and short-term savings goals.", avgIncome*0.2)
	case strings.Contains(lower, "invest"):
		return "Before investing, make sure you have an emergency fund covering three to six months of living expenses. " +
			"A portfolio can then be diversified across stocks, bonds and funds, weighted to your risk tolerance."
	case strings.Contains(lower, "expense"), strings.Contains(lower, "spend"):
		top := analytics.TopExpenseCategories(records, 3)
		if len(top) == 0 {
			return "There is not enough expense data in your records to analyze yet. " +
				"Record more of your daily expenses so I can give a more precise analysis."
		}
		var b strings.Builder
		b.WriteString("Your main expense categories are:")
		for _, c := range top {
			fmt.Fprintf(&b, "\n- %s: %.2f", c.Category, c.Amount)
		}
		b.WriteString("\n\nFocus on these expenses to find room for savings.")
		return b.String()
	default:
		return "As your financial advisor I can help you analyze your budget, savings strategy, spending patterns and investments. " +
			"Which area would you like to look at?"
	}
}

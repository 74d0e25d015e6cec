package services

import (
	"context"
	"time"

	"finsight/internal/csvimport"
	"finsight/internal/models"
	"finsight/internal/pagination"
	"finsight/internal/task"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate *time.Time
	ToDate   *time.Time
	Category *string
	Source   *string
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(userID string, date time.Time, description string, amount float64, category, source string, aiGenerated bool) (*models.Transaction, error)
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	ListTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	ListAll(userID string) ([]models.Transaction, error)
	DeleteTransaction(userID, transactionID string) error
	ImportTransactions(userID string, records []models.Transaction) (int, error)
	ImportCSV(userID string, parsed csvimport.Result) (*ImportSummary, error)
}

// ImportSummary reports the outcome of a CSV import.
type ImportSummary struct {
	Imported int      `json:"imported"`
	Errors   []string `json:"errors"`
}

// InsightMode selects how an insight is produced.
type InsightMode string

const (
	InsightModeAuto InsightMode = ""
	InsightModeAI   InsightMode = "ai"
	InsightModeMock InsightMode = "mock"
)

// InsightServicer defines the contract for insight generation.
type InsightServicer interface {
	GenerateInsight(ctx context.Context, records []models.Transaction) (*models.Insight, error)
	MockInsight(records []models.Transaction) *models.Insight
	InsightFor(ctx context.Context, userID string, records []models.Transaction, mode InsightMode, refresh bool) (*models.Insight, error)
}

// ChatOutcome is how a chat turn ended.
type ChatOutcome string

const (
	ChatOutcomeReplied   ChatOutcome = "REPLIED"
	ChatOutcomeCancelled ChatOutcome = "CANCELLED"
	ChatOutcomeFailed    ChatOutcome = "FAILED"
)

// ChatReply is the result of one chat turn. Err is only set for FAILED turns
// and is meant for logging.
type ChatReply struct {
	UserMessage      models.ChatMessage `json:"user_message"`
	AssistantMessage models.ChatMessage `json:"assistant_message"`
	Outcome          ChatOutcome        `json:"outcome"`
	Err              error              `json:"-"`
}

// ChatServicer defines the contract for the chat orchestrator.
type ChatServicer interface {
	Send(ctx context.Context, session *models.ChatSession, text string, records []models.Transaction) (*ChatReply, error)
	SendAsync(ctx context.Context, session *models.ChatSession, text string, records []models.Transaction) (*task.Task[*ChatReply], error)
	Cancel(session *models.ChatSession) bool
	Clear(session *models.ChatSession) error
}

// ChatSessionStorer keeps live chat sessions per user.
type ChatSessionStorer interface {
	Create(userID string) *models.ChatSession
	Get(userID, sessionID string) (*models.ChatSession, error)
	Touch(session *models.ChatSession)
	Delete(userID, sessionID string) error
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID string, action models.AuditAction, resourceID, ipAddress string, changes map[string]any)
}

package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"finsight/internal/csvimport"
	"finsight/internal/logger"
	"finsight/internal/middleware"
	"finsight/internal/models"
	"finsight/internal/pagination"
	"finsight/internal/services"
	"finsight/internal/validator"
)

const testUserID = "0190a5c8-7b7e-7000-8000-000000000001"

// --- mock services ---

type mockUserService struct {
	createUserFn     func(email, password, firstName, lastName string) (*models.User, error)
	getUserByEmailFn func(email string) (*models.User, error)
	getUserByIDFn    func(id string) (*models.User, error)
	verifyPasswordFn func(user *models.User, password string) bool
}

func (m *mockUserService) CreateUser(email, password, firstName, lastName string) (*models.User, error) {
	if m.createUserFn != nil {
		return m.createUserFn(email, password, firstName, lastName)
	}
	return &models.User{}, nil
}

func (m *mockUserService) GetUserByEmail(email string) (*models.User, error) {
	if m.getUserByEmailFn != nil {
		return m.getUserByEmailFn(email)
	}
	return &models.User{}, nil
}

func (m *mockUserService) GetUserByID(id string) (*models.User, error) {
	if m.getUserByIDFn != nil {
		return m.getUserByIDFn(id)
	}
	return &models.User{}, nil
}

func (m *mockUserService) VerifyPassword(user *models.User, password string) bool {
	if m.verifyPasswordFn != nil {
		return m.verifyPasswordFn(user, password)
	}
	return true
}

var _ services.UserServicer = (*mockUserService)(nil)

type mockTransactionService struct {
	createTransactionFn  func(userID string, date time.Time, description string, amount float64, category, source string, aiGenerated bool) (*models.Transaction, error)
	getTransactionByIDFn func(userID, transactionID string) (*models.Transaction, error)
	listTransactionsFn   func(userID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	listAllFn            func(userID string) ([]models.Transaction, error)
	deleteTransactionFn  func(userID, transactionID string) error
	importCSVFn          func(userID string, parsed csvimport.Result) (*services.ImportSummary, error)
}

func (m *mockTransactionService) CreateTransaction(userID string, date time.Time, description string, amount float64, category, source string, aiGenerated bool) (*models.Transaction, error) {
	if m.createTransactionFn != nil {
		return m.createTransactionFn(userID, date, description, amount, category, source, aiGenerated)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	if m.getTransactionByIDFn != nil {
		return m.getTransactionByIDFn(userID, transactionID)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) ListTransactions(userID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if m.listTransactionsFn != nil {
		return m.listTransactionsFn(userID, page, filter)
	}
	resp := pagination.NewPageResponse([]models.Transaction{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockTransactionService) ListAll(userID string) ([]models.Transaction, error) {
	if m.listAllFn != nil {
		return m.listAllFn(userID)
	}
	return []models.Transaction{}, nil
}

func (m *mockTransactionService) DeleteTransaction(userID, transactionID string) error {
	if m.deleteTransactionFn != nil {
		return m.deleteTransactionFn(userID, transactionID)
	}
	return nil
}

func (m *mockTransactionService) ImportTransactions(_ string, records []models.Transaction) (int, error) {
	return len(records), nil
}

func (m *mockTransactionService) ImportCSV(userID string, parsed csvimport.Result) (*services.ImportSummary, error) {
	if m.importCSVFn != nil {
		return m.importCSVFn(userID, parsed)
	}
	return &services.ImportSummary{Imported: parsed.SuccessCount(), Errors: parsed.Errors}, nil
}

var _ services.TransactionServicer = (*mockTransactionService)(nil)

type auditEntry struct {
	UserID     string
	Action     models.AuditAction
	ResourceID string
	Changes    map[string]any
}

// mockAuditService records every entry.
type mockAuditService struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (m *mockAuditService) Log(userID string, action models.AuditAction, resourceID, _ string, changes map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, auditEntry{userID, action, resourceID, changes})
}

func (m *mockAuditService) actions() []models.AuditAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.AuditAction, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

var _ services.AuditServicer = (*mockAuditService)(nil)

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

func injectUserID(uid string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, uid)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

func day(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func record(date string, amount float64, category string) models.Transaction {
	return models.Transaction{
		Base:        models.Base{ID: "tx-" + date + category},
		UserID:      testUserID,
		Date:        day(date),
		Description: category,
		Amount:      amount,
		Category:    category,
		Source:      models.DefaultSource,
	}
}

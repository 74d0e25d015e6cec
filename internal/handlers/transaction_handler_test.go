package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"finsight/internal/csvimport"
	apperrors "finsight/internal/errors"
	"finsight/internal/models"
	"finsight/internal/pagination"
	"finsight/internal/services"
)

func setupTransactionRouter(handler *TransactionHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/transactions", handler.CreateTransaction)
	auth.GET("/transactions", handler.ListTransactions)
	auth.POST("/transactions/import", handler.ImportTransactions)
	auth.GET("/transactions/:id", handler.GetTransactionByID)
	auth.DELETE("/transactions/:id", handler.DeleteTransaction)
	auth.GET("/reference", handler.GetReference)
	return r
}

func TestTransactionHandler_CreateTransaction(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var gotDate time.Time
		txSvc := &mockTransactionService{
			createTransactionFn: func(userID string, date time.Time, desc string, amount float64, category, source string, ai bool) (*models.Transaction, error) {
				gotDate = date
				return &models.Transaction{
					Base:        models.Base{ID: "tx-1"},
					UserID:      userID,
					Date:        date,
					Description: desc,
					Amount:      amount,
					Category:    category,
					Source:      source,
					AIGenerated: ai,
				}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, audit))

		rec := doRequest(r, "POST", "/transactions",
			`{"date":"2024-03-01","description":"Rent","amount":-1600,"category":"Rent","source":"Bank Transfer"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		tx := parseJSON(t, rec)["transaction"].(map[string]interface{})
		if tx["amount"].(float64) != -1600 {
			t.Errorf("expected amount -1600, got %v", tx["amount"])
		}
		if !gotDate.Equal(day("2024-03-01")) {
			t.Errorf("expected 2024-03-01, got %v", gotDate)
		}
		if got := audit.actions(); len(got) != 1 || got[0] != "CREATE_TRANSACTION" {
			t.Errorf("expected CREATE_TRANSACTION audit, got %v", got)
		}
	})

	t.Run("accepts a zero amount", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/transactions", `{"date":"2024-03-01","description":"Adjustment","amount":0}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	tests := []struct {
		name string
		body string
	}{
		{"missing amount", `{"date":"2024-03-01","description":"Rent"}`},
		{"missing description", `{"date":"2024-03-01","amount":-5}`},
		{"bad date", `{"date":"01/03/2024","description":"Rent","amount":-5}`},
		{"comma in category", `{"date":"2024-03-01","description":"Rent","amount":-5,"category":"a,b"}`},
	}
	for _, tt := range tests {
		t.Run("returns 400 on "+tt.name, func(t *testing.T) {
			r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

			rec := doRequest(r, "POST", "/transactions", tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
		})
	}
}

func TestTransactionHandler_ListTransactions(t *testing.T) {
	t.Run("passes page and filters through", func(t *testing.T) {
		var gotPage pagination.PageRequest
		var gotFilter services.TransactionFilter
		txSvc := &mockTransactionService{
			listTransactionsFn: func(_ string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
				gotPage, gotFilter = page, filter
				resp := pagination.NewPageResponse([]models.Transaction{record("2024-03-01", -5, "Food")}, 2, 10, 11)
				return &resp, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/transactions?page=2&page_size=10&from_date=2024-01-01&to_date=2024-03-31&category=Food", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotPage.Page != 2 || gotPage.PageSize != 10 {
			t.Errorf("unexpected page %+v", gotPage)
		}
		if gotFilter.FromDate == nil || !gotFilter.FromDate.Equal(day("2024-01-01")) {
			t.Errorf("unexpected from_date %v", gotFilter.FromDate)
		}
		if gotFilter.Category == nil || *gotFilter.Category != "Food" || gotFilter.Source != nil {
			t.Errorf("unexpected filter %+v", gotFilter)
		}
		result := parseJSON(t, rec)
		if result["total_pages"].(float64) != 2 {
			t.Errorf("expected 2 pages, got %v", result["total_pages"])
		}
	})

	t.Run("returns 400 on inverted range", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/transactions?from_date=2024-03-01&to_date=2024-01-01", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on page_size over 100", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/transactions?page_size=500", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_GetTransactionByID(t *testing.T) {
	t.Run("returns 404 when missing", func(t *testing.T) {
		txSvc := &mockTransactionService{
			getTransactionByIDFn: func(string, string) (*models.Transaction, error) {
				return nil, apperrors.ErrTransactionNotFound
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/transactions/nope", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "TRANSACTION_NOT_FOUND")
	})

	t.Run("returns the transaction", func(t *testing.T) {
		txSvc := &mockTransactionService{
			getTransactionByIDFn: func(_, id string) (*models.Transaction, error) {
				tx := record("2024-03-01", -5, "Food")
				tx.ID = id
				return &tx, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/transactions/tx-9", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		tx := parseJSON(t, rec)["transaction"].(map[string]interface{})
		if tx["id"] != "tx-9" {
			t.Errorf("expected tx-9, got %v", tx["id"])
		}
	})
}

func TestTransactionHandler_DeleteTransaction(t *testing.T) {
	var deleted string
	txSvc := &mockTransactionService{
		deleteTransactionFn: func(_, id string) error {
			deleted = id
			return nil
		},
	}
	audit := &mockAuditService{}
	r := setupTransactionRouter(NewTransactionHandler(txSvc, audit))

	rec := doRequest(r, "DELETE", "/transactions/tx-1", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if deleted != "tx-1" {
		t.Errorf("expected tx-1 deleted, got %q", deleted)
	}
	if got := audit.actions(); len(got) != 1 || got[0] != "DELETE_TRANSACTION" {
		t.Errorf("expected DELETE_TRANSACTION audit, got %v", got)
	}
}

func uploadCSV(t *testing.T, r *gin.Engine, content string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if content != "" {
		part, err := w.CreateFormFile("file", "records.csv")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/transactions/import", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestTransactionHandler_ImportTransactions(t *testing.T) {
	const csvData = "date,description,amount,category,source\n" +
		"2024-03-01,Salary,6000,Salary,Bank Transfer\n" +
		"2024-03-02,Lunch,-12.5,,\n" +
		"bad line\n"

	t.Run("imports valid rows and reports the rest", func(t *testing.T) {
		var got csvimport.Result
		txSvc := &mockTransactionService{
			importCSVFn: func(_ string, parsed csvimport.Result) (*services.ImportSummary, error) {
				got = parsed
				return &services.ImportSummary{Imported: parsed.SuccessCount(), Errors: parsed.Errors}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, audit))

		rec := uploadCSV(t, r, csvData, map[string]string{"skip_header": "true"})

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.SuccessCount() != 2 || len(got.Errors) != 1 {
			t.Fatalf("unexpected parse result %+v", got)
		}
		if got.Transactions[1].Category != models.DefaultCategory {
			t.Errorf("expected default category, got %q", got.Transactions[1].Category)
		}
		result := parseJSON(t, rec)
		if result["imported"].(float64) != 2 {
			t.Errorf("expected 2 imported, got %v", result["imported"])
		}
		if got := audit.actions(); len(got) != 1 || got[0] != "IMPORT_TRANSACTIONS" {
			t.Errorf("expected IMPORT_TRANSACTIONS audit, got %v", got)
		}
	})

	t.Run("header counts as a bad line unless skipped", func(t *testing.T) {
		var got csvimport.Result
		txSvc := &mockTransactionService{
			importCSVFn: func(_ string, parsed csvimport.Result) (*services.ImportSummary, error) {
				got = parsed
				return &services.ImportSummary{Imported: parsed.SuccessCount(), Errors: parsed.Errors}, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, &mockAuditService{}))

		rec := uploadCSV(t, r, csvData, nil)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if len(got.Errors) != 2 {
			t.Errorf("expected header and bad line reported, got %v", got.Errors)
		}
	})

	t.Run("returns 400 without a file", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		rec := uploadCSV(t, r, "", map[string]string{"skip_header": "true"})

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 422 when nothing imports", func(t *testing.T) {
		txSvc := &mockTransactionService{
			importCSVFn: func(string, csvimport.Result) (*services.ImportSummary, error) {
				return nil, apperrors.ErrImportFailed
			},
		}
		audit := &mockAuditService{}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, audit))

		rec := uploadCSV(t, r, "bad line\n", nil)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		if len(audit.actions()) != 0 {
			t.Error("expected no audit entry for a failed import")
		}
	})
}

func TestTransactionHandler_GetReference(t *testing.T) {
	r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

	rec := doRequest(r, "GET", "/reference", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	result := parseJSON(t, rec)
	if len(result["categories"].([]interface{})) != len(models.Categories) {
		t.Errorf("unexpected categories %v", result["categories"])
	}
	if len(result["sources"].([]interface{})) != len(models.Sources) {
		t.Errorf("unexpected sources %v", result["sources"])
	}
}

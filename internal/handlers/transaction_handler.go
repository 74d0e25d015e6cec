package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"finsight/internal/csvimport"
	apperrors "finsight/internal/errors"
	"finsight/internal/models"
	"finsight/internal/pagination"
	"finsight/internal/services"
)

// maxImportSize bounds uploaded CSV files.
const maxImportSize = 10 << 20

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	auditService       services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer, auditService services.AuditServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, auditService: auditService}
}

// CreateTransactionRequest represents the request payload for creating a transaction.
// Positive amounts are income, negative amounts are expenses.
type CreateTransactionRequest struct {
	Date        string   `json:"date" binding:"required,iso_date" example:"2024-03-01"`
	Description string   `json:"description" binding:"required,max=500"`
	Amount      *float64 `json:"amount" binding:"required"`
	Category    string   `json:"category" binding:"tx_category"`
	Source      string   `json:"source" binding:"tx_source"`
	AIGenerated bool     `json:"ai_generated"`
}

// CreateTransaction handles the creation of a new transaction
// @Summary     Create a transaction
// @Description Record a dated income (positive amount) or expense (negative amount)
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	// iso_date already validated the layout
	date, _ := time.Parse(models.DateLayout, req.Date)

	transaction, err := h.transactionService.CreateTransaction(
		userID,
		date,
		req.Description,
		*req.Amount,
		req.Category,
		req.Source,
		req.AIGenerated,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, models.AuditCreateTransaction, transaction.ID, c.ClientIP(),
		map[string]any{"amount": transaction.Amount, "category": transaction.Category})

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// ListTransactions handles listing the user's transactions
// @Summary     List transactions
// @Description List the user's transactions, newest first, with optional filters
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Param       from_date query string false "Filter by start date (YYYY-MM-DD, inclusive)"
// @Param       to_date   query string false "Filter by end date (YYYY-MM-DD, inclusive)"
// @Param       category  query string false "Filter by category"
// @Param       source    query string false "Filter by source"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [get]
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.ListTransactions(userID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func parseTransactionFilter(c *gin.Context) (services.TransactionFilter, error) {
	var filter services.TransactionFilter
	var err error

	if filter.FromDate, err = parseDateQuery(c, "from_date"); err != nil {
		return filter, err
	}
	if filter.ToDate, err = parseDateQuery(c, "to_date"); err != nil {
		return filter, err
	}
	if filter.FromDate != nil && filter.ToDate != nil && filter.ToDate.Before(*filter.FromDate) {
		return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "to_date must not be before from_date")
	}

	if v := c.Query("category"); v != "" {
		filter.Category = &v
	}
	if v := c.Query("source"); v != "" {
		filter.Source = &v
	}

	return filter, nil
}

// GetTransactionByID handles the retrieval of a specific transaction
// @Summary     Get transaction by ID
// @Description Get a specific transaction by ID
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction details"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransactionByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(userID, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction handles the deletion of a transaction
// @Summary     Delete transaction
// @Description Delete a transaction by ID
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} MessageResponse "Transaction deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID := c.Param("id")
	if err := h.transactionService.DeleteTransaction(userID, transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, models.AuditDeleteTransaction, transactionID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted successfully"})
}

// ImportTransactions handles CSV uploads
// @Summary     Import transactions from CSV
// @Description Import rows of date,description,amount,category,source[,aiGenerated]. Malformed rows are skipped and reported.
// @Tags        transactions
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       file        formData file   true  "CSV file"
// @Param       skip_header formData bool   false "Skip the first line"
// @Success     200 {object} services.ImportSummary "Import summary"
// @Failure     400 {object} ErrorResponse "Missing or unreadable file"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     422 {object} ErrorResponse "No valid rows"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/import [post]
func (h *TransactionHandler) ImportTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "file is required"))
		return
	}
	if header.Size > maxImportSize {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "file is too large"))
		return
	}

	skipHeader := false
	if v := c.PostForm("skip_header"); v != "" {
		skipHeader, err = strconv.ParseBool(v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid skip_header"))
			return
		}
	}

	file, err := header.Open()
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInvalidInput, err))
		return
	}
	defer file.Close()

	summary, err := h.transactionService.ImportCSV(userID, csvimport.Parse(file, skipHeader))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, models.AuditImportTransactions, "", c.ClientIP(),
		map[string]any{"imported": summary.Imported, "skipped": len(summary.Errors), "file": header.Filename})

	c.JSON(http.StatusOK, summary)
}

// ReferenceResponse lists the suggested labels for new transactions.
type ReferenceResponse struct {
	Categories []string `json:"categories"`
	Sources    []string `json:"sources"`
}

// GetReference returns the suggested category and source labels
// @Summary     Reference labels
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} ReferenceResponse
// @Router      /reference [get]
func (h *TransactionHandler) GetReference(c *gin.Context) {
	c.JSON(http.StatusOK, ReferenceResponse{Categories: models.Categories, Sources: models.Sources})
}

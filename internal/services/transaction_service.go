package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"finsight/internal/csvimport"
	apperrors "finsight/internal/errors"
	"finsight/internal/models"
	"finsight/internal/pagination"
)

// importBatchSize caps the rows per INSERT during imports.
const importBatchSize = 200

// transactionService handles transaction-related business logic.
type transactionService struct {
	db *gorm.DB
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB) TransactionServicer {
	return &transactionService{db: db}
}

// CreateTransaction stores a single record for userID. Blank category and
// source fall back to the default labels.
func (s *transactionService) CreateTransaction(
	userID string,
	date time.Time,
	description string,
	amount float64,
	category string,
	source string,
	aiGenerated bool,
) (*models.Transaction, error) {
	tx := models.Transaction{
		Date:        date,
		Description: description,
		Amount:      amount,
		Category:    category,
		Source:      source,
		AIGenerated: aiGenerated,
	}
	if err := normalize(&tx, userID); err != nil {
		return nil, err
	}

	if err := s.db.Create(&tx).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &tx, nil
}

func normalize(tx *models.Transaction, userID string) error {
	if userID == "" {
		return apperrors.ErrUnauthorized
	}
	tx.Description = strings.TrimSpace(tx.Description)
	if tx.Description == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "description is required")
	}
	if tx.Date.IsZero() {
		tx.Date = time.Now()
	}
	tx.Date = models.CalendarDate(tx.Date)
	if strings.TrimSpace(tx.Category) == "" {
		tx.Category = models.DefaultCategory
	}
	if strings.TrimSpace(tx.Source) == "" {
		tx.Source = models.DefaultSource
	}
	tx.UserID = userID
	return nil
}

// GetTransactionByID retrieves a transaction by ID for a specific user
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Where("id = ? AND user_id = ?", transactionID, userID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// ListTransactions retrieves a paginated, filtered list of a user's transactions, newest first.
func (s *transactionService) ListTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("date DESC").
		Order("id DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("date >= ?", models.CalendarDate(*f.FromDate))
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", models.CalendarDate(*f.ToDate))
	}
	if f.Category != nil {
		q = q.Where("category = ?", *f.Category)
	}
	if f.Source != nil {
		q = q.Where("source = ?", *f.Source)
	}
	return q
}

// ListAll returns every transaction of userID in storage order. The
// analytics layer does its own sorting.
func (s *transactionService) ListAll(userID string) ([]models.Transaction, error) {
	var transactions []models.Transaction
	if err := s.db.Where("user_id = ?", userID).Order("date ASC").Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if transactions == nil {
		transactions = []models.Transaction{}
	}
	return transactions, nil
}

// DeleteTransaction soft-deletes one of the user's transactions.
func (s *transactionService) DeleteTransaction(userID, transactionID string) error {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(transaction).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// ImportTransactions stores records for userID in one database transaction.
// Either every record is stored or none is.
func (s *transactionService) ImportTransactions(userID string, records []models.Transaction) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	rows := make([]models.Transaction, len(records))
	for i, r := range records {
		r.ID = ""
		if err := normalize(&r, userID); err != nil {
			return 0, err
		}
		rows[i] = r
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&rows, importBatchSize).Error
	})
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return len(rows), nil
}

// ImportCSV stores the parsed rows of a CSV file. Line errors are passed
// through; a file with no valid rows fails with ErrImportFailed.
func (s *transactionService) ImportCSV(userID string, parsed csvimport.Result) (*ImportSummary, error) {
	if parsed.SuccessCount() == 0 {
		msg := apperrors.ErrImportFailed.Message
		if parsed.HasErrors() {
			msg = msg + ": " + parsed.Errors[0]
		}
		return nil, apperrors.WithMessage(apperrors.ErrImportFailed, msg)
	}

	n, err := s.ImportTransactions(userID, parsed.Transactions)
	if err != nil {
		return nil, err
	}
	return &ImportSummary{Imported: n, Errors: parsed.Errors}, nil
}

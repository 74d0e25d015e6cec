package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"finsight/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// Record builds an unsaved transaction dated on the given calendar day.
func Record(date string, amount float64, category string) models.Transaction {
	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		panic(fmt.Sprintf("testutil: bad date %q: %v", date, err))
	}
	return models.Transaction{
		Date:        d,
		Description: fmt.Sprintf("%s %s", category, date),
		Amount:      amount,
		Category:    category,
		Source:      models.DefaultSource,
	}
}

// CreateTestTransaction stores a transaction for userID.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID, date string, amount float64, category string) *models.Transaction {
	t.Helper()

	tx := Record(date, amount, category)
	tx.UserID = userID
	if err := db.Create(&tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return &tx
}

// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"finsight/internal/models"
)

// maxLabelLength bounds category and source labels, in runes.
const maxLabelLength = 64

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("iso_date", validateISODate)
		_ = v.RegisterValidation("tx_category", validateLabel)
		_ = v.RegisterValidation("tx_source", validateLabel)
		_ = v.RegisterValidation("insight_mode", validateInsightMode)
	}
}

func validateISODate(fl validator.FieldLevel) bool {
	_, err := time.Parse(models.DateLayout, fl.Field().String())
	return err == nil
}

// validateLabel accepts free-form labels that stay on one CSV field: blank
// (the default label applies), or printable text without commas.
func validateLabel(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if strings.TrimSpace(s) == "" {
		return true
	}
	if utf8.RuneCountInString(s) > maxLabelLength || strings.ContainsRune(s, ',') {
		return false
	}
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

func validateInsightMode(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "", "ai", "mock":
		return true
	}
	return false
}

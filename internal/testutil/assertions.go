package testutil

import (
	"errors"
	"math"
	"testing"

	apperrors "finsight/internal/errors"
)

// amountTolerance absorbs float64 rounding in summed money amounts.
const amountTolerance = 1e-6

// AssertAppError fails unless err is, or wraps, an *AppError with code.
func AssertAppError(t *testing.T, err error, code string) *apperrors.AppError {
	t.Helper()

	var appErr *apperrors.AppError
	switch {
	case err == nil:
		t.Fatalf("expected %s, got nil", code)
	case !errors.As(err, &appErr):
		t.Fatalf("expected %s, got %T: %v", code, err, err)
	case appErr.Code != code:
		t.Errorf("expected %s, got %s (%s)", code, appErr.Code, appErr.Message)
	}
	return appErr
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertAmount compares two money amounts within float rounding.
func AssertAmount(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > amountTolerance {
		t.Errorf("%s: expected %.2f, got %v", name, want, got)
	}
}

package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/license-inventory/repositories"
)

func TestNewDomainError(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeNotFound, "resource not found", baseErr)

	assert.Equal(t, ErrorTypeNotFound, domainErr.Type)
	assert.Equal(t, "resource not found", domainErr.Message)
	assert.Equal(t, baseErr, domainErr.Err)
	assert.NotNil(t, domainErr.Details)
}

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *DomainError
		wantMsg string
	}{
		{
			name: "error with wrapped error",
			err: &DomainError{
				Type:    ErrorTypeNotFound,
				Message: "license not found",
				Err:     errors.New("db error"),
			},
			wantMsg: "not_found: license not found (db error)",
		},
		{
			name: "error without wrapped error",
			err: &DomainError{
				Type:    ErrorTypeValidation,
				Message: "invalid input",
			},
			wantMsg: "validation: invalid input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeInternal, "internal error", baseErr)

	assert.Equal(t, baseErr, errors.Unwrap(domainErr))
}

func TestDomainError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"same error type", NotFound("seat %d not found", 4), ErrSeatNotFound, true},
		{"different error type", Validation("quantity must be at least 1"), ErrSeatNotFound, false},
		{"not a domain error", ErrLicenseNotFound, errors.New("regular error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestDomainError_WithDetail(t *testing.T) {
	err := NewDomainError(ErrorTypeConflict, "key already in use", nil)

	err.WithDetail("license_name", "Office").WithDetail("seat_id", int64(3))

	assert.Equal(t, "Office", err.Details["license_name"])
	assert.Equal(t, int64(3), err.Details["seat_id"])
}

func TestErrorTypeCheckers(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		checker func(error) bool
		want    bool
	}{
		{"not found", ErrLicenseNotFound, IsNotFoundError, true},
		{"wrapped not found", fmt.Errorf("wrapped: %w", ErrEmployeeNotFound), IsNotFoundError, true},
		{"nil is not not-found", nil, IsNotFoundError, false},
		{"validation", ErrAlreadyReturned, IsValidationError, true},
		{"regular error", errors.New("regular"), IsValidationError, false},
		{"unauthorized", ErrInvalidCredentials, IsUnauthorizedError, true},
		{"forbidden", ErrSelfModification, IsForbiddenError, true},
		{"rate limit", ErrTooManyLoginAttempts, IsRateLimitError, true},
		{"conflict", ErrDuplicateKey, IsConflictError, true},
		{"conflict is not validation", ErrDuplicateName, IsValidationError, false},
		{"internal", ErrTransactionFailed, IsInternalError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.checker(tt.err))
		})
	}
}

func TestGetErrorType(t *testing.T) {
	assert.Equal(t, ErrorTypeNotFound, GetErrorType(ErrGroupNotFound))
	assert.Equal(t, ErrorTypeConflict, GetErrorType(Conflict("group %q already exists", "Dev")))
	assert.Equal(t, ErrorType(""), GetErrorType(errors.New("regular")))
}

func TestGetErrorDetails(t *testing.T) {
	err := Validation("import failed").WithDetail("row", 3)

	details := GetErrorDetails(err)
	require.NotNil(t, details)
	assert.Equal(t, 3, details["row"])

	assert.Nil(t, GetErrorDetails(errors.New("regular error")))
}

func TestWrapInternal(t *testing.T) {
	baseErr := errors.New("database connection failed")
	wrapped := WrapInternal("failed to connect", baseErr)

	assert.True(t, IsInternalError(wrapped))
	assert.Equal(t, baseErr, errors.Unwrap(wrapped))
}

func TestMapRepoError(t *testing.T) {
	notFound := fmt.Errorf("license not found: 5: %w", repositories.ErrNotFound)
	duplicate := fmt.Errorf("create license: %w (licenses_name_key)", repositories.ErrDuplicate)

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, MapRepoError(nil, ErrLicenseNotFound, ErrDuplicateName, "x"))
	})

	t.Run("not found", func(t *testing.T) {
		err := MapRepoError(notFound, ErrLicenseNotFound, ErrDuplicateName, "failed to load license")
		assert.True(t, IsNotFoundError(err))
		assert.True(t, errors.Is(err, repositories.ErrNotFound))
	})

	t.Run("duplicate", func(t *testing.T) {
		err := MapRepoError(duplicate, ErrLicenseNotFound, ErrDuplicateName, "failed to create license")
		assert.True(t, IsConflictError(err))
	})

	t.Run("duplicate without mapping is internal", func(t *testing.T) {
		err := MapRepoError(duplicate, ErrLicenseNotFound, nil, "failed to create license")
		assert.True(t, IsInternalError(err))
	})

	t.Run("domain errors pass through", func(t *testing.T) {
		original := Validation("quantity must be at least 1")
		assert.Same(t, original, MapRepoError(original, nil, nil, "x"))
	})
}

func TestErrorTypeCheckersCoverage(t *testing.T) {
	typeCheckers := map[ErrorType]func(error) bool{
		ErrorTypeNotFound:     IsNotFoundError,
		ErrorTypeValidation:   IsValidationError,
		ErrorTypeUnauthorized: IsUnauthorizedError,
		ErrorTypeForbidden:    IsForbiddenError,
		ErrorTypeRateLimit:    IsRateLimitError,
		ErrorTypeConflict:     IsConflictError,
		ErrorTypeInternal:     IsInternalError,
	}

	for errType, checker := range typeCheckers {
		t.Run(string(errType), func(t *testing.T) {
			err := NewDomainError(errType, "test error", nil)
			assert.True(t, checker(err), "checker should return true for %s", errType)
		})
	}
}

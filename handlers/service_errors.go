package handlers

import (
	"errors"
	"net/http"

	"github.com/upb/license-inventory/services"
	"github.com/upb/license-inventory/utils"
	"go.uber.org/zap"
)

var statusByErrorType = map[services.ErrorType]int{
	services.ErrorTypeNotFound:     http.StatusNotFound,
	services.ErrorTypeValidation:   http.StatusBadRequest,
	services.ErrorTypeUnauthorized: http.StatusUnauthorized,
	services.ErrorTypeForbidden:    http.StatusForbidden,
	services.ErrorTypeRateLimit:    http.StatusTooManyRequests,
	services.ErrorTypeConflict:     http.StatusConflict,
}

// HandleServiceError maps domain errors to HTTP responses.
// Internal and unknown errors are logged and answered with a generic 500.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	var domainErr *services.DomainError
	if !errors.As(err, &domainErr) {
		logger.Error("unhandled error type", zap.Error(err))
		if err := utils.WriteInternalServerError(w, "An unexpected error occurred"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}
		return
	}

	status, ok := statusByErrorType[domainErr.Type]
	if !ok {
		logger.Error("internal server error", zap.Error(err))
		if err := utils.WriteInternalServerError(w, "An internal error occurred"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}
		return
	}

	var details map[string]interface{}
	if len(domainErr.Details) > 0 {
		details = domainErr.Details
	}
	var writeErr error
	switch domainErr.Type {
	case services.ErrorTypeRateLimit:
		writeErr = utils.WriteTooManyRequests(w, domainErr.Message, details)
	case services.ErrorTypeConflict:
		writeErr = utils.WriteConflict(w, domainErr.Message, details)
	default:
		writeErr = utils.WriteError(w, status, domainErr.Message, details)
	}
	if writeErr != nil {
		logger.Error("failed to write error response", zap.Int("status", status), zap.Error(writeErr))
	}

	logger.Debug("handled service error",
		zap.String("type", string(domainErr.Type)),
		zap.String("message", domainErr.Message),
		zap.Any("details", domainErr.Details))
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, "Validation failed", map[string]interface{}{"fields": details}); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}

package handlers

import (
	"net/http"

	"github.com/upb/license-inventory/utils"
	"go.uber.org/zap"
)

// decodeRequest decodes and validates a JSON body into dst.
// On failure the error response is already written.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst interface{}, logger *zap.Logger, requestID string) bool {
	if err := utils.DecodeJSON(w, r, dst); err != nil {
		logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, logger)
		return false
	}
	if err := utils.ValidateStruct(dst); err != nil {
		logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, logger)
		return false
	}
	return true
}

// pathID reads a positive numeric path parameter
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := utils.URLParamInt64(r, name)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return 0, false
	}
	return id, true
}

package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/license-inventory/middleware"
	"github.com/upb/license-inventory/services/importer"
	"github.com/upb/license-inventory/utils"
	"go.uber.org/zap"
)

// multipartOverhead leaves room for form boundaries and headers around the file
const multipartOverhead = 64 << 10

// Importer defines the CSV import operation used by the HTTP layer
type Importer interface {
	Import(ctx context.Context, kind, filename string, size int64, r io.Reader, actor string) (*importer.Result, error)
}

// ImportHandler handles CSV uploads and template downloads
type ImportHandler struct {
	importer       Importer
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(imp Importer, maxUploadBytes int64, logger *zap.Logger) *ImportHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = importer.DefaultMaxUploadBytes
	}
	return &ImportHandler{
		importer:       imp,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// HandleImport handles POST /api/v1/import/{kind} with a multipart "file" field.
// A rejected file answers 422 with the row errors in the body.
func (h *ImportHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)
	kind := chi.URLParam(r, "kind")

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			_ = utils.WriteError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file is larger than %d MB", h.maxUploadBytes>>20), nil)
			return
		}
		h.logger.Warn("missing upload",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "select a CSV file", nil)
		return
	}
	defer file.Close()

	result, err := h.importer.Import(ctx, kind, header.Filename, header.Size, file, middleware.Actor(ctx))
	if err != nil {
		h.logger.Error("import failed",
			zap.String("request_id", requestID),
			zap.String("kind", kind),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	h.logger.Info("import finished",
		zap.String("request_id", requestID),
		zap.String("kind", kind),
		zap.Bool("success", result.Success),
		zap.Int("errors", len(result.Errors)))

	_ = utils.WriteJSON(w, status, utils.SuccessResponse{Data: result, Message: result.Message})
}

// HandleTemplate handles GET /api/v1/import/{kind}/template
func (h *ImportHandler) HandleTemplate(w http.ResponseWriter, r *http.Request) {
	kind := importer.Kind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		_ = utils.WriteNotFound(w, fmt.Sprintf("unknown import type %q", kind))
		return
	}

	body, err := importer.TemplateCSV(kind)
	if err != nil {
		h.logger.Error("failed to render import template",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
			zap.String("kind", string(kind)),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "")
		return
	}

	_ = utils.WriteCSV(w, fmt.Sprintf("%s_template.csv", kind), body)
}

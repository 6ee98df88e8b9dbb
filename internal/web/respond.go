package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/chrishenyard/ai-receipts/internal/filestore"
	"github.com/chrishenyard/ai-receipts/internal/service"
	"github.com/chrishenyard/ai-receipts/internal/vision"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps pipeline error kinds to HTTP statuses. Responses
// carry sanitized messages only; upstream and storage failures are logged
// with full context here, validation failures are expected traffic and are
// not.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var uploadErr *service.UploadError
	var validationErr *service.ValidationError
	var malformedErr *service.MalformedExtractionError

	switch {
	case errors.As(err, &uploadErr):
		writeError(w, http.StatusBadRequest, uploadErr.Reason)
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, map[string][]string{"errors": validationErr.Errors})
	case errors.Is(err, service.ErrCategoryNotFound):
		writeError(w, http.StatusBadRequest, "the referenced category does not exist")
	case errors.Is(err, service.ErrReceiptNotFound):
		writeError(w, http.StatusBadRequest, "the receipt to update does not exist")
	case errors.Is(err, vision.ErrTimeout):
		s.logger.Error("model request timed out", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusGatewayTimeout, "the model took too long to respond")
	case errors.Is(err, vision.ErrUnavailable):
		s.logger.Error("model endpoint unreachable", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusServiceUnavailable, "the model endpoint is unreachable")
	case errors.Is(err, service.ErrEmptyExtraction):
		s.logger.Error("extraction produced no text", "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "no text extracted from the image")
	case errors.As(err, &malformedErr):
		s.logger.Error("extraction produced invalid JSON", "path", r.URL.Path, "raw", malformedErr.Raw)
		writeError(w, http.StatusInternalServerError, "the extracted data is not valid JSON")
	case errors.Is(err, filestore.ErrNotFound):
		writeError(w, http.StatusNotFound, "file not found")
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

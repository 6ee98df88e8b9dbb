package web

import (
	"net/http"

	"github.com/chrishenyard/ai-receipts/internal/domain"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.service.Categories(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if categories == nil {
		categories = []*domain.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

// handleOllamaHealth reports whether the model endpoint is reachable and
// which models it has loaded.
func (s *Server) handleOllamaHealth(w http.ResponseWriter, r *http.Request) {
	if s.models == nil {
		writeError(w, http.StatusNotImplemented, "model listing is not supported by the configured backend")
		return
	}

	models, err := s.models.ListModels(r.Context())
	if err != nil {
		s.logger.Error("ollama health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unreachable"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"models": models,
	})
}

package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/chrishenyard/ai-receipts/internal/domain"
)

// maxMultipartMemory caps how much of a multipart body is held in memory
// before spilling to temp files. The upload size ceiling itself is enforced
// by the service.
const maxMultipartMemory = 32 * 1024 * 1024

// handleScanReceipt accepts a multipart upload (field "file"), runs the
// ingestion pipeline, and returns the unpersisted draft receipt.
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file was uploaded")
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			s.logger.Error("failed to close upload file", "error", err)
		}
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("failed to read upload", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read file")
		return
	}

	draft, err := s.service.Scan(r.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, draft)
}

// handleSaveReceipt accepts a client-edited receipt payload and upserts it.
func (s *Server) handleSaveReceipt(w http.ResponseWriter, r *http.Request) {
	var receipt domain.Receipt
	if err := json.NewDecoder(r.Body).Decode(&receipt); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	saved, created, err := s.service.Save(r.Context(), &receipt)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if created {
		w.Header().Set("Location", fmt.Sprintf("/api/receipt/%d", saved.ReceiptID))
		writeJSON(w, http.StatusCreated, saved)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid receipt id")
		return
	}

	receipt, err := s.service.Receipt(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if receipt == nil {
		writeError(w, http.StatusNotFound, "receipt not found")
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.service.Receipts(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if receipts == nil {
		receipts = []*domain.Receipt{}
	}
	writeJSON(w, http.StatusOK, receipts)
}

// handleGetImage serves stored image bytes by the relative path recorded in
// a receipt's imageUrl.
func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	data, err := s.files.Download(r.Context(), r.PathValue("path"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	if _, err := w.Write(data); err != nil {
		s.logger.Error("failed to write image", "error", err)
	}
}

package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyExtraction means the model stream completed with no content.
	ErrEmptyExtraction = errors.New("no text extracted from the image")
	// ErrCategoryNotFound means a save referenced a nonexistent category.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrReceiptNotFound means an update referenced a nonexistent row.
	ErrReceiptNotFound = errors.New("receipt not found")
)

// UploadError rejects an uploaded file before any side effect occurs.
type UploadError struct {
	Reason string
}

func (e *UploadError) Error() string {
	return e.Reason
}

// MalformedExtractionError means the model produced non-JSON output. Raw
// holds the accumulated text for diagnostics; it is logged, never returned
// to clients.
type MalformedExtractionError struct {
	Raw string
	Err error
}

func (e *MalformedExtractionError) Error() string {
	return fmt.Sprintf("the extracted data is not valid JSON: %v", e.Err)
}

func (e *MalformedExtractionError) Unwrap() error {
	return e.Err
}

// ValidationError collects field-level failures from a save payload.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Errors, "; ")
}

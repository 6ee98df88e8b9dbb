package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/chrishenyard/ai-receipts/internal/domain"
	"github.com/chrishenyard/ai-receipts/internal/filestore"
	"github.com/chrishenyard/ai-receipts/internal/vision"
)

// supportedImageTypes is the allow-list for uploaded receipt images. The
// declared content type is trusted; the vision model is the real consumer
// and rejects non-images on its own.
var supportedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/bmp":  true,
	"image/gif":  true,
	"image/tiff": true,
	"image/webp": true,
}

// receiptRepository is the subset of store.ReceiptStore that ReceiptService requires.
type receiptRepository interface {
	Insert(ctx context.Context, r *domain.Receipt) (*domain.Receipt, error)
	Update(ctx context.Context, r *domain.Receipt) (bool, error)
	GetByID(ctx context.Context, id int64) (*domain.Receipt, error)
	List(ctx context.Context) ([]*domain.Receipt, error)
}

// categoryRepository is the subset of store.CategoryStore that ReceiptService requires.
type categoryRepository interface {
	List(ctx context.Context) ([]*domain.Category, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

type ReceiptService struct {
	receipts       receiptRepository
	categories     categoryRepository
	extractor      vision.Extractor
	files          filestore.FileStore
	validate       *validator.Validate
	promptsDir     string
	maxUploadBytes int64
	scanTimeout    time.Duration
	logger         *slog.Logger
}

func NewReceiptService(
	receipts receiptRepository,
	categories categoryRepository,
	extractor vision.Extractor,
	files filestore.FileStore,
	promptsDir string,
	maxUploadBytes int64,
	scanTimeout time.Duration,
	logger *slog.Logger,
) *ReceiptService {
	return &ReceiptService{
		receipts:       receipts,
		categories:     categories,
		extractor:      extractor,
		files:          files,
		validate:       validator.New(),
		promptsDir:     promptsDir,
		maxUploadBytes: maxUploadBytes,
		scanTimeout:    scanTimeout,
		logger:         logger,
	}
}

// Scan runs the ingestion pipeline: validate the upload, persist the image,
// invoke the model, assemble the streamed output, and parse it into a draft
// receipt. The draft is not persisted; the user reviews and corrects it
// before Save commits a row. Model output is an untrusted draft, not ground
// truth.
func (s *ReceiptService) Scan(ctx context.Context, filename, contentType string, data []byte) (*domain.Receipt, error) {
	if err := s.validateUpload(contentType, data); err != nil {
		return nil, err
	}

	imagePath, err := s.files.Save(ctx, filename, data)
	if err != nil {
		return nil, fmt.Errorf("failed to save image: %w", err)
	}
	s.logger.Info("scan started", "filename", filename, "bytes", len(data), "image_path", imagePath)

	prompts, err := vision.LoadPrompts(s.promptsDir)
	if err != nil {
		s.discardImage(imagePath)
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}

	scanCtx, cancel := context.WithTimeout(ctx, s.scanTimeout)
	defer cancel()

	chunks, err := s.extractor.Extract(scanCtx, data, contentType, prompts)
	if err != nil {
		s.discardImage(imagePath)
		return nil, fmt.Errorf("failed to invoke model: %w", err)
	}

	var sb strings.Builder
	for chunk := range chunks {
		if chunk.Err != nil {
			s.discardImage(imagePath)
			return nil, fmt.Errorf("model stream failed: %w", chunk.Err)
		}
		sb.WriteString(chunk.Text)
	}

	// The extractor closes the channel silently when the context expires;
	// distinguish that from a normally completed stream.
	if ctxErr := scanCtx.Err(); ctxErr != nil {
		s.discardImage(imagePath)
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: model exceeded %s budget", vision.ErrTimeout, s.scanTimeout)
		}
		return nil, ctxErr
	}

	output := strings.TrimSpace(sb.String())
	if output == "" {
		s.logger.Warn("no text extracted from the image", "image_path", imagePath)
		s.discardImage(imagePath)
		return nil, ErrEmptyExtraction
	}

	output = vision.StripFences(output)
	s.logger.Info("text extracted", "image_path", imagePath, "length", len(output))
	s.logger.Debug("extracted json", "output", output)

	receipt, err := vision.ParseReceipt(output)
	if err != nil {
		s.logger.Warn("invalid JSON returned from model", "image_path", imagePath, "output", output)
		s.discardImage(imagePath)
		return nil, &MalformedExtractionError{Raw: output, Err: err}
	}

	if receipt.ExtractedText == "" {
		receipt.ExtractedText = output
	}
	receipt.ImageURL = imagePath
	receipt.ClampFields()

	s.logger.Info("scan complete", "image_path", imagePath, "vendor", receipt.Vendor, "total", receipt.Total)
	return receipt, nil
}

// Save validates a client-edited receipt and upserts it: ReceiptID zero
// inserts a new row, nonzero updates the existing one. Returns the persisted
// row and whether it was newly created.
func (s *ReceiptService) Save(ctx context.Context, r *domain.Receipt) (*domain.Receipt, bool, error) {
	if err := s.validate.Struct(r); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fieldMessage(fe))
			}
			return nil, false, &ValidationError{Errors: msgs}
		}
		return nil, false, fmt.Errorf("failed to validate receipt: %w", err)
	}

	if r.CategoryID != 0 {
		exists, err := s.categories.Exists(ctx, r.CategoryID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to check category: %w", err)
		}
		if !exists {
			return nil, false, fmt.Errorf("%w: id %d", ErrCategoryNotFound, r.CategoryID)
		}
	}

	r.ClampFields()

	if r.ReceiptID == 0 {
		saved, err := s.receipts.Insert(ctx, r)
		if err != nil {
			return nil, false, err
		}
		s.logger.Info("receipt created", "receipt_id", saved.ReceiptID, "category_id", saved.CategoryID)
		return saved, true, nil
	}

	updated, err := s.receipts.Update(ctx, r)
	if err != nil {
		return nil, false, err
	}
	if !updated {
		return nil, false, fmt.Errorf("%w: id %d", ErrReceiptNotFound, r.ReceiptID)
	}

	saved, err := s.receipts.GetByID(ctx, r.ReceiptID)
	if err != nil {
		return nil, false, err
	}
	s.logger.Info("receipt updated", "receipt_id", saved.ReceiptID)
	return saved, false, nil
}

func (s *ReceiptService) Categories(ctx context.Context) ([]*domain.Category, error) {
	return s.categories.List(ctx)
}

func (s *ReceiptService) Receipt(ctx context.Context, id int64) (*domain.Receipt, error) {
	return s.receipts.GetByID(ctx, id)
}

func (s *ReceiptService) Receipts(ctx context.Context) ([]*domain.Receipt, error) {
	return s.receipts.List(ctx)
}

func (s *ReceiptService) validateUpload(contentType string, data []byte) error {
	if len(data) == 0 {
		return &UploadError{Reason: "no file was uploaded"}
	}
	if contentType == "" || !supportedImageTypes[contentType] {
		return &UploadError{Reason: "please upload an image, ex (image/jpeg, image/png)"}
	}
	if int64(len(data)) > s.maxUploadBytes {
		return &UploadError{Reason: fmt.Sprintf("the uploaded file exceeds the maximum allowed size of %d bytes", s.maxUploadBytes)}
	}
	return nil
}

// discardImage removes a stored image whose scan did not produce a usable
// draft, so failed scans leave no unreferenced files behind. Best effort.
func (s *ReceiptService) discardImage(imagePath string) {
	if err := s.files.Delete(context.Background(), imagePath); err != nil {
		s.logger.Error("failed to remove image after scan failure", "image_path", imagePath, "error", err)
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must not be in the future", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	"github.com/chrishenyard/ai-receipts/internal/config"
	"github.com/chrishenyard/ai-receipts/internal/db"
	"github.com/chrishenyard/ai-receipts/internal/filestore/local"
	"github.com/chrishenyard/ai-receipts/internal/logging"
	"github.com/chrishenyard/ai-receipts/internal/service"
	"github.com/chrishenyard/ai-receipts/internal/store"
	"github.com/chrishenyard/ai-receipts/internal/vision"
	claudevision "github.com/chrishenyard/ai-receipts/internal/vision/claude"
	ollamavision "github.com/chrishenyard/ai-receipts/internal/vision/ollama"
	"github.com/chrishenyard/ai-receipts/internal/web"
)

func main() {
	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	receiptStore := store.NewReceiptStore(database)
	categoryStore := store.NewCategoryStore(database)

	files, err := local.NewLocalFileStore(cfg.UploadPath)
	if err != nil {
		logger.Error("failed to initialize file store", "error", err)
		return
	}

	extractor, models := newExtractor(cfg, logger)
	if extractor == nil {
		return
	}

	svc := service.NewReceiptService(
		receiptStore,
		categoryStore,
		extractor,
		files,
		cfg.PromptsDir,
		cfg.MaxUploadBytes,
		time.Duration(cfg.OllamaTimeoutMinutes)*time.Minute,
		logger,
	)

	server := web.NewServer(svc, files, models, cfg.AllowedOrigin, logger)

	if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
	}
}

// newExtractor builds the configured vision backend. For Ollama it also
// pulls the vision model if the endpoint does not have it yet; a failure
// there is logged but not fatal since the endpoint may come up later.
func newExtractor(cfg *config.Config, logger *slog.Logger) (vision.Extractor, web.ModelLister) {
	switch cfg.VisionBackend {
	case "claude":
		if cfg.AnthropicAPIKey == "" {
			logger.Error("ANTHROPIC_API_KEY is required when VISION_BACKEND=claude")
			return nil, nil
		}
		logger.Info("using Claude vision backend", "model", cfg.AnthropicModel)
		return claudevision.NewExtractor(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
	default:
		logger.Info("using Ollama vision backend", "url", cfg.OllamaURL, "model", cfg.VisionModel)
		client := ollamavision.NewClient(cfg.OllamaURL, cfg.VisionModel, cfg.ContextWindowSize)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := client.EnsureModel(ctx); err != nil {
			logger.Warn("failed to ensure vision model", "model", cfg.VisionModel, "error", err)
		}
		return client, client
	}
}

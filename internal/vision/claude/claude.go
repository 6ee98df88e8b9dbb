package claude

import (
	"context"
	"errors"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/chrishenyard/ai-receipts/internal/vision"
)

// maxTokens allows for the extracted text of a long receipt plus the
// structured fields around it.
const maxTokens = 2048

// Extractor implements vision.Extractor against the Anthropic Messages API.
// The response is not streamed; the full text arrives as a single chunk.
type Extractor struct {
	client *anthropic.Client
	model  string
}

func NewExtractor(apiKey, model string) *Extractor {
	return &Extractor{
		client: anthropic.NewClient(apiKey),
		model:  model,
	}
}

func (e *Extractor) Extract(ctx context.Context, image []byte, mimeType string, prompts vision.Prompts) (<-chan vision.Chunk, error) {
	resp, err := e.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(e.model),
		MaxTokens: maxTokens,
		System:    prompts.System,
		Messages: []anthropic.Message{
			{
				Role: anthropic.RoleUser,
				Content: []anthropic.MessageContent{
					anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
						anthropic.MessagesContentSourceTypeBase64, normaliseMIME(mimeType), image)),
					anthropic.NewTextMessageContent(prompts.User),
				},
			},
		},
	})
	if err != nil {
		return nil, classifyErr(err)
	}

	ch := make(chan vision.Chunk, 1)
	if text := resp.GetFirstContentText(); text != "" {
		ch <- vision.Chunk{Text: text}
	}
	close(ch)
	return ch, nil
}

// normaliseMIME maps upload MIME types to the values the Anthropic API
// accepts: jpeg, png, gif, and webp. Anything else is coerced to jpeg.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}

func classifyErr(err error) error {
	var apiErr *anthropic.APIError
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", vision.ErrTimeout, err)
	case errors.As(err, &apiErr):
		return fmt.Errorf("claude api error: %w", err)
	default:
		return fmt.Errorf("%w: %v", vision.ErrUnavailable, err)
	}
}

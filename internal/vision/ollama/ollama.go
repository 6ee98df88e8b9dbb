package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/chrishenyard/ai-receipts/internal/vision"
)

// maxLineSize bounds a single NDJSON line from the stream. Chunks are tiny,
// but the final done message carries timing stats and the full context.
const maxLineSize = 1024 * 1024

type Client struct {
	baseURL string
	model   string
	numCtx  int
	client  *http.Client
}

// NewClient creates a client bound to an Ollama endpoint. No HTTP timeout is
// set on the transport; the request context carries the time budget.
func NewClient(baseURL, model string, numCtx int) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		numCtx:  numCtx,
		client:  &http.Client{},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
	Options  *chatOptions  `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type chatOptions struct {
	NumCtx int `json:"num_ctx,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// Extract issues a streaming /api/chat request with the system and user
// prompts and the base64-encoded image, asking for JSON-formatted output.
// Content chunks are yielded on the returned channel as they arrive; the
// channel is closed when the model reports done or ctx is cancelled.
func (c *Client) Extract(ctx context.Context, image []byte, mimeType string, prompts vision.Prompts) (<-chan vision.Chunk, error) {
	reqBody := chatRequest{
		Model:  c.model,
		Stream: true,
		Format: "json",
		Messages: []chatMessage{
			{Role: "system", Content: prompts.System},
			{
				Role:    "user",
				Content: prompts.User,
				Images:  []string{base64.StdEncoding.EncodeToString(image)},
			},
		},
	}
	if c.numCtx > 0 {
		reqBody.Options = &chatOptions{NumCtx: c.numCtx}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyErr(err)
	}

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, errBody)
	}

	ch := make(chan vision.Chunk, 16)

	go func() {
		defer close(ch)
		defer func() {
			if err := resp.Body.Close(); err != nil {
				slog.Error("failed to close ollama stream body", "error", err)
			}
		}()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

		for scanner.Scan() {
			if ctx.Err() != nil {
				return
			}

			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			var cr chatResponse
			if err := json.Unmarshal(line, &cr); err != nil {
				continue
			}

			if cr.Message.Content != "" {
				select {
				case ch <- vision.Chunk{Text: cr.Message.Content}:
				case <-ctx.Done():
					return
				}
			}

			if cr.Done {
				return
			}
		}

		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			ch <- vision.Chunk{Err: classifyErr(err)}
		}
	}()

	return ch, nil
}

type modelList struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels returns the names of models available on the endpoint.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyErr(err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close ollama response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, errBody)
	}

	var list modelList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to decode model list: %w", err)
	}

	names := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

type pullStatus struct {
	Status    string `json:"status"`
	Completed int64  `json:"completed"`
	Total     int64  `json:"total"`
}

// Pull downloads the configured model to the endpoint, logging streamed
// progress. It blocks until the pull completes or ctx is cancelled.
func (c *Client) Pull(ctx context.Context) error {
	payload, err := json.Marshal(map[string]any{"name": c.model})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/pull", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyErr(err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close ollama pull body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, errBody)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		var status pullStatus
		if err := json.Unmarshal(scanner.Bytes(), &status); err != nil {
			continue
		}
		if status.Status != "" {
			slog.Debug("pull status", "model", c.model, "status", status.Status,
				"completed", status.Completed, "total", status.Total)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read pull stream: %w", err)
	}
	return nil
}

// EnsureModel pulls the configured model if the endpoint does not already
// have it.
func (c *Client) EnsureModel(ctx context.Context) error {
	models, err := c.ListModels(ctx)
	if err != nil {
		return err
	}

	for _, name := range models {
		if strings.EqualFold(name, c.model) {
			slog.Info("model already present", "model", c.model)
			return nil
		}
	}

	slog.Info("model not found, pulling", "model", c.model)
	if err := c.Pull(ctx); err != nil {
		return fmt.Errorf("failed to pull model %s: %w", c.model, err)
	}
	slog.Info("model pulled", "model", c.model)
	return nil
}

func classifyErr(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", vision.ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %v", vision.ErrUnavailable, err)
	}
}

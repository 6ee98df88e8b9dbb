package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrishenyard/ai-receipts/internal/db"
	"github.com/chrishenyard/ai-receipts/internal/domain"
	"github.com/chrishenyard/ai-receipts/internal/filestore/local"
	"github.com/chrishenyard/ai-receipts/internal/service"
	"github.com/chrishenyard/ai-receipts/internal/store"
	"github.com/chrishenyard/ai-receipts/internal/vision"
	"github.com/chrishenyard/ai-receipts/internal/web"
)

// scriptedExtractor plays back a fixed sequence of chunks instead of calling
// a model endpoint.
type scriptedExtractor struct {
	chunks []string
	calls  int
}

func (f *scriptedExtractor) Extract(_ context.Context, _ []byte, _ string, _ vision.Prompts) (<-chan vision.Chunk, error) {
	f.calls++
	ch := make(chan vision.Chunk, len(f.chunks))
	for _, c := range f.chunks {
		ch <- vision.Chunk{Text: c}
	}
	close(ch)
	return ch, nil
}

type env struct {
	server    *httptest.Server
	client    *http.Client
	extractor *scriptedExtractor
}

// newEnv assembles the full stack on a temp database and upload directory:
// real migrations, real file store, scripted model.
func newEnv(t *testing.T) *env {
	t.Helper()

	dir := t.TempDir()
	database, err := db.Open(filepath.Join(dir, "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	files, err := local.NewLocalFileStore(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	extractor := &scriptedExtractor{}
	svc := service.NewReceiptService(
		store.NewReceiptStore(database),
		store.NewCategoryStore(database),
		extractor, files, "", 1024*1024, 5*time.Second, logger)

	server := httptest.NewServer(web.NewServer(svc, files, nil, "", logger))
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &env{
		server:    server,
		client:    &http.Client{Jar: jar},
		extractor: extractor,
	}
}

// token fetches an antiforgery token; the cookie lands in the client's jar
// and the value is returned for the X-XSRF-TOKEN header.
func (e *env) token(t *testing.T) string {
	t.Helper()
	resp, err := e.client.Get(e.server.URL + "/api/antiforgery/token")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, c := range resp.Cookies() {
		if c.Name == "XSRF-TOKEN" {
			return c.Value
		}
	}
	t.Fatal("no XSRF-TOKEN cookie issued")
	return ""
}

func (e *env) upload(t *testing.T, token, filename, contentType string, data []byte) *http.Response {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, e.server.URL+"/api/receipt", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("X-XSRF-TOKEN", token)
	}

	resp, err := e.client.Do(req)
	require.NoError(t, err)
	return resp
}

func (e *env) postJSON(t *testing.T, token, path string, payload any) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-XSRF-TOKEN", token)

	resp, err := e.client.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

var jpegData = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46}

func TestLiveness(t *testing.T) {
	e := newEnv(t)

	resp, err := e.client.Get(e.server.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "AI Receipts is running...", string(body))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestListCategoriesSeeded(t *testing.T) {
	e := newEnv(t)

	resp, err := e.client.Get(e.server.URL + "/api/Categories")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	categories := decode[[]domain.Category](t, resp)
	require.Len(t, categories, 8)
	assert.Equal(t, "Groceries", categories[0].Name)
	assert.Equal(t, int64(1), categories[0].CategoryID)
	assert.Equal(t, "Other", categories[7].Name)
}

func TestScanRequiresAntiforgeryToken(t *testing.T) {
	e := newEnv(t)

	resp := e.upload(t, "", "receipt.jpg", "image/jpeg", jpegData)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, e.extractor.calls)
}

func TestScanRejectsMismatchedToken(t *testing.T) {
	e := newEnv(t)
	e.token(t) // cookie lands in the jar

	resp := e.upload(t, "not-the-cookie-value", "receipt.jpg", "image/jpeg", jpegData)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, e.extractor.calls)
}

func TestScanRejectsUnsupportedType(t *testing.T) {
	e := newEnv(t)
	token := e.token(t)

	resp := e.upload(t, token, "receipt.pdf", "application/pdf", jpegData)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, e.extractor.calls)
}

func TestScanAndSaveFlow(t *testing.T) {
	e := newEnv(t)
	e.extractor.chunks = []string{
		"```json\n",
		`{"title":"Weekly groceries","vendor":"Store 123",`,
		`"total":42.17,"tax":3.17,"purchaseDate":"2026-08-30"}`,
		"\n```",
	}
	token := e.token(t)

	// Scan returns an unpersisted draft.
	resp := e.upload(t, token, "receipt.jpg", "image/jpeg", jpegData)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	draft := decode[domain.Receipt](t, resp)

	assert.Zero(t, draft.ReceiptID)
	assert.Equal(t, "Weekly groceries", draft.Title)
	assert.Equal(t, "Store 123", draft.Vendor)
	assert.InDelta(t, 42.17, draft.Total, 0.001)
	assert.NotEmpty(t, draft.ImageURL)
	assert.NotEmpty(t, draft.ExtractedText)

	// The user picks a category and confirms.
	draft.CategoryID = 1
	resp = e.postJSON(t, token, "/api/receipt/create", draft)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Location"))
	saved := decode[domain.Receipt](t, resp)

	require.NotZero(t, saved.ReceiptID)
	assert.False(t, saved.CreatedAt.IsZero())

	// The persisted row is readable back.
	resp, err := e.client.Get(fmt.Sprintf("%s/api/receipt/%d", e.server.URL, saved.ReceiptID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fetched := decode[domain.Receipt](t, resp)
	assert.Equal(t, saved.ReceiptID, fetched.ReceiptID)
	assert.Equal(t, "Weekly groceries", fetched.Title)

	// And listed.
	resp, err = e.client.Get(e.server.URL + "/api/receipts")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]domain.Receipt](t, resp)
	require.Len(t, list, 1)

	// The stored image is downloadable by its relative path.
	resp, err = e.client.Get(e.server.URL + "/api/receipt/image/" + saved.ImageURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, jpegData, body)
}

func TestSaveAndUpdate(t *testing.T) {
	e := newEnv(t)
	token := e.token(t)

	receipt := domain.Receipt{
		Title:        "Lunch",
		ImageURL:     "20260830/receipt_abc.jpg",
		Total:        12.50,
		PurchaseDate: time.Now().UTC().Add(-time.Hour),
		CategoryID:   2,
	}

	resp := e.postJSON(t, token, "/api/receipt/create", receipt)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	saved := decode[domain.Receipt](t, resp)

	saved.Title = "Team lunch"
	resp = e.postJSON(t, token, "/api/receipt/create", saved)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[domain.Receipt](t, resp)

	assert.Equal(t, saved.ReceiptID, updated.ReceiptID)
	assert.Equal(t, "Team lunch", updated.Title)
	assert.Equal(t, saved.CreatedAt, updated.CreatedAt)
}

func TestSaveValidationErrors(t *testing.T) {
	e := newEnv(t)
	token := e.token(t)

	receipt := domain.Receipt{
		Title:      "Bad",
		ImageURL:   "20260830/receipt_abc.jpg",
		Total:      0,
		CategoryID: 1,
	}

	resp := e.postJSON(t, token, "/api/receipt/create", receipt)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decode[map[string][]string](t, resp)
	assert.NotEmpty(t, body["errors"])
}

func TestSaveUnknownCategory(t *testing.T) {
	e := newEnv(t)
	token := e.token(t)

	receipt := domain.Receipt{
		ImageURL:     "20260830/receipt_abc.jpg",
		Total:        5,
		PurchaseDate: time.Now().UTC().Add(-time.Hour),
		CategoryID:   999,
	}

	resp := e.postJSON(t, token, "/api/receipt/create", receipt)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetReceiptNotFound(t *testing.T) {
	e := newEnv(t)

	resp, err := e.client.Get(e.server.URL + "/api/receipt/12345")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetImageNotFound(t *testing.T) {
	e := newEnv(t)

	resp, err := e.client.Get(e.server.URL + "/api/receipt/image/20260830/missing.jpg")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOllamaHealthUnsupportedBackend(t *testing.T) {
	e := newEnv(t)

	resp, err := e.client.Get(e.server.URL + "/health/ollama")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

package web

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/chrishenyard/ai-receipts/internal/filestore"
	"github.com/chrishenyard/ai-receipts/internal/service"
)

//go:embed static
var staticFS embed.FS

// ModelLister reports the models available on the inference endpoint. Only
// the Ollama backend supports it.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

type Server struct {
	service       *service.ReceiptService
	files         filestore.FileStore
	models        ModelLister
	allowedOrigin string
	mux           *http.ServeMux
	logger        *slog.Logger
}

func NewServer(svc *service.ReceiptService, files filestore.FileStore, models ModelLister, allowedOrigin string, logger *slog.Logger) *Server {
	s := &Server{
		service:       svc,
		files:         files,
		models:        models,
		allowedOrigin: allowedOrigin,
		mux:           http.NewServeMux(),
		logger:        logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("AI Receipts is running..."))
	})

	s.mux.HandleFunc("GET /api/antiforgery/token", s.handleAntiforgeryToken)
	s.mux.HandleFunc("GET /api/Categories", s.handleListCategories)
	s.mux.HandleFunc("POST /api/receipt", s.handleScanReceipt)
	s.mux.HandleFunc("POST /api/receipt/create", s.handleSaveReceipt)
	s.mux.HandleFunc("GET /api/receipt/{id}", s.handleGetReceipt)
	s.mux.HandleFunc("GET /api/receipts", s.handleListReceipts)
	s.mux.HandleFunc("GET /api/receipt/image/{path...}", s.handleGetImage)
	s.mux.HandleFunc("GET /health/ollama", s.handleOllamaHealth)

	app, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	s.mux.Handle("GET /app/", http.StripPrefix("/app/", http.FileServerFS(app)))
}

// securityHeaders adds HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// cors allows the configured frontend origin, with credentials so the
// antiforgery cookie travels on cross-origin requests.
func cors(allowedOrigin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && origin == allowedOrigin {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
			if r.Method == http.MethodOptions {
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, X-XSRF-TOKEN")
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handler := requestLogger(s.logger,
		cors(s.allowedOrigin,
			securityHeaders(
				antiforgery(s.mux))))
	handler.ServeHTTP(w, r)
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:    addr,
		Handler: s,
		// Scans hold the connection while the model streams; the write
		// timeout must cover the full model budget.
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}
	return srv.ListenAndServe()
}

package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"chantierpro/internal/services"
)

type Server struct {
	http.Server
	documents   *services.DocumentService
	ledger      *services.LedgerService
	analytics   *services.AnalyticsService
	rateLimiter *rateLimiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, docs *services.DocumentService, ledger *services.LedgerService, analytics *services.AnalyticsService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		documents:   docs,
		ledger:      ledger,
		analytics:   analytics,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("GET /api/documents", s.withSecurityHeaders(s.handleListDocuments))
	mux.HandleFunc("POST /api/documents", s.withSecurityHeaders(s.handleCreateDocument))
	mux.HandleFunc("GET /api/documents/{id}", s.withSecurityHeaders(s.handleGetDocument))
	mux.HandleFunc("PUT /api/documents/{id}", s.withSecurityHeaders(s.handleUpdateDocument))
	mux.HandleFunc("DELETE /api/documents/{id}", s.withSecurityHeaders(s.handleDeleteDocument))
	mux.HandleFunc("POST /api/documents/{id}/status", s.withSecurityHeaders(s.handleChangeStatus))

	mux.HandleFunc("GET /api/expenses", s.withSecurityHeaders(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.withSecurityHeaders(s.handleCreateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.withSecurityHeaders(s.handleDeleteExpense))

	mux.HandleFunc("GET /api/payments", s.withSecurityHeaders(s.handleListPayments))
	mux.HandleFunc("POST /api/payments", s.withSecurityHeaders(s.handleCreatePayment))
	mux.HandleFunc("DELETE /api/payments/{id}", s.withSecurityHeaders(s.handleDeletePayment))

	mux.HandleFunc("GET /api/projects", s.withSecurityHeaders(s.handleListProjects))
	mux.HandleFunc("POST /api/projects", s.withSecurityHeaders(s.handleCreateProject))
	mux.HandleFunc("PUT /api/projects/{id}", s.withSecurityHeaders(s.handleUpdateProject))

	mux.HandleFunc("GET /api/clients", s.withSecurityHeaders(s.handleListClients))
	mux.HandleFunc("POST /api/clients", s.withSecurityHeaders(s.handleCreateClient))

	mux.HandleFunc("GET /api/analytics", s.withSecurityHeaders(s.handleAnalytics))

	return s
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Rate limit writes only; dashboard polling stays cheap.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

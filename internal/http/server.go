package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yerko-henz/receipts-registry-sub000/internal/auth"
	"github.com/yerko-henz/receipts-registry-sub000/internal/core"
	"github.com/yerko-henz/receipts-registry-sub000/internal/services"
	"github.com/yerko-henz/receipts-registry-sub000/internal/sheets"
)

const defaultUserID = "default"

type Server struct {
	http.Server
	receipts    *services.ReceiptService
	rateLimiter *rateLimiter
}

func NewServer(addr string, receipts *services.ReceiptService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		receipts:    receipts,
		rateLimiter: newRateLimiter(20, time.Minute),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)
	mux.HandleFunc("/receipts", s.withRequestLog(s.handleReceipts))
	mux.HandleFunc("/sync", s.withRequestLog(s.handleSync))

	return s
}

// withRequestLog tags each request with an id and logs start and completion.
// POST requests are rate limited per client IP.
func (s *Server) withRequestLog(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
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
			"client_ip", clientIP)

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func userID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-User-ID")); id != "" {
		return id
	}
	return defaultUserID
}

type createReceiptRequest struct {
	TransactionDate string `json:"transactionDate"`
	MerchantName    string `json:"merchantName"`
	Total           string `json:"total"`
	ImageURL        string `json:"imageUrl,omitempty"`
}

type receiptResponse struct {
	ID              string `json:"id"`
	TransactionDate string `json:"transactionDate"`
	MerchantName    string `json:"merchantName"`
	Total           string `json:"total"`
	ImageURL        string `json:"imageUrl,omitempty"`
	CreatedAt       string `json:"createdAt"`
}

type syncResponse struct {
	URL           string `json:"url"`
	SpreadsheetID string `json:"spreadsheetId"`
	Timestamp     string `json:"timestamp"`
	SyncedCount   int    `json:"syncedCount"`
	Message       string `json:"message,omitempty"`
}

func (s *Server) handleReceipts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateReceipt(w, r)
	case http.MethodGet:
		s.handleListReceipts(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCreateReceipt(w http.ResponseWriter, r *http.Request) {
	var req createReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cents, err := core.ParseDecimalToCents(strings.TrimSpace(req.Total))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid total amount")
		return
	}

	rec := core.ReceiptRecord{
		TransactionDate: strings.TrimSpace(req.TransactionDate),
		MerchantName:    strings.TrimSpace(req.MerchantName),
		Total:           core.Money{Cents: cents},
		ImageURL:        strings.TrimSpace(req.ImageURL),
	}

	saved, err := s.receipts.CreateReceipt(r.Context(), userID(r), rec)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		} else {
			slog.ErrorContext(r.Context(), "Receipt create error", "error", err)
			writeError(w, http.StatusInternalServerError, "could not save receipt")
		}
		return
	}

	writeJSON(w, http.StatusCreated, toReceiptResponse(saved))
}

func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	records, err := s.receipts.ListReceipts(r.Context(), userID(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "Receipt list error", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list receipts")
		return
	}

	out := make([]receiptResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toReceiptResponse(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	result, err := s.receipts.Sync(r.Context(), userID(r))
	if err != nil {
		switch {
		case auth.IsAuthenticationError(err):
			writeError(w, http.StatusUnauthorized, "sign-in required")
		case sheets.IsAppendError(err):
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			slog.ErrorContext(r.Context(), "Sync error", "error", err)
			writeError(w, http.StatusInternalServerError, "sync failed")
		}
		return
	}

	resp := syncResponse{
		URL:           result.URL,
		SpreadsheetID: result.SpreadsheetID,
		Timestamp:     result.Timestamp,
		SyncedCount:   result.SyncedCount,
	}
	if result.SyncedCount == 0 {
		resp.Message = "already up to date"
	}
	writeJSON(w, http.StatusOK, resp)
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrEmptyID, core.ErrInvalidDate, core.ErrEmptyMerchant,
		core.ErrMerchantTooLong, core.ErrInvalidAmount,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func toReceiptResponse(rec core.ReceiptRecord) receiptResponse {
	return receiptResponse{
		ID:              rec.ID,
		TransactionDate: rec.TransactionDate,
		MerchantName:    rec.MerchantName,
		Total:           rec.Total.Decimal(),
		ImageURL:        rec.ImageURL,
		CreatedAt:       rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Simple in-memory rate limiter keyed by client IP
type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	clients map[string]*clientWindow
}

type clientWindow struct {
	count   int
	resetAt time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		window:  window,
		clients: make(map[string]*clientWindow),
	}
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cw, ok := rl.clients[clientIP]
	if !ok || now.After(cw.resetAt) {
		rl.clients[clientIP] = &clientWindow{count: 1, resetAt: now.Add(rl.window)}
		return true
	}
	if cw.count >= rl.limit {
		return false
	}
	cw.count++
	return true
}

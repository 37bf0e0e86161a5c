// Package http exposes the JSON API: accounts and sessions, transaction
// CRUD, dashboard aggregates, and CSV export.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"expenseio/internal/auth"
	"expenseio/internal/backend"
	"expenseio/internal/cache"
	"expenseio/internal/services"
)

const sessionCookieName = "expenseio_session"

type ctxKey string

const requestIDKey ctxKey = "request_id"

// appMetrics tracks application-level counters exposed on /metrics.
type appMetrics struct {
	totalRequests     int64
	transactionsSaved int64
	cacheHits         int64
	cacheMisses       int64
	startedAt         time.Time
}

type Server struct {
	http.Server

	auth  *auth.Service
	txs   *services.TransactionService
	store backend.Store

	rateLimiter *rateLimiter
	secMetrics  securityMetrics
	appMetrics  appMetrics

	// Dashboard responses are cached per owner and month. Mutations bump
	// the owner's generation instead of chasing individual keys, since an
	// edit can move a record between months.
	dashboardCache *cache.LRUCache[dashboardResponse]
	cacheManager   *cache.Manager
	genMu          sync.Mutex
	generations    map[string]uint64

	cancelSessionSub func()
	shutdownOnce     sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(addr string, authSvc *auth.Service, txs *services.TransactionService, store backend.Store) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		auth:           authSvc,
		txs:            txs,
		store:          store,
		rateLimiter:    newRateLimiter(),
		appMetrics:     appMetrics{startedAt: time.Now()},
		dashboardCache: cache.NewLRU[dashboardResponse](200, 5*time.Minute),
		cacheManager:   cache.NewManager(),
		generations:    make(map[string]uint64),
	}

	s.cacheManager.Register(s.dashboardCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	// Audit log for session changes; the channel closes on shutdown.
	sessCh, cancelSub := authSvc.Sessions().Subscribe()
	s.cancelSessionSub = cancelSub
	go func() {
		for sess := range sessCh {
			if sess != nil {
				slog.Info("Session opened", "user_id", sess.UserID)
			} else {
				slog.Info("Session closed")
			}
		}
	}()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /api/signup", s.with(s.handleSignUp))
	mux.HandleFunc("POST /api/login", s.with(s.handleLogin))
	mux.HandleFunc("POST /api/logout", s.with(s.handleLogout))
	mux.HandleFunc("GET /api/session", s.with(s.handleSession))

	mux.HandleFunc("GET /api/transactions", s.with(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.with(s.handleCreateTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.with(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.with(s.handleDeleteTransaction))
	mux.HandleFunc("GET /api/transactions/months", s.with(s.handleMonths))
	mux.HandleFunc("GET /api/transactions/export", s.with(s.handleExport))

	mux.HandleFunc("GET /api/dashboard", s.with(s.handleDashboard))

	return s
}

// with adds request tracing, logging, rate limiting, and security
// headers to a handler.
func (s *Server) with(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		atomic.AddInt64(&s.appMetrics.totalRequests, 1)

		clientIP := extractClientIP(r)
		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		// Mutating requests share one per-IP budget.
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
			if !s.rateLimiter.allow(clientIP, &s.secMetrics) {
				slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "url", r.URL.Path)
				w.Header().Set("Retry-After", "60")
				errorJSON(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
				return
			}
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

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

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// requireSession resolves the request's token to a live session. On
// failure it writes a 401 and reports false.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) (auth.Session, bool) {
	sess, err := s.auth.Session(r.Context(), bearerToken(r))
	if err != nil {
		errorJSON(w, http.StatusUnauthorized, "authentication required")
		return auth.Session{}, false
	}
	return sess, true
}

// invalidateDashboards drops all cached dashboards for one owner by
// bumping their generation.
func (s *Server) invalidateDashboards(owner string) {
	s.genMu.Lock()
	s.generations[owner]++
	s.genMu.Unlock()
}

func (s *Server) dashboardKey(owner, month string) string {
	s.genMu.Lock()
	gen := s.generations[owner]
	s.genMu.Unlock()
	return fmt.Sprintf("%s|%d|%s", owner, gen, month)
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.cancelSessionSub != nil {
			s.cancelSessionSub()
		}
		s.rateLimiter.stop()
		s.cacheManager.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleMetrics exposes counters in Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", atomic.LoadInt64(&s.appMetrics.totalRequests))

	fmt.Fprintf(w, "# HELP transactions_saved_total Total transactions created or updated\n")
	fmt.Fprintf(w, "# TYPE transactions_saved_total counter\n")
	fmt.Fprintf(w, "transactions_saved_total %d\n\n", atomic.LoadInt64(&s.appMetrics.transactionsSaved))

	fmt.Fprintf(w, "# HELP dashboard_cache_hits_total Total dashboard cache hits\n")
	fmt.Fprintf(w, "# TYPE dashboard_cache_hits_total counter\n")
	fmt.Fprintf(w, "dashboard_cache_hits_total %d\n\n", atomic.LoadInt64(&s.appMetrics.cacheHits))

	fmt.Fprintf(w, "# HELP dashboard_cache_misses_total Total dashboard cache misses\n")
	fmt.Fprintf(w, "# TYPE dashboard_cache_misses_total counter\n")
	fmt.Fprintf(w, "dashboard_cache_misses_total %d\n\n", atomic.LoadInt64(&s.appMetrics.cacheMisses))

	fmt.Fprintf(w, "# HELP dashboard_cache_entries Current dashboard cache entries\n")
	fmt.Fprintf(w, "# TYPE dashboard_cache_entries gauge\n")
	fmt.Fprintf(w, "dashboard_cache_entries %d\n\n", s.dashboardCache.Size())

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", s.secMetrics.RateLimitHits())

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", s.rateLimiter.activeClients())

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %d\n", int64(time.Since(s.appMetrics.startedAt).Seconds()))
}

package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"gibrocash/internal/gateway"
	"gibrocash/internal/log"
	"gibrocash/internal/session"
	appweb "gibrocash/web"
)

type Server struct {
	http.Server
	templates   *template.Template
	api         *gateway.Client
	sessions    *session.Store
	rateLimiter *rateLimiter
	metrics     *securityMetrics
	logger      *log.Logger
	requests    *log.StructuredLogger

	maxUploadBytes int64
	shutdownOnce   sync.Once
}

// Options carries the knobs NewServer does not default sensibly.
type Options struct {
	Logger         *log.Logger
	MaxUploadBytes int64
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, api *gateway.Client, sessions *session.Store, opts Options) *Server {
	mux := http.NewServeMux()

	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		api:            api,
		sessions:       sessions,
		rateLimiter:    newRateLimiter(),
		metrics:        &securityMetrics{},
		logger:         logger.WithComponent(log.ComponentHTTP),
		requests:       log.NewStructuredLogger(logger),
		maxUploadBytes: maxUpload,
	}

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err.Error())
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Tiny cache for static assets
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err.Error())
	}

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("GET /login", s.withSecurityHeaders(s.handleLoginPage))
	mux.HandleFunc("POST /login", s.withSecurityHeaders(s.handleLogin))
	mux.HandleFunc("POST /logout", s.withSecurityHeaders(s.requireSession(s.handleLogout)))

	mux.HandleFunc("GET /{$}", s.withSecurityHeaders(s.requireSession(s.handleDashboard)))

	mux.HandleFunc("GET /imprests", s.withSecurityHeaders(s.requireSession(s.handleImprestList)))
	mux.HandleFunc("POST /imprests", s.withSecurityHeaders(s.requireAdmin(s.handleImprestCreate)))

	mux.HandleFunc("GET /transactions", s.withSecurityHeaders(s.requireSession(s.handleTransactionList)))
	mux.HandleFunc("POST /transactions", s.withSecurityHeaders(s.requireSession(s.handleTransactionCreate)))
	mux.HandleFunc("POST /transactions/{id}/delete", s.withSecurityHeaders(s.requireSession(s.handleTransactionDelete)))

	mux.HandleFunc("GET /proposals", s.withSecurityHeaders(s.requireSession(s.handleProposalList)))
	mux.HandleFunc("POST /proposals", s.withSecurityHeaders(s.requireSession(s.handleProposalCreate)))
	mux.HandleFunc("GET /proposals/{id}", s.withSecurityHeaders(s.requireSession(s.handleProposalDetail)))
	mux.HandleFunc("POST /proposals/{id}/status", s.withSecurityHeaders(s.requireAdmin(s.handleProposalStatus)))

	mux.HandleFunc("GET /users", s.withSecurityHeaders(s.requireAdmin(s.handleUserList)))
	mux.HandleFunc("POST /users", s.withSecurityHeaders(s.requireAdmin(s.handleUserCreate)))

	mux.HandleFunc("GET /receipts/{imageID}", s.withSecurityHeaders(s.requireSession(s.handleReceipt)))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	// Ensure shutdown logic runs only once
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request logging to responses
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		s.requests.LogHTTPStart(ctx, r, requestID, clientIP)

		if detectSuspiciousRequest(r, s.metrics) {
			s.logger.WarnContext(ctx, "Suspicious request",
				log.FieldRequestID, requestID,
				log.FieldClientIP, clientIP,
				log.FieldPath, r.URL.Path)
		}

		// Rate limit mutations only; page loads stay cheap.
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, s.metrics) {
			s.logger.WarnContext(ctx, "Rate limit exceeded", log.FieldClientIP, clientIP, log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.requests.LogHTTPEnd(ctx, r, requestID, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

// requireSession redirects unauthenticated requests to the login page.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.sessions.Authenticated() {
			redirectToLogin(w, r)
			return
		}
		next(w, r)
	}
}

// requireAdmin additionally rejects non-admin sessions. The remote API
// enforces the same rule; this only keeps the UI honest.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.sessions.Authenticated() {
			redirectToLogin(w, r)
			return
		}
		if !s.sessions.IsAdmin() {
			s.logger.WarnContext(r.Context(), "Admin route denied",
				log.FieldPath, r.URL.Path,
				log.FieldUserID, s.sessions.Current().UserID)
			ErrorResponse(http.StatusForbidden, "You do not have permission to do that").Write(w)
			return
		}
		next(w, r)
	}
}

// redirectToLogin sends the browser to /login, using HX-Redirect for
// requests issued from page fragments.
func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// render executes a page template, logging and degrading on failure.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed", log.FieldError, err.Error(), "template", name)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

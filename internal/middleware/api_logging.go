package middleware

import (
	"log"
	"net/http"
	"strings"
	"time"

	"rentledger-backend/internal/timeutil"
)

// APILoggingMiddleware writes one access-log line per request through a
// buffered channel so slow log sinks never block request handling
type APILoggingMiddleware struct {
	logChan chan accessLogEntry
}

type accessLogEntry struct {
	time       time.Time
	method     string
	path       string
	statusCode int
	durationMs float64
	size       int
	userEmail  string
	clientIP   string
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

func NewAPILoggingMiddleware() *APILoggingMiddleware {
	m := &APILoggingMiddleware{
		logChan: make(chan accessLogEntry, 1000),
	}
	go m.asyncLogWriter()
	return m
}

func (m *APILoggingMiddleware) asyncLogWriter() {
	for entry := range m.logChan {
		user := entry.userEmail
		if user == "" {
			user = "-"
		}
		log.Printf("[API] %s %s %d %.1fms %dB user=%s ip=%s",
			entry.method, entry.path, entry.statusCode,
			entry.durationMs, entry.size, user, entry.clientIP)
	}
}

// Handler returns the middleware handler
func (m *APILoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shouldSkipLogging(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := timeutil.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start)

		email, _ := GetEmailFromContext(r.Context())

		entry := accessLogEntry{
			time:       start,
			method:     r.Method,
			path:       sanitizePath(r.URL.Path),
			statusCode: wrapped.statusCode,
			durationMs: float64(duration.Microseconds()) / 1000.0,
			size:       wrapped.bytesWritten,
			userEmail:  email,
			clientIP:   getClientIP(r),
		}

		select {
		case m.logChan <- entry:
		default:
			log.Printf("[API] Log buffer full, dropping entry for %s", r.URL.Path)
		}
	})
}

// shouldSkipLogging returns true for paths that shouldn't be logged
func shouldSkipLogging(path string) bool {
	skipPaths := []string{
		"/health",
		"/metrics",
		"/favicon.ico",
		"/robots.txt",
		"/api/monitoring/", // avoid recursion from the dashboard's own polling
	}

	for _, skip := range skipPaths {
		if strings.HasPrefix(path, skip) {
			return true
		}
	}
	return false
}

// sanitizePath removes query parameters and truncates very long paths
func sanitizePath(path string) string {
	if idx := strings.Index(path, "?"); idx != -1 {
		path = path[:idx]
	}
	if len(path) > 500 {
		path = path[:500]
	}
	return path
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return strings.TrimSpace(xri)
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// Close stops the async writer
func (m *APILoggingMiddleware) Close() {
	close(m.logChan)
}

// Package middleware holds the feed server's HTTP middleware.
//
// Every middleware here has the same shape: it takes the next handler and
// returns a handler that does some work around it.
//
//	func Example(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        // before the procedure runs
//	        next.ServeHTTP(w, r)
//	        // after the procedure has written its response
//	    })
//	}
//
// CHAIN ORDER:
// The router installs RequestID, RealIP, Logger, then Recoverer. Logger reads
// the request id RequestID stored in the context, and it sees the 500 that
// Recoverer writes for a panicking procedure.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/brewlog/internal/metrics"
)

// responseWriter captures the status code and byte count, which
// http.ResponseWriter does not expose after the fact.
//
// A handler that never calls WriteHeader gets an implicit 200 on its first
// Write; wroteHeader records that so a late WriteHeader call cannot
// overwrite the status that was actually sent.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	written     int64
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Logger logs each completed request and records its duration under the
// matched chi route pattern. It must run after chi's RequestID middleware.
//
// LOG LEVELS:
// Requests answered with a 5xx are logged at Error, everything else at
// Info. A 4xx is the client's mistake and its body already tells the
// client why.
//
// Each line carries request_id, method, path, route, status, duration and
// bytes. route is the chi pattern ("/api/functions/getDiscoverList"), the same label
// the request histogram uses.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			route := routePattern(r)
			metrics.ObserveHTTPRequest(r.Method, route, wrapped.statusCode, start)

			level := slog.LevelInfo
			if wrapped.statusCode >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "request completed",
				slog.String("request_id", chimiddleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("route", route),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.Int64("bytes", wrapped.written),
			)
		})
	}
}

// routePattern keeps metric cardinality bounded: unmatched paths collapse
// into one label.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

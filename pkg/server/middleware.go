package server

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jsexpertdev/ostad-ai-agent/internal/tracing"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// Middleware wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so the first one is outermost
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// Recovery turns a handler panic into a 500
func Recovery(logger zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					reqLog := tracing.LoggerFromContext(r.Context(), logger)
					reqLog.Error().
						Interface("panic", rec).
						Str("path", r.URL.Path).
						Msg("Panic recovered")
					writeJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: fmt.Sprintf("Error: %v", rec)})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID starts a request context with fresh trace and request ids. A
// request id sent by the client is kept.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := tracing.NewRequestContext(r.Context())
			if id := r.Header.Get(RequestIDHeader); id != "" {
				ctx = tracing.WithRequestID(ctx, id)
			}
			w.Header().Set(RequestIDHeader, tracing.GetRequestID(ctx))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Tracing records a server span per request
func Tracing() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.StartSpan(r.Context(), r.Method+" "+r.URL.Path,
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.URLPath(r.URL.Path),
				attribute.String("request_id", tracing.GetRequestID(r.Context())),
			)
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r.WithContext(ctx))

			span.SetAttributes(semconv.HTTPResponseStatusCode(rec.status))
			var err error
			if rec.status >= http.StatusInternalServerError {
				err = fmt.Errorf("status %d", rec.status)
			}
			tracing.EndSpan(span, err)
		})
	}
}

// AccessLog logs one line per request
func AccessLog(logger zerolog.Logger, trustProxy bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			reqLog := tracing.LoggerFromContext(r.Context(), logger)
			reqLog.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("ip", clientIP(r, trustProxy)).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Msg("Request completed")
		})
	}
}

// statusRecorder captures the response status. It forwards Hijack so
// websocket upgrades pass through.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	r.wroteHeader = true
	return hj.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jonwraymond/entityindex/engine"
	"github.com/jonwraymond/entityindex/index"
	logpkg "github.com/jonwraymond/entityindex/internal/logger"
	"github.com/jonwraymond/entityindex/metrics"
	"github.com/jonwraymond/entityindex/registry"
	"github.com/jonwraymond/entityindex/search"
)

type handler struct {
	eng    *engine.Engine
	logger *zap.Logger
}

// NewHTTPHandler returns the HTTP API for eng. If mcpServer is nil the
// /mcp endpoint is not mounted.
func NewHTTPHandler(eng *engine.Engine, mcpServer *mcp.Server, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{eng: eng, logger: logger}

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())

	r.Get("/healthz", h.health)
	r.Get("/search", h.search)
	r.Get("/count", h.count)
	r.Post("/rebuild", h.rebuild)
	r.Delete("/index", h.clear)
	r.Handle("/metrics", promhttp.Handler())

	if mcpServer != nil {
		r.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
			return mcpServer
		}, nil))
	}
	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	docs, err := h.eng.Index().Count()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
		return
	}
	stale, err := h.eng.Stale()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"documents": docs,
		"stale":     stale,
	})
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	req, err := parseSearchRequest(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	results, total, err := h.eng.SearchPage(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSearchResponse(results, total))
}

func (h *handler) count(w http.ResponseWriter, r *http.Request) {
	req, err := parseSearchRequest(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	n, err := h.eng.Count(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"count": n})
}

func (h *handler) rebuild(w http.ResponseWriter, r *http.Request) {
	stats, err := h.eng.Rebuild(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRebuildResponse(stats))
}

func (h *handler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.eng.Clear(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logpkg.FromContext(r.Context()).Error("request_failed", zap.Error(err))
	}
	writeError(w, status, code, err.Error())
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, search.ErrInvalidRequest), errors.Is(err, registry.ErrUnknownEntity):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, engine.ErrNotLoadable):
		return http.StatusUnprocessableEntity, "not_supported"
	case errors.Is(err, index.ErrClosed), errors.Is(err, index.ErrLocked):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// parseSearchRequest reads a search request from query parameters.
func parseSearchRequest(q url.Values) (search.Request, error) {
	req := search.Request{
		Query:  q.Get("q"),
		Fields: splitList(q["field"]),
		Types:  splitList(q["type"]),
	}
	for _, w := range q["where"] {
		field, value, ok := strings.Cut(w, ":")
		if !ok || field == "" {
			return req, fmt.Errorf("where %q: want field:value", w)
		}
		req.Where = append(req.Where, search.Filter{Field: field, Value: value})
	}

	var err error
	if req.Limit, err = intParam(q, "limit"); err != nil {
		return req, err
	}
	if req.Offset, err = intParam(q, "offset"); err != nil {
		return req, err
	}
	if req.Fuzziness, err = intParam(q, "fuzzy"); err != nil {
		return req, err
	}
	if req.Phrase, err = boolParam(q, "phrase"); err != nil {
		return req, err
	}
	if req.Highlight, err = boolParam(q, "highlight"); err != nil {
		return req, err
	}
	return req, nil
}

// splitList accepts both repeated parameters and comma separated values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func intParam(q url.Values, name string) (int, error) {
	s := q.Get(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s: want a non-negative integer, got %q", name, s)
	}
	return n, nil
}

func boolParam(q url.Values, name string) (bool, error) {
	s := q.Get(name)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%s: want a boolean, got %q", name, s)
	}
	return b, nil
}

// writeJSON encodes v before writing the status, so an unencodable value
// becomes a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		body, _ = json.Marshal(map[string]string{
			"code":    "internal_error",
			"message": "encode response: " + err.Error(),
		})
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}

func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits one log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.WithContext(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}

package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atvirokodosprendimai/mongoschema/internal/core/domain"
	"github.com/atvirokodosprendimai/mongoschema/internal/core/usecase"
)

const maxJSONBodySize = 1 << 20

type Handler struct {
	schema  usecase.SchemaOperator
	audit   *usecase.AuditService
	auth    *usecase.AuthService
	metrics http.Handler
	log     *zap.SugaredLogger
}

type Option func(*Handler)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// WithMetrics mounts a Prometheus handler at /metrics.
func WithMetrics(metrics http.Handler) Option {
	return func(h *Handler) {
		h.metrics = metrics
	}
}

// NewHandler builds the HTTP API. auth may be nil, in which case every route
// is open.
func NewHandler(schema usecase.SchemaOperator, audit *usecase.AuditService, auth *usecase.AuthService, opts ...Option) *Handler {
	h := &Handler{schema: schema, audit: audit, auth: auth, log: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(h.requestLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.healthz)
	r.Get("/openapi.json", h.openapi)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Group(func(pr chi.Router) {
		pr.Use(h.requireAPIKey)
		pr.Get("/v1/collections", h.listCollections)
		pr.Put("/v1/collections/{collection}/validator", h.ensureCollection)
		pr.Patch("/v1/collections/{collection}/validator", h.updateValidator)
		pr.Get("/v1/schema-changes", h.listSchemaChanges)
	})

	return r
}

type outcomeResponse struct {
	Collection string `json:"collection"`
	Outcome    string `json:"outcome"`
}

type updateValidatorRequest struct {
	Validator       domain.Value `json:"validator"`
	ValidationLevel string       `json:"validation_level"`
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) openapi(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, openapiSpec())
}

func (h *Handler) listCollections(w http.ResponseWriter, r *http.Request) {
	names, err := h.schema.Collections(r.Context())
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"collections": names})
}

// ensureCollection takes the validator document as the whole body.
func (h *Handler) ensureCollection(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	validator, err := domain.ParseJSON(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	out, err := h.schema.EnsureCollection(r.Context(), collection, validator)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}

	status := http.StatusOK
	if out.Kind == domain.OutcomeCreated {
		status = http.StatusCreated
	}
	writeJSON(w, status, toOutcomeResponse(out))
}

func (h *Handler) updateValidator(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)

	var req updateValidatorRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := ensureEOF(decoder); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	out, err := h.schema.UpdateValidator(r.Context(), collection, req.Validator, domain.ValidationLevel(req.ValidationLevel))
	if err != nil {
		h.handleDomainError(w, err)
		return
	}

	status := http.StatusOK
	if out.Kind == domain.OutcomeNotFound {
		status = http.StatusNotFound
	}
	writeJSON(w, status, toOutcomeResponse(out))
}

func (h *Handler) listSchemaChanges(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	var after int64
	if raw := r.URL.Query().Get("after"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "after must be integer")
			return
		}
		after = parsed
	}

	changes, err := h.audit.List(r.Context(), domain.SchemaChangeFilter{
		Collection: r.URL.Query().Get("collection"),
		AfterID:    after,
		Limit:      limit,
	})
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	if changes == nil {
		changes = []domain.SchemaChange{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": changes})
}

func (h *Handler) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.auth == nil {
			next.ServeHTTP(w, r)
			return
		}
		enabled, err := h.auth.Enabled(r.Context())
		if err != nil {
			h.log.Errorw("check api keys", "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if !enabled {
			next.ServeHTTP(w, r)
			return
		}

		token := strings.TrimSpace(r.Header.Get("X-API-Key"))
		if token == "" {
			auth := strings.TrimSpace(r.Header.Get("Authorization"))
			if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
				token = strings.TrimSpace(auth[7:])
			}
		}

		if _, err := h.auth.Authenticate(r.Context(), token); err != nil {
			if errors.Is(err, usecase.ErrUnauthorized) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			h.log.Errorw("authenticate", "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Debugw("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func toOutcomeResponse(out domain.Outcome) outcomeResponse {
	return outcomeResponse{Collection: out.Collection, Outcome: out.Kind.String()}
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be integer")
			return 0, false
		}
		limit = parsed
	}
	return limit, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

func (h *Handler) handleDomainError(w http.ResponseWriter, err error) {
	var se *domain.SchemaError
	switch {
	case errors.As(err, &se):
		body := map[string]any{
			"error":      se.Error(),
			"kind":       se.Kind.String(),
			"collection": se.Collection,
		}
		status := schemaErrorStatus(se)
		if status >= http.StatusInternalServerError {
			h.log.Warnw("schema operation failed", "operation", se.Op, "collection", se.Collection, "error", err)
		}
		writeJSON(w, status, body)
	case errors.Is(err, domain.ErrEmptyCollectionName),
		errors.Is(err, domain.ErrInvalidCollectionName),
		errors.Is(err, domain.ErrInvalidFilter):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.log.Errorw("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func schemaErrorStatus(se *domain.SchemaError) int {
	switch se.Kind {
	case domain.KindInvalidSpec:
		return http.StatusBadRequest
	case domain.KindEngineUnavailable:
		return http.StatusServiceUnavailable
	case domain.KindEngineRejected:
		if se.AlreadyExists {
			return http.StatusConflict
		}
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func ensureEOF(decoder *json.Decoder) error {
	var extra json.RawMessage
	if err := decoder.Decode(&extra); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	return errors.New("extra json tokens")
}

func openapiSpec() map[string]any {
	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "mongoschema",
			"version": "1.0.0",
		},
		"paths": map[string]any{
			"/v1/collections": map[string]any{
				"get": map[string]any{"summary": "List collections"},
			},
			"/v1/collections/{collection}/validator": map[string]any{
				"put":   map[string]any{"summary": "Create collection with validator if missing"},
				"patch": map[string]any{"summary": "Replace validator of an existing collection"},
			},
			"/v1/schema-changes": map[string]any{
				"get": map[string]any{"summary": "List recorded schema changes"},
			},
		},
	}
}

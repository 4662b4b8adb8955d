// Package chi is the HTTP API surface: thin request/response marshaling over
// the search, product, and health services.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/emporia-search/emporia/internal/domain"
	logpkg "github.com/emporia-search/emporia/internal/logger"
	healthuc "github.com/emporia-search/emporia/internal/usecase/health"
	productuc "github.com/emporia-search/emporia/internal/usecase/product"
	searchuc "github.com/emporia-search/emporia/internal/usecase/search"
)

// serviceName is reported by the health endpoint.
const serviceName = "emporia-discovery-api"

// SearchService runs search and similarity queries.
type SearchService interface {
	Search(ctx context.Context, query string, k int, filters domain.SearchFilters) (searchuc.Output, error)
	Similar(ctx context.Context, id string, k int) ([]domain.EnrichedResult, error)
}

// ProductService answers catalog queries.
type ProductService interface {
	Get(id string) (productuc.Detail, error)
	Categories() []string
	Stats() productuc.Stats
}

// HealthService aggregates component health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the discovery API over chi.
type Server struct {
	search        SearchService
	products      ProductService
	health        HealthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search SearchService, products ProductService, health HealthService, logger *zap.Logger) *Server {
	s := &Server{
		search:   search,
		products: products,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeVectorDimMismatch),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, codeIndexUnavailable),
		sentinelHandler(domain.ErrIndexDecode, http.StatusBadGateway, codeIndexDecodeFailed),
		sentinelHandler(domain.ErrIndexService, http.StatusBadGateway, codeIndexError),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProviderError),
	}
	return s
}

// Register mounts all API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Get("/api/health", s.handleHealth)
	r.Post("/api/search", s.handleSearch)
	r.Get("/api/similar/{id}", s.handleSimilar)
	r.Get("/api/categories", s.handleCategories)
	r.Get("/api/product/{id}", s.handleProduct)
	r.Get("/api/stats", s.handleStats)
	r.Get("/metrics", s.handleMetrics)
}

type searchRequest struct {
	Query   string             `json:"query"`
	K       int                `json:"k"`
	Filters *searchFiltersBody `json:"filters"`
}

type searchFiltersBody struct {
	MinPrice  *float64 `json:"min_price"`
	MaxPrice  *float64 `json:"max_price"`
	Category  string   `json:"category"`
	MinRating *float64 `json:"min_rating"`
}

type searchResponse struct {
	Query   string                  `json:"query"`
	Results []domain.EnrichedResult `json:"results"`
	Count   int                     `json:"count"`
	Warning string                  `json:"warning,omitempty"`
}

// handleSearch handles POST /api/search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	out, err := s.search.Search(r.Context(), req.Query, req.K, filtersFromBody(req.Filters))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Query:   req.Query,
		Results: out.Results,
		Count:   len(out.Results),
		Warning: out.Warning,
	})
}

type similarResponse struct {
	ProductID       string                  `json:"product_id"`
	SimilarProducts []domain.EnrichedResult `json:"similar_products"`
	Count           int                     `json:"count"`
}

// handleSimilar handles GET /api/similar/{id}?k=.
func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	k := 0
	if raw := r.URL.Query().Get("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "k must be an integer")
			return
		}
		k = parsed
	}

	results, err := s.search.Similar(r.Context(), id, k)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, similarResponse{
		ProductID:       id,
		SimilarProducts: results,
		Count:           len(results),
	})
}

// handleCategories handles GET /api/categories.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"categories": s.products.Categories(),
	})
}

type productResponse struct {
	ID     string               `json:"id"`
	Meta   domain.ProductMeta   `json:"meta"`
	Filter domain.ProductFilter `json:"filter"`
}

// handleProduct handles GET /api/product/{id}.
func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	detail, err := s.products.Get(id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, productResponse{
		ID:     detail.ID,
		Meta:   detail.Meta,
		Filter: detail.Filter,
	})
}

type statsResponse struct {
	VectorCount   int    `json:"vector_count"`
	TotalElements int    `json:"total_elements"`
	Dim           int    `json:"dim"`
	SpaceType     string `json:"space_type"`
}

// handleStats handles GET /api/stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.products.Stats()
	writeJSON(w, http.StatusOK, statsResponse{
		VectorCount:   stats.VectorCount,
		TotalElements: stats.TotalElements,
		Dim:           stats.Dim,
		SpaceType:     stats.SpaceType,
	})
}

type healthResponse struct {
	Status  healthuc.Status                 `json:"status"`
	Service string                          `json:"service"`
	Checks  map[string]healthuc.CheckResult `json:"checks,omitempty"`
}

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  report.Status,
		Service: serviceName,
		Checks:  report.Checks,
	})
}

// handleMetrics handles GET /metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func filtersFromBody(body *searchFiltersBody) domain.SearchFilters {
	if body == nil {
		return domain.SearchFilters{}.Normalized()
	}
	f := domain.SearchFilters{Category: body.Category}
	if body.MinPrice != nil {
		f.MinPrice = *body.MinPrice
	}
	if body.MaxPrice != nil {
		f.MaxPrice = *body.MaxPrice
	}
	if body.MinRating != nil {
		f.MinRating = *body.MinRating
	}
	return f.Normalized()
}

type errorCode string

const (
	codeBadRequest             errorCode = "bad_request"
	codeValidationFailed       errorCode = "validation_failed"
	codeNotFound               errorCode = "not_found"
	codeVectorDimMismatch      errorCode = "vector_dim_mismatch"
	codeIndexUnavailable       errorCode = "index_unavailable"
	codeIndexError             errorCode = "index_error"
	codeIndexDecodeFailed      errorCode = "index_decode_failed"
	codeEmbeddingProviderError errorCode = "embedding_provider_error"
	codeUnauthorized           errorCode = "unauthorized"
	codeInternalError          errorCode = "internal_error"
)

// errorResponse is the structured error envelope. Err mirrors Message under
// the "error" key the browser client reads.
type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
	Err     string    `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
		Err:     message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrValidation,
		domain.ErrVectorDimMismatch,
		domain.ErrNotFound,
		domain.ErrIndexUnavailable,
		domain.ErrIndexDecode,
		domain.ErrIndexService,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

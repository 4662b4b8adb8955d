package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/emporia-search/emporia/internal/domain"
	healthuc "github.com/emporia-search/emporia/internal/usecase/health"
	productuc "github.com/emporia-search/emporia/internal/usecase/product"
	searchuc "github.com/emporia-search/emporia/internal/usecase/search"
)

type stubSearch struct {
	out        searchuc.Output
	searchErr  error
	similar    []domain.EnrichedResult
	similarErr error

	gotQuery   string
	gotK       int
	gotFilters domain.SearchFilters
	gotID      string
}

func (s *stubSearch) Search(_ context.Context, query string, k int, filters domain.SearchFilters) (searchuc.Output, error) {
	s.gotQuery = query
	s.gotK = k
	s.gotFilters = filters
	return s.out, s.searchErr
}

func (s *stubSearch) Similar(_ context.Context, id string, k int) ([]domain.EnrichedResult, error) {
	s.gotID = id
	s.gotK = k
	return s.similar, s.similarErr
}

type stubProducts struct {
	detail     productuc.Detail
	err        error
	categories []string
	stats      productuc.Stats
}

func (s *stubProducts) Get(string) (productuc.Detail, error) { return s.detail, s.err }
func (s *stubProducts) Categories() []string                 { return s.categories }
func (s *stubProducts) Stats() productuc.Stats               { return s.stats }

type stubHealth struct {
	report healthuc.Report
}

func (s *stubHealth) Check(context.Context) healthuc.Report { return s.report }

func newTestServer(search SearchService, products ProductService, health HealthService) http.Handler {
	if search == nil {
		search = &stubSearch{}
	}
	if products == nil {
		products = &stubProducts{}
	}
	if health == nil {
		health = &stubHealth{report: healthuc.Report{Status: healthuc.Healthy}}
	}
	r := chi.NewRouter()
	NewServer(search, products, health, zap.NewNop()).Register(r)
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rec.Body.String())
	}
}

func TestSearchEndpoint(t *testing.T) {
	search := &stubSearch{
		out: searchuc.Output{Results: []domain.EnrichedResult{
			{
				Score: 0.91,
				ID:    "p1",
				Meta:  domain.ProductMeta{Title: "Blue Jacket", Category: "Fashion"},
				Filter: domain.ProductFilter{
					Price: 89.99, Rating: 4.5, Category: "Fashion",
				},
			},
		}},
	}
	h := newTestServer(search, nil, nil)

	rec := doRequest(t, h, http.MethodPost, "/api/search",
		`{"query": "blue jacket", "k": 5, "filters": {"category": "Fashion", "max_price": 100}}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Query   string                  `json:"query"`
		Results []domain.EnrichedResult `json:"results"`
		Count   int                     `json:"count"`
		Warning string                  `json:"warning"`
	}
	decodeBody(t, rec, &resp)

	if resp.Query != "blue jacket" {
		t.Errorf("query = %q", resp.Query)
	}
	if resp.Count != 1 || len(resp.Results) != 1 {
		t.Fatalf("count = %d, results = %d", resp.Count, len(resp.Results))
	}
	if resp.Results[0].ID != "p1" || resp.Results[0].Score != 0.91 {
		t.Errorf("result = %+v", resp.Results[0])
	}
	if resp.Warning != "" {
		t.Errorf("warning = %q", resp.Warning)
	}

	if search.gotQuery != "blue jacket" || search.gotK != 5 {
		t.Errorf("service got query=%q k=%d", search.gotQuery, search.gotK)
	}
	if search.gotFilters.Category != "Fashion" || search.gotFilters.MaxPrice != 100 {
		t.Errorf("service got filters %+v", search.gotFilters)
	}
}

func TestSearchEndpoint_DefaultFilters(t *testing.T) {
	search := &stubSearch{}
	h := newTestServer(search, nil, nil)

	rec := doRequest(t, h, http.MethodPost, "/api/search", `{"query": "toaster"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if search.gotFilters.MaxPrice != domain.DefaultMaxPrice {
		t.Errorf("max price = %v, want default %v", search.gotFilters.MaxPrice, domain.DefaultMaxPrice)
	}
}

func TestSearchEndpoint_Warning(t *testing.T) {
	search := &stubSearch{
		out: searchuc.Output{Results: []domain.EnrichedResult{}, Warning: "index returned empty response"},
	}
	h := newTestServer(search, nil, nil)

	rec := doRequest(t, h, http.MethodPost, "/api/search", `{"query": "anything"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp map[string]any
	decodeBody(t, rec, &resp)
	if resp["warning"] == nil || resp["warning"] == "" {
		t.Error("warning missing from response")
	}
	if count, _ := resp["count"].(float64); count != 0 {
		t.Errorf("count = %v", resp["count"])
	}
}

func TestSearchEndpoint_MalformedBody(t *testing.T) {
	h := newTestServer(nil, nil, nil)

	rec := doRequest(t, h, http.MethodPost, "/api/search", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSearchEndpoint_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", domain.ErrValidation, http.StatusBadRequest, "validation_failed"},
		{"dim mismatch", domain.ErrVectorDimMismatch, http.StatusBadRequest, "vector_dim_mismatch"},
		{"index down", domain.ErrIndexUnavailable, http.StatusServiceUnavailable, "index_unavailable"},
		{"index 5xx", domain.ErrIndexService, http.StatusBadGateway, "index_error"},
		{"decode failure", domain.ErrIndexDecode, http.StatusBadGateway, "index_decode_failed"},
		{"embedding provider", domain.ErrEmbeddingProviderError, http.StatusBadGateway, "embedding_provider_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(&stubSearch{searchErr: tt.err}, nil, nil)

			rec := doRequest(t, h, http.MethodPost, "/api/search", `{"query": "q"}`)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var resp map[string]any
			decodeBody(t, rec, &resp)
			if resp["code"] != tt.wantCode {
				t.Errorf("code = %v, want %s", resp["code"], tt.wantCode)
			}
			if resp["error"] == nil || resp["error"] == "" {
				t.Error("error field missing")
			}
		})
	}
}

func TestSimilarEndpoint(t *testing.T) {
	search := &stubSearch{
		similar: []domain.EnrichedResult{
			{Score: 0.88, ID: "p2", Meta: domain.ProductMeta{Title: "Denim Jacket"}},
		},
	}
	h := newTestServer(search, nil, nil)

	rec := doRequest(t, h, http.MethodGet, "/api/similar/p1?k=3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	if search.gotID != "p1" || search.gotK != 3 {
		t.Errorf("service got id=%q k=%d", search.gotID, search.gotK)
	}

	var resp struct {
		ProductID       string                  `json:"product_id"`
		SimilarProducts []domain.EnrichedResult `json:"similar_products"`
		Count           int                     `json:"count"`
	}
	decodeBody(t, rec, &resp)
	if resp.ProductID != "p1" || resp.Count != 1 {
		t.Errorf("response = %+v", resp)
	}
}

func TestSimilarEndpoint_BadK(t *testing.T) {
	h := newTestServer(nil, nil, nil)

	rec := doRequest(t, h, http.MethodGet, "/api/similar/p1?k=lots", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSimilarEndpoint_UnknownID(t *testing.T) {
	h := newTestServer(&stubSearch{similarErr: domain.ErrNotFound}, nil, nil)

	rec := doRequest(t, h, http.MethodGet, "/api/similar/ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestProductEndpoint(t *testing.T) {
	products := &stubProducts{
		detail: productuc.Detail{
			ID:     "p1",
			Meta:   domain.ProductMeta{Title: "Blue Jacket", Category: "Fashion"},
			Filter: domain.ProductFilter{Price: 89.99, Rating: 4.5, Stock: 12, Category: "Fashion"},
		},
	}
	h := newTestServer(nil, products, nil)

	rec := doRequest(t, h, http.MethodGet, "/api/product/p1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		ID     string               `json:"id"`
		Meta   domain.ProductMeta   `json:"meta"`
		Filter domain.ProductFilter `json:"filter"`
	}
	decodeBody(t, rec, &resp)
	if resp.ID != "p1" || resp.Meta.Title != "Blue Jacket" || resp.Filter.Stock != 12 {
		t.Errorf("response = %+v", resp)
	}
}

func TestProductEndpoint_NotFound(t *testing.T) {
	h := newTestServer(nil, &stubProducts{err: domain.ErrNotFound}, nil)

	rec := doRequest(t, h, http.MethodGet, "/api/product/ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}

	var resp map[string]any
	decodeBody(t, rec, &resp)
	if resp["code"] != "not_found" {
		t.Errorf("code = %v", resp["code"])
	}
}

func TestCategoriesEndpoint(t *testing.T) {
	h := newTestServer(nil, &stubProducts{categories: []string{"All", "Fashion", "Home"}}, nil)

	rec := doRequest(t, h, http.MethodGet, "/api/categories", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp map[string][]string
	decodeBody(t, rec, &resp)
	cats := resp["categories"]
	if len(cats) != 3 || cats[0] != "All" {
		t.Errorf("categories = %v", cats)
	}
}

func TestStatsEndpoint(t *testing.T) {
	h := newTestServer(nil, &stubProducts{
		stats: productuc.Stats{VectorCount: 50, TotalElements: 50, Dim: 384, SpaceType: "cosine"},
	}, nil)

	rec := doRequest(t, h, http.MethodGet, "/api/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp map[string]any
	decodeBody(t, rec, &resp)
	if dim, _ := resp["dim"].(float64); dim != 384 {
		t.Errorf("dim = %v", resp["dim"])
	}
	if resp["space_type"] != "cosine" {
		t.Errorf("space_type = %v", resp["space_type"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestServer(nil, nil, &stubHealth{report: healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{
			"index":     healthuc.CheckError,
			"embedding": healthuc.CheckOK,
		},
	}})

	rec := doRequest(t, h, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("degraded health must still answer 200, got %d", rec.Code)
	}

	var resp struct {
		Status  string            `json:"status"`
		Service string            `json:"service"`
		Checks  map[string]string `json:"checks"`
	}
	decodeBody(t, rec, &resp)
	if resp.Status != "degraded" {
		t.Errorf("status = %q", resp.Status)
	}
	if resp.Service != "emporia-discovery-api" {
		t.Errorf("service = %q", resp.Service)
	}
	if resp.Checks["index"] != "error" {
		t.Errorf("checks = %v", resp.Checks)
	}
}

// An index outage must map to 503 on search while the rest of the API keeps
// answering from local state.
func TestIndexOutageDoesNotTakeDownTheAPI(t *testing.T) {
	search := &stubSearch{searchErr: domain.ErrIndexUnavailable}
	products := &stubProducts{categories: []string{"All"}}
	h := newTestServer(search, products, nil)

	rec := doRequest(t, h, http.MethodPost, "/api/search", `{"query": "jacket"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("search status = %d, want 503", rec.Code)
	}

	rec = doRequest(t, h, http.MethodGet, "/api/categories", "")
	if rec.Code != http.StatusOK {
		t.Errorf("categories status = %d, want 200", rec.Code)
	}

	rec = doRequest(t, h, http.MethodGet, "/api/stats", "")
	if rec.Code != http.StatusOK {
		t.Errorf("stats status = %d, want 200", rec.Code)
	}
}

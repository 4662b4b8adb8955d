// Package index is the protocol adapter for the external vector-index
// service: it encodes query payloads, issues HTTP calls, decodes the
// service's positional MessagePack responses, and classifies failures.
package index

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/emporia-search/emporia/internal/domain"
	"github.com/emporia-search/emporia/internal/metrics"
)

const (
	defaultTimeout = 10 * time.Second

	// serviceErrMaxLen bounds how much upstream error text is carried in errors.
	serviceErrMaxLen = 512

	emptyResponseWarning = "index returned empty response - index may be empty or query failed"
)

// Hit is a single decoded index search record: relevance score plus id.
// The record's metadata and filter fields are opaque to this deployment;
// the catalog store is authoritative for both.
type Hit struct {
	Score float64
	ID    string
}

// SearchResponse carries hits in service order. Warning is set only when the
// service answered 2xx with a zero-length body, which is a valid "no results"
// outcome rather than an error.
type SearchResponse struct {
	Hits    []Hit
	Warning string
}

// Info is the index statistics record (JSON, unlike the binary search surface).
type Info struct {
	VectorCount int    `json:"vector_count"`
	Dim         int    `json:"dim"`
	SpaceType   string `json:"space_type"`
}

// VectorRecord is one entry of a batch insert. Meta and Filter are
// JSON-serialized blobs the index stores opaquely.
type VectorRecord struct {
	ID     string    `json:"id"`
	Vector []float32 `json:"vector"`
	Meta   string    `json:"meta"`
	Filter string    `json:"filter"`
}

// Config holds index client settings.
type Config struct {
	BaseURL    string // e.g. http://localhost:8080/api/v1
	IndexName  string
	Dimensions int
	SpaceType  string
	Timeout    time.Duration
	Logger     *zap.Logger
}

// Client talks to the vector-index service over HTTP.
type Client struct {
	http      *http.Client
	baseURL   string
	indexName string
	dim       int
	spaceType string
	logger    *zap.Logger
}

// NewClient creates an index client with a bounded request timeout.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	dim := cfg.Dimensions
	if dim <= 0 {
		dim = domain.DefaultVectorConfig().Dimensions
	}
	spaceType := cfg.SpaceType
	if spaceType == "" {
		spaceType = domain.DefaultVectorConfig().SpaceType
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		http:      &http.Client{Timeout: timeout},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		indexName: cfg.IndexName,
		dim:       dim,
		spaceType: spaceType,
		logger:    log,
	}
}

// Dimensions returns the configured vector dimensionality.
func (c *Client) Dimensions() int { return c.dim }

type searchRequest struct {
	Vector         []float32          `json:"vector"`
	K              int                `json:"k"`
	IncludeVectors bool               `json:"include_vectors"`
	Filter         []filterConditions `json:"filter,omitempty"`
}

type filterConditions map[string]equalityCondition

type equalityCondition struct {
	Eq string `json:"$eq"`
}

// Search runs a nearest-neighbor query. k bounds the result count but is not
// a guarantee. category, when non-empty and not the "All" sentinel, is pushed
// upstream as a service-side equality filter; numeric criteria never are.
// Hits come back in service order and are not re-sorted.
func (c *Client) Search(ctx context.Context, vector []float32, k int, category string) (SearchResponse, error) {
	start := time.Now()

	resp, err := c.search(ctx, vector, k, category)
	c.observe("search", start, err)
	return resp, err
}

func (c *Client) search(ctx context.Context, vector []float32, k int, category string) (SearchResponse, error) {
	if len(vector) != c.dim {
		return SearchResponse{}, fmt.Errorf(
			"query vector has %d dimensions, index expects %d: %w",
			len(vector), c.dim, domain.ErrVectorDimMismatch,
		)
	}
	if k <= 0 {
		return SearchResponse{}, fmt.Errorf("k must be positive, got %d: %w", k, domain.ErrValidation)
	}

	req := searchRequest{Vector: vector, K: k, IncludeVectors: false}
	if category != "" && category != domain.CategoryAll {
		req.Filter = []filterConditions{
			{"category": equalityCondition{Eq: category}},
		}
	}

	status, body, err := c.roundTrip(ctx, http.MethodPost, c.indexURL("search"), req)
	if err != nil {
		return SearchResponse{}, err
	}
	if !success(status) {
		return SearchResponse{}, serviceError("search", status, body)
	}

	if len(body) == 0 {
		metrics.IndexEmptyResponsesTotal.WithLabelValues("search").Inc()
		c.logger.Warn("index returned empty search response",
			zap.String("index", c.indexName),
			zap.Int("k", k),
		)
		return SearchResponse{Hits: []Hit{}, Warning: emptyResponseWarning}, nil
	}

	hits, err := decodeSearchBody(body)
	if err != nil {
		return SearchResponse{}, err
	}
	return SearchResponse{Hits: hits}, nil
}

type vectorGetRequest struct {
	ID string `json:"id"`
}

// GetVectorByID retrieves the stored vector for id.
// Returns domain.ErrNotFound when the service has no such id or the stored
// record carries an empty vector.
func (c *Client) GetVectorByID(ctx context.Context, id string) ([]float32, error) {
	start := time.Now()

	vec, err := c.getVector(ctx, id)
	c.observe("vector_get", start, err)
	return vec, err
}

func (c *Client) getVector(ctx context.Context, id string) ([]float32, error) {
	status, body, err := c.roundTrip(ctx, http.MethodPost, c.indexURL("vector/get"), vectorGetRequest{ID: id})
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("vector %q: %w", id, domain.ErrNotFound)
	}
	if !success(status) {
		return nil, serviceError("vector/get", status, body)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("vector %q: %w", id, domain.ErrNotFound)
	}

	vec, err := decodeVectorBody(body)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("vector %q: empty vector field: %w", id, domain.ErrNotFound)
	}
	if len(vec) != c.dim {
		// A stored vector of the wrong length is protocol drift, not caller input.
		return nil, newDecodeError("decode vector response",
			fmt.Errorf("vector has %d dimensions, index expects %d", len(vec), c.dim), body)
	}
	return vec, nil
}

type createIndexRequest struct {
	IndexName string `json:"index_name"`
	Dim       int    `json:"dim"`
	SpaceType string `json:"space_type"`
}

// CreateIndex creates the index if it does not already exist.
// "Already exists" is a success path, not an error.
func (c *Client) CreateIndex(ctx context.Context) error {
	start := time.Now()

	err := c.createIndex(ctx)
	c.observe("index_create", start, err)
	return err
}

func (c *Client) createIndex(ctx context.Context) error {
	req := createIndexRequest{IndexName: c.indexName, Dim: c.dim, SpaceType: c.spaceType}

	status, body, err := c.roundTrip(ctx, http.MethodPost, c.baseURL+"/index/create", req)
	if err != nil {
		return err
	}
	if success(status) {
		return nil
	}
	if strings.Contains(strings.ToLower(string(body)), "already exists") {
		c.logger.Info("index already exists", zap.String("index", c.indexName))
		return nil
	}
	return serviceError("index/create", status, body)
}

// InsertBatch inserts a batch of vector records.
func (c *Client) InsertBatch(ctx context.Context, records []VectorRecord) error {
	start := time.Now()

	err := c.insertBatch(ctx, records)
	c.observe("vector_insert", start, err)
	return err
}

func (c *Client) insertBatch(ctx context.Context, records []VectorRecord) error {
	status, body, err := c.roundTrip(ctx, http.MethodPost, c.indexURL("vector/insert"), records)
	if err != nil {
		return err
	}
	if !success(status) {
		return serviceError("vector/insert", status, body)
	}
	return nil
}

// GetInfo fetches index statistics.
func (c *Client) GetInfo(ctx context.Context) (Info, error) {
	start := time.Now()

	info, err := c.getInfo(ctx)
	c.observe("info", start, err)
	return info, err
}

func (c *Client) getInfo(ctx context.Context) (Info, error) {
	status, body, err := c.roundTrip(ctx, http.MethodGet, c.indexURL("info"), nil)
	if err != nil {
		return Info{}, err
	}
	if !success(status) {
		return Info{}, serviceError("info", status, body)
	}

	var info Info
	if err := json.Unmarshal(body, &info); err != nil {
		return Info{}, newDecodeError("decode info response", err, body)
	}
	return info, nil
}

// Ping checks index service availability.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.GetInfo(ctx); err != nil {
		return fmt.Errorf("index ping: %w", err)
	}
	return nil
}

func (c *Client) indexURL(op string) string {
	return fmt.Sprintf("%s/index/%s/%s", c.baseURL, c.indexName, op)
}

// roundTrip performs one HTTP exchange. Only transport-level failures are
// returned as errors; status classification is up to the caller.
func (c *Client) roundTrip(ctx context.Context, method, url string, payload any) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal index request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("new index request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("index request: %w: %w", domain.ErrIndexUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read index response: %w: %w", domain.ErrIndexUnavailable, err)
	}
	return resp.StatusCode, body, nil
}

func success(status int) bool {
	return status >= 200 && status < 300
}

func serviceError(op string, status int, body []byte) error {
	text := strings.TrimSpace(string(body))
	if len(text) > serviceErrMaxLen {
		text = text[:serviceErrMaxLen]
	}
	return fmt.Errorf("%s: status %d: %s: %w", op, status, text, domain.ErrIndexService)
}

func (c *Client) observe(op string, start time.Time, err error) {
	metrics.IndexRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	metrics.IndexRequestsTotal.WithLabelValues(op, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrIndexUnavailable):
		return "transport"
	case errors.Is(err, domain.ErrIndexDecode):
		return "decode"
	case errors.Is(err, domain.ErrIndexService):
		return "service"
	default:
		return "error"
	}
}

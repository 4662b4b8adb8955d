package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/emporia-search/emporia/internal/domain"
	"github.com/emporia-search/emporia/internal/index"
)

type fakeInserter struct {
	mu      sync.Mutex
	batches [][]index.VectorRecord
	failIDs map[string]bool
}

func (f *fakeInserter) InsertBatch(_ context.Context, records []index.VectorRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range records {
		if f.failIDs[r.ID] {
			return errors.New("insert rejected")
		}
	}
	f.batches = append(f.batches, records)
	return nil
}

func (f *fakeInserter) inserted() map[string]index.VectorRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	got := make(map[string]index.VectorRecord)
	for _, batch := range f.batches {
		for _, r := range batch {
			got[r.ID] = r
		}
	}
	return got
}

type fakeEmbedder struct {
	failTexts map[string]bool
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	if f.failTexts[text] {
		return domain.EmbeddingResult{}, domain.ErrEmbeddingProviderError
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}, TotalTokens: 4}, nil
}

func testProducts(n int) []domain.Product {
	products := make([]domain.Product, n)
	for i := range products {
		products[i] = domain.Product{
			ID:       fmt.Sprintf("p%d", i),
			Title:    fmt.Sprintf("Product %d", i),
			Category: "Fashion",
			Price:    float64(10 + i),
		}
	}
	return products
}

func newTestIngester(idx inserter, embed domain.Embedder, batchSize, workers int) *ingester {
	return &ingester{
		idx:       idx,
		embed:     embed,
		batchSize: batchSize,
		workers:   workers,
		logger:    zap.NewNop(),
	}
}

func TestIngester_Run(t *testing.T) {
	idx := &fakeInserter{}
	ing := newTestIngester(idx, &fakeEmbedder{}, 3, 2)

	res := ing.Run(context.Background(), testProducts(10))

	if res.Processed != 10 {
		t.Errorf("processed = %d, want 10", res.Processed)
	}
	if res.Failed != 0 {
		t.Errorf("failed = %d, want 0", res.Failed)
	}

	inserted := idx.inserted()
	if len(inserted) != 10 {
		t.Fatalf("inserted %d records, want 10", len(inserted))
	}

	r := inserted["p0"]
	if len(r.Vector) != 2 {
		t.Errorf("vector = %v", r.Vector)
	}
	var meta domain.ProductMeta
	if err := json.Unmarshal([]byte(r.Meta), &meta); err != nil {
		t.Fatalf("meta is not a JSON blob: %v", err)
	}
	if meta.Title != "Product 0" {
		t.Errorf("meta title = %q", meta.Title)
	}
	var filter domain.ProductFilter
	if err := json.Unmarshal([]byte(r.Filter), &filter); err != nil {
		t.Fatalf("filter is not a JSON blob: %v", err)
	}
	if filter.Price != 10 {
		t.Errorf("filter price = %v", filter.Price)
	}
}

func TestIngester_BatchSizing(t *testing.T) {
	idx := &fakeInserter{}
	ing := newTestIngester(idx, &fakeEmbedder{}, 4, 1)

	ing.Run(context.Background(), testProducts(10))

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if len(idx.batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(idx.batches))
	}
	total := 0
	for _, b := range idx.batches {
		if len(b) > 4 {
			t.Errorf("batch of %d exceeds size 4", len(b))
		}
		total += len(b)
	}
	if total != 10 {
		t.Errorf("total records = %d, want 10", total)
	}
}

func TestIngester_FailedInsertSkipsBatchOnly(t *testing.T) {
	idx := &fakeInserter{failIDs: map[string]bool{"p0": true}}
	ing := newTestIngester(idx, &fakeEmbedder{}, 2, 1)

	res := ing.Run(context.Background(), testProducts(6))

	if res.Failed != 2 {
		t.Errorf("failed = %d, want 2 (the bad batch)", res.Failed)
	}
	if res.Processed != 4 {
		t.Errorf("processed = %d, want 4", res.Processed)
	}
}

func TestIngester_FailedEmbedSkipsBatchOnly(t *testing.T) {
	embed := &fakeEmbedder{failTexts: map[string]bool{embeddingText(domain.Product{
		ID: "p0", Title: "Product 0", Category: "Fashion", Price: 10,
	}): true}}
	idx := &fakeInserter{}
	ing := newTestIngester(idx, embed, 2, 2)

	res := ing.Run(context.Background(), testProducts(6))

	if res.Failed != 2 {
		t.Errorf("failed = %d, want 2", res.Failed)
	}
	if res.Processed != 4 {
		t.Errorf("processed = %d, want 4", res.Processed)
	}
}

func TestIngester_EmptyInput(t *testing.T) {
	idx := &fakeInserter{}
	ing := newTestIngester(idx, &fakeEmbedder{}, 50, 4)

	res := ing.Run(context.Background(), nil)
	if res.Processed != 0 || res.Failed != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestEmbeddingText(t *testing.T) {
	p := domain.Product{
		Title:       "Blue Jacket",
		Description: "A warm winter jacket.",
		Category:    "Fashion",
		Brand:       "Northline",
	}
	got := embeddingText(p)
	want := "Blue Jacket. A warm winter jacket. Category: Fashion. Brand: Northline"
	if got != want {
		t.Errorf("embeddingText = %q, want %q", got, want)
	}
}

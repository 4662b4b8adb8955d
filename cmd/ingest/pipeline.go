// Batch ingestion pipeline: catalog products through embed workers into index inserts.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/emporia-search/emporia/internal/domain"
	"github.com/emporia-search/emporia/internal/index"
)

// inserter is the index write contract used by the pipeline.
type inserter interface {
	InsertBatch(ctx context.Context, records []index.VectorRecord) error
}

// ingester is a worker pool over fixed-size product batches. A failing batch
// is logged and skipped; the remaining batches continue.
type ingester struct {
	idx       inserter
	embed     domain.Embedder
	batchSize int
	workers   int
	logger    *zap.Logger
}

type ingestResult struct {
	Processed int64
	Failed    int64
	Duration  time.Duration
}

// Run feeds products through the worker pool and reports totals.
func (ing *ingester) Run(ctx context.Context, products []domain.Product) ingestResult {
	batches := make(chan []domain.Product, ing.workers*2)
	var wg sync.WaitGroup
	var processed, failed atomic.Int64

	start := time.Now()

	for i := 0; i < ing.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			ing.worker(ctx, workerID, batches, &processed, &failed)
		}(i)
	}

	go func() {
		defer close(batches)
		for lo := 0; lo < len(products); lo += ing.batchSize {
			hi := lo + ing.batchSize
			if hi > len(products) {
				hi = len(products)
			}
			select {
			case <-ctx.Done():
				return
			case batches <- products[lo:hi]:
			}
		}
	}()

	wg.Wait()

	return ingestResult{
		Processed: processed.Load(),
		Failed:    failed.Load(),
		Duration:  time.Since(start),
	}
}

func (ing *ingester) worker(
	ctx context.Context,
	id int,
	batches <-chan []domain.Product,
	processed, failed *atomic.Int64,
) {
	for batch := range batches {
		records, err := ing.buildRecords(ctx, batch)
		if err != nil {
			ing.logger.Warn("batch embed failed, skipping batch",
				zap.Int("worker", id),
				zap.Int("batch_size", len(batch)),
				zap.Error(err),
			)
			failed.Add(int64(len(batch)))
			continue
		}

		if err := ing.idx.InsertBatch(ctx, records); err != nil {
			ing.logger.Warn("batch insert failed, skipping batch",
				zap.Int("worker", id),
				zap.Int("batch_size", len(batch)),
				zap.Error(err),
			)
			failed.Add(int64(len(batch)))
			continue
		}

		processed.Add(int64(len(records)))
	}
}

// buildRecords embeds each product of a batch and packages meta/filter as
// JSON-string blobs the index stores opaquely.
func (ing *ingester) buildRecords(ctx context.Context, batch []domain.Product) ([]index.VectorRecord, error) {
	records := make([]index.VectorRecord, 0, len(batch))
	for _, p := range batch {
		emb, err := ing.embed.Embed(ctx, embeddingText(p))
		if err != nil {
			return nil, fmt.Errorf("embed %q: %w", p.ID, err)
		}

		meta, err := json.Marshal(p.Meta())
		if err != nil {
			return nil, fmt.Errorf("marshal meta %q: %w", p.ID, err)
		}
		filter, err := json.Marshal(p.Filter())
		if err != nil {
			return nil, fmt.Errorf("marshal filter %q: %w", p.ID, err)
		}

		records = append(records, index.VectorRecord{
			ID:     p.ID,
			Vector: emb.Embedding,
			Meta:   string(meta),
			Filter: string(filter),
		})
	}
	return records, nil
}

// embeddingText combines title, description, category, and brand for rich
// semantic search. Must match what the API server embeds queries against.
func embeddingText(p domain.Product) string {
	return fmt.Sprintf("%s. %s Category: %s. Brand: %s", p.Title, p.Description, p.Category, p.Brand)
}

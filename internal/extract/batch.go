package extract

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/spherical/payroll-extract/internal/domain"
)

// DefaultConcurrency is the number of documents a batch processes at once.
const DefaultConcurrency = 4

// BatchItem is the outcome for one document of a batch.
type BatchItem struct {
	Source string
	Result *Result
	Err    error
}

// Batch runs a Service over many documents in parallel. A failing document
// does not stop the others.
type Batch struct {
	service     *Service
	concurrency int
	onDone      func(BatchItem)
	logger      *domain.Logger
}

// NewBatch creates a batch runner. concurrency <= 0 uses DefaultConcurrency.
func NewBatch(service *Service, concurrency int) *Batch {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Batch{
		service:     service,
		concurrency: concurrency,
		logger:      service.logger.WithPrefix("batch"),
	}
}

// OnDone registers a callback invoked once per finished document. Calls are
// serialized.
func (b *Batch) OnDone(fn func(BatchItem)) *Batch {
	b.onDone = fn
	return b
}

// Run extracts every path and returns one item per path in input order. The
// returned error is non-nil only when ctx was cancelled; documents not started
// by then carry the context error.
func (b *Batch) Run(ctx context.Context, paths []string) ([]BatchItem, error) {
	items := make([]BatchItem, len(paths))
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(b.concurrency)

	for i, path := range paths {
		g.Go(func() error {
			item := BatchItem{Source: path}
			if err := ctx.Err(); err != nil {
				item.Err = err
			} else {
				item.Result, item.Err = b.service.Extract(ctx, path, nil)
			}
			items[i] = item

			mu.Lock()
			defer mu.Unlock()
			if item.Err != nil {
				b.logger.Warn("%s: %v", path, item.Err)
			}
			if b.onDone != nil {
				b.onDone(item)
			}
			return nil
		})
	}

	_ = g.Wait()

	failed := 0
	for _, it := range items {
		if it.Err != nil {
			failed++
		}
	}
	b.logger.Info("Batch finished: %d documents, %d failed", len(paths), failed)

	return items, ctx.Err()
}

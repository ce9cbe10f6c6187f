package collector

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain"
)

// BatchItem pairs one principal's records with their collection options.
type BatchItem struct {
	Records []domain.Record
	Options Options
}

// BatchResult is the outcome of one batch item. Results align with the
// input slice by index.
type BatchResult struct {
	Summary Summary
	Err     error
}

// CollectBatch runs items concurrently, at most limit at a time (limit <= 0
// means no limit). Items are independent: one item's consent rejection or
// budget denial never cancels the others.
func (c *Collector) CollectBatch(ctx context.Context, items []BatchItem, limit int) []BatchResult {
	results := make([]BatchResult, len(items))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			summary, err := c.Collect(ctx, item.Records, item.Options)
			results[i] = BatchResult{Summary: summary, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

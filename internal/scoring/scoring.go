// Package scoring defines the boundary to the metric derivation model.
// The pipeline treats scorers as opaque; it only clamps and guards output.
package scoring

import (
	"context"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain"
)

// Scorer derives a wellness metric bundle from a principal's records.
type Scorer interface {
	Score(ctx context.Context, records []domain.Record) (domain.MetricBundle, error)
}

// DefaultBaseline returns the neutral bundle used when no modeling service
// is attached. Every field sits at the scale midpoint.
func DefaultBaseline() domain.MetricBundle {
	var b domain.MetricBundle
	b.VisitFields(func(_ string, value *float64) {
		*value = (domain.ScoreMin + domain.ScoreMax) / 2
	})
	return b
}

// Static returns a fixed bundle for every input. It stands in for the
// modeling service in tests and single-node deployments.
type Static struct {
	bundle domain.MetricBundle
}

func NewStatic(bundle domain.MetricBundle) *Static {
	bundle.Clamp()
	return &Static{bundle: bundle}
}

func (s *Static) Score(ctx context.Context, _ []domain.Record) (domain.MetricBundle, error) {
	if err := ctx.Err(); err != nil {
		return domain.MetricBundle{}, err
	}
	return s.bundle, nil
}

package handler

import (
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/collector"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain"
	dErrors "github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain-errors"
)

// CollectResponse is the HTTP response for POST /collect and /collect/sealed.
type CollectResponse struct {
	Metrics        domain.MetricBundle `json:"metrics"`
	RedactionCount int                 `json:"redaction_count"`
	NoiseInjected  bool                `json:"noise_injected"`
}

// FromSummary converts a collection summary to an HTTP response.
func FromSummary(s collector.Summary) CollectResponse {
	return CollectResponse{
		Metrics:        s.Metrics,
		RedactionCount: s.RedactionCount,
		NoiseInjected:  s.NoiseInjected,
	}
}

// BatchEntryResponse is one item's outcome inside a batch response. Exactly
// one of result or error is set.
type BatchEntryResponse struct {
	Result *CollectResponse `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// CollectBatchResponse is the HTTP response for POST /collect/batch. Entries
// align with the request items by index.
type CollectBatchResponse struct {
	Results []BatchEntryResponse `json:"results"`
}

// FromBatchResults converts batch outcomes to an HTTP response. Failed items
// report their error code instead of a result.
func FromBatchResults(results []collector.BatchResult) CollectBatchResponse {
	out := CollectBatchResponse{Results: make([]BatchEntryResponse, len(results))}
	for i, res := range results {
		if res.Err != nil {
			out.Results[i] = BatchEntryResponse{Error: string(dErrors.CodeOf(translateError(res.Err)))}
			continue
		}
		resp := FromSummary(res.Summary)
		out.Results[i] = BatchEntryResponse{Result: &resp}
	}
	return out
}

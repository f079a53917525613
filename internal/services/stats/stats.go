// Package stats computes summary statistics over aggregated edges.
package stats

import (
	"flowgraph/internal/models"
)

// sentinelNA stands in for "most frequent" answers over an empty
// result set, which would otherwise have no defined value
const sentinelNA = "N/A"

// Summary holds the headline numbers for a filtered graph
type Summary struct {
	TotalTransactions     int                `json:"total_transactions"`
	LargestTransaction    float64            `json:"largest_transaction"`
	MostFrequentSender    string             `json:"most_frequent_sender"`
	MostFrequentRecipient string             `json:"most_frequent_recipient"`
	TotalSent             map[string]float64 `json:"total_sent"`
	TotalReceived         map[string]float64 `json:"total_received"`
}

// Service provides summary statistic calculation
type Service struct{}

// New creates a new stats service
func New() *Service {
	return &Service{}
}

// Summarize computes the summary over aggregated edges. An empty input
// yields zero totals and the N/A sentinel, never an error.
func (s *Service) Summarize(edges []models.AggregatedEdge) Summary {
	summary := Summary{
		MostFrequentSender:    sentinelNA,
		MostFrequentRecipient: sentinelNA,
		TotalSent:             make(map[string]float64),
		TotalReceived:         make(map[string]float64),
	}

	for _, agg := range edges {
		summary.TotalTransactions += agg.Count
		if agg.TotalAmount > summary.LargestTransaction {
			summary.LargestTransaction = agg.TotalAmount
		}
		summary.TotalSent[agg.FromLabel] += agg.TotalAmount
		summary.TotalReceived[agg.ToLabel] += agg.TotalAmount
	}

	summary.MostFrequentSender = topLabel(summary.TotalSent)
	summary.MostFrequentRecipient = topLabel(summary.TotalReceived)

	return summary
}

// topLabel returns the label with the highest total, breaking ties on
// the smaller label so results are deterministic
func topLabel(totals map[string]float64) string {
	top := sentinelNA
	var best float64
	for label, total := range totals {
		if top == sentinelNA || total > best || (total == best && label < top) {
			top = label
			best = total
		}
	}
	return top
}

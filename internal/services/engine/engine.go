// Package engine implements the transaction filtering and aggregation
// queries over one normalized dataset. Every query is a pure function
// of the dataset and its parameters; empty results are values, never
// errors.
package engine

import (
	"sort"

	"flowgraph/internal/models"
)

// Engine answers filter, aggregation and history queries against a
// single normalized record set
type Engine struct {
	data *models.RecordSet
}

// New creates an Engine over the given dataset
func New(data *models.RecordSet) *Engine {
	return &Engine{data: data}
}

// Data returns the underlying record set
func (e *Engine) Data() *models.RecordSet {
	return e.data
}

// Filter runs the two-stage query: per-record predicates narrow the
// universe, then the records are grouped by (fromLabel, toLabel) and
// the amount bound is applied to the aggregated totals. The bound
// deliberately does not touch individual record amounts.
func (e *Engine) Filter(c models.FilterCriteria) []models.AggregatedEdge {
	matched := ApplyPredicates(e.data, c)
	return BoundTotals(Aggregate(matched), c)
}

// ApplyPredicates is the first stage: substring and date predicates
// over raw records
func ApplyPredicates(rs *models.RecordSet, c models.FilterCriteria) *models.RecordSet {
	return rs.Where(c.MatchRecord)
}

// Aggregate groups records by (fromLabel, toLabel), summing amounts
// and counting records per group. Output is ordered by fromLabel then
// toLabel so results are deterministic.
func Aggregate(rs *models.RecordSet) []models.AggregatedEdge {
	type pair struct{ from, to string }
	groups := make(map[pair]*models.AggregatedEdge)

	for i := range rs.Records {
		r := &rs.Records[i]
		key := pair{r.FromLabel, r.ToLabel}
		agg, ok := groups[key]
		if !ok {
			agg = &models.AggregatedEdge{FromLabel: r.FromLabel, ToLabel: r.ToLabel}
			groups[key] = agg
		}
		agg.TotalAmount += r.Amount
		agg.Count++
	}

	edges := make([]models.AggregatedEdge, 0, len(groups))
	for _, agg := range groups {
		edges = append(edges, *agg)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].FromLabel != edges[j].FromLabel {
			return edges[i].FromLabel < edges[j].FromLabel
		}
		return edges[i].ToLabel < edges[j].ToLabel
	})
	return edges
}

// BoundTotals is the second stage: the inclusive amount bound applied
// to aggregated totals
func BoundTotals(edges []models.AggregatedEdge, c models.FilterCriteria) []models.AggregatedEdge {
	result := make([]models.AggregatedEdge, 0, len(edges))
	for _, agg := range edges {
		if c.MatchAmount(agg.TotalAmount) {
			result = append(result, agg)
		}
	}
	return result
}

// History returns every record between the two labels in either
// direction, optionally refined by extra criteria (here the amount
// bound applies per record, since there is no aggregate), sorted
// ascending by date. Identical labels degenerate to self-loop records.
func (e *Engine) History(labelA, labelB string, c models.FilterCriteria) []models.TransactionRecord {
	matched := e.data.Where(func(r *models.TransactionRecord) bool {
		if !(r.FromLabel == labelA && r.ToLabel == labelB) &&
			!(r.FromLabel == labelB && r.ToLabel == labelA) {
			return false
		}
		return c.MatchRecord(r) && c.MatchAmount(r.Amount)
	})
	return matched.SortByDate().Records
}

// ForEntity returns every record where the entity appears as the
// sender or the recipient with that exact account, sorted by date. The
// label is split back into (name, account) with the inverse of the
// composition rule.
func (e *Engine) ForEntity(label string) []models.TransactionRecord {
	name, account := models.SplitLabel(label)
	matched := e.data.Where(func(r *models.TransactionRecord) bool {
		return (r.FromSender == name && r.FromAccount == account) ||
			(r.ToRecipient == name && r.ToAccount == account)
	})
	return matched.SortByDate().Records
}

// RecordsForPairs returns the raw records behind every label pair that
// survives Filter(c), date-sorted. This recovers per-record
// granularity for relationships the aggregated view shows.
func (e *Engine) RecordsForPairs(c models.FilterCriteria) []models.TransactionRecord {
	type pair struct{ from, to string }
	valid := make(map[pair]bool)
	for _, agg := range e.Filter(c) {
		valid[pair{agg.FromLabel, agg.ToLabel}] = true
	}

	matched := e.data.Where(func(r *models.TransactionRecord) bool {
		return valid[pair{r.FromLabel, r.ToLabel}]
	})
	return matched.SortByDate().Records
}

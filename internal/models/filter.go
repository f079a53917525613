package models

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// FilterCriteria is the conjunction of predicates applied to a record
// set. Empty substring predicates always match; amount and date bounds
// are inclusive. All fields are schema-typed so that a persisted
// criteria document reconstitutes deterministically (dates are dates,
// never sniffed out of strings).
type FilterCriteria struct {
	FromAccount string    `json:"from_account"`
	ToAccount   string    `json:"to_account"`
	FromSender  string    `json:"from_sender"`
	ToRecipient string    `json:"to_recipient"`
	MinAmount   float64   `json:"min_amount"`
	MaxAmount   float64   `json:"max_amount"`
	FromDate    time.Time `json:"from_date"`
	ToDate      time.Time `json:"to_date"`
}

// DefaultCriteria returns match-all criteria: empty substrings,
// [0, +Inf) amounts, and an effectively unbounded date range.
func DefaultCriteria() FilterCriteria {
	return FilterCriteria{
		MinAmount: 0,
		MaxAmount: math.Inf(1),
		FromDate:  time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC),
		ToDate:    time.Date(2100, 12, 31, 0, 0, 0, 0, time.UTC),
	}
}

// MatchRecord reports whether the record satisfies the substring and
// date predicates. The amount bounds are deliberately not consulted
// here: they apply to aggregated totals, not raw rows.
func (c FilterCriteria) MatchRecord(r *TransactionRecord) bool {
	return containsFold(r.FromAccount, c.FromAccount) &&
		containsFold(r.ToAccount, c.ToAccount) &&
		containsFold(r.FromSender, c.FromSender) &&
		containsFold(r.ToRecipient, c.ToRecipient) &&
		!r.Date.Before(c.FromDate) &&
		!r.Date.After(c.ToDate)
}

// MatchAmount reports whether an aggregated total falls within the
// inclusive [MinAmount, MaxAmount] bound.
func (c FilterCriteria) MatchAmount(total float64) bool {
	return total >= c.MinAmount && total <= c.MaxAmount
}

// filterCriteriaJSON is the wire form of FilterCriteria. MaxAmount is
// a pointer so the unbounded default (+Inf, which JSON cannot carry)
// round-trips as null.
type filterCriteriaJSON struct {
	FromAccount string    `json:"from_account"`
	ToAccount   string    `json:"to_account"`
	FromSender  string    `json:"from_sender"`
	ToRecipient string    `json:"to_recipient"`
	MinAmount   float64   `json:"min_amount"`
	MaxAmount   *float64  `json:"max_amount"`
	FromDate    time.Time `json:"from_date"`
	ToDate      time.Time `json:"to_date"`
}

// MarshalJSON encodes the criteria with an infinite upper bound as null
func (c FilterCriteria) MarshalJSON() ([]byte, error) {
	doc := filterCriteriaJSON{
		FromAccount: c.FromAccount,
		ToAccount:   c.ToAccount,
		FromSender:  c.FromSender,
		ToRecipient: c.ToRecipient,
		MinAmount:   c.MinAmount,
		FromDate:    c.FromDate,
		ToDate:      c.ToDate,
	}
	if !math.IsInf(c.MaxAmount, 1) {
		doc.MaxAmount = &c.MaxAmount
	}
	return json.Marshal(doc)
}

// UnmarshalJSON decodes the criteria, restoring a null or absent upper
// bound to +Inf
func (c *FilterCriteria) UnmarshalJSON(data []byte) error {
	var doc filterCriteriaJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	c.FromAccount = doc.FromAccount
	c.ToAccount = doc.ToAccount
	c.FromSender = doc.FromSender
	c.ToRecipient = doc.ToRecipient
	c.MinAmount = doc.MinAmount
	c.FromDate = doc.FromDate
	c.ToDate = doc.ToDate
	if doc.MaxAmount != nil {
		c.MaxAmount = *doc.MaxAmount
	} else {
		c.MaxAmount = math.Inf(1)
	}
	return nil
}

// containsFold is a case-insensitive substring match where an empty
// needle matches everything
func containsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

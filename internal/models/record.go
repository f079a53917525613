package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// TransactionRecord represents a single normalized money transfer.
// Records are immutable after normalization; labels are derived once
// by the loader via ComputeLabels.
type TransactionRecord struct {
	Date        time.Time `json:"date"`
	FromAccount string    `json:"from_account"`
	FromSender  string    `json:"from_sender"`
	ToAccount   string    `json:"to_account"`
	ToRecipient string    `json:"to_recipient"`
	Amount      float64   `json:"amount"`

	// Derived display identities, pure functions of the fields above
	FromLabel string `json:"from_label"`
	ToLabel   string `json:"to_label"`
}

// ComposeLabel builds the display identity of a party from its name and
// optional account code. SplitLabel is the exact inverse.
func ComposeLabel(name, account string) string {
	if account == "" {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, account)
}

// SplitLabel decomposes a label into (name, account), splitting on the
// trailing parenthesized suffix. A label without parentheses yields an
// empty account.
func SplitLabel(label string) (name, account string) {
	if strings.Contains(label, "(") && strings.Contains(label, ")") {
		idx := strings.LastIndex(label, "(")
		name = strings.TrimSpace(label[:idx])
		account = strings.TrimSuffix(label[idx+1:], ")")
		return name, account
	}
	return label, ""
}

// ComputeLabels populates FromLabel and ToLabel from the party fields
func (r *TransactionRecord) ComputeLabels() {
	r.FromLabel = ComposeLabel(r.FromSender, r.FromAccount)
	r.ToLabel = ComposeLabel(r.ToRecipient, r.ToAccount)
}

// RecordSet wraps a normalized record slice with query helpers
type RecordSet struct {
	Records []TransactionRecord
}

// NewRecordSet creates a new RecordSet from a slice
func NewRecordSet(records []TransactionRecord) *RecordSet {
	return &RecordSet{Records: records}
}

// Len returns the number of records
func (rs *RecordSet) Len() int {
	return len(rs.Records)
}

// Where returns the records satisfying the predicate
func (rs *RecordSet) Where(keep func(*TransactionRecord) bool) *RecordSet {
	result := &RecordSet{}
	for i := range rs.Records {
		if keep(&rs.Records[i]) {
			result.Records = append(result.Records, rs.Records[i])
		}
	}
	return result
}

// SortByDate returns a copy sorted by date (ascending)
func (rs *RecordSet) SortByDate() *RecordSet {
	sorted := make([]TransactionRecord, len(rs.Records))
	copy(sorted, rs.Records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return &RecordSet{Records: sorted}
}

// MinDate returns the earliest record date
func (rs *RecordSet) MinDate() time.Time {
	if len(rs.Records) == 0 {
		return time.Time{}
	}
	minDate := rs.Records[0].Date
	for _, r := range rs.Records[1:] {
		if r.Date.Before(minDate) {
			minDate = r.Date
		}
	}
	return minDate
}

// MaxDate returns the latest record date
func (rs *RecordSet) MaxDate() time.Time {
	if len(rs.Records) == 0 {
		return time.Time{}
	}
	maxDate := rs.Records[0].Date
	for _, r := range rs.Records[1:] {
		if r.Date.After(maxDate) {
			maxDate = r.Date
		}
	}
	return maxDate
}

// UniqueFromAccounts returns the sorted distinct source account codes
func (rs *RecordSet) UniqueFromAccounts() []string {
	return rs.uniques(func(r *TransactionRecord) string { return r.FromAccount })
}

// UniqueToAccounts returns the sorted distinct destination account codes
func (rs *RecordSet) UniqueToAccounts() []string {
	return rs.uniques(func(r *TransactionRecord) string { return r.ToAccount })
}

// UniqueSenders returns the sorted distinct sender names
func (rs *RecordSet) UniqueSenders() []string {
	return rs.uniques(func(r *TransactionRecord) string { return r.FromSender })
}

// UniqueRecipients returns the sorted distinct recipient names
func (rs *RecordSet) UniqueRecipients() []string {
	return rs.uniques(func(r *TransactionRecord) string { return r.ToRecipient })
}

func (rs *RecordSet) uniques(field func(*TransactionRecord) string) []string {
	seen := make(map[string]bool)
	for i := range rs.Records {
		seen[field(&rs.Records[i])] = true
	}
	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

package stats

import (
	"testing"

	"flowgraph/internal/models"
)

func TestSummarize(t *testing.T) {
	edges := []models.AggregatedEdge{
		{FromLabel: "John (A001)", ToLabel: "ABC Corp", TotalAmount: 350, Count: 2},
		{FromLabel: "John (A001)", ToLabel: "XYZ Inc", TotalAmount: 150, Count: 1},
		{FromLabel: "Jane (B001)", ToLabel: "ABC Corp", TotalAmount: 90, Count: 3},
	}

	s := New().Summarize(edges)

	if s.TotalTransactions != 6 {
		t.Errorf("TotalTransactions = %d, want 6", s.TotalTransactions)
	}
	if s.LargestTransaction != 350 {
		t.Errorf("LargestTransaction = %v, want 350", s.LargestTransaction)
	}
	if s.MostFrequentSender != "John (A001)" {
		t.Errorf("MostFrequentSender = %q", s.MostFrequentSender)
	}
	if s.MostFrequentRecipient != "ABC Corp" {
		t.Errorf("MostFrequentRecipient = %q", s.MostFrequentRecipient)
	}
	if s.TotalSent["John (A001)"] != 500 {
		t.Errorf("TotalSent = %v", s.TotalSent)
	}
	if s.TotalReceived["ABC Corp"] != 440 {
		t.Errorf("TotalReceived = %v", s.TotalReceived)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := New().Summarize(nil)

	if s.TotalTransactions != 0 || s.LargestTransaction != 0 {
		t.Errorf("empty summary totals = %+v", s)
	}
	if s.MostFrequentSender != "N/A" || s.MostFrequentRecipient != "N/A" {
		t.Errorf("empty summary should use the N/A sentinel, got %q / %q",
			s.MostFrequentSender, s.MostFrequentRecipient)
	}
	if s.TotalSent == nil || s.TotalReceived == nil {
		t.Error("totals maps should be empty, not nil")
	}
}

func TestSummarizeTieBreak(t *testing.T) {
	edges := []models.AggregatedEdge{
		{FromLabel: "Zed", ToLabel: "A", TotalAmount: 100, Count: 1},
		{FromLabel: "Amy", ToLabel: "B", TotalAmount: 100, Count: 1},
	}

	s := New().Summarize(edges)
	if s.MostFrequentSender != "Amy" {
		t.Errorf("tie should break to the smaller label, got %q", s.MostFrequentSender)
	}
}

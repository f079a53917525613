package engine

import (
	"encoding/csv"
	"io"
	"strconv"

	"flowgraph/internal/models"
)

// exportHeader is the flat export format consumed by spreadsheets
var exportHeader = []string{"Date", "From", "To", "Amount (EUR)"}

// WriteCSV writes one row per record in the order given. Callers sort
// pairwise exports by date before writing.
func WriteCSV(w io.Writer, records []models.TransactionRecord) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(exportHeader); err != nil {
		return err
	}

	for i := range records {
		r := &records[i]
		row := []string{
			r.Date.Format("2006-01-02"),
			r.FromLabel,
			r.ToLabel,
			strconv.FormatFloat(r.Amount, 'f', 2, 64),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

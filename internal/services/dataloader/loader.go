// Package dataloader loads and normalizes raw transfer ledgers from CSV.
package dataloader

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"flowgraph/internal/models"
	"flowgraph/internal/services/storage"
)

// Required header columns, exact names
const (
	ColDate        = "Date"
	ColFromAccount = "From Account"
	ColFromSender  = "From Sender"
	ColToAccount   = "To Account"
	ColToRecipient = "To Recipient"
	ColAmount      = "Amount in Euro"
)

var requiredColumns = []string{
	ColDate, ColFromAccount, ColFromSender, ColToAccount, ColToRecipient, ColAmount,
}

// SchemaError indicates a required column is absent from the header.
// The dataset is not usable.
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required column: %s", e.Column)
}

// TypeCoercionError indicates a cell could not be parsed into its
// declared type. Fatal for the load.
type TypeCoercionError struct {
	Column string
	Value  string
	Line   int
}

func (e *TypeCoercionError) Error() string {
	return fmt.Sprintf("line %d: cannot parse %s value %q", e.Line, e.Column, e.Value)
}

// Loader normalizes raw tabular transfer records
type Loader struct {
	DroppedRows int // non-positive amounts discarded by the last Load
}

// New creates a new Loader
func New() *Loader {
	return &Loader{}
}

// LoadFile reads a CSV file through the store (decrypting if needed)
// and normalizes it
func (l *Loader) LoadFile(store *storage.Store, path string) (*models.RecordSet, error) {
	data, err := store.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return l.Load(bytes.NewReader(data))
}

// Load reads a CSV ledger and returns the normalized record set.
// Account and party columns are kept as text verbatim, dates accept
// mixed formats, and rows with a non-positive amount are dropped.
func (l *Loader) Load(r io.Reader) (*models.RecordSet, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("error reading header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		name := strings.TrimSpace(col)
		if _, exists := colIndex[name]; !exists {
			colIndex[name] = i
		}
	}

	for _, col := range requiredColumns {
		if _, ok := colIndex[col]; !ok {
			return nil, &SchemaError{Column: col}
		}
	}

	var records []models.TransactionRecord
	l.DroppedRows = 0
	lineNum := 1

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum+1, err)
		}
		lineNum++

		cell := func(col string) string {
			idx := colIndex[col]
			if idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		date, err := parseDate(cell(ColDate))
		if err != nil {
			return nil, &TypeCoercionError{Column: ColDate, Value: cell(ColDate), Line: lineNum}
		}

		amount, err := parseAmount(cell(ColAmount))
		if err != nil {
			return nil, &TypeCoercionError{Column: ColAmount, Value: cell(ColAmount), Line: lineNum}
		}

		// Non-positive amounts carry no flow
		if amount <= 0 {
			l.DroppedRows++
			continue
		}

		rec := models.TransactionRecord{
			Date:        date,
			FromAccount: cell(ColFromAccount),
			FromSender:  cell(ColFromSender),
			ToAccount:   cell(ColToAccount),
			ToRecipient: cell(ColToRecipient),
			Amount:      amount,
		}
		rec.ComputeLabels()
		records = append(records, rec)
	}

	if l.DroppedRows > 0 {
		log.Printf("Dropped %d rows with non-positive amounts", l.DroppedRows)
	}
	log.Printf("Normalized %d transaction records", len(records))

	return models.NewRecordSet(records), nil
}

// dateFormats is the ladder of accepted date layouts, tried in order
var dateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02.01.2006",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// parseDate tries multiple date formats
func parseDate(s string) (time.Time, error) {
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", s)
}

// parseAmount parses a numeric amount, tolerating currency symbols,
// thousands separators and parenthesized negatives
func parseAmount(s string) (float64, error) {
	s = strings.ReplaceAll(s, "€", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}

	return strconv.ParseFloat(s, 64)
}

package dataloader

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"flowgraph/internal/services/storage"
)

const header = "Date,From Account,From Sender,To Account,To Recipient,Amount in Euro\n"

func TestLoadBasic(t *testing.T) {
	csv := header +
		"2023-01-01,A001,John,A002,ABC Corp,500.00\n" +
		"2023-01-02,A002,Jane,A003,XYZ Inc,120.50\n"

	rs, err := New().Load(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if rs.Len() != 2 {
		t.Fatalf("got %d records, want 2", rs.Len())
	}

	r := rs.Records[0]
	if r.FromLabel != "John (A001)" || r.ToLabel != "ABC Corp (A002)" {
		t.Errorf("labels = %q, %q", r.FromLabel, r.ToLabel)
	}
	if r.Amount != 500 {
		t.Errorf("amount = %v, want 500", r.Amount)
	}
	if !r.Date.Equal(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", r.Date)
	}
}

func TestLoadMissingColumn(t *testing.T) {
	csv := "Date,From Account,From Sender,To Account,Amount in Euro\n" +
		"2023-01-01,A001,John,A002,500.00\n"

	_, err := New().Load(strings.NewReader(csv))

	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if schemaErr.Column != ColToRecipient {
		t.Errorf("column = %q, want %q", schemaErr.Column, ColToRecipient)
	}
}

func TestLoadUnparseableDate(t *testing.T) {
	csv := header + "not-a-date,A001,John,A002,ABC,500.00\n"

	_, err := New().Load(strings.NewReader(csv))

	var coercionErr *TypeCoercionError
	if !errors.As(err, &coercionErr) {
		t.Fatalf("expected TypeCoercionError, got %v", err)
	}
	if coercionErr.Column != ColDate || coercionErr.Value != "not-a-date" {
		t.Errorf("error = %+v", coercionErr)
	}
}

func TestLoadUnparseableAmount(t *testing.T) {
	csv := header + "2023-01-01,A001,John,A002,ABC,lots\n"

	_, err := New().Load(strings.NewReader(csv))

	var coercionErr *TypeCoercionError
	if !errors.As(err, &coercionErr) {
		t.Fatalf("expected TypeCoercionError, got %v", err)
	}
	if coercionErr.Column != ColAmount {
		t.Errorf("column = %q, want %q", coercionErr.Column, ColAmount)
	}
}

func TestLoadDropsNonPositiveAmounts(t *testing.T) {
	csv := header +
		"2023-01-01,A001,John,A002,ABC,500.00\n" +
		"2023-01-02,A001,John,A002,ABC,0\n" +
		"2023-01-03,A001,John,A002,ABC,-25.00\n"

	loader := New()
	rs, err := loader.Load(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if rs.Len() != 1 {
		t.Fatalf("got %d records, want 1", rs.Len())
	}
	if loader.DroppedRows != 2 {
		t.Errorf("DroppedRows = %d, want 2", loader.DroppedRows)
	}
	for _, r := range rs.Records {
		if r.Amount <= 0 {
			t.Errorf("non-positive amount survived normalization: %v", r.Amount)
		}
	}
}

func TestLoadMixedDateFormats(t *testing.T) {
	csv := header +
		"2023-01-05,A001,John,A002,ABC,10\n" +
		"2023-02-05 13:45:00,A001,John,A002,ABC,10\n" +
		"05.03.2023,A001,John,A002,ABC,10\n" +
		"2023-04-05T08:00:00Z,A001,John,A002,ABC,10\n"

	rs, err := New().Load(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if rs.Len() != 4 {
		t.Fatalf("got %d records, want 4", rs.Len())
	}

	months := []time.Month{time.January, time.February, time.March, time.April}
	for i, want := range months {
		if rs.Records[i].Date.Month() != want {
			t.Errorf("record %d month = %v, want %v", i, rs.Records[i].Date.Month(), want)
		}
	}
}

func TestLoadPreservesAccountText(t *testing.T) {
	csv := header + "2023-01-01,007,John,00042,ABC,10\n"

	rs, err := New().Load(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if rs.Records[0].FromAccount != "007" {
		t.Errorf("leading zeros lost: %q", rs.Records[0].FromAccount)
	}
	if rs.Records[0].ToAccount != "00042" {
		t.Errorf("leading zeros lost: %q", rs.Records[0].ToAccount)
	}
}

func TestLoadEmptyAccountLabel(t *testing.T) {
	csv := header + "2023-01-01,,John,A002,ABC,10\n"

	rs, err := New().Load(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if rs.Records[0].FromLabel != "John" {
		t.Errorf("label with empty account = %q, want %q", rs.Records[0].FromLabel, "John")
	}
}

func TestLoadFileThroughStore(t *testing.T) {
	store, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("storage.New failed: %v", err)
	}

	csv := header + "2023-01-01,A001,John,A002,ABC,500.00\n"
	path := filepath.Join(store.BaseDir(), "ledger.csv")
	if err := store.WriteFile(path, []byte(csv), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	rs, err := New().LoadFile(store, path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if rs.Len() != 1 || rs.Records[0].FromLabel != "John (A001)" {
		t.Errorf("unexpected records: %+v", rs.Records)
	}

	if _, err := New().LoadFile(store, filepath.Join(store.BaseDir(), "missing.csv")); err == nil {
		t.Error("LoadFile on a missing file should fail")
	}
}

func TestLoadCurrencySymbols(t *testing.T) {
	csv := header + "2023-01-01,A001,John,A002,ABC,\"€1,250.75\"\n"

	rs, err := New().Load(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if rs.Records[0].Amount != 1250.75 {
		t.Errorf("amount = %v, want 1250.75", rs.Records[0].Amount)
	}
}

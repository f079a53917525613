package main

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/url"
	"testing"
	"time"

	"flowgraph/internal/config"
	"flowgraph/internal/testutil"
)

const sampleCSV = `Date,From Account,From Sender,To Account,To Recipient,Amount in Euro
2023-01-01,A001,John,A002,ABC Corp,500.00
2023-02-01,A001,John,A002,ABC Corp,250.00
2023-03-01,B001,Jane,A001,John,75.00
2023-04-01,A001,John,A002,ABC Corp,-10.00
`

// setupTestServer initializes dependencies against temp directories
// and returns a test server
func setupTestServer(t *testing.T) *testutil.TestServer {
	t.Helper()

	dataDir := t.TempDir()
	c := &config.Config{
		ListenAddr:         ":0",
		DataDirectory:      dataDir,
		UploadsDirectory:   dataDir + "/uploads",
		SnapshotsDirectory: dataDir + "/saved_states",
		RetentionWindow:    24 * time.Hour,
		CleanupInterval:    time.Hour,
		MaxUploadBytes:     10 << 20,
	}

	if err := setupDependencies(c); err != nil {
		t.Fatalf("Failed to setup dependencies: %v", err)
	}

	return testutil.NewTestServer(t, setupRouter())
}

// uploadCSV posts a ledger and returns the dataset handle
func uploadCSV(t *testing.T, ts *testutil.TestServer, csv string) string {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("csv_file", "ledger.csv")
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	if _, err := part.Write([]byte(csv)); err != nil {
		t.Fatalf("writing form file failed: %v", err)
	}
	mw.Close()

	resp := ts.POST("/upload", mw.FormDataContentType(), &buf)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d: %s", resp.StatusCode, testutil.ReadBody(t, resp))
	}

	var result struct {
		DatasetID string `json:"dataset_id"`
		Rows      int    `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decoding upload response: %v", err)
	}
	resp.Body.Close()

	if result.DatasetID == "" {
		t.Fatal("upload returned no dataset_id")
	}
	return result.DatasetID
}

func TestHealthEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	resp := ts.GET("/api/health")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeJSON().
		Contains(`"status":"ok"`)
}

func TestVersionEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	resp := ts.GET("/api/version")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeJSON().
		Contains(`"version"`)
}

func TestUploadNormalizesLedger(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("csv_file", "ledger.csv")
	part.Write([]byte(sampleCSV))
	mw.Close()

	resp := ts.POST("/upload", mw.FormDataContentType(), &buf)
	body := testutil.ReadBody(t, resp)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}

	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	// The -10.00 row is dropped during normalization
	if rows := result["rows"].(float64); rows != 3 {
		t.Errorf("rows = %v, want 3", rows)
	}
}

func TestUploadRejectsBadSchema(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("csv_file", "bad.csv")
	part.Write([]byte("Date,Amount\n2023-01-01,5\n"))
	mw.Close()

	resp := ts.POST("/upload", mw.FormDataContentType(), &buf)
	testutil.AssertResponse(t, resp).
		Status(http.StatusUnprocessableEntity).
		Contains("missing required column")
}

func TestGraphQuery(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	id := uploadCSV(t, ts, sampleCSV)

	resp := ts.PostForm("/datasets/"+id+"/graph", url.Values{
		"display_amounts":    {"true"},
		"proportional_edges": {"true"},
	})
	body := testutil.ReadBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}

	var result struct {
		GraphData struct {
			Nodes []map[string]interface{} `json:"nodes"`
			Edges []map[string]interface{} `json:"edges"`
		} `json:"graph_data"`
		SummaryStats struct {
			TotalTransactions  int     `json:"total_transactions"`
			LargestTransaction float64 `json:"largest_transaction"`
			MostFrequentSender string  `json:"most_frequent_sender"`
		} `json:"summary_stats"`
	}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if len(result.GraphData.Nodes) != 3 {
		t.Errorf("nodes = %d, want 3", len(result.GraphData.Nodes))
	}
	if len(result.GraphData.Edges) != 2 {
		t.Errorf("edges = %d, want 2", len(result.GraphData.Edges))
	}
	if result.SummaryStats.TotalTransactions != 3 {
		t.Errorf("total_transactions = %d, want 3", result.SummaryStats.TotalTransactions)
	}
	if result.SummaryStats.LargestTransaction != 750 {
		t.Errorf("largest_transaction = %v, want 750", result.SummaryStats.LargestTransaction)
	}
	if result.SummaryStats.MostFrequentSender != "John (A001)" {
		t.Errorf("most_frequent_sender = %q", result.SummaryStats.MostFrequentSender)
	}
}

func TestGraphQueryMinAmountBound(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	id := uploadCSV(t, ts, sampleCSV)

	resp := ts.PostForm("/datasets/"+id+"/graph", url.Values{
		"min_amount": {"10000"},
	})
	body := testutil.ReadBody(t, resp)

	var result struct {
		SummaryStats struct {
			MostFrequentSender string `json:"most_frequent_sender"`
		} `json:"summary_stats"`
		Edges []interface{} `json:"edges"`
	}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(result.Edges) != 0 {
		t.Errorf("edges = %v, want empty", result.Edges)
	}
	if result.SummaryStats.MostFrequentSender != "N/A" {
		t.Errorf("most_frequent_sender = %q, want N/A", result.SummaryStats.MostFrequentSender)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	id := uploadCSV(t, ts, sampleCSV)

	resp := ts.PostForm("/datasets/"+id+"/history", url.Values{
		"from_label": {"John (A001)"},
		"to_label":   {"ABC Corp (A002)"},
	})
	body := testutil.ReadBody(t, resp)

	var result struct {
		Transactions []struct {
			Amount float64 `json:"amount"`
		} `json:"transactions"`
	}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(result.Transactions) != 2 {
		t.Errorf("transactions = %d, want 2", len(result.Transactions))
	}
}

func TestEntityEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	id := uploadCSV(t, ts, sampleCSV)

	resp := ts.PostForm("/datasets/"+id+"/entity", url.Values{
		"label": {"John (A001)"},
	})
	body := testutil.ReadBody(t, resp)

	var result struct {
		Transactions []interface{} `json:"transactions"`
	}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	// John (A001) appears in all 3 surviving records
	if len(result.Transactions) != 3 {
		t.Errorf("transactions = %d, want 3", len(result.Transactions))
	}
}

func TestExportEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	id := uploadCSV(t, ts, sampleCSV)

	resp := ts.PostForm("/datasets/"+id+"/export", url.Values{
		"from_label": {"John (A001)"},
		"to_label":   {"ABC Corp (A002)"},
	})
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContentType("text/csv").
		Contains("Date,From,To,Amount (EUR)").
		Contains("2023-01-01,John (A001),ABC Corp (A002),500.00")
}

func TestSnapshotRoundTrip(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	snapshot := `{
		"nodes": [{"id": "John (A001)", "label": "John\n(A001)", "title": "John (A001)", "shape": "dot", "image": "", "x": null, "y": null}],
		"edges": [{"from": "John (A001)", "to": "ABC Corp", "label": "", "title": "Total Amount: 500,00 EUR", "value": 1, "amount": 500}],
		"filters": {"from_sender": "john", "min_amount": 0, "max_amount": null, "from_date": "2023-01-01T00:00:00Z", "to_date": "2023-12-31T00:00:00Z", "from_account": "", "to_account": "", "to_recipient": ""}
	}`

	resp := ts.POST("/snapshots", "application/json", bytes.NewReader([]byte(snapshot)))
	body := testutil.ReadBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save status = %d: %s", resp.StatusCode, body)
	}

	var saved struct {
		SnapshotID string `json:"snapshot_id"`
	}
	if err := json.Unmarshal([]byte(body), &saved); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	resp = ts.GET("/snapshots/" + saved.SnapshotID)
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeJSON().
		Contains(`"from_date":"2023-01-01T00:00:00Z"`).
		Contains(`"Total Amount: 500,00 EUR"`)
}

func TestSnapshotNotFound(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	resp := ts.GET("/snapshots/00000000-0000-0000-0000-000000000000")
	testutil.AssertResponse(t, resp).Status(http.StatusNotFound)
}

func TestUnknownDataset(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	resp := ts.PostForm("/datasets/does-not-exist/graph", url.Values{})
	testutil.AssertResponse(t, resp).
		Status(http.StatusNotFound).
		Contains("not found")
}

func TestDatasetDelete(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	id := uploadCSV(t, ts, sampleCSV)

	req, err := http.NewRequest(http.MethodDelete, ts.BaseURL+"/datasets/"+id, nil)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE failed: %v", err)
	}
	testutil.AssertResponse(t, resp).StatusOK()

	resp = ts.PostForm("/datasets/"+id+"/graph", url.Values{})
	testutil.AssertResponse(t, resp).Status(http.StatusNotFound)
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/term"

	"flowgraph/internal/config"
	"flowgraph/internal/models"
	"flowgraph/internal/services/dataloader"
	"flowgraph/internal/services/dataset"
	"flowgraph/internal/services/engine"
	"flowgraph/internal/services/graph"
	"flowgraph/internal/services/stats"
	"flowgraph/internal/services/storage"
	"flowgraph/internal/version"
)

var (
	cfg       *config.Config
	registry  *dataset.Registry
	uploads   *storage.Store
	snapshots *storage.Store
	statsSvc  *stats.Service
)

func main() {
	cfg = config.Load()
	log.Printf("Starting flowgraph server on %s (%s)", cfg.ListenAddr, version.Get())
	log.Printf("Data directory: %s", cfg.DataDirectory)

	if err := setupDependencies(cfg); err != nil {
		log.Fatalf("Setup failed: %v", err)
	}

	unlockStores()

	go housekeeping()

	r := setupRouter()

	log.Printf("Server starting on %s", cfg.ListenAddr)
	log.Fatal(http.ListenAndServe(cfg.ListenAddr, r))
}

// setupDependencies wires storage, the dataset registry and services
// for the given configuration
func setupDependencies(c *config.Config) error {
	cfg = c

	var err error
	uploads, err = storage.New(c.UploadsDirectory)
	if err != nil {
		return fmt.Errorf("opening upload storage: %w", err)
	}
	snapshots, err = storage.New(c.SnapshotsDirectory)
	if err != nil {
		return fmt.Errorf("opening snapshot storage: %w", err)
	}

	registry = dataset.NewRegistry()
	statsSvc = stats.New()
	return nil
}

// setupRouter builds the chi router with all routes and middleware
func setupRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Post("/upload", handleUpload)
	r.Get("/datasets/{id}/options", handleOptions)
	r.Post("/datasets/{id}/graph", handleGraph)
	r.Post("/datasets/{id}/history", handleHistory)
	r.Post("/datasets/{id}/entity", handleEntity)
	r.Post("/datasets/{id}/transactions", handleTransactions)
	r.Post("/datasets/{id}/export", handleExport)
	r.Delete("/datasets/{id}", handleDatasetDelete)

	r.Post("/snapshots", handleSnapshotSave)
	r.Get("/snapshots/{id}", handleSnapshotLoad)

	r.Get("/api/health", handleHealth)
	r.Get("/api/version", handleVersion)

	return r
}

// unlockStores prompts for (or reads from config) the encryption
// password when either store directory is marked encrypted
func unlockStores() {
	for _, store := range []*storage.Store{uploads, snapshots} {
		if !store.IsEncrypted() || store.IsUnlocked() {
			continue
		}

		password := cfg.StoragePassword
		if password == "" {
			fmt.Fprintf(os.Stderr, "Password for %s: ", store.BaseDir())
			raw, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				log.Fatalf("Reading password: %v", err)
			}
			password = string(raw)
		}

		if err := store.Unlock(password); err != nil {
			log.Fatalf("Unlocking %s: %v", store.BaseDir(), err)
		}
		log.Printf("Unlocked encrypted storage at %s", store.BaseDir())
	}
}

// housekeeping periodically evicts idle datasets and stale files
func housekeeping() {
	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		if n := registry.EvictIdle(cfg.RetentionWindow); n > 0 {
			log.Printf("Evicted %d idle datasets", n)
		}
		cleanDir(uploads, "*.csv")
		cleanDir(snapshots, "*.json")
	}
}

// cleanDir removes files older than the retention window
func cleanDir(store *storage.Store, pattern string) {
	files, err := store.Glob(pattern)
	if err != nil {
		return
	}

	cutoff := time.Now().Add(-cfg.RetentionWindow)
	for _, path := range files {
		info, err := store.Stat(path)
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := store.Remove(path); err == nil {
			log.Printf("Removed stale file: %s", filepath.Base(path))
		}
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, version.Get())
}

func handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(cfg.MaxUploadBytes); err != nil {
		http.Error(w, "File too large", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("csv_file")
	if err != nil {
		http.Error(w, "Missing csv_file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		http.Error(w, "Only CSV files are allowed", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading file", http.StatusInternalServerError)
		return
	}

	loader := dataloader.New()
	records, err := loader.Load(strings.NewReader(string(data)))
	if err != nil {
		log.Printf("Rejected upload %s: %v", header.Filename, err)
		http.Error(w, "Invalid ledger: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	// Keep the raw upload for the retention window; its name carries
	// the dataset handle so housekeeping stays trivial
	id := registry.Add(records)
	destPath := filepath.Join(cfg.UploadsDirectory, id+".csv")
	if err := uploads.WriteFile(destPath, data, 0644); err != nil {
		log.Printf("Warning: could not persist upload: %v", err)
	}

	log.Printf("Loaded dataset %s from %s (%d records)", id, header.Filename, records.Len())

	writeJSON(w, map[string]interface{}{
		"dataset_id":    id,
		"rows":          records.Len(),
		"from_accounts": records.UniqueFromAccounts(),
		"to_accounts":   records.UniqueToAccounts(),
		"senders":       records.UniqueSenders(),
		"recipients":    records.UniqueRecipients(),
	})
}

func handleOptions(w http.ResponseWriter, r *http.Request) {
	eng, ok := datasetFor(w, r)
	if !ok {
		return
	}

	data := eng.Data()
	writeJSON(w, map[string]interface{}{
		"from_accounts": data.UniqueFromAccounts(),
		"to_accounts":   data.UniqueToAccounts(),
		"senders":       data.UniqueSenders(),
		"recipients":    data.UniqueRecipients(),
	})
}

func handleGraph(w http.ResponseWriter, r *http.Request) {
	eng, ok := datasetFor(w, r)
	if !ok {
		return
	}

	criteria := parseCriteria(r)
	displayAmounts := r.FormValue("display_amounts") == "true"
	enablePhysics := r.FormValue("enable_physics") != "false"
	proportionalEdges := r.FormValue("proportional_edges") == "true"

	edges := eng.Filter(criteria)

	builder := graph.NewBuilder()
	builder.Build(edges)
	builder.Customize(displayAmounts, proportionalEdges)
	builder.TogglePhysics(enablePhysics)

	writeJSON(w, map[string]interface{}{
		"graph_data":    builder.Model(),
		"summary_stats": statsSvc.Summarize(edges),
		"edges":         edges,
	})
}

func handleHistory(w http.ResponseWriter, r *http.Request) {
	eng, ok := datasetFor(w, r)
	if !ok {
		return
	}

	fromLabel := r.FormValue("from_label")
	toLabel := r.FormValue("to_label")
	if fromLabel == "" || toLabel == "" {
		http.Error(w, "from_label and to_label are required", http.StatusBadRequest)
		return
	}

	records := eng.History(fromLabel, toLabel, parseCriteria(r))
	writeJSON(w, map[string]interface{}{"transactions": records})
}

func handleEntity(w http.ResponseWriter, r *http.Request) {
	eng, ok := datasetFor(w, r)
	if !ok {
		return
	}

	label := r.FormValue("label")
	if label == "" {
		http.Error(w, "label is required", http.StatusBadRequest)
		return
	}

	records := eng.ForEntity(label)
	writeJSON(w, map[string]interface{}{"transactions": records})
}

func handleTransactions(w http.ResponseWriter, r *http.Request) {
	eng, ok := datasetFor(w, r)
	if !ok {
		return
	}

	records := selectRecords(eng, r)
	writeJSON(w, map[string]interface{}{"transactions": records})
}

func handleExport(w http.ResponseWriter, r *http.Request) {
	eng, ok := datasetFor(w, r)
	if !ok {
		return
	}

	records := selectRecords(eng, r)

	filename := "filtered_transactions.csv"
	if r.FormValue("use_filters") != "true" {
		filename = fmt.Sprintf("transactions_%s_to_%s.csv",
			sanitizeFilename(r.FormValue("from_label")),
			sanitizeFilename(r.FormValue("to_label")))
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)

	if err := engine.WriteCSV(w, records); err != nil {
		log.Printf("Error writing CSV export: %v", err)
	}
}

// selectRecords picks between the two raw-record views: the records
// behind all filtered pairs, or the pairwise history of two labels
func selectRecords(eng *engine.Engine, r *http.Request) []models.TransactionRecord {
	if r.FormValue("use_filters") == "true" {
		return eng.RecordsForPairs(parseCriteria(r))
	}
	return eng.History(r.FormValue("from_label"), r.FormValue("to_label"), models.DefaultCriteria())
}

func handleDatasetDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	registry.Remove(id)

	path := filepath.Join(cfg.UploadsDirectory, id+".csv")
	if _, err := uploads.Stat(path); err == nil {
		uploads.Remove(path)
	}

	writeJSON(w, map[string]bool{"deleted": true})
}

func handleSnapshotSave(w http.ResponseWriter, r *http.Request) {
	var snap models.GraphSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		http.Error(w, "Invalid snapshot document: "+err.Error(), http.StatusBadRequest)
		return
	}

	id := uuid.New().String()
	path := filepath.Join(cfg.SnapshotsDirectory, id+".json")

	if err := graph.SaveState(snapshots, path, snap); err != nil {
		log.Printf("Error saving snapshot: %v", err)
		http.Error(w, "Error saving snapshot", http.StatusInternalServerError)
		return
	}

	log.Printf("Saved snapshot %s (%d nodes, %d edges)", id, len(snap.Nodes), len(snap.Edges))
	writeJSON(w, map[string]string{"snapshot_id": id})
}

func handleSnapshotLoad(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		http.Error(w, "Invalid snapshot id", http.StatusBadRequest)
		return
	}

	path := filepath.Join(cfg.SnapshotsDirectory, id+".json")
	if _, err := snapshots.Stat(path); os.IsNotExist(err) {
		http.Error(w, "Snapshot not found", http.StatusNotFound)
		return
	}

	snap, err := graph.LoadState(snapshots, path)
	if err != nil {
		log.Printf("Error loading snapshot %s: %v", id, err)
		http.Error(w, "Error loading snapshot", http.StatusInternalServerError)
		return
	}

	writeJSON(w, snap)
}

// datasetFor resolves the dataset handle in the URL, writing a 404
// when the handle is unknown or already evicted
func datasetFor(w http.ResponseWriter, r *http.Request) (*engine.Engine, bool) {
	id := chi.URLParam(r, "id")
	eng, ok := registry.Get(id)
	if !ok {
		http.Error(w, "Dataset not found or expired", http.StatusNotFound)
		return nil, false
	}
	return eng, true
}

// parseCriteria reads filter parameters from form values, falling back
// to the match-all defaults
func parseCriteria(r *http.Request) models.FilterCriteria {
	c := models.DefaultCriteria()

	c.FromAccount = r.FormValue("from_account")
	c.ToAccount = r.FormValue("to_account")
	c.FromSender = r.FormValue("from_sender")
	c.ToRecipient = r.FormValue("to_recipient")

	if v := r.FormValue("min_amount"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.MinAmount = f
		}
	}
	if v := r.FormValue("max_amount"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.MaxAmount = f
		}
	}
	if v := r.FormValue("from_date"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			c.FromDate = t
		}
	}
	if v := r.FormValue("to_date"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			c.ToDate = t
		}
	}

	return c
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// sanitizeFilename keeps download names safe for a header value
func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}

package graph

import (
	"encoding/json"
	"fmt"

	"flowgraph/internal/models"
	"flowgraph/internal/services/storage"
)

// SaveState persists a graph snapshot as one JSON document through the
// store, so the write is atomic and encrypted when the store is.
func SaveState(store *storage.Store, path string, snap models.GraphSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return store.WriteFile(path, data, 0644)
}

// LoadState restores a snapshot. Filter fields reconstitute by their
// declared types: date-valued fields are parsed as ISO-8601 dates
// because the schema says they are dates, not because a string looked
// like one.
func LoadState(store *storage.Store, path string) (models.GraphSnapshot, error) {
	var snap models.GraphSnapshot

	data, err := store.ReadFile(path)
	if err != nil {
		return snap, fmt.Errorf("reading snapshot: %w", err)
	}

	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("decoding snapshot: %w", err)
	}

	return snap, nil
}

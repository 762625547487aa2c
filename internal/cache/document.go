package cache

import (
	"time"

	"candlefuse/internal/memorystore"
	"candlefuse/internal/snapshot"
)

// Document is the single cached analysis document.
type Document struct {
	Timestamp time.Time                      `json:"timestamp"`
	RunID     string                         `json:"run_id,omitempty"`
	Snapshots []snapshot.Snapshot            `json:"snapshots"`
	Datasets  map[string]memorystore.Summary `json:"datasets"`
	Failed    []string                       `json:"failed,omitempty"` // coins whose dataset was not refreshed
}

// Fresh reports whether the document is younger than ttl at now.
func (d *Document) Fresh(now time.Time, ttl time.Duration) bool {
	return d != nil && now.Sub(d.Timestamp) < ttl
}

// Package snapshot captures point-in-time views of the task graph and
// computes diffs between them.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Snapshot represents a point-in-time capture of the task graph.
type Snapshot struct {
	ID           string            `json:"id"`
	ParentID     string            `json:"parent_id,omitempty"`
	Tag          string            `json:"tag,omitempty"`
	Description  string            `json:"description,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	ContentHash  string            `json:"content_hash"`
	HealthScore  float64           `json:"health_score"`
	StatusCounts map[string]int    `json:"status_counts"`
	TaskManifest []TaskEntry       `json:"task_manifest"`
	EdgeManifest []EdgeEntry       `json:"edge_manifest"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// TaskEntry records one task with a hash of its full property state.
type TaskEntry struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	StateHash string `json:"state_hash"`
	Size      int    `json:"size"`
}

// EdgeEntry records one relationship in the graph.
type EdgeEntry struct {
	From string `json:"from"`
	To   string `json:"to"`
	Type string `json:"type"`
}

// TaskState is the serialized property state of one task.
type TaskState struct {
	TaskID  string
	Content []byte
}

// SnapshotIndex is a lightweight listing of all snapshots for fast lookup.
type SnapshotIndex struct {
	Snapshots []SnapshotSummary `json:"snapshots"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// SnapshotSummary is the minimal info for listing snapshots.
type SnapshotSummary struct {
	ID          string    `json:"id"`
	ParentID    string    `json:"parent_id,omitempty"`
	Tag         string    `json:"tag,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	HealthScore float64   `json:"health_score"`
	TaskCount   int       `json:"task_count"`
	EdgeCount   int       `json:"edge_count"`
}

// ContentHash computes SHA-256 of content.
func ContentHash(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

func computeManifestHash(tasks []TaskEntry, edges []EdgeEntry) string {
	h := sha256.New()
	for _, t := range tasks {
		h.Write([]byte(t.ID))
		h.Write([]byte(t.StateHash))
	}
	for _, e := range edges {
		h.Write([]byte(e.From))
		h.Write([]byte(e.Type))
		h.Write([]byte(e.To))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func generateSnapshotID(snap *Snapshot) string {
	data, _ := json.Marshal(struct {
		Time    int64  `json:"t"`
		Content string `json:"c"`
	}{
		Time:    snap.CreatedAt.UnixNano(),
		Content: snap.ContentHash,
	})
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:8]) // Short 16-char hex ID
}

// Summary returns a lightweight summary of this snapshot.
func (s *Snapshot) Summary() SnapshotSummary {
	return SnapshotSummary{
		ID:          s.ID,
		ParentID:    s.ParentID,
		Tag:         s.Tag,
		CreatedAt:   s.CreatedAt,
		HealthScore: s.HealthScore,
		TaskCount:   len(s.TaskManifest),
		EdgeCount:   len(s.EdgeManifest),
	}
}

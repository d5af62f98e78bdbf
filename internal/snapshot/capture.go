package snapshot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/plusplusoneplusplus/taskgraph/internal/graph"
)

// Capture queries. Tests key canned results on these.
const (
	QuerySnapshotTasks = "MATCH (t:`Task`) RETURN t.id AS id, properties(t) AS properties"
	QuerySnapshotEdges = "MATCH (a:`Task`)-[e]->(b:`Task`) RETURN a.id AS source, b.id AS target, type(e) AS type"
)

// Capture reads the current task graph and builds a snapshot plus the
// per-task state blobs to persist alongside it.
func Capture(ctx context.Context, exec graph.QueryExecutor) (*Snapshot, []TaskState, error) {
	snap := &Snapshot{
		CreatedAt:    time.Now(),
		StatusCounts: make(map[string]int),
		Metadata:     make(map[string]string),
	}

	tasks, err := exec.Execute(ctx, QuerySnapshotTasks, nil)
	if err != nil {
		return nil, nil, graph.WrapOperationError("snapshot", err)
	}

	var states []TaskState
	for _, rec := range tasks.Records {
		id := rec.StringValue("id")
		if id == "" {
			continue
		}
		props, _ := rec["properties"].(map[string]any)
		content := serializeState(props)
		status, _ := props["status"].(string)

		snap.TaskManifest = append(snap.TaskManifest, TaskEntry{
			ID:        id,
			Status:    status,
			StateHash: ContentHash(content),
			Size:      len(content),
		})
		states = append(states, TaskState{TaskID: id, Content: content})
		if status != "" {
			snap.StatusCounts[status]++
		}
	}
	sort.Slice(snap.TaskManifest, func(i, j int) bool {
		return snap.TaskManifest[i].ID < snap.TaskManifest[j].ID
	})
	sort.Slice(states, func(i, j int) bool {
		return states[i].TaskID < states[j].TaskID
	})

	edges, err := exec.Execute(ctx, QuerySnapshotEdges, nil)
	if err != nil {
		return nil, nil, graph.WrapOperationError("snapshot", err)
	}
	for _, rec := range edges.Records {
		from := rec.StringValue("source")
		to := rec.StringValue("target")
		if from == "" || to == "" {
			continue
		}
		snap.EdgeManifest = append(snap.EdgeManifest, EdgeEntry{
			From: from,
			To:   to,
			Type: rec.StringValue("type"),
		})
	}
	sort.Slice(snap.EdgeManifest, func(i, j int) bool {
		a, b := snap.EdgeManifest[i], snap.EdgeManifest[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		return a.Type < b.Type
	})

	snap.ContentHash = computeManifestHash(snap.TaskManifest, snap.EdgeManifest)
	snap.ID = generateSnapshotID(snap)

	return snap, states, nil
}

// serializeState renders task properties as sorted "key: value" lines, one
// per property, so property changes show up as line diffs.
func serializeState(props map[string]any) []byte {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, props[k])
	}
	return []byte(b.String())
}

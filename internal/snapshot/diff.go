package snapshot

import (
	"fmt"
	"sort"
	"strings"
)

// DiffType indicates the kind of change.
type DiffType string

const (
	DiffAdded    DiffType = "added"
	DiffRemoved  DiffType = "removed"
	DiffModified DiffType = "modified"
)

// SnapshotDiff represents the complete diff between two snapshots.
type SnapshotDiff struct {
	OldID       string      `json:"old_id"`
	NewID       string      `json:"new_id"`
	OldTag      string      `json:"old_tag,omitempty"`
	NewTag      string      `json:"new_tag,omitempty"`
	HealthDelta float64     `json:"health_delta"`
	TaskDiffs   []TaskDiff  `json:"task_diffs"`
	EdgeDiffs   []EdgeDiff  `json:"edge_diffs"`
	Summary     DiffSummary `json:"summary"`
}

// TaskDiff represents a change to a single task.
type TaskDiff struct {
	TaskID        string     `json:"task_id"`
	Type          DiffType   `json:"type"`
	OldHash       string     `json:"old_hash,omitempty"`
	NewHash       string     `json:"new_hash,omitempty"`
	StatusChanged bool       `json:"status_changed"`
	OldStatus     string     `json:"old_status,omitempty"`
	NewStatus     string     `json:"new_status,omitempty"`
	HunkCount     int        `json:"hunk_count,omitempty"`
	LinesAdded    int        `json:"lines_added,omitempty"`
	LinesRemoved  int        `json:"lines_removed,omitempty"`
	Hunks         []DiffHunk `json:"hunks,omitempty"`
}

// EdgeDiff represents an added or removed relationship.
type EdgeDiff struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Kind string   `json:"kind"`
	Type DiffType `json:"type"`
}

// DiffHunk represents a contiguous block of changed property lines.
type DiffHunk struct {
	OldStart int        `json:"old_start"`
	OldCount int        `json:"old_count"`
	NewStart int        `json:"new_start"`
	NewCount int        `json:"new_count"`
	Lines    []DiffLine `json:"lines"`
}

// DiffLine is a single line in a diff hunk.
type DiffLine struct {
	Type    string `json:"type"` // "context", "add", "remove"
	Content string `json:"content"`
	OldNum  int    `json:"old_num,omitempty"`
	NewNum  int    `json:"new_num,omitempty"`
}

// DiffSummary provides aggregate stats about the diff.
type DiffSummary struct {
	TasksAdded     int  `json:"tasks_added"`
	TasksRemoved   int  `json:"tasks_removed"`
	TasksModified  int  `json:"tasks_modified"`
	StatusChanges  int  `json:"status_changes"`
	EdgesAdded     int  `json:"edges_added"`
	EdgesRemoved   int  `json:"edges_removed"`
	HealthImproved bool `json:"health_improved"`
}

// Diff computes the differences between two snapshots.
// If store is provided, it also computes property-level hunks for
// modified tasks.
func Diff(old, new *Snapshot, store *Store) (*SnapshotDiff, error) {
	d := &SnapshotDiff{
		OldID:       old.ID,
		NewID:       new.ID,
		OldTag:      old.Tag,
		NewTag:      new.Tag,
		HealthDelta: new.HealthScore - old.HealthScore,
	}

	d.TaskDiffs = diffTasks(old.TaskManifest, new.TaskManifest)
	d.EdgeDiffs = diffEdges(old.EdgeManifest, new.EdgeManifest)

	if store != nil {
		if err := enrichWithStateDiffs(d, old, new, store); err != nil {
			// Non-fatal: we still have task-level diffs
			_ = err
		}
	}

	d.Summary = computeSummary(d)

	return d, nil
}

func diffTasks(oldTasks, newTasks []TaskEntry) []TaskDiff {
	oldMap := make(map[string]TaskEntry, len(oldTasks))
	for _, t := range oldTasks {
		oldMap[t.ID] = t
	}
	newMap := make(map[string]TaskEntry, len(newTasks))
	for _, t := range newTasks {
		newMap[t.ID] = t
	}

	var diffs []TaskDiff

	for id, oldEntry := range oldMap {
		if newEntry, ok := newMap[id]; ok {
			if oldEntry.StateHash != newEntry.StateHash {
				td := TaskDiff{
					TaskID:  id,
					Type:    DiffModified,
					OldHash: oldEntry.StateHash,
					NewHash: newEntry.StateHash,
				}
				if oldEntry.Status != newEntry.Status {
					td.StatusChanged = true
					td.OldStatus = oldEntry.Status
					td.NewStatus = newEntry.Status
				}
				diffs = append(diffs, td)
			}
		} else {
			diffs = append(diffs, TaskDiff{
				TaskID:    id,
				Type:      DiffRemoved,
				OldHash:   oldEntry.StateHash,
				OldStatus: oldEntry.Status,
			})
		}
	}

	for id, newEntry := range newMap {
		if _, ok := oldMap[id]; !ok {
			diffs = append(diffs, TaskDiff{
				TaskID:    id,
				Type:      DiffAdded,
				NewHash:   newEntry.StateHash,
				NewStatus: newEntry.Status,
			})
		}
	}

	sort.Slice(diffs, func(i, j int) bool {
		return diffs[i].TaskID < diffs[j].TaskID
	})

	return diffs
}

func diffEdges(oldEdges, newEdges []EdgeEntry) []EdgeDiff {
	key := func(e EdgeEntry) string { return e.From + "\x00" + e.To + "\x00" + e.Type }

	oldSet := make(map[string]EdgeEntry, len(oldEdges))
	for _, e := range oldEdges {
		oldSet[key(e)] = e
	}
	newSet := make(map[string]EdgeEntry, len(newEdges))
	for _, e := range newEdges {
		newSet[key(e)] = e
	}

	var diffs []EdgeDiff
	for k, e := range oldSet {
		if _, ok := newSet[k]; !ok {
			diffs = append(diffs, EdgeDiff{From: e.From, To: e.To, Kind: e.Type, Type: DiffRemoved})
		}
	}
	for k, e := range newSet {
		if _, ok := oldSet[k]; !ok {
			diffs = append(diffs, EdgeDiff{From: e.From, To: e.To, Kind: e.Type, Type: DiffAdded})
		}
	}

	sort.Slice(diffs, func(i, j int) bool {
		a, b := diffs[i], diffs[j]
		if a.From != b.From {
			return a.From < b.From
		}
		return a.To < b.To
	})

	return diffs
}

func enrichWithStateDiffs(d *SnapshotDiff, old, new *Snapshot, store *Store) error {
	oldStates, err := store.LoadStates(old)
	if err != nil {
		return fmt.Errorf("load old states: %w", err)
	}
	newStates, err := store.LoadStates(new)
	if err != nil {
		return fmt.Errorf("load new states: %w", err)
	}

	oldContents := make(map[string]string, len(oldStates))
	for _, st := range oldStates {
		oldContents[st.TaskID] = string(st.Content)
	}
	newContents := make(map[string]string, len(newStates))
	for _, st := range newStates {
		newContents[st.TaskID] = string(st.Content)
	}

	for i, td := range d.TaskDiffs {
		if td.Type != DiffModified {
			continue
		}
		hunks := computeHunks(oldContents[td.TaskID], newContents[td.TaskID])
		d.TaskDiffs[i].Hunks = hunks
		d.TaskDiffs[i].HunkCount = len(hunks)
		for _, h := range hunks {
			for _, l := range h.Lines {
				switch l.Type {
				case "add":
					d.TaskDiffs[i].LinesAdded++
				case "remove":
					d.TaskDiffs[i].LinesRemoved++
				}
			}
		}
	}

	return nil
}

// computeHunks implements a simple LCS-based diff producing hunks.
func computeHunks(oldText, newText string) []DiffHunk {
	oldLines := strings.Split(oldText, "\n")
	newLines := strings.Split(newText, "\n")

	lcs := longestCommonSubsequence(oldLines, newLines)
	rawDiff := buildRawDiff(oldLines, newLines, lcs)

	return groupIntoHunks(rawDiff, 3)
}

type rawDiffLine struct {
	typ     string // "context", "add", "remove"
	content string
	oldNum  int
	newNum  int
}

func longestCommonSubsequence(a, b []string) [][]int {
	m, n := len(a), len(b)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else if dp[i-1][j] > dp[i][j-1] {
				dp[i][j] = dp[i-1][j]
			} else {
				dp[i][j] = dp[i][j-1]
			}
		}
	}
	return dp
}

func buildRawDiff(oldLines, newLines []string, dp [][]int) []rawDiffLine {
	var result []rawDiffLine
	i, j := len(oldLines), len(newLines)

	for i > 0 || j > 0 {
		if i > 0 && j > 0 && oldLines[i-1] == newLines[j-1] {
			result = append(result, rawDiffLine{
				typ: "context", content: oldLines[i-1],
				oldNum: i, newNum: j,
			})
			i--
			j--
		} else if j > 0 && (i == 0 || dp[i][j-1] >= dp[i-1][j]) {
			result = append(result, rawDiffLine{
				typ: "add", content: newLines[j-1],
				newNum: j,
			})
			j--
		} else {
			result = append(result, rawDiffLine{
				typ: "remove", content: oldLines[i-1],
				oldNum: i,
			})
			i--
		}
	}

	// Reverse (we built it backwards)
	for left, right := 0, len(result)-1; left < right; left, right = left+1, right-1 {
		result[left], result[right] = result[right], result[left]
	}

	return result
}

func groupIntoHunks(rawDiff []rawDiffLine, contextLines int) []DiffHunk {
	if len(rawDiff) == 0 {
		return nil
	}

	type region struct{ start, end int }
	var regions []region

	for i, line := range rawDiff {
		if line.typ != "context" {
			if len(regions) == 0 || i > regions[len(regions)-1].end+contextLines*2 {
				regions = append(regions, region{start: i, end: i})
			} else {
				regions[len(regions)-1].end = i
			}
		}
	}

	var hunks []DiffHunk
	for _, r := range regions {
		start := r.start - contextLines
		if start < 0 {
			start = 0
		}
		end := r.end + contextLines + 1
		if end > len(rawDiff) {
			end = len(rawDiff)
		}

		hunk := DiffHunk{}
		for k := start; k < end; k++ {
			line := rawDiff[k]
			dl := DiffLine{
				Type:    line.typ,
				Content: line.content,
				OldNum:  line.oldNum,
				NewNum:  line.newNum,
			}
			hunk.Lines = append(hunk.Lines, dl)
		}

		if len(hunk.Lines) > 0 {
			for _, l := range hunk.Lines {
				if l.OldNum > 0 {
					if hunk.OldStart == 0 || l.OldNum < hunk.OldStart {
						hunk.OldStart = l.OldNum
					}
					hunk.OldCount++
				}
				if l.NewNum > 0 {
					if hunk.NewStart == 0 || l.NewNum < hunk.NewStart {
						hunk.NewStart = l.NewNum
					}
					hunk.NewCount++
				}
			}
			hunks = append(hunks, hunk)
		}
	}

	return hunks
}

func computeSummary(d *SnapshotDiff) DiffSummary {
	s := DiffSummary{
		HealthImproved: d.HealthDelta > 0,
	}
	for _, td := range d.TaskDiffs {
		switch td.Type {
		case DiffAdded:
			s.TasksAdded++
		case DiffRemoved:
			s.TasksRemoved++
		case DiffModified:
			s.TasksModified++
		}
		if td.StatusChanged {
			s.StatusChanges++
		}
	}
	for _, ed := range d.EdgeDiffs {
		switch ed.Type {
		case DiffAdded:
			s.EdgesAdded++
		case DiffRemoved:
			s.EdgesRemoved++
		}
	}
	return s
}

// FormatDiff returns a human-readable string representation of the diff.
func FormatDiff(d *SnapshotDiff) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Diff: %s → %s\n", d.OldID, d.NewID))
	if d.OldTag != "" || d.NewTag != "" {
		sb.WriteString(fmt.Sprintf("Tags: %s → %s\n", d.OldTag, d.NewTag))
	}
	sb.WriteString(fmt.Sprintf("Health: %+.1f\n\n", d.HealthDelta))

	sb.WriteString(fmt.Sprintf("Tasks: +%d -%d ~%d (%d status changes)\n",
		d.Summary.TasksAdded, d.Summary.TasksRemoved, d.Summary.TasksModified, d.Summary.StatusChanges))
	sb.WriteString(fmt.Sprintf("Edges: +%d -%d\n\n",
		d.Summary.EdgesAdded, d.Summary.EdgesRemoved))

	for _, td := range d.TaskDiffs {
		icon := "~"
		switch td.Type {
		case DiffAdded:
			icon = "+"
		case DiffRemoved:
			icon = "-"
		}
		sb.WriteString(fmt.Sprintf("  %s %s", icon, td.TaskID))
		if td.StatusChanged {
			sb.WriteString(fmt.Sprintf(" [%s→%s]", td.OldStatus, td.NewStatus))
		}
		if td.Type == DiffModified && td.HunkCount > 0 {
			sb.WriteString(fmt.Sprintf(" (+%d/-%d in %d hunks)", td.LinesAdded, td.LinesRemoved, td.HunkCount))
		}
		sb.WriteString("\n")
	}

	if len(d.EdgeDiffs) > 0 {
		sb.WriteString("\nEdges:\n")
		for _, ed := range d.EdgeDiffs {
			icon := "+"
			if ed.Type == DiffRemoved {
				icon = "-"
			}
			sb.WriteString(fmt.Sprintf("  %s %s -[%s]-> %s\n", icon, ed.From, ed.Kind, ed.To))
		}
	}

	return sb.String()
}

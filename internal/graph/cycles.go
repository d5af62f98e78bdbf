package graph

import "strings"

// CanonicalCycle rotates a cycle (node-ID sequence without the repeated
// start) so the lexicographically smallest ID comes first. Cycles that are
// rotations of each other share one canonical form; every component that
// deduplicates cycles uses this rule.
func CanonicalCycle(ids []string) []string {
	if len(ids) == 0 {
		return ids
	}
	min := 0
	for i, id := range ids {
		if id < ids[min] {
			min = i
		}
	}
	out := make([]string, 0, len(ids))
	out = append(out, ids[min:]...)
	out = append(out, ids[:min]...)
	return out
}

// CycleKey returns a string identity for a cycle under the canonical
// rotation, usable as a map key for deduplication.
func CycleKey(ids []string) string {
	return strings.Join(CanonicalCycle(ids), "->")
}

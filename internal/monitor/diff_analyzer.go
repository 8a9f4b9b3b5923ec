// internal/monitor/diff_analyzer.go

package monitor

import "sort"

// pathSet is a set of slash-separated paths relative to the watch root.
type pathSet map[string]struct{}

func newPathSet(paths ...string) pathSet {
	s := make(pathSet, len(paths))
	for _, p := range paths {
		s[p] = struct{}{}
	}
	return s
}

func (s pathSet) has(p string) bool {
	_, ok := s[p]
	return ok
}

func (s pathSet) clone() pathSet {
	out := make(pathSet, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	return out
}

// pathDiff is the result of comparing a known set against a fresh listing.
// Both slices are sorted so a pass emits events in a stable order.
type pathDiff struct {
	added   []string
	removed []string
}

func (d pathDiff) hasChanges() bool {
	return len(d.added) > 0 || len(d.removed) > 0
}

// diffPaths returns current minus known as added and known minus current as
// removed. A path never lands in both.
func diffPaths(known, current pathSet) pathDiff {
	var diff pathDiff

	for p := range current {
		if !known.has(p) {
			diff.added = append(diff.added, p)
		}
	}
	for p := range known {
		if !current.has(p) {
			diff.removed = append(diff.removed, p)
		}
	}

	sort.Strings(diff.added)
	sort.Strings(diff.removed)
	return diff
}

package sdpmodel

import "sort"

// SortCandidates orders candidates by (foundation, username, component),
// the sort key the bridge layer relies on for dedup and comparison.
// The sort is stable, so it is idempotent when applied to an
// already-sorted list — one of the round-trip laws the core is
// tested against.
func SortCandidates(list []Candidate) {
	sort.SliceStable(list, func(i, j int) bool {
			a, b := list[i], list[j]
			if a.Foundation != b.Foundation {
				return a.Foundation < b.Foundation
			}
			if a.Username != b.Username {
				return a.Username < b.Username
			}
			return a.Component < b.Component
		})
}

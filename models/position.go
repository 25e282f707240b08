package models

import "math"

// Position returns the 1-based rank of the entry with the given id inside
// the sorted queue, or 0 when the entry is not present. The slice must
// already be ordered ascending by EnqueuedAt.
func Position(entries []QueueEntry, id string) int {
	for i, e := range entries {
		if e.ID == id {
			return i + 1
		}
	}
	return 0
}

// ETAMinutes estimates the wait in whole minutes for an entry at the
// given 1-based position: ceil(avgMs * peopleAhead / 60000).
func ETAMinutes(avgMs float64, position int) int {
	if position <= 1 || avgMs <= 0 {
		return 0
	}
	return int(math.Ceil(avgMs * float64(position-1) / 60000.0))
}

package scoreboard

import (
	"cmp"
	"slices"
)

// Apply merges e into entries under b's rule. It is the in-memory
// counterpart of Store.Merge, used by local fallback stores. entries is
// modified in place.
func Apply(b Board, entries []Entry, e Entry) ([]Entry, Outcome) {
	for i := range entries {
		cur := &entries[i]
		if cur.Key != e.Key {
			continue
		}
		if !b.Rule().Replaces(e.Score, cur.Score) {
			return entries, Ignored
		}
		cur.Score = e.Score
		cur.PlayedAt = e.PlayedAt
		if b.Variant == BestPerAttempt {
			cur.Name = e.Name
			cur.ClientID = e.ClientID
		}
		return entries, Updated
	}

	var last int64
	for _, cur := range entries {
		last = max(last, cur.Seq)
	}
	e.Seq = last + 1
	return append(entries, e), Inserted
}

// SortRanking orders entries by score descending. Equal scores keep
// storage order.
func SortRanking(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})
}

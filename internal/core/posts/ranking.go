package posts

import "sort"

// Less orders posts for display:
//  1. a ranked post comes before an unranked one
//  2. lower rank first
//  3. older post first
//
// Posts equal on all three keep their input order under SortRanked.
func Less(a, b PostView) bool {
	if a.HasRank != b.HasRank {
		return a.HasRank
	}
	if ka, kb := a.SortKey(), b.SortKey(); ka != kb {
		return ka < kb
	}
	return a.Created.Before(b.Created)
}

// SortRanked sorts posts in place by Less.
func SortRanked(posts []PostView) {
	sort.SliceStable(posts, func(i, j int) bool {
		return Less(posts[i], posts[j])
	})
}

// Package ranking assigns leaderboard ranks from points.
package ranking

import "sort"

// Standing is the minimal view of a leaderboard row needed for ranking.
type Standing struct {
	UserID int
	Points int
}

// Assign orders standings by points descending, breaking ties by user id
// ascending, and returns the 1-based rank of every user. The input slice is
// not modified.
func Assign(standings []Standing) map[int]int {
	ordered := Order(standings)
	ranks := make(map[int]int, len(ordered))
	for i, s := range ordered {
		ranks[s.UserID] = i + 1
	}
	return ranks
}

// Order returns a sorted copy of standings.
func Order(standings []Standing) []Standing {
	ordered := make([]Standing, len(standings))
	copy(ordered, standings)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Points != ordered[j].Points {
			return ordered[i].Points > ordered[j].Points
		}
		return ordered[i].UserID < ordered[j].UserID
	})
	return ordered
}

package velocity

import (
	"modbot/internal/app/ports"
	"slices"
	"time"
)

// FollowGaps sorts follows newest first and returns the time between each
// consecutive pair, newest pair first.
func FollowGaps(follows []ports.FollowData) []time.Duration {
	if len(follows) < 2 {
		return nil
	}

	sorted := slices.Clone(follows)
	slices.SortStableFunc(sorted, func(a, b ports.FollowData) int {
		return b.FollowedAt.Compare(a.FollowedAt)
	})

	gaps := make([]time.Duration, 0, len(sorted)-1)
	for i := 0; i+1 < len(sorted); i++ {
		gaps = append(gaps, sorted[i].FollowedAt.Sub(sorted[i+1].FollowedAt))
	}
	return gaps
}

// Median takes the middle of gaps by position, not by value. For an even
// count it averages the two central elements.
func Median(gaps []time.Duration) (time.Duration, bool) {
	n := len(gaps)
	switch {
	case n == 0:
		return 0, false
	case n%2 == 1:
		return gaps[n/2], true
	default:
		return (gaps[n/2-1] + gaps[n/2]) / 2, true
	}
}

// GapStatistic is undefined for accounts with fewer than two follows.
func GapStatistic(follows []ports.FollowData) (time.Duration, bool) {
	return Median(FollowGaps(follows))
}

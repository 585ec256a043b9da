package services

import (
	"math"
	"sort"

	"github.com/anjiri1684/smart_roommate/models"
)

const (
	NeutralCompatibility = 50

	ratingWeight = 0.60
	habitWeight  = 0.25
	ageWeight    = 0.15

	ratingAxes    = 3
	maxRatingDiff = 4
	maxAgeGap     = 10
)

// RoommateMatch is a candidate profile annotated with its score for the viewer.
type RoommateMatch struct {
	models.User
	Compatibility int `json:"compatibility"`
}

// CompatibilityScore returns how well candidate suits viewer as an integer in [50, 100].
// A nil viewer scores the neutral 50. Unset ratings and ages count as 0.
func CompatibilityScore(viewer, candidate *models.User) int {
	if viewer == nil || candidate == nil {
		return NeutralCompatibility
	}

	diffs := absDiff(orZero(viewer.Tidiness), orZero(candidate.Tidiness)) +
		absDiff(orZero(viewer.SocialEnergy), orZero(candidate.SocialEnergy)) +
		absDiff(orZero(viewer.NoiseTolerance), orZero(candidate.NoiseTolerance))
	ratingSimilarity := 1 - float64(diffs)/float64(ratingAxes*maxRatingDiff)

	habitSimilarity := jaccard(models.ParseHabits(viewer.Habits), models.ParseHabits(candidate.Habits))

	ageGap := clamp(float64(absDiff(orZero(viewer.Age), orZero(candidate.Age))), 0, maxAgeGap)
	ageSimilarity := 1 - ageGap/maxAgeGap

	weighted := clamp(ratingWeight*ratingSimilarity+habitWeight*habitSimilarity+ageWeight*ageSimilarity, 0, 1)
	return int(math.Round(50 + 50*weighted))
}

// RankRoommates scores every candidate for viewer and orders them best first.
// Candidates with equal scores keep their incoming order.
func RankRoommates(viewer *models.User, candidates []models.User) []RoommateMatch {
	matches := make([]RoommateMatch, 0, len(candidates))
	for i := range candidates {
		matches = append(matches, RoommateMatch{
			User:          candidates[i],
			Compatibility: CompatibilityScore(viewer, &candidates[i]),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Compatibility > matches[j].Compatibility
	})
	return matches
}

// jaccard is |a ∩ b| / |a ∪ b| over the distinct tags, 0 when both are empty.
func jaccard(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, h := range a {
		setA[h] = struct{}{}
	}
	union := make(map[string]struct{}, len(a)+len(b))
	for h := range setA {
		union[h] = struct{}{}
	}
	overlap := 0
	seenB := make(map[string]struct{}, len(b))
	for _, h := range b {
		if _, dup := seenB[h]; dup {
			continue
		}
		seenB[h] = struct{}{}
		if _, ok := setA[h]; ok {
			overlap++
		}
		union[h] = struct{}{}
	}
	if len(union) == 0 {
		return 0
	}
	return float64(overlap) / float64(len(union))
}

func orZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

package runtime

import (
	"sort"

	"github.com/aretw0/waypoint/pkg/domain"
)

// TopTraitCount is the number of highest scores reported in a result.
const TopTraitCount = 2

// BuildResult summarizes sc at the result node. It is pure: calling it twice
// on the same context yields equal results.
func BuildResult(node *domain.Node, sc *domain.SessionContext) domain.Result {
	res := domain.Result{
		Summary: domain.Summary{
			TopTraits: TopTraits(sc.Scores, TopTraitCount),
			Variables: domain.CloneValues(sc.Variables),
			Answers:   domain.CloneValues(sc.Answers),
		},
		Recommendations: domain.EmptyRecommendations(),
	}
	if node != nil {
		res.Renderer = node.Renderer
	}
	return res
}

// TopTraits ranks score keys by descending value, keeping insertion order
// among ties, and returns at most n keys.
func TopTraits(scores *domain.Scores, n int) []string {
	keys := scores.Keys()
	sort.SliceStable(keys, func(i, j int) bool {
		return scores.Get(keys[i]) > scores.Get(keys[j])
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	if keys == nil {
		keys = []string{}
	}
	return keys
}

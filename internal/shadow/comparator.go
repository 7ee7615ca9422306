package shadow

import (
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/lensfolio/agent-gateway/internal/agent"
)

// Matcher decides whether a legacy outcome and a dry-run orchestrator outcome
// agree. Pluggable so the heuristic can evolve without touching the runner.
type Matcher interface {
	Match(v1, v2 agent.TurnOutput) bool
}

// PlanTextMatcher is the default heuristic. When either side performed
// actions, the two turns match iff they performed exactly the same set of
// action names. For pure text turns it falls back to word-overlap similarity
// of the two replies.
type PlanTextMatcher struct {
	// SimilarityThreshold is the minimum Jaccard word overlap for two text
	// replies to count as a match. Zero means the 0.3 default.
	SimilarityThreshold float64
}

// Match implements Matcher.
func (m PlanTextMatcher) Match(v1, v2 agent.TurnOutput) bool {
	v1Plan := sortedNames(v1.Actions)
	v2Plan := make([]string, 0, len(v2.ToolCalls))
	for _, tc := range v2.ToolCalls {
		v2Plan = append(v2Plan, tc.Tool)
	}
	v2Plan = sortedNames(v2Plan)

	if len(v1Plan) > 0 || len(v2Plan) > 0 {
		return cmp.Equal(v1Plan, v2Plan)
	}

	threshold := m.SimilarityThreshold
	if threshold == 0 {
		threshold = 0.3
	}
	return textSimilarity(v1.Message, v2.Message) >= threshold
}

func sortedNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// textSimilarity is the Jaccard index over lowercase word sets.
func textSimilarity(a, b string) float64 {
	wordsA := wordSet(a)
	wordsB := wordSet(b)
	if len(wordsA) == 0 && len(wordsB) == 0 {
		return 1
	}
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}
	intersection := 0
	for w := range wordsA {
		if wordsB[w] {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,!?:;()[]\"'")
		if w != "" {
			set[w] = true
		}
	}
	return set
}

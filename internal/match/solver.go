package match

import "sort"

// Candidate is a scored pair meeting the minimum-score threshold, ready for
// assignment.
type Candidate struct {
	Left   string
	Right  string
	Score  float64
	Fields Fields
}

// Result is one assignment in the final matching.
type Result struct {
	Left   string
	Right  string
	Score  float64
	Fields Fields
}

// Solver computes a one-to-one matching over threshold-filtered candidates.
//
// Implementations must be deterministic: the same candidate list always
// yields the same matching. Solver selection happens once in Match, not
// per-call scattered through the pipeline.
type Solver interface {
	// Name identifies the solver in diagnostics and history records.
	Name() string

	// Solve returns a one-to-one matching. No ID may appear as an endpoint
	// of more than one result.
	Solve(candidates []Candidate) ([]Result, error)
}

// GreedySolver assigns pairs best-score-first in a single pass. It is the
// fallback for the Hungarian solver and the safety baseline Match always
// computes. O(P log P) in the candidate count.
type GreedySolver struct{}

func (GreedySolver) Name() string { return "greedy" }

// Solve sorts candidates by (-score, left, right) and claims each pair whose
// endpoints are both still free.
func (GreedySolver) Solve(candidates []Candidate) ([]Result, error) {
	ordered := make([]Candidate, len(candidates))
	copy(ordered, candidates)
	sortCandidates(ordered)

	leftTaken := make(map[string]bool, len(ordered))
	rightTaken := make(map[string]bool, len(ordered))

	var results []Result
	for _, c := range ordered {
		if leftTaken[c.Left] || rightTaken[c.Right] {
			continue
		}
		leftTaken[c.Left] = true
		rightTaken[c.Right] = true
		results = append(results, Result(c))
	}
	return results, nil
}

// sortCandidates orders by score descending, then left ID, then right ID.
// This is the canonical ordering for every candidate and result list in the
// package.
func sortCandidates(cs []Candidate) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Score != cs[j].Score {
			return cs[i].Score > cs[j].Score
		}
		if cs[i].Left != cs[j].Left {
			return cs[i].Left < cs[j].Left
		}
		return cs[i].Right < cs[j].Right
	})
}

// SortResults applies the canonical (-score, left, right) ordering.
func SortResults(rs []Result) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Score != rs[j].Score {
			return rs[i].Score > rs[j].Score
		}
		if rs[i].Left != rs[j].Left {
			return rs[i].Left < rs[j].Left
		}
		return rs[i].Right < rs[j].Right
	})
}

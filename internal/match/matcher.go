package match

import (
	"github.com/BoweyLou/obssync/internal/task"
)

// Default pipeline thresholds.
const (
	// DefaultPruneThreshold: above this many cross-product pairs, candidates
	// are pruned by due-date bucketing and top-K title similarity.
	DefaultPruneThreshold = 10_000

	// DefaultGreedyOnlyThreshold: above this many pairs, the Hungarian
	// solve is skipped entirely and greedy is used.
	DefaultGreedyOnlyThreshold = 250_000

	// DefaultTopK candidates kept per left-hand task when pruning.
	DefaultTopK = 50
)

// Options configures a matching run. The zero value of the threshold fields
// means "use the default"; MinScore zero means accept any positive score.
type Options struct {
	MinScore            float64
	DateToleranceDays   int
	PruneThreshold      int
	GreedyOnlyThreshold int
	TopK                int

	// Diagnostic hook for solver fallbacks. May be nil. A Hungarian failure
	// is recovered silently via greedy; this is the only place it surfaces.
	Logf func(format string, args ...any)
}

func (o Options) pruneThreshold() int {
	if o.PruneThreshold > 0 {
		return o.PruneThreshold
	}
	return DefaultPruneThreshold
}

func (o Options) greedyOnlyThreshold() int {
	if o.GreedyOnlyThreshold > 0 {
		return o.GreedyOnlyThreshold
	}
	return DefaultGreedyOnlyThreshold
}

func (o Options) logf(format string, args ...any) {
	if o.Logf != nil {
		o.Logf(format, args...)
	}
}

// Match computes the one-to-one matching between the two task sets.
//
// Pipeline:
//  1. Generate candidate pairs: the full cross-product, or the pruned
//     subset when the cross-product exceeds the prune threshold.
//  2. Score every candidate once; drop pairs below MinScore.
//  3. Always solve greedily - this is the baseline.
//  4. Unless the cross-product exceeds the greedy-only threshold, also
//     solve optimally (Hungarian). If the optimal solve fails, or produces
//     FEWER matches than greedy (a degenerate case of sentinel-padded cost
//     matrices), the greedy result is used instead.
//
// Postcondition: the returned matching never has fewer matches than the
// greedy baseline, and is sorted by (-score, leftID, rightID).
func Match(leftIDs, rightIDs []string, left, right map[string]*task.Task, opts Options) []Result {
	crossProduct := len(leftIDs) * len(rightIDs)
	if crossProduct == 0 {
		return nil
	}

	var pairs []Pair
	if crossProduct > opts.pruneThreshold() {
		pairs = PruneCandidates(leftIDs, rightIDs, left, right, opts.DateToleranceDays, opts.TopK)
	} else {
		pairs = AllPairs(leftIDs, rightIDs)
	}

	candidates := scorePairs(pairs, left, right, opts)
	if len(candidates) == 0 {
		return nil
	}

	greedy, _ := GreedySolver{}.Solve(candidates)

	if crossProduct > opts.greedyOnlyThreshold() {
		opts.logf("match: %d pairs exceeds greedy-only threshold, skipping optimal solve", crossProduct)
		SortResults(greedy)
		return greedy
	}

	optimal, err := HungarianSolver{}.Solve(candidates)
	if err != nil {
		opts.logf("match: hungarian solve failed (%v), falling back to greedy", err)
		SortResults(greedy)
		return greedy
	}
	if len(optimal) < len(greedy) {
		opts.logf("match: optimal result has %d matches < greedy %d, using greedy", len(optimal), len(greedy))
		SortResults(greedy)
		return greedy
	}
	return optimal
}

// scorePairs scores candidate pairs and keeps those meeting MinScore.
func scorePairs(pairs []Pair, left, right map[string]*task.Task, opts Options) []Candidate {
	candidates := make([]Candidate, 0, len(pairs))
	for _, p := range pairs {
		lt, ok := left[p.Left]
		if !ok {
			continue
		}
		rt, ok := right[p.Right]
		if !ok {
			continue
		}
		score, fields := Score(lt, rt, opts.DateToleranceDays)
		if score < opts.MinScore {
			continue
		}
		candidates = append(candidates, Candidate{
			Left:   p.Left,
			Right:  p.Right,
			Score:  score,
			Fields: fields,
		})
	}
	return candidates
}

package match

import (
	"sort"

	"github.com/BoweyLou/obssync/internal/task"
)

// Pair identifies one candidate edge in the bipartite graph.
type Pair struct {
	Left  string
	Right string
}

// PruneCandidates reduces the full cross-product to a tractable candidate
// subset for large corpora.
//
// Strategy:
//  1. Bucket right-hand tasks by due day ("" bucket for undated tasks).
//  2. For each left-hand task, union the buckets within ±toleranceDays of
//     its own due day (undated tasks get the undated bucket). If the union
//     comes up empty, fall back to a bounded sample of the right-hand side
//     so every left task has at least some candidates.
//  3. Rank the pool by title similarity alone and keep the top-K per left
//     task.
//
// The result is a strict subset of the cross-product. True matching
// optimality is traded for bounded runtime; Match compensates by always
// running the greedy baseline on the same candidates.
//
// Determinism: left IDs are processed in sorted order, bucket contents stay
// in sorted-right-ID order, and the fallback sample is the first topK right
// IDs in sorted order rather than a random draw.
func PruneCandidates(leftIDs, rightIDs []string, left, right map[string]*task.Task, toleranceDays, topK int) []Pair {
	if topK <= 0 {
		topK = DefaultTopK
	}

	sortedLeft := sortedCopy(leftIDs)
	sortedRight := sortedCopy(rightIDs)

	buckets := make(map[string][]string)
	for _, id := range sortedRight {
		day := right[id].DueDay()
		buckets[day] = append(buckets[day], id)
	}

	fallback := sortedRight
	if len(fallback) > topK {
		fallback = fallback[:topK]
	}

	var pairs []Pair
	for _, lid := range sortedLeft {
		lt := left[lid]

		var pool []string
		if due, ok := lt.DueDate(); ok {
			for d := -toleranceDays; d <= toleranceDays; d++ {
				key := due.AddDate(0, 0, d).Format(task.DueLayout)
				pool = append(pool, buckets[key]...)
			}
		} else {
			pool = buckets[""]
		}
		if len(pool) == 0 {
			pool = fallback
		}

		pairs = append(pairs, topKByTitle(lt, lid, pool, right, topK)...)
	}
	return pairs
}

// topKByTitle keeps the topK pool entries by title similarity for one left
// task, breaking score ties by right ID for determinism.
func topKByTitle(lt *task.Task, lid string, pool []string, right map[string]*task.Task, topK int) []Pair {
	type ranked struct {
		id  string
		sim float64
	}
	scored := make([]ranked, 0, len(pool))
	for _, rid := range pool {
		scored = append(scored, ranked{id: rid, sim: TitleSimilarity(lt, right[rid])})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].sim != scored[j].sim {
			return scored[i].sim > scored[j].sim
		}
		return scored[i].id < scored[j].id
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}

	pairs := make([]Pair, len(scored))
	for i, r := range scored {
		pairs[i] = Pair{Left: lid, Right: r.id}
	}
	return pairs
}

// AllPairs generates the full cross-product in deterministic order. Used
// when the corpus is small enough that pruning would cost more than it
// saves.
func AllPairs(leftIDs, rightIDs []string) []Pair {
	sortedLeft := sortedCopy(leftIDs)
	sortedRight := sortedCopy(rightIDs)
	pairs := make([]Pair, 0, len(sortedLeft)*len(sortedRight))
	for _, lid := range sortedLeft {
		for _, rid := range sortedRight {
			pairs = append(pairs, Pair{Left: lid, Right: rid})
		}
	}
	return pairs
}

func sortedCopy(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	sort.Strings(out)
	return out
}

package match

import (
	"fmt"
	"math"
	"sort"
)

// sentinelCost forbids a matrix cell from being profitably selected. Real
// cells hold -score, so they lie in [-1, 0]; any assignment touching a
// sentinel cell is padding and is discarded on extraction.
const sentinelCost = 1e6

// HungarianSolver computes the optimal one-to-one assignment maximizing
// total score, via minimum-cost assignment over a negated, sentinel-padded
// square cost matrix.
//
// Rectangular inputs are handled by padding the matrix to n = max(|L|, |R|)
// with sentinel-cost rows/columns. Padding assignments never correspond to a
// candidate and are dropped when results are extracted.
//
// KNOWN DEGENERACY: with thresholding plus sentinel padding, the minimum-
// cost solution can carry fewer real assignments than the greedy baseline.
// Match guards against this by never returning an optimal result with fewer
// matches than greedy.
type HungarianSolver struct{}

func (HungarianSolver) Name() string { return "hungarian" }

// Solve builds the cost matrix over the IDs present in the candidate list
// and extracts assignments that correspond to real candidates.
func (HungarianSolver) Solve(candidates []Candidate) ([]Result, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	leftIDs, rightIDs := endpointIDs(candidates)
	leftIdx := indexOf(leftIDs)
	rightIdx := indexOf(rightIDs)

	n := len(leftIDs)
	if len(rightIDs) > n {
		n = len(rightIDs)
	}

	cost := make([][]float64, n)
	for i := range cost {
		cost[i] = make([]float64, n)
		for j := range cost[i] {
			cost[i][j] = sentinelCost
		}
	}
	byCell := make(map[[2]int]Candidate, len(candidates))
	for _, c := range candidates {
		i, j := leftIdx[c.Left], rightIdx[c.Right]
		// Keep the best candidate if the same pair appears twice.
		if -c.Score < cost[i][j] {
			cost[i][j] = -c.Score
			byCell[[2]int{i, j}] = c
		}
	}

	assignment, err := solveAssignment(cost)
	if err != nil {
		return nil, err
	}

	var results []Result
	for i, j := range assignment {
		if c, ok := byCell[[2]int{i, j}]; ok {
			results = append(results, Result(c))
		}
	}
	SortResults(results)
	return results, nil
}

// solveAssignment computes a minimum-cost perfect assignment on a square
// matrix using the Hungarian algorithm with row/column potentials and
// shortest augmenting paths. O(n³).
//
// Returns assignment[i] = column assigned to row i.
func solveAssignment(cost [][]float64) ([]int, error) {
	n := len(cost)
	for i, row := range cost {
		if len(row) != n {
			return nil, fmt.Errorf("assignment matrix not square: row %d has %d columns, want %d", i, len(row), n)
		}
	}
	if n == 0 {
		return nil, nil
	}

	// 1-based arrays; index 0 is the virtual start column.
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1) // p[j] = row currently assigned to column j
	way := make([]int, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, n+1)
		used := make([]bool, n+1)
		for j := range minv {
			minv[j] = math.Inf(1)
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := math.Inf(1)
			j1 := 0
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			if math.IsInf(delta, 1) {
				return nil, fmt.Errorf("assignment infeasible: no augmenting path from row %d", i)
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		// Augment along the found path.
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	assignment := make([]int, n)
	for j := 1; j <= n; j++ {
		assignment[p[j]-1] = j - 1
	}
	return assignment, nil
}

// endpointIDs collects the distinct left and right IDs of a candidate list,
// sorted for deterministic matrix layout.
func endpointIDs(candidates []Candidate) (left, right []string) {
	ls := make(map[string]struct{})
	rs := make(map[string]struct{})
	for _, c := range candidates {
		ls[c.Left] = struct{}{}
		rs[c.Right] = struct{}{}
	}
	for id := range ls {
		left = append(left, id)
	}
	for id := range rs {
		right = append(right, id)
	}
	sort.Strings(left)
	sort.Strings(right)
	return left, right
}

func indexOf(ids []string) map[string]int {
	idx := make(map[string]int, len(ids))
	for i, id := range ids {
		idx[id] = i
	}
	return idx
}

// Package match computes the cross-store task matching: pair scoring,
// candidate pruning, and one-to-one bipartite assignment.
//
// ARCHITECTURE:
//
// The package is a pure batch pipeline - no goroutines, no shared state.
// Score() is the single scoring function; both solvers and the pruner
// consume its output so a pair always scores identically no matter which
// path evaluates it.
//
// DETERMINISM:
//
// Every result list is sorted by (-score, leftID, rightID) and every
// iteration over task maps goes through sorted ID slices. Repeated runs on
// identical input produce identical output, which the reconciler and the
// link file's byte-identical idempotence guarantee depend on.
package match

import (
	"math"

	"github.com/BoweyLou/obssync/internal/normalize"
	"github.com/BoweyLou/obssync/internal/task"
)

// Scoring weights. Title similarity dominates; due-date proximity refines;
// matching priorities nudge borderline pairs over the threshold.
const (
	titleWeight    = 0.75
	dateWeight     = 0.25
	priorityBoost  = 0.05
	nearDateScore  = 0.6
	neutralDateFit = 0.5
)

// Fields carries the explanatory breakdown of a pair score, persisted on the
// link record for audit and display.
type Fields struct {
	TitleSimilarity  float64 `json:"title_similarity"`
	DateDistanceDays *int    `json:"date_distance_days,omitempty"`
	DueEqual         bool    `json:"due_equal"`
	LeftTitle        string  `json:"obs_title"`
	RightTitle       string  `json:"rem_title"`
	LeftDue          string  `json:"obs_due,omitempty"`
	RightDue         string  `json:"rem_due,omitempty"`
}

// Score computes the composite similarity of a task pair in [0, 1].
//
// Components:
//   - Title: Dice coefficient over normalized token sets (0 if either empty)
//   - Date: 1.0 on exact day match, 0.6 within toleranceDays, 0 beyond;
//     both dates absent is a neutral match (0.5, DueEqual=true); exactly one
//     absent is penalized (0, DueEqual=false)
//   - Priority: +0.05 when both sides carry the same non-empty priority
//
// Composite = 0.75*title + 0.25*date + boost, capped at 1.0. Missing fields
// degrade to neutral or zero contributions; Score never fails.
func Score(left, right *task.Task, toleranceDays int) (float64, Fields) {
	fields := Fields{
		LeftTitle:  left.Description,
		RightTitle: right.Description,
		LeftDue:    left.Due,
		RightDue:   right.Due,
	}

	fields.TitleSimilarity = TitleSimilarity(left, right)

	var dateScore float64
	leftDue, leftOK := left.DueDate()
	rightDue, rightOK := right.DueDate()
	switch {
	case leftOK && rightOK:
		dist := int(math.Abs(leftDue.Sub(rightDue).Hours()) / 24)
		fields.DateDistanceDays = &dist
		fields.DueEqual = dist == 0
		switch {
		case dist == 0:
			dateScore = 1.0
		case dist <= toleranceDays:
			dateScore = nearDateScore
		}
	case !leftOK && !rightOK:
		// Neither side has a due date: neutral, not penalized.
		fields.DueEqual = true
		dateScore = neutralDateFit
	default:
		// Exactly one side dated: penalized.
		fields.DueEqual = false
	}

	score := titleWeight*fields.TitleSimilarity + dateWeight*dateScore
	if left.Priority != "" && left.Priority == right.Priority {
		score += priorityBoost
	}
	if score > 1.0 {
		score = 1.0
	}
	return score, fields
}

// TitleSimilarity computes the Dice coefficient of the two descriptions'
// token sets: 2*|A∩B| / (|A|+|B|). Returns 0 when either set is empty.
func TitleSimilarity(left, right *task.Task) float64 {
	a := normalize.TokenSet(tokensFor(left))
	b := normalize.TokenSet(tokensFor(right))
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	return 2 * float64(intersection) / float64(len(a)+len(b))
}

// tokensFor returns the cached token list when the collector precomputed
// one, tokenizing on the fly otherwise.
func tokensFor(t *task.Task) []string {
	if t.CachedTokens != nil {
		return t.CachedTokens
	}
	return normalize.Tokenize(t.Description)
}

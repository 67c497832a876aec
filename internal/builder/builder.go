// Package builder orchestrates one link-building pass: select active tasks
// from both indices, compute the matching, and reconcile it into the
// persisted link set.
//
// Builder is the explicit per-invocation context object: it carries the
// clock and options once and threads them through every component. There is
// no package-level state, no global logger, no ambient cache.
//
// Execution is single-threaded and runs to completion; the only I/O
// boundaries are the callers' index loads and the link-file write, both
// outside this package.
package builder

import (
	"fmt"

	"github.com/BoweyLou/obssync/internal/index"
	"github.com/BoweyLou/obssync/internal/link"
	"github.com/BoweyLou/obssync/internal/match"
	"github.com/BoweyLou/obssync/internal/task"
)

// Options configures a link-building pass.
type Options struct {
	// MinScore is the minimum composite similarity for a pair to be
	// considered at all.
	MinScore float64

	// DateToleranceDays widens due-date matching to nearby days.
	DateToleranceDays int

	// IncludeDone includes completed tasks in matching. Off by default:
	// done tasks usually just add noise to the candidate space.
	IncludeDone bool

	// Matching thresholds; zero means the match package defaults.
	PruneThreshold      int
	GreedyOnlyThreshold int
	TopK                int

	// Logf receives diagnostic messages (solver fallbacks, skip notices).
	// May be nil.
	Logf func(format string, args ...any)
}

// Stats summarizes a pass for the caller and the history log.
type Stats struct {
	ObsTotal int // active obs tasks considered
	RemTotal int // active rem tasks considered
	Matched  int // suggestions produced by the matcher
	Counts   link.Counts
}

// Builder runs link-building passes. Construct one per invocation.
type Builder struct {
	clock task.Clock
	opts  Options
}

// New creates a Builder. A nil clock defaults to the system clock.
func New(clock task.Clock, opts Options) *Builder {
	if clock == nil {
		clock = task.SystemClock()
	}
	return &Builder{clock: clock, opts: opts}
}

// BuildLinks computes the updated link set for the two indices.
//
// The existing link file is merged, not discarded: established links survive
// unless a strictly better match displaces them. The returned link file is
// complete and ready to persist; nothing is written here, so a failure
// anywhere leaves the on-disk state untouched.
func (b *Builder) BuildLinks(obs *index.ObsIndex, rem *index.RemIndex, existing *index.LinkFile) (*index.LinkFile, Stats, error) {
	obsIDs, obsTasks := activeObsTasks(obs, b.opts.IncludeDone)
	remIDs, remTasks := activeRemTasks(rem, b.opts.IncludeDone)

	results := match.Match(obsIDs, remIDs, obsTasks, remTasks, match.Options{
		MinScore:            b.opts.MinScore,
		DateToleranceDays:   b.opts.DateToleranceDays,
		PruneThreshold:      b.opts.PruneThreshold,
		GreedyOnlyThreshold: b.opts.GreedyOnlyThreshold,
		TopK:                b.opts.TopK,
		Logf:                b.opts.Logf,
	})

	set, err := link.FromLinks(existing.Links)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("build links: %w", err)
	}
	counts := link.Reconcile(set, results, b.clock)

	stats := Stats{
		ObsTotal: len(obsIDs),
		RemTotal: len(remIDs),
		Matched:  len(results),
		Counts:   counts,
	}
	out := &index.LinkFile{
		Meta: index.LinkMeta{
			Schema:      index.SchemaVersion,
			GeneratedAt: b.clock.Now(),
			ObsTotal:    stats.ObsTotal,
			RemTotal:    stats.RemTotal,
		},
		Links: set.Links(),
	}
	return out, stats, nil
}

// activeObsTasks projects the Obsidian index down to the common task view,
// keeping only records eligible for matching.
func activeObsTasks(ix *index.ObsIndex, includeDone bool) ([]string, map[string]*task.Task) {
	ids := make([]string, 0, len(ix.Tasks))
	tasks := make(map[string]*task.Task, len(ix.Tasks))
	for id, rec := range ix.Tasks {
		if !eligible(&rec.Task, includeDone) {
			continue
		}
		ids = append(ids, id)
		tasks[id] = &rec.Task
	}
	return ids, tasks
}

// activeRemTasks projects the Reminders index down to the common task view.
func activeRemTasks(ix *index.RemIndex, includeDone bool) ([]string, map[string]*task.Task) {
	ids := make([]string, 0, len(ix.Tasks))
	tasks := make(map[string]*task.Task, len(ix.Tasks))
	for id, rec := range ix.Tasks {
		if !eligible(&rec.Task, includeDone) {
			continue
		}
		ids = append(ids, id)
		tasks[id] = &rec.Task
	}
	return ids, tasks
}

// eligible: only currently-present tasks participate in matching. Missing
// and deleted records keep their links until reconciliation displaces them,
// but they generate no new suggestions.
func eligible(t *task.Task, includeDone bool) bool {
	if t.State() != task.StateActive {
		return false
	}
	if t.Done() && !includeDone {
		return false
	}
	return true
}

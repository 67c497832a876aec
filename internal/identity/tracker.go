// Package identity assigns stable UUIDs to tasks across repeated collection
// runs.
//
// A collection pass yields Observations - raw sightings with no identity.
// The tracker resolves each one against the previously persisted index via a
// two-tier scheme:
//
//	tier 1: source key. A deterministic key from the most stable anchor the
//	        observation offers (explicit block/item anchor, else a content
//	        hash). Matching the key or any recorded alias reuses the UUID.
//	tier 2: content key. When the source key changed between runs (a task
//	        gained or lost its stable anchor), a normalized content key
//	        finds the prior identity and the old key is kept as an alias.
//
// Only when both tiers miss is a new UUID minted. Unobserved records age
// through the Missing/Deleted lifecycle instead of being dropped, so the
// index keeps append-only log semantics.
package identity

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/BoweyLou/obssync/internal/normalize"
	"github.com/BoweyLou/obssync/internal/task"
)

// Source key prefixes distinguish anchored keys from hash-derived ones, so a
// content hash can never collide with an explicit anchor.
const (
	anchorKeyPrefix = "anchor:"
	hashKeyPrefix   = "hash:"
)

// Observation is one freshly-collected task sighting, before identity
// resolution. StableKey carries the store's most stable anchor when one
// exists: the ^block ID on the Obsidian side, the EventKit calendar-item
// identifier on the Reminders side.
type Observation struct {
	StableKey   string      `json:"stable_key,omitempty"`
	Description string      `json:"description"`
	Status      task.Status `json:"status"`
	Due         string      `json:"due,omitempty"`
	Scheduled   string      `json:"scheduled,omitempty"`
	Priority    string      `json:"priority,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
}

// SourceKey derives the deterministic re-resolution key for this
// observation. Anchored tasks key on their anchor; anchorless tasks fall
// back to a content-hash key, which tier-2 reconciliation compensates for
// when the content is edited.
func (o Observation) SourceKey() string {
	if o.StableKey != "" {
		return anchorKeyPrefix + o.StableKey
	}
	return hashKeyPrefix + task.Fingerprint(o.Description, o.Status, o.Due, o.Priority, o.Tags)
}

// Report counts the outcomes of one tracking pass.
type Report struct {
	Created    int // new UUIDs minted
	Reused     int // resolved via source key or alias
	Reconciled int // resolved via content key (source key changed)
	Missing    int // previously active, absent this pass
	Deleted    int // aged out of the retention window this pass
}

// Tracker resolves observations against a persisted index. Construct one
// per invocation and thread it through explicitly; there is no package
// state.
type Tracker struct {
	clock     task.Clock
	retention time.Duration

	// newUUID is injectable so tests can mint predictable IDs.
	newUUID func() string
}

// NewTracker creates a tracker. retention is the Missing->Deleted aging
// window.
func NewTracker(clock task.Clock, retention time.Duration) *Tracker {
	return &Tracker{
		clock:     clock,
		retention: retention,
		newUUID:   uuid.NewString,
	}
}

// Apply resolves observations against index, mutating it in place, and
// returns the outcome report.
//
// Records absent from this pass are never carried forward as present: they
// transition Active -> Missing immediately and Missing -> Deleted once the
// retention window lapses. Naively preserving every old entry forever is
// exactly the deleted-task accumulation this tracker exists to prevent.
func (tr *Tracker) Apply(index map[string]*task.Task, observations []Observation) Report {
	now := tr.clock.Now()
	var report Report

	byKey := keyLookup(index)
	byContent := contentLookup(index)
	claimed := make(map[string]bool, len(observations))

	for _, obs := range observations {
		key := obs.SourceKey()

		// Tier 1: source key or alias.
		if id, ok := byKey[key]; ok && !claimed[id] {
			claimed[id] = true
			tr.refresh(index[id], obs, now)
			report.Reused++
			continue
		}

		// Tier 2: content reconciliation. The earliest prior identity with
		// the same content key wins, so a duplicated task can't steal the
		// original's UUID.
		ck := task.ContentKey(obs.Description, obs.Due)
		if id, ok := earliestUnclaimed(byContent[ck], index, claimed); ok {
			rec := index[id]
			claimed[id] = true
			rec.AddAlias(rec.SourceKey)
			rec.SourceKey = key
			byKey[key] = id
			tr.refresh(rec, obs, now)
			report.Reconciled++
			continue
		}

		// Mint a fresh identity.
		id := tr.newUUID()
		rec := &task.Task{
			UUID:      id,
			SourceKey: key,
			CreatedAt: now,
		}
		tr.refresh(rec, obs, now)
		index[id] = rec
		byKey[key] = id
		byContent[ck] = append(byContent[ck], id)
		claimed[id] = true
		report.Created++
	}

	// Lifecycle aging for everything not observed this pass.
	for _, id := range sortedUUIDs(index) {
		if claimed[id] {
			continue
		}
		rec := index[id]
		if rec.State() == task.StateActive {
			rec.MarkMissing(now)
			report.Missing++
		}
		if rec.AgeOut(now, tr.retention) {
			report.Deleted++
		}
	}

	return report
}

// refresh writes the observation's payload onto the record and marks it
// seen. UpdatedAt only moves when the content fingerprint actually changed,
// so cosmetic passes leave it alone.
func (tr *Tracker) refresh(rec *task.Task, obs Observation, now time.Time) {
	fp := task.Fingerprint(obs.Description, obs.Status, obs.Due, obs.Priority, obs.Tags)
	if rec.Fingerprint != fp {
		rec.UpdatedAt = now
	}
	rec.Description = obs.Description
	rec.Status = obs.Status
	rec.Due = obs.Due
	rec.Scheduled = obs.Scheduled
	rec.Priority = obs.Priority
	rec.Tags = obs.Tags
	rec.CachedTokens = normalize.Tokenize(obs.Description)
	rec.Fingerprint = fp
	rec.MarkSeen(now)
}

// keyLookup maps every live source key and alias to its UUID. Deleted
// records are excluded: an aged-out identity is never resurrected.
func keyLookup(index map[string]*task.Task) map[string]string {
	byKey := make(map[string]string, len(index))
	for _, id := range sortedUUIDs(index) {
		rec := index[id]
		if rec.Deleted {
			continue
		}
		byKey[rec.SourceKey] = id
		for _, alias := range rec.Aliases {
			byKey[alias] = id
		}
	}
	return byKey
}

// contentLookup maps content keys to candidate UUIDs for tier-2
// reconciliation, excluding deleted records.
func contentLookup(index map[string]*task.Task) map[string][]string {
	byContent := make(map[string][]string, len(index))
	for _, id := range sortedUUIDs(index) {
		rec := index[id]
		if rec.Deleted {
			continue
		}
		ck := task.ContentKey(rec.Description, rec.Due)
		byContent[ck] = append(byContent[ck], id)
	}
	return byContent
}

// earliestUnclaimed picks the candidate with the earliest created_at (UUID
// as tiebreaker) that hasn't been claimed in this pass.
func earliestUnclaimed(candidates []string, index map[string]*task.Task, claimed map[string]bool) (string, bool) {
	best := ""
	for _, id := range candidates {
		if claimed[id] {
			continue
		}
		if best == "" {
			best = id
			continue
		}
		a, b := index[id], index[best]
		if a.CreatedAt.Before(b.CreatedAt) || (a.CreatedAt.Equal(b.CreatedAt) && id < best) {
			best = id
		}
	}
	return best, best != ""
}

func sortedUUIDs(index map[string]*task.Task) []string {
	ids := make([]string, 0, len(index))
	for id := range index {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

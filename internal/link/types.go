// Package link maintains the persisted cross-store link set and reconciles
// newly computed match suggestions into it.
//
// INVARIANT (one-to-one): no task UUID, from either store, appears as an
// endpoint of more than one link at a time. Set is the sole owner of this
// invariant - every insert and removal goes through its indices, and Add
// refuses violating links outright.
package link

import (
	"fmt"
	"time"

	"github.com/BoweyLou/obssync/internal/match"
)

// Link is a cross-store edge between one Obsidian task and one Reminders
// task, with the explanatory fields of the last scoring pass and its sync
// history.
type Link struct {
	ObsUUID string  `json:"obs_uuid"`
	RemUUID string  `json:"rem_uuid"`
	Score   float64 `json:"score"`

	// Embedded explanatory fields from the last scoring pass; promoted
	// inline in the serialized record.
	match.Fields

	// CreatedAt is when this exact pair was first linked. Replacing a link
	// with a different pair starts a fresh history.
	CreatedAt  time.Time  `json:"created_at"`
	LastScored time.Time  `json:"last_scored"`
	LastSynced *time.Time `json:"last_synced,omitempty"`
}

// Set is an in-memory link set indexed by pair and by each endpoint.
type Set struct {
	pairs map[pairKey]*Link
	byObs map[string]*Link
	byRem map[string]*Link
}

type pairKey struct {
	obs string
	rem string
}

// NewSet returns an empty link set.
func NewSet() *Set {
	return &Set{
		pairs: make(map[pairKey]*Link),
		byObs: make(map[string]*Link),
		byRem: make(map[string]*Link),
	}
}

// Len returns the number of links in the set.
func (s *Set) Len() int {
	return len(s.pairs)
}

// Get returns the link for an exact pair, if present.
func (s *Set) Get(obsUUID, remUUID string) (*Link, bool) {
	l, ok := s.pairs[pairKey{obs: obsUUID, rem: remUUID}]
	return l, ok
}

// ByObs returns the link whose Obsidian endpoint is obsUUID, if any.
func (s *Set) ByObs(obsUUID string) (*Link, bool) {
	l, ok := s.byObs[obsUUID]
	return l, ok
}

// ByRem returns the link whose Reminders endpoint is remUUID, if any.
func (s *Set) ByRem(remUUID string) (*Link, bool) {
	l, ok := s.byRem[remUUID]
	return l, ok
}

// Add inserts a link, enforcing the one-to-one invariant. Either endpoint
// already being linked is an error; callers must Remove the occupant first.
func (s *Set) Add(l *Link) error {
	if l.ObsUUID == "" || l.RemUUID == "" {
		return fmt.Errorf("link has empty endpoint: obs=%q rem=%q", l.ObsUUID, l.RemUUID)
	}
	if existing, ok := s.byObs[l.ObsUUID]; ok {
		return fmt.Errorf("obs %s already linked to rem %s", l.ObsUUID, existing.RemUUID)
	}
	if existing, ok := s.byRem[l.RemUUID]; ok {
		return fmt.Errorf("rem %s already linked to obs %s", l.RemUUID, existing.ObsUUID)
	}
	s.pairs[pairKey{obs: l.ObsUUID, rem: l.RemUUID}] = l
	s.byObs[l.ObsUUID] = l
	s.byRem[l.RemUUID] = l
	return nil
}

// Remove deletes a link from all three indices. Removing a link that is not
// in the set is a no-op.
func (s *Set) Remove(l *Link) {
	key := pairKey{obs: l.ObsUUID, rem: l.RemUUID}
	if _, ok := s.pairs[key]; !ok {
		return
	}
	delete(s.pairs, key)
	delete(s.byObs, l.ObsUUID)
	delete(s.byRem, l.RemUUID)
}

// Links returns the links sorted by (obs_uuid, rem_uuid). This is the
// persistence order: sorting before serialization keeps link-file diffs
// reproducible across runs.
func (s *Set) Links() []*Link {
	out := make([]*Link, 0, len(s.pairs))
	for _, l := range s.pairs {
		out = append(out, l)
	}
	sortLinks(out)
	return out
}

// FromLinks builds a Set from persisted links, validating one-to-one on the
// way in.
func FromLinks(links []*Link) (*Set, error) {
	s := NewSet()
	for _, l := range links {
		if err := s.Add(l); err != nil {
			return nil, fmt.Errorf("load link set: %w", err)
		}
	}
	return s, nil
}

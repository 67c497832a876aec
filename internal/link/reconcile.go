package link

import (
	"sort"

	"github.com/BoweyLou/obssync/internal/match"
	"github.com/BoweyLou/obssync/internal/task"
)

// Counts summarizes one reconcile pass. Rejected is not an error count: a
// candidate losing to an established link is the expected steady state.
type Counts struct {
	New      int `json:"new"`
	Updated  int `json:"updated"`
	Replaced int `json:"replaced"`
	Rejected int `json:"rejected"`
}

// Reconcile merges match suggestions into the existing link set, in place,
// and returns the outcome counts.
//
// Suggestions are processed in deterministic score-descending order (then by
// IDs), so higher-confidence matches claim endpoints first. Per suggestion:
//
//  1. Exact pair already linked: refresh the link in place. Score keeps the
//     max of old and new (a transient dip in similarity must not erode an
//     established link), explanatory fields take the new pass's values.
//  2. Both endpoints free: accept unconditionally as a new link.
//  3. One or both endpoints occupied: replace only if the new score
//     STRICTLY exceeds the best score among the occupying links. Otherwise
//     reject and leave the existing links untouched.
//
// The strict inequality in (3) is what prevents link flapping: a marginal
// improvement elsewhere in the graph can never dislodge a stable match.
func Reconcile(set *Set, suggestions []match.Result, clock task.Clock) Counts {
	ordered := make([]match.Result, len(suggestions))
	copy(ordered, suggestions)
	match.SortResults(ordered)

	now := clock.Now()
	var counts Counts

	for _, sug := range ordered {
		if existing, ok := set.Get(sug.Left, sug.Right); ok {
			if sug.Score > existing.Score {
				existing.Score = sug.Score
			}
			existing.Fields = sug.Fields
			existing.LastScored = now
			counts.Updated++
			continue
		}

		obsLink, obsBusy := set.ByObs(sug.Left)
		remLink, remBusy := set.ByRem(sug.Right)
		if !obsBusy && !remBusy {
			// Both endpoints verified free; Add cannot fail.
			_ = set.Add(&Link{
				ObsUUID:    sug.Left,
				RemUUID:    sug.Right,
				Score:      sug.Score,
				Fields:     sug.Fields,
				CreatedAt:  now,
				LastScored: now,
			})
			counts.New++
			continue
		}

		best := 0.0
		if obsBusy && obsLink.Score > best {
			best = obsLink.Score
		}
		if remBusy && remLink.Score > best {
			best = remLink.Score
		}
		if sug.Score <= best {
			counts.Rejected++
			continue
		}

		if obsBusy {
			set.Remove(obsLink)
		}
		if remBusy {
			set.Remove(remLink)
		}
		// Occupants removed above; Add cannot fail.
		_ = set.Add(&Link{
			ObsUUID:    sug.Left,
			RemUUID:    sug.Right,
			Score:      sug.Score,
			Fields:     sug.Fields,
			CreatedAt:  now,
			LastScored: now,
		})
		counts.Replaced++
	}

	return counts
}

// sortLinks orders links by (obs_uuid, rem_uuid) for persistence.
func sortLinks(links []*Link) {
	sort.Slice(links, func(i, j int) bool {
		if links[i].ObsUUID != links[j].ObsUUID {
			return links[i].ObsUUID < links[j].ObsUUID
		}
		return links[i].RemUUID < links[j].RemUUID
	})
}

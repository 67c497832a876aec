package link

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BoweyLou/obssync/internal/match"
	"github.com/BoweyLou/obssync/internal/testutil"
)

func suggestion(obs, rem string, score float64) match.Result {
	return match.Result{Left: obs, Right: rem, Score: score}
}

func fixedClock() *testutil.FixedClock {
	return testutil.NewFixedClock(time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC))
}

func TestReconcile_NewLinkAccepted(t *testing.T) {
	set := NewSet()
	clock := fixedClock()

	counts := Reconcile(set, []match.Result{suggestion("obs-1", "rem-1", 1.0)}, clock)
	assert.Equal(t, Counts{New: 1}, counts)

	l, ok := set.Get("obs-1", "rem-1")
	require.True(t, ok)
	assert.Equal(t, 1.0, l.Score)
	assert.Equal(t, clock.Now(), l.CreatedAt)
	assert.Nil(t, l.LastSynced)
}

func TestReconcile_ExactPairUpdatedKeepsMaxScore(t *testing.T) {
	set := NewSet()
	clock := fixedClock()
	Reconcile(set, []match.Result{suggestion("obs-1", "rem-1", 0.9)}, clock)

	createdAt := mustGet(t, set, "obs-1", "rem-1").CreatedAt
	clock.Advance(time.Hour)

	// Lower rescoring must not erode the stored score.
	counts := Reconcile(set, []match.Result{suggestion("obs-1", "rem-1", 0.8)}, clock)
	assert.Equal(t, Counts{Updated: 1}, counts)

	l := mustGet(t, set, "obs-1", "rem-1")
	assert.Equal(t, 0.9, l.Score)
	assert.Equal(t, createdAt, l.CreatedAt, "created_at preserved across updates")
	assert.Equal(t, clock.Now(), l.LastScored)

	// Higher rescoring raises it.
	counts = Reconcile(set, []match.Result{suggestion("obs-1", "rem-1", 0.95)}, clock)
	assert.Equal(t, Counts{Updated: 1}, counts)
	assert.Equal(t, 0.95, mustGet(t, set, "obs-1", "rem-1").Score)
}

func TestReconcile_RejectsLowerScoringCompetitor(t *testing.T) {
	// An existing 1.0 link must reject a later 0.80
	// competitor for the same Reminders task, counting exactly one
	// rejection.
	set := NewSet()
	clock := fixedClock()
	Reconcile(set, []match.Result{suggestion("obs-1", "rem-1", 1.0)}, clock)

	counts := Reconcile(set, []match.Result{suggestion("obs-2", "rem-1", 0.80)}, clock)
	assert.Equal(t, Counts{Rejected: 1}, counts)

	_, ok := set.Get("obs-1", "rem-1")
	assert.True(t, ok, "existing link untouched")
	_, ok = set.ByObs("obs-2")
	assert.False(t, ok)
}

func TestReconcile_EqualScoreRejected(t *testing.T) {
	// Replacement requires STRICTLY greater score; a tie keeps the
	// incumbent (anti-flapping).
	set := NewSet()
	clock := fixedClock()
	Reconcile(set, []match.Result{suggestion("obs-1", "rem-1", 0.9)}, clock)

	counts := Reconcile(set, []match.Result{suggestion("obs-2", "rem-1", 0.9)}, clock)
	assert.Equal(t, Counts{Rejected: 1}, counts)
	assert.True(t, hasPair(set, "obs-1", "rem-1"))
}

func TestReconcile_HigherScoreReplaces(t *testing.T) {
	set := NewSet()
	clock := fixedClock()
	Reconcile(set, []match.Result{suggestion("obs-1", "rem-1", 0.8)}, clock)

	counts := Reconcile(set, []match.Result{suggestion("obs-2", "rem-1", 0.95)}, clock)
	assert.Equal(t, Counts{Replaced: 1}, counts)

	assert.False(t, hasPair(set, "obs-1", "rem-1"))
	assert.True(t, hasPair(set, "obs-2", "rem-1"))

	// The displaced obs endpoint is fully unlinked in every index.
	_, ok := set.ByObs("obs-1")
	assert.False(t, ok)
}

func TestReconcile_ReplacementRemovesBothOccupants(t *testing.T) {
	// New suggestion crosses two existing links; both occupants must be
	// removed before the insert, leaving their far endpoints free.
	set := NewSet()
	clock := fixedClock()
	Reconcile(set, []match.Result{
		suggestion("obs-1", "rem-1", 0.6),
		suggestion("obs-2", "rem-2", 0.7),
	}, clock)

	counts := Reconcile(set, []match.Result{suggestion("obs-1", "rem-2", 0.9)}, clock)
	assert.Equal(t, Counts{Replaced: 1}, counts)
	assert.Equal(t, 1, set.Len())
	assert.True(t, hasPair(set, "obs-1", "rem-2"))
	assertOneToOne(t, set)
}

func TestReconcile_ProcessesScoreDescending(t *testing.T) {
	// Within one pass the 0.9 suggestion claims rem-1 before the 0.7 one
	// arrives, regardless of input order.
	set := NewSet()
	counts := Reconcile(set, []match.Result{
		suggestion("obs-2", "rem-1", 0.7),
		suggestion("obs-1", "rem-1", 0.9),
	}, fixedClock())

	assert.Equal(t, Counts{New: 1, Rejected: 1}, counts)
	assert.True(t, hasPair(set, "obs-1", "rem-1"))
}

func TestReconcile_OneToOneInvariant(t *testing.T) {
	set := NewSet()
	Reconcile(set, []match.Result{
		suggestion("obs-1", "rem-1", 0.9),
		suggestion("obs-1", "rem-2", 0.8),
		suggestion("obs-2", "rem-1", 0.7),
		suggestion("obs-2", "rem-2", 0.85),
		suggestion("obs-3", "rem-3", 0.95),
	}, fixedClock())
	assertOneToOne(t, set)
}

func TestReconcile_Idempotent(t *testing.T) {
	suggestions := []match.Result{
		suggestion("obs-1", "rem-1", 0.9),
		suggestion("obs-2", "rem-2", 0.8),
	}

	set := NewSet()
	clock := fixedClock()
	first := Reconcile(set, suggestions, clock)
	assert.Equal(t, Counts{New: 2}, first)

	second := Reconcile(set, suggestions, clock)
	assert.Equal(t, Counts{Updated: 2}, second)
	assert.Equal(t, 2, set.Len())
}

func TestSet_AddRejectsOccupiedEndpoints(t *testing.T) {
	set := NewSet()
	require.NoError(t, set.Add(&Link{ObsUUID: "obs-1", RemUUID: "rem-1"}))
	assert.Error(t, set.Add(&Link{ObsUUID: "obs-1", RemUUID: "rem-2"}))
	assert.Error(t, set.Add(&Link{ObsUUID: "obs-2", RemUUID: "rem-1"}))
	assert.Error(t, set.Add(&Link{ObsUUID: "", RemUUID: "rem-9"}))
}

func TestSet_LinksSortedForPersistence(t *testing.T) {
	set := NewSet()
	require.NoError(t, set.Add(&Link{ObsUUID: "obs-2", RemUUID: "rem-2"}))
	require.NoError(t, set.Add(&Link{ObsUUID: "obs-1", RemUUID: "rem-1"}))

	links := set.Links()
	require.Len(t, links, 2)
	assert.Equal(t, "obs-1", links[0].ObsUUID)
	assert.Equal(t, "obs-2", links[1].ObsUUID)
}

func TestFromLinks_RejectsDuplicateEndpoint(t *testing.T) {
	_, err := FromLinks([]*Link{
		{ObsUUID: "obs-1", RemUUID: "rem-1"},
		{ObsUUID: "obs-1", RemUUID: "rem-2"},
	})
	assert.Error(t, err)
}

func mustGet(t *testing.T, set *Set, obs, rem string) *Link {
	t.Helper()
	l, ok := set.Get(obs, rem)
	require.True(t, ok, "link %s/%s not found", obs, rem)
	return l
}

func hasPair(set *Set, obs, rem string) bool {
	_, ok := set.Get(obs, rem)
	return ok
}

func assertOneToOne(t *testing.T, set *Set) {
	t.Helper()
	obsSeen := map[string]bool{}
	remSeen := map[string]bool{}
	for _, l := range set.Links() {
		assert.False(t, obsSeen[l.ObsUUID], "obs %s linked twice", l.ObsUUID)
		assert.False(t, remSeen[l.RemUUID], "rem %s linked twice", l.RemUUID)
		obsSeen[l.ObsUUID] = true
		remSeen[l.RemUUID] = true
	}
}

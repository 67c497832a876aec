package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BoweyLou/obssync/internal/task"
)

func mkTask(desc, due, priority string) *task.Task {
	return &task.Task{Description: desc, Due: due, Priority: priority, Status: task.StatusTodo}
}

func TestScore_IdenticalTitleAndDue(t *testing.T) {
	// The canonical happy path: identical token sets after normalization
	// plus an exact due-date match must score a perfect 1.0.
	left := mkTask("Buy milk", "2025-01-01", "")
	right := mkTask("buy milk", "2025-01-01", "")

	score, fields := Score(left, right, 1)
	assert.Equal(t, 1.0, score)
	assert.Equal(t, 1.0, fields.TitleSimilarity)
	require.NotNil(t, fields.DateDistanceDays)
	assert.Equal(t, 0, *fields.DateDistanceDays)
	assert.True(t, fields.DueEqual)
}

func TestScore_BothDuesAbsentIsNeutral(t *testing.T) {
	left := mkTask("Buy milk", "", "")
	right := mkTask("buy milk", "", "")

	score, fields := Score(left, right, 1)
	assert.True(t, fields.DueEqual)
	assert.Nil(t, fields.DateDistanceDays)
	assert.InDelta(t, 0.75*1.0+0.25*0.5, score, 1e-9)
}

func TestScore_SymmetricDateHandling(t *testing.T) {
	// Both-present-identical must not score below both-absent.
	bothPresent, fp := Score(mkTask("Buy milk", "2025-01-01", ""), mkTask("buy milk", "2025-01-01", ""), 1)
	bothAbsent, fa := Score(mkTask("Buy milk", "", ""), mkTask("buy milk", "", ""), 1)
	assert.True(t, fp.DueEqual)
	assert.True(t, fa.DueEqual)
	assert.GreaterOrEqual(t, bothPresent, bothAbsent)
}

func TestScore_OneDueAbsentPenalized(t *testing.T) {
	score, fields := Score(mkTask("Buy milk", "2025-01-01", ""), mkTask("buy milk", "", ""), 1)
	assert.False(t, fields.DueEqual)
	assert.Nil(t, fields.DateDistanceDays)
	assert.InDelta(t, 0.75, score, 1e-9)
}

func TestScore_NearDateWithinTolerance(t *testing.T) {
	score, fields := Score(mkTask("Buy milk", "2025-01-01", ""), mkTask("buy milk", "2025-01-03", ""), 3)
	require.NotNil(t, fields.DateDistanceDays)
	assert.Equal(t, 2, *fields.DateDistanceDays)
	assert.False(t, fields.DueEqual)
	assert.InDelta(t, 0.75+0.25*0.6, score, 1e-9)
}

func TestScore_DateBeyondTolerance(t *testing.T) {
	score, _ := Score(mkTask("Buy milk", "2025-01-01", ""), mkTask("buy milk", "2025-02-01", ""), 3)
	assert.InDelta(t, 0.75, score, 1e-9)
}

func TestScore_PriorityBoost(t *testing.T) {
	base, _ := Score(mkTask("Buy milk", "", ""), mkTask("buy milk", "", ""), 1)
	boosted, _ := Score(mkTask("Buy milk", "", "high"), mkTask("buy milk", "", "high"), 1)
	assert.InDelta(t, base+0.05, boosted, 1e-9)

	// Mismatched or empty priorities do not boost.
	mismatch, _ := Score(mkTask("Buy milk", "", "high"), mkTask("buy milk", "", "low"), 1)
	assert.InDelta(t, base, mismatch, 1e-9)
}

func TestScore_CappedAtOne(t *testing.T) {
	score, _ := Score(mkTask("Buy milk", "2025-01-01", "high"), mkTask("buy milk", "2025-01-01", "high"), 1)
	assert.Equal(t, 1.0, score)
}

func TestScore_EmptyTitleScoresZeroSimilarity(t *testing.T) {
	score, fields := Score(mkTask("", "2025-01-01", ""), mkTask("buy milk", "2025-01-01", ""), 1)
	assert.Equal(t, 0.0, fields.TitleSimilarity)
	assert.InDelta(t, 0.25, score, 1e-9)
}

func TestScore_AuditFieldsCarryRawValues(t *testing.T) {
	_, fields := Score(mkTask("Buy milk", "2025-01-01", ""), mkTask("Milk run", "2025-01-02", ""), 1)
	assert.Equal(t, "Buy milk", fields.LeftTitle)
	assert.Equal(t, "Milk run", fields.RightTitle)
	assert.Equal(t, "2025-01-01", fields.LeftDue)
	assert.Equal(t, "2025-01-02", fields.RightDue)
}

func TestTitleSimilarity_Dice(t *testing.T) {
	// "buy milk today" vs "buy milk": intersection 2, sizes 3+2 -> 4/5.
	sim := TitleSimilarity(mkTask("Buy milk today", "", ""), mkTask("buy milk", "", ""))
	assert.InDelta(t, 0.8, sim, 1e-9)
}

func TestTitleSimilarity_UsesCachedTokens(t *testing.T) {
	left := &task.Task{Description: "completely different", CachedTokens: []string{"buy", "milk"}}
	right := mkTask("buy milk", "", "")
	assert.Equal(t, 1.0, TitleSimilarity(left, right))
}

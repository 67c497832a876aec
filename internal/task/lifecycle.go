package task

import "time"

// State is the lifecycle state of a task record.
//
// The state machine has three states and three transitions:
//
//	Active  -> Missing  when a collection pass does not observe the UUID
//	Missing -> Active   when a later pass observes it again
//	Missing -> Deleted  when the record has been missing longer than the
//	                    retention window
//
// Deleted is terminal. State is derived from the lifecycle fields rather
// than stored, so the serialized record stays the single source of truth.
type State string

const (
	StateActive  State = "active"
	StateMissing State = "missing"
	StateDeleted State = "deleted"
)

// State derives the lifecycle state from the record's lifecycle fields.
func (t *Task) State() State {
	if t.Deleted {
		return StateDeleted
	}
	if t.MissingSince != nil {
		return StateMissing
	}
	return StateActive
}

// MarkSeen transitions the record to Active at the given time.
//
// Applies Missing -> Active (clearing MissingSince) and refreshes LastSeen.
// A Deleted record stays Deleted: once aged out, reappearing content gets a
// fresh identity from the tracker instead of resurrecting the old UUID.
func (t *Task) MarkSeen(now time.Time) {
	if t.Deleted {
		return
	}
	t.MissingSince = nil
	t.LastSeen = now
}

// MarkMissing transitions Active -> Missing at the given time.
//
// Idempotent: an already-missing record keeps its original MissingSince so
// the retention window is measured from the first absence, not the latest
// pass.
func (t *Task) MarkMissing(now time.Time) {
	if t.Deleted || t.MissingSince != nil {
		return
	}
	ts := now
	t.MissingSince = &ts
}

// AgeOut applies Missing -> Deleted when the record has been missing longer
// than retention. Returns true if the transition fired on this call.
func (t *Task) AgeOut(now time.Time, retention time.Duration) bool {
	if t.Deleted || t.MissingSince == nil {
		return false
	}
	if now.Sub(*t.MissingSince) <= retention {
		return false
	}
	t.Deleted = true
	return true
}

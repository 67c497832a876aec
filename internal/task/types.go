// Package task defines the per-store task records tracked across collection
// runs, their lifecycle state machine, and content fingerprinting.
//
// Both stores share a common record shape (Task). Store-specific fields live
// on ObsTask and RemTask, which embed Task so the matching core can operate
// on the common view without caring which store a record came from.
//
// IDENTITY MODEL:
//
// UUID is permanent: assigned once by the identity tracker and never changed
// for the life of the task identity. SourceKey and Aliases may evolve - a
// task gaining a stable block anchor after being hash-keyed keeps its UUID
// and records the old key as an alias. Exactly one record exists per UUID
// within an index.
package task

import (
	"time"
)

// Status is the completion state of a task in its store.
type Status string

const (
	StatusTodo Status = "todo"
	StatusDone Status = "done"
)

// DueLayout is the date-only form due dates are compared in. Matching
// operates at day granularity; intraday times are irrelevant to scoring.
const DueLayout = "2006-01-02"

// Task is the common record shape shared by both stores.
//
// Lifecycle timestamps: LastSeen is bumped on every collection pass that
// observes the task. MissingSince is set when a previously-seen UUID is
// absent from a pass, and cleared if it reappears. Deleted is set once
// MissingSince exceeds the retention window. Records are never physically
// removed from an index (append-only log semantics).
type Task struct {
	UUID      string   `json:"uuid"`
	SourceKey string   `json:"source_key"`
	Aliases   []string `json:"aliases,omitempty"`

	Description string   `json:"description"`
	Status      Status   `json:"status"`
	Due         string   `json:"due,omitempty"`
	Scheduled   string   `json:"scheduled,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	Tags        []string `json:"tags,omitempty"`

	// CachedTokens is the precomputed normalized token list for Description,
	// carried in the index so matching runs don't re-tokenize unchanged tasks.
	CachedTokens []string `json:"cached_tokens,omitempty"`

	// Fingerprint is a content hash independent of SourceKey, used for
	// duplicate detection and content-based identity reconciliation.
	Fingerprint string `json:"fingerprint,omitempty"`

	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastSeen     time.Time  `json:"last_seen"`
	MissingSince *time.Time `json:"missing_since,omitempty"`
	Deleted      bool       `json:"deleted"`
}

// ObsTask is an Obsidian-side record. The anchor fields locate the task in
// the vault; BlockID is the stable ^block anchor when the line carries one.
type ObsTask struct {
	Task

	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	BlockID string `json:"block_id,omitempty"`
}

// RemTask is an Apple Reminders-side record. ItemID is the EventKit
// calendar-item identifier, the most stable anchor Reminders offers.
type RemTask struct {
	Task

	List   string   `json:"list,omitempty"`
	ItemID string   `json:"item_id,omitempty"`
	Alarms []string `json:"alarms,omitempty"`
}

// DueDate parses the Due field at day granularity. Accepts the date-only
// layout and RFC 3339 (Reminders exports full timestamps); anything else is
// treated as no due date.
func (t *Task) DueDate() (time.Time, bool) {
	return ParseDue(t.Due)
}

// ParseDue parses a due value at day granularity.
func ParseDue(due string) (time.Time, bool) {
	if due == "" {
		return time.Time{}, false
	}
	if d, err := time.Parse(DueLayout, due); err == nil {
		return d, true
	}
	if d, err := time.Parse(time.RFC3339, due); err == nil {
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// DueDay returns the date-only string used for bucket keys, or "" when the
// task has no parseable due date.
func (t *Task) DueDay() string {
	d, ok := t.DueDate()
	if !ok {
		return ""
	}
	return d.Format(DueLayout)
}

// Done reports whether the task is completed in its store.
func (t *Task) Done() bool {
	return t.Status == StatusDone
}

// HasAlias reports whether key is the current SourceKey or any recorded alias.
func (t *Task) HasAlias(key string) bool {
	if t.SourceKey == key {
		return true
	}
	for _, a := range t.Aliases {
		if a == key {
			return true
		}
	}
	return false
}

// AddAlias records key as an alias if it isn't already known.
func (t *Task) AddAlias(key string) {
	if key == "" || t.HasAlias(key) {
		return
	}
	t.Aliases = append(t.Aliases, key)
}

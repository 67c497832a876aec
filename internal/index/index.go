// Package index reads and writes the persisted JSON artifacts: the two
// per-store task indices and the cross-store link file.
//
// The task indices are read-only from the matching core's perspective; the
// link file is the single piece of mutable shared state and is always
// read-modify-written as a whole. Writes are atomic (temp file + rename)
// and guarded by an advisory flock so two link-building passes cannot
// interleave on the same file.
//
// Serialization is deterministic: struct fields emit in declaration order,
// map keys (task UUIDs) sort lexically, and HTML escaping is disabled.
// Unchanged input therefore produces byte-identical output, which both the
// idempotence guarantee and skip-redundant-write checks rely on.
package index

import (
	"fmt"
	"time"

	"github.com/BoweyLou/obssync/internal/link"
	"github.com/BoweyLou/obssync/internal/task"
)

// SchemaVersion is the current on-disk schema for all three artifacts.
const SchemaVersion = 1

// Meta is the header common to the task indices.
type Meta struct {
	Schema      int       `json:"schema"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ObsIndex is the Obsidian-side task index.
type ObsIndex struct {
	Meta  Meta                     `json:"meta"`
	Tasks map[string]*task.ObsTask `json:"tasks"`
}

// RemIndex is the Reminders-side task index.
type RemIndex struct {
	Meta  Meta                     `json:"meta"`
	Tasks map[string]*task.RemTask `json:"tasks"`
}

// LinkMeta is the link-file header. ObsTotal and RemTotal record how many
// active tasks each side contributed to the matching pass.
type LinkMeta struct {
	Schema      int       `json:"schema"`
	GeneratedAt time.Time `json:"generated_at"`
	ObsTotal    int       `json:"obs_total"`
	RemTotal    int       `json:"rem_total"`
}

// LinkFile is the persisted link set.
type LinkFile struct {
	Meta  LinkMeta     `json:"meta"`
	Links []*link.Link `json:"links"`
}

// ValidationError reports a malformed index or link file. Input errors are
// hard failures: the core refuses partial processing of a corrupt artifact.
type ValidationError struct {
	Path    string // file the artifact came from
	Field   string // offending field or map key, when known
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid index %s: %s: %s", e.Path, e.Field, e.Message)
	}
	return fmt.Sprintf("invalid index %s: %s", e.Path, e.Message)
}

// validateTasks applies the boundary checks shared by both indices: a
// supported schema, and every record keyed by its own non-empty UUID.
func validateTasks[T any](path string, meta Meta, tasks map[string]T, uuidOf func(T) string) error {
	if meta.Schema != SchemaVersion {
		return &ValidationError{
			Path:    path,
			Field:   "meta.schema",
			Message: fmt.Sprintf("unsupported schema %d, want %d", meta.Schema, SchemaVersion),
		}
	}
	for key, rec := range tasks {
		id := uuidOf(rec)
		if id == "" {
			return &ValidationError{Path: path, Field: key, Message: "task record has empty uuid"}
		}
		if id != key {
			return &ValidationError{
				Path:    path,
				Field:   key,
				Message: fmt.Sprintf("task record uuid %q does not match its map key", id),
			}
		}
	}
	return nil
}

// Validate checks the Obsidian index after deserialization.
func (ix *ObsIndex) Validate(path string) error {
	if ix.Tasks == nil {
		ix.Tasks = map[string]*task.ObsTask{}
	}
	return validateTasks(path, ix.Meta, ix.Tasks, func(t *task.ObsTask) string { return t.UUID })
}

// Validate checks the Reminders index after deserialization.
func (ix *RemIndex) Validate(path string) error {
	if ix.Tasks == nil {
		ix.Tasks = map[string]*task.RemTask{}
	}
	return validateTasks(path, ix.Meta, ix.Tasks, func(t *task.RemTask) string { return t.UUID })
}

// Validate checks the link file after deserialization, including the
// one-to-one endpoint invariant.
func (lf *LinkFile) Validate(path string) error {
	if lf.Meta.Schema != SchemaVersion {
		return &ValidationError{
			Path:    path,
			Field:   "meta.schema",
			Message: fmt.Sprintf("unsupported schema %d, want %d", lf.Meta.Schema, SchemaVersion),
		}
	}
	if _, err := link.FromLinks(lf.Links); err != nil {
		return &ValidationError{Path: path, Field: "links", Message: err.Error()}
	}
	return nil
}

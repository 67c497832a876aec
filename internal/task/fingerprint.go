package task

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/BoweyLou/obssync/internal/normalize"
)

// Fingerprint computes the content hash for a record, independent of where
// the task lives (SourceKey plays no part). Two tasks with the same semantic
// payload produce the same fingerprint even if one moved files or lost its
// block anchor.
//
// The hash covers description, status, due day, priority and sorted tags,
// separated by an unambiguous delimiter. Tags are sorted so collection order
// doesn't leak into the hash.
func Fingerprint(description string, status Status, due, priority string, tags []string) string {
	day := ""
	if d, ok := ParseDue(due); ok {
		day = d.Format(DueLayout)
	}

	sorted := make([]string, len(tags))
	copy(sorted, tags)
	sort.Strings(sorted)

	h := sha256.New()
	h.Write([]byte(description))
	h.Write([]byte{0})
	h.Write([]byte(status))
	h.Write([]byte{0})
	h.Write([]byte(day))
	h.Write([]byte{0})
	h.Write([]byte(priority))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(sorted, ",")))
	return hex.EncodeToString(h.Sum(nil))
}

// ContentKey computes the normalized content key used for identity
// reconciliation when a task's SourceKey changed between runs.
//
// Unlike Fingerprint it is insensitive to cosmetic edits: the description is
// tokenized first, so whitespace and punctuation changes produce the same
// key. Only the normalized title and the due day participate - status and
// priority edits must not break identity.
func ContentKey(description, due string) string {
	tokens := normalize.Tokenize(description)
	day := ""
	if d, ok := ParseDue(due); ok {
		day = d.Format(DueLayout)
	}
	return strings.Join(tokens, " ") + "|" + day
}

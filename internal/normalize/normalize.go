// Package normalize turns task descriptions into canonical token sequences
// for similarity scoring.
//
// Normalization is deterministic and pure: the same input always yields the
// same token sequence, and no state is shared between calls. Matching quality
// depends on both stores normalizing identically, so every caller in the
// pipeline goes through Tokenize - there is no second normalization path.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// urlRegex matches http(s) URLs embedded in task descriptions. Obsidian tasks
// frequently carry trailing links; their hostnames and paths are noise for
// title similarity and are stripped before tokenization.
var urlRegex = regexp.MustCompile(`https?://\S+`)

// Tokenize converts a task description into an ordered sequence of lowercase
// alphanumeric tokens.
//
// The pipeline is:
//  1. NFC-normalize (composed form, so "é" compares equal regardless of
//     how the editor encoded it)
//  2. Lower-case
//  3. Strip URLs
//  4. Replace every non-alphanumeric, non-whitespace rune with a space
//  5. Split on whitespace (which also collapses runs of spaces)
//
// Empty input yields an empty (non-nil) slice so callers can treat the
// result uniformly as a set.
func Tokenize(text string) []string {
	if text == "" {
		return []string{}
	}

	s := norm.NFC.String(text)
	s = strings.ToLower(s)
	s = urlRegex.ReplaceAllString(s, " ")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune(' ')
	}

	fields := strings.Fields(b.String())
	if fields == nil {
		return []string{}
	}
	return fields
}

// TokenSet converts a token sequence into a set for intersection counting.
// Duplicate tokens collapse; the Dice coefficient in the scorer operates on
// distinct tokens.
func TokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

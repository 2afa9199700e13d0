// Package naming implements the bookmark-name derivation used by the
// Stack Orchestrator: slugify, the date-prefixed label format, and
// collision resolution against the host's existing PRs.
package naming

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const maxSlugLength = 50

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases x, replaces runs of non-alphanumeric characters with a
// single "-", trims leading/trailing "-", and truncates to 50 characters.
// Whitespace-only or empty input yields "untitled" (S1).
func Slugify(x string) string {
	lower := strings.ToLower(x)
	slug := nonAlnum.ReplaceAllString(lower, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "untitled"
	}
	if len(slug) > maxSlugLength {
		slug = strings.Trim(slug[:maxSlugLength], "-")
	}
	return slug
}

// DatePrefixedLabel builds "MM-DD-<slug>" for description, using now as the
// current date. Invariant 7: DatePrefixedLabel(slugify(x)) == MM-DD-slug(x).
func DatePrefixedLabel(description string, now time.Time) string {
	return fmt.Sprintf("%02d-%02d-%s", now.Month(), now.Day(), Slugify(description))
}

// MaxCollisionSuffix bounds the suffix search in ResolveName to "-2, -3,
// ..., -25" before giving up.
const MaxCollisionSuffix = 25

// HostLookup reports the state of an existing PR for a candidate head
// name, or ok=false if none exists.
type HostLookup func(head string) (state string, ok bool)

// ResolveName finds a free bookmark name for candidate, consulting lookup
// for existing PRs and assigned tracking the names already claimed in this
// submit batch. If candidate has no PR or an OPEN one, it is returned
// unchanged. If CLOSED/MERGED, suffixes -2..-25 are tried, skipping any
// name already in assigned or with its own existing PR. hadConflict is
// true whenever a suffix had to be applied.
func ResolveName(candidate string, lookup HostLookup, assigned map[string]bool) (name string, hadConflict bool, err error) {
	if assigned[candidate] {
		return trySuffixes(candidate, lookup, assigned)
	}
	state, exists := lookup(candidate)
	if !exists || state == "OPEN" {
		return candidate, false, nil
	}
	return trySuffixes(candidate, lookup, assigned)
}

func trySuffixes(candidate string, lookup HostLookup, assigned map[string]bool) (string, bool, error) {
	for k := 2; k <= MaxCollisionSuffix; k++ {
		name := fmt.Sprintf("%s-%d", candidate, k)
		if assigned[name] {
			continue
		}
		if _, exists := lookup(name); !exists {
			return name, true, nil
		}
	}
	return "", false, fmt.Errorf("CONFLICT: no free name found for %q after %d suffixes", candidate, MaxCollisionSuffix-1)
}

package cue

import "strings"

// StripLeadingToken drops the first space-delimited token, which is the cue
// number in composite marker names. A name without a space strips to "".
func StripLeadingToken(name string) string {
	_, rest, found := strings.Cut(name, " ")
	if !found {
		return ""
	}
	return rest
}

// MatchTarget normalizes a locate target for comparison.
func MatchTarget(name string, nameOnly bool) string {
	if nameOnly {
		return StripLeadingToken(name)
	}
	return name
}

// MarkerMatches compares a DAW marker name against a normalized locate target.
// An empty target matches nothing, so a label-only cue never lands on a
// marker that also has no name.
func MarkerMatches(marker, target string, nameOnly bool) bool {
	if target == "" {
		return false
	}
	return MatchTarget(marker, nameOnly) == target
}

package domain

import (
	"slices"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
)

// maxSuggestDistance bounds the edit distance at which a reported choice is
// considered a likely misspelling of a missing one.
const maxSuggestDistance = 2

// foldCaser is shared so choice names are not re-folded with a fresh caser
// on every comparison.
var foldCaser = cases.Fold()

// checkChoices verifies that counts reports every choice in choices.
func checkChoices(key ContestCounty, precinct string, choices []string, counts map[string]int64) error {
	var missing []string
	for _, c := range choices {
		if _, ok := counts[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	reported := make([]string, 0, len(counts))
	for c := range counts {
		reported = append(reported, c)
	}
	slices.Sort(reported)

	ie := NewIntegrityError(key, precinct, ErrChoiceMismatch)
	ie.Missing = missing
	ie.Suggestions = suggestChoices(missing, reported)
	return ie
}

// suggestChoices pairs each missing choice with the closest reported choice
// under case-folded Levenshtein distance. Only pairs within
// maxSuggestDistance are returned; ties resolve to the alphabetically first
// reported choice.
func suggestChoices(missing, reported []string) map[string]string {
	out := make(map[string]string)
	for _, m := range missing {
		fm := foldCaser.String(m)
		best, bestDist := "", maxSuggestDistance+1
		for _, r := range reported {
			if r == m {
				continue
			}
			if d := levenshtein.ComputeDistance(fm, foldCaser.String(r)); d < bestDist {
				best, bestDist = r, d
			}
		}
		if best != "" {
			out[m] = best
		}
	}
	return out
}

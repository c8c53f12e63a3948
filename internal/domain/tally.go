package domain

import (
	"fmt"
	"slices"
	"sort"

	"github.com/samber/lo"
)

// Tally is the aggregated, precinct-ordered view of one ContestCounty.
// Every per-choice series has exactly len(Precincts) entries and position i
// reflects the first i+1 precincts in Precincts.
//
// A Tally is owned by the Aggregate call that produced it. Scoring, ranking
// and reporting read it but never mutate it.
type Tally struct {
	// Key identifies the ContestCounty that was tallied.
	Key ContestCounty `json:"key"`

	// Precincts is the precinct order: ascending by precinct turnout, ties
	// broken by precinct name.
	Precincts []string `json:"precincts"`

	// Choices lists every choice in alphabetical order.
	Choices []string `json:"choices"`

	// Votes is the cumulative vote series keyed by choice.
	Votes map[string][]int64 `json:"votes"`

	// Percentages is the cumulative share series keyed by choice.
	// Positions whose cross-choice total is zero hold 0.0 for every choice.
	Percentages map[string][]float64 `json:"percentages"`

	// Totals holds the cross-choice cumulative vote total per position.
	// It is non-decreasing by construction.
	Totals []int64 `json:"totals"`
}

// Len returns the number of precincts in the tally.
func (t *Tally) Len() int { return len(t.Precincts) }

// TotalVotes returns the final cross-choice vote total.
func (t *Tally) TotalVotes() int64 {
	if len(t.Totals) == 0 {
		return 0
	}
	return t.Totals[len(t.Totals)-1]
}

// FindIndex is FindIndex over the tally's cumulative totals.
func (t *Tally) FindIndex(target float64) int { return FindIndex(t.Totals, target) }

// Aggregate groups the records of one ContestCounty by precinct, orders the
// precincts by ascending turnout and builds the cumulative vote and
// percentage series for every choice.
//
// Duplicate (precinct, choice) rows are summed. Aggregate fails with
// ErrNoRecords for empty input and with an *IntegrityError when a record
// belongs to another ContestCounty, carries a negative total, or when a
// precinct does not report every choice seen elsewhere in the unit.
func Aggregate(key ContestCounty, records []VoteRecord) (*Tally, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("aggregate %s: %w", key, ErrNoRecords)
	}

	byPrecinct := make(map[string]map[string]int64)
	choiceSet := make(map[string]struct{})
	for _, r := range records {
		if r.Key() != key {
			return nil, NewIntegrityError(key, r.Precinct,
				fmt.Errorf("%w: %s", ErrForeignRecord, r.Key()))
		}
		if r.Votes < 0 {
			return nil, NewIntegrityError(key, r.Precinct,
				fmt.Errorf("%w: %q has %d", ErrNegativeVotes, r.Choice, r.Votes))
		}
		counts, ok := byPrecinct[r.Precinct]
		if !ok {
			counts = make(map[string]int64)
			byPrecinct[r.Precinct] = counts
		}
		counts[r.Choice] += r.Votes
		choiceSet[r.Choice] = struct{}{}
	}

	choices := lo.Keys(choiceSet)
	slices.Sort(choices)

	precincts := lo.Keys(byPrecinct)
	slices.Sort(precincts)

	for _, p := range precincts {
		if err := checkChoices(key, p, choices, byPrecinct[p]); err != nil {
			return nil, err
		}
	}

	turnout := make(map[string]int64, len(precincts))
	for _, p := range precincts {
		turnout[p] = lo.Sum(lo.Values(byPrecinct[p]))
	}
	// Stable over the name-sorted slice, so equal turnouts keep name order.
	sort.SliceStable(precincts, func(i, j int) bool {
		return turnout[precincts[i]] < turnout[precincts[j]]
	})

	n := len(precincts)
	t := &Tally{
		Key:         key,
		Precincts:   precincts,
		Choices:     choices,
		Votes:       make(map[string][]int64, len(choices)),
		Percentages: make(map[string][]float64, len(choices)),
		Totals:      make([]int64, n),
	}
	for _, c := range choices {
		t.Votes[c] = make([]int64, n)
		t.Percentages[c] = make([]float64, n)
	}

	running := make(map[string]int64, len(choices))
	for i, p := range precincts {
		var total int64
		for _, c := range choices {
			running[c] += byPrecinct[p][c]
			t.Votes[c][i] = running[c]
			total += running[c]
		}
		t.Totals[i] = total
		t.normalize(i, total)
	}

	return t, nil
}

// normalize fills position i of the percentage series from the vote series.
func (t *Tally) normalize(i int, total int64) {
	for _, c := range t.Choices {
		if total == 0 {
			t.Percentages[c][i] = 0
			continue
		}
		t.Percentages[c][i] = float64(t.Votes[c][i]) / float64(total)
	}
}

package domain

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = ContestCounty{Contest: "US PRESIDENT - DEM", County: "WAKE"}

// precinctVotes describes one precinct's per-choice totals in test fixtures.
type precinctVotes struct {
	name  string
	votes map[string]int64
}

// buildRecords expands precinct fixtures into VoteRecords for testKey.
func buildRecords(precincts ...precinctVotes) []VoteRecord {
	var records []VoteRecord
	for _, p := range precincts {
		for choice, v := range p.votes {
			records = append(records, VoteRecord{
				Contest:  testKey.Contest,
				County:   testKey.County,
				Precinct: p.name,
				Choice:   choice,
				Votes:    v,
			})
		}
	}
	return records
}

// abPrecinct is shorthand for a two-choice precinct.
func abPrecinct(name string, a, b int64) precinctVotes {
	return precinctVotes{name: name, votes: map[string]int64{"A": a, "B": b}}
}

// fivePrecinctRecords is the reference five-precinct scenario.
func fivePrecinctRecords() []VoteRecord {
	return buildRecords(
		abPrecinct("P1", 10, 10),
		abPrecinct("P2", 20, 10),
		abPrecinct("P3", 15, 25),
		abPrecinct("P4", 5, 5),
		abPrecinct("P5", 50, 50),
	)
}

func TestAggregate_FivePrecinctScenario(t *testing.T) {
	tally, err := Aggregate(testKey, fivePrecinctRecords())
	require.NoError(t, err)

	// Turnouts: P1=20, P2=30, P3=40, P4=10, P5=100.
	assert.Equal(t, []string{"P4", "P1", "P2", "P3", "P5"}, tally.Precincts)
	assert.Equal(t, []string{"A", "B"}, tally.Choices)

	assert.Equal(t, []int64{5, 15, 35, 50, 100}, tally.Votes["A"])
	assert.Equal(t, []int64{5, 15, 25, 50, 100}, tally.Votes["B"])
	assert.Equal(t, []int64{10, 30, 60, 100, 200}, tally.Totals)
	assert.Equal(t, int64(200), tally.TotalVotes())

	wantA := []float64{0.5, 0.5, 35.0 / 60.0, 0.5, 0.5}
	wantB := []float64{0.5, 0.5, 25.0 / 60.0, 0.5, 0.5}
	assert.InDeltaSlice(t, wantA, tally.Percentages["A"], 1e-12)
	assert.InDeltaSlice(t, wantB, tally.Percentages["B"], 1e-12)
}

func TestAggregate_FirstPositionIsFirstPrecinct(t *testing.T) {
	tally, err := Aggregate(testKey, buildRecords(
		abPrecinct("big", 70, 30),
		abPrecinct("small", 3, 1),
	))
	require.NoError(t, err)

	assert.Equal(t, int64(3), tally.Votes["A"][0], "position 0 must already hold the smallest precinct's votes")
	assert.Equal(t, int64(1), tally.Votes["B"][0])
	assert.InDelta(t, 0.75, tally.Percentages["A"][0], 1e-12)
}

func TestAggregate_TurnoutTiesBrokenByPrecinctName(t *testing.T) {
	tally, err := Aggregate(testKey, buildRecords(
		abPrecinct("zeta", 5, 5),
		abPrecinct("alpha", 2, 8),
		abPrecinct("mid", 1, 1),
	))
	require.NoError(t, err)
	assert.Equal(t, []string{"mid", "alpha", "zeta"}, tally.Precincts)
}

func TestAggregate_ZeroTurnoutPositions(t *testing.T) {
	tally, err := Aggregate(testKey, buildRecords(
		abPrecinct("empty-1", 0, 0),
		abPrecinct("empty-2", 0, 0),
		abPrecinct("full", 3, 1),
	))
	require.NoError(t, err)

	for _, c := range tally.Choices {
		assert.Equal(t, 0.0, tally.Percentages[c][0], "choice %s", c)
		assert.Equal(t, 0.0, tally.Percentages[c][1], "choice %s", c)
	}
	assert.InDelta(t, 0.75, tally.Percentages["A"][2], 1e-12)
	assert.InDelta(t, 0.25, tally.Percentages["B"][2], 1e-12)
}

func TestAggregate_DuplicateRowsAreSummed(t *testing.T) {
	records := buildRecords(abPrecinct("P1", 4, 6))
	records = append(records, VoteRecord{
		Contest: testKey.Contest, County: testKey.County,
		Precinct: "P1", Choice: "A", Votes: 6,
	})

	tally, err := Aggregate(testKey, records)
	require.NoError(t, err)
	assert.Equal(t, []int64{10}, tally.Votes["A"])
	assert.Equal(t, []int64{16}, tally.Totals)
}

func TestAggregate_Errors(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		_, err := Aggregate(testKey, nil)
		assert.ErrorIs(t, err, ErrNoRecords)
	})

	t.Run("missing choice is an integrity fault", func(t *testing.T) {
		records := buildRecords(
			precinctVotes{name: "P1", votes: map[string]int64{"Alice": 10, "Robert": 10}},
			precinctVotes{name: "P2", votes: map[string]int64{"Alice": 5}},
		)
		_, err := Aggregate(testKey, records)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrChoiceMismatch)

		var ie *IntegrityError
		require.True(t, errors.As(err, &ie))
		assert.Equal(t, testKey, ie.Key)
		assert.Equal(t, "P2", ie.Precinct)
		assert.Equal(t, []string{"Robert"}, ie.Missing)
		assert.Empty(t, ie.Suggestions)
	})

	t.Run("misspelled choice gets a suggestion", func(t *testing.T) {
		records := buildRecords(
			precinctVotes{name: "p1", votes: map[string]int64{"Bernie Sanders": 4, "Hillary Clinton": 5}},
			precinctVotes{name: "p2", votes: map[string]int64{"bernie sanders": 4, "Hillary Clinton": 5}},
		)
		_, err := Aggregate(testKey, records)

		var ie *IntegrityError
		require.True(t, errors.As(err, &ie))
		assert.Equal(t, "p1", ie.Precinct)
		assert.Equal(t, []string{"bernie sanders"}, ie.Missing)
		assert.Equal(t, "Bernie Sanders", ie.Suggestions["bernie sanders"])
		assert.Contains(t, ie.Error(), `"bernie sanders" looks like "Bernie Sanders"`)
	})

	t.Run("record from another county", func(t *testing.T) {
		records := fivePrecinctRecords()
		records[0].County = "DURHAM"
		_, err := Aggregate(testKey, records)
		assert.ErrorIs(t, err, ErrForeignRecord)
	})

	t.Run("negative votes", func(t *testing.T) {
		_, err := Aggregate(testKey, buildRecords(abPrecinct("P1", -1, 3)))
		assert.ErrorIs(t, err, ErrNegativeVotes)
	})
}

// TestAggregate_SeriesInvariants checks equal non-zero series lengths and
// that each position's shares sum to one unless its total is zero.
func TestAggregate_SeriesInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	choices := []string{"A", "B", "C", "No Preference"}

	for trial := 0; trial < 50; trial++ {
		var precincts []precinctVotes
		n := 1 + rng.Intn(40)
		for i := 0; i < n; i++ {
			votes := make(map[string]int64, len(choices))
			for _, c := range choices {
				if rng.Intn(5) == 0 {
					votes[c] = 0
					continue
				}
				votes[c] = rng.Int63n(500)
			}
			precincts = append(precincts, precinctVotes{name: fmt.Sprintf("P%03d", i), votes: votes})
		}

		tally, err := Aggregate(testKey, buildRecords(precincts...))
		require.NoError(t, err)
		require.Equal(t, n, tally.Len())

		for _, c := range tally.Choices {
			require.Len(t, tally.Votes[c], n)
			require.Len(t, tally.Percentages[c], n)
		}
		for i := 0; i < n; i++ {
			if i > 0 {
				require.GreaterOrEqual(t, tally.Totals[i], tally.Totals[i-1], "totals must be non-decreasing")
			}
			var sum float64
			for _, c := range tally.Choices {
				sum += tally.Percentages[c][i]
			}
			if tally.Totals[i] == 0 {
				assert.Equal(t, 0.0, sum)
				continue
			}
			assert.InDelta(t, 1.0, sum, 1e-9, "trial %d position %d", trial, i)
		}
	}
}

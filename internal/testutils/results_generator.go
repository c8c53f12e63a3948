// Package testutils provides utilities for testing, including synthetic
// precinct results generators. These components are intended for internal
// use within the project's test suites and tools and are not part of the
// public API.
package testutils

import (
	"fmt"
	"math"
	"math/rand"
	"slices"

	"github.com/ahrav/go-tally/internal/domain"
)

// Contest is a ballot question and the choices offered on it.
type Contest struct {
	Name    string
	Choices []string
}

// DefaultContests mirrors a presidential preference primary.
var DefaultContests = []Contest{
	{Name: "PRESIDENTIAL PREFERENCE (DEM)", Choices: []string{"Bernie Sanders", "Hillary Clinton", "No Preference"}},
	{Name: "PRESIDENTIAL PREFERENCE (REP)", Choices: []string{"Donald J. Trump", "John R. Kasich", "Ted Cruz"}},
	{Name: "US SENATE (DEM)", Choices: []string{"Deborah K. Ross", "Chris Rey"}},
}

// DefaultCounties are used when SampleConfig.Counties is empty.
var DefaultCounties = []string{"ALAMANCE", "ASHE", "DURHAM", "GUILFORD", "NEW HANOVER", "WAKE"}

// SampleConfig controls synthetic results generation.
type SampleConfig struct {
	Contests []Contest
	Counties []string
	// MinPrecincts and MaxPrecincts bound the precincts per county.
	MinPrecincts, MaxPrecincts int
	// MinTurnout and MaxTurnout bound the votes cast per precinct.
	MinTurnout, MaxTurnout int
	// SwingUnits is how many ContestCounties get a late swing.
	SwingUnits int
	// Swing is the share moved to the first choice in the larger half of a
	// swung unit's precincts.
	Swing float64
}

// DefaultSampleConfig returns a configuration whose unswung units stay far
// below the default score threshold and whose swung units exceed it.
func DefaultSampleConfig() SampleConfig {
	return SampleConfig{
		Contests:     DefaultContests,
		Counties:     DefaultCounties,
		MinPrecincts: 20,
		MaxPrecincts: 40,
		MinTurnout:   200,
		MaxTurnout:   800,
		SwingUnits:   2,
		Swing:        0.2,
	}
}

// SampleResults is a generated results set.
type SampleResults struct {
	Records []domain.VoteRecord
	// Swung lists the ContestCounties that received a late swing, in
	// ContestCounty order.
	Swung []domain.ContestCounty
}

// GenerateSampleResults creates a synthetic results set. The seed controls
// randomization; a fixed seed reproduces the same records.
// NOTE: This is for testing purposes only and does not resemble any real
// election.
func GenerateSampleResults(cfg SampleConfig, seed int64) (*SampleResults, error) {
	if len(cfg.Contests) == 0 {
		cfg.Contests = DefaultContests
	}
	if len(cfg.Counties) == 0 {
		cfg.Counties = DefaultCounties
	}
	if cfg.MinPrecincts <= 0 || cfg.MaxPrecincts < cfg.MinPrecincts {
		return nil, fmt.Errorf("invalid precinct range [%d, %d]", cfg.MinPrecincts, cfg.MaxPrecincts)
	}
	if cfg.MinTurnout <= 0 || cfg.MaxTurnout < cfg.MinTurnout {
		return nil, fmt.Errorf("invalid turnout range [%d, %d]", cfg.MinTurnout, cfg.MaxTurnout)
	}
	if cfg.Swing < 0 || cfg.Swing >= 1 {
		return nil, fmt.Errorf("swing %v must be in [0, 1)", cfg.Swing)
	}

	rng := rand.New(rand.NewSource(seed))

	var units []domain.ContestCounty
	for _, c := range cfg.Contests {
		for _, county := range cfg.Counties {
			units = append(units, domain.ContestCounty{Contest: c.Name, County: county})
		}
	}
	if cfg.SwingUnits > len(units) {
		return nil, fmt.Errorf("cannot swing %d of %d units", cfg.SwingUnits, len(units))
	}

	swung := make(map[domain.ContestCounty]bool, cfg.SwingUnits)
	for _, i := range rng.Perm(len(units))[:cfg.SwingUnits] {
		swung[units[i]] = true
	}

	// Precinct layouts are per county and shared across contests, as on a
	// real ballot.
	layouts := make(map[string][]int, len(cfg.Counties))
	for _, county := range cfg.Counties {
		n := cfg.MinPrecincts + rng.Intn(cfg.MaxPrecincts-cfg.MinPrecincts+1)
		turnouts := make([]int, n)
		for i := range turnouts {
			turnouts[i] = cfg.MinTurnout + rng.Intn(cfg.MaxTurnout-cfg.MinTurnout+1)
		}
		layouts[county] = turnouts
	}

	out := &SampleResults{}
	for _, c := range cfg.Contests {
		for _, county := range cfg.Counties {
			key := domain.ContestCounty{Contest: c.Name, County: county}
			shares := baseShares(rng, len(c.Choices))
			turnouts := layouts[county]

			swingFrom := math.MaxInt
			if swung[key] {
				out.Swung = append(out.Swung, key)
				swingFrom = upperHalfStart(turnouts)
			}

			for i, turnout := range turnouts {
				s := shares
				if turnout >= swingFrom {
					s = shift(shares, cfg.Swing)
				}
				for j, votes := range apportion(turnout, s) {
					out.Records = append(out.Records, domain.VoteRecord{
						Contest:  c.Name,
						County:   county,
						Precinct: fmt.Sprintf("%s-%03d", county[:min(3, len(county))], i+1),
						Choice:   c.Choices[j],
						Votes:    int64(votes),
					})
				}
			}
		}
	}
	slices.SortFunc(out.Swung, domain.ContestCounty.Compare)
	return out, nil
}

// baseShares draws a share vector summing to 1 with every share at least
// 0.1 so swings never drive a choice negative.
func baseShares(rng *rand.Rand, n int) []float64 {
	weights := make([]float64, n)
	var sum float64
	for i := range weights {
		weights[i] = 1 + 3*rng.Float64()
		sum += weights[i]
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}

// shift moves amount of share to the first choice, taken from the others
// in proportion to their share.
func shift(shares []float64, amount float64) []float64 {
	out := slices.Clone(shares)
	rest := 1 - shares[0]
	if rest <= 0 || len(shares) < 2 {
		return out
	}
	amount = min(amount, rest*0.9)
	out[0] += amount
	for i := 1; i < len(out); i++ {
		out[i] -= amount * shares[i] / rest
	}
	return out
}

// upperHalfStart returns the smallest turnout in the larger half of
// precincts.
func upperHalfStart(turnouts []int) int {
	sorted := slices.Clone(turnouts)
	slices.Sort(sorted)
	return sorted[len(sorted)/2]
}

// apportion splits total votes by shares with the largest remainder
// method, so the parts always sum to total.
func apportion(total int, shares []float64) []int {
	parts := make([]int, len(shares))
	rems := make([]float64, len(shares))
	assigned := 0
	for i, s := range shares {
		exact := float64(total) * s
		parts[i] = int(math.Floor(exact))
		rems[i] = exact - float64(parts[i])
		assigned += parts[i]
	}

	order := make([]int, len(shares))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case rems[a] > rems[b]:
			return -1
		case rems[a] < rems[b]:
			return 1
		}
		return 0
	})
	for i := 0; assigned < total; i++ {
		parts[order[i%len(order)]]++
		assigned++
	}
	return parts
}

package domain

import (
	"cmp"
	"fmt"
)

// VoteRecord is a single (contest, county, precinct, choice) vote total as
// produced by a VoteRecordSource. Records are immutable once produced; the
// core only reads them.
type VoteRecord struct {
	// Contest is the contest name, e.g. "US PRESIDENT - DEM".
	Contest string `json:"contest"`

	// County identifies the county the precinct belongs to.
	County string `json:"county"`

	// Precinct identifies the reporting precinct within the county.
	Precinct string `json:"precinct"`

	// Choice is the candidate or ballot option the votes were cast for.
	Choice string `json:"choice"`

	// Votes is the total number of votes for Choice in Precinct.
	// Negative values are rejected during aggregation.
	Votes int64 `json:"total_votes"`
}

// Key returns the ContestCounty this record belongs to.
func (r VoteRecord) Key() ContestCounty {
	return ContestCounty{Contest: r.Contest, County: r.County}
}

// ContestCounty identifies one independent anomaly-detection unit: a single
// contest within a single county.
type ContestCounty struct {
	Contest string `json:"contest"`
	County  string `json:"county"`
}

// String renders the key as "contest / county".
func (k ContestCounty) String() string {
	return fmt.Sprintf("%s / %s", k.Contest, k.County)
}

// Compare orders keys by contest and then county. It provides the
// deterministic secondary order used when ranking equal scores.
func (k ContestCounty) Compare(other ContestCounty) int {
	if c := cmp.Compare(k.Contest, other.Contest); c != 0 {
		return c
	}
	return cmp.Compare(k.County, other.County)
}

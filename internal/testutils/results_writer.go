package testutils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ahrav/go-tally/internal/domain"
)

// resultsHeader is the column layout of a North Carolina precinct results
// file.
var resultsHeader = []string{
	"County", "Election Date", "Precinct", "Contest Group ID", "Contest Type",
	"Contest Name", "Choice", "Choice Party", "Vote For", "Election Day",
	"One Stop", "Absentee by Mail", "Provisional", "Total Votes",
}

// WriteResults writes records in the tab-separated results format. Votes
// are reported entirely as Election Day ballots.
func WriteResults(w io.Writer, records []domain.VoteRecord) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(resultsHeader, "\t") + "\n"); err != nil {
		return err
	}
	for _, r := range records {
		_, err := fmt.Fprintf(bw, "%s\t03/15/2016\t%s\t1\tS\t%s\t%s\t\t1\t%d\t0\t0\t0\t%d\n",
			r.County, r.Precinct, r.Contest, r.Choice, r.Votes, r.Votes)
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

// SaveResults writes records to path, creating parent directories.
func SaveResults(path string, records []domain.VoteRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	if err := WriteResults(f, records); err != nil {
		f.Close()
		return fmt.Errorf("failed to write results file: %w", err)
	}
	return f.Close()
}

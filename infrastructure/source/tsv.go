// Package source provides VoteRecordSource implementations and the reader
// for precinct-level results files.
package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ahrav/go-tally/internal/domain"
	"github.com/ahrav/go-tally/internal/ports"
)

// Column headers the reader requires. Matching is case-insensitive and
// treats spaces and underscores alike, so "Contest_Name" also matches.
const (
	ColumnCounty   = "County"
	ColumnPrecinct = "Precinct"
	ColumnContest  = "Contest Name"
	ColumnChoice   = "Choice"
	ColumnVotes    = "Total Votes"
)

// TSVReader parses tab-separated precinct results with a header row.
// Extra columns are ignored.
type TSVReader struct {
	// name identifies the input in errors, usually the file path.
	name string
}

// NewTSVReader creates a reader whose errors are attributed to name.
func NewTSVReader(name string) *TSVReader {
	if name == "" {
		name = "tsv"
	}
	return &TSVReader{name: name}
}

// ReadFile opens path and reads every record from it.
func ReadFile(ctx context.Context, path string) ([]domain.VoteRecord, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, ports.NewSourceError(path, "open", err)
	}
	defer f.Close()
	return NewTSVReader(path).Read(ctx, f)
}

// maxLineBytes bounds a single input line.
const maxLineBytes = 1 << 20

// Read parses every row of r. Fields are split on tabs with no quoting, so
// a choice such as `"Rocky" De La Fuente` is read as written. A malformed
// row fails the whole load; the returned *ports.SourceError carries the
// offending line.
func (tr *TSVReader) Read(ctx context.Context, r io.Reader) ([]domain.VoteRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, tr.lineError(1, "header", err)
		}
		return nil, tr.lineError(1, "header", fmt.Errorf("%w: empty input", ports.ErrMissingColumn))
	}
	cols, err := mapColumns(splitLine(sc.Text()))
	if err != nil {
		return nil, tr.lineError(1, "header", err)
	}

	var records []domain.VoteRecord
	line := 1
	for sc.Scan() {
		line++
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		text := sc.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		rec, err := cols.record(splitLine(text))
		if err != nil {
			return nil, tr.lineError(line, "parse", err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, tr.lineError(line+1, "read", err)
	}
	return records, nil
}

func splitLine(text string) []string {
	return strings.Split(strings.TrimSuffix(text, "\r"), "\t")
}

func (tr *TSVReader) lineError(line int, op string, err error) error {
	se := ports.NewSourceError(tr.name, op, err)
	se.Line = line
	return se
}

// columnIndex holds the position of each required column.
type columnIndex struct {
	county, precinct, contest, choice, votes int
	width                                    int
}

func normalizeHeader(h string) string {
	h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	return strings.ToLower(strings.ReplaceAll(h, "_", " "))
}

func mapColumns(header []string) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, dup := pos[key]; !dup {
			pos[key] = i
		}
	}

	var missing []string
	lookup := func(name string) int {
		i, ok := pos[normalizeHeader(name)]
		if !ok {
			missing = append(missing, name)
			return -1
		}
		return i
	}

	idx := columnIndex{
		county:   lookup(ColumnCounty),
		precinct: lookup(ColumnPrecinct),
		contest:  lookup(ColumnContest),
		choice:   lookup(ColumnChoice),
		votes:    lookup(ColumnVotes),
	}
	if len(missing) > 0 {
		return columnIndex{}, fmt.Errorf("%w: %s", ports.ErrMissingColumn, strings.Join(missing, ", "))
	}
	idx.width = max(idx.county, idx.precinct, idx.contest, idx.choice, idx.votes) + 1
	return idx, nil
}

func (c columnIndex) record(row []string) (domain.VoteRecord, error) {
	if len(row) < c.width {
		return domain.VoteRecord{}, fmt.Errorf("%w: %d fields, need %d", ports.ErrMalformedRecord, len(row), c.width)
	}

	raw := strings.TrimSpace(row[c.votes])
	votes, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return domain.VoteRecord{}, fmt.Errorf("%w: total votes %q", ports.ErrMalformedRecord, raw)
	}

	rec := domain.VoteRecord{
		Contest:  strings.TrimSpace(row[c.contest]),
		County:   strings.TrimSpace(row[c.county]),
		Precinct: strings.TrimSpace(row[c.precinct]),
		Choice:   strings.TrimSpace(row[c.choice]),
		Votes:    votes,
	}
	if rec.Contest == "" || rec.County == "" || rec.Precinct == "" || rec.Choice == "" {
		return domain.VoteRecord{}, fmt.Errorf("%w: empty key field", ports.ErrMalformedRecord)
	}
	return rec, nil
}

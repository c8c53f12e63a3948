package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tally/internal/domain"
	"github.com/ahrav/go-tally/internal/ports"
	"github.com/ahrav/go-tally/internal/testutils"
)

// ncHeader is the full header of a North Carolina precinct results file.
const ncHeader = "County\tElection Date\tPrecinct\tContest Group ID\tContest Type\tContest Name\tChoice\tChoice Party\tVote For\tElection Day\tOne Stop\tAbsentee by Mail\tProvisional\tTotal Votes\n"

func ncRow(county, precinct, contest, choice, votes string) string {
	return strings.Join([]string{
		county, "03/15/2016", precinct, "1", "S", contest, choice, "DEM", "1", "0", "0", "0", "0", votes,
	}, "\t") + "\n"
}

func TestTSVReader_Read(t *testing.T) {
	input := ncHeader +
		ncRow("WAKE", "01-01", "PRESIDENT - DEM", "Bernie Sanders", "120") +
		ncRow("WAKE", "01-01", "PRESIDENT - DEM", "Hillary Clinton", "180") +
		"\n" +
		ncRow("DURHAM", "30-2", "PRESIDENT - DEM", "No Preference", "4")

	records, err := NewTSVReader("results.txt").Read(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []domain.VoteRecord{
		{Contest: "PRESIDENT - DEM", County: "WAKE", Precinct: "01-01", Choice: "Bernie Sanders", Votes: 120},
		{Contest: "PRESIDENT - DEM", County: "WAKE", Precinct: "01-01", Choice: "Hillary Clinton", Votes: 180},
		{Contest: "PRESIDENT - DEM", County: "DURHAM", Precinct: "30-2", Choice: "No Preference", Votes: 4},
	}, records)
}

func TestTSVReader_HeaderMatching(t *testing.T) {
	input := "total_votes\tCHOICE\tcontest_name\tprecinct\tcounty\textra\n" +
		"7\tYes\tBOND\tP1\tASHE\tignored\n"

	records, err := NewTSVReader("").Read(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.VoteRecord{Contest: "BOND", County: "ASHE", Precinct: "P1", Choice: "Yes", Votes: 7}, records[0])
}

func TestTSVReader_QuotesAreLiteral(t *testing.T) {
	input := ncHeader +
		ncRow("WAKE", "01-01", "PRESIDENT - DEM", `"Rocky" De La Fuente`, "3") +
		ncRow("WAKE", "01-02", "PRESIDENT - DEM", `"Rocky" De La Fuente`, "5") +
		ncRow("WAKE", "01-02", "PRESIDENT - DEM", `Martin O'Malley "Jr`, "1")

	records, err := NewTSVReader("results.txt").Read(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, `"Rocky" De La Fuente`, records[0].Choice)
	assert.Equal(t, int64(3), records[0].Votes)
	assert.Equal(t, "01-02", records[1].Precinct)
	assert.Equal(t, int64(5), records[1].Votes)
	assert.Equal(t, `Martin O'Malley "Jr`, records[2].Choice)
}

func TestTSVReader_CRLF(t *testing.T) {
	input := strings.ReplaceAll(ncHeader+ncRow("WAKE", "01-01", "PRES", "A", "9"), "\n", "\r\n")

	records, err := NewTSVReader("").Read(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(9), records[0].Votes)
}

func TestTSVReader_ReadsWrittenResults(t *testing.T) {
	want := []domain.VoteRecord{
		{Contest: "PRESIDENTIAL PREFERENCE (DEM)", County: "WAKE", Precinct: "01-01", Choice: `"Rocky" De La Fuente`, Votes: 12},
		{Contest: "PRESIDENTIAL PREFERENCE (DEM)", County: "WAKE", Precinct: "01-01", Choice: "Hillary Clinton", Votes: 240},
		{Contest: "PRESIDENTIAL PREFERENCE (DEM)", County: "WAKE", Precinct: "01-02", Choice: "No Preference", Votes: 0},
	}

	var buf strings.Builder
	require.NoError(t, testutils.WriteResults(&buf, want))

	got, err := NewTSVReader("written").Read(context.Background(), strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestTSVReader_ReadsGeneratedResults(t *testing.T) {
	sample, err := testutils.GenerateSampleResults(testutils.DefaultSampleConfig(), 7)
	require.NoError(t, err)

	var buf strings.Builder
	require.NoError(t, testutils.WriteResults(&buf, sample.Records))

	got, err := NewTSVReader("generated").Read(context.Background(), strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, sample.Records, got)
}

func TestTSVReader_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTSVReader("").Read(ctx, strings.NewReader(ncHeader))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTSVReader_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantErr  error
		wantLine int
		wantText string
	}{
		{
			name:     "empty input",
			input:    "",
			wantErr:  ports.ErrMissingColumn,
			wantLine: 1,
		},
		{
			name:     "missing columns",
			input:    "County\tPrecinct\tChoice\n",
			wantErr:  ports.ErrMissingColumn,
			wantLine: 1,
			wantText: "Contest Name, Total Votes",
		},
		{
			name:     "non-numeric votes",
			input:    ncHeader + ncRow("WAKE", "01-01", "PRES", "A", "12") + ncRow("WAKE", "01-02", "PRES", "A", "twelve"),
			wantErr:  ports.ErrMalformedRecord,
			wantLine: 3,
			wantText: `"twelve"`,
		},
		{
			name:     "short row",
			input:    ncHeader + "WAKE\t03/15/2016\t01-01\n",
			wantErr:  ports.ErrMalformedRecord,
			wantLine: 2,
		},
		{
			name:     "empty choice",
			input:    ncHeader + ncRow("WAKE", "01-01", "PRES", " ", "3"),
			wantErr:  ports.ErrMalformedRecord,
			wantLine: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTSVReader("results.txt").Read(context.Background(), strings.NewReader(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var se *ports.SourceError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, "results.txt", se.Source)
			assert.Equal(t, tt.wantLine, se.Line)
			if tt.wantText != "" {
				assert.Contains(t, err.Error(), tt.wantText)
			}
		})
	}
}

func TestReadFile(t *testing.T) {
	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "results.txt")
		require.NoError(t, os.WriteFile(path, []byte(ncHeader+ncRow("WAKE", "01-01", "PRES", "A", "5")), 0o600))

		records, err := ReadFile(context.Background(), path)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadFile(context.Background(), filepath.Join(t.TempDir(), "absent.txt"))
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

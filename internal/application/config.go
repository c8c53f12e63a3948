package application

import (
	"github.com/ahrav/go-tally/internal/domain"
)

// Config is the complete configuration for an analysis run and serves as
// the primary configuration entry point for the system. Values are layered:
// DefaultConfig, then the YAML file, then TALLY_* environment variables,
// then command-line flags.
type Config struct {
	// Version specifies the configuration schema version using semantic
	// versioning to ensure compatibility across releases.
	Version string `yaml:"version" validate:"required,semver"`
	// Policy holds the anomaly heuristic constants.
	Policy PolicyConfig `yaml:"policy" envPrefix:"POLICY_"`
	// Run controls execution of the analyzer.
	Run RunConfig `yaml:"run" envPrefix:"RUN_"`
	// Source locates the vote records to analyze.
	Source SourceConfig `yaml:"source" envPrefix:"SOURCE_"`
	// Report controls where results are written.
	Report ReportConfig `yaml:"report" envPrefix:"REPORT_"`
	// Log controls logger level and output format.
	Log LogConfig `yaml:"log" envPrefix:"LOG_"`
}

// PolicyConfig mirrors domain.Policy with YAML, environment and validation
// tags. The defaults reproduce the reference heuristic.
type PolicyConfig struct {
	// MinPrecincts is the exclusive lower bound on precinct count.
	MinPrecincts int `yaml:"min_precincts" env:"MIN_PRECINCTS" validate:"min=0"`
	// MinTotalVotes is the exclusive lower bound on final turnout.
	MinTotalVotes int64 `yaml:"min_total_votes" env:"MIN_TOTAL_VOTES" validate:"min=0"`
	// WindowStart is the fraction of final turnout where the reference
	// window begins.
	WindowStart float64 `yaml:"window_start" env:"WINDOW_START" validate:"fraction"`
	// WindowEnd is the fraction of final turnout where the reference window
	// ends. It must exceed WindowStart.
	WindowEnd float64 `yaml:"window_end" env:"WINDOW_END" validate:"fraction,gtfield=WindowStart"`
	// ScoreThreshold is the exclusive lower bound for flagging.
	ScoreThreshold float64 `yaml:"score_threshold" env:"SCORE_THRESHOLD" validate:"min=0"`
	// ScorePrecision is the number of decimals reported scores keep.
	ScorePrecision int `yaml:"score_precision" env:"SCORE_PRECISION" validate:"min=0,max=12"`
	// ReportTop is how many ranked units are charted.
	ReportTop int `yaml:"report_top" env:"REPORT_TOP" validate:"min=0,max=10000"`
}

// Policy converts the configuration into a domain.Policy.
func (p PolicyConfig) Policy() domain.Policy {
	return domain.Policy{
		MinPrecincts:   p.MinPrecincts,
		MinTotalVotes:  p.MinTotalVotes,
		WindowStart:    p.WindowStart,
		WindowEnd:      p.WindowEnd,
		ScoreThreshold: p.ScoreThreshold,
		ScorePrecision: p.ScorePrecision,
		ReportTop:      p.ReportTop,
	}
}

// RunConfig controls analyzer execution.
type RunConfig struct {
	// Workers bounds how many ContestCounties are scored concurrently.
	// Zero means GOMAXPROCS.
	Workers int `yaml:"workers" env:"WORKERS" validate:"min=0,max=1024"`
	// StrictIntegrity fails the run on the first data-integrity fault.
	// When false, faulty units are logged, counted and left out.
	StrictIntegrity bool `yaml:"strict_integrity" env:"STRICT_INTEGRITY"`
}

// SourceConfig locates and stages the input vote records.
type SourceConfig struct {
	// Path is the results file to read.
	Path string `yaml:"path" env:"PATH"`
	// Store selects how parsed records are held before analysis:
	// "sqlite" loads them into an in-memory SQLite table, "memory" keeps
	// them in a grouped slice.
	Store string `yaml:"store" env:"STORE" validate:"required,oneof=sqlite memory"`
}

// ReportConfig controls report outputs.
type ReportConfig struct {
	// ChartDir receives one chart-data JSON file per top-ranked unit.
	// Empty disables chart output.
	ChartDir string `yaml:"chart_dir" env:"CHART_DIR"`
	// SummaryJSON writes the ranked summary as JSON instead of text lines.
	SummaryJSON bool `yaml:"summary_json" env:"SUMMARY_JSON"`
	// MetricsFile receives run metrics in Prometheus text format.
	// Empty disables the export.
	MetricsFile string `yaml:"metrics_file" env:"METRICS_FILE"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL" validate:"required,oneof=trace debug info warn error"`
	Format string `yaml:"format" env:"FORMAT" validate:"required,oneof=text json"`
}

// DefaultConfig returns the configuration used when no file is supplied.
func DefaultConfig() *Config {
	p := domain.DefaultPolicy()
	return &Config{
		Version: "1.0.0",
		Policy: PolicyConfig{
			MinPrecincts:   p.MinPrecincts,
			MinTotalVotes:  p.MinTotalVotes,
			WindowStart:    p.WindowStart,
			WindowEnd:      p.WindowEnd,
			ScoreThreshold: p.ScoreThreshold,
			ScorePrecision: p.ScorePrecision,
			ReportTop:      p.ReportTop,
		},
		Run: RunConfig{
			StrictIntegrity: true,
		},
		Source: SourceConfig{
			Store: "sqlite",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

package source

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	// SQLite driver using pure Go implementation
	_ "modernc.org/sqlite"

	"github.com/ahrav/go-tally/internal/domain"
	"github.com/ahrav/go-tally/internal/ports"
)

var _ ports.VoteRecordSource = (*SQLiteStore)(nil)

const storeName = "sqlite"

// SQLiteStore stages vote records in an in-memory SQLite database and
// serves them per ContestCounty.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool

	insertStmt *sql.Stmt
	selectStmt *sql.Stmt
	unitsStmt  *sql.Stmt
}

// NewSQLiteStore opens an empty in-memory store.
func NewSQLiteStore() (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS votes (
			contest TEXT NOT NULL,
			county TEXT NOT NULL,
			precinct TEXT NOT NULL,
			choice TEXT NOT NULL,
			total_votes INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_votes_unit ON votes(contest, county, precinct);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) prepareStatements() error {
	var err error
	s.insertStmt, err = s.db.Prepare(`
		INSERT INTO votes (contest, county, precinct, choice, total_votes)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}

	s.selectStmt, err = s.db.Prepare(`
		SELECT precinct, choice, total_votes FROM votes
		WHERE contest = ? AND county = ?
		ORDER BY precinct, choice
	`)
	if err != nil {
		return err
	}

	s.unitsStmt, err = s.db.Prepare(`
		SELECT DISTINCT contest, county FROM votes ORDER BY contest, county
	`)
	return err
}

// Insert stores records in a single transaction.
func (s *SQLiteStore) Insert(ctx context.Context, records []domain.VoteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ports.NewSourceError(storeName, "insert", ports.ErrSourceClosed)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ports.NewSourceError(storeName, "insert", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt := tx.StmtContext(ctx, s.insertStmt)
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Contest, r.County, r.Precinct, r.Choice, r.Votes); err != nil {
			return ports.NewSourceError(storeName, "insert", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ports.NewSourceError(storeName, "insert", err)
	}
	return nil
}

// ContestCounties implements ports.VoteRecordSource.
func (s *SQLiteStore) ContestCounties(ctx context.Context) ([]domain.ContestCounty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ports.NewSourceError(storeName, "contest_counties", ports.ErrSourceClosed)
	}

	rows, err := s.unitsStmt.QueryContext(ctx)
	if err != nil {
		return nil, ports.NewSourceError(storeName, "contest_counties", err)
	}
	defer rows.Close()

	var keys []domain.ContestCounty
	for rows.Next() {
		var k domain.ContestCounty
		if err := rows.Scan(&k.Contest, &k.County); err != nil {
			return nil, ports.NewSourceError(storeName, "contest_counties", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, ports.NewSourceError(storeName, "contest_counties", err)
	}
	return keys, nil
}

// Records implements ports.VoteRecordSource.
func (s *SQLiteStore) Records(ctx context.Context, key domain.ContestCounty) ([]domain.VoteRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ports.NewSourceError(storeName, "records", ports.ErrSourceClosed)
	}

	rows, err := s.selectStmt.QueryContext(ctx, key.Contest, key.County)
	if err != nil {
		return nil, ports.NewSourceError(storeName, "records", err)
	}
	defer rows.Close()

	var records []domain.VoteRecord
	for rows.Next() {
		r := domain.VoteRecord{Contest: key.Contest, County: key.County}
		if err := rows.Scan(&r.Precinct, &r.Choice, &r.Votes); err != nil {
			return nil, ports.NewSourceError(storeName, "records", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, ports.NewSourceError(storeName, "records", err)
	}
	return records, nil
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ports.NewSourceError(storeName, "count", ports.ErrSourceClosed)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM votes`).Scan(&n); err != nil {
		return 0, ports.NewSourceError(storeName, "count", err)
	}
	return n, nil
}

// Close releases the database. Further calls fail with ErrSourceClosed.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	for _, stmt := range []*sql.Stmt{s.insertStmt, s.selectStmt, s.unitsStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}

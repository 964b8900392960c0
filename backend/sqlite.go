// SPDX-License-Identifier: MIT

package backend

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/katalvlaran/lvmcmc/chain"
	"github.com/katalvlaran/lvmcmc/matrix"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// SQLite persists the chain in a single database file. Several named runs may
// share one file; each SQLite value addresses one of them.
type SQLite struct {
	db   *sql.DB
	name string

	walkers   int
	dims      int
	iteration int
	accepted  []int
}

// OpenSQLite opens (creating if needed) the database at path and attaches to
// the run called name. An existing run is loaded so it can be resumed.
func OpenSQLite(path, name string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("backend: create dir: %w", err)
	}
	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("backend: open database: %w", err)
	}
	// one writer; a single connection keeps PRAGMAs and transactions together
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("backend: pragma %q: %w", p, err)
		}
	}

	s := &SQLite{db: db, name: name}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("backend: migration: %w", err)
	}
	if err := s.load(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("backend: load run %q: %w", name, err)
	}

	return s, nil
}

func (s *SQLite) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			name    TEXT PRIMARY KEY,
			walkers INTEGER NOT NULL,
			dims    INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS steps (
			name      TEXT NOT NULL REFERENCES runs(name) ON DELETE CASCADE,
			iteration INTEGER NOT NULL,
			walker    INTEGER NOT NULL,
			coords    BLOB NOT NULL,
			log_prob  REAL,
			accepted  INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (name, iteration, walker)
		);
	`
	_, err := s.db.Exec(schema)

	return err
}

func (s *SQLite) load() error {
	err := s.db.QueryRow(`SELECT walkers, dims FROM runs WHERE name = ?`, s.name).Scan(&s.walkers, &s.dims)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}

	if err = s.db.QueryRow(`SELECT COUNT(DISTINCT iteration) FROM steps WHERE name = ?`, s.name).Scan(&s.iteration); err != nil {
		return err
	}
	s.accepted = make([]int, s.walkers)
	rows, err := s.db.Query(`SELECT walker, SUM(accepted) FROM steps WHERE name = ? GROUP BY walker`, s.name)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var w, n int
		if err = rows.Scan(&w, &n); err != nil {
			return err
		}
		if w >= 0 && w < s.walkers {
			s.accepted[w] = n
		}
	}

	return rows.Err()
}

func (s *SQLite) Reset(walkers, dims int) error {
	if s.db == nil {
		return fmt.Errorf("Reset: %w", ErrClosed)
	}
	if walkers < 1 || dims < 1 {
		return fmt.Errorf("Reset(%d, %d): %w", walkers, dims, chain.ErrShape)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("Reset: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.Exec(`DELETE FROM steps WHERE name = ?`, s.name); err != nil {
		return fmt.Errorf("Reset: %w", err)
	}
	if _, err = tx.Exec(`
		INSERT INTO runs (name, walkers, dims) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET walkers = excluded.walkers, dims = excluded.dims`,
		s.name, walkers, dims); err != nil {
		return fmt.Errorf("Reset: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("Reset: %w", err)
	}
	s.walkers, s.dims, s.iteration = walkers, dims, 0
	s.accepted = make([]int, walkers)

	return nil
}

func (s *SQLite) Append(step chain.Step) error {
	switch {
	case s.db == nil:
		return fmt.Errorf("Append: %w", ErrClosed)
	case s.walkers == 0:
		return fmt.Errorf("Append: %w", ErrNotInitialized)
	}
	if err := step.Validate(s.walkers, s.dims); err != nil {
		return fmt.Errorf("Append: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT INTO steps (name, iteration, walker, coords, log_prob, accepted) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	defer stmt.Close()

	rows := step.Positions.RowsView()
	for w := 0; w < s.walkers; w++ {
		var lp any = step.LogProb[w]
		if math.IsNaN(step.LogProb[w]) {
			lp = nil
		}
		acc := 0
		if step.Accepted[w] {
			acc = 1
		}
		if _, err = stmt.Exec(s.name, s.iteration, w, encodeCoords(rows[w]), lp, acc); err != nil {
			return fmt.Errorf("Append: iteration %d walker %d: %w", s.iteration, w, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("Append: %w", err)
	}

	s.iteration++
	for w, ok := range step.Accepted {
		if ok {
			s.accepted[w]++
		}
	}

	return nil
}

func (s *SQLite) Iteration() int { return s.iteration }

func (s *SQLite) Shape() (int, int) { return s.walkers, s.dims }

func (s *SQLite) Last() (chain.Step, error) {
	switch {
	case s.db == nil:
		return chain.Step{}, fmt.Errorf("Last: %w", ErrClosed)
	case s.walkers == 0:
		return chain.Step{}, fmt.Errorf("Last: %w", ErrNotInitialized)
	case s.iteration == 0:
		return chain.Step{}, fmt.Errorf("Last: %w", chain.ErrEmpty)
	}

	rows, err := s.db.Query(`SELECT walker, coords, log_prob FROM steps WHERE name = ? AND iteration = ? ORDER BY walker`,
		s.name, s.iteration-1)
	if err != nil {
		return chain.Step{}, fmt.Errorf("Last: %w", err)
	}
	defer rows.Close()

	pos := make([][]float64, s.walkers)
	lp := make([]float64, s.walkers)
	for rows.Next() {
		var (
			w    int
			blob []byte
			l    sql.NullFloat64
		)
		if err = rows.Scan(&w, &blob, &l); err != nil {
			return chain.Step{}, fmt.Errorf("Last: %w", err)
		}
		if w < 0 || w >= s.walkers {
			return chain.Step{}, fmt.Errorf("Last: walker %d: %w", w, chain.ErrOutOfRange)
		}
		if pos[w], err = decodeCoords(blob, s.dims); err != nil {
			return chain.Step{}, fmt.Errorf("Last: %w", err)
		}
		lp[w] = math.NaN()
		if l.Valid {
			lp[w] = l.Float64
		}
	}
	if err = rows.Err(); err != nil {
		return chain.Step{}, fmt.Errorf("Last: %w", err)
	}
	m, err := matrix.NewDenseFromRows(pos)
	if err != nil {
		return chain.Step{}, fmt.Errorf("Last: %w", err)
	}

	return chain.Step{Positions: m, LogProb: lp, Accepted: make([]bool, s.walkers)}, nil
}

func (s *SQLite) Chain(discard, thin int) (*chain.Chain, error) {
	switch {
	case s.db == nil:
		return nil, fmt.Errorf("Chain: %w", ErrClosed)
	case s.walkers == 0:
		return nil, fmt.Errorf("Chain: %w", ErrNotInitialized)
	}
	c, err := chain.New(s.walkers, s.dims)
	if err != nil {
		return nil, fmt.Errorf("Chain: %w", err)
	}

	rows, err := s.db.Query(`SELECT iteration, walker, coords FROM steps WHERE name = ? ORDER BY iteration, walker`, s.name)
	if err != nil {
		return nil, fmt.Errorf("Chain: %w", err)
	}
	defer rows.Close()

	cur, err := matrix.NewDense(s.walkers, s.dims)
	if err != nil {
		return nil, fmt.Errorf("Chain: %w", err)
	}
	for expect := 0; rows.Next(); {
		var (
			it, w int
			blob  []byte
		)
		if err = rows.Scan(&it, &w, &blob); err != nil {
			return nil, fmt.Errorf("Chain: %w", err)
		}
		if it != expect/s.walkers || w != expect%s.walkers {
			return nil, fmt.Errorf("Chain: row (%d,%d) out of order: %w", it, w, chain.ErrShape)
		}
		coords, err := decodeCoords(blob, s.dims)
		if err != nil {
			return nil, fmt.Errorf("Chain: %w", err)
		}
		for d, v := range coords {
			_ = cur.Set(w, d, v)
		}
		expect++
		if w == s.walkers-1 {
			if err = c.Append(cur); err != nil {
				return nil, fmt.Errorf("Chain: %w", err)
			}
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("Chain: %w", err)
	}

	return c.Slice(discard, thin)
}

func (s *SQLite) Accepted() []int { return append([]int(nil), s.accepted...) }

// Close closes the underlying database connection. It is idempotent.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil

	return err
}

var _ Backend = (*SQLite)(nil)

func encodeCoords(xs []float64) []byte {
	buf := make([]byte, 8*len(xs))
	for i, x := range xs {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(x))
	}

	return buf
}

func decodeCoords(buf []byte, dims int) ([]float64, error) {
	if len(buf) != 8*dims {
		return nil, fmt.Errorf("coords blob of %d bytes for %d dims: %w", len(buf), dims, chain.ErrShape)
	}
	out := make([]float64, dims)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}

	return out, nil
}

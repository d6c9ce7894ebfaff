package rate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domain "github.com/yassienshaalan/ExchangeRateAnalyzer/internal/rate"
)

const dateFormat = "2006-01-02"

// SQLiteStore is the default rate.Store. Writes for one (pair, date) run in a
// transaction, so concurrent puts of the same key are applied one at a time.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Lookup(ctx context.Context, pair domain.Pair, r domain.DateRange) (map[time.Time]domain.Point, error) {
	const query = `SELECT date, rate
		FROM exchange_rates
		WHERE pair = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`

	rows, err := s.db.QueryContext(ctx, query, pair.String(), r.Start.Format(dateFormat), r.End.Format(dateFormat))
	if err != nil {
		return nil, &domain.PersistenceError{Op: "lookup", Err: err}
	}
	defer func() { _ = rows.Close() }()

	points := make(map[time.Time]domain.Point)
	for rows.Next() {
		var dateStr string
		var v float64
		if err := rows.Scan(&dateStr, &v); err != nil {
			return nil, &domain.PersistenceError{Op: "lookup", Err: fmt.Errorf("scan rate: %w", err)}
		}
		d, err := time.Parse(dateFormat, dateStr)
		if err != nil {
			slog.Warn("skipping cached rate with bad date", "pair", pair, "date", dateStr)
			continue
		}
		points[d] = domain.Point{Pair: pair, Date: d, Rate: v, Origin: domain.OriginCached}
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.PersistenceError{Op: "lookup", Err: err}
	}

	return points, nil
}

func (s *SQLiteStore) Put(ctx context.Context, p domain.Point) error {
	if err := domain.CheckCacheable(p); err != nil {
		return err
	}
	date := domain.Day(p.Date).Format(dateFormat)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.PersistenceError{Op: "put", Err: fmt.Errorf("begin tx: %w", err)}
	}
	defer func() { _ = tx.Rollback() }()

	var old float64
	err = tx.QueryRowContext(ctx,
		`SELECT rate FROM exchange_rates WHERE pair = ? AND date = ?`,
		p.Pair.String(), date,
	).Scan(&old)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			`INSERT INTO exchange_rates (pair, date, rate) VALUES (?, ?, ?)`,
			p.Pair.String(), date, p.Rate,
		)
		if err != nil {
			return &domain.PersistenceError{Op: "put", Err: fmt.Errorf("insert rate: %w", err)}
		}
	case err != nil:
		return &domain.PersistenceError{Op: "put", Err: fmt.Errorf("select rate: %w", err)}
	case old == p.Rate:
		return nil
	default:
		_, err = tx.ExecContext(ctx,
			`UPDATE exchange_rates SET rate = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
			WHERE pair = ? AND date = ?`,
			p.Rate, p.Pair.String(), date,
		)
		if err != nil {
			return &domain.PersistenceError{Op: "put", Err: fmt.Errorf("update rate: %w", err)}
		}
		slog.Warn("cached rate corrected", "pair", p.Pair, "date", date, "old", old, "new", p.Rate)
	}

	if err := tx.Commit(); err != nil {
		return &domain.PersistenceError{Op: "put", Err: fmt.Errorf("commit: %w", err)}
	}
	return nil
}

// Pairs lists every pair with at least one cached observation together with
// its cached date bounds.
func (s *SQLiteStore) Pairs(ctx context.Context) ([]domain.Coverage, error) {
	const query = `SELECT pair, MIN(date), MAX(date), COUNT(*)
		FROM exchange_rates
		GROUP BY pair
		ORDER BY pair ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "pairs", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Coverage
	for rows.Next() {
		var pairStr, first, last string
		var c domain.Coverage
		if err := rows.Scan(&pairStr, &first, &last, &c.Points); err != nil {
			return nil, &domain.PersistenceError{Op: "pairs", Err: fmt.Errorf("scan coverage: %w", err)}
		}
		if c.Pair, err = domain.ParsePair(pairStr); err != nil {
			continue
		}
		c.First, _ = time.Parse(dateFormat, first)
		c.Last, _ = time.Parse(dateFormat, last)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.PersistenceError{Op: "pairs", Err: err}
	}
	return out, nil
}

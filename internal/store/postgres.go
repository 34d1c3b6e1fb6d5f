package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/atmx/market-data/internal/model"
)

// uniqueViolation is the SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// PostgresSchema creates the tables PostgresStore expects. The UNIQUE
// constraints are what turn duplicate inserts into ErrConflict.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS daily_records (
	id         UUID PRIMARY KEY,
	collection TEXT NOT NULL,
	date       DATE NOT NULL,
	year       TEXT NOT NULL,
	month      TEXT NOT NULL,
	day        TEXT NOT NULL,
	open       NUMERIC NOT NULL,
	high       NUMERIC NOT NULL,
	low        NUMERIC NOT NULL,
	close      NUMERIC NOT NULL,
	UNIQUE (collection, date)
);
CREATE TABLE IF NOT EXISTS predictions (
	id     UUID PRIMARY KEY,
	date   DATE NOT NULL,
	year   TEXT NOT NULL,
	month  TEXT NOT NULL,
	day    TEXT NOT NULL,
	close  NUMERIC NOT NULL,
	symbol TEXT NOT NULL,
	name   TEXT NOT NULL,
	UNIQUE (date, symbol)
);
CREATE INDEX IF NOT EXISTS predictions_name_date ON predictions (name, date);
`

// PostgresStore implements Store on PostgreSQL. Physical collections are
// rows of daily_records tagged with the collection name.
// Prices are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates missing tables and indexes.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, PostgresSchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertDaily(ctx context.Context, collection string, rec *model.DailyRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO daily_records (id, collection, date, year, month, day, open, high, low, close)
		 VALUES ($1, $2, $3::DATE, $4, $5, $6, $7::NUMERIC, $8::NUMERIC, $9::NUMERIC, $10::NUMERIC)`,
		uuid.New(), collection, rec.Date,
		rec.DatePieces.Year, rec.DatePieces.Month, rec.DatePieces.Day,
		rec.Open.String(), rec.High.String(), rec.Low.String(), rec.Close.String(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s %s", ErrConflict, collection, rec.Date)
	}
	if err != nil {
		return fmt.Errorf("insert into %s: %w", collection, err)
	}
	return nil
}

const dailyColumns = `date::TEXT, year, month, day, open::TEXT, high::TEXT, low::TEXT, close::TEXT`

func (s *PostgresStore) FetchRange(ctx context.Context, collection, from, to string) ([]model.DailyRecord, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if bounded(from, to) {
		rows, err = s.pool.Query(ctx,
			`SELECT `+dailyColumns+` FROM daily_records
			 WHERE collection = $1 AND date BETWEEN $2::DATE AND $3::DATE
			 ORDER BY date ASC`, collection, from, to)
	} else {
		rows, err = s.pool.Query(ctx,
			`SELECT `+dailyColumns+` FROM daily_records
			 WHERE collection = $1 ORDER BY date ASC`, collection)
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	return scanDailyRecords(rows)
}

func (s *PostgresStore) FetchByCount(ctx context.Context, collection string, count int) ([]model.DailyRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+dailyColumns+` FROM daily_records
		 WHERE collection = $1 ORDER BY date DESC LIMIT $2`, collection, count)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	return scanDailyRecords(rows)
}

func (s *PostgresStore) FetchLatest(ctx context.Context, collection string) (*model.DailyRecord, error) {
	recs, err := s.FetchByCount(ctx, collection, 1)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNotFound, collection)
	}
	return &recs[0], nil
}

func (s *PostgresStore) InsertPrediction(ctx context.Context, rec *model.PredictionRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO predictions (id, date, year, month, day, close, symbol, name)
		 VALUES ($1, $2::DATE, $3, $4, $5, $6::NUMERIC, $7, $8)`,
		uuid.New(), rec.Date,
		rec.DatePieces.Year, rec.DatePieces.Month, rec.DatePieces.Day,
		rec.Close.String(), rec.Symbol, rec.Name,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: prediction %s %s", ErrConflict, rec.Symbol, rec.Date)
	}
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

const predictionColumns = `date::TEXT, year, month, day, close::TEXT, symbol, name`

func (s *PostgresStore) FetchPredictionsRange(ctx context.Context, name, from, to string) ([]model.PredictionRecord, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if bounded(from, to) {
		rows, err = s.pool.Query(ctx,
			`SELECT `+predictionColumns+` FROM predictions
			 WHERE name = $1 AND date BETWEEN $2::DATE AND $3::DATE
			 ORDER BY date ASC`, name, from, to)
	} else {
		rows, err = s.pool.Query(ctx,
			`SELECT `+predictionColumns+` FROM predictions
			 WHERE name = $1 ORDER BY date ASC`, name)
	}
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	return scanPredictions(rows)
}

func (s *PostgresStore) FetchPredictionsByCount(ctx context.Context, name string, count int) ([]model.PredictionRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+predictionColumns+` FROM predictions
		 WHERE name = $1 ORDER BY date DESC LIMIT $2`, name, count)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	return scanPredictions(rows)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// pgxRows is the subset of pgx.Rows the scanners need.
type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanDailyRecords(rows pgxRows) ([]model.DailyRecord, error) {
	var records []model.DailyRecord
	for rows.Next() {
		var r model.DailyRecord
		var openS, highS, lowS, closeS string

		if err := rows.Scan(&r.Date, &r.DatePieces.Year, &r.DatePieces.Month, &r.DatePieces.Day,
			&openS, &highS, &lowS, &closeS); err != nil {
			return nil, err
		}

		r.Open, _ = decimal.NewFromString(openS)
		r.High, _ = decimal.NewFromString(highS)
		r.Low, _ = decimal.NewFromString(lowS)
		r.Close, _ = decimal.NewFromString(closeS)

		records = append(records, r)
	}
	return records, rows.Err()
}

func scanPredictions(rows pgxRows) ([]model.PredictionRecord, error) {
	var records []model.PredictionRecord
	for rows.Next() {
		var p model.PredictionRecord
		var closeS string

		if err := rows.Scan(&p.Date, &p.DatePieces.Year, &p.DatePieces.Month, &p.DatePieces.Day,
			&closeS, &p.Symbol, &p.Name); err != nil {
			return nil, err
		}

		p.Close, _ = decimal.NewFromString(closeS)
		records = append(records, p)
	}
	return records, rows.Err()
}

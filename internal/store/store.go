// Package store defines the persistence interface for market data.
// Implementations include MongoDB (the document store of record),
// PostgreSQL, Redis and in-memory (for testing).
//
// Every implementation enforces record uniqueness itself: a second daily
// record for a date in one collection, or a second prediction for a
// (date, symbol) pair, fails with ErrConflict. Callers never check for
// existence before inserting.
package store

import (
	"context"
	"errors"

	"github.com/atmx/market-data/internal/model"
)

// PredictionsCollection is the single physical collection shared by the
// predictions of every market.
const PredictionsCollection = "predictions"

var (
	// ErrConflict is returned when the record's unique key already exists.
	ErrConflict = errors.New("store: record already exists")

	// ErrNotFound is returned by FetchLatest on an empty collection.
	ErrNotFound = errors.New("store: no records")
)

// Store is the persistence interface. Collection arguments are physical
// collection names; mapping logical names to physical ones is the job of
// SourceRouter.
type Store interface {
	// --- Daily records ---

	// FetchRange returns records ascending by date. When from and to are
	// both non-empty only dates within [from, to] are returned.
	FetchRange(ctx context.Context, collection, from, to string) ([]model.DailyRecord, error)

	// FetchLatest returns the record with the greatest date.
	FetchLatest(ctx context.Context, collection string) (*model.DailyRecord, error)

	// FetchByCount returns up to count records descending by date.
	FetchByCount(ctx context.Context, collection string, count int) ([]model.DailyRecord, error)

	// InsertDaily stores a new record keyed by its date.
	InsertDaily(ctx context.Context, collection string, rec *model.DailyRecord) error

	// --- Predictions ---

	// InsertPrediction stores a prediction keyed by (date, symbol).
	InsertPrediction(ctx context.Context, rec *model.PredictionRecord) error

	// FetchPredictionsRange returns predictions with the given name
	// ascending by date, optionally bounded like FetchRange.
	FetchPredictionsRange(ctx context.Context, name, from, to string) ([]model.PredictionRecord, error)

	// FetchPredictionsByCount returns up to count predictions with the
	// given name descending by date.
	FetchPredictionsByCount(ctx context.Context, name string, count int) ([]model.PredictionRecord, error)
}

// bounded reports whether a range filter applies.
func bounded(from, to string) bool {
	return from != "" && to != ""
}

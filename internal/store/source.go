package store

import (
	"context"

	"github.com/atmx/market-data/internal/model"
)

// YahooSuffix is appended to a logical collection name to select the Yahoo
// Finance copy of its daily records.
const YahooSuffix = "_yahoo"

// PhysicalCollection maps a logical collection to the physical one holding
// its daily records under the given data-source toggle.
func PhysicalCollection(collection string, useYahoo bool) string {
	if useYahoo {
		return collection + YahooSuffix
	}
	return collection
}

// SourceRouter wraps a Store and rewrites logical collection names to
// physical ones on every daily-record path. Prediction calls pass through
// untouched: they always target PredictionsCollection.
type SourceRouter struct {
	inner    Store
	useYahoo bool
}

// NewSourceRouter creates a router in front of inner.
func NewSourceRouter(inner Store, useYahoo bool) *SourceRouter {
	return &SourceRouter{inner: inner, useYahoo: useYahoo}
}

func (r *SourceRouter) physical(collection string) string {
	return PhysicalCollection(collection, r.useYahoo)
}

func (r *SourceRouter) FetchRange(ctx context.Context, collection, from, to string) ([]model.DailyRecord, error) {
	return r.inner.FetchRange(ctx, r.physical(collection), from, to)
}

func (r *SourceRouter) FetchLatest(ctx context.Context, collection string) (*model.DailyRecord, error) {
	return r.inner.FetchLatest(ctx, r.physical(collection))
}

func (r *SourceRouter) FetchByCount(ctx context.Context, collection string, count int) ([]model.DailyRecord, error) {
	return r.inner.FetchByCount(ctx, r.physical(collection), count)
}

func (r *SourceRouter) InsertDaily(ctx context.Context, collection string, rec *model.DailyRecord) error {
	return r.inner.InsertDaily(ctx, r.physical(collection), rec)
}

func (r *SourceRouter) InsertPrediction(ctx context.Context, rec *model.PredictionRecord) error {
	return r.inner.InsertPrediction(ctx, rec)
}

func (r *SourceRouter) FetchPredictionsRange(ctx context.Context, name, from, to string) ([]model.PredictionRecord, error) {
	return r.inner.FetchPredictionsRange(ctx, name, from, to)
}

func (r *SourceRouter) FetchPredictionsByCount(ctx context.Context, name string, count int) ([]model.PredictionRecord, error) {
	return r.inner.FetchPredictionsByCount(ctx, name, count)
}

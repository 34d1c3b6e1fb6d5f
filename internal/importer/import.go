package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/atmx/market-data/internal/metrics"
	"github.com/atmx/market-data/internal/model"
	"github.com/atmx/market-data/internal/store"
)

// Summary reports the outcome of one import run.
type Summary struct {
	Collection string
	Inserted   int
	Skipped    int
}

// Import writes recs into the physical collection. Dates that already
// exist are skipped; any other store error aborts the run.
func Import(ctx context.Context, st store.Store, collection string, recs []model.DailyRecord) (Summary, error) {
	sum := Summary{Collection: collection}
	for i := range recs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		err := st.InsertDaily(ctx, collection, &recs[i])
		switch {
		case err == nil:
			sum.Inserted++
			metrics.RecordsInserted.WithLabelValues(collection, metrics.KindDaily).Inc()
		case errors.Is(err, store.ErrConflict):
			sum.Skipped++
			metrics.InsertConflicts.WithLabelValues(collection, metrics.KindDaily).Inc()
		default:
			return sum, fmt.Errorf("importer: insert %s %s: %w", collection, recs[i].Date, err)
		}
	}
	slog.Info("import finished",
		"collection", collection,
		"inserted", sum.Inserted,
		"skipped", sum.Skipped,
	)
	return sum, nil
}

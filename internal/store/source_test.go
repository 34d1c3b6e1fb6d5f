package store

import (
	"context"
	"testing"
)

func TestPhysicalCollection(t *testing.T) {
	if got := PhysicalCollection("dow", true); got != "dow_yahoo" {
		t.Errorf("yahoo: got %s", got)
	}
	if got := PhysicalCollection("dow", false); got != "dow" {
		t.Errorf("default: got %s", got)
	}
}

func TestSourceRouter_RewritesDailyPaths(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	router := NewSourceRouter(inner, true)

	if err := router.InsertDaily(ctx, "dow", daily("2020-01-02", 103)); err != nil {
		t.Fatalf("InsertDaily: %v", err)
	}

	physical, _ := inner.FetchRange(ctx, "dow_yahoo", "", "")
	if len(physical) != 1 {
		t.Fatalf("expected record in dow_yahoo, got %d", len(physical))
	}
	logical, _ := inner.FetchRange(ctx, "dow", "", "")
	if len(logical) != 0 {
		t.Errorf("nothing should land in the unsuffixed collection, got %d", len(logical))
	}

	viaRange, _ := router.FetchRange(ctx, "dow", "", "")
	viaCount, _ := router.FetchByCount(ctx, "dow", 5)
	latest, err := router.FetchLatest(ctx, "dow")
	if err != nil {
		t.Fatalf("FetchLatest: %v", err)
	}
	if len(viaRange) != 1 || len(viaCount) != 1 || latest.Date != "2020-01-02" {
		t.Errorf("reads must go through the same routing: range=%d count=%d latest=%s",
			len(viaRange), len(viaCount), latest.Date)
	}
}

func TestSourceRouter_PredictionsUnrouted(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	router := NewSourceRouter(inner, true)

	if err := router.InsertPrediction(ctx, prediction("2020-01-02", "DJIA", "dow", 1)); err != nil {
		t.Fatalf("InsertPrediction: %v", err)
	}
	got, _ := inner.FetchPredictionsRange(ctx, "dow", "", "")
	if len(got) != 1 {
		t.Fatalf("prediction should be stored under its logical name, got %d", len(got))
	}
	viaRouter, _ := router.FetchPredictionsByCount(ctx, "dow", 1)
	if len(viaRouter) != 1 {
		t.Errorf("expected 1 prediction via router, got %d", len(viaRouter))
	}
}

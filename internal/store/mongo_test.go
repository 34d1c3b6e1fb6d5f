package store

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
)

func TestToDecimal128_Exact(t *testing.T) {
	for _, s := range []string{"103", "25928.679688", "-0.0001", "1234567890123456789012345678901234"} {
		in := decimal.RequireFromString(s)
		v, err := toDecimal128(in)
		if err != nil {
			t.Fatalf("toDecimal128(%s): %v", s, err)
		}
		_, data, err := bson.MarshalValue(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		got, err := rawDecimal(bson.RawValue{Type: bson.TypeDecimal128, Value: data})
		if err != nil {
			t.Fatalf("rawDecimal: %v", err)
		}
		if !got.Equal(in) {
			t.Errorf("round trip %s -> %s", s, got)
		}
	}
}

func TestToDecimal128_OutOfRange(t *testing.T) {
	for _, s := range []string{"1e7000", "1e-7000", "1e100000000", "12345678901234567890123456789012345"} {
		_, err := toDecimal128(decimal.RequireFromString(s))
		if !errors.Is(err, ErrUnrepresentable) {
			t.Errorf("toDecimal128(%s): expected ErrUnrepresentable, got %v", s, err)
		}
	}
}

func TestIndexPlan_PredictionsNeverUniqueOnDate(t *testing.T) {
	plan := indexPlan([]string{"dow_yahoo", PredictionsCollection, "dow_yahoo"})

	if got := dailyIndexTargets([]string{"dow_yahoo", PredictionsCollection, "dow_yahoo"}); len(got) != 1 || got[0] != "dow_yahoo" {
		t.Errorf("daily targets = %v", got)
	}
	if len(plan["dow_yahoo"]) != 1 {
		t.Fatalf("expected one index on dow_yahoo, got %d", len(plan["dow_yahoo"]))
	}

	preds := plan[PredictionsCollection]
	if len(preds) != 2 {
		t.Fatalf("expected two prediction indexes, got %d", len(preds))
	}
	for _, idx := range preds {
		keys := idx.Keys.(bson.D)
		if len(keys) == 1 && keys[0].Key == "date" {
			t.Errorf("predictions must not carry a single-field date index: %v", keys)
		}
	}
	unique := preds[0]
	if keys := unique.Keys.(bson.D); len(keys) != 2 || keys[0].Key != "date" || keys[1].Key != "symbol" {
		t.Errorf("unique prediction key = %v", keys)
	}
	if unique.Options == nil || unique.Options.Unique == nil || !*unique.Options.Unique {
		t.Error("(date, symbol) index must be unique")
	}
}

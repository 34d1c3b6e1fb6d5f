package market

import (
	"errors"
	"testing"

	"github.com/atmx/market-data/internal/model"
)

func TestResolve_CollectionAndSymbolAgree(t *testing.T) {
	r := MustDefault()

	for _, m := range Defaults {
		byName, err := r.Resolve(m.Collection)
		if err != nil {
			t.Fatalf("resolve %q: %v", m.Collection, err)
		}
		bySymbol, err := r.Resolve(m.Symbol)
		if err != nil {
			t.Fatalf("resolve %q: %v", m.Symbol, err)
		}
		if byName != bySymbol {
			t.Errorf("resolve(%q)=%+v, resolve(%q)=%+v", m.Collection, byName, m.Symbol, bySymbol)
		}
		if byName != m {
			t.Errorf("expected %+v, got %+v", m, byName)
		}
	}
}

func TestResolve_Unknown(t *testing.T) {
	r := MustDefault()

	tests := []string{
		"",
		"unknown_token",
		"DOW",   // case-sensitive
		"djia",  // case-sensitive
		" dow",  // no trimming
		"dow ",  // no trimming
		"sp500", // near miss
		"dow_yahoo",
	}
	for _, token := range tests {
		_, err := r.Resolve(token)
		if !errors.Is(err, ErrUnknownMarket) {
			t.Errorf("Resolve(%q): expected ErrUnknownMarket, got %v", token, err)
		}
	}
}

func TestRegistry_Listings(t *testing.T) {
	r := MustDefault()

	wantCollections := []string{"dow", "nasdaq", "sp_500"}
	wantSymbols := []string{"DJIA", "IXIC", "INX"}

	got := r.Collections()
	if len(got) != len(wantCollections) {
		t.Fatalf("expected %d collections, got %d", len(wantCollections), len(got))
	}
	for i := range got {
		if got[i] != wantCollections[i] {
			t.Errorf("collections[%d]=%q, want %q", i, got[i], wantCollections[i])
		}
	}

	gotSymbols := r.Symbols()
	for i := range gotSymbols {
		if gotSymbols[i] != wantSymbols[i] {
			t.Errorf("symbols[%d]=%q, want %q", i, gotSymbols[i], wantSymbols[i])
		}
	}
}

func TestRegistry_MarketsIsACopy(t *testing.T) {
	r := MustDefault()
	ms := r.Markets()
	ms[0].Collection = "mutated"

	if _, err := r.Resolve("dow"); err != nil {
		t.Errorf("registry changed through returned slice: %v", err)
	}
}

func TestNewRegistry_RejectsNonBijection(t *testing.T) {
	tests := []struct {
		name    string
		markets []model.Market
	}{
		{"empty", nil},
		{"duplicate collection", []model.Market{{Symbol: "A", Collection: "x"}, {Symbol: "B", Collection: "x"}}},
		{"duplicate symbol", []model.Market{{Symbol: "A", Collection: "x"}, {Symbol: "A", Collection: "y"}}},
		{"missing symbol", []model.Market{{Collection: "x"}}},
		{"missing collection", []model.Market{{Symbol: "A"}}},
	}
	for _, tt := range tests {
		if _, err := NewRegistry(tt.markets); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

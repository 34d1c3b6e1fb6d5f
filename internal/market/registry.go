// Package market resolves caller-supplied tokens to one of the fixed set of
// markets served by this service.
//
// A token is either a collection name ("dow") or a market symbol ("DJIA").
// Matching is exact: no case folding, no trimming.
package market

import (
	"errors"
	"fmt"

	"github.com/atmx/market-data/internal/model"
)

// UnknownMarketMessage is the guidance returned to callers whose token
// matches no configured market.
const UnknownMarketMessage = "Invalid Collection. Hit /collections for collection names or /symbols for market symbols"

// ErrUnknownMarket is returned when a token is neither a collection name
// nor a symbol.
var ErrUnknownMarket = errors.New("market: unknown collection or symbol")

// Defaults is the market table the service ships with.
var Defaults = []model.Market{
	{Symbol: "DJIA", Collection: "dow"},
	{Symbol: "IXIC", Collection: "nasdaq"},
	{Symbol: "INX", Collection: "sp_500"},
}

// Registry is an immutable symbol <-> collection table. It is built once
// and only read afterwards, so it is safe for concurrent use without locks.
type Registry struct {
	markets      []model.Market
	byCollection map[string]model.Market
	bySymbol     map[string]model.Market
}

// NewRegistry builds a registry and checks that the pairing is a bijection.
func NewRegistry(markets []model.Market) (*Registry, error) {
	if len(markets) == 0 {
		return nil, errors.New("market: registry needs at least one market")
	}
	r := &Registry{
		markets:      make([]model.Market, 0, len(markets)),
		byCollection: make(map[string]model.Market, len(markets)),
		bySymbol:     make(map[string]model.Market, len(markets)),
	}
	for _, m := range markets {
		if m.Symbol == "" || m.Collection == "" {
			return nil, fmt.Errorf("market: incomplete definition %+v", m)
		}
		if _, dup := r.byCollection[m.Collection]; dup {
			return nil, fmt.Errorf("market: duplicate collection %q", m.Collection)
		}
		if _, dup := r.bySymbol[m.Symbol]; dup {
			return nil, fmt.Errorf("market: duplicate symbol %q", m.Symbol)
		}
		r.byCollection[m.Collection] = m
		r.bySymbol[m.Symbol] = m
		r.markets = append(r.markets, m)
	}
	return r, nil
}

// MustDefault returns the registry over Defaults.
func MustDefault() *Registry {
	r, err := NewRegistry(Defaults)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve maps a collection name or symbol to its market. Collection names
// are checked first.
func (r *Registry) Resolve(token string) (model.Market, error) {
	if m, ok := r.byCollection[token]; ok {
		return m, nil
	}
	if m, ok := r.bySymbol[token]; ok {
		return m, nil
	}
	return model.Market{}, fmt.Errorf("%w: %q", ErrUnknownMarket, token)
}

// Markets returns the configured markets in declaration order.
func (r *Registry) Markets() []model.Market {
	out := make([]model.Market, len(r.markets))
	copy(out, r.markets)
	return out
}

// Collections returns the collection names in declaration order.
func (r *Registry) Collections() []string {
	out := make([]string, len(r.markets))
	for i, m := range r.markets {
		out[i] = m.Collection
	}
	return out
}

// Symbols returns the market symbols in declaration order.
func (r *Registry) Symbols() []string {
	out := make([]string, len(r.markets))
	for i, m := range r.markets {
		out[i] = m.Symbol
	}
	return out
}

// Package model defines the core domain types shared across the market data
// service. Price values use shopspring/decimal, never float64.
package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Market pairs a market symbol with the logical collection holding its
// daily records. The set of markets is fixed at startup.
type Market struct {
	Symbol     string `json:"symbol"`
	Collection string `json:"collection"`
}

// DateParts is the year/month/day split of a record date. It is derived
// once at insert and stored alongside the date.
type DateParts struct {
	Year  string `json:"year" bson:"year"`
	Month string `json:"month" bson:"month"`
	Day   string `json:"day" bson:"day"`
}

// SplitDate derives DateParts from a YYYY-MM-DD date string.
func SplitDate(date string) DateParts {
	pieces := strings.SplitN(date, "-", 3)
	for len(pieces) < 3 {
		pieces = append(pieces, "")
	}
	return DateParts{Year: pieces[0], Month: pieces[1], Day: pieces[2]}
}

// DailyRecord is one day's OHLC observation for a market.
// Name and Symbol are only set on single-record responses (latest).
type DailyRecord struct {
	Date       string          `json:"date"`
	DatePieces DateParts       `json:"date_pieces"`
	Open       decimal.Decimal `json:"open"`
	High       decimal.Decimal `json:"high"`
	Low        decimal.Decimal `json:"low"`
	Close      decimal.Decimal `json:"close"`
	Name       string          `json:"name,omitempty"`
	Symbol     string          `json:"symbol,omitempty"`
}

// PredictionRecord is one day's predicted close for a market. All markets
// share one physical collection; Symbol and Name are denormalized copies
// of the resolved market.
type PredictionRecord struct {
	Date       string          `json:"date"`
	DatePieces DateParts       `json:"date_pieces"`
	Close      decimal.Decimal `json:"close"`
	Symbol     string          `json:"symbol"`
	Name       string          `json:"name"`
}

// Result is the payload shared by all listing and range endpoints.
type Result[T any] struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Data   []T    `json:"data"`
}

// NewResult wraps data with the identity of the resolved market. A nil
// slice is replaced with an empty one so the payload always carries an array.
func NewResult[T any](m Market, data []T) Result[T] {
	if data == nil {
		data = []T{}
	}
	return Result[T]{Name: m.Collection, Symbol: m.Symbol, Data: data}
}

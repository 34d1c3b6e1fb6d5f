package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/atmx/market-data/internal/model"
)

// AlphaVantageSymbols maps each collection to the ticker Alpha Vantage
// publishes its daily series under.
var AlphaVantageSymbols = map[string]string{
	"dow":    "DJI",
	"nasdaq": "NDAQ",
	"sp_500": "INX",
}

// ErrAPIKey is returned when no Alpha Vantage API key is configured.
var ErrAPIKey = errors.New("importer: alpha vantage api key not configured")

// AlphaVantageClient fetches TIME_SERIES_DAILY data.
type AlphaVantageClient struct {
	client *resty.Client
	apiKey string
}

// NewAlphaVantageClient creates a client against baseURL
// (normally https://www.alphavantage.co).
func NewAlphaVantageClient(baseURL, apiKey string, timeout time.Duration) *AlphaVantageClient {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)

	return &AlphaVantageClient{
		client: client,
		apiKey: apiKey,
	}
}

type avBar struct {
	Open  string `json:"1. open"`
	High  string `json:"2. high"`
	Low   string `json:"3. low"`
	Close string `json:"4. close"`
}

type avDailyResponse struct {
	Series       map[string]avBar `json:"Time Series (Daily)"`
	ErrorMessage string           `json:"Error Message"`
	Note         string           `json:"Note"`
	Information  string           `json:"Information"`
}

// DailySeries returns the full daily history for symbol, ascending by date.
func (c *AlphaVantageClient) DailySeries(ctx context.Context, symbol string) ([]model.DailyRecord, error) {
	if c.apiKey == "" {
		return nil, ErrAPIKey
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function":   "TIME_SERIES_DAILY",
			"outputsize": "full",
			"symbol":     symbol,
			"apikey":     c.apiKey,
		}).
		Get("/query")
	if err != nil {
		return nil, fmt.Errorf("importer: fetch %s: %w", symbol, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("importer: alpha vantage error %d: %s", resp.StatusCode(), resp.String())
	}

	var body avDailyResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("importer: parse %s response: %w", symbol, err)
	}
	for _, msg := range []string{body.ErrorMessage, body.Note, body.Information} {
		if msg != "" {
			return nil, fmt.Errorf("importer: alpha vantage: %s", msg)
		}
	}
	if body.Series == nil {
		return nil, fmt.Errorf("importer: no daily series for %s", symbol)
	}

	recs := make([]model.DailyRecord, 0, len(body.Series))
	for date, bar := range body.Series {
		rec, err := newDailyRecord(date, bar.Open, bar.High, bar.Low, bar.Close)
		if err != nil {
			return nil, fmt.Errorf("importer: %s: %w", symbol, err)
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Date < recs[j].Date })
	return recs, nil
}

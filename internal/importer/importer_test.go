package importer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atmx/market-data/internal/model"
	"github.com/atmx/market-data/internal/store"
)

const yahooCSV = `Date,Open,High,Low,Close,Adj Close,Volume
2019-03-29,25670.919922,25949.320313,25614.789063,25928.679688,25928.679688,256940000
2019-04-01,26075.099609,26258.419922,26063.060547,26258.419922,26258.419922,287940000
2019-04-02,null,null,null,null,null,null
`

func TestParseYahooCSV(t *testing.T) {
	recs, err := ParseYahooCSV(strings.NewReader(yahooCSV))
	if err != nil {
		t.Fatalf("ParseYahooCSV: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records (null row skipped), got %d", len(recs))
	}
	r := recs[1]
	if r.Date != "2019-04-01" || r.DatePieces != (model.DateParts{Year: "2019", Month: "04", Day: "01"}) {
		t.Errorf("unexpected date %+v", r)
	}
	if !r.Close.Equal(decimal.RequireFromString("26258.419922")) {
		t.Errorf("close=%s", r.Close)
	}
}

func TestParseYahooCSV_ReorderedColumns(t *testing.T) {
	recs, err := ParseYahooCSV(strings.NewReader("Close,Date,Low,High,Open\n4,2020-01-02,1,5,2\n"))
	if err != nil {
		t.Fatalf("ParseYahooCSV: %v", err)
	}
	if len(recs) != 1 || !recs[0].Open.Equal(decimal.NewFromInt(2)) || !recs[0].Close.Equal(decimal.NewFromInt(4)) {
		t.Errorf("columns should be matched by header: %+v", recs)
	}
}

func TestParseYahooCSV_Errors(t *testing.T) {
	_, err := ParseYahooCSV(strings.NewReader("Date,Open,High,Low\n"))
	if !errors.Is(err, ErrMissingColumn) {
		t.Errorf("expected ErrMissingColumn, got %v", err)
	}

	_, err = ParseYahooCSV(strings.NewReader("Date,Open,High,Low,Close\n2020/01/02,1,2,0,1\n"))
	if err == nil {
		t.Error("expected error for malformed date")
	}

	_, err = ParseYahooCSV(strings.NewReader("Date,Open,High,Low,Close\n2020-01-02,x,2,0,1\n"))
	if err == nil {
		t.Error("expected error for malformed price")
	}
}

const avBody = `{
  "Meta Data": {"2. Symbol": "DJI"},
  "Time Series (Daily)": {
    "2019-04-01": {"1. open": "26075.10", "2. high": "26258.42", "3. low": "26063.06", "4. close": "26258.42", "5. volume": "287940000"},
    "2019-03-29": {"1. open": "25670.92", "2. high": "25949.32", "3. low": "25614.79", "4. close": "25928.68", "5. volume": "256940000"}
  }
}`

func TestAlphaVantageClient_DailySeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/query" || q.Get("function") != "TIME_SERIES_DAILY" || q.Get("symbol") != "DJI" || q.Get("apikey") != "k" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(avBody))
	}))
	defer srv.Close()

	c := NewAlphaVantageClient(srv.URL, "k", 5*time.Second)
	recs, err := c.DailySeries(context.Background(), "DJI")
	if err != nil {
		t.Fatalf("DailySeries: %v", err)
	}
	if len(recs) != 2 || recs[0].Date != "2019-03-29" || recs[1].Date != "2019-04-01" {
		t.Fatalf("expected ascending records, got %+v", recs)
	}
	if !recs[0].High.Equal(decimal.RequireFromString("25949.32")) {
		t.Errorf("high=%s", recs[0].High)
	}
}

func TestAlphaVantageClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Note": "API call frequency exceeded"}`))
	}))
	defer srv.Close()

	if _, err := NewAlphaVantageClient(srv.URL, "", time.Second).DailySeries(context.Background(), "DJI"); !errors.Is(err, ErrAPIKey) {
		t.Errorf("expected ErrAPIKey, got %v", err)
	}
	_, err := NewAlphaVantageClient(srv.URL, "k", time.Second).DailySeries(context.Background(), "DJI")
	if err == nil || !strings.Contains(err.Error(), "frequency") {
		t.Errorf("expected rate limit error, got %v", err)
	}
}

func TestImport_SkipsExisting(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	recs, _ := ParseYahooCSV(strings.NewReader(yahooCSV))

	sum, err := Import(ctx, st, "dow_yahoo", recs)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if sum.Inserted != 2 || sum.Skipped != 0 {
		t.Errorf("first run: %+v", sum)
	}

	sum, err = Import(ctx, st, "dow_yahoo", recs)
	if err != nil {
		t.Fatalf("Import again: %v", err)
	}
	if sum.Inserted != 0 || sum.Skipped != 2 {
		t.Errorf("second run should skip everything: %+v", sum)
	}

	stored, _ := st.FetchRange(ctx, "dow_yahoo", "", "")
	if len(stored) != 2 {
		t.Errorf("expected 2 stored records, got %d", len(stored))
	}
}

package validate

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func fieldErrors(t *testing.T, err error) map[string][]string {
	t.Helper()
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	return verr.Fields
}

func TestParseDate_Valid(t *testing.T) {
	for _, s := range []string{"1999-01-01", "2020-02-29", "2020-12-31"} {
		if _, err := ParseDate(s); err != nil {
			t.Errorf("ParseDate(%q): unexpected error %v", s, err)
		}
	}
}

func TestParseDate_Invalid(t *testing.T) {
	tests := []string{
		"",
		"2020-1-02",
		"20-01-02",
		"2020/01/02",
		"2020-01-02T00:00:00Z",
		"2020-13-01",
		"2019-02-29", // not a leap year
		"2020-02-30",
		" 2020-01-02",
	}
	for _, s := range tests {
		if _, err := ParseDate(s); err == nil {
			t.Errorf("ParseDate(%q): expected error", s)
		}
	}
}

func TestRange_Open(t *testing.T) {
	r, err := Range(Input{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Bounded() {
		t.Error("empty input should give an unbounded range")
	}
}

func TestRange_Bounded(t *testing.T) {
	r, err := Range(Input{"from": "2020-01-01", "to": "2020-01-01"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Bounded() || r.From != "2020-01-01" || r.To != "2020-01-01" {
		t.Errorf("unexpected range %+v", r)
	}
}

func TestRange_FromWithoutTo(t *testing.T) {
	_, err := Range(Input{"from": "2020-01-01"})
	fields := fieldErrors(t, err)
	if got := fields["to"]; len(got) != 1 || got[0] != "'To' is required with 'From'" {
		t.Errorf("unexpected to errors: %v", got)
	}
}

func TestRange_ToWithoutFrom(t *testing.T) {
	_, err := Range(Input{"to": "2020-01-01"})
	fields := fieldErrors(t, err)
	if _, ok := fields["to"]; !ok {
		t.Errorf("expected to error, got %v", fields)
	}
}

func TestRange_ToBeforeFrom(t *testing.T) {
	_, err := Range(Input{"from": "2020-01-05", "to": "2020-01-04"})
	fields := fieldErrors(t, err)
	if got := fields["to"]; len(got) != 1 || got[0] != "'To' field must be after or equal to 'From'" {
		t.Errorf("unexpected to errors: %v", got)
	}
}

func TestRange_BadFormat(t *testing.T) {
	_, err := Range(Input{"from": "01/01/2020", "to": "2020-01-04"})
	fields := fieldErrors(t, err)
	if got := fields["from"]; len(got) != 1 || got[0] != MsgDateFormat {
		t.Errorf("unexpected from errors: %v", got)
	}
	if _, ok := fields["to"]; ok {
		t.Errorf("to should not be flagged when only from is malformed: %v", fields["to"])
	}
}

func TestCount(t *testing.T) {
	n, err := Count(Input{"days": "10"})
	if err != nil || n != 10 {
		t.Fatalf("Count: got %d, %v", n, err)
	}

	bad := []Input{
		{},
		{"days": "0"},
		{"days": "-3"},
		{"days": "1.5"},
		{"days": "ten"},
	}
	for _, in := range bad {
		_, err := Count(in)
		fields := fieldErrors(t, err)
		if _, ok := fields["days"]; !ok {
			t.Errorf("Count(%v): expected days error", in)
		}
	}
}

func TestDaily_Valid(t *testing.T) {
	rec, err := Daily(Input{
		"date": "2020-01-02", "open": "100", "high": "105.5", "low": "99", "close": "1.03e2",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Date != "2020-01-02" {
		t.Errorf("date=%s", rec.Date)
	}
	if rec.DatePieces.Year != "2020" || rec.DatePieces.Month != "01" || rec.DatePieces.Day != "02" {
		t.Errorf("unexpected date pieces %+v", rec.DatePieces)
	}
	if !rec.High.Equal(decimal.RequireFromString("105.5")) {
		t.Errorf("high=%s", rec.High)
	}
	if !rec.Close.Equal(decimal.NewFromInt(103)) {
		t.Errorf("close=%s", rec.Close)
	}
}

func TestDaily_ReportsEveryFailingField(t *testing.T) {
	_, err := Daily(Input{"date": "2020-01-02", "open": "abc", "close": "1"})
	fields := fieldErrors(t, err)

	for _, name := range []string{"open", "high", "low"} {
		if _, ok := fields[name]; !ok {
			t.Errorf("expected %s error, got %v", name, fields)
		}
	}
	if got := fields["high"]; len(got) != 1 || got[0] != MsgRequired {
		t.Errorf("high: %v", got)
	}
	if got := fields["open"]; len(got) != 1 || got[0] != "The open must be a number." {
		t.Errorf("open: %v", got)
	}
	if _, ok := fields["date"]; ok {
		t.Error("date should pass")
	}
	if !strings.Contains(err.Error(), "open") {
		t.Errorf("error string should name the field: %s", err)
	}
}

func TestParseNumber_Range(t *testing.T) {
	for _, ok := range []string{"103", "-0.5", "1.03e2", "1e6111", "1e-6176", "1234567890123456789012345678901234"} {
		if _, err := ParseNumber(ok); err != nil {
			t.Errorf("ParseNumber(%q): %v", ok, err)
		}
	}
	for _, bad := range []string{"1e100000000", "1e7000", "1e-7000", "12345678901234567890123456789012345", "abc"} {
		if _, err := ParseNumber(bad); err == nil {
			t.Errorf("ParseNumber(%q): expected error", bad)
		}
	}
	if _, err := ParseNumber("1e7000"); !errors.Is(err, ErrNumberRange) {
		t.Errorf("expected ErrNumberRange, got %v", err)
	}
}

func TestDaily_HugeExponentRejected(t *testing.T) {
	_, err := Daily(Input{"date": "2020-01-02", "open": "1e100000000", "high": "1", "low": "1", "close": "1"})
	fields := fieldErrors(t, err)
	if got := fields["open"]; len(got) != 1 || got[0] != "The open must be a number." {
		t.Errorf("open: %v", got)
	}
}

func TestCount_HugeExponentRejected(t *testing.T) {
	// Min must not rescale an out-of-range value.
	schema := Schema{{Name: "days", Rules: []Rule{Min(1)}}}
	fields := fieldErrors(t, schema.Validate(Input{"days": "1e100000000"}))
	if got := fields["days"]; len(got) != 1 || got[0] != "The days must be at least 1." {
		t.Errorf("days: %v", got)
	}
}

func TestPrediction(t *testing.T) {
	rec, err := Prediction(Input{"date": "2021-03-31", "close": "2500.25"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.DatePieces.Day != "31" || !rec.Close.Equal(decimal.RequireFromString("2500.25")) {
		t.Errorf("unexpected record %+v", rec)
	}

	_, err = Prediction(Input{"date": "2021-3-31"})
	fields := fieldErrors(t, err)
	if len(fields) != 2 {
		t.Errorf("expected date and close errors, got %v", fields)
	}
}

func TestFromRequest_QueryAndJSON(t *testing.T) {
	body := `{"date":"2020-01-02","open":100,"high":"105","low":99.5,"close":null,"flag":true}`
	r := httptest.NewRequest(http.MethodPost, "/insert/dow?date=1999-01-01&extra=1", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	in, err := FromRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]string{
		"date":  "2020-01-02", // body wins
		"open":  "100",
		"high":  "105",
		"low":   "99.5",
		"extra": "1",
		"flag":  "true",
	}
	for k, v := range want {
		if in.Get(k) != v {
			t.Errorf("%s=%q, want %q", k, in.Get(k), v)
		}
	}
	if in.Has("close") {
		t.Error("null must count as absent")
	}
}

func TestFromRequest_Form(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/prediction/INX", strings.NewReader("date=2020-01-02&close=10"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	in, err := FromRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Get("date") != "2020-01-02" || in.Get("close") != "10" {
		t.Errorf("unexpected input %v", in)
	}
}

func TestFromRequest_Multipart(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range map[string]string{"date": "2020-01-02", "close": "10"} {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest(http.MethodPost, "/prediction/INX?close=1", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())

	in, err := FromRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Get("date") != "2020-01-02" || in.Get("close") != "10" {
		t.Errorf("unexpected input %v", in)
	}
}

func TestFromRequest_MultipartMissingBoundary(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/prediction/INX", strings.NewReader("date=2020-01-02"))
	r.Header.Set("Content-Type", "multipart/form-data")

	if _, err := FromRequest(r); !errors.Is(err, ErrBadBody) {
		t.Errorf("expected ErrBadBody, got %v", err)
	}
}

func TestFromRequest_BadJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/insert/dow", strings.NewReader(`{"date":`))
	r.Header.Set("Content-Type", "application/json")

	if _, err := FromRequest(r); !errors.Is(err, ErrBadBody) {
		t.Errorf("expected ErrBadBody, got %v", err)
	}
}

func TestFromRequest_NestedValueFailsRules(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/prediction/dow", strings.NewReader(`{"date":"2020-01-02","close":{"v":1}}`))
	r.Header.Set("Content-Type", "application/json")

	in, err := FromRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = Prediction(in)
	fields := fieldErrors(t, err)
	if _, ok := fields["close"]; !ok {
		t.Errorf("expected close error, got %v", fields)
	}
}

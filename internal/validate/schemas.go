package validate

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/atmx/market-data/internal/model"
)

// Declared schemas, one per operation family.
var (
	// RangeSchema: from is optional; to is required with from and may not
	// precede it.
	RangeSchema = Schema{
		{Name: "from", Rules: []Rule{DateFormat()}},
		{Name: "to", Rules: []Rule{RequiredWith("from"), DateFormat(), AfterOrEqual("from")}},
	}

	CountSchema = Schema{
		{Name: "days", Rules: []Rule{Required(), Integer(), Min(1)}},
	}

	DailySchema = Schema{
		{Name: "date", Rules: []Rule{Required(), DateFormat()}},
		{Name: "close", Rules: []Rule{Required(), Numeric()}},
		{Name: "open", Rules: []Rule{Required(), Numeric()}},
		{Name: "low", Rules: []Rule{Required(), Numeric()}},
		{Name: "high", Rules: []Rule{Required(), Numeric()}},
	}

	PredictionSchema = Schema{
		{Name: "date", Rules: []Rule{Required(), DateFormat()}},
		{Name: "close", Rules: []Rule{Required(), Numeric()}},
	}
)

// DateRange is a validated, possibly open, date range. Both bounds are set
// or neither is.
type DateRange struct {
	From string
	To   string
}

// Bounded reports whether the range filters anything.
func (r DateRange) Bounded() bool {
	return r.From != "" && r.To != ""
}

// Range validates from/to parameters.
func Range(in Input) (DateRange, error) {
	if err := RangeSchema.Validate(in); err != nil {
		return DateRange{}, err
	}
	return DateRange{From: in.Get("from"), To: in.Get("to")}, nil
}

// Count validates the days parameter.
func Count(in Input) (int, error) {
	if err := CountSchema.Validate(in); err != nil {
		return 0, err
	}
	n, _ := strconv.Atoi(in.Get("days"))
	return n, nil
}

// Daily validates an insert body and builds the record, including its
// derived date pieces.
func Daily(in Input) (model.DailyRecord, error) {
	if err := DailySchema.Validate(in); err != nil {
		return model.DailyRecord{}, err
	}
	date := in.Get("date")
	return model.DailyRecord{
		Date:       date,
		DatePieces: model.SplitDate(date),
		Open:       mustDecimal(in.Get("open")),
		High:       mustDecimal(in.Get("high")),
		Low:        mustDecimal(in.Get("low")),
		Close:      mustDecimal(in.Get("close")),
	}, nil
}

// Prediction validates a prediction body. Symbol and Name are left for the
// caller to fill from the resolved market.
func Prediction(in Input) (model.PredictionRecord, error) {
	if err := PredictionSchema.Validate(in); err != nil {
		return model.PredictionRecord{}, err
	}
	date := in.Get("date")
	return model.PredictionRecord{
		Date:       date,
		DatePieces: model.SplitDate(date),
		Close:      mustDecimal(in.Get("close")),
	}, nil
}

// mustDecimal is only called on values that passed Numeric.
func mustDecimal(s string) decimal.Decimal {
	d, _ := ParseNumber(s)
	return d
}

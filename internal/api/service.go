// Package api provides the HTTP handlers for reading and inserting daily
// market records and predictions.
//
// Every market-scoped route takes a {token} that may be a collection name
// or a market symbol. Handling order is fixed: resolve the token, validate
// parameters, then touch the store. Failures short-circuit at the first
// step that detects them.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atmx/market-data/internal/market"
	"github.com/atmx/market-data/internal/metrics"
	"github.com/atmx/market-data/internal/model"
	"github.com/atmx/market-data/internal/store"
	"github.com/atmx/market-data/internal/validate"
)

// Service handles market data operations. It holds no mutable state of
// its own; the registry is read-only and the store owns all records.
type Service struct {
	registry *market.Registry
	store    store.Store
	wsHub    *WSHub // optional WebSocket hub for insert broadcasts
}

// NewService creates a new market data service. st receives logical
// collection names; wrap it in a store.SourceRouter to pick the physical
// data source. Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(reg *market.Registry, st store.Store, hub *WSHub) *Service {
	return &Service{
		registry: reg,
		store:    st,
		wsHub:    hub,
	}
}

// Routes registers the market data handlers on r. The WebSocket feed is
// mounted separately by the caller.
func (s *Service) Routes(r chi.Router) {
	r.Get("/", s.Index)
	r.Get("/collections", s.Collections)
	r.Get("/symbols", s.Symbols)
	r.Get("/getData/{token}", s.GetData)
	r.Get("/getDataByCount/{token}", s.GetDataByCount)
	r.Get("/latest/{token}", s.Latest)
	r.Post("/insert/{token}", s.Insert)
	r.Post("/prediction/{token}", s.InsertPrediction)
	r.Get("/predictionsByDate/{token}", s.PredictionsByDate)
	r.Get("/predictionsByCount/{token}", s.PredictionsByCount)
}

// --- Response types ---

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// MessageResponse is the body of a successful insert.
type MessageResponse struct {
	Message string `json:"message"`
}

// routeIndex describes the API for GET /.
var routeIndex = map[string]string{
	"get all collections": "/collections",
	"get all symbols":     "/symbols",
	"get data (optional query string parameters: 'from' and 'to' )":        "/getData/{collection or symbol}",
	"get data by day count":                                                "/getDataByCount/{collection or symbol}?days=10 (min is 1)",
	"get latest entry":                                                     "/latest/{collection or symbol}",
	"get predictions (optional query string parameters: 'from' and 'to' )": "/predictionsByDate/{collection or symbol}",
	"get predictions by day count":                                         "/predictionsByCount/{collection or symbol}?days=10 (min is 1)",
	"[POST] insert item (date, high, low, open, close are required)":       "/insert/{collection or symbol}?date=(format = 2019-03-31)",
	"[POST] insert prediction (date, close are required)":                  "/prediction/{collection or symbol}?date=(format = 2019-03-31)",
}

// --- HTTP Handlers ---

// Index handles GET /
func (s *Service) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, routeIndex)
}

// Collections handles GET /collections
func (s *Service) Collections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Collections())
}

// Symbols handles GET /symbols
func (s *Service) Symbols(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Symbols())
}

// GetData handles GET /getData/{token}?from=&to=
// Returns daily records ascending by date.
func (s *Service) GetData(w http.ResponseWriter, r *http.Request) {
	m, ok := s.resolve(w, r)
	if !ok {
		return
	}
	rng, ok := parse(w, r, "getData", validate.Range)
	if !ok {
		return
	}

	recs, err := s.store.FetchRange(r.Context(), m.Collection, rng.From, rng.To)
	if err != nil {
		storeFailure(w, "fetch_range", err)
		return
	}
	writeJSON(w, http.StatusOK, model.NewResult(m, recs))
}

// GetDataByCount handles GET /getDataByCount/{token}?days=N
// Returns the latest N daily records, newest first.
func (s *Service) GetDataByCount(w http.ResponseWriter, r *http.Request) {
	m, ok := s.resolve(w, r)
	if !ok {
		return
	}
	days, ok := parse(w, r, "getDataByCount", validate.Count)
	if !ok {
		return
	}

	recs, err := s.store.FetchByCount(r.Context(), m.Collection, days)
	if err != nil {
		storeFailure(w, "fetch_by_count", err)
		return
	}
	writeJSON(w, http.StatusOK, model.NewResult(m, recs))
}

// Latest handles GET /latest/{token}
// Returns the newest daily record tagged with the market's name and symbol.
func (s *Service) Latest(w http.ResponseWriter, r *http.Request) {
	m, ok := s.resolve(w, r)
	if !ok {
		return
	}

	rec, err := s.store.FetchLatest(r.Context(), m.Collection)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, "no records found for "+m.Collection, http.StatusNotFound)
		return
	}
	if err != nil {
		storeFailure(w, "fetch_latest", err)
		return
	}

	rec.Name = m.Collection
	rec.Symbol = m.Symbol
	writeJSON(w, http.StatusOK, rec)
}

// Insert handles POST /insert/{token}
// Body (or query): date, open, high, low, close.
func (s *Service) Insert(w http.ResponseWriter, r *http.Request) {
	m, ok := s.resolve(w, r)
	if !ok {
		return
	}
	rec, ok := parse(w, r, "insert", validate.Daily)
	if !ok {
		return
	}

	err := s.store.InsertDaily(r.Context(), m.Collection, &rec)
	if errors.Is(err, store.ErrConflict) {
		metrics.InsertConflicts.WithLabelValues(m.Collection, metrics.KindDaily).Inc()
		slog.Warn("duplicate daily record", "collection", m.Collection, "date", rec.Date)
		writeError(w, conflictMessage(rec.Date), http.StatusConflict)
		return
	}
	if err != nil {
		metrics.StoreErrors.WithLabelValues("insert_daily").Inc()
		slog.Error("insert daily record failed", "collection", m.Collection, "date", rec.Date, "err", err)
		writeError(w, "Error saving data", http.StatusInternalServerError)
		return
	}

	metrics.RecordsInserted.WithLabelValues(m.Collection, metrics.KindDaily).Inc()
	slog.Info("daily record inserted",
		"collection", m.Collection,
		"symbol", m.Symbol,
		"date", rec.Date,
		"close", rec.Close.String(),
	)

	s.wsHub.Broadcast(WSMessage{
		Type:   EventDailyInserted,
		Name:   m.Collection,
		Symbol: m.Symbol,
		Date:   rec.Date,
		Open:   rec.Open.String(),
		High:   rec.High.String(),
		Low:    rec.Low.String(),
		Close:  rec.Close.String(),
	})

	writeJSON(w, http.StatusCreated, MessageResponse{Message: "Success"})
}

// InsertPrediction handles POST /prediction/{token}
// Body (or query): date, close.
func (s *Service) InsertPrediction(w http.ResponseWriter, r *http.Request) {
	m, ok := s.resolve(w, r)
	if !ok {
		return
	}
	rec, ok := parse(w, r, "prediction", validate.Prediction)
	if !ok {
		return
	}
	rec.Symbol = m.Symbol
	rec.Name = m.Collection

	err := s.store.InsertPrediction(r.Context(), &rec)
	if errors.Is(err, store.ErrConflict) {
		metrics.InsertConflicts.WithLabelValues(m.Collection, metrics.KindPrediction).Inc()
		slog.Warn("duplicate prediction", "symbol", m.Symbol, "date", rec.Date)
		writeError(w, conflictMessage(rec.Date), http.StatusConflict)
		return
	}
	if err != nil {
		metrics.StoreErrors.WithLabelValues("insert_prediction").Inc()
		slog.Error("insert prediction failed", "symbol", m.Symbol, "date", rec.Date, "err", err)
		writeError(w, "Error saving data", http.StatusInternalServerError)
		return
	}

	metrics.RecordsInserted.WithLabelValues(m.Collection, metrics.KindPrediction).Inc()
	slog.Info("prediction inserted",
		"collection", m.Collection,
		"symbol", m.Symbol,
		"date", rec.Date,
		"close", rec.Close.String(),
	)

	s.wsHub.Broadcast(WSMessage{
		Type:   EventPredictionInserted,
		Name:   m.Collection,
		Symbol: m.Symbol,
		Date:   rec.Date,
		Close:  rec.Close.String(),
	})

	writeJSON(w, http.StatusCreated, MessageResponse{Message: "Success"})
}

// PredictionsByDate handles GET /predictionsByDate/{token}?from=&to=
func (s *Service) PredictionsByDate(w http.ResponseWriter, r *http.Request) {
	m, ok := s.resolve(w, r)
	if !ok {
		return
	}
	rng, ok := parse(w, r, "predictionsByDate", validate.Range)
	if !ok {
		return
	}

	preds, err := s.store.FetchPredictionsRange(r.Context(), m.Collection, rng.From, rng.To)
	if err != nil {
		storeFailure(w, "fetch_predictions_range", err)
		return
	}
	writeJSON(w, http.StatusOK, model.NewResult(m, preds))
}

// PredictionsByCount handles GET /predictionsByCount/{token}?days=N
func (s *Service) PredictionsByCount(w http.ResponseWriter, r *http.Request) {
	m, ok := s.resolve(w, r)
	if !ok {
		return
	}
	days, ok := parse(w, r, "predictionsByCount", validate.Count)
	if !ok {
		return
	}

	preds, err := s.store.FetchPredictionsByCount(r.Context(), m.Collection, days)
	if err != nil {
		storeFailure(w, "fetch_predictions_by_count", err)
		return
	}
	writeJSON(w, http.StatusOK, model.NewResult(m, preds))
}

// --- helpers ---

// resolve maps the {token} URL param to a market, replying 422 on failure.
func (s *Service) resolve(w http.ResponseWriter, r *http.Request) (model.Market, bool) {
	m, err := s.registry.Resolve(chi.URLParam(r, "token"))
	if err != nil {
		metrics.UnknownMarketRejections.Inc()
		writeError(w, market.UnknownMarketMessage, http.StatusUnprocessableEntity)
		return model.Market{}, false
	}
	return m, true
}

// parse gathers request input and runs one of the validate constructors,
// replying 422 on failure.
func parse[T any](w http.ResponseWriter, r *http.Request, route string, fn func(validate.Input) (T, error)) (T, bool) {
	var zero T
	in, err := validate.FromRequest(r)
	if err != nil {
		metrics.ValidationFailures.WithLabelValues(route).Inc()
		writeError(w, "invalid request body", http.StatusUnprocessableEntity)
		return zero, false
	}
	v, err := fn(in)
	if err != nil {
		metrics.ValidationFailures.WithLabelValues(route).Inc()
		var verr *validate.Error
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Fields: verr.Fields})
			return zero, false
		}
		writeError(w, err.Error(), http.StatusUnprocessableEntity)
		return zero, false
	}
	return v, true
}

func conflictMessage(date string) string {
	return fmt.Sprintf("Record for given date (%s) already exists", date)
}

func storeFailure(w http.ResponseWriter, op string, err error) {
	metrics.StoreErrors.WithLabelValues(op).Inc()
	slog.Error("store read failed", "op", op, "err", err)
	writeError(w, "failed to load data", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

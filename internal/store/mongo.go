package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/atmx/market-data/internal/model"
)

// MongoStore implements Store on a MongoDB database, one collection per
// physical daily source plus the shared predictions collection.
// Prices are written as Decimal128. Reads also accept the string and
// double values written by older importers.
type MongoStore struct {
	db *mongo.Database
}

// NewMongoStore creates a new MongoDB-backed store.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

// EnsureIndexes creates the unique indexes that back ErrConflict: date on
// every daily collection, (date, symbol) on predictions. Passing
// PredictionsCollection among collections changes nothing.
func (s *MongoStore) EnsureIndexes(ctx context.Context, collections []string) error {
	plan := indexPlan(collections)
	for _, name := range append(dailyIndexTargets(collections), PredictionsCollection) {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, plan[name]); err != nil {
			return fmt.Errorf("ensure index on %s: %w", name, err)
		}
	}
	return nil
}

// dailyIndexTargets drops duplicates and the predictions collection, which
// must never get a unique date index.
func dailyIndexTargets(collections []string) []string {
	seen := make(map[string]bool, len(collections))
	var out []string
	for _, name := range collections {
		if name == PredictionsCollection || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// indexPlan maps each collection to the indexes it needs.
func indexPlan(collections []string) map[string][]mongo.IndexModel {
	plan := map[string][]mongo.IndexModel{
		PredictionsCollection: {
			{
				Keys:    bson.D{{Key: "date", Value: 1}, {Key: "symbol", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{{Key: "name", Value: 1}, {Key: "date", Value: 1}},
			},
		},
	}
	for _, name := range dailyIndexTargets(collections) {
		plan[name] = []mongo.IndexModel{{
			Keys:    bson.D{{Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true),
		}}
	}
	return plan
}

// dailyDoc is the stored shape of a daily record.
type dailyDoc struct {
	Date       string          `bson:"date"`
	DatePieces model.DateParts `bson:"date_pieces"`
	Open       bson.RawValue   `bson:"open"`
	High       bson.RawValue   `bson:"high"`
	Low        bson.RawValue   `bson:"low"`
	Close      bson.RawValue   `bson:"close"`
}

type predictionDoc struct {
	Date       string          `bson:"date"`
	DatePieces model.DateParts `bson:"date_pieces"`
	Close      bson.RawValue   `bson:"close"`
	Symbol     string          `bson:"symbol"`
	Name       string          `bson:"name"`
}

func (s *MongoStore) InsertDaily(ctx context.Context, collection string, rec *model.DailyRecord) error {
	prices, err := decimalFields(rec.Close, rec.High, rec.Open, rec.Low)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", collection, err)
	}
	doc := bson.D{
		{Key: "date", Value: rec.Date},
		{Key: "date_pieces", Value: rec.DatePieces},
		{Key: "close", Value: prices[0]},
		{Key: "high", Value: prices[1]},
		{Key: "open", Value: prices[2]},
		{Key: "low", Value: prices[3]},
	}
	_, err = s.db.Collection(collection).InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s %s", ErrConflict, collection, rec.Date)
	}
	if err != nil {
		return fmt.Errorf("insert into %s: %w", collection, err)
	}
	return nil
}

func (s *MongoStore) FetchRange(ctx context.Context, collection, from, to string) ([]model.DailyRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	return s.findDaily(ctx, collection, dateFilter(bson.M{}, from, to), opts)
}

func (s *MongoStore) FetchByCount(ctx context.Context, collection string, count int) ([]model.DailyRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}}).
		SetLimit(int64(count))
	return s.findDaily(ctx, collection, bson.M{}, opts)
}

func (s *MongoStore) FetchLatest(ctx context.Context, collection string) (*model.DailyRecord, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "date", Value: -1}})

	var doc dailyDoc
	err := s.db.Collection(collection).FindOne(ctx, bson.M{}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w in %s", ErrNotFound, collection)
	}
	if err != nil {
		return nil, fmt.Errorf("latest from %s: %w", collection, err)
	}
	rec, err := doc.record()
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *MongoStore) InsertPrediction(ctx context.Context, rec *model.PredictionRecord) error {
	closeVal, err := toDecimal128(rec.Close)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	doc := bson.D{
		{Key: "date", Value: rec.Date},
		{Key: "date_pieces", Value: rec.DatePieces},
		{Key: "close", Value: closeVal},
		{Key: "symbol", Value: rec.Symbol},
		{Key: "name", Value: rec.Name},
	}
	_, err = s.db.Collection(PredictionsCollection).InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: prediction %s %s", ErrConflict, rec.Symbol, rec.Date)
	}
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

func (s *MongoStore) FetchPredictionsRange(ctx context.Context, name, from, to string) ([]model.PredictionRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	return s.findPredictions(ctx, dateFilter(bson.M{"name": name}, from, to), opts)
}

func (s *MongoStore) FetchPredictionsByCount(ctx context.Context, name string, count int) ([]model.PredictionRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}}).
		SetLimit(int64(count))
	return s.findPredictions(ctx, bson.M{"name": name}, opts)
}

func (s *MongoStore) findDaily(ctx context.Context, collection string, filter bson.M, opts *options.FindOptions) ([]model.DailyRecord, error) {
	cur, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	var docs []dailyDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}

	records := make([]model.DailyRecord, 0, len(docs))
	for _, doc := range docs {
		rec, err := doc.record()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *MongoStore) findPredictions(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]model.PredictionRecord, error) {
	cur, err := s.db.Collection(PredictionsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer cur.Close(ctx)

	var docs []predictionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode predictions: %w", err)
	}

	records := make([]model.PredictionRecord, 0, len(docs))
	for _, doc := range docs {
		closeVal, err := rawDecimal(doc.Close)
		if err != nil {
			return nil, fmt.Errorf("prediction %s %s close: %w", doc.Symbol, doc.Date, err)
		}
		records = append(records, model.PredictionRecord{
			Date:       doc.Date,
			DatePieces: doc.DatePieces,
			Close:      closeVal,
			Symbol:     doc.Symbol,
			Name:       doc.Name,
		})
	}
	return records, nil
}

func (d dailyDoc) record() (model.DailyRecord, error) {
	rec := model.DailyRecord{Date: d.Date, DatePieces: d.DatePieces}
	fields := []struct {
		name string
		raw  bson.RawValue
		dst  *decimal.Decimal
	}{
		{"open", d.Open, &rec.Open},
		{"high", d.High, &rec.High},
		{"low", d.Low, &rec.Low},
		{"close", d.Close, &rec.Close},
	}
	for _, f := range fields {
		v, err := rawDecimal(f.raw)
		if err != nil {
			return model.DailyRecord{}, fmt.Errorf("record %s %s: %w", d.Date, f.name, err)
		}
		*f.dst = v
	}
	return rec, nil
}

// dateFilter adds an inclusive date bound to filter when both ends are set.
// Dates are YYYY-MM-DD strings, so lexical order is chronological.
func dateFilter(filter bson.M, from, to string) bson.M {
	if bounded(from, to) {
		filter["date"] = bson.M{"$gte": from, "$lte": to}
	}
	return filter
}

// ErrUnrepresentable is returned when a price does not fit in a Decimal128.
var ErrUnrepresentable = errors.New("store: value does not fit in decimal128")

// toDecimal128 converts exactly or fails; it never rounds.
func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	if d.NumDigits() > 34 {
		return primitive.Decimal128{}, fmt.Errorf("%w: %d significant digits", ErrUnrepresentable, d.NumDigits())
	}
	if exp := d.Exponent(); exp < -6176 || exp > 6111 {
		return primitive.Decimal128{}, fmt.Errorf("%w: exponent %d", ErrUnrepresentable, exp)
	}
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("%w: %v", ErrUnrepresentable, err)
	}
	return v, nil
}

// decimalFields converts prices in order, failing on the first one that
// cannot be stored.
func decimalFields(prices ...decimal.Decimal) ([]primitive.Decimal128, error) {
	out := make([]primitive.Decimal128, len(prices))
	for i, p := range prices {
		v, err := toDecimal128(p)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// rawDecimal converts any numeric BSON value, or a numeric string, to decimal.
func rawDecimal(rv bson.RawValue) (decimal.Decimal, error) {
	switch rv.Type {
	case bsontype.Decimal128:
		return decimal.NewFromString(rv.Decimal128().String())
	case bsontype.Double:
		return decimal.NewFromFloat(rv.Double()), nil
	case bsontype.Int32:
		return decimal.NewFromInt32(rv.Int32()), nil
	case bsontype.Int64:
		return decimal.NewFromInt(rv.Int64()), nil
	case bsontype.String:
		return decimal.NewFromString(rv.StringValue())
	default:
		return decimal.Zero, fmt.Errorf("unsupported bson type %s", rv.Type)
	}
}

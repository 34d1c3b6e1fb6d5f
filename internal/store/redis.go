package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/atmx/market-data/internal/model"
)

// insertScript stores a record only if its field is new and indexes it in
// a zero-score sorted set, so members sort lexically (chronologically for
// YYYY-MM-DD prefixes). Returns 0 on duplicate.
//
// KEYS[1] record hash, KEYS[2] index zset
// ARGV[1] hash field, ARGV[2] JSON record, ARGV[3] zset member
var insertScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2]) == 0 then
	return 0
end
redis.call('ZADD', KEYS[2], 0, ARGV[3])
return 1
`)

// RedisStore implements Store on Redis. Each physical collection is a hash
// of date -> JSON record plus a sorted-set index of dates. Predictions live
// in one hash keyed "date|symbol" with a per-name index.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a new Redis-backed store.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) InsertDaily(ctx context.Context, collection string, rec *model.DailyRecord) error {
	stored := *rec
	stored.Name, stored.Symbol = "", ""
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	ok, err := insertScript.Run(ctx, s.rdb,
		[]string{dailyKey(collection), dailyIndexKey(collection)},
		rec.Date, data, rec.Date,
	).Int()
	if err != nil {
		return fmt.Errorf("insert into %s: %w", collection, err)
	}
	if ok == 0 {
		return fmt.Errorf("%w: %s %s", ErrConflict, collection, rec.Date)
	}
	return nil
}

func (s *RedisStore) FetchRange(ctx context.Context, collection, from, to string) ([]model.DailyRecord, error) {
	var dates []string
	var err error
	if bounded(from, to) {
		dates, err = s.rdb.ZRangeByLex(ctx, dailyIndexKey(collection), &redis.ZRangeBy{
			Min: "[" + from,
			Max: "[" + to,
		}).Result()
	} else {
		dates, err = s.rdb.ZRange(ctx, dailyIndexKey(collection), 0, -1).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	return loadRecords[model.DailyRecord](ctx, s.rdb, dailyKey(collection), dates)
}

func (s *RedisStore) FetchByCount(ctx context.Context, collection string, count int) ([]model.DailyRecord, error) {
	dates, err := s.rdb.ZRevRange(ctx, dailyIndexKey(collection), 0, int64(count-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	return loadRecords[model.DailyRecord](ctx, s.rdb, dailyKey(collection), dates)
}

func (s *RedisStore) FetchLatest(ctx context.Context, collection string) (*model.DailyRecord, error) {
	recs, err := s.FetchByCount(ctx, collection, 1)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNotFound, collection)
	}
	return &recs[0], nil
}

func (s *RedisStore) InsertPrediction(ctx context.Context, rec *model.PredictionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode prediction: %w", err)
	}

	field := rec.Date + "|" + rec.Symbol
	ok, err := insertScript.Run(ctx, s.rdb,
		[]string{PredictionsCollection, predictionIndexKey(rec.Name)},
		field, data, field,
	).Int()
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	if ok == 0 {
		return fmt.Errorf("%w: prediction %s %s", ErrConflict, rec.Symbol, rec.Date)
	}
	return nil
}

func (s *RedisStore) FetchPredictionsRange(ctx context.Context, name, from, to string) ([]model.PredictionRecord, error) {
	var fields []string
	var err error
	if bounded(from, to) {
		// Members are "date|symbol"; the \xff tail keeps every symbol of
		// the last day inside the bound.
		fields, err = s.rdb.ZRangeByLex(ctx, predictionIndexKey(name), &redis.ZRangeBy{
			Min: "[" + from,
			Max: "[" + to + "|\xff",
		}).Result()
	} else {
		fields, err = s.rdb.ZRange(ctx, predictionIndexKey(name), 0, -1).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	return loadRecords[model.PredictionRecord](ctx, s.rdb, PredictionsCollection, fields)
}

func (s *RedisStore) FetchPredictionsByCount(ctx context.Context, name string, count int) ([]model.PredictionRecord, error) {
	fields, err := s.rdb.ZRevRange(ctx, predictionIndexKey(name), 0, int64(count-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	return loadRecords[model.PredictionRecord](ctx, s.rdb, PredictionsCollection, fields)
}

// loadRecords fetches hash fields in the given order, skipping any whose
// record has vanished.
func loadRecords[T any](ctx context.Context, rdb *redis.Client, key string, fields []string) ([]T, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	vals, err := rdb.HMGet(ctx, key, fields...).Result()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}

	out := make([]T, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var rec T
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", key, fields[i], err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func dailyKey(collection string) string      { return fmt.Sprintf("daily:%s", collection) }
func dailyIndexKey(collection string) string { return fmt.Sprintf("daily:%s:dates", collection) }
func predictionIndexKey(name string) string  { return fmt.Sprintf("predictions:%s:dates", name) }

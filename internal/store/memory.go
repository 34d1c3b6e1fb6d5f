package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/atmx/market-data/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu          sync.RWMutex
	daily       map[string]map[string]model.DailyRecord // collection -> date -> record
	predictions []model.PredictionRecord
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		daily: make(map[string]map[string]model.DailyRecord),
	}
}

func (s *MemoryStore) InsertDaily(_ context.Context, collection string, rec *model.DailyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byDate, ok := s.daily[collection]
	if !ok {
		byDate = make(map[string]model.DailyRecord)
		s.daily[collection] = byDate
	}
	if _, exists := byDate[rec.Date]; exists {
		return fmt.Errorf("%w: %s %s", ErrConflict, collection, rec.Date)
	}

	// Store a copy to avoid external mutation.
	stored := *rec
	stored.Name, stored.Symbol = "", ""
	byDate[rec.Date] = stored
	return nil
}

func (s *MemoryStore) FetchRange(_ context.Context, collection, from, to string) ([]model.DailyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.DailyRecord
	for _, rec := range s.daily[collection] {
		if bounded(from, to) && (rec.Date < from || rec.Date > to) {
			continue
		}
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result, nil
}

func (s *MemoryStore) FetchLatest(ctx context.Context, collection string) (*model.DailyRecord, error) {
	recs, err := s.FetchByCount(ctx, collection, 1)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNotFound, collection)
	}
	return &recs[0], nil
}

func (s *MemoryStore) FetchByCount(_ context.Context, collection string, count int) ([]model.DailyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.DailyRecord, 0, len(s.daily[collection]))
	for _, rec := range s.daily[collection] {
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date > result[j].Date })
	if count < len(result) {
		result = result[:count]
	}
	return result, nil
}

func (s *MemoryStore) InsertPrediction(_ context.Context, rec *model.PredictionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.predictions {
		if p.Date == rec.Date && p.Symbol == rec.Symbol {
			return fmt.Errorf("%w: prediction %s %s", ErrConflict, rec.Symbol, rec.Date)
		}
	}
	s.predictions = append(s.predictions, *rec)
	return nil
}

func (s *MemoryStore) FetchPredictionsRange(_ context.Context, name, from, to string) ([]model.PredictionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.PredictionRecord
	for _, p := range s.predictions {
		if p.Name != name {
			continue
		}
		if bounded(from, to) && (p.Date < from || p.Date > to) {
			continue
		}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result, nil
}

func (s *MemoryStore) FetchPredictionsByCount(_ context.Context, name string, count int) ([]model.PredictionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.PredictionRecord
	for _, p := range s.predictions {
		if p.Name == name {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date > result[j].Date })
	if count < len(result) {
		result = result[:count]
	}
	return result, nil
}

// Package memory provides a map-backed signal store for tests and the demo
// CLI path. Range queries use the lexicographic ordering of YYYY-MM-DD date
// strings, matching the SQL store's date ordering.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/livinglab/uci-engine/internal/domain"
)

// Store is an in-memory implementation of the engine's Store contract.
// Safe for concurrent readers and writers.
type Store struct {
	mu        sync.RWMutex
	signals   []domain.SignalRecord
	geo       map[string]domain.GeoAttributes
	pop       []domain.PopulationRecord
	baselines map[string]domain.BaselineMetric // key: period|category
	units     map[string]bool
}

// New creates an empty store.
func New() *Store {
	return &Store{
		geo:       make(map[string]domain.GeoAttributes),
		baselines: make(map[string]domain.BaselineMetric),
		units:     make(map[string]bool),
	}
}

// AddSignals appends signal records and registers their units.
func (s *Store) AddSignals(records ...domain.SignalRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.signals = append(s.signals, r)
		s.units[r.UnitID] = true
	}
}

// SetGeo stores the unit's geographic attributes.
func (s *Store) SetGeo(geo domain.GeoAttributes) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.geo[geo.UnitID] = geo
	s.units[geo.UnitID] = true
}

// AddPopulation appends population records and registers their units.
func (s *Store) AddPopulation(records ...domain.PopulationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.pop = append(s.pop, r)
		s.units[r.UnitID] = true
	}
}

// SetBaseline stores a citywide baseline metric.
func (s *Store) SetBaseline(b domain.BaselineMetric) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baselines[b.Period+"|"+b.Category] = b
}

func (s *Store) FetchSignals(_ context.Context, unitID, from, to string) ([]domain.SignalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.SignalRecord
	for _, r := range s.signals {
		if r.UnitID == unitID && r.Date >= from && r.Date <= to {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (s *Store) FetchGeo(_ context.Context, unitID string) (*domain.GeoAttributes, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	geo, ok := s.geo[unitID]
	if !ok {
		return nil, nil
	}
	return &geo, nil
}

func (s *Store) FetchPopulation(_ context.Context, unitID, from, to string) ([]domain.PopulationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.PopulationRecord
	for _, r := range s.pop {
		if r.UnitID == unitID && r.Date >= from && r.Date <= to {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (s *Store) FetchBaseline(_ context.Context, period, category string) (*domain.BaselineMetric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.baselines[period+"|"+category]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

// ListUnits returns every unit seen in any record, sorted for determinism.
func (s *Store) ListUnits(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.units))
	for u := range s.units {
		out = append(out, u)
	}
	sort.Strings(out)
	return out, nil
}

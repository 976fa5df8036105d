package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"stockproj/internal/model"
)

var errNotInitialized = errors.New("store is not initialized")

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	scenarios   map[string]model.Scenario
	runs        map[string]model.RunRecord
	sensitivity map[string][]model.SensitivityRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.scenarios = make(map[string]model.Scenario)
	s.runs = make(map[string]model.RunRecord)
	s.sensitivity = make(map[string][]model.SensitivityRecord)
	return nil
}

// Records are deep-copied through the codec so callers never share slices
// with the store.
func (s *MemoryStore) SaveScenario(_ context.Context, scenario model.Scenario) error {
	payload, err := EncodeScenario(scenario)
	if err != nil {
		return err
	}
	copied, err := DecodeScenario(payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errNotInitialized
	}
	s.scenarios[scenario.ID] = copied
	return nil
}

func (s *MemoryStore) GetScenario(_ context.Context, id string) (model.Scenario, bool, error) {
	s.mu.RLock()
	scenario, ok := s.scenarios[id]
	s.mu.RUnlock()
	if !ok {
		return model.Scenario{}, false, nil
	}
	payload, err := EncodeScenario(scenario)
	if err != nil {
		return model.Scenario{}, false, err
	}
	copied, err := DecodeScenario(payload)
	return copied, err == nil, err
}

func (s *MemoryStore) ListScenarios(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.scenarios))
	for id := range s.scenarios {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	copied, err := copyRun(run)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errNotInitialized
	}
	s.runs[run.ID] = copied
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	run, ok := s.runs[id]
	s.mu.RUnlock()
	if !ok {
		return model.RunRecord{}, false, nil
	}
	copied, err := copyRun(run)
	return copied, err == nil, err
}

func (s *MemoryStore) ListRuns(_ context.Context, scenarioID string) ([]model.RunRecord, error) {
	s.mu.RLock()
	runs := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		if scenarioID == "" || run.ScenarioID == scenarioID {
			runs = append(runs, run)
		}
	}
	s.mu.RUnlock()

	for i := range runs {
		copied, err := copyRun(runs[i])
		if err != nil {
			return nil, err
		}
		runs[i] = copied
	}
	sortRuns(runs)
	return runs, nil
}

func (s *MemoryStore) SaveSensitivity(_ context.Context, runID string, records []model.SensitivityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errNotInitialized
	}

	copied := make([]model.SensitivityRecord, len(records))
	copy(copied, records)
	s.sensitivity[runID] = copied
	return nil
}

func (s *MemoryStore) GetSensitivity(_ context.Context, runID string) ([]model.SensitivityRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, ok := s.sensitivity[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.SensitivityRecord, len(records))
	copy(copied, records)
	return copied, true, nil
}

func copyRun(run model.RunRecord) (model.RunRecord, error) {
	payload, err := EncodeRun(run)
	if err != nil {
		return model.RunRecord{}, err
	}
	return DecodeRun(payload)
}

package storage

import (
	"context"
	"errors"
	"sync"

	"modelsel/internal/model"
)

var errNotInitialized = errors.New("store is not initialized")

// MemoryStore keeps runs for the lifetime of the process. Records are stored
// in encoded form so callers never share slices with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	orderRuns   map[string][]byte
	inputsRuns  map[string][]byte
	summaries   map[string]model.RunSummary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.orderRuns = make(map[string][]byte)
	s.inputsRuns = make(map[string][]byte)
	s.summaries = make(map[string]model.RunSummary)
	return nil
}

func (s *MemoryStore) SaveOrderRun(_ context.Context, run model.OrderRun) error {
	payload, err := EncodeOrderRun(run)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.orderRuns[run.ID] = payload
	s.summaries[run.ID] = run.Summary()
	return nil
}

func (s *MemoryStore) GetOrderRun(_ context.Context, id string) (model.OrderRun, bool, error) {
	s.mu.RLock()
	payload, ok := s.orderRuns[id]
	s.mu.RUnlock()

	if !ok {
		return model.OrderRun{}, false, nil
	}
	run, err := DecodeOrderRun(payload)
	if err != nil {
		return model.OrderRun{}, false, err
	}
	return run, true, nil
}

func (s *MemoryStore) SaveInputsRun(_ context.Context, run model.InputsRun) error {
	payload, err := EncodeInputsRun(run)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.inputsRuns[run.ID] = payload
	s.summaries[run.ID] = run.Summary()
	return nil
}

func (s *MemoryStore) GetInputsRun(_ context.Context, id string) (model.InputsRun, bool, error) {
	s.mu.RLock()
	payload, ok := s.inputsRuns[id]
	s.mu.RUnlock()

	if !ok {
		return model.InputsRun{}, false, nil
	}
	run, err := DecodeInputsRun(payload)
	if err != nil {
		return model.InputsRun{}, false, err
	}
	return run, true, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.RunSummary, 0, len(s.summaries))
	for _, summary := range s.summaries {
		out = append(out, summary)
	}
	sortSummaries(out)
	return out, nil
}

package store

import (
	"context"
	"sync"
)

type key struct {
	repo     string
	prNumber int
}

// InMemory is a process-local StateStore.
// It is the reference implementation, all records are lost on restart.
type InMemory struct {
	lock    sync.RWMutex
	records map[key]WorkflowState
}

var _ StateStore = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{
		records: map[key]WorkflowState{},
	}
}

func (s *InMemory) Load(_ context.Context, repo string, prNumber int) (*WorkflowState, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	record, exist := s.records[key{repo: repo, prNumber: prNumber}]
	if !exist {
		return nil, nil
	}

	return &record, nil
}

func (s *InMemory) Save(_ context.Context, repo string, prNumber int, state *WorkflowState) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.records[key{repo: repo, prNumber: prNumber}] = *state

	return nil
}

func (s *InMemory) Delete(_ context.Context, repo string, prNumber int) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.records, key{repo: repo, prNumber: prNumber})

	return nil
}

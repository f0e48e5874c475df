package worker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryQueue is a channel-backed queue for single-process deployments.
type MemoryQueue struct {
	jobs chan Job
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 64
	}
	return &MemoryQueue{jobs: make(chan Job, capacity)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, job Job) error {
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (Job, error) {
	select {
	case job := <-q.jobs:
		return job, nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// MemoryRecordingStore keeps recording state in process memory.
type MemoryRecordingStore struct {
	mu   sync.RWMutex
	recs map[string]Recording
}

func NewMemoryRecordingStore() *MemoryRecordingStore {
	return &MemoryRecordingStore{recs: make(map[string]Recording)}
}

func (s *MemoryRecordingStore) Create(ctx context.Context, rec *Recording) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.recs[rec.ID]; exists {
		return fmt.Errorf("recording %s already exists", rec.ID)
	}
	s.recs[rec.ID] = *rec
	return nil
}

func (s *MemoryRecordingStore) Get(ctx context.Context, id string) (*Recording, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[id]
	if !ok {
		return nil, fmt.Errorf("recording %s not found", id)
	}
	return &rec, nil
}

func (s *MemoryRecordingStore) Update(ctx context.Context, rec *Recording) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recs[rec.ID]; !ok {
		return fmt.Errorf("recording %s not found", rec.ID)
	}
	rec.UpdatedAt = time.Now().UTC()
	s.recs[rec.ID] = *rec
	return nil
}

// Package worker runs the background job loop: it accepts uploaded
// recordings, drives each through the processing pipeline with retries and
// a per-job timeout, and tracks recording state.
package worker

import (
	"context"
	"time"
)

// Recording lifecycle states. Transitions are uploaded -> processing ->
// completed or failed; failed is terminal.
const (
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Recording is one uploaded consultation audio file and its processing state.
type Recording struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	StorageKey string    `json:"storage_key"`
	Status     string    `json:"status"`
	RetryCount int       `json:"retry_count"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Job is one queued unit of work.
type Job struct {
	RecordingID string `json:"recording_id"`
}

// Queue hands jobs to worker goroutines. Dequeue blocks until a job is
// available or the context is done.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Dequeue(ctx context.Context) (Job, error)
}

// RecordingStore tracks recording state.
type RecordingStore interface {
	Create(ctx context.Context, rec *Recording) error
	Get(ctx context.Context, id string) (*Recording, error)
	Update(ctx context.Context, rec *Recording) error
}

// ObjectWriter stores raw audio payloads for later pipeline retrieval.
type ObjectWriter interface {
	Put(ctx context.Context, key string, data []byte) error
}

package worker

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/isaevxxi/DocTalk/internal/errs"
	"github.com/isaevxxi/DocTalk/internal/metrics"
	"github.com/isaevxxi/DocTalk/internal/pipeline"
)

// maxErrorLen caps persisted error strings; engine stderr dumps can be huge.
const maxErrorLen = 1000

// Config holds the worker loop options.
type Config struct {
	Concurrency int
	MaxAttempts int
	JobTimeout  time.Duration
	RetryDelay  time.Duration
}

// Processor runs the full pipeline for one recording.
type Processor interface {
	Process(ctx context.Context, recordingID, storageKey string) (*pipeline.Transcript, error)
}

// Worker consumes jobs from a queue and runs each recording through the
// pipeline. A failed attempt is retried up to MaxAttempts times unless the
// failure is permanent; the terminal failure is recorded both on the
// recording and as a failed transcript record.
type Worker struct {
	queue        Queue
	recordings   RecordingStore
	objects      ObjectWriter
	transcripts  pipeline.TranscriptStore
	orchestrator Processor
	metrics      *metrics.Metrics
	cfg          Config
}

func New(queue Queue, recordings RecordingStore, objects ObjectWriter, transcripts pipeline.TranscriptStore, orchestrator Processor, m *metrics.Metrics, cfg Config) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = time.Hour
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	if m == nil {
		m = metrics.New()
	}
	return &Worker{
		queue:        queue,
		recordings:   recordings,
		objects:      objects,
		transcripts:  transcripts,
		orchestrator: orchestrator,
		metrics:      m,
		cfg:          cfg,
	}
}

// Submit stores an uploaded payload, registers the recording and enqueues
// its processing job.
func (w *Worker) Submit(ctx context.Context, filename string, data []byte) (*Recording, error) {
	if len(data) == 0 {
		return nil, errs.NewInvalidInput("uploaded file is empty")
	}

	now := time.Now().UTC()
	rec := &Recording{
		ID:        uuid.New().String(),
		Filename:  filepath.Base(filename),
		Status:    StatusUploaded,
		CreatedAt: now,
		UpdatedAt: now,
	}
	rec.StorageKey = fmt.Sprintf("%s/%s", rec.ID, rec.Filename)

	if err := w.objects.Put(ctx, rec.StorageKey, data); err != nil {
		return nil, errs.NewProcessing("storage", err)
	}
	if err := w.recordings.Create(ctx, rec); err != nil {
		return nil, err
	}
	if err := w.queue.Enqueue(ctx, Job{RecordingID: rec.ID}); err != nil {
		return nil, err
	}

	log.Info().
		Str("recording_id", rec.ID).
		Str("filename", rec.Filename).
		Int("size_bytes", len(data)).
		Msg("Recording submitted")

	return rec, nil
}

// Run blocks consuming jobs until the context is cancelled. In-flight jobs
// finish their current attempt before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	log.Info().
		Int("concurrency", w.cfg.Concurrency).
		Int("max_attempts", w.cfg.MaxAttempts).
		Dur("job_timeout", w.cfg.JobTimeout).
		Msg("Worker started")

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.cfg.Concurrency; i++ {
		g.Go(func() error {
			for {
				job, err := w.queue.Dequeue(gctx)
				if err != nil {
					if gctx.Err() != nil {
						return nil
					}
					return err
				}
				w.handle(gctx, job)
			}
		})
	}
	return g.Wait()
}

func (w *Worker) handle(ctx context.Context, job Job) {
	rec, err := w.recordings.Get(ctx, job.RecordingID)
	if err != nil {
		log.Warn().Err(err).Str("recording_id", job.RecordingID).Msg("Dropping job for unknown recording")
		return
	}

	rec.Status = StatusProcessing
	if err := w.recordings.Update(ctx, rec); err != nil {
		log.Warn().Err(err).Str("recording_id", rec.ID).Msg("Failed to mark recording processing")
	}

	w.metrics.JobStarted()
	defer w.metrics.JobFinished()

	var lastErr error
	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		jctx, cancel := context.WithTimeout(ctx, w.cfg.JobTimeout)
		_, err := w.orchestrator.Process(jctx, rec.ID, rec.StorageKey)
		cancel()

		if err == nil {
			rec.Status = StatusCompleted
			rec.Error = ""
			if uerr := w.recordings.Update(ctx, rec); uerr != nil {
				log.Warn().Err(uerr).Str("recording_id", rec.ID).Msg("Failed to mark recording completed")
			}
			w.metrics.IncJobs("completed")
			return
		}
		lastErr = err

		if errs.IsInvalidInput(err) {
			log.Warn().
				Err(err).
				Str("recording_id", rec.ID).
				Msg("Recording rejected as invalid input, not retrying")
			break
		}
		if ctx.Err() != nil {
			break
		}

		rec.RetryCount++
		w.metrics.IncRetries()
		if uerr := w.recordings.Update(ctx, rec); uerr != nil {
			log.Warn().Err(uerr).Str("recording_id", rec.ID).Msg("Failed to update retry count")
		}

		log.Warn().
			Err(err).
			Str("recording_id", rec.ID).
			Int("attempt", attempt).
			Int("max_attempts", w.cfg.MaxAttempts).
			Msg("Processing attempt failed")

		if attempt < w.cfg.MaxAttempts {
			select {
			case <-time.After(w.cfg.RetryDelay):
			case <-ctx.Done():
			}
		}
	}

	w.fail(ctx, rec, lastErr)
}

// fail marks the recording failed and persists a failed transcript record
// so consumers see a terminal result instead of a recording stuck in
// processing.
func (w *Worker) fail(ctx context.Context, rec *Recording, cause error) {
	msg := truncateError(cause)

	rec.Status = StatusFailed
	rec.Error = msg
	if err := w.recordings.Update(ctx, rec); err != nil {
		log.Error().Err(err).Str("recording_id", rec.ID).Msg("Failed to mark recording failed")
	}

	failed := &pipeline.Transcript{
		ID:          uuid.New().String(),
		RecordingID: rec.ID,
		Status:      pipeline.StatusFailed,
		Error:       msg,
		CreatedAt:   time.Now().UTC(),
	}
	if err := w.transcripts.Save(ctx, failed); err != nil {
		log.Error().Err(err).Str("recording_id", rec.ID).Msg("Failed to persist failed transcript record")
	}

	w.metrics.IncJobs("failed")

	log.Error().
		Str("recording_id", rec.ID).
		Int("retry_count", rec.RetryCount).
		Str("error", msg).
		Msg("Recording failed permanently")
}

func truncateError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > maxErrorLen {
		return msg[:maxErrorLen]
	}
	return msg
}

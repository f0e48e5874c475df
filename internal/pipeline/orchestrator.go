package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/isaevxxi/DocTalk/internal/asr"
	"github.com/isaevxxi/DocTalk/internal/audio"
	"github.com/isaevxxi/DocTalk/internal/diarize"
	"github.com/isaevxxi/DocTalk/internal/errs"
	"github.com/isaevxxi/DocTalk/internal/metrics"
)

// Config holds the orchestrator runtime options.
type Config struct {
	Language           string
	NumSpeakers        int
	DiarizationEnabled bool
}

// Orchestrator ties the stages together. Transcription and diarization run
// concurrently on the same payload; a diarization failure degrades the
// result to UNKNOWN speakers, a transcription failure fails the job.
type Orchestrator struct {
	objects     ObjectStore
	transcripts TranscriptStore
	transcriber *asr.Transcriber
	diarizer    *diarize.Diarizer
	metrics     *metrics.Metrics
	cfg         Config
}

// NewOrchestrator wires the pipeline. diarizer may be nil when diarization
// is disabled or its engine failed to initialize; transcripts then carry
// UNKNOWN speakers without being marked degraded.
func NewOrchestrator(objects ObjectStore, transcripts TranscriptStore, transcriber *asr.Transcriber, diarizer *diarize.Diarizer, m *metrics.Metrics, cfg Config) *Orchestrator {
	if m == nil {
		m = metrics.New()
	}
	return &Orchestrator{
		objects:     objects,
		transcripts: transcripts,
		transcriber: transcriber,
		diarizer:    diarizer,
		metrics:     m,
		cfg:         cfg,
	}
}

// Process runs the full pipeline for one recording and persists the
// transcript. The returned transcript is already saved.
func (o *Orchestrator) Process(ctx context.Context, recordingID, storageKey string) (*Transcript, error) {
	start := time.Now()

	data, err := o.objects.Get(ctx, storageKey)
	if err != nil {
		return nil, errs.NewProcessing("storage", err)
	}
	if len(data) == 0 {
		return nil, errs.NewInvalidInput("audio object is empty")
	}

	log.Info().
		Str("recording_id", recordingID).
		Str("storage_key", storageKey).
		Int("size_bytes", len(data)).
		Msg("Processing recording")

	var (
		asrResult  *asr.Result
		diarResult *diarize.Result
		diarErr    error

		asrElapsed  float64
		diarElapsed float64
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		t0 := time.Now()
		res, err := o.transcriber.Transcribe(gctx, data, o.cfg.Language)
		asrElapsed = time.Since(t0).Seconds()
		if err != nil {
			return err
		}
		asrResult = res
		return nil
	})

	if o.diarizeEnabled() {
		g.Go(func() error {
			t0 := time.Now()
			defer func() { diarElapsed = time.Since(t0).Seconds() }()

			// The diarization engine needs decoded PCM; a payload our
			// decoder cannot parse degrades the result instead of failing
			// the job, since the ASR backend may still handle the format.
			buf, err := audio.Decode(data)
			if err != nil {
				diarErr = err
				return nil
			}
			res, err := o.diarizer.Diarize(gctx, buf, o.cfg.NumSpeakers)
			if err != nil {
				diarErr = err
				return nil
			}
			diarResult = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	o.metrics.ObserveStage("transcription", asrElapsed)

	degraded := false
	reason := ""
	if o.diarizeEnabled() {
		o.metrics.ObserveStage("diarization", diarElapsed)
		if diarErr != nil {
			degraded = true
			reason = diarErr.Error()
			o.metrics.IncDegraded()
			log.Warn().
				Err(diarErr).
				Str("recording_id", recordingID).
				Msg("Diarization failed, producing transcript without speaker labels")
		} else if diarResult.VADStats != nil {
			o.metrics.AddDiarizationChunks(diarResult.VADStats.SpeechRegions)
			for i := 0; i < diarResult.VADStats.ChunkFailures; i++ {
				o.metrics.IncChunkFailures()
			}
		}
	}

	transcript := &Transcript{
		ID:                uuid.New().String(),
		RecordingID:       recordingID,
		Status:            StatusCompleted,
		Text:              asrResult.Text,
		Segments:          AssignSpeakers(asrResult.Segments, diarResult),
		Language:          asrResult.Language,
		AudioDuration:     asrResult.Duration,
		Engine:            asrResult.Engine,
		ModelVersion:      asrResult.ModelVersion,
		AverageConfidence: asrResult.AverageConfidence,
		MergeStats:        asrResult.MergeStats,
		Degraded:          degraded,
		DegradationReason: reason,
		Stages: map[string]float64{
			"transcription": asrElapsed,
			"diarization":   diarElapsed,
			"total":         time.Since(start).Seconds(),
		},
		CreatedAt: time.Now().UTC(),
	}

	if diarResult != nil && len(diarResult.Segments) > 0 {
		transcript.Diarization = diarize.BuildSummary(diarResult, diarElapsed)
	}

	if err := o.transcripts.Save(ctx, transcript); err != nil {
		return nil, errs.NewProcessing("persist", err)
	}

	o.metrics.ObserveStage("total", transcript.Stages["total"])

	log.Info().
		Str("recording_id", recordingID).
		Int("segments", len(transcript.Segments)).
		Bool("degraded", transcript.Degraded).
		Float64("total_sec", transcript.Stages["total"]).
		Msg("Recording processed")

	return transcript, nil
}

func (o *Orchestrator) diarizeEnabled() bool {
	return o.cfg.DiarizationEnabled && o.diarizer != nil
}

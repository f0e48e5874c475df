package asr

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/isaevxxi/DocTalk/internal/errs"
)

// Config holds the transcription post-processing knobs.
type Config struct {
	MergeShortPauses    bool
	MergePauseThreshold float64 // max pause in seconds to merge across
	HygieneMinWordProb  float64 // words below this emission probability are dropped
}

// Transcriber runs an ASR backend over a complete audio payload and applies
// hygiene filtering and pause merging to the raw recognizer output.
type Transcriber struct {
	registry *Registry
	cfg      Config
}

func NewTranscriber(registry *Registry, cfg Config) *Transcriber {
	return &Transcriber{registry: registry, cfg: cfg}
}

// Transcribe converts audio to time-aligned, word-level text. Failures from
// the backend surface as ProcessingError; they are not retried here — the
// caller's retry policy decides.
func (t *Transcriber) Transcribe(ctx context.Context, audioData []byte, language string) (*Result, error) {
	if len(audioData) == 0 {
		return nil, errs.NewInvalidInput("audio data is empty")
	}

	start := time.Now()
	log.Debug().Str("language", language).Int("bytes", len(audioData)).Msg("Starting transcription")

	raw, err := t.registry.TranscribeWithFallback(ctx, audioData, language)
	if err != nil {
		return nil, errs.NewProcessing("transcription", err)
	}

	var totalConfidence float64
	segments := make([]Segment, 0, len(raw.Segments))
	for _, seg := range raw.Segments {
		seg.Text = strings.TrimSpace(seg.Text)

		if len(seg.Words) > 0 {
			cleaned, removed := ApplyHygieneFilter(seg.Words, t.cfg.HygieneMinWordProb)
			seg.Hygiene = &HygieneStats{
				OriginalWordCount: len(seg.Words),
				CleanedWordCount:  len(cleaned),
				RemovedWordCount:  len(removed),
				RemovedWords:      removed,
			}
			seg.Words = cleaned
			seg.Text = rebuildText(cleaned)
		}

		totalConfidence += seg.Confidence
		segments = append(segments, seg)
	}

	finalSegments := segments
	var mergeStats *MergeStats
	if t.cfg.MergeShortPauses {
		finalSegments = MergeShortPauses(segments, t.cfg.MergePauseThreshold)
		mergeStats = CalculateMergeStats(len(segments), len(finalSegments))
	}

	texts := make([]string, 0, len(finalSegments))
	for _, seg := range finalSegments {
		if seg.Text != "" {
			texts = append(texts, seg.Text)
		}
	}
	finalText := strings.Join(texts, " ")

	avgConfidence := 0.0
	if len(segments) > 0 {
		avgConfidence = totalConfidence / float64(len(segments))
	}

	result := &Result{
		Text:              finalText,
		Segments:          finalSegments,
		Language:          raw.Language,
		Duration:          raw.Duration,
		ProcessingTime:    time.Since(start).Seconds(),
		AverageConfidence: avgConfidence,
		MergeStats:        mergeStats,
		Engine:            raw.Engine,
		ModelVersion:      raw.ModelVersion,
	}

	log.Info().
		Int("chars", len(finalText)).
		Int("segments", len(finalSegments)).
		Float64("processing_sec", result.ProcessingTime).
		Str("engine", result.Engine).
		Msg("Transcription complete")

	return result, nil
}

// rebuildText concatenates surviving words. Whisper-style word tokens carry
// their own leading spaces, so the pieces are joined without a separator and
// trimmed once at the end.
func rebuildText(words []Word) string {
	var b strings.Builder
	for _, w := range words {
		b.WriteString(w.Word)
	}
	return strings.TrimSpace(b.String())
}

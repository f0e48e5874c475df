// Package pipeline orchestrates the processing flow for one recording:
// fetch, parallel transcription and diarization, speaker assignment and
// transcript persistence.
package pipeline

import (
	"context"
	"time"

	"github.com/isaevxxi/DocTalk/internal/asr"
	"github.com/isaevxxi/DocTalk/internal/diarize"
)

// Transcript statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// EnrichedSegment is a transcription segment with its assigned speaker.
type EnrichedSegment struct {
	asr.Segment
	Speaker string `json:"speaker"`
}

// Transcript is the persisted result of one processed recording. A failed
// record carries Status "failed" and an Error string; all content fields
// stay zero.
type Transcript struct {
	ID                string             `json:"id"`
	RecordingID       string             `json:"recording_id"`
	Status            string             `json:"status"`
	Text              string             `json:"text"`
	Segments          []EnrichedSegment  `json:"segments"`
	Language          string             `json:"language"`
	AudioDuration     float64            `json:"audio_duration"`
	Engine            string             `json:"engine"`
	ModelVersion      string             `json:"model_version"`
	AverageConfidence float64            `json:"average_confidence"`
	MergeStats        *asr.MergeStats    `json:"merge_stats,omitempty"`
	Diarization       *diarize.Summary   `json:"diarization,omitempty"`
	Degraded          bool               `json:"degraded"`
	DegradationReason string             `json:"degradation_reason,omitempty"`
	Stages            map[string]float64 `json:"stages"`
	Error             string             `json:"error,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
}

// ObjectStore reads raw audio payloads by storage key.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// TranscriptStore persists transcripts keyed by recording ID.
type TranscriptStore interface {
	Save(ctx context.Context, t *Transcript) error
	Load(ctx context.Context, recordingID string) (*Transcript, error)
}

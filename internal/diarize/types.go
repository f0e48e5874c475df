// Package diarize partitions audio into speaker-attributed time intervals.
// It wraps an external diarization engine with chunked VAD acceleration,
// timeline reconciliation and neutral speaker labeling.
package diarize

import (
	"fmt"
)

// Segment is one speaker-attributed interval. After remapping, Start and End
// are expressed in the original file's timeline. Speaker is an opaque
// per-run label from the engine, not a persistent identity.
type Segment struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Speaker  string  `json:"speaker"`
	Duration float64 `json:"duration"`
}

// NewSegment validates the interval invariants: start >= 0, end > start.
func NewSegment(start, end float64, speaker string) (Segment, error) {
	if start < 0 {
		return Segment{}, fmt.Errorf("segment start %.3f is negative", start)
	}
	if end <= start {
		return Segment{}, fmt.Errorf("segment end %.3f is not after start %.3f", end, start)
	}
	return Segment{Start: start, End: end, Speaker: speaker, Duration: end - start}, nil
}

// VADStats carries observability data about a VAD-accelerated run.
type VADStats struct {
	VADTimeSec         float64 `json:"vad_time_sec"`
	DiarizationTimeSec float64 `json:"diarization_time_sec"`
	TotalTimeSec       float64 `json:"total_time_sec"`
	SpeechRegions      int     `json:"speech_regions"`
	ChunkFailures      int     `json:"chunk_failures"`
	RawSegments        int     `json:"raw_segments"`
	StitchedSegments   int     `json:"stitched_segments"`
}

// Result is a completed diarization run. SpeakerMapping maps the engine's
// raw labels to neutral SPEAKER_n labels assigned by first appearance.
type Result struct {
	Segments       []Segment         `json:"segments"`
	Speakers       []string          `json:"speakers"`
	SpeakerMapping map[string]string `json:"speaker_mapping"`
	NumSpeakers    int               `json:"num_speakers"`
	Engine         string            `json:"engine"`
	VADStats       *VADStats         `json:"vad_stats,omitempty"`
}

func emptyResult(engine string) *Result {
	return &Result{
		Segments:       []Segment{},
		Speakers:       []string{},
		SpeakerMapping: map[string]string{},
		NumSpeakers:    0,
		Engine:         engine,
	}
}

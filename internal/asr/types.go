// Package asr converts audio to time-aligned, word-level text and applies
// post-recognition hygiene: low-confidence word filtering and pause-based
// segment merging.
package asr

import (
	"context"
)

// Word is a single recognized word with its emission probability.
type Word struct {
	Word        string  `json:"word"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Probability float64 `json:"probability"`
}

// RemovedWord records a word dropped by the hygiene filter, kept for audit.
type RemovedWord struct {
	Word   Word   `json:"word"`
	Reason string `json:"removal_reason"`
}

// HygieneStats counts the outcome of hygiene filtering on one segment.
type HygieneStats struct {
	OriginalWordCount int           `json:"original_word_count"`
	CleanedWordCount  int           `json:"cleaned_word_count"`
	RemovedWordCount  int           `json:"removed_word_count"`
	RemovedWords      []RemovedWord `json:"removed_words,omitempty"`
}

// Segment is one recognized span. Confidence is the model's average
// log-probability for the span; NoSpeechProb its no-speech likelihood.
// Words is empty when the backend has no word-level data, in which case
// Text stands unmodified by hygiene filtering.
type Segment struct {
	Start        float64       `json:"start"`
	End          float64       `json:"end"`
	Text         string        `json:"text"`
	Confidence   float64       `json:"confidence"`
	NoSpeechProb float64       `json:"no_speech_prob"`
	Words        []Word        `json:"words,omitempty"`
	Hygiene      *HygieneStats `json:"hygiene,omitempty"`
	MergedFrom   []int         `json:"merged_segments,omitempty"`
}

// MergeStats summarizes the effect of pause merging on a transcription.
type MergeStats struct {
	OriginalCount  int     `json:"original_count"`
	MergedCount    int     `json:"merged_count"`
	ReductionCount int     `json:"reduction_count"`
	ReductionPct   float64 `json:"reduction_pct"`
}

// Result is a completed transcription.
type Result struct {
	Text              string      `json:"text"`
	Segments          []Segment   `json:"segments"`
	Language          string      `json:"language"`
	Duration          float64     `json:"duration"`
	ProcessingTime    float64     `json:"processing_time"`
	AverageConfidence float64     `json:"average_confidence"`
	MergeStats        *MergeStats `json:"merge_stats,omitempty"`
	Engine            string      `json:"engine"`
	ModelVersion      string      `json:"model_version"`
}

// Backend runs a speech-to-text model over a complete audio payload.
// Backends return raw, unfiltered segments; the Transcriber owns hygiene
// filtering and pause merging.
type Backend interface {
	Transcribe(ctx context.Context, audioData []byte, language string) (*Result, error)
	Name() string
	ModelVersion() string
}

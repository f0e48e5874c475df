package diarize

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// CompressTimeline packs speaker segments into a compact timeline string:
// "start:speaker,start:speaker,...". Start times keep two decimal places and
// SPEAKER_0n labels shorten to Sn. End timestamps are dropped; they are
// reconstructed from the next entry's start on decompression, which makes
// the format lossy for the final segment's end. The trade buys roughly 70%
// storage reduction.
func CompressTimeline(segments []Segment) string {
	if len(segments) == 0 {
		return ""
	}

	sorted := make([]Segment, len(segments))
	copy(sorted, segments)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	parts := make([]string, 0, len(sorted))
	for _, seg := range sorted {
		parts = append(parts, fmt.Sprintf("%.2f:%s", seg.Start, shortenLabel(seg.Speaker)))
	}
	return strings.Join(parts, ",")
}

// TimelineEntry is one decompressed timeline point. EndKnown is false for
// the last entry, whose end timestamp is not represented in the format.
type TimelineEntry struct {
	Start    float64 `json:"start"`
	Speaker  string  `json:"speaker"`
	End      float64 `json:"end,omitempty"`
	EndKnown bool    `json:"-"`
}

// DecompressTimeline parses a compressed timeline back into ordered entries.
// Each entry's end is reconstructed as the next entry's start; the last
// entry has no end. An optional relabeling map is applied after expansion.
func DecompressTimeline(timeline string, speakerMapping map[string]string) ([]TimelineEntry, error) {
	if timeline == "" {
		return nil, nil
	}

	parts := strings.Split(timeline, ",")
	entries := make([]TimelineEntry, 0, len(parts))

	for _, part := range parts {
		startStr, label, found := strings.Cut(part, ":")
		if !found {
			return nil, fmt.Errorf("malformed timeline entry %q", part)
		}
		start, err := strconv.ParseFloat(startStr, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed timeline start %q: %w", startStr, err)
		}

		speaker := expandLabel(label)
		if speakerMapping != nil {
			if mapped, ok := speakerMapping[speaker]; ok {
				speaker = mapped
			}
		}
		entries = append(entries, TimelineEntry{Start: start, Speaker: speaker})
	}

	for i := range entries[:len(entries)-1] {
		entries[i].End = entries[i+1].Start
		entries[i].EndKnown = true
	}
	return entries, nil
}

// shortenLabel turns SPEAKER_00 into S0, SPEAKER_01 into S1. Unknown label
// shapes pass through unchanged.
func shortenLabel(speaker string) string {
	num, ok := strings.CutPrefix(speaker, "SPEAKER_")
	if !ok {
		return speaker
	}
	trimmed := strings.TrimLeft(num, "0")
	if trimmed == "" {
		trimmed = "0"
	}
	return "S" + trimmed
}

// expandLabel turns Sn back into SPEAKER_n.
func expandLabel(label string) string {
	if num, ok := strings.CutPrefix(label, "S"); ok && num != "" {
		return "SPEAKER_" + num
	}
	return label
}

// Summary is the compact, write-once record of a completed diarization run
// persisted alongside the transcript.
type Summary struct {
	NumSpeakers        int     `json:"num_speakers"`
	DiarizationTimeSec float64 `json:"diarization_time_sec"`
	Engine             string  `json:"diarization_engine"`
	TotalSegments      int     `json:"total_segments"`
	SpeakerTimeline    string  `json:"speaker_timeline"`
}

// BuildSummary creates the storage summary for a diarization result.
func BuildSummary(result *Result, elapsedSec float64) *Summary {
	return &Summary{
		NumSpeakers:        result.NumSpeakers,
		DiarizationTimeSec: round2(elapsedSec),
		Engine:             result.Engine,
		TotalSegments:      len(result.Segments),
		SpeakerTimeline:    CompressTimeline(result.Segments),
	}
}

// ExpandSummary reconstructs timeline entries from a stored summary.
func ExpandSummary(summary *Summary, speakerMapping map[string]string) ([]TimelineEntry, error) {
	if summary == nil {
		return nil, nil
	}
	return DecompressTimeline(summary.SpeakerTimeline, speakerMapping)
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

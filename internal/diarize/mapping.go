package diarize

import (
	"fmt"
	"sort"
)

// UnknownSpeaker is the label used when no diarization segment overlaps a
// transcript segment, or when diarization was skipped entirely.
const UnknownSpeaker = "UNKNOWN"

// NeutralMapping maps each raw engine label to a neutral SPEAKER_n label,
// assigned in order of first appearance in the timeline.
//
// Automatic role inference (doctor vs patient) is deliberately not
// attempted: speaking-time heuristics fail across encounter types
// (dictation, three-party visits) and a wrong label is worse than a neutral
// one. Role assignment belongs to post-processing or the UI.
func NeutralMapping(segments []Segment) map[string]string {
	if len(segments) == 0 {
		return map[string]string{}
	}

	firstSeen := make(map[string]float64)
	for _, seg := range segments {
		if start, ok := firstSeen[seg.Speaker]; !ok || seg.Start < start {
			firstSeen[seg.Speaker] = seg.Start
		}
	}

	labels := make([]string, 0, len(firstSeen))
	for label := range firstSeen {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if firstSeen[labels[i]] != firstSeen[labels[j]] {
			return firstSeen[labels[i]] < firstSeen[labels[j]]
		}
		return labels[i] < labels[j]
	})

	mapping := make(map[string]string, len(labels))
	for idx, label := range labels {
		mapping[label] = fmt.Sprintf("SPEAKER_%d", idx)
	}
	return mapping
}

package pipeline

import (
	"math"

	"github.com/isaevxxi/DocTalk/internal/asr"
	"github.com/isaevxxi/DocTalk/internal/diarize"
)

// AssignSpeakers labels each transcription segment with the speaker whose
// diarization interval overlaps it the most. Ties keep the earlier interval's
// speaker. A segment with no overlap at all, and every segment when diar is
// nil or empty, gets the UNKNOWN label.
func AssignSpeakers(segments []asr.Segment, diar *diarize.Result) []EnrichedSegment {
	enriched := make([]EnrichedSegment, 0, len(segments))
	for _, seg := range segments {
		speaker := diarize.UnknownSpeaker
		if diar != nil {
			best := 0.0
			for _, ds := range diar.Segments {
				overlap := math.Min(seg.End, ds.End) - math.Max(seg.Start, ds.Start)
				if overlap > best {
					best = overlap
					speaker = ds.Speaker
				}
			}
			if neutral, ok := diar.SpeakerMapping[speaker]; ok {
				speaker = neutral
			}
		}
		enriched = append(enriched, EnrichedSegment{Segment: seg, Speaker: speaker})
	}
	return enriched
}

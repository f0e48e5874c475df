package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaevxxi/DocTalk/internal/asr"
	"github.com/isaevxxi/DocTalk/internal/diarize"
)

func diarSeg(start, end float64, speaker string) diarize.Segment {
	return diarize.Segment{Start: start, End: end, Speaker: speaker, Duration: end - start}
}

func TestAssignSpeakersMaxOverlap(t *testing.T) {
	diar := &diarize.Result{
		Segments: []diarize.Segment{
			diarSeg(0.0, 5.0, "SPEAKER_00"),
			diarSeg(5.0, 10.0, "SPEAKER_01"),
		},
		SpeakerMapping: map[string]string{
			"SPEAKER_00": "SPEAKER_0",
			"SPEAKER_01": "SPEAKER_1",
		},
	}

	segments := []asr.Segment{
		{Start: 1.0, End: 4.0, Text: "first"},  // fully inside SPEAKER_00
		{Start: 4.0, End: 9.0, Text: "second"}, // 1s with 00, 4s with 01
		{Start: 9.5, End: 10.0, Text: "third"}, // inside SPEAKER_01
	}

	enriched := AssignSpeakers(segments, diar)

	require.Len(t, enriched, 3)
	assert.Equal(t, "SPEAKER_0", enriched[0].Speaker)
	assert.Equal(t, "SPEAKER_1", enriched[1].Speaker)
	assert.Equal(t, "SPEAKER_1", enriched[2].Speaker)
}

func TestAssignSpeakersNoOverlapIsUnknown(t *testing.T) {
	diar := &diarize.Result{
		Segments:       []diarize.Segment{diarSeg(0.0, 2.0, "SPEAKER_00")},
		SpeakerMapping: map[string]string{"SPEAKER_00": "SPEAKER_0"},
	}

	enriched := AssignSpeakers([]asr.Segment{{Start: 5.0, End: 6.0, Text: "late"}}, diar)

	require.Len(t, enriched, 1)
	assert.Equal(t, diarize.UnknownSpeaker, enriched[0].Speaker)
}

func TestAssignSpeakersTieKeepsEarlierInterval(t *testing.T) {
	diar := &diarize.Result{
		Segments: []diarize.Segment{
			diarSeg(0.0, 1.0, "SPEAKER_00"),
			diarSeg(1.0, 2.0, "SPEAKER_01"),
		},
		SpeakerMapping: map[string]string{
			"SPEAKER_00": "SPEAKER_0",
			"SPEAKER_01": "SPEAKER_1",
		},
	}

	// Equal 0.5s overlap with both intervals.
	enriched := AssignSpeakers([]asr.Segment{{Start: 0.5, End: 1.5}}, diar)

	assert.Equal(t, "SPEAKER_0", enriched[0].Speaker)
}

func TestAssignSpeakersNilDiarization(t *testing.T) {
	enriched := AssignSpeakers([]asr.Segment{
		{Start: 0.0, End: 1.0, Text: "a"},
		{Start: 1.0, End: 2.0, Text: "b"},
	}, nil)

	require.Len(t, enriched, 2)
	for _, seg := range enriched {
		assert.Equal(t, diarize.UnknownSpeaker, seg.Speaker)
	}
}

func TestAssignSpeakersPreservesSegmentData(t *testing.T) {
	diar := &diarize.Result{
		Segments:       []diarize.Segment{diarSeg(0.0, 2.0, "SPEAKER_00")},
		SpeakerMapping: map[string]string{"SPEAKER_00": "SPEAKER_0"},
	}
	in := asr.Segment{Start: 0.5, End: 1.5, Text: "hello", Confidence: -0.25}

	enriched := AssignSpeakers([]asr.Segment{in}, diar)

	require.Len(t, enriched, 1)
	assert.Equal(t, in, enriched[0].Segment)
}

package diarize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressTimeline(t *testing.T) {
	segments := []Segment{
		seg(0.0, 5.25, "SPEAKER_00"),
		seg(5.25, 12.5, "SPEAKER_01"),
		seg(12.5, 20.0, "SPEAKER_00"),
	}

	assert.Equal(t, "0.00:S0,5.25:S1,12.50:S0", CompressTimeline(segments))
}

func TestCompressTimelineSortsByStart(t *testing.T) {
	segments := []Segment{
		seg(10.0, 12.0, "SPEAKER_01"),
		seg(0.0, 10.0, "SPEAKER_00"),
	}

	assert.Equal(t, "0.00:S0,10.00:S1", CompressTimeline(segments))
}

func TestCompressTimelineEmpty(t *testing.T) {
	assert.Equal(t, "", CompressTimeline(nil))
}

func TestDecompressTimeline(t *testing.T) {
	entries, err := DecompressTimeline("0.00:S0,5.25:S1,12.50:S0", nil)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, TimelineEntry{Start: 0, Speaker: "SPEAKER_0", End: 5.25, EndKnown: true}, entries[0])
	assert.Equal(t, TimelineEntry{Start: 5.25, Speaker: "SPEAKER_1", End: 12.5, EndKnown: true}, entries[1])

	// The last entry's end is not represented in the format.
	assert.Equal(t, "SPEAKER_0", entries[2].Speaker)
	assert.False(t, entries[2].EndKnown)
}

func TestDecompressTimelineWithMapping(t *testing.T) {
	entries, err := DecompressTimeline("0.00:S0,4.00:S1", map[string]string{
		"SPEAKER_0": "Doctor",
		"SPEAKER_1": "Patient",
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Doctor", entries[0].Speaker)
	assert.Equal(t, "Patient", entries[1].Speaker)
}

func TestDecompressTimelineMalformed(t *testing.T) {
	_, err := DecompressTimeline("not-a-timeline", nil)
	assert.Error(t, err)

	_, err = DecompressTimeline("abc:S0", nil)
	assert.Error(t, err)
}

func TestDecompressTimelineEmpty(t *testing.T) {
	entries, err := DecompressTimeline("", nil)
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestLabelRoundTrip(t *testing.T) {
	cases := map[string]string{
		"SPEAKER_00": "S0",
		"SPEAKER_01": "S1",
		"SPEAKER_10": "S10",
		"UNKNOWN":    "UNKNOWN",
	}
	for raw, short := range cases {
		assert.Equal(t, short, shortenLabel(raw))
	}

	assert.Equal(t, "SPEAKER_0", expandLabel("S0"))
	assert.Equal(t, "SPEAKER_42", expandLabel("S42"))
	assert.Equal(t, "UNKNOWN", expandLabel("UNKNOWN"))
}

func TestBuildSummary(t *testing.T) {
	result := &Result{
		Segments: []Segment{
			seg(0.0, 5.0, "SPEAKER_00"),
			seg(5.0, 9.0, "SPEAKER_01"),
		},
		NumSpeakers: 2,
		Engine:      "pyannote",
	}

	summary := BuildSummary(result, 12.3456)

	assert.Equal(t, 2, summary.NumSpeakers)
	assert.Equal(t, 12.35, summary.DiarizationTimeSec)
	assert.Equal(t, "pyannote", summary.Engine)
	assert.Equal(t, 2, summary.TotalSegments)
	assert.Equal(t, "0.00:S0,5.00:S1", summary.SpeakerTimeline)

	entries, err := ExpandSummary(summary, nil)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.InDelta(t, 5.0, entries[0].End, 1e-9)
}

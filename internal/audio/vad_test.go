package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaevxxi/DocTalk/internal/errs"
)

// scriptClassifier returns a pre-scripted probability per frame, in call
// order. Frames beyond the script are silence.
type scriptClassifier struct {
	probs []float64
	calls int
}

func (s *scriptClassifier) SpeechProbability(pcm []int16, sampleRate int) float64 {
	if s.calls >= len(s.probs) {
		s.calls++
		return 0
	}
	p := s.probs[s.calls]
	s.calls++
	return p
}

func (s *scriptClassifier) Close() error { return nil }

func testConfig() DetectorConfig {
	return DetectorConfig{
		Threshold:    0.5,
		MinSpeechMS:  200,
		MinSilenceMS: 300,
		PadMS:        180,
		FrameMS:      30,
	}
}

// script builds a probability sequence of speechFrames speech frames
// followed by silence.
func script(groups ...[2]int) []float64 {
	var probs []float64
	for _, g := range groups {
		p := 0.0
		if g[0] == 1 {
			p = 0.9
		}
		for i := 0; i < g[1]; i++ {
			probs = append(probs, p)
		}
	}
	return probs
}

func bufferOfFrames(frames int) *Buffer {
	return &Buffer{PCM: make([]int16, frames*480), SampleRate: TargetSampleRate}
}

func TestDetectSpeechSingleRegionPadded(t *testing.T) {
	// 10 speech frames (0.3s) then silence for the rest of 2s of audio.
	classifier := &scriptClassifier{probs: script([2]int{1, 10})}
	d := NewDetector(classifier, testConfig())

	regions, err := d.DetectSpeech(bufferOfFrames(67))
	require.NoError(t, err)
	require.Len(t, regions, 1)

	// Raw region [0, 0.3] padded by 0.18 and clamped at zero.
	assert.InDelta(t, 0.0, regions[0].Start, 1e-9)
	assert.InDelta(t, 0.48, regions[0].End, 1e-9)
}

func TestDetectSpeechDropsShortBursts(t *testing.T) {
	// 6 speech frames is 0.18s, below the 200ms minimum.
	classifier := &scriptClassifier{probs: script([2]int{1, 6})}
	d := NewDetector(classifier, testConfig())

	regions, err := d.DetectSpeech(bufferOfFrames(40))
	require.NoError(t, err)
	assert.Empty(t, regions)
}

func TestDetectSpeechBridgesShortSilence(t *testing.T) {
	// A 0.3s gap does not exceed the 300ms minimum silence, so the two
	// speech bursts stay one region.
	classifier := &scriptClassifier{probs: script([2]int{1, 10}, [2]int{0, 10}, [2]int{1, 10})}
	d := NewDetector(classifier, testConfig())

	regions, err := d.DetectSpeech(bufferOfFrames(30))
	require.NoError(t, err)
	require.Len(t, regions, 1)

	assert.InDelta(t, 0.0, regions[0].Start, 1e-9)
	assert.InDelta(t, 0.9, regions[0].End, 1e-9) // clamped to the buffer end
}

func TestDetectSpeechSplitsOnLongSilence(t *testing.T) {
	// A 0.6s gap exceeds the minimum silence and the padding cannot
	// bridge it, so two regions come out.
	classifier := &scriptClassifier{probs: script([2]int{1, 10}, [2]int{0, 20}, [2]int{1, 10})}
	d := NewDetector(classifier, testConfig())

	regions, err := d.DetectSpeech(bufferOfFrames(40))
	require.NoError(t, err)
	require.Len(t, regions, 2)

	assert.InDelta(t, 0.0, regions[0].Start, 1e-9)
	assert.InDelta(t, 0.48, regions[0].End, 1e-9)
	assert.InDelta(t, 0.72, regions[1].Start, 1e-9)
	assert.InDelta(t, 1.2, regions[1].End, 1e-9)
}

func TestDetectSpeechMergesOverlappingPadding(t *testing.T) {
	// A 0.36s gap splits the regions at the VAD level, but 0.18s padding
	// on both sides makes them touch, so they merge back.
	classifier := &scriptClassifier{probs: script([2]int{1, 10}, [2]int{0, 12}, [2]int{1, 10})}
	d := NewDetector(classifier, testConfig())

	regions, err := d.DetectSpeech(bufferOfFrames(40))
	require.NoError(t, err)
	require.Len(t, regions, 1)

	assert.InDelta(t, 0.0, regions[0].Start, 1e-9)
	assert.InDelta(t, 1.14, regions[0].End, 1e-9)
}

func TestDetectSpeechThresholdBoundary(t *testing.T) {
	// Probability exactly at the threshold counts as speech.
	probs := make([]float64, 10)
	for i := range probs {
		probs[i] = 0.5
	}
	classifier := &scriptClassifier{probs: probs}
	d := NewDetector(classifier, testConfig())

	regions, err := d.DetectSpeech(bufferOfFrames(20))
	require.NoError(t, err)
	assert.Len(t, regions, 1)
}

func TestDetectSpeechEmptyInput(t *testing.T) {
	d := NewDetector(&scriptClassifier{}, testConfig())

	_, err := d.DetectSpeech(&Buffer{SampleRate: TargetSampleRate})
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))

	_, err = d.DetectSpeech(nil)
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestDetectSpeechAllSilence(t *testing.T) {
	classifier := &scriptClassifier{}
	d := NewDetector(classifier, testConfig())

	regions, err := d.DetectSpeech(bufferOfFrames(50))
	require.NoError(t, err)
	assert.Empty(t, regions)
}

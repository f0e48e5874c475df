package audio

// TargetSampleRate is the fixed analysis rate. All decoded audio is
// down-mixed to mono and resampled to this rate before any model sees it.
const TargetSampleRate = 16000

// Buffer holds decoded PCM audio at TargetSampleRate, mono. A Buffer is
// immutable once loaded and owned by the pipeline invocation that loaded it.
type Buffer struct {
	PCM        []int16
	SampleRate int
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b.SampleRate == 0 {
		return 0
	}
	return float64(len(b.PCM)) / float64(b.SampleRate)
}

// Slice returns the samples between startSec and endSec, clamped to the
// buffer bounds. The returned buffer shares the underlying sample array.
func (b *Buffer) Slice(startSec, endSec float64) *Buffer {
	start := int(startSec * float64(b.SampleRate))
	end := int(endSec * float64(b.SampleRate))
	if start < 0 {
		start = 0
	}
	if end > len(b.PCM) {
		end = len(b.PCM)
	}
	if start >= end {
		return &Buffer{PCM: nil, SampleRate: b.SampleRate}
	}
	return &Buffer{PCM: b.PCM[start:end], SampleRate: b.SampleRate}
}

// SpeechRegion is a detected span of speech in seconds from the start of the
// recording. Regions produced by the detector are ordered by start time and
// non-overlapping.
type SpeechRegion struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the region length in seconds.
func (r SpeechRegion) Duration() float64 {
	return r.End - r.Start
}

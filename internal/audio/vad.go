package audio

import (
	"math"

	"github.com/maxhawkins/go-webrtcvad"
	"github.com/rs/zerolog/log"

	"github.com/isaevxxi/DocTalk/internal/errs"
)

// FrameClassifier scores a single fixed-size PCM frame with a speech
// probability in [0, 1].
type FrameClassifier interface {
	SpeechProbability(pcm []int16, sampleRate int) float64
	Close() error
}

// WebRTCClassifier combines the WebRTC VAD's hard speech/non-speech decision
// with an RMS-derived soft score, so the detector's probability threshold
// remains meaningful.
type WebRTCClassifier struct {
	vad          *webrtcvad.VAD
	rmsReference float64
}

func NewWebRTCClassifier() (*WebRTCClassifier, error) {
	vad, err := webrtcvad.New()
	if err != nil {
		return nil, errs.NewModelInit("webrtc vad", err)
	}

	// Set aggressiveness (0-3, where 3 is most aggressive)
	vad.SetMode(2)

	return &WebRTCClassifier{
		vad:          vad,
		rmsReference: 500.0, // RMS that maps to probability 0.5
	}, nil
}

// SpeechProbability returns rms/(rms+ref), gated to zero when the WebRTC VAD
// classifies the frame as non-speech. Frames too short for the VAD (under
// 10ms at 16kHz) are scored by RMS alone.
func (c *WebRTCClassifier) SpeechProbability(pcm []int16, sampleRate int) float64 {
	if len(pcm) == 0 {
		return 0
	}

	rms := frameRMS(pcm)
	prob := rms / (rms + c.rmsReference)

	frameBytes := int16SliceToBytes(pcm)
	if len(frameBytes) < 320 { // 10ms at 16kHz = 320 bytes
		return prob
	}

	isSpeech, err := c.vad.Process(sampleRate, frameBytes)
	if err != nil {
		// Fall back to the RMS score on unsupported frame sizes
		return prob
	}
	if !isSpeech {
		return 0
	}
	return prob
}

func (c *WebRTCClassifier) Close() error {
	// webrtcvad has no explicit Close; it frees its C state via a finalizer.
	return nil
}

func frameRMS(pcm []int16) float64 {
	var sum float64
	for _, sample := range pcm {
		sum += float64(sample) * float64(sample)
	}
	return math.Sqrt(sum / float64(len(pcm)))
}

func int16SliceToBytes(samples []int16) []byte {
	bytes := make([]byte, len(samples)*2)
	for i, sample := range samples {
		bytes[i*2] = byte(sample)
		bytes[i*2+1] = byte(sample >> 8)
	}
	return bytes
}

// DetectorConfig holds the speech-activity detection tuning knobs.
type DetectorConfig struct {
	Threshold    float64 // speech probability threshold, frames at or above count as speech
	MinSpeechMS  int     // regions shorter than this (before padding) are dropped
	MinSilenceMS int     // a silence gap must exceed this to end a region
	PadMS        int     // symmetric padding added around accepted regions
	FrameMS      int     // analysis frame size (10, 20 or 30)
}

// Detector classifies audio into speech and silence regions at fixed-size
// frames. It is the foundation for all chunking decisions downstream.
type Detector struct {
	classifier FrameClassifier
	cfg        DetectorConfig
}

func NewDetector(classifier FrameClassifier, cfg DetectorConfig) *Detector {
	if cfg.FrameMS == 0 {
		cfg.FrameMS = 30
	}
	return &Detector{classifier: classifier, cfg: cfg}
}

// DetectSpeech returns the ordered, non-overlapping speech regions of the
// buffer. A region is accepted only when its un-padded duration exceeds
// MinSpeechMS; accepted regions are padded by PadMS on both sides and
// clamped to the buffer bounds.
func (d *Detector) DetectSpeech(buf *Buffer) ([]SpeechRegion, error) {
	if buf == nil || len(buf.PCM) == 0 {
		return nil, errs.NewInvalidInput("audio data is empty")
	}

	frameSamples := buf.SampleRate * d.cfg.FrameMS / 1000
	frameSec := float64(d.cfg.FrameMS) / 1000.0
	minSilenceSec := float64(d.cfg.MinSilenceMS) / 1000.0
	minSpeechSec := float64(d.cfg.MinSpeechMS) / 1000.0
	padSec := float64(d.cfg.PadMS) / 1000.0
	totalDuration := buf.Duration()

	var (
		regions     []SpeechRegion
		inRegion    bool
		regionStart float64
		speechEnd   float64
		silenceSec  float64
	)

	flush := func() {
		if inRegion && speechEnd-regionStart > minSpeechSec {
			regions = append(regions, SpeechRegion{Start: regionStart, End: speechEnd})
		}
		inRegion = false
	}

	for offset := 0; offset < len(buf.PCM); offset += frameSamples {
		end := offset + frameSamples
		if end > len(buf.PCM) {
			end = len(buf.PCM)
		}
		frame := buf.PCM[offset:end]
		frameStart := float64(offset) / float64(buf.SampleRate)
		frameEnd := float64(end) / float64(buf.SampleRate)

		if d.classifier.SpeechProbability(frame, buf.SampleRate) >= d.cfg.Threshold {
			if !inRegion {
				inRegion = true
				regionStart = frameStart
			}
			speechEnd = frameEnd
			silenceSec = 0
			continue
		}

		if inRegion {
			silenceSec += frameSec
			if silenceSec > minSilenceSec {
				flush()
				silenceSec = 0
			}
		}
	}
	flush()

	// Pad, clamp and re-merge any regions the padding made overlap.
	padded := make([]SpeechRegion, 0, len(regions))
	for _, r := range regions {
		start := math.Max(0, r.Start-padSec)
		end := math.Min(totalDuration, r.End+padSec)
		if n := len(padded); n > 0 && start <= padded[n-1].End {
			padded[n-1].End = end
			continue
		}
		padded = append(padded, SpeechRegion{Start: start, End: end})
	}

	var speechSec float64
	for _, r := range padded {
		speechSec += r.Duration()
	}
	ratio := 0.0
	if totalDuration > 0 {
		ratio = speechSec / totalDuration
	}
	log.Info().
		Int("regions", len(padded)).
		Float64("speech_sec", speechSec).
		Float64("total_sec", totalDuration).
		Float64("speech_ratio", ratio).
		Msg("VAD complete")

	return padded, nil
}

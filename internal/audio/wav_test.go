package audio

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaevxxi/DocTalk/internal/errs"
)

// buildWAV constructs a PCM-16 WAV payload with arbitrary channel count and
// rate, for exercising the decode paths EncodeWAV cannot produce.
func buildWAV(t *testing.T, samples []int16, channels, sampleRate int) []byte {
	t.Helper()

	b := new(bytes.Buffer)
	b.WriteString("RIFF")
	binary.Write(b, binary.LittleEndian, uint32(36+len(samples)*2))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	binary.Write(b, binary.LittleEndian, uint32(16))
	binary.Write(b, binary.LittleEndian, uint16(1))
	binary.Write(b, binary.LittleEndian, uint16(channels))
	binary.Write(b, binary.LittleEndian, uint32(sampleRate))
	binary.Write(b, binary.LittleEndian, uint32(sampleRate*channels*2))
	binary.Write(b, binary.LittleEndian, uint16(channels*2))
	binary.Write(b, binary.LittleEndian, uint16(16))
	b.WriteString("data")
	binary.Write(b, binary.LittleEndian, uint32(len(samples)*2))
	for _, s := range samples {
		binary.Write(b, binary.LittleEndian, s)
	}
	return b.Bytes()
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	original := &Buffer{
		PCM:        []int16{0, 1000, -1000, 32767, -32768, 42},
		SampleRate: TargetSampleRate,
	}

	decoded, err := Decode(EncodeWAV(original))
	require.NoError(t, err)

	assert.Equal(t, original.PCM, decoded.PCM)
	assert.Equal(t, TargetSampleRate, decoded.SampleRate)
}

func TestDecodeDownmixesStereo(t *testing.T) {
	// Interleaved L/R frames; mono output is the per-frame average.
	stereo := []int16{100, 300, -100, -300, 1000, 2000}
	data := buildWAV(t, stereo, 2, TargetSampleRate)

	buf, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, []int16{200, -200, 1500}, buf.PCM)
}

func TestDecodeResamplesTo16k(t *testing.T) {
	samples := make([]int16, 8000)
	for i := range samples {
		samples[i] = int16(i % 100)
	}
	data := buildWAV(t, samples, 1, 8000)

	buf, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, TargetSampleRate, buf.SampleRate)
	// 1 second of 8kHz audio becomes 1 second of 16kHz audio.
	assert.Equal(t, 16000, len(buf.PCM))
	assert.InDelta(t, 1.0, buf.Duration(), 1e-9)
}

func TestDecodeSkipsUnknownChunks(t *testing.T) {
	data := buildWAV(t, []int16{1, 2, 3}, 1, TargetSampleRate)

	// Splice a LIST chunk between fmt and data.
	list := append([]byte("LIST"), 0x04, 0x00, 0x00, 0x00, 'I', 'N', 'F', 'O')
	spliced := append([]byte{}, data[:36]...)
	spliced = append(spliced, list...)
	spliced = append(spliced, data[36:]...)

	buf, err := Decode(spliced)
	require.NoError(t, err)
	assert.Equal(t, []int16{1, 2, 3}, buf.PCM)
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	cases := map[string][]byte{
		"empty":        nil,
		"too short":    []byte("RIFF"),
		"not a wav":    bytes.Repeat([]byte{0xAB}, 64),
		"missing data": append([]byte("RIFF\x00\x00\x00\x00WAVE"), make([]byte, 40)...),
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(data)
			require.Error(t, err)
			assert.True(t, errs.IsInvalidInput(err), "expected invalid input error, got %v", err)
		})
	}
}

func TestDecodeRejectsNonPCMFormat(t *testing.T) {
	data := buildWAV(t, []int16{1, 2}, 1, TargetSampleRate)
	// Overwrite the audio format field with IEEE float.
	binary.LittleEndian.PutUint16(data[20:22], 3)

	_, err := Decode(data)
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestBufferSlice(t *testing.T) {
	buf := &Buffer{PCM: make([]int16, TargetSampleRate*2), SampleRate: TargetSampleRate}

	t.Run("interior slice", func(t *testing.T) {
		s := buf.Slice(0.5, 1.5)
		assert.InDelta(t, 1.0, s.Duration(), 1e-9)
	})

	t.Run("bounds are clamped", func(t *testing.T) {
		s := buf.Slice(-1.0, 99.0)
		assert.Equal(t, len(buf.PCM), len(s.PCM))
	})

	t.Run("inverted range is empty", func(t *testing.T) {
		s := buf.Slice(1.5, 0.5)
		assert.Empty(t, s.PCM)
	})
}

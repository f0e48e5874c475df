package audio

import (
	"bytes"
	"encoding/binary"

	"github.com/isaevxxi/DocTalk/internal/errs"
)

// Decode parses a 16-bit PCM WAV payload, down-mixes to mono and resamples
// to TargetSampleRate. The raw uploaded bytes are decoded exactly once per
// pipeline invocation; every stage works from the returned Buffer.
func Decode(data []byte) (*Buffer, error) {
	if len(data) == 0 {
		return nil, errs.NewInvalidInput("audio data is empty")
	}
	if len(data) < 44 {
		return nil, errs.NewInvalidInput("audio data too short for a WAV header (%d bytes)", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, errs.NewInvalidInput("not a RIFF/WAVE payload")
	}

	var (
		sampleRate int
		channels   int
		bitDepth   int
		pcmData    []byte
		haveFmt    bool
	)

	// Walk the chunk list. Only "fmt " and "data" matter; everything else
	// (LIST, fact, ...) is skipped.
	pos := 12
	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+chunkSize > len(data) {
			chunkSize = len(data) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, errs.NewInvalidInput("fmt chunk too short (%d bytes)", chunkSize)
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return nil, errs.NewInvalidInput("unsupported WAV format %d (only PCM is supported)", format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitDepth = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true
		case "data":
			pcmData = data[body : body+chunkSize]
		}

		// Chunks are word-aligned.
		pos = body + chunkSize
		if chunkSize%2 == 1 {
			pos++
		}
	}

	if !haveFmt || pcmData == nil {
		return nil, errs.NewInvalidInput("WAV payload is missing fmt or data chunk")
	}
	if bitDepth != 16 {
		return nil, errs.NewInvalidInput("unsupported bit depth %d (only 16-bit PCM is supported)", bitDepth)
	}
	if channels < 1 || sampleRate <= 0 {
		return nil, errs.NewInvalidInput("invalid WAV header: channels=%d rate=%d", channels, sampleRate)
	}
	if len(pcmData) < 2 {
		return nil, errs.NewInvalidInput("WAV data chunk contains no samples")
	}

	// Interleaved int16 frames, averaged down to mono.
	frames := len(pcmData) / 2 / channels
	mono := make([]int16, frames)
	for i := 0; i < frames; i++ {
		var sum int
		for ch := 0; ch < channels; ch++ {
			off := (i*channels + ch) * 2
			sum += int(int16(binary.LittleEndian.Uint16(pcmData[off : off+2])))
		}
		mono[i] = int16(sum / channels)
	}

	if sampleRate != TargetSampleRate {
		mono = resample(mono, sampleRate, TargetSampleRate)
	}

	return &Buffer{PCM: mono, SampleRate: TargetSampleRate}, nil
}

// resample converts mono PCM between rates with linear interpolation. The
// quality is sufficient for VAD and ASR front-ends, which are trained on
// far worse channel conditions than interpolation error.
func resample(pcm []int16, from, to int) []int16 {
	if from == to || len(pcm) == 0 {
		return pcm
	}
	outLen := int(float64(len(pcm)) * float64(to) / float64(from))
	if outLen == 0 {
		return nil
	}
	out := make([]int16, outLen)
	ratio := float64(from) / float64(to)
	for i := range out {
		srcPos := float64(i) * ratio
		idx := int(srcPos)
		if idx >= len(pcm)-1 {
			out[i] = pcm[len(pcm)-1]
			continue
		}
		frac := srcPos - float64(idx)
		out[i] = int16(float64(pcm[idx])*(1-frac) + float64(pcm[idx+1])*frac)
	}
	return out
}

// EncodeWAV serializes a buffer as a 16-bit PCM mono WAV payload, the format
// the diarization engine and remote ASR backends consume.
func EncodeWAV(buf *Buffer) []byte {
	b := new(bytes.Buffer)

	b.WriteString("RIFF")
	chunkSizePos := b.Len()
	binary.Write(b, binary.LittleEndian, uint32(0))
	b.WriteString("WAVE")

	b.WriteString("fmt ")
	binary.Write(b, binary.LittleEndian, uint32(16))
	binary.Write(b, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(b, binary.LittleEndian, uint16(1)) // mono
	binary.Write(b, binary.LittleEndian, uint32(buf.SampleRate))
	binary.Write(b, binary.LittleEndian, uint32(buf.SampleRate*2)) // byte rate
	binary.Write(b, binary.LittleEndian, uint16(2))                // block align
	binary.Write(b, binary.LittleEndian, uint16(16))               // bits per sample

	b.WriteString("data")
	binary.Write(b, binary.LittleEndian, uint32(len(buf.PCM)*2))
	for _, sample := range buf.PCM {
		binary.Write(b, binary.LittleEndian, sample)
	}

	wavData := b.Bytes()
	binary.LittleEndian.PutUint32(wavData[chunkSizePos:chunkSizePos+4], uint32(len(wavData)-8))

	return wavData
}

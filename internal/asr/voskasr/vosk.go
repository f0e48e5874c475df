// Package voskasr implements the asr.Backend interface with a local Vosk
// model. It is the offline alternative to the remote whisper backend: no
// network dependency, at the cost of coarser confidence data (per-word
// recognizer confidence instead of log-probabilities).
package voskasr

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	vosk "github.com/alphacep/vosk-api/go"
	"github.com/rs/zerolog/log"

	"github.com/isaevxxi/DocTalk/internal/asr"
	"github.com/isaevxxi/DocTalk/internal/audio"
	"github.com/isaevxxi/DocTalk/internal/errs"
)

// acceptChunkBytes is the PCM chunk size fed to the recognizer per call.
const acceptChunkBytes = 8000 // 250ms at 16kHz mono

type VoskBackend struct {
	model     *vosk.VoskModel
	modelPath string

	// The recognizer is created per call; the model is shared and
	// read-only, but recognizer construction is serialized to keep memory
	// spikes bounded on CPU-only hosts.
	mu sync.Mutex
}

func NewVoskBackend(modelPath string) (*VoskBackend, error) {
	log.Info().Str("model_path", modelPath).Msg("Loading Vosk model")

	model, err := vosk.NewModel(modelPath)
	if err != nil {
		return nil, errs.NewModelInit("vosk model", fmt.Errorf("load %s: %w", modelPath, err))
	}

	log.Info().Msg("Vosk model loaded successfully")

	return &VoskBackend{model: model, modelPath: modelPath}, nil
}

func (v *VoskBackend) Name() string {
	return "vosk"
}

func (v *VoskBackend) ModelVersion() string {
	return v.modelPath
}

type voskResult struct {
	Text   string     `json:"text"`
	Result []voskWord `json:"result"`
}

type voskWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Conf  float64 `json:"conf"`
}

// Transcribe decodes the payload to 16kHz mono PCM and feeds it through a
// fresh recognizer. Each finalized recognizer result becomes one segment
// with word-level confidences.
func (v *VoskBackend) Transcribe(ctx context.Context, audioData []byte, language string) (*asr.Result, error) {
	buf, err := audio.Decode(audioData)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	rec, err := vosk.NewRecognizer(v.model, float64(buf.SampleRate))
	v.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to create vosk recognizer: %w", err)
	}
	defer rec.Free()

	rec.SetWords(1)

	pcmBytes := make([]byte, len(buf.PCM)*2)
	for i, sample := range buf.PCM {
		pcmBytes[i*2] = byte(sample)
		pcmBytes[i*2+1] = byte(sample >> 8)
	}

	var segments []asr.Segment
	for offset := 0; offset < len(pcmBytes); offset += acceptChunkBytes {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		end := offset + acceptChunkBytes
		if end > len(pcmBytes) {
			end = len(pcmBytes)
		}
		state := rec.AcceptWaveform(pcmBytes[offset:end])
		if state == -1 {
			return nil, fmt.Errorf("vosk failed to process audio at offset %d", offset)
		}
		if state == 1 {
			if seg, ok := parseResult(rec.Result()); ok {
				segments = append(segments, seg)
			}
		}
	}
	if seg, ok := parseResult(rec.FinalResult()); ok {
		segments = append(segments, seg)
	}

	fullText := ""
	for _, seg := range segments {
		if fullText != "" {
			fullText += " "
		}
		fullText += seg.Text
	}

	log.Debug().Int("segments", len(segments)).Msg("Vosk transcription completed")

	return &asr.Result{
		Text:         fullText,
		Segments:     segments,
		Language:     language,
		Duration:     buf.Duration(),
		Engine:       "vosk",
		ModelVersion: v.modelPath,
	}, nil
}

// parseResult converts one recognizer result JSON into a segment. Words
// carry a leading space so the hygiene filter's text rebuild concatenates
// them the same way it does whisper tokens.
func parseResult(jsonResult string) (asr.Segment, bool) {
	if jsonResult == "" {
		return asr.Segment{}, false
	}

	var parsed voskResult
	if err := json.Unmarshal([]byte(jsonResult), &parsed); err != nil {
		log.Warn().Err(err).Str("json", jsonResult).Msg("Failed to parse Vosk result")
		return asr.Segment{}, false
	}
	if parsed.Text == "" || len(parsed.Result) == 0 {
		return asr.Segment{}, false
	}

	seg := asr.Segment{
		Start: parsed.Result[0].Start,
		End:   parsed.Result[len(parsed.Result)-1].End,
		Text:  parsed.Text,
	}

	var confSum float64
	for _, w := range parsed.Result {
		seg.Words = append(seg.Words, asr.Word{
			Word:        " " + w.Word,
			Start:       w.Start,
			End:         w.End,
			Probability: w.Conf,
		})
		confSum += w.Conf
	}
	seg.Confidence = confSum / float64(len(parsed.Result))

	return seg, true
}

func (v *VoskBackend) Close() error {
	if v.model != nil {
		v.model.Free()
	}
	return nil
}

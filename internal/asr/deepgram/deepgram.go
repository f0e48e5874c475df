// Package deepgram implements the asr.Backend interface against the
// Deepgram prerecorded HTTP API. It is wired as a fallback backend:
// word timestamps and confidences are available, but no-speech
// probabilities are not, so the remote whisper backend stays primary.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/isaevxxi/DocTalk/internal/asr"
)

const defaultListenURL = "https://api.deepgram.com/v1/listen"

type DeepgramBackend struct {
	apiKey    string
	model     string
	listenURL string
	client    *http.Client
}

type deepgramResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
		Utterances []struct {
			Start      float64 `json:"start"`
			End        float64 `json:"end"`
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
			Words      []struct {
				Word       string  `json:"word"`
				Start      float64 `json:"start"`
				End        float64 `json:"end"`
				Confidence float64 `json:"confidence"`
			} `json:"words"`
		} `json:"utterances"`
	} `json:"results"`
	Metadata struct {
		Duration float64 `json:"duration"`
	} `json:"metadata"`
}

func NewDeepgramBackend(apiKey, model string) *DeepgramBackend {
	return &DeepgramBackend{
		apiKey:    apiKey,
		model:     model,
		listenURL: defaultListenURL,
		client:    &http.Client{Timeout: 5 * time.Minute},
	}
}

func (d *DeepgramBackend) Name() string {
	return "deepgram"
}

func (d *DeepgramBackend) ModelVersion() string {
	return d.model
}

func (d *DeepgramBackend) Transcribe(ctx context.Context, audioData []byte, language string) (*asr.Result, error) {
	if len(audioData) == 0 {
		return nil, fmt.Errorf("empty audio payload")
	}

	params := url.Values{}
	if d.model != "" {
		params.Set("model", d.model)
	}
	params.Set("punctuate", "true")
	params.Set("diarize", "false")
	params.Set("utterances", "true")
	params.Set("smart_format", "true")
	if language != "" {
		params.Set("language", language)
	}

	fullURL := d.listenURL + "?" + params.Encode()

	log.Debug().
		Str("model", d.model).
		Str("language", language).
		Int("audio_size_bytes", len(audioData)).
		Msg("Making Deepgram API request")

	req, err := http.NewRequestWithContext(ctx, "POST", fullURL, bytes.NewReader(audioData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Token "+d.apiKey)
	req.Header.Set("Content-Type", "audio/*")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Deepgram API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Warn().
			Int("status_code", resp.StatusCode).
			Str("response_body", string(body)).
			Msg("Deepgram API error response")
		return nil, fmt.Errorf("Deepgram API error %d: %s", resp.StatusCode, string(body))
	}

	var parsed deepgramResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		log.Warn().
			Str("response_body", string(body)).
			Msg("Failed to parse Deepgram response")
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	result := &asr.Result{
		Language:     language,
		Duration:     parsed.Metadata.Duration,
		Engine:       "deepgram",
		ModelVersion: d.model,
	}

	for _, utt := range parsed.Results.Utterances {
		if utt.Transcript == "" {
			continue
		}
		seg := asr.Segment{
			Start:      utt.Start,
			End:        utt.End,
			Text:       utt.Transcript,
			Confidence: utt.Confidence,
		}
		for _, w := range utt.Words {
			seg.Words = append(seg.Words, asr.Word{
				Word:        " " + w.Word,
				Start:       w.Start,
				End:         w.End,
				Probability: w.Confidence,
			})
		}
		result.Segments = append(result.Segments, seg)
	}

	// Utterances can be absent when the payload is a single continuous
	// phrase; fall back to the channel transcript in that case.
	if len(result.Segments) == 0 && len(parsed.Results.Channels) > 0 {
		for _, alt := range parsed.Results.Channels[0].Alternatives {
			if alt.Transcript == "" {
				continue
			}
			result.Segments = append(result.Segments, asr.Segment{
				Start:      0,
				End:        parsed.Metadata.Duration,
				Text:       alt.Transcript,
				Confidence: alt.Confidence,
			})
			break
		}
	}

	for _, seg := range result.Segments {
		if result.Text != "" {
			result.Text += " "
		}
		result.Text += seg.Text
	}

	log.Debug().
		Int("segments", len(result.Segments)).
		Float64("duration", result.Duration).
		Msg("Deepgram transcription completed")

	return result, nil
}

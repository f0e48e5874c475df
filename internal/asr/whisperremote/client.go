// Package whisperremote implements the asr.Backend interface against a
// remote faster-whisper server speaking the OpenAI-compatible
// /v1/audio/transcriptions API with verbose JSON output.
package whisperremote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/isaevxxi/DocTalk/internal/asr"
)

// Config configures the remote whisper client.
type Config struct {
	BaseURL        string
	Model          string // default "base"
	TimeoutSeconds int    // default 300
	Retries        int    // default 2, transient (5xx/network) errors only
}

// Client is an asr.Backend that calls a remote faster-whisper HTTP API.
type Client struct {
	cfg         Config
	client      *http.Client
	backoffBase time.Duration
}

func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = "base"
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 300
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 2
	}
	return &Client{
		cfg:         cfg,
		backoffBase: time.Second,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

func (c *Client) Name() string {
	return "whisper"
}

func (c *Client) ModelVersion() string {
	return c.cfg.Model
}

// verboseResponse mirrors the verbose_json shape of the whisper API.
type verboseResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start        float64 `json:"start"`
		End          float64 `json:"end"`
		Text         string  `json:"text"`
		AvgLogprob   float64 `json:"avg_logprob"`
		NoSpeechProb float64 `json:"no_speech_prob"`
		Words        []struct {
			Word        string  `json:"word"`
			Start       float64 `json:"start"`
			End         float64 `json:"end"`
			Probability float64 `json:"probability"`
		} `json:"words"`
	} `json:"segments"`
}

// Transcribe uploads the audio and returns raw word-level segments. The
// server runs its own coarse VAD filter, tuned for the ASR model's needs.
func (c *Client) Transcribe(ctx context.Context, audioData []byte, language string) (*asr.Result, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			backoff := c.backoffBase * time.Duration(1<<(attempt-1))
			log.Debug().Int("attempt", attempt).Dur("backoff", backoff).Msg("Retrying whisper request")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, retryable, err := c.doRequest(ctx, audioData, language)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) doRequest(ctx context.Context, audioData []byte, language string) (*asr.Result, bool, error) {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, false, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(audioData); err != nil {
		return nil, false, fmt.Errorf("failed to write audio payload: %w", err)
	}

	fields := [][2]string{
		{"model", c.cfg.Model},
		{"response_format", "verbose_json"},
		{"timestamp_granularities[]", "word"},
		{"vad_filter", "true"},
	}
	if language != "" {
		fields = append(fields, [2]string{"language", language})
	}
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return nil, false, fmt.Errorf("failed to write form field %s: %w", field[0], err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, false, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	url := c.cfg.BaseURL + "/v1/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("whisper request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read whisper response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode >= 500
		return nil, retryable, fmt.Errorf("whisper API error %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed verboseResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, false, fmt.Errorf("failed to decode whisper response: %w", err)
	}

	segments := make([]asr.Segment, 0, len(parsed.Segments))
	for _, s := range parsed.Segments {
		seg := asr.Segment{
			Start:        s.Start,
			End:          s.End,
			Text:         s.Text,
			Confidence:   s.AvgLogprob,
			NoSpeechProb: s.NoSpeechProb,
		}
		for _, w := range s.Words {
			seg.Words = append(seg.Words, asr.Word{
				Word:        w.Word,
				Start:       w.Start,
				End:         w.End,
				Probability: w.Probability,
			})
		}
		segments = append(segments, seg)
	}

	return &asr.Result{
		Text:         parsed.Text,
		Segments:     segments,
		Language:     parsed.Language,
		Duration:     parsed.Duration,
		Engine:       "faster-whisper-" + c.cfg.Model,
		ModelVersion: c.cfg.Model,
	}, false, nil
}

package deepgram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prerecordedFixture = `{
	"metadata": {"duration": 3.5},
	"results": {
		"channels": [
			{"alternatives": [{"transcript": "hello doctor", "confidence": 0.92}]}
		],
		"utterances": [
			{
				"start": 0.1,
				"end": 1.4,
				"transcript": "hello",
				"confidence": 0.95,
				"words": [
					{"word": "hello", "start": 0.1, "end": 1.4, "confidence": 0.95}
				]
			},
			{
				"start": 1.9,
				"end": 3.2,
				"transcript": "doctor",
				"confidence": 0.89,
				"words": [
					{"word": "doctor", "start": 1.9, "end": 3.2, "confidence": 0.89}
				]
			}
		]
	}
}`

func newTestBackend(url string) *DeepgramBackend {
	b := NewDeepgramBackend("test-key", "nova-2")
	b.listenURL = url
	return b
}

func TestTranscribeParsesUtterances(t *testing.T) {
	var gotAuth, gotLanguage, gotUtterances string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotLanguage = r.URL.Query().Get("language")
		gotUtterances = r.URL.Query().Get("utterances")
		w.Write([]byte(prerecordedFixture))
	}))
	defer srv.Close()

	result, err := newTestBackend(srv.URL).Transcribe(context.Background(), []byte("wav"), "en")
	require.NoError(t, err)

	assert.Equal(t, "Token test-key", gotAuth)
	assert.Equal(t, "en", gotLanguage)
	assert.Equal(t, "true", gotUtterances)

	assert.Equal(t, "hello doctor", result.Text)
	assert.InDelta(t, 3.5, result.Duration, 1e-9)
	assert.Equal(t, "deepgram", result.Engine)

	require.Len(t, result.Segments, 2)
	assert.InDelta(t, 0.1, result.Segments[0].Start, 1e-9)
	require.Len(t, result.Segments[0].Words, 1)
	// Words carry a leading space for separator-free text rebuilding.
	assert.Equal(t, " hello", result.Segments[0].Words[0].Word)
	assert.InDelta(t, 0.95, result.Segments[0].Words[0].Probability, 1e-9)
}

func TestTranscribeFallsBackToChannelTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"metadata": {"duration": 2.0},
			"results": {"channels": [{"alternatives": [{"transcript": "short phrase", "confidence": 0.8}]}]}
		}`))
	}))
	defer srv.Close()

	result, err := newTestBackend(srv.URL).Transcribe(context.Background(), []byte("wav"), "")
	require.NoError(t, err)

	require.Len(t, result.Segments, 1)
	assert.Equal(t, "short phrase", result.Segments[0].Text)
	assert.InDelta(t, 2.0, result.Segments[0].End, 1e-9)
	assert.Empty(t, result.Segments[0].Words)
}

func TestTranscribeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"err_msg": "invalid credentials"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestBackend(srv.URL).Transcribe(context.Background(), []byte("wav"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestTranscribeEmptyPayload(t *testing.T) {
	_, err := newTestBackend("http://unused").Transcribe(context.Background(), nil, "")
	assert.Error(t, err)
}

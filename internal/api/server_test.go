package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaevxxi/DocTalk/internal/metrics"
	"github.com/isaevxxi/DocTalk/internal/pipeline"
	"github.com/isaevxxi/DocTalk/internal/worker"
)

type okProcessor struct{}

func (okProcessor) Process(ctx context.Context, recordingID, storageKey string) (*pipeline.Transcript, error) {
	return &pipeline.Transcript{RecordingID: recordingID, Status: pipeline.StatusCompleted}, nil
}

type nullObjects struct{}

func (nullObjects) Put(ctx context.Context, key string, data []byte) error { return nil }

type memTranscripts struct {
	saved map[string]*pipeline.Transcript
}

func (m *memTranscripts) Save(ctx context.Context, t *pipeline.Transcript) error {
	m.saved[t.RecordingID] = t
	return nil
}

func (m *memTranscripts) Load(ctx context.Context, recordingID string) (*pipeline.Transcript, error) {
	t, ok := m.saved[recordingID]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return t, nil
}

type testEnv struct {
	server      *httptest.Server
	recordings  worker.RecordingStore
	transcripts *memTranscripts
	worker      *worker.Worker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	recordings := worker.NewMemoryRecordingStore()
	transcripts := &memTranscripts{saved: map[string]*pipeline.Transcript{}}
	w := worker.New(worker.NewMemoryQueue(8), recordings, nullObjects{}, transcripts, okProcessor{}, nil, worker.Config{
		Concurrency: 1,
		MaxAttempts: 1,
		JobTimeout:  time.Second,
	})

	srv := httptest.NewServer(NewServer(w, recordings, transcripts, metrics.New()).Router())
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, recordings: recordings, transcripts: transcripts, worker: w}
}

func uploadFile(t *testing.T, env *testEnv, filename string, payload []byte) *http.Response {
	t.Helper()

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	resp, err := http.Post(env.server.URL+"/v1/recordings", writer.FormDataContentType(), body)
	require.NoError(t, err)
	return resp
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUploadRecording(t *testing.T) {
	env := newTestEnv(t)

	resp := uploadFile(t, env, "visit.wav", []byte("fake-audio"))
	defer resp.Body.Close()

	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var rec worker.Recording
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "visit.wav", rec.Filename)
	assert.Equal(t, worker.StatusUploaded, rec.Status)

	stored, err := env.recordings.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, worker.StatusUploaded, stored.Status)
}

func TestUploadWithoutFile(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.server.URL+"/v1/recordings", "application/json", bytes.NewReader([]byte("{}")))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadEmptyFile(t *testing.T) {
	env := newTestEnv(t)

	resp := uploadFile(t, env, "empty.wav", nil)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatusUnknownRecording(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/v1/recordings/does-not-exist")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTranscriptBeforeProcessing(t *testing.T) {
	env := newTestEnv(t)
	rec, err := env.worker.Submit(context.Background(), "visit.wav", []byte("audio"))
	require.NoError(t, err)

	resp, err := http.Get(env.server.URL + "/v1/recordings/" + rec.ID + "/transcript")
	require.NoError(t, err)
	defer resp.Body.Close()

	// Still queued: the transcript is not ready yet.
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestTranscriptAfterCompletion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec, err := env.worker.Submit(ctx, "visit.wav", []byte("audio"))
	require.NoError(t, err)

	require.NoError(t, env.transcripts.Save(ctx, &pipeline.Transcript{
		RecordingID: rec.ID,
		Status:      pipeline.StatusCompleted,
		Text:        "добрый день",
	}))
	rec.Status = worker.StatusCompleted
	require.NoError(t, env.recordings.Update(ctx, rec))

	resp, err := http.Get(env.server.URL + "/v1/recordings/" + rec.ID + "/transcript")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var transcript pipeline.Transcript
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&transcript))
	assert.Equal(t, "добрый день", transcript.Text)
}

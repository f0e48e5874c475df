// Package store provides the storage backends for raw audio objects and
// processed transcripts: a local filesystem layout for single-host
// deployments and a MinIO-backed object store for everything else.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/isaevxxi/DocTalk/internal/pipeline"
)

// FileStore keeps audio objects and transcripts under a base directory:
// <base>/audio/<key> for payloads, <base>/transcripts/<recording_id>.json
// for results.
type FileStore struct {
	baseDir string
}

func NewFileStore(baseDir string) (*FileStore, error) {
	audioDir := filepath.Join(baseDir, "audio")
	transcriptDir := filepath.Join(baseDir, "transcripts")

	if err := os.MkdirAll(audioDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audio directory: %w", err)
	}
	if err := os.MkdirAll(transcriptDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create transcript directory: %w", err)
	}

	return &FileStore{
		baseDir: baseDir,
	}, nil
}

// Put writes an audio payload under the given storage key.
func (s *FileStore) Put(ctx context.Context, key string, data []byte) error {
	path := filepath.Join(s.baseDir, "audio", filepath.Clean(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write audio object: %w", err)
	}

	log.Debug().
		Str("key", key).
		Int("size", len(data)).
		Msg("Stored audio object")

	return nil
}

// Get reads an audio payload by storage key.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	path := filepath.Join(s.baseDir, "audio", filepath.Clean(key))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio object %s: %w", key, err)
	}
	return data, nil
}

// Save persists a transcript as one JSON file per recording.
func (s *FileStore) Save(ctx context.Context, t *pipeline.Transcript) error {
	path := s.transcriptPath(t.RecordingID)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create transcript file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(t); err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}

	log.Info().
		Str("recording_id", t.RecordingID).
		Str("file", path).
		Str("status", t.Status).
		Msg("Saved transcript")

	return nil
}

// Load reads a transcript by recording ID.
func (s *FileStore) Load(ctx context.Context, recordingID string) (*pipeline.Transcript, error) {
	file, err := os.Open(s.transcriptPath(recordingID))
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript file: %w", err)
	}
	defer file.Close()

	var t pipeline.Transcript
	if err := json.NewDecoder(file).Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to decode transcript: %w", err)
	}
	return &t, nil
}

func (s *FileStore) transcriptPath(recordingID string) string {
	return filepath.Join(s.baseDir, "transcripts", fmt.Sprintf("%s.json", recordingID))
}

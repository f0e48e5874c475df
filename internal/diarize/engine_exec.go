package diarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/isaevxxi/DocTalk/internal/errs"
)

// ExecEngine shells out to a diarization binary. The binary receives a WAV
// file path and speaker constraints on the command line and prints a JSON
// array of {start, end, speaker} objects on stdout.
type ExecEngine struct {
	binPath   string
	modelPath string
	name      string
}

// NewExecEngine resolves the diarization binary and fails with a
// ModelInitError when it cannot be found, so the worker can decide at
// startup whether to run without speaker labels.
func NewExecEngine(binPath, modelPath string) (*ExecEngine, error) {
	resolved, err := exec.LookPath(binPath)
	if err != nil {
		if _, statErr := os.Stat(binPath); statErr != nil {
			return nil, errs.NewModelInit("diarization engine", fmt.Errorf("binary %q not found: %w", binPath, err))
		}
		resolved = binPath
	}

	if modelPath != "" {
		if _, err := os.Stat(modelPath); err != nil {
			return nil, errs.NewModelInit("diarization engine", fmt.Errorf("model %q not readable: %w", modelPath, err))
		}
	}

	log.Info().Str("bin", resolved).Str("model", modelPath).Msg("Diarization engine resolved")

	return &ExecEngine{
		binPath:   resolved,
		modelPath: modelPath,
		name:      filepath.Base(resolved),
	}, nil
}

type execSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// Diarize writes the payload to a temp WAV file, runs the binary and parses
// its JSON output into segments in the payload's local timeline.
func (e *ExecEngine) Diarize(ctx context.Context, wav []byte, opts EngineOpts) ([]Segment, error) {
	tmp, err := os.CreateTemp("", "diarize-*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp audio file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(wav); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write temp audio file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temp audio file: %w", err)
	}

	args := []string{"--audio", tmp.Name(), "--format", "json"}
	if e.modelPath != "" {
		args = append(args, "--model", e.modelPath)
	}
	if opts.NumSpeakers > 0 {
		args = append(args, "--num-speakers", strconv.Itoa(opts.NumSpeakers))
	} else {
		args = append(args,
			"--min-speakers", strconv.Itoa(opts.MinSpeakers),
			"--max-speakers", strconv.Itoa(opts.MaxSpeakers),
		)
	}

	cmd := exec.CommandContext(ctx, e.binPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("diarization binary failed: %w (stderr: %s)", err, stderr.String())
	}

	var raw []execSegment
	if err := json.Unmarshal(stdout.Bytes(), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse diarization output: %w", err)
	}

	segments := make([]Segment, 0, len(raw))
	for _, r := range raw {
		seg, err := NewSegment(r.Start, r.End, r.Speaker)
		if err != nil {
			log.Warn().Err(err).Msg("Skipping malformed engine segment")
			continue
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

func (e *ExecEngine) Name() string {
	return e.name
}

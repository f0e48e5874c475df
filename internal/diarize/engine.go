package diarize

import (
	"context"
)

// EngineOpts constrain the speaker search. When NumSpeakers > 0 it is passed
// as a hard constraint; otherwise the [MinSpeakers, MaxSpeakers] range is
// used.
type EngineOpts struct {
	NumSpeakers int
	MinSpeakers int
	MaxSpeakers int
}

// Engine runs the underlying diarization model over one WAV payload and
// returns raw speaker segments in the payload's local timeline.
//
// Engine implementations are not required to be reentrant; the Diarizer
// serializes calls to a single engine instance.
type Engine interface {
	Diarize(ctx context.Context, wav []byte, opts EngineOpts) ([]Segment, error)
	Name() string
}

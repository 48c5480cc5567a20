package ports

import (
	"context"
	"errors"

	"github.com/forPelevin/speechcut/internal/types"
)

var (
	ErrRecognizerNotInstalled  = errors.New("speech recognition is not installed")
	ErrRecognizerScriptMissing = errors.New("speech recognition script not found")
)

// Recognizer launches the speech recognition child process.
type Recognizer interface {
	// Check reports ErrRecognizerNotInstalled or ErrRecognizerScriptMissing
	// when a run could not start.
	Check(ctx context.Context) error
	Start(ctx context.Context, job types.RecognitionJob) (RecognitionRun, error)
}

// RecognitionRun is one running child. Events is closed after the Exit event.
type RecognitionRun interface {
	Events() <-chan Event
	Kill() error
}

// Event is one of Sentence, Log or Exit.
type Event interface{ isEvent() }

// Sentence is a JSON object parsed from the child's stdout.
type Sentence struct{ Result types.RecognitionResult }

// Log carries a chunk of the child's stderr.
type Log struct{ Text string }

// Exit is the last event of a run.
type Exit struct {
	Code    int
	Crashed bool
	Err     error
}

func (Sentence) isEvent() {}
func (Log) isEvent()      {}
func (Exit) isEvent()     {}

type MediaProbe interface {
	Probe(ctx context.Context, path string) (types.MediaInfo, error)
}

// ProjectIndex resolves clips by id.
type ProjectIndex interface {
	Clip(ctx context.Context, id string) (types.Clip, error)
	Active(ctx context.Context) (types.Clip, error)
}

// Monitor is the media monitor the transcript drives.
type Monitor interface {
	Seek(ctx context.Context, clip types.Clip, frame int) error
	LoadZone(ctx context.Context, clip types.Clip, zone types.Interval) error
	PlayZone(ctx context.Context, clip types.Clip, zone types.Interval) error
}

// Timeline receives the intervals kept by an edit and returns where they went.
type Timeline interface {
	Insert(ctx context.Context, clip types.Clip, intervals []types.Interval) (string, error)
}

type PlaylistWriter interface {
	WritePlaylist(ctx context.Context, clip types.Clip, path string, intervals []types.Interval, props map[string]string) error
}

type Preview interface {
	Preview(ctx context.Context, path string) error
}

// Package recognition folds recognizer output into a transcript document,
// bridging the gaps between sentences with silence blocks.
package recognition

import (
	"strings"

	"github.com/forPelevin/speechcut/internal/domain/timemap"
	"github.com/forPelevin/speechcut/internal/domain/transcript"
	"github.com/forPelevin/speechcut/internal/types"
)

// A gap before the first sentence becomes a silence block only when it is
// longer than leadingSilence.
const leadingSilence = 1.0 // seconds

type Config struct {
	FPS float64
	// Offset and End bound the analyzed span in clip seconds.
	Offset float64
	End    float64
}

// Outcome reports what one recognizer object did to the document.
type Outcome struct {
	Blocks   int
	Progress float64
	Done     bool
}

// Session is bound to one recognition run. Positions are clip frames.
type Session struct {
	doc          *transcript.Document
	cfg          Config
	lastPosition int
	speech       bool
	done         bool
}

// NewSession resets doc for the run.
func NewSession(doc *transcript.Document, clipID string, cfg Config) *Session {
	doc.Reset(clipID, cfg.Offset)
	return &Session{
		doc:          doc,
		cfg:          cfg,
		lastPosition: timemap.SecondsToFrames(cfg.Offset, cfg.FPS),
	}
}

func (s *Session) LastPosition() int { return s.lastPosition }

// HasSpeech reports whether any sentence was appended.
func (s *Session) HasSpeech() bool { return s.speech }

func (s *Session) Done() bool { return s.done }

// Apply handles one object from the recognizer's stdout. Objects without a
// result array are noted but do not close the transcript: the recognizer also
// prints them for silent stretches mid-stream. Finish closes it.
func (s *Session) Apply(r types.RecognitionResult) Outcome {
	if s.done {
		return Outcome{Done: true, Progress: 1}
	}
	if r.Terminal() || !spoken(r.Result) {
		return Outcome{Progress: s.progress(s.lastPosition)}
	}

	var out Outcome
	first := r.Result[0].Start + s.cfg.Offset
	last := r.Result[len(r.Result)-1].End + s.cfg.Offset
	startFrame := timemap.SecondsToFrames(first, s.cfg.FPS)
	gap := startFrame - s.lastPosition
	if gap > 1 && (s.speech || gap > timemap.SecondsToFrames(leadingSilence, s.cfg.FPS)) {
		s.doc.AppendSilence(
			timemap.FramesToSeconds(s.lastPosition, s.cfg.FPS),
			timemap.FramesToSeconds(startFrame-1, s.cfg.FPS),
			transcript.SilenceLabel,
		)
		out.Blocks++
	}
	if s.doc.AppendRecognized(r.Result, types.Zone{Start: first, End: last}) {
		out.Blocks++
		s.speech = true
		s.lastPosition = max(s.lastPosition, timemap.SecondsToFrames(last, s.cfg.FPS))
	}
	out.Progress = s.progress(s.lastPosition)
	return out
}

// Finish appends the trailing silence up to the end of the analyzed span.
// It runs once, after the recognizer exited normally.
func (s *Session) Finish() Outcome {
	if s.done {
		return Outcome{Done: true, Progress: 1}
	}
	s.done = true
	out := Outcome{Done: true, Progress: 1}
	if !s.speech {
		return out
	}
	start := timemap.FramesToSeconds(s.lastPosition+1, s.cfg.FPS)
	if start < s.cfg.End {
		s.doc.AppendSilence(start, s.cfg.End, transcript.SilenceLabel)
		out.Blocks++
	}
	return out
}

func spoken(words []types.Word) bool {
	for _, w := range words {
		if strings.TrimSpace(w.Word) != "" {
			return true
		}
	}
	return false
}

func (s *Session) progress(frame int) float64 {
	span := s.cfg.End - s.cfg.Offset
	if span <= 0 {
		return 0
	}
	p := (timemap.FramesToSeconds(frame, s.cfg.FPS) - s.cfg.Offset) / span
	return min(max(p, 0), 1)
}

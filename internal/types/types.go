package types

// Word is one recognized word as emitted by the recognizer, in recognizer
// coordinates (seconds from the start of the analyzed span).
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// RecognitionResult is one top-level JSON object read from the recognizer.
// A nil Result marks the terminal object.
type RecognitionResult struct {
	Result []Word `json:"result"`
	Text   string `json:"text,omitempty"`
}

// Terminal reports whether r carries no result array.
func (r RecognitionResult) Terminal() bool { return r.Result == nil }

// Zone is a span in clip seconds.
type Zone struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Interval is a span in clip frames.
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (iv Interval) Empty() bool { return iv.End <= iv.Start }

// Clip is what the project index knows about a media clip.
type Clip struct {
	ID       string
	Name     string
	URL      string
	FPS      float64
	Duration float64
	// Zone is the clip's in/out zone in frames; empty when unset.
	Zone Interval
}

// MediaInfo is what probing a media file yields.
type MediaInfo struct {
	FPS      float64
	Duration float64
}

// RecognitionJob is the argument set handed to the recognizer child.
type RecognitionJob struct {
	ModelDir    string
	Language    string
	MediaURL    string
	OffsetSec   float64
	DurationSec float64
}

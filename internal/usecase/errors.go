package usecase

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/forPelevin/speechcut/internal/domain/export"
	"github.com/forPelevin/speechcut/internal/domain/timemap"
	"github.com/forPelevin/speechcut/internal/ports"
)

var (
	ErrNoClipSelected     = errors.New("select a clip for speech recognition")
	ErrNoLanguageModel    = errors.New("please install a language model")
	ErrNoModelsInstalled  = errors.New("please install speech recognition models")
	ErrRecognizerCrashed  = errors.New("speech recognition aborted")
	ErrNoSpeechDetected   = errors.New("no speech detected")
	ErrExportEmpty        = export.ErrEmpty
	ErrBusy               = errors.New("speech recognition is running")
	ErrEmptyDocument      = errors.New("the transcript is empty")
	ErrRecognitionRunning = errors.New("another recognition job is running")
)

type Severity int

const (
	SeverityInfo Severity = iota
	SeverityPositive
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityPositive:
		return "positive"
	case SeverityWarning:
		return "warning"
	default:
		return "error"
	}
}

// SeverityOf maps an error to the banner severity it is shown with.
func SeverityOf(err error) Severity {
	switch {
	case err == nil:
		return SeverityInfo
	case errors.Is(err, ErrNoClipSelected),
		errors.Is(err, ErrNoSpeechDetected),
		errors.Is(err, ErrNoModelsInstalled),
		errors.Is(err, ErrExportEmpty),
		errors.Is(err, ErrBusy),
		errors.Is(err, ErrEmptyDocument),
		errors.Is(err, ErrRecognitionRunning),
		errors.Is(err, timemap.ErrMalformedHref):
		return SeverityInfo
	case errors.Is(err, ports.ErrRecognizerNotInstalled),
		errors.Is(err, ports.ErrRecognizerScriptMissing),
		errors.Is(err, ErrNoLanguageModel),
		errors.Is(err, ErrRecognizerCrashed):
		return SeverityWarning
	default:
		return SeverityError
	}
}

// sentence turns an error message into banner text.
func sentence(msg string) string {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return msg
	}
	r, n := utf8.DecodeRuneInString(msg)
	msg = string(unicode.ToUpper(r)) + msg[n:]
	if !strings.HasSuffix(msg, ".") {
		msg += "."
	}
	return msg
}

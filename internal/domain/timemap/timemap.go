// Package timemap converts between seconds and frames and binds transcript
// tokens to media time through href strings of the form "<clipId>#<start>:<end>".
package timemap

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrMalformedHref = errors.New("malformed href")

// frameEpsilon absorbs float error such as 0.29*100 = 28.999999999999996.
const frameEpsilon = 1e-6

func SecondsToFrames(sec, fps float64) int {
	if fps <= 0 {
		return 0
	}
	return int(math.Floor(sec*fps + frameEpsilon))
}

func FramesToSeconds(frame int, fps float64) float64 {
	if fps <= 0 {
		return 0
	}
	return float64(frame) / fps
}

// EncodeHref builds the token annotation. Silence tokens use an empty clip id.
func EncodeHref(clipID string, startSec, endSec float64) string {
	return clipID + "#" + formatSeconds(startSec) + ":" + formatSeconds(endSec)
}

// DecodeHref returns the two time fields of an href.
func DecodeHref(href string) (float64, float64, error) {
	i := strings.IndexByte(href, '#')
	if i < 0 {
		return 0, 0, fmt.Errorf("%w: %q has no '#'", ErrMalformedHref, href)
	}
	fields := strings.Split(href[i+1:], ":")
	if len(fields) < 2 {
		return 0, 0, fmt.Errorf("%w: %q has no end field", ErrMalformedHref, href)
	}
	start, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: start %q", ErrMalformedHref, fields[0])
	}
	end, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: end %q", ErrMalformedHref, fields[1])
	}
	return start, end, nil
}

// ClipID returns the part of href before '#'.
func ClipID(href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		return href[:i]
	}
	return ""
}

func formatSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'g', -1, 64)
}

// Timecode formats a frame position as HH:MM:SS:FF.
func Timecode(frame int, fps float64) string {
	if fps <= 0 {
		fps = 25
	}
	sign := ""
	if frame < 0 {
		sign = "-"
		frame = -frame
	}
	base := int(math.Round(fps))
	if base <= 0 {
		base = 1
	}
	secs := int(float64(frame) / fps)
	ff := frame - SecondsToFrames(float64(secs), fps)
	if ff >= base {
		ff = base - 1
	}
	return fmt.Sprintf("%s%02d:%02d:%02d:%02d", sign, secs/3600, (secs/60)%60, secs%60, ff)
}

// SecondsTimecode formats a clip-seconds position.
func SecondsTimecode(sec, fps float64) string {
	return Timecode(SecondsToFrames(sec, fps), fps)
}

// Package mlt writes playlists of clip intervals as MLT XML.
package mlt

import (
	"context"
	"encoding/xml"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/forPelevin/speechcut/internal/types"
)

type Document struct {
	XMLName   xml.Name   `xml:"mlt"`
	LCNumeric string     `xml:"LC_NUMERIC,attr"`
	Producer  string     `xml:"producer,attr"`
	Profile   Profile    `xml:"profile"`
	Producers []Producer `xml:"producer"`
	Playlist  Playlist   `xml:"playlist"`
}

type Profile struct {
	FrameRateNum int `xml:"frame_rate_num,attr"`
	FrameRateDen int `xml:"frame_rate_den,attr"`
}

type Producer struct {
	ID         string     `xml:"id,attr"`
	In         int        `xml:"in,attr"`
	Out        int        `xml:"out,attr"`
	Properties []Property `xml:"property"`
}

type Property struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type Playlist struct {
	ID         string     `xml:"id,attr"`
	Properties []Property `xml:"property"`
	Entries    []Entry    `xml:"entry"`
}

// Entry frames are inclusive, as MLT expects.
type Entry struct {
	Producer string `xml:"producer,attr"`
	In       int    `xml:"in,attr"`
	Out      int    `xml:"out,attr"`
}

type Writer struct{}

func New() *Writer { return &Writer{} }

// WritePlaylist writes one entry per interval, in order, and carries props on
// the playlist element.
func (w *Writer) WritePlaylist(ctx context.Context, clip types.Clip, path string, intervals []types.Interval, props map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := Build(clip, intervals, props)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write playlist: %w", err)
	}
	return nil
}

// Build renders the playlist document.
func Build(clip types.Clip, intervals []types.Interval, props map[string]string) ([]byte, error) {
	num, den := rational(clip.FPS)
	out := int(math.Round(clip.Duration*clip.FPS)) - 1
	doc := Document{
		LCNumeric: "C",
		Producer:  "main_bin",
		Profile:   Profile{FrameRateNum: num, FrameRateDen: den},
		Producers: []Producer{{
			ID:  "producer0",
			In:  0,
			Out: max(out, 0),
			Properties: []Property{
				{Name: "resource", Value: clip.URL},
				{Name: "speechcut:clip_id", Value: clip.ID},
			},
		}},
		Playlist: Playlist{ID: "main_bin"},
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		doc.Playlist.Properties = append(doc.Playlist.Properties, Property{Name: k, Value: props[k]})
	}
	for _, iv := range intervals {
		if iv.Empty() {
			continue
		}
		doc.Playlist.Entries = append(doc.Playlist.Entries, Entry{Producer: "producer0", In: iv.Start, Out: iv.End - 1})
	}

	b, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal playlist: %w", err)
	}
	return append([]byte(xml.Header), append(b, '\n')...), nil
}

func rational(fps float64) (int, int) {
	if fps <= 0 {
		return 25, 1
	}
	if fps == math.Trunc(fps) {
		return int(fps), 1
	}
	return int(math.Round(fps * 1001)), 1001
}

// Package transcript holds the recognized text as a sequence of blocks whose
// word tokens carry hrefs binding them to media time.
//
// Character positions are rune offsets into Text(): tokens of a block are
// joined by a single space and blocks by a newline.
package transcript

import (
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/forPelevin/speechcut/internal/domain/timemap"
	"github.com/forPelevin/speechcut/internal/types"
)

// SilenceLabel is the visible text of a silence block.
const SilenceLabel = "No speech"

type Token struct {
	Text string
	Href string
}

type Block struct {
	Tokens  []Token
	Silence bool
}

// Text returns the block's visible text.
func (b Block) Text() string {
	parts := make([]string, len(b.Tokens))
	for i, t := range b.Tokens {
		parts[i] = t.Text
	}
	return strings.Join(parts, " ")
}

type ChangeKind int

const (
	ChangeAppended ChangeKind = iota
	ChangeEdited
	ChangeCleared
)

// Change is delivered to subscribers after every mutation.
type Change struct {
	Kind   ChangeKind
	Blocks int
}

// Document is not safe for concurrent use; it lives on the UI loop.
type Document struct {
	clipID string
	offset float64

	blocks []Block
	zones  []types.Zone

	idx   *index
	subs  map[int]func(Change)
	subID int
	log   *slog.Logger
}

func New(log *slog.Logger) *Document {
	if log == nil {
		log = slog.Default()
	}
	return &Document{log: log, subs: map[int]func(Change){}}
}

// Reset clears the document and binds it to a clip and offset for a new run.
func (d *Document) Reset(clipID string, clipOffset float64) {
	d.clipID = clipID
	d.offset = clipOffset
	d.Clear()
}

func (d *Document) ClipID() string      { return d.clipID }
func (d *Document) ClipOffset() float64 { return d.offset }
func (d *Document) BlockCount() int     { return len(d.blocks) }
func (d *Document) Empty() bool         { return len(d.blocks) == 0 }

func (d *Document) Block(i int) Block {
	b := d.blocks[i]
	b.Tokens = append([]Token(nil), b.Tokens...)
	return b
}

func (d *Document) Zone(i int) types.Zone { return d.zones[i] }

func (d *Document) Zones() []types.Zone {
	return append([]types.Zone(nil), d.zones...)
}

// Subscribe registers fn for change notifications and returns its removal.
func (d *Document) Subscribe(fn func(Change)) func() {
	d.subID++
	id := d.subID
	d.subs[id] = fn
	return func() { delete(d.subs, id) }
}

func (d *Document) notify(kind ChangeKind) {
	d.idx = nil
	c := Change{Kind: kind, Blocks: len(d.blocks)}
	ids := make([]int, 0, len(d.subs))
	for id := range d.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		d.subs[id](c)
	}
}

// AppendRecognized appends a sentence block. zone is in clip seconds while
// word times stay in recognizer coordinates inside the hrefs.
func (d *Document) AppendRecognized(words []types.Word, zone types.Zone) bool {
	var toks []Token
	for _, w := range words {
		text := strings.Join(strings.Fields(w.Word), "")
		if text == "" {
			continue
		}
		toks = append(toks, Token{Text: text, Href: timemap.EncodeHref(d.clipID, w.Start, w.End)})
	}
	if len(toks) == 0 {
		return false
	}
	d.blocks = append(d.blocks, Block{Tokens: toks})
	d.zones = append(d.zones, zone)
	d.notify(ChangeAppended)
	return true
}

// AppendSilence appends a one-token block spanning [startSec, endSec] clip seconds.
func (d *Document) AppendSilence(startSec, endSec float64, label string) {
	if label == "" {
		label = SilenceLabel
	}
	href := timemap.EncodeHref("", startSec-d.offset, endSec-d.offset)
	d.blocks = append(d.blocks, Block{Tokens: []Token{{Text: label, Href: href}}, Silence: true})
	d.zones = append(d.zones, types.Zone{Start: startSec, End: endSec})
	d.notify(ChangeAppended)
}

func (d *Document) Clear() {
	d.blocks = nil
	d.zones = nil
	d.notify(ChangeCleared)
}

// Text returns the plain text of the whole document.
func (d *Document) Text() string {
	parts := make([]string, len(d.blocks))
	for i, b := range d.blocks {
		parts[i] = b.Text()
	}
	return strings.Join(parts, "\n")
}

// Len is the rune length of Text().
func (d *Document) Len() int {
	ix := d.index()
	if len(ix.blockStart) == 0 {
		return 0
	}
	last := len(ix.blockStart) - 1
	return ix.blockEnd[last]
}

// BlockRange returns the rune range [start, end) of block i, newline excluded.
func (d *Document) BlockRange(i int) (int, int) {
	ix := d.index()
	return ix.blockStart[i], ix.blockEnd[i]
}

// BlockAt returns the block containing pos, or -1.
func (d *Document) BlockAt(pos int) int {
	ix := d.index()
	n := len(ix.blockStart)
	if n == 0 || pos < 0 {
		return -1
	}
	i := sort.Search(n, func(i int) bool { return ix.blockEnd[i] >= pos })
	if i == n {
		return n - 1
	}
	return i
}

// span is one token located in the text.
type span struct {
	block, token int
	start, end   int
}

type index struct {
	spans      []span
	blockStart []int
	blockEnd   []int
}

func (d *Document) index() *index {
	if d.idx != nil {
		return d.idx
	}
	ix := &index{}
	pos := 0
	for bi, b := range d.blocks {
		if bi > 0 {
			pos++ // newline
		}
		ix.blockStart = append(ix.blockStart, pos)
		for ti, t := range b.Tokens {
			if ti > 0 {
				pos++ // space
			}
			n := utf8.RuneCountInString(t.Text)
			ix.spans = append(ix.spans, span{block: bi, token: ti, start: pos, end: pos + n})
			pos += n
		}
		ix.blockEnd = append(ix.blockEnd, pos)
	}
	d.idx = ix
	return ix
}

// Word describes the token found at a position.
type Word struct {
	Block, Token int
	Start, End   int
	Text, Href   string
}

func (d *Document) word(s span) Word {
	t := d.blocks[s.block].Tokens[s.token]
	return Word{Block: s.block, Token: s.token, Start: s.start, End: s.end, Text: t.Text, Href: t.Href}
}

// WordAt returns the word under a caret at pos: the caret may sit before,
// inside, or just after the word.
func (d *Document) WordAt(pos int) (Word, bool) {
	ix := d.index()
	i := sort.Search(len(ix.spans), func(i int) bool { return ix.spans[i].end >= pos })
	if i < len(ix.spans) && ix.spans[i].start <= pos {
		return d.word(ix.spans[i]), true
	}
	return Word{}, false
}

// covering returns the token whose characters include pos.
func (d *Document) covering(pos int) (span, bool) {
	ix := d.index()
	i := sort.Search(len(ix.spans), func(i int) bool { return ix.spans[i].end > pos })
	if i < len(ix.spans) && ix.spans[i].start <= pos {
		return ix.spans[i], true
	}
	return span{}, false
}

// AnchorAt returns the href of the token covering pos, or "".
func (d *Document) AnchorAt(pos int) string {
	s, ok := d.covering(pos)
	if !ok {
		return ""
	}
	return d.blocks[s.block].Tokens[s.token].Href
}

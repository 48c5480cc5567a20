// Package selection tracks either a character range or a set of blocks,
// never both at once.
package selection

import "sort"

type Modifiers struct {
	Ctrl  bool
	Shift bool
}

type Model struct {
	anchor, head int
	blocks       []int
	lastClicked  int
}

func New() *Model { return &Model{lastClicked: -1} }

// SetChar replaces the character selection and clears the block selection
// when the range is non-empty.
func (m *Model) SetChar(anchor, head int) {
	m.anchor, m.head = anchor, head
	if anchor != head {
		m.blocks = nil
	}
}

// Caret collapses the character selection at pos.
func (m *Model) Caret(pos int) { m.anchor, m.head = pos, pos }

func (m *Model) CaretPos() int { return m.head }

// Anchor is the fixed end of the character selection.
func (m *Model) Anchor() int { return m.anchor }

// CharRange returns the ordered character selection.
func (m *Model) CharRange() (int, int) {
	if m.anchor <= m.head {
		return m.anchor, m.head
	}
	return m.head, m.anchor
}

func (m *Model) HasChar() bool   { return m.anchor != m.head }
func (m *Model) HasBlocks() bool { return len(m.blocks) > 0 }

// Click applies a block click gesture. The character selection is dropped
// and the caret is left where it was; callers move it to the block end.
func (m *Model) Click(i int, mods Modifiers) {
	m.anchor = m.head
	switch {
	case mods.Ctrl:
		if k := m.find(i); k >= 0 {
			m.blocks = append(m.blocks[:k], m.blocks[k+1:]...)
			return
		}
		m.blocks = append(m.blocks, i)
	case mods.Shift && m.lastClicked >= 0:
		lo, hi := min(i, m.lastClicked), max(i, m.lastClicked)
		for b := lo; b <= hi; b++ {
			if m.find(b) < 0 {
				m.blocks = append(m.blocks, b)
			}
		}
	default:
		m.blocks = []int{i}
	}
	m.lastClicked = i
}

func (m *Model) find(i int) int {
	for k, b := range m.blocks {
		if b == i {
			return k
		}
	}
	return -1
}

func (m *Model) IsSelected(i int) bool { return m.find(i) >= 0 }

func (m *Model) LastClicked() int { return m.lastClicked }

// SelectedBlocks returns the selected block indices in ascending order.
func (m *Model) SelectedBlocks() []int {
	out := append([]int(nil), m.blocks...)
	sort.Ints(out)
	return out
}

// ClearBlocks drops the block selection and forgets the shift anchor.
func (m *Model) ClearBlocks() {
	m.blocks = nil
	m.lastClicked = -1
}

// Reset clears everything, as after a new recognition run.
func (m *Model) Reset() {
	m.anchor, m.head = 0, 0
	m.ClearBlocks()
}

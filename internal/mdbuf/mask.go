package mdbuf

import (
	"fmt"
	"sort"
)

// Mask is a set of stream offset spans, used to decide which buffered bytes
// are included in final output. Spans are kept sorted, disjoint, and
// coalesced; they may be added and removed efficiently.
type Mask struct {
	spans []span
}

type span struct{ start, end int64 }

func (s span) empty() bool { return s.end <= s.start }

// Add includes [start, end) in the mask, merging any overlapping or touching
// spans.
func (m *Mask) Add(start, end int64) {
	if end <= start {
		return
	}
	i := sort.Search(len(m.spans), func(i int) bool { return m.spans[i].end >= start })
	j := sort.Search(len(m.spans), func(i int) bool { return m.spans[i].start > end })
	add := span{start, end}
	if i < j {
		if s := m.spans[i].start; s < add.start {
			add.start = s
		}
		if e := m.spans[j-1].end; e > add.end {
			add.end = e
		}
	}
	m.replace(i, j, add)
}

// Sub removes [start, end) from the mask, fragmenting any partially covered
// span.
func (m *Mask) Sub(start, end int64) {
	if end <= start {
		return
	}
	i := sort.Search(len(m.spans), func(i int) bool { return m.spans[i].end > start })
	j := sort.Search(len(m.spans), func(i int) bool { return m.spans[i].start >= end })
	if i >= j {
		return
	}
	head := span{m.spans[i].start, start}
	tail := span{end, m.spans[j-1].end}
	var keep []span
	if !head.empty() {
		keep = append(keep, head)
	}
	if !tail.empty() {
		keep = append(keep, tail)
	}
	m.replace(i, j, keep...)
}

// replace replaces spans[i:j] with with.
func (m *Mask) replace(i, j int, with ...span) {
	tail := append([]span(nil), m.spans[j:]...)
	m.spans = append(append(m.spans[:i], with...), tail...)
}

// Reset removes everything from the mask.
func (m *Mask) Reset() { m.spans = m.spans[:0] }

// Spans calls each with every span in order, stopping early if each returns
// false.
func (m *Mask) Spans(each func(start, end int64) bool) {
	for _, s := range m.spans {
		if !each(s.start, s.end) {
			return
		}
	}
}

// AppendMasked appends the bytes of buf within [start, end) that are also
// within the mask to dst.
func (m *Mask) AppendMasked(dst []byte, buf *Buffer, start, end int64) []byte {
	m.Spans(func(s, e int64) bool {
		if s < start {
			s = start
		}
		if e > end {
			e = end
		}
		if s < e {
			dst = append(dst, buf.Slice(s, e)...)
		}
		return s < end
	})
	return dst
}

// Format writes the mask's spans as "@start:end" terms.
func (m Mask) Format(f fmt.State, _ rune) {
	f.Write([]byte("["))
	for i, s := range m.spans {
		if i > 0 {
			f.Write([]byte(" "))
		}
		fmt.Fprintf(f, "@%v:%v", s.start, s.end)
	}
	f.Write([]byte("]"))
}

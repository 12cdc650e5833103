package htmd

import (
	"math"
	"sort"

	"github.com/jcorbin/htmd/internal/mdbuf"
)

// region is an include or exclude decision over the output of one element.
type region struct {
	n       *Node
	include bool
	depth   int
	before  bool  // covers all output before start
	start   int64 // fixed once n exits, or for before regions
	end     int64 // -1 while n is open
}

func (r *region) span(offset int64) (start, end int64) {
	switch {
	case r.before:
		return 0, r.end
	case r.end >= 0:
		return r.start, r.end
	case r.n.start >= 0:
		return r.n.start, offset
	}
	return 0, 0
}

// regions resolves buffer regions into a mask over output bytes: the default
// decision first, then every region in ascending depth order, so that the
// innermost decision wins.
type regions struct {
	list    []*region
	exclude bool // exclude everything not included by a region
	mask    mdbuf.Mask
}

func (rs *regions) add(r *region) {
	i := sort.Search(len(rs.list), func(i int) bool { return rs.list[i].depth > r.depth })
	rs.list = append(rs.list, nil)
	copy(rs.list[i+1:], rs.list[i:])
	rs.list[i] = r
}

func (rs *regions) node(n *Node, include bool) {
	rs.add(&region{n: n, include: include, depth: n.Depth, end: -1})
}

func (rs *regions) excludeBefore(n *Node) {
	rs.add(&region{n: n, depth: math.MaxInt, before: true, end: n.start})
}

// finish fixes the spans of all regions over n, which is exiting.
func (rs *regions) finish(n *Node, end int64) {
	j := 0
	for _, r := range rs.list {
		if r.n == n && !r.before && r.end < 0 {
			if n.start < 0 {
				continue
			}
			r.start, r.end = n.start, end
		}
		rs.list[j] = r
		j++
	}
	clear(rs.list[j:])
	rs.list = rs.list[:j]
}

// truncate forgets about regions within output of n that has been replaced
// from offset at.
func (rs *regions) truncate(n *Node, at int64) {
	j := 0
	for _, r := range rs.list {
		if r.before {
			if r.end > at {
				r.end = at
			}
		} else if r.n != n {
			if start, _ := r.span(at); r.end >= 0 && start >= at {
				continue
			}
		}
		rs.list[j] = r
		j++
	}
	clear(rs.list[j:])
	rs.list = rs.list[:j]
}

// gc drops regions entirely before offset.
func (rs *regions) gc(offset int64) {
	j := 0
	for _, r := range rs.list {
		if r.end >= 0 && r.end <= offset {
			continue
		}
		rs.list[j] = r
		j++
	}
	clear(rs.list[j:])
	rs.list = rs.list[:j]
}

// resolve appends the included bytes of buf within [lo, hi) to dst, with
// offset being the current end of output.
func (rs *regions) resolve(dst []byte, buf *mdbuf.Buffer, lo, hi, offset int64) []byte {
	if len(rs.list) == 0 && !rs.exclude {
		return append(dst, buf.Slice(lo, hi)...)
	}
	m := &rs.mask
	m.Reset()
	if !rs.exclude {
		m.Add(lo, hi)
	}
	for _, r := range rs.list {
		start, end := r.span(offset)
		if start < lo {
			start = lo
		}
		if end > hi {
			end = hi
		}
		if r.include {
			m.Add(start, end)
		} else {
			m.Sub(start, end)
		}
	}
	return m.AppendMasked(dst, buf, lo, hi)
}

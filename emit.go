package htmd

import (
	"strings"

	"github.com/jcorbin/htmd/internal/mdbuf"
)

// cursor tracks where output stands, along with any separation requested
// before the next content.
type cursor struct {
	started  bool   // any content written
	trail    int    // line endings written since the last content
	spaced   bool   // the last byte written is a space
	nl       int    // pending newlines, at most 2
	nlPrefix string // line prefix for pending blank lines
	ws       bool   // pending inter-word space
	brk      bool   // pending hard line break
	ticks    int    // backticks ending the current line
}

func (c cursor) lineStart() bool { return !c.started || c.trail > 0 }

// pending is an entered node whose opening fragment waits for content.
type pending struct {
	n         *Node
	enter     func(*Node, *Options) string
	prefixLen int
}

// emitter writes Markdown fragments into an offset addressed buffer.
//
// Separation (newlines, spaces, hard breaks) is only requested, and is
// written once following content is, so output never starts or ends with
// it. Likewise opening fragments are queued until content is written within
// their element, so empty elements produce nothing. The queue is always a
// suffix of the open element stack.
type emitter struct {
	opts *Options
	out  mdbuf.Buffer
	cursor

	fresh  bool   // a block opener is queued; block requests are absorbed
	prefix string // line prefix
	marks  []int  // prefix lengths before each push
	queue  []pending
}

// block requests n newlines before the next content.
func (e *emitter) block(n int) {
	if e.fresh || n <= 0 {
		return
	}
	if n > 2 {
		n = 2
	}
	if e.nl == 0 || len(e.prefix) < len(e.nlPrefix) {
		e.nlPrefix = e.prefix
	}
	if n > e.nl {
		e.nl = n
	}
}

func (e *emitter) space()     { e.ws = true }
func (e *emitter) dropSpace() { e.ws = false }
func (e *emitter) hardBreak() { e.brk = true }

func (e *emitter) pushPrefix(p string) {
	e.marks = append(e.marks, len(e.prefix))
	e.prefix += p
}

func (e *emitter) popPrefix() {
	i := len(e.marks) - 1
	e.prefix = e.prefix[:e.marks[i]]
	e.marks = e.marks[:i]
}

// enqueue defers writing n's opening fragment until content follows.
func (e *emitter) enqueue(n *Node, enter func(*Node, *Options) string) {
	e.queue = append(e.queue, pending{n, enter, len(e.prefix)})
	n.queued = true
	if enter != nil && !n.h.Inline {
		e.fresh = true
	}
}

// dequeue abandons the queued opener of n, which must be the last queued.
func (e *emitter) dequeue(n *Node) {
	if i := len(e.queue) - 1; i >= 0 && e.queue[i].n == n {
		e.queue = e.queue[:i]
	}
	n.queued = false
	e.fresh = false
	for _, p := range e.queue {
		if p.enter != nil && !p.n.h.Inline {
			e.fresh = true
		}
	}
}

// materialize writes any requested separation and queued openers, in
// preparation for content.
func (e *emitter) materialize() {
	e.fresh = false
	at, snap := e.out.Offset(), e.cursor
	if e.started {
		switch {
		case e.nl > 0:
			for i := e.trail; i < e.nl; i++ {
				if i > 0 {
					e.out.WriteString(strings.TrimRight(e.nlPrefix, " "))
				}
				e.out.WriteByte('\n')
			}
			if e.trail < e.nl {
				e.trail = e.nl
			}
			e.ticks = 0
		case e.brk && e.trail == 0:
			e.out.WriteString("  \n")
			e.trail = 1
			e.ticks = 0
		case e.ws && e.trail == 0 && !e.spaced:
			e.out.WriteByte(' ')
			e.spaced = true
			e.ticks = 0
		}
	}
	e.nl, e.nlPrefix, e.ws, e.brk = 0, "", false, false

	for i, p := range e.queue {
		n := p.n
		if i == 0 {
			n.start, n.snap = at, snap
		} else {
			n.start, n.snap = e.out.Offset(), e.cursor
		}
		n.body = e.out.Offset()
		n.queued, n.opened = false, true
		if p.enter != nil {
			e.write(p.enter(n, e.opts), e.prefix[:p.prefixLen])
		}
	}
	e.queue = e.queue[:0]
}

// write writes s, with prefix at the start of every line.
func (e *emitter) write(s, prefix string) {
	for len(s) > 0 {
		line, rest, nl := strings.Cut(s, "\n")
		if line != "" {
			if e.lineStart() {
				e.out.WriteString(prefix)
			}
			e.out.WriteString(line)
			e.trail = 0
			e.spaced = line[len(line)-1] == ' '
			if n := trailingTicks(line); n == len(line) {
				e.ticks += n
			} else {
				e.ticks = n
			}
		} else if nl && e.lineStart() {
			e.out.WriteString(strings.TrimRight(prefix, " "))
		}
		if nl {
			e.out.WriteByte('\n')
			e.trail++
			e.spaced = false
			e.ticks = 0
		}
		e.started = true
		s = rest
	}
}

// emit writes content.
func (e *emitter) emit(s string) {
	if s == "" {
		return
	}
	e.materialize()
	e.write(s, e.prefix)
}

// close writes a closing fragment right after prior content, ignoring any
// pending separation.
func (e *emitter) close(s string) {
	if e.lineStart() {
		s = strings.TrimPrefix(s, "\n")
	}
	if s != "" {
		e.write(s, e.prefix)
	}
}

// replace overwrites all output from offset at with s, taken as is.
func (e *emitter) replace(at int64, s string) {
	e.out.Truncate(at)
	e.out.WriteString(s)
	body := strings.TrimRight(s, "\n")
	if body != "" {
		e.started = true
		e.trail = 0
		e.spaced = body == s && s[len(s)-1] == ' '
	}
	if len(body) < len(s) {
		e.trail += len(s) - len(body)
		e.spaced = false
	}
	e.ticks = 0
	if body == s {
		e.ticks = trailingTicks(s[strings.LastIndexByte(s, '\n')+1:])
	}
}

func trailingTicks(s string) int {
	return len(s) - len(strings.TrimRight(s, "`"))
}

// rewind discards all output of n, restoring the state before it started.
func (e *emitter) rewind(n *Node) {
	e.out.Truncate(n.start)
	cur := e.cursor
	e.cursor = n.snap
	if cur.nl > e.nl {
		e.nl, e.nlPrefix = cur.nl, cur.nlPrefix
	}
	n.start, n.body, n.opened = -1, -1, false
}

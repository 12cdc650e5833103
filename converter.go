package htmd

import (
	"errors"
	"log/slog"
	"maps"
	"strings"

	"github.com/jcorbin/htmd/internal/mdbuf"
	"github.com/jcorbin/htmd/scanhtml"
)

// ErrClosed is returned when writing to a closed Converter.
var ErrClosed = errors.New("converter closed")

// Converter converts a stream of HTML, written in arbitrary chunks, into
// Markdown that may be taken as it becomes final.
//
// Only the chain of open elements is kept: every token is processed as soon
// as it is complete, which may be before the next chunk arrives. Markdown is
// retained until taken, so that buffer region decisions can apply to it.
//
// A Converter is not safe to use from concurrent goroutines.
type Converter struct {
	opts     Options
	handlers Handlers
	hooks    pipeline
	state    State
	log      *slog.Logger

	tok    scanhtml.Tokenizer
	in     []byte
	err    error
	closed bool

	root  Node
	stack []*Node

	e       emitter
	regions regions
	trim    mdbuf.TrimWriter
	taken   []byte

	density float64
	result  map[string]any
}

// NewConverter creates a converter for one document, initializing all of
// its plugins; any Initializer error is returned.
func NewConverter(opts Options) (*Converter, error) {
	strategy, err := strategyPlugins(opts.Strategy)
	if err != nil {
		return nil, err
	}

	c := &Converter{opts: opts}
	c.log = c.opts.logger()
	c.state.c = c
	c.e.opts = &c.opts
	if opts.Handlers != nil {
		c.handlers = *opts.Handlers
	} else {
		c.handlers = defaultHandlers
	}
	c.root.start, c.root.body = -1, -1

	for _, p := range strategy {
		c.hooks.add(p)
	}
	for _, p := range opts.Plugins {
		c.hooks.add(p)
	}
	for _, p := range c.hooks.inits {
		if err := p.Init(&c.state); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// State returns the conversion's runtime state.
func (c *Converter) State() *State { return &c.state }

// Write converts another chunk of HTML. Errors are sticky: once a plugin
// hook fails, all further writes return its error.
func (c *Converter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	if c.closed {
		return 0, ErrClosed
	}
	c.in = append(c.in, p...)
	if err := c.scan(false); err != nil {
		c.err = err
		return 0, err
	}
	return len(p), nil
}

// WriteString is Write for a string chunk.
func (c *Converter) WriteString(s string) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	if c.closed {
		return 0, ErrClosed
	}
	c.in = append(c.in, s...)
	if err := c.scan(false); err != nil {
		c.err = err
		return 0, err
	}
	return len(s), nil
}

// Close converts any remaining input, implicitly closing all open elements,
// and then calls all Finishers.
func (c *Converter) Close() error {
	if c.closed {
		return c.err
	}
	c.closed = true
	if c.err == nil {
		c.err = c.finish()
	}
	return c.err
}

func (c *Converter) finish() error {
	if err := c.scan(true); err != nil {
		return err
	}
	if err := c.popTo(0); err != nil {
		return err
	}
	for _, f := range c.hooks.finishers {
		res, err := f.Finish(&c.state)
		if err != nil {
			return err
		}
		if len(res) > 0 {
			if c.result == nil {
				c.result = make(map[string]any, len(res))
			}
			maps.Copy(c.result, res)
		}
	}
	return nil
}

// Result returns the merged results of all Finishers, available after Close.
func (c *Converter) Result() map[string]any { return c.result }

// Buffered returns how many bytes of Markdown are retained, not yet taken.
func (c *Converter) Buffered() int { return c.e.out.Len() }

// Density returns the running content density score; see State.Density.
func (c *Converter) Density() float64 { return c.density }

// ShouldBuffer returns true if any BufferController asks for output to be
// withheld.
func (c *Converter) ShouldBuffer() bool {
	for _, b := range c.hooks.buffers {
		if b.ShouldBuffer(&c.state) {
			return true
		}
	}
	return false
}

// Take returns all final Markdown not yet taken. Output of elements whose
// content may still be transformed, or subjected to a deferred buffer region
// decision, is not final until they exit; force takes it anyhow, in which
// case later changes to it are lost.
//
// Once the converter has been closed, Take returns all remaining output.
// Leading and trailing whitespace of the document is never returned, so the
// concatenation of all taken chunks is independent of when Take is called.
func (c *Converter) Take(force bool) string {
	return c.takeUpTo(c.e.out.Offset(), force)
}

// Bytes returns the retained Markdown, including any that is not yet final,
// and not yet resolved through buffer regions. It is only valid until the
// next write.
func (c *Converter) Bytes() []byte { return c.e.out.Slice(c.e.out.Base(), c.e.out.Offset()) }

func (c *Converter) takeUpTo(hi int64, force bool) string {
	if !force {
		for _, n := range c.stack {
			if n.held && n.enterAt < hi {
				hi = n.enterAt
				break
			}
		}
	}
	lo := c.e.out.Base()
	if hi <= lo {
		return ""
	}
	var sb strings.Builder
	c.trim.To = &sb
	c.taken = c.regions.resolve(c.taken[:0], &c.e.out, lo, hi, c.e.out.Offset())
	c.trim.Write(c.taken)
	c.e.out.Discard(hi)
	c.regions.gc(hi)
	return sb.String()
}

func (c *Converter) top() *Node {
	if i := len(c.stack) - 1; i >= 0 {
		return c.stack[i]
	}
	return nil
}

// scan processes every complete token of buffered input.
func (c *Converter) scan(atEOF bool) error {
	off := 0
	defer func() {
		c.in = append(c.in[:0], c.in[off:]...)
	}()
	for off < len(c.in) {
		advance, token, err := c.tok.Scan(c.in[off:], atEOF)
		if err != nil {
			return err
		}
		if advance == 0 {
			break
		}
		off += advance
		if token != nil {
			if err := c.token(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Converter) token() error {
	t := &c.tok
	switch t.Type() {
	case scanhtml.TextToken:
		return c.text(t.Text(), true)
	case scanhtml.RawTextToken:
		top := c.top()
		return c.text(t.Text(), top != nil && (top.Tag == scanhtml.Title || top.Tag == scanhtml.Textarea))
	case scanhtml.StartTagToken:
		return c.startTag(t.Tag(), t.TagName(), t.RawAttrs(), false)
	case scanhtml.SelfClosingTagToken:
		return c.startTag(t.Tag(), t.TagName(), t.RawAttrs(), true)
	case scanhtml.EndTagToken:
		return c.endTag(t.Tag(), t.TagName())
	}
	return nil
}

func (c *Converter) startTag(tag scanhtml.TagID, name string, attrs []byte, selfClosing bool) error {
	if err := c.implicitClose(tag); err != nil {
		return err
	}
	n := c.push(ElementNode, tag, name)
	if len(attrs) > 0 {
		n.rawAttrs = append([]byte(nil), attrs...)
	} else {
		n.parsed = true
	}
	if err := c.enter(n); err != nil {
		return err
	}
	if selfClosing || tag.Void() {
		return c.pop()
	}
	return nil
}

func (c *Converter) endTag(tag scanhtml.TagID, name string) error {
	if tag == scanhtml.Br {
		return c.startTag(tag, name, nil, true)
	}
	var stop func(scanhtml.TagID) bool
	switch tag {
	case scanhtml.Table:
	case scanhtml.Caption, scanhtml.Thead, scanhtml.Tbody, scanhtml.Tfoot, scanhtml.Tr, scanhtml.Td, scanhtml.Th:
		stop = isTable
	default:
		stop = tableScope
	}
	i := c.find(func(n *Node) bool {
		if tag != scanhtml.Unknown {
			return n.Tag == tag
		}
		return n.Tag == scanhtml.Unknown && n.Name == name
	}, stop)
	if i < 0 {
		c.log.Debug("ignoring unmatched end tag", "tag", name, "top", c.top())
		return nil
	}
	if i < len(c.stack)-1 {
		c.log.Debug("implicitly closing elements", "tag", name, "count", len(c.stack)-1-i)
	}
	return c.popTo(i)
}

// find returns the stack index of the innermost open element matching, or -1
// if there is none, or if a stop element is found first.
func (c *Converter) find(match func(*Node) bool, stop func(scanhtml.TagID) bool) int {
	for i := len(c.stack) - 1; i >= 0; i-- {
		n := c.stack[i]
		if match(n) {
			return i
		}
		if stop != nil && stop(n.Tag) {
			return -1
		}
	}
	return -1
}

// closeOpen closes the innermost open element among tags, and all elements
// within it, unless a stop element is found first.
func (c *Converter) closeOpen(stop func(scanhtml.TagID) bool, tags ...scanhtml.TagID) error {
	i := c.find(func(n *Node) bool {
		for _, tag := range tags {
			if n.Tag == tag {
				return true
			}
		}
		return false
	}, stop)
	if i < 0 {
		return nil
	}
	return c.popTo(i)
}

// implicitClose closes any open elements that the start of a tag element
// ends, following HTML's optional end tag rules.
func (c *Converter) implicitClose(tag scanhtml.TagID) error {
	if !headContent(tag) && c.inHead() {
		if err := c.closeOpen(nil, scanhtml.Head); err != nil {
			return err
		}
	}
	if closesP(tag) {
		if err := c.closeOpen(buttonScope, scanhtml.P); err != nil {
			return err
		}
	}
	if tag.Heading() > 0 {
		if top := c.top(); top != nil && top.Tag.Heading() > 0 {
			if err := c.pop(); err != nil {
				return err
			}
		}
	}
	switch tag {
	case scanhtml.Li:
		return c.closeOpen(listScope, scanhtml.Li)
	case scanhtml.Dt, scanhtml.Dd:
		return c.closeOpen(dlScope, scanhtml.Dt, scanhtml.Dd)
	case scanhtml.Tr:
		return c.closeOpen(sectionScope, scanhtml.Tr)
	case scanhtml.Td, scanhtml.Th:
		return c.closeOpen(rowScope, scanhtml.Td, scanhtml.Th)
	case scanhtml.Thead, scanhtml.Tbody, scanhtml.Tfoot:
		return c.closeOpen(isTable, scanhtml.Thead, scanhtml.Tbody, scanhtml.Tfoot)
	case scanhtml.Option:
		if top := c.top(); top != nil && top.Tag == scanhtml.Option {
			return c.pop()
		}
	case scanhtml.Optgroup:
		return c.closeOpen(isSelect, scanhtml.Optgroup, scanhtml.Option)
	}
	return nil
}

func headContent(tag scanhtml.TagID) bool {
	switch tag {
	case scanhtml.Title, scanhtml.Meta, scanhtml.Link, scanhtml.Style, scanhtml.Script,
		scanhtml.Base, scanhtml.Noscript, scanhtml.Template:
		return true
	}
	return false
}

func closesP(tag scanhtml.TagID) bool {
	switch tag {
	case scanhtml.Address, scanhtml.Article, scanhtml.Aside, scanhtml.Blockquote,
		scanhtml.Center, scanhtml.Details, scanhtml.Dialog, scanhtml.Dir, scanhtml.Div,
		scanhtml.Dl, scanhtml.Dd, scanhtml.Dt, scanhtml.Fieldset, scanhtml.Figcaption,
		scanhtml.Figure, scanhtml.Footer, scanhtml.Form, scanhtml.Header, scanhtml.Hgroup,
		scanhtml.Hr, scanhtml.Li, scanhtml.Listing, scanhtml.Main, scanhtml.Menu,
		scanhtml.Nav, scanhtml.Ol, scanhtml.P, scanhtml.Plaintext, scanhtml.Pre,
		scanhtml.Search, scanhtml.Section, scanhtml.Summary, scanhtml.Table,
		scanhtml.Ul, scanhtml.Xmp:
		return true
	}
	return tag.Heading() > 0
}

func isTable(tag scanhtml.TagID) bool  { return tag == scanhtml.Table }
func isSelect(tag scanhtml.TagID) bool { return tag == scanhtml.Select }

func tableScope(tag scanhtml.TagID) bool {
	switch tag {
	case scanhtml.Table, scanhtml.Td, scanhtml.Th, scanhtml.Caption, scanhtml.Template, scanhtml.Html:
		return true
	}
	return false
}

func buttonScope(tag scanhtml.TagID) bool {
	return tableScope(tag) || tag == scanhtml.Button || tag == scanhtml.Object
}

func listScope(tag scanhtml.TagID) bool {
	switch tag {
	case scanhtml.Ul, scanhtml.Ol, scanhtml.Menu, scanhtml.Dir:
		return true
	}
	return tableScope(tag)
}

func dlScope(tag scanhtml.TagID) bool { return tag == scanhtml.Dl || tableScope(tag) }

func sectionScope(tag scanhtml.TagID) bool {
	switch tag {
	case scanhtml.Table, scanhtml.Thead, scanhtml.Tbody, scanhtml.Tfoot:
		return true
	}
	return false
}

func rowScope(tag scanhtml.TagID) bool { return tag == scanhtml.Tr || isTable(tag) }

// push opens a new node within the current top of stack.
func (c *Converter) push(kind NodeKind, tag scanhtml.TagID, name string) *Node {
	n := c.newNode(kind, tag)
	n.Name = name
	c.stack = append(c.stack, n)
	return n
}

func (c *Converter) newNode(kind NodeKind, tag scanhtml.TagID) *Node {
	n := &Node{Kind: kind, Tag: tag, start: -1, body: -1}
	parent := c.top()
	if parent != nil {
		n.Parent = parent
		n.Depth = parent.Depth + 1
		n.DepthMap = parent.DepthMap
		n.skipped = parent.skipped
		n.suppressed = parent.suppressed || parent.h.Drop
		n.verbatim = parent.verbatim || parent.h.Verbatim
		n.vroot = parent.vroot
		if parent.h.Verbatim && !parent.verbatim {
			n.vroot = parent
		}
		parent.addChild(n)
	} else {
		n.Depth = 1
		c.root.addChild(n)
	}
	if kind == ElementNode {
		n.h = &c.handlers[tag]
		if n.DepthMap[tag] < 255 {
			n.DepthMap[tag]++
		}
	}
	return n
}

func (c *Converter) pop() error {
	i := len(c.stack) - 1
	n := c.stack[i]
	err := c.exit(n)
	c.stack[i] = nil
	c.stack = c.stack[:i]
	return err
}

// popTo closes elements until only i remain open.
func (c *Converter) popTo(i int) error {
	for len(c.stack) > i {
		if err := c.pop(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Converter) enter(n *Node) error {
	n.enterAt = c.e.out.Offset()
	if n.skipped {
		return nil
	}
	h := n.h
	if h.UsesAttributes {
		n.Attrs()
	}

	for _, f := range c.hooks.filters {
		skip, err := f.BeforeNodeProcess(n, &c.state)
		if err != nil {
			return err
		}
		if skip {
			n.skipped = true
			return nil
		}
	}
	for _, t := range c.hooks.transforms {
		if t.WantsContent(n, &c.state) {
			n.wants = append(n.wants, t)
			n.held = true
		}
	}
	if h.CodeSpan && !n.verbatim {
		n.held = true
	}
	if !n.suppressed && !n.verbatim {
		if !h.Inline {
			c.e.dropSpace()
		}
		if h.Break {
			switch {
			case n.inCell():
				c.e.emit("<br>")
			case n.inHeading():
				c.e.space()
			default:
				c.e.hardBreak()
			}
		}
		c.separate(n, h.spacing(n).Before)
	}

	for _, hook := range c.hooks.enters {
		s, err := hook.OnNodeEnter(n, &c.state)
		if err != nil {
			return err
		}
		if !n.suppressed {
			c.emitHook(n, s)
		}
	}

	switch {
	case n.suppressed:
		return nil

	case n.verbatim:
		switch {
		case h.Break:
			c.e.emit("\n")
		case n.Tag == scanhtml.Code && n.vroot.lang == "":
			n.vroot.lang = codeLanguage(n)
		}
		c.e.enqueue(n, nil)
		return nil
	}

	switch n.Tag {
	case scanhtml.Table:
		n.table = &tableState{}
	case scanhtml.Td, scanhtml.Th:
		if t := n.closestTable(); t != nil && t.rows == 0 {
			t.aligns = append(t.aligns, cellAlign(n))
		}
	}
	if h.Verbatim {
		n.lang = codeLanguage(n)
	}

	switch {
	case h.Enter == nil:
		c.e.enqueue(n, nil)
	case h.Eager:
		if s := h.Enter(n, &c.opts); s != "" {
			c.e.enqueue(n, static(s))
			c.e.materialize()
		} else {
			c.e.enqueue(n, nil)
		}
	default:
		c.e.enqueue(n, h.Enter)
	}

	if h.Prefix != "" {
		c.e.pushPrefix(h.Prefix)
		n.prefixed = true
	}
	return nil
}

// separate requests newlines around a block element, or just a space within
// a table cell or heading, which must stay on one line.
func (c *Converter) separate(n *Node, newlines int) {
	switch {
	case newlines <= 0:
	case n.inCell() || n.inHeading():
		c.e.space()
	default:
		c.e.block(newlines)
	}
}

func (c *Converter) exit(n *Node) error {
	if n.skipped {
		return nil
	}
	if n.h.CodeSpan && !n.verbatim && !n.suppressed {
		c.codeSpan(n)
	}
	if len(n.wants) > 0 {
		if err := c.transformContent(n); err != nil {
			return err
		}
	}
	for _, hook := range c.hooks.exits {
		s, err := hook.OnNodeExit(n, &c.state)
		if err != nil {
			return err
		}
		if !n.suppressed {
			c.emitHook(n, s)
		}
	}

	if !n.suppressed {
		h := n.h
		if n.prefixed {
			c.e.popPrefix()
		}
		if n.queued {
			c.e.dequeue(n)
		} else if n.opened && !n.verbatim && h.Exit != nil {
			c.e.close(h.Exit(n, &c.opts))
		}
		if !n.verbatim {
			if n.Tag == scanhtml.Tr {
				if t := n.closestTable(); t != nil && n.count(scanhtml.Td) > 0 {
					if t.rows == 0 {
						t.cols = n.count(scanhtml.Td)
					}
					t.rows++
				}
			}
			if !h.Inline {
				c.e.dropSpace()
			}
			c.separate(n, h.spacing(n).After)
		}
	}

	c.regions.finish(n, c.e.out.Offset())
	n.held = false
	return nil
}

// codeSpan pads the content of an inline code span holding backticks with a
// longer run of them, completing the delimiters written by its handler.
func (c *Converter) codeSpan(n *Node) {
	if n.body < c.e.out.Base() {
		return
	}
	content := string(c.e.out.Slice(n.body, c.e.out.Offset()))
	run, longest := 0, 0
	for i := 0; i < len(content); i++ {
		if content[i] != '`' {
			run = 0
			continue
		}
		run++
		longest = max(longest, run)
	}
	if longest == 0 {
		return
	}
	ticks := strings.Repeat("`", longest)
	c.regions.truncate(n, n.body)
	c.e.replace(n.body, ticks+" "+content+" "+ticks)
}

// transformContent passes n's output through all transformers that want it.
func (c *Converter) transformContent(n *Node) error {
	var content string
	if n.body >= 0 {
		if n.body < c.e.out.Base() {
			c.log.Debug("content already taken, not transforming", "node", n)
			return nil
		}
		offset := c.e.out.Offset()
		content = string(c.regions.resolve(nil, &c.e.out, n.body, offset, offset))
	}
	out := content
	for _, t := range n.wants {
		s, err := t.TransformContent(out, n, &c.state)
		if err != nil {
			return err
		}
		out = s
	}
	switch {
	case out == content:
	case n.body < 0:
		c.e.emit(out)
	case out == "" && n.start >= c.e.out.Base():
		c.regions.truncate(n, n.start)
		c.e.rewind(n)
	default:
		c.regions.truncate(n, n.body)
		c.e.replace(n.body, out)
	}
	return nil
}

func (c *Converter) text(raw []byte, decode bool) error {
	if top := c.top(); top != nil && top.Tag == scanhtml.Head && !blank(raw) {
		if err := c.pop(); err != nil {
			return err
		}
	}

	var s string
	if decode {
		s = scanhtml.Unescape(raw)
	} else {
		s = string(raw)
	}
	if strings.IndexByte(s, '\r') >= 0 {
		s = strings.ReplaceAll(s, "\r\n", "\n")
		s = strings.ReplaceAll(s, "\r", "\n")
	}

	n := c.newNode(TextNode, scanhtml.Unknown)
	n.Value = s
	if n.skipped {
		return nil
	}

	skip := false
	for _, p := range c.hooks.texts {
		res, err := p.ProcessTextNode(n, &c.state)
		if err != nil {
			return err
		}
		if res.Replace {
			n.Value = res.Content
		}
		if res.Skip {
			skip = true
		}
	}
	if !skip && !n.suppressed {
		c.writeText(n)
	}
	return nil
}

// emitHook writes plugin hook output. Outside verbatim content, its
// trailing line endings are requested as separation, so that they merge with
// any separation that follows rather than adding to it.
func (c *Converter) emitHook(n *Node, s string) {
	if n.verbatim {
		c.e.emit(s)
		return
	}
	body := strings.TrimRight(s, "\n")
	c.e.emit(body)
	c.e.block(len(s) - len(body))
}

func (c *Converter) inHead() bool {
	top := c.top()
	return top != nil && top.DepthMap[scanhtml.Head] > 0
}

func blank(b []byte) bool {
	for _, c := range b {
		if !isSpace(rune(c)) {
			return false
		}
	}
	return true
}

func (c *Converter) writeText(n *Node) {
	s := n.Value
	if n.verbatim {
		if root := n.vroot; !root.vtext {
			root.vtext = true
			s = strings.TrimPrefix(s, "\n")
		}
		if s != "" {
			c.e.materialize()
			c.e.write(escapeFences(s, c.e.ticks), c.e.prefix)
			c.density += 1 + 0.1*float64(n.Depth)
		}
		return
	}

	words := strings.FieldsFunc(s, isSpace)
	if len(words) == 0 {
		if s != "" {
			c.e.space()
		}
		return
	}
	if isSpace(rune(s[0])) {
		c.e.space()
	}
	text := strings.Join(words, " ")
	if n.inCell() {
		text = strings.ReplaceAll(text, "|", `\|`)
	}
	c.e.emit(text)
	if isSpace(rune(s[len(s)-1])) {
		c.e.space()
	}
	c.density += 1 + 0.1*float64(n.Depth)
}

// escapeFences escapes every backtick of a run that would reach three, so
// verbatim content can never close its fence; ticks is the length of the run
// already ending the line, which may have been written by earlier text.
func escapeFences(s string, ticks int) string {
	if strings.IndexByte(s, '`') < 0 {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); {
		if s[i] != '`' {
			sb.WriteByte(s[i])
			ticks = 0
			i++
			continue
		}
		j := i
		for j < len(s) && s[j] == '`' {
			j++
		}
		if run := j - i; ticks+run >= 3 {
			sb.WriteString(strings.Repeat("\\`", run))
			ticks = 1
		} else {
			sb.WriteString(s[i:j])
			ticks += run
		}
		i = j
	}
	return sb.String()
}

// isSpace matches HTML's ASCII whitespace, which collapses; other spaces,
// like U+00A0, are content.
func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\f', '\r':
		return true
	}
	return false
}

func (n *Node) inCell() bool { return n.Inside(scanhtml.Td) || n.Inside(scanhtml.Th) }

func (n *Node) inHeading() bool {
	for tag := scanhtml.H1; tag <= scanhtml.H6; tag++ {
		if n.Inside(tag) {
			return true
		}
	}
	return false
}

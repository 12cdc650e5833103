package htmd

import (
	"strings"

	"github.com/jcorbin/htmd/scanhtml"
)

// NodeKind distinguishes element nodes from text nodes.
type NodeKind uint8

// NodeKind constants.
const (
	ElementNode NodeKind = iota + 1
	TextNode
)

// TagCounts counts open elements by tag: a Node's DepthMap counts the node
// itself and all of its ancestors.
type TagCounts [scanhtml.NumTags]uint8

// Node is an element or text node of the document being converted.
//
// Only the chain of currently open elements is live: nodes are discarded once
// they close, so Parent is a lookup aid valid while the node is being
// processed, not an ownership link. Plugins that retain nodes (e.g. in an
// ancestor's context) only observe them.
type Node struct {
	Kind  NodeKind
	Tag   scanhtml.TagID // scanhtml.Unknown for text and unknown elements
	Name  string         // lowercase element name; empty for text
	Value string         // decoded text content; empty for elements
	Depth int            // 1 for top level nodes
	// Parent is the enclosing element, nil at top level.
	Parent *Node

	DepthMap TagCounts

	Index     int // position among the parent's children
	ItemIndex int // position among the parent's element children of the same tag (td and th count together)
	TextIndex int // position among the parent's text children

	rawAttrs []byte
	attrs    []scanhtml.Attr
	parsed   bool
	context  map[string]any

	h          *Handler
	children   int
	texts      int
	items      map[scanhtml.TagID]int
	skipped    bool  // vetoed by a plugin, or within a vetoed element
	suppressed bool  // within an element whose handler drops content
	verbatim   bool  // within a verbatim (pre) element
	held       bool  // output from enterAt may not be flushed until exit
	queued     bool  // entered, but its opener waits for content
	opened     bool  // content started, after any opener was written
	prefixed   bool  // pushed a line prefix
	enterAt    int64 // output offset when entered
	start      int64 // output offset before any separator, -1 until opened
	body       int64 // output offset of the first content, -1 until opened
	snap       cursor
	wants      []ContentTransformer
	vroot      *Node // enclosing verbatim element
	vtext      bool  // the verbatim element has had text
	lang       string
	table      *tableState
}

type tableState struct {
	rows   int
	cols   int
	aligns []string
}

// Attr returns the value of the named attribute, or "" if absent.
func (n *Node) Attr(key string) string {
	for _, a := range n.Attrs() {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasAttr returns true if the element has the named attribute.
func (n *Node) HasAttr(key string) bool {
	for _, a := range n.Attrs() {
		if a.Key == key {
			return true
		}
	}
	return false
}

// Attrs returns all of the element's attributes, parsing them on first use.
func (n *Node) Attrs() []scanhtml.Attr {
	if !n.parsed {
		n.attrs = scanhtml.ParseAttrs(n.rawAttrs)
		n.rawAttrs = nil
		n.parsed = true
	}
	return n.attrs
}

// ID returns the element's id attribute.
func (n *Node) ID() string { return n.Attr("id") }

// HasClass returns true if the element's class attribute lists class.
func (n *Node) HasClass(class string) bool {
	for _, c := range strings.Fields(n.Attr("class")) {
		if c == class {
			return true
		}
	}
	return false
}

// Inside returns true if any ancestor is a tag element.
func (n *Node) Inside(tag scanhtml.TagID) bool {
	c := n.DepthMap[tag]
	if n.Kind == ElementNode && n.Tag == tag {
		c--
	}
	return c > 0
}

// Closest returns the nearest ancestor that is a tag element, or nil.
func (n *Node) Closest(tag scanhtml.TagID) *Node {
	if !n.Inside(tag) {
		return nil
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Tag == tag {
			return p
		}
	}
	return nil
}

// Set stores a plugin value in the node's context.
func (n *Node) Set(key string, val any) {
	if n.context == nil {
		n.context = make(map[string]any)
	}
	n.context[key] = val
}

// Get retrieves a plugin value from the node's context.
func (n *Node) Get(key string) any { return n.context[key] }

// Suppressed returns true if the node's output is dropped by an ancestor
// handler, as for content within <head> or <script>; plugin hooks still see
// such nodes.
func (n *Node) Suppressed() bool { return n.suppressed }

// Handler returns the handler applied to an element node.
func (n *Node) Handler() *Handler { return n.h }

// itemKey groups td and th for ItemIndex counting.
func itemKey(tag scanhtml.TagID) scanhtml.TagID {
	if tag == scanhtml.Th {
		return scanhtml.Td
	}
	return tag
}

// count returns how many element children of the given tag the node has had
// so far.
func (n *Node) count(tag scanhtml.TagID) int { return n.items[itemKey(tag)] }

func (n *Node) addChild(child *Node) {
	child.Index = n.children
	n.children++
	if child.Kind == TextNode {
		child.TextIndex = n.texts
		n.texts++
		return
	}
	if n.items == nil {
		n.items = make(map[scanhtml.TagID]int)
	}
	key := itemKey(child.Tag)
	child.ItemIndex = n.items[key]
	n.items[key]++
}

func (n *Node) closestTable() *tableState {
	if t := n.Closest(scanhtml.Table); t != nil {
		return t.table
	}
	return nil
}

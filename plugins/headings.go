package plugins

import (
	"strconv"
	"strings"

	"github.com/shurcooL/sanitized_anchor_name"

	"github.com/jcorbin/htmd"
)

// Heading is an entry in the outline collected by Headings.
type Heading struct {
	Level  int    `json:"level" yaml:"level"`
	Text   string `json:"text" yaml:"text"`
	Anchor string `json:"anchor" yaml:"anchor"`
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`
}

// Headings collects an outline of the document's headings, each with a
// GitHub style anchor slug made unique by numeric suffixes. The outline is
// reported from Finish under "headings".
type Headings struct {
	list    []Heading
	text    strings.Builder
	cur     *htmd.Node
	anchors map[string]int
}

// NewHeadings creates a Headings plugin.
func NewHeadings() *Headings { return &Headings{anchors: make(map[string]int)} }

// Outline returns the headings collected so far.
func (h *Headings) Outline() []Heading { return h.list }

// OnNodeEnter implements htmd.EnterHook.
func (h *Headings) OnNodeEnter(n *htmd.Node, _ *htmd.State) (string, error) {
	if n.Tag.Heading() > 0 && !n.Suppressed() {
		h.cur = n
		h.text.Reset()
	}
	return "", nil
}

// ProcessTextNode implements htmd.TextProcessor.
func (h *Headings) ProcessTextNode(n *htmd.Node, _ *htmd.State) (htmd.TextResult, error) {
	if h.cur != nil && !n.Suppressed() {
		h.text.WriteString(n.Value)
		h.text.WriteByte(' ')
	}
	return htmd.TextResult{}, nil
}

// OnNodeExit implements htmd.ExitHook.
func (h *Headings) OnNodeExit(n *htmd.Node, _ *htmd.State) (string, error) {
	if n != h.cur {
		return "", nil
	}
	h.cur = nil
	text := strings.Join(strings.Fields(h.text.String()), " ")
	if text == "" {
		return "", nil
	}
	anchor := sanitized_anchor_name.Create(text)
	if k := h.anchors[anchor]; k > 0 {
		h.anchors[anchor] = k + 1
		anchor += "-" + strconv.Itoa(k)
	} else {
		h.anchors[anchor] = 1
	}
	h.list = append(h.list, Heading{
		Level:  n.Tag.Heading(),
		Text:   text,
		Anchor: anchor,
		ID:     n.ID(),
	})
	return "", nil
}

// Finish reports the outline under "headings".
func (h *Headings) Finish(*htmd.State) (map[string]any, error) {
	if len(h.list) == 0 {
		return nil, nil
	}
	return map[string]any{"headings": h.list}, nil
}

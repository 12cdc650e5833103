package plugins

import (
	"fmt"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/jcorbin/htmd"
)

// FilterOptions lists CSS selectors for Filter.
type FilterOptions struct {
	// Include, if not empty, excludes all output except from elements
	// matching any of these selectors.
	Include []string

	// Exclude skips elements matching any of these selectors, along with all
	// of their content.
	Exclude []string
}

// Filter includes or excludes elements by CSS selector.
//
// Selectors are matched as each element starts, against the element and its
// ancestors; selectors depending on siblings or content (like :first-child,
// :empty, or :contains) do not match as they would in a complete document.
type Filter struct {
	include []cascadia.Selector
	exclude []cascadia.Selector
}

// NewFilter compiles the given selectors into a Filter.
func NewFilter(opts FilterOptions) (*Filter, error) {
	var f Filter
	for _, sel := range opts.Include {
		s, err := cascadia.Compile(sel)
		if err != nil {
			return nil, fmt.Errorf("invalid include selector %q: %w", sel, err)
		}
		f.include = append(f.include, s)
	}
	for _, sel := range opts.Exclude {
		s, err := cascadia.Compile(sel)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude selector %q: %w", sel, err)
		}
		f.exclude = append(f.exclude, s)
	}
	return &f, nil
}

const mirrorKey = "plugins.filter.node"

// Init excludes all output by default if any include selectors are given.
func (f *Filter) Init(s *htmd.State) error {
	if len(f.include) > 0 {
		s.SetDefaultInclude(false)
	}
	return nil
}

// BeforeNodeProcess implements htmd.NodeFilter.
func (f *Filter) BeforeNodeProcess(n *htmd.Node, s *htmd.State) (bool, error) {
	hn := mirror(n)
	for _, sel := range f.exclude {
		if sel.Match(hn) {
			s.Logger().Debug("filter excluded element", "node", n)
			return true, nil
		}
	}
	for _, sel := range f.include {
		if sel.Match(hn) {
			s.CreateBufferRegion(n, true)
			break
		}
	}
	return false, nil
}

// mirror returns an html.Node standing for n, linked to its ancestors'.
func mirror(n *htmd.Node) *html.Node {
	if hn, ok := n.Get(mirrorKey).(*html.Node); ok {
		return hn
	}
	hn := &html.Node{
		Type:     html.ElementNode,
		Data:     n.Name,
		DataAtom: atom.Lookup([]byte(n.Name)),
	}
	for _, a := range n.Attrs() {
		hn.Attr = append(hn.Attr, html.Attribute{Key: a.Key, Val: a.Val})
	}
	if p := n.Parent; p != nil {
		hn.Parent = mirror(p)
	}
	n.Set(mirrorKey, hn)
	return hn
}

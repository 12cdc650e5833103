package htmd

import (
	"fmt"
	"io"
)

// Format writes a terse description of the node: "<name>" for elements, and
// "#text" for text; formatting with %+v adds its depth, position among its
// siblings, attributes or text, and its emission state.
func (n *Node) Format(f fmt.State, _ rune) {
	if n == nil {
		io.WriteString(f, "<nil>")
		return
	}
	switch n.Kind {
	case ElementNode:
		fmt.Fprintf(f, "<%s>", n.Name)
	case TextNode:
		io.WriteString(f, "#text")
	default:
		io.WriteString(f, "#root")
	}
	if !f.Flag('+') {
		return
	}
	fmt.Fprintf(f, " depth=%v index=%v", n.Depth, n.Index)
	switch n.Kind {
	case ElementNode:
		for _, attr := range n.Attrs() {
			fmt.Fprintf(f, " %v", attr)
		}
	case TextNode:
		fmt.Fprintf(f, " %q", n.Value)
	}
	for _, flag := range []struct {
		name string
		set  bool
	}{
		{"skipped", n.skipped},
		{"suppressed", n.suppressed},
		{"verbatim", n.verbatim},
		{"held", n.held},
		{"queued", n.queued},
	} {
		if flag.set {
			fmt.Fprintf(f, " %s", flag.name)
		}
	}
	if n.start >= 0 {
		fmt.Fprintf(f, " @%v", n.start)
	}
}

package htmd

import (
	"strconv"
	"strings"

	"github.com/jcorbin/htmd/scanhtml"
)

// Handler declares the Markdown produced by one element tag.
//
// Enter and Exit must be pure functions of the node and options: they may
// read node attributes, counters, and ancestors, but side effects belong to
// the converter. An Enter fragment is written lazily, once content within the
// element is written, so empty elements produce nothing; Eager handlers have
// their Enter fragment written immediately instead, as void elements must.
type Handler struct {
	Enter func(n *Node, o *Options) string
	Exit  func(n *Node, o *Options) string

	// Inline elements flow with their siblings; all others are block
	// boundaries, swallowing adjacent whitespace.
	Inline bool

	// UsesAttributes causes attributes to be parsed on entry; otherwise
	// they are parsed on first access.
	UsesAttributes bool

	// Drop suppresses all output from the element's content; plugin hooks
	// still run for it.
	Drop bool

	// Eager writes the Enter fragment immediately.
	Eager bool

	// Break requests a hard line break.
	Break bool

	// Verbatim elements preserve their text content as is, ignoring any
	// descendant handlers.
	Verbatim bool

	// CodeSpan widens single backtick Enter and Exit fragments into a run
	// longer than any within the element's content.
	CodeSpan bool

	// Prefix is written at the start of every line of the element's content.
	Prefix string

	// Spacing is the number of newlines requested before and after the
	// element; Nested, if non-nil, replaces it within list items.
	Spacing Spacing
	Nested  *Spacing
}

// Spacing counts newlines around a block element: 1 starts a new line, 2
// leaves a blank line. Runs of requests collapse to their maximum.
type Spacing struct {
	Before, After int
}

func (h *Handler) spacing(n *Node) Spacing {
	if h.Nested != nil && n.Inside(scanhtml.Li) {
		return *h.Nested
	}
	return h.Spacing
}

// Handlers is a table of handlers indexed by tag id. The scanhtml.Unknown
// entry handles all unknown elements.
type Handlers [scanhtml.NumTags]Handler

// DefaultHandlers returns a copy of the default handler table.
func DefaultHandlers() Handlers { return defaultHandlers }

func static(s string) func(*Node, *Options) string {
	return func(*Node, *Options) string { return s }
}

// wrap returns an inline handler that surrounds content with prefix and
// suffix.
func wrap(prefix, suffix string) Handler {
	return Handler{Enter: static(prefix), Exit: static(suffix), Inline: true}
}

func block(before, after int) Handler {
	return Handler{Spacing: Spacing{before, after}}
}

func headingEnter(n *Node, _ *Options) string {
	return strings.Repeat("#", n.Tag.Heading()) + " "
}

func itemEnter(n *Node, _ *Options) string {
	if p := n.Parent; p != nil && p.Tag == scanhtml.Ol {
		start := 1
		if s, err := strconv.Atoi(strings.TrimSpace(p.Attr("start"))); err == nil {
			start = s
		}
		return strconv.Itoa(start+n.ItemIndex) + ". "
	}
	return "- "
}

func linkEnter(n *Node, _ *Options) string {
	if n.HasAttr("href") {
		return "["
	}
	return ""
}

func linkExit(n *Node, o *Options) string {
	if !n.HasAttr("href") {
		return ""
	}
	return "](" + destination(o.ResolveURL(n.Attr("href")), n.Attr("title")) + ")"
}

var altEscaper = strings.NewReplacer(`\`, `\\`, `[`, `\[`, `]`, `\]`)

func imageEnter(n *Node, o *Options) string {
	alt := altEscaper.Replace(strings.Join(strings.Fields(n.Attr("alt")), " "))
	return "![" + alt + "](" + destination(o.ResolveURL(n.Attr("src")), n.Attr("title")) + ")"
}

// destination formats a link destination with an optional title.
func destination(url, title string) string {
	url = strings.ReplaceAll(url, " ", "%20")
	if title == "" {
		return url
	}
	return url + ` "` + strings.ReplaceAll(title, `"`, `\"`) + `"`
}

func checkboxEnter(n *Node, _ *Options) string {
	if !strings.EqualFold(n.Attr("type"), "checkbox") {
		return ""
	}
	if n.HasAttr("checked") {
		return "[x] "
	}
	return "[ ] "
}

func fenceEnter(n *Node, _ *Options) string { return "```" + n.lang + "\n" }

// codeLanguage extracts a fenced code language from a language-X or lang-X
// class.
func codeLanguage(n *Node) string {
	for _, class := range strings.Fields(n.Attr("class")) {
		for _, prefix := range []string{"language-", "lang-"} {
			if lang := strings.TrimPrefix(class, prefix); lang != class && lang != "" {
				return lang
			}
		}
	}
	return ""
}

func cellEnter(n *Node, _ *Options) string {
	if n.ItemIndex == 0 {
		return "| "
	}
	return " | "
}

// rowExit closes a table row; the first row of a table is its header, which
// is followed by a separator row with one cell per header column.
func rowExit(n *Node, _ *Options) string {
	cells := n.count(scanhtml.Td)
	t := n.closestTable()
	if t == nil || cells == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(" |")
	if t.rows == 0 {
		sb.WriteString("\n|")
		for i := 0; i < cells; i++ {
			align := ""
			if i < len(t.aligns) {
				align = t.aligns[i]
			}
			switch align {
			case "left":
				sb.WriteString(" :--- |")
			case "center":
				sb.WriteString(" :---: |")
			case "right":
				sb.WriteString(" ---: |")
			default:
				sb.WriteString(" --- |")
			}
		}
		return sb.String()
	}
	for i := cells; i < t.cols; i++ {
		sb.WriteString(" |")
	}
	return sb.String()
}

// cellAlign returns a table cell's alignment from its align attribute or
// text-align style.
func cellAlign(n *Node) string {
	if a := strings.ToLower(strings.TrimSpace(n.Attr("align"))); a != "" {
		return a
	}
	for _, decl := range strings.Split(n.Attr("style"), ";") {
		if k, v, ok := strings.Cut(decl, ":"); ok && strings.TrimSpace(strings.ToLower(k)) == "text-align" {
			return strings.ToLower(strings.TrimSpace(v))
		}
	}
	return ""
}

package scanhtml

import (
	"fmt"
	"io"

	"golang.org/x/net/html/atom"
)

// TagID is a dense identifier for a known HTML element name, suitable for
// indexing per-tag tables. The zero value Unknown stands for any element name
// outside the table, such as custom elements.
type TagID uint8

// TagID constants, one per known element.
const (
	Unknown TagID = iota
	A
	Abbr
	Acronym
	Address
	Area
	Article
	Aside
	Audio
	B
	Base
	Bdi
	Bdo
	Big
	Blockquote
	Body
	Br
	Button
	Canvas
	Caption
	Center
	Cite
	Code
	Col
	Colgroup
	Data
	Datalist
	Dd
	Del
	Details
	Dfn
	Dialog
	Dir
	Div
	Dl
	Dt
	Em
	Embed
	Fieldset
	Figcaption
	Figure
	Font
	Footer
	Form
	Frame
	Frameset
	H1
	H2
	H3
	H4
	H5
	H6
	Head
	Header
	Hgroup
	Hr
	Html
	I
	Iframe
	Img
	Input
	Ins
	Kbd
	Label
	Legend
	Li
	Link
	Listing
	Main
	Map
	Mark
	Math
	Menu
	Meta
	Meter
	Nav
	Noembed
	Noframes
	Noscript
	Object
	Ol
	Optgroup
	Option
	Output
	P
	Param
	Picture
	Plaintext
	Pre
	Progress
	Q
	Rp
	Rt
	Ruby
	S
	Samp
	Script
	Search
	Section
	Select
	Slot
	Small
	Source
	Span
	Strike
	Strong
	Style
	Sub
	Summary
	Sup
	Svg
	Table
	Tbody
	Td
	Template
	Textarea
	Tfoot
	Th
	Thead
	Time
	Title
	Tr
	Track
	Tt
	U
	Ul
	Var
	Video
	Wbr
	Xmp

	// NumTags bounds the TagID space; tables indexed by TagID have this length.
	NumTags
)

var tagNames = [NumTags]string{
	A:          "a",
	Abbr:       "abbr",
	Acronym:    "acronym",
	Address:    "address",
	Area:       "area",
	Article:    "article",
	Aside:      "aside",
	Audio:      "audio",
	B:          "b",
	Base:       "base",
	Bdi:        "bdi",
	Bdo:        "bdo",
	Big:        "big",
	Blockquote: "blockquote",
	Body:       "body",
	Br:         "br",
	Button:     "button",
	Canvas:     "canvas",
	Caption:    "caption",
	Center:     "center",
	Cite:       "cite",
	Code:       "code",
	Col:        "col",
	Colgroup:   "colgroup",
	Data:       "data",
	Datalist:   "datalist",
	Dd:         "dd",
	Del:        "del",
	Details:    "details",
	Dfn:        "dfn",
	Dialog:     "dialog",
	Dir:        "dir",
	Div:        "div",
	Dl:         "dl",
	Dt:         "dt",
	Em:         "em",
	Embed:      "embed",
	Fieldset:   "fieldset",
	Figcaption: "figcaption",
	Figure:     "figure",
	Font:       "font",
	Footer:     "footer",
	Form:       "form",
	Frame:      "frame",
	Frameset:   "frameset",
	H1:         "h1",
	H2:         "h2",
	H3:         "h3",
	H4:         "h4",
	H5:         "h5",
	H6:         "h6",
	Head:       "head",
	Header:     "header",
	Hgroup:     "hgroup",
	Hr:         "hr",
	Html:       "html",
	I:          "i",
	Iframe:     "iframe",
	Img:        "img",
	Input:      "input",
	Ins:        "ins",
	Kbd:        "kbd",
	Label:      "label",
	Legend:     "legend",
	Li:         "li",
	Link:       "link",
	Listing:    "listing",
	Main:       "main",
	Map:        "map",
	Mark:       "mark",
	Math:       "math",
	Menu:       "menu",
	Meta:       "meta",
	Meter:      "meter",
	Nav:        "nav",
	Noembed:    "noembed",
	Noframes:   "noframes",
	Noscript:   "noscript",
	Object:     "object",
	Ol:         "ol",
	Optgroup:   "optgroup",
	Option:     "option",
	Output:     "output",
	P:          "p",
	Param:      "param",
	Picture:    "picture",
	Plaintext:  "plaintext",
	Pre:        "pre",
	Progress:   "progress",
	Q:          "q",
	Rp:         "rp",
	Rt:         "rt",
	Ruby:       "ruby",
	S:          "s",
	Samp:       "samp",
	Script:     "script",
	Search:     "search",
	Section:    "section",
	Select:     "select",
	Slot:       "slot",
	Small:      "small",
	Source:     "source",
	Span:       "span",
	Strike:     "strike",
	Strong:     "strong",
	Style:      "style",
	Sub:        "sub",
	Summary:    "summary",
	Sup:        "sup",
	Svg:        "svg",
	Table:      "table",
	Tbody:      "tbody",
	Td:         "td",
	Template:   "template",
	Textarea:   "textarea",
	Tfoot:      "tfoot",
	Th:         "th",
	Thead:      "thead",
	Time:       "time",
	Title:      "title",
	Tr:         "tr",
	Track:      "track",
	Tt:         "tt",
	U:          "u",
	Ul:         "ul",
	Var:        "var",
	Video:      "video",
	Wbr:        "wbr",
	Xmp:        "xmp",
}

var (
	atomTags = make(map[atom.Atom]TagID, NumTags)
	nameTags = make(map[string]TagID)
)

func init() {
	for id := TagID(1); id < NumTags; id++ {
		name := tagNames[id]
		if a := atom.Lookup([]byte(name)); a != 0 && a.String() == name {
			atomTags[a] = id
		} else {
			nameTags[name] = id
		}
	}
}

// LookupTag returns the TagID for the given element name, matched
// ASCII case-insensitively; returns Unknown for any name not in the table.
func LookupTag(name []byte) TagID {
	var tmp [16]byte
	if len(name) == 0 || len(name) > len(tmp) {
		return Unknown
	}
	lower := tmp[:len(name)]
	for i, c := range name {
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		lower[i] = c
	}
	if a := atom.Lookup(lower); a != 0 {
		if id, ok := atomTags[a]; ok {
			return id
		}
	}
	return nameTags[string(lower)]
}

// LookupTagString is LookupTag for a string name.
func LookupTagString(name string) TagID { return LookupTag([]byte(name)) }

// String returns the lowercase element name, or "" for Unknown.
func (id TagID) String() string {
	if id < NumTags {
		return tagNames[id]
	}
	return ""
}

// Format writes the element name, or "?" for Unknown; formatting with %+v
// adds the numeric id.
func (id TagID) Format(f fmt.State, _ rune) {
	name := id.String()
	if name == "" {
		name = "?"
	}
	io.WriteString(f, name)
	if f.Flag('+') {
		fmt.Fprintf(f, "#%d", uint8(id))
	}
}

// Heading returns the level of an h1-h6 tag, or 0 for any other.
func (id TagID) Heading() int {
	if H1 <= id && id <= H6 {
		return int(id-H1) + 1
	}
	return 0
}

// Void returns true for elements that never have content or an end tag.
func (id TagID) Void() bool {
	switch id {
	case Area, Base, Br, Col, Embed, Hr, Img, Input, Link, Meta, Param, Source, Track, Wbr:
		return true
	}
	return false
}

// Raw returns true for elements whose content is not parsed as markup.
func (id TagID) Raw() bool {
	switch id {
	case Script, Style, Textarea, Title, Xmp, Iframe, Noembed, Noframes, Plaintext:
		return true
	}
	return false
}

// Quoted returns true for raw text elements whose content may contain string
// literals that hide a closing tag, namely script and style.
func (id TagID) Quoted() bool { return id == Script || id == Style }

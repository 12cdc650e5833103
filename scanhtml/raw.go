package scanhtml

import "bytes"

// scanRaw scans the content of the open raw text element for its closing
// tag, returning the content length; ok is false if more data is needed to
// decide. At EOF, an unclosed element's content runs to the end of data.
//
// Within script and style, quoted strings and template literals are tracked
// (honoring backslash escapes) so that a closing tag sequence inside one is
// not mistaken for the real end of the element. A newline ends a single or
// double quoted string, as neither can span lines in JavaScript or CSS.
// Quotes within comments, "/* */" and script "//" lines, are ignored; a
// closing tag within a comment still ends the element.
func (t *Tokenizer) scanRaw(data []byte, atEOF bool) (end int, ok bool) {
	name := t.raw.String()
	quoted := t.raw.Quoted()
	i := t.scanned
	for ; i < len(data); i++ {
		c := data[i]
		if t.escape {
			t.escape = false
			continue
		}
		if t.quote != 0 {
			switch {
			case c == '\\':
				t.escape = true
			case c == t.quote:
				t.quote = 0
			case c == '\n' && t.quote != '`':
				t.quote = 0
			}
			continue
		}

		switch t.comment {
		case lineComment:
			if c == '\n' {
				t.comment = 0
			}
		case blockComment, blockCommentStar:
			switch {
			case c == '*':
				t.comment = blockCommentStar
			case c == '/' && t.comment == blockCommentStar:
				t.comment = 0
				continue
			default:
				t.comment = blockComment
			}
		}

		switch {
		case c == '<':
			switch closesRaw(data[i:], name) {
			case closeMatch:
				return i, true
			case closeShort:
				if !atEOF {
					t.scanned = i
					return 0, false
				}
			}
		case !quoted || t.comment != 0:
		case c == '\'', c == '"', c == '`':
			t.quote = c
		case c == '/':
			if i+1 >= len(data) {
				if !atEOF {
					t.scanned = i
					return 0, false
				}
				continue
			}
			switch data[i+1] {
			case '/':
				if t.raw == Script {
					t.comment = lineComment
					i++
				}
			case '*':
				t.comment = blockComment
				i++
			}
		}
	}
	if !atEOF {
		t.scanned = i
		return 0, false
	}
	return len(data), true
}

// comment states of scanRaw
const (
	lineComment      = '/'
	blockComment     = '*'
	blockCommentStar = '+' // within a block comment, just after a '*'
)

const (
	closeNone = iota
	closeMatch
	closeShort
)

// closesRaw checks whether b starts with an end tag for the named element:
// "</name" (ASCII case-insensitive) followed by whitespace, '/', or '>'.
// Returns closeShort if b is too short to tell.
func closesRaw(b []byte, name string) int {
	n := 2 + len(name)
	if len(b) < n+1 {
		m := len(b)
		if m > n {
			m = n
		}
		if m >= 2 && (b[1] != '/' || !bytes.EqualFold(b[2:m], []byte(name[:m-2]))) {
			return closeNone
		}
		return closeShort
	}
	if b[1] != '/' || !bytes.EqualFold(b[2:n], []byte(name)) {
		return closeNone
	}
	if c := b[n]; isSpace(c) || c == '/' || c == '>' {
		return closeMatch
	}
	return closeNone
}

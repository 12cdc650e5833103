package scanhtml

import (
	"bytes"
)

// TokenType classifies the token last returned by Tokenizer.Scan.
type TokenType uint8

// TokenType constants.
const (
	noToken TokenType = iota // zero value should never be seen by users
	TextToken
	StartTagToken
	EndTagToken
	SelfClosingTagToken
	CommentToken
	DoctypeToken
	RawTextToken
)

// tag scanning states
const (
	tagAttrs    = iota // in name or between attributes
	tagEq              // after '=', before a value
	tagQuoted          // in a quoted value
	tagUnquoted        // in an unquoted value
)

// Tokenizer splits a stream of HTML into tokens, tolerating arbitrary chunk
// boundaries: Scan never consumes input it cannot fully interpret, asking
// for more data instead, and keeps enough state to resume where the prior
// incomplete scan left off.
//
// Text runs end only at decidable markup (a '<' followed by a letter, '/',
// '!', or '?') or at EOF, so the sequence of tokens produced does not depend
// on how input was chunked.
//
// It is not safe to use Tokenizer from parallel goroutines.
type Tokenizer struct {
	// last token
	typ   TokenType
	tag   TagID
	name  []byte
	attrs []byte
	text  []byte

	raw TagID // open raw text element

	// resumable scan state, relative to the current scan window
	scanned int
	state   int
	quote   byte
	comment byte
	escape  bool
}

// Reset clears all tokenizer state.
func (t *Tokenizer) Reset() { *t = Tokenizer{} }

// Type returns the type of the last scanned token.
func (t *Tokenizer) Type() TokenType { return t.typ }

// Tag returns the element id of the last tag token, Unknown otherwise.
func (t *Tokenizer) Tag() TagID { return t.tag }

// Name returns the element name bytes of the last tag token, as written.
func (t *Tokenizer) Name() []byte { return t.name }

// TagName returns the lowercase element name of the last tag token.
func (t *Tokenizer) TagName() string {
	if t.tag != Unknown {
		return t.tag.String()
	}
	return string(bytes.ToLower(t.name))
}

// RawAttrs returns the undecoded attribute bytes of the last start tag.
func (t *Tokenizer) RawAttrs() []byte { return t.attrs }

// Attrs parses the attributes of the last start tag.
func (t *Tokenizer) Attrs() []Attr { return ParseAttrs(t.attrs) }

// Text returns the content of the last text, raw text, comment, or doctype
// token, without any character references decoded.
func (t *Tokenizer) Text() []byte { return t.text }

// Raw returns the raw text element whose content is being scanned, or
// Unknown.
func (t *Tokenizer) Raw() TagID { return t.raw }

// Scan implements a bufio.SplitFunc that tokenizes HTML.
//
// The returned token is the full byte span of the scanned token; use the
// receiver's accessors to get at its parts. Both are windows within data, so
// must not be retained across calls to Scan.
//
// A positive advance with a nil token means that some input was consumed
// without producing a token, e.g. a "</>" sequence, or an unterminated tag at
// EOF.
func (t *Tokenizer) Scan(data []byte, atEOF bool) (advance int, token []byte, err error) {
	t.typ, t.tag, t.name, t.attrs, t.text = noToken, Unknown, nil, nil, nil

	// any scan that consumes input starts the next one afresh
	defer func() {
		if advance > 0 {
			t.scanned, t.state, t.quote, t.comment, t.escape = 0, tagAttrs, 0, 0, false
		}
	}()

	if len(data) == 0 {
		return 0, nil, nil
	}

	if t.raw != Unknown {
		end, ok := t.scanRaw(data, atEOF)
		if !ok {
			return 0, nil, nil
		}
		if end == len(data) {
			t.raw = Unknown
		}
		if end > 0 {
			t.typ, t.text = RawTextToken, data[:end]
			return end, data[:end], nil
		}
		t.raw = Unknown
	}

	if data[0] != '<' {
		return t.scanText(data, atEOF)
	}
	return t.scanMarkup(data, atEOF)
}

func markupStart(c byte) bool {
	return isLetter(c) || c == '/' || c == '!' || c == '?'
}

func (t *Tokenizer) scanText(data []byte, atEOF bool) (advance int, token []byte, err error) {
	i := t.scanned
	if i < 1 {
		i = 1 // data[0] is either text, or a '<' already found to not start markup
	}
	for ; i < len(data); i++ {
		j := bytes.IndexByte(data[i:], '<')
		if j < 0 {
			i = len(data)
			break
		}
		i += j
		if i+1 >= len(data) {
			break
		}
		if markupStart(data[i+1]) {
			t.typ, t.text = TextToken, data[:i]
			return i, data[:i], nil
		}
	}
	if !atEOF {
		t.scanned = i
		return 0, nil, nil
	}
	t.typ, t.text = TextToken, data
	return len(data), data, nil
}

func (t *Tokenizer) scanMarkup(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if len(data) < 2 {
		if atEOF {
			t.typ, t.text = TextToken, data
			return len(data), data, nil
		}
		return 0, nil, nil
	}

	switch c := data[1]; {
	case isLetter(c):
		return t.scanTag(data, 1, atEOF)

	case c == '/':
		if len(data) < 3 {
			if atEOF {
				t.typ, t.text = TextToken, data
				return len(data), data, nil
			}
			return 0, nil, nil
		}
		switch c := data[2]; {
		case isLetter(c):
			return t.scanTag(data, 2, atEOF)
		case c == '>':
			return 3, nil, nil
		}
		return t.scanBogus(data, 2, atEOF)

	case c == '!':
		const open = "<!--"
		if len(data) < len(open) && bytes.HasPrefix([]byte(open), data) && !atEOF {
			return 0, nil, nil
		}
		if bytes.HasPrefix(data, []byte(open)) {
			return t.scanComment(data, atEOF)
		}
		return t.scanBogus(data, 2, atEOF)

	case c == '?':
		return t.scanBogus(data, 1, atEOF)

	default:
		// not markup after all, but a "<" text run
		return t.scanText(data, atEOF)
	}
}

// scanTag scans a start or end tag whose name starts at data[start].
func (t *Tokenizer) scanTag(data []byte, start int, atEOF bool) (advance int, token []byte, err error) {
	i := t.scanned
	if i < start {
		i = start
	}
	for ; i < len(data); i++ {
		c := data[i]
		switch t.state {
		case tagAttrs:
			switch {
			case c == '>':
				return t.finishTag(data, start, i), data[:i+1], nil
			case c == '=' && i > start:
				t.state = tagEq
			}
		case tagEq:
			switch {
			case isSpace(c):
			case c == '"' || c == '\'':
				t.state, t.quote = tagQuoted, c
			case c == '>':
				return t.finishTag(data, start, i), data[:i+1], nil
			default:
				t.state = tagUnquoted
			}
		case tagQuoted:
			if c == t.quote {
				t.state, t.quote = tagAttrs, 0
			}
		case tagUnquoted:
			switch {
			case isSpace(c):
				t.state = tagAttrs
			case c == '>':
				// a '/' ending an unquoted value is part of it
				return t.finishTag(data, start, i), data[:i+1], nil
			}
		}
	}
	if atEOF {
		// an unterminated tag is dropped
		return len(data), nil, nil
	}
	t.scanned = i
	return 0, nil, nil
}

// finishTag sets token fields for a tag spanning data[:end+1], whose name
// starts at data[start], returning the token length.
func (t *Tokenizer) finishTag(data []byte, start, end int) int {
	body := data[start:end]
	n := 0
	for n < len(body) && !isSpace(body[n]) && body[n] != '/' {
		n++
	}
	t.name = body[:n]
	t.tag = LookupTag(t.name)

	attrs := body[n:]
	selfClosing := t.state == tagAttrs && len(attrs) > 0 && attrs[len(attrs)-1] == '/'
	if selfClosing {
		attrs = attrs[:len(attrs)-1]
	}

	switch {
	case start == 2:
		t.typ = EndTagToken
	case t.tag.Raw():
		// raw text elements cannot self-close
		t.typ, t.attrs = StartTagToken, attrs
		t.raw = t.tag
	case selfClosing:
		t.typ, t.attrs = SelfClosingTagToken, attrs
	default:
		t.typ, t.attrs = StartTagToken, attrs
	}
	return end + 1
}

func (t *Tokenizer) scanComment(data []byte, atEOF bool) (advance int, token []byte, err error) {
	const open = len("<!--")

	// abruptly closed empty comments: <!--> and <!--->
	for _, short := range []string{">", "->"} {
		rest := data[open:]
		if bytes.HasPrefix(rest, []byte(short)) {
			n := open + len(short)
			t.typ, t.text = CommentToken, data[open:open]
			return n, data[:n], nil
		}
		if len(rest) < len(short) && bytes.HasPrefix([]byte(short), rest) && !atEOF {
			return 0, nil, nil
		}
	}

	i := t.scanned
	if i < open {
		i = open
	}
	if j := bytes.Index(data[i:], []byte("-->")); j >= 0 {
		end := i + j
		t.typ, t.text = CommentToken, data[open:end]
		return end + 3, data[:end+3], nil
	}
	if atEOF {
		t.typ, t.text = CommentToken, data[open:]
		return len(data), data, nil
	}
	// a partial "--" may be at the end of data
	if i = len(data) - 2; i < open {
		i = open
	}
	t.scanned = i
	return 0, nil, nil
}

var doctypePrefix = []byte("<!doctype")

// scanBogus scans a declaration, processing instruction, or other malformed
// markup up to the next '>'; doctype declarations are recognized, anything
// else becomes a comment.
func (t *Tokenizer) scanBogus(data []byte, start int, atEOF bool) (advance int, token []byte, err error) {
	i := t.scanned
	if i < start {
		i = start
	}
	end := len(data)
	if j := bytes.IndexByte(data[i:], '>'); j >= 0 {
		end = i + j
	} else if !atEOF {
		t.scanned = len(data)
		return 0, nil, nil
	}

	n := end + 1
	if n > len(data) {
		n = len(data)
	}
	if len(data) >= len(doctypePrefix) && bytes.EqualFold(data[:len(doctypePrefix)], doctypePrefix) {
		t.typ, t.text = DoctypeToken, bytes.TrimSpace(data[len(doctypePrefix):end])
	} else {
		t.typ, t.text = CommentToken, data[start:end]
	}
	return n, data[:n], nil
}

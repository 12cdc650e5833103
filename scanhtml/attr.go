package scanhtml

import (
	"bytes"
	"fmt"
	"strings"
)

// Attr is a parsed attribute: Key is lowercase, Val has had character
// references decoded.
type Attr struct {
	Key, Val string
}

// Format writes key="val", or only the key for empty values.
func (a Attr) Format(f fmt.State, _ rune) {
	if a.Val == "" {
		fmt.Fprint(f, a.Key)
	} else {
		fmt.Fprintf(f, "%s=%q", a.Key, a.Val)
	}
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}

func isLetter(c byte) bool { return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' }

// NextAttr parses the next attribute from raw attribute bytes, as returned by
// Tokenizer.RawAttrs, returning the undecoded key and value bytes and the
// remaining raw bytes. Returns a nil key once raw is exhausted.
func NextAttr(raw []byte) (key, val, rest []byte) {
	i := 0
	for i < len(raw) && (isSpace(raw[i]) || raw[i] == '/') {
		i++
	}
	if i >= len(raw) {
		return nil, nil, nil
	}

	// key runs to whitespace, '/', '=', or end; a leading '=' is part of it
	j := i + 1
	for j < len(raw) && !isSpace(raw[j]) && raw[j] != '/' && raw[j] != '=' {
		j++
	}
	key = raw[i:j]

	k := j
	for k < len(raw) && isSpace(raw[k]) {
		k++
	}
	if k >= len(raw) || raw[k] != '=' {
		return key, nil, raw[j:]
	}
	k++
	for k < len(raw) && isSpace(raw[k]) {
		k++
	}
	if k >= len(raw) {
		return key, nil, nil
	}

	switch q := raw[k]; q {
	case '"', '\'':
		k++
		if end := bytes.IndexByte(raw[k:], q); end >= 0 {
			return key, raw[k : k+end], raw[k+end+1:]
		}
		return key, raw[k:], nil
	default:
		end := k
		for end < len(raw) && !isSpace(raw[end]) {
			end++
		}
		return key, raw[k:end], raw[end:]
	}
}

// ParseAttrs parses all attributes from raw attribute bytes.
// Keys are lowercased; when a key repeats, the first occurrence wins.
func ParseAttrs(raw []byte) []Attr {
	var attrs []Attr
parse:
	for key, val, rest := NextAttr(raw); key != nil; key, val, rest = NextAttr(rest) {
		k := strings.ToLower(string(key))
		for _, prior := range attrs {
			if prior.Key == k {
				continue parse
			}
		}
		attrs = append(attrs, Attr{k, Unescape(val)})
	}
	return attrs
}

package scanhtml

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

var entityPattern = regexp.MustCompile(`^&(?:[a-zA-Z][a-zA-Z0-9]{0,31}|#[0-9]{1,7}|#[xX][0-9a-fA-F]{1,6});`)

// decodeEntity decodes an entity at the start of b, returning its expansion
// and byte length; n is 0 if b does not start with a well formed, known
// entity.
//
// Named entities are matched only as a whole "&name;" candidate: legacy
// prefix matching (e.g. "&notit;" reading as "&not" + "it;") is rejected, as
// no entity expands to more than two code points.
func decodeEntity(b []byte) (s string, n int) {
	m := entityPattern.Find(b)
	if m == nil {
		return "", 0
	}
	cand := string(m)
	s = html.UnescapeString(cand)
	if s == cand {
		return "", 0
	}
	if m[1] != '#' && utf8.RuneCountInString(s) > 2 {
		return "", 0
	}
	return s, len(m)
}

// AppendUnescaped appends b to dst, decoding any character references.
// Decoding is a single pass, so "&amp;lt;" decodes to "&lt;".
// Unknown or malformed references are copied literally.
func AppendUnescaped(dst, b []byte) []byte {
	for len(b) > 0 {
		i := bytes.IndexByte(b, '&')
		if i < 0 {
			break
		}
		dst = append(dst, b[:i]...)
		b = b[i:]
		if s, n := decodeEntity(b); n > 0 {
			dst = append(dst, s...)
			b = b[n:]
		} else {
			dst = append(dst, '&')
			b = b[1:]
		}
	}
	return append(dst, b...)
}

// Unescape returns b with all character references decoded.
func Unescape(b []byte) string {
	if bytes.IndexByte(b, '&') < 0 {
		return string(b)
	}
	return string(AppendUnescaped(make([]byte, 0, len(b)), b))
}

// UnescapeString is Unescape for string input.
func UnescapeString(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return string(AppendUnescaped(make([]byte, 0, len(s)), []byte(s)))
}

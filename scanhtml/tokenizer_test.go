package scanhtml_test

import (
	"bufio"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/htmd/scanhtml"
)

func Example() {
	var tok scanhtml.Tokenizer
	sc := bufio.NewScanner(strings.NewReader(`<!DOCTYPE html><p class="x">Hi &amp; bye<br/>` +
		`<script>if (a < b) { s = "</script>"; }</script><!-- note --></p>`))
	sc.Split(tok.Scan)
	for sc.Scan() {
		fmt.Printf("%v\n", &tok)
	}
	if err := sc.Err(); err != nil {
		fmt.Printf("scan error: %v\n", err)
	}

	// Output:
	// Doctype "html"
	// Start p
	// Text "Hi &amp; bye"
	// SelfClosing br
	// Start script
	// Raw "if (a < b) { s = \"</script>\"; }"
	// End script
	// Comment " note "
	// End p
}

// scanChunked tokenizes input, feeding the tokenizer at most chunk more bytes
// whenever it asks for more data, formatting every token with format.
func scanChunked(t *testing.T, input string, chunk int, format string) []string {
	var (
		tok  scanhtml.Tokenizer
		buf  []byte
		rest = input
		out  []string
	)
	for limit := 10 * (len(input) + 1); ; limit-- {
		require.True(t, limit > 0, "scan loop limit exceeded")
		atEOF := len(rest) == 0
		advance, token, err := tok.Scan(buf, atEOF)
		require.NoError(t, err)
		if advance == 0 {
			if atEOF {
				return out
			}
			n := chunk
			if n > len(rest) {
				n = len(rest)
			}
			buf = append(buf, rest[:n]...)
			rest = rest[n:]
			continue
		}
		if token != nil {
			out = append(out, fmt.Sprintf(format, &tok))
		}
		buf = buf[advance:]
	}
}

func TestTokenizer(t *testing.T) {
	for _, tc := range []struct {
		name   string
		input  string
		format string
		expect []string
	}{
		{
			name:  "text and tags",
			input: "<p>Hello <b>world</b></p>",
			expect: []string{
				`Start p`, `Text "Hello "`, `Start b`, `Text "world"`, `End b`, `End p`,
			},
		},
		{
			name:   "attributes",
			input:  `<a HREF="x>y" title='q' hidden>t</a>`,
			format: "%+v",
			expect: []string{
				`Start a href="x>y" title="q" hidden`, `Text "t"`, `End a`,
			},
		},
		{
			name:   "unquoted slash value is not self closing",
			input:  `<img src=/a/b/>`,
			format: "%+v",
			expect: []string{`Start img src="/a/b/"`},
		},
		{
			name:   "self closing",
			input:  `a<br/>b<img src="x" />`,
			format: "%+v",
			expect: []string{`Text "a"`, `SelfClosing br`, `Text "b"`, `SelfClosing img src="x"`},
		},
		{
			name:   "lone angles are text",
			input:  "x < y <> z<",
			expect: []string{`Text "x < y <> z<"`},
		},
		{
			name:   "empty end tag dropped",
			input:  "a</>b",
			expect: []string{`Text "a"`, `Text "b"`},
		},
		{
			name:   "unterminated tag dropped",
			input:  `a<b class="c`,
			expect: []string{`Text "a"`},
		},
		{
			name:  "comments",
			input: "<!---->a<!-->b<!--->c<!-- x -- y -->",
			expect: []string{
				`Comment ""`, `Text "a"`, `Comment ""`, `Text "b"`, `Comment ""`, `Text "c"`, `Comment " x -- y "`,
			},
		},
		{
			name:   "unterminated comment",
			input:  "<!-- never",
			expect: []string{`Comment " never"`},
		},
		{
			name:   "bogus markup",
			input:  `<?xml version="1.0"?><![CDATA[x]]></ x>`,
			expect: []string{`Comment "?xml version=\"1.0\"?"`, `Comment "[CDATA[x]]"`, `Comment " x"`},
		},
		{
			name:   "single quoted script string",
			input:  `<script>var s = '</script>'; x()</script>after`,
			expect: []string{`Start script`, `Raw "var s = '</script>'; x()"`, `End script`, `Text "after"`},
		},
		{
			name:  "mixed quotes",
			input: `<script>a = "it's </script>"; b = 'say "</script>"'</script>x`,
			expect: []string{
				`Start script`, `Raw "a = \"it's </script>\"; b = 'say \"</script>\"'"`, `End script`, `Text "x"`,
			},
		},
		{
			name:  "escaped quotes",
			input: `<script>a = "\"</script>"; b = '\\'</script>x`,
			expect: []string{
				`Start script`, `Raw "a = \"\\\"</script>\"; b = '\\\\'"`, `End script`, `Text "x"`,
			},
		},
		{
			name:   "template literal",
			input:  "<script>t = `\n</script>\n`</script>x",
			expect: []string{`Start script`, "Raw \"t = `\\n</script>\\n`\"", `End script`, `Text "x"`},
		},
		{
			name:   "empty strings",
			input:  `<script>a = ""; b = ''</script>x`,
			expect: []string{`Start script`, `Raw "a = \"\"; b = ''"`, `End script`, `Text "x"`},
		},
		{
			name:  "json payload",
			input: `<script type="application/json">{"html": "<div></div>"}</script>x`,
			expect: []string{
				`Start script`, `Raw "{\"html\": \"<div></div>\"}"`, `End script`, `Text "x"`,
			},
		},
		{
			name:  "script line comment quotes",
			input: "<script>// don't\nx('</script>')</script><p>after",
			expect: []string{
				`Start script`, `Raw "// don't\nx('</script>')"`, `End script`, `Start p`, `Text "after"`,
			},
		},
		{
			name:   "script comment closed by end tag",
			input:  `<script>// it's </script><p>after`,
			expect: []string{`Start script`, `Raw "// it's "`, `End script`, `Start p`, `Text "after"`},
		},
		{
			name:   "block comment quotes",
			input:  `<style>/* don't **/ a::after { content: "</style>" }</style>z`,
			expect: []string{`Start style`, `Raw "/* don't **/ a::after { content: \"</style>\" }"`, `End style`, `Text "z"`},
		},
		{
			name:   "style has no line comments",
			input:  `<style>a { background: url(//x/y.png) } b::after { content: "'" }</style>z`,
			expect: []string{`Start style`, `Raw "a { background: url(//x/y.png) } b::after { content: \"'\" }"`, `End style`, `Text "z"`},
		},
		{
			name:   "division is not a comment",
			input:  `<script>a = b / c; s = '</script>'</script>z`,
			expect: []string{`Start script`, `Raw "a = b / c; s = '</script>'"`, `End script`, `Text "z"`},
		},
		{
			name:   "case insensitive close",
			input:  `<SCRIPT>x</SCRIPT >y`,
			expect: []string{`Start script`, `Raw "x"`, `End script`, `Text "y"`},
		},
		{
			name:   "not a close",
			input:  `<style>a{}</styles></style>b`,
			expect: []string{`Start style`, `Raw "a{}</styles>"`, `End style`, `Text "b"`},
		},
		{
			name:   "style quotes",
			input:  `<style>a::after { content: "</style>" }</style>z`,
			expect: []string{`Start style`, `Raw "a::after { content: \"</style>\" }"`, `End style`, `Text "z"`},
		},
		{
			name:   "textarea ignores quotes",
			input:  `<textarea>it's </textarea>x`,
			expect: []string{`Start textarea`, `Raw "it's "`, `End textarea`, `Text "x"`},
		},
		{
			name:   "empty raw element",
			input:  `<title></title>x`,
			expect: []string{`Start title`, `End title`, `Text "x"`},
		},
		{
			name:   "unterminated script",
			input:  `<script>var s = "open`,
			expect: []string{`Start script`, `Raw "var s = \"open"`},
		},
		{
			name:   "raw self closing is a start tag",
			input:  `<script src="x"/><p>`,
			expect: []string{`Start script`, `Raw "<p>"`},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			format := tc.format
			if format == "" {
				format = "%v"
			}
			assert.Equal(t, tc.expect, scanChunked(t, tc.input, len(tc.input)+1, format), "whole input")
			for chunk := 1; chunk < len(tc.input); chunk++ {
				if !assert.Equal(t, tc.expect, scanChunked(t, tc.input, chunk, format), "chunk size %v", chunk) {
					break
				}
			}
		})
	}
}

func TestTokenizer_Accessors(t *testing.T) {
	var tok scanhtml.Tokenizer
	advance, token, err := tok.Scan([]byte(`<My-Widget Data-X="1 &amp; 2">rest`), false)
	require.NoError(t, err)
	assert.Equal(t, `<My-Widget Data-X="1 &amp; 2">`, string(token))
	assert.Equal(t, len(token), advance)
	assert.Equal(t, scanhtml.StartTagToken, tok.Type())
	assert.Equal(t, scanhtml.Unknown, tok.Tag())
	assert.Equal(t, "my-widget", tok.TagName())
	assert.Equal(t, []scanhtml.Attr{{Key: "data-x", Val: "1 & 2"}}, tok.Attrs())

	tok.Reset()
	advance, token, err = tok.Scan([]byte("<scr"), false)
	require.NoError(t, err)
	assert.Equal(t, 0, advance)
	assert.Nil(t, token)
}

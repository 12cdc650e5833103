package scanhtml

import (
	"fmt"
	"io"
)

// Format writes a type name for the receiver code.
func (tt TokenType) Format(f fmt.State, _ rune) {
	switch tt {
	case noToken:
		io.WriteString(f, "None")
	case TextToken:
		io.WriteString(f, "Text")
	case StartTagToken:
		io.WriteString(f, "Start")
	case EndTagToken:
		io.WriteString(f, "End")
	case SelfClosingTagToken:
		io.WriteString(f, "SelfClosing")
	case CommentToken:
		io.WriteString(f, "Comment")
	case DoctypeToken:
		io.WriteString(f, "Doctype")
	case RawTextToken:
		io.WriteString(f, "Raw")
	default:
		fmt.Fprintf(f, "InvalidToken%d", uint8(tt))
	}
}

// Format writes a textual representation of the last scanned token,
// providing improved fmt.Printf display. Produces a verbose form, including
// raw attributes and any pending scan state, when formatted with %+v.
func (t *Tokenizer) Format(f fmt.State, _ rune) {
	fmt.Fprint(f, t.typ)
	switch t.typ {
	case StartTagToken, EndTagToken, SelfClosingTagToken:
		fmt.Fprintf(f, " %s", t.TagName())
		if f.Flag('+') && len(t.attrs) > 0 {
			for _, attr := range t.Attrs() {
				fmt.Fprintf(f, " %v", attr)
			}
		}
	case TextToken, CommentToken, DoctypeToken, RawTextToken:
		fmt.Fprintf(f, " %q", t.text)
	}
	if f.Flag('+') {
		if t.raw != Unknown {
			fmt.Fprintf(f, " raw=%v", t.raw)
		}
		if t.scanned > 0 {
			fmt.Fprintf(f, " scanned=%v", t.scanned)
		}
		if t.quote != 0 {
			fmt.Fprintf(f, " quote=%q", t.quote)
		}
		if t.comment != 0 {
			fmt.Fprintf(f, " comment=%q", t.comment)
		}
	}
}

// Command scanhtml prints the token stream that htmd converts, as read from
// standard input; it is a debugging aid for the tokenizer.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/jcorbin/htmd/internal/mdbuf"
	"github.com/jcorbin/htmd/scanhtml"
)

func main() {
	var (
		in      = os.Stdin
		out     = &mdbuf.ErrWriter{Writer: os.Stdout}
		verbose bool
		size    int
	)

	flag.BoolVar(&verbose, "v", false, "list tag attributes")
	flag.IntVar(&size, "buffer", 0, "initial scan buffer size, to exercise resumption")
	flag.Parse()

	logOut := mdbuf.PrefixWriter("> log: ", out)
	defer logOut.Close()
	log.SetOutput(logOut)
	log.SetFlags(0)

	var tok scanhtml.Tokenizer
	sc := bufio.NewScanner(in)
	if size > 0 {
		sc.Buffer(make([]byte, 0, size), bufio.MaxScanTokenSize)
	}
	sc.Split(tok.Scan)

	n := 0
	var depth []scanhtml.TagID
	if err := mdbuf.WriteLines(out, func(w io.Writer) bool {
		if !sc.Scan() {
			return false
		}
		n++

		if tok.Type() == scanhtml.EndTagToken && len(depth) > 0 {
			depth = depth[:len(depth)-1]
		}
		width, _ := fmt.Fprintf(w, "%v. ", n)
		itemOut := mdbuf.PrefixWriter(strings.Repeat(" ", width), w)
		defer itemOut.Close()

		io.WriteString(w, strings.Repeat("  ", len(depth)))
		fmt.Fprintf(w, "%v\n", &tok)
		if tok.Type() == scanhtml.StartTagToken && !tok.Tag().Void() {
			depth = append(depth, tok.Tag())
		}
		if verbose {
			for _, attr := range tok.Attrs() {
				fmt.Fprintf(itemOut, "- %v\n", attr)
			}
		}
		return true
	}); err != nil {
		log.Fatalf("write error: %v", err)
	}

	if err := sc.Err(); err != nil {
		fmt.Printf("# main scan error\n%T: %v\n", err, err)
		os.Exit(1)
	}
}

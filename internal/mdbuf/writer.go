package mdbuf

import (
	"bytes"
	"io"
)

// WriteBuffer combines a byte buffer with a destination writer and flush
// policy. Example use:
//
//	var buf WriteBuffer
//	buf.To = os.Stdout
//	for chunk := range chunks {
//		buf.WriteString(chunk)
//		if err := buf.MaybeFlush(); err != nil {
//			return err
//		}
//	}
//	return buf.Flush()
type WriteBuffer struct {
	FlushPolicy
	To io.Writer
	bytes.Buffer
}

// FlushPolicy determines how many leading bytes of a buffer should be
// flushed; 0 means keep buffering.
type FlushPolicy interface {
	ShouldFlush(b []byte) int
}

// FlushPolicyFunc is a convenience adaptor for FlushPolicy around a compatible
// anonymous function.
type FlushPolicyFunc func(b []byte) int

// ShouldFlush calls the receiver function pointer.
func (f FlushPolicyFunc) ShouldFlush(b []byte) int { return f(b) }

// Flush writes all of the receiver buffer contents, regardless of its
// FlushPolicy.
func (buf *WriteBuffer) Flush() error {
	_, err := buf.WriteTo(buf.To)
	return err
}

// MaybeFlush writes N bytes into To if FlushPolicy returns N > 0.
// The M bytes written are then discarded from the receiver buffer.
// If FlushPolicy is nil, it will be set to FlushLineChunks.
func (buf *WriteBuffer) MaybeFlush() error {
	if buf.FlushPolicy == nil {
		buf.FlushPolicy = FlushPolicyFunc(FlushLineChunks)
	}
	b := buf.Bytes()
	if n := buf.ShouldFlush(b); n > 0 {
		m, err := buf.To.Write(b[:n])
		buf.Next(m)
		return err
	}
	return nil
}

// FlushLineChunks is a FlushPolicy(Func) that flushes as large a chunk as
// possible, through the last written newline byte.
func FlushLineChunks(b []byte) int {
	if i := bytes.LastIndexByte(b, '\n'); i >= 0 {
		return i + 1
	}
	return 0
}

// FlushSize returns a FlushPolicy that flushes everything once at least size
// bytes are buffered.
func FlushSize(size int) FlushPolicy {
	return FlushPolicyFunc(func(b []byte) int {
		if len(b) >= size {
			return len(b)
		}
		return 0
	})
}

// ErrWriter wraps a writer, tracking its last error, and preventing future
// writes after a non-nil one.
type ErrWriter struct {
	io.Writer
	Err error
}

// Write passes through to Writer if Err is nil, retaining any returned error.
func (ew *ErrWriter) Write(p []byte) (n int, err error) {
	if ew.Err == nil {
		n, ew.Err = ew.Writer.Write(p)
	}
	return n, ew.Err
}

// PrefixWriter returns a writer that prepends the given string before every
// line written through it.
// The caller SHOULD close it if they care to flush any partial final line.
func PrefixWriter(prefix string, w io.Writer) io.WriteCloser {
	p := &prefixer{prefix: prefix}
	p.buf.To = w
	return p
}

type prefixer struct {
	buf    WriteBuffer
	prefix string
	mid    bool // within a line
}

func (p *prefixer) Close() error { return p.buf.Flush() }

func (p *prefixer) Write(b []byte) (n int, err error) {
	for len(b) > 0 {
		if !p.mid {
			p.buf.WriteString(p.prefix)
			p.mid = true
		}
		line := b
		if i := bytes.IndexByte(b, '\n'); i >= 0 {
			line = b[:i+1]
			p.mid = false
		}
		b = b[len(line):]
		m, _ := p.buf.Write(line)
		n += m
	}
	return n, p.buf.MaybeFlush()
}

// WriteLines calls the given function around an internal WriteBuffer,
// calling MaybeFlush after every true return, stopping on false return.
// Iteration also stops early if a write error is encountered.
func WriteLines(to io.Writer, next func(w io.Writer) bool) error {
	ew, _ := to.(*ErrWriter)
	if ew == nil {
		ew = &ErrWriter{Writer: to}
	}
	var buf WriteBuffer
	buf.To = ew
	for ew.Err == nil && next(&buf) {
		buf.MaybeFlush()
	}
	buf.Flush()
	return ew.Err
}

// TrimWriter passes bytes through to a destination, trimming all leading
// and trailing ASCII whitespace from the overall stream. Interior whitespace
// runs are held until followed by other content, so they are dropped if the
// stream ends first.
type TrimWriter struct {
	To      io.Writer
	started bool
	held    []byte
}

// Write implements io.Writer.
func (tw *TrimWriter) Write(p []byte) (int, error) {
	n := len(p)
	if !tw.started {
		p = bytes.TrimLeft(p, " \t\r\n")
		if len(p) == 0 {
			return n, nil
		}
		tw.started = true
	}
	body := bytes.TrimRight(p, " \t\r\n")
	if len(body) > 0 {
		if len(tw.held) > 0 {
			if _, err := tw.To.Write(tw.held); err != nil {
				return 0, err
			}
			tw.held = tw.held[:0]
		}
		if _, err := tw.To.Write(body); err != nil {
			return 0, err
		}
	}
	tw.held = append(tw.held, p[len(body):]...)
	return n, nil
}

package mdbuf

import "fmt"

// Buffer is an append-only byte buffer addressed by absolute stream offsets.
// Consumed prefix bytes may be discarded, after which offsets remain stable.
type Buffer struct {
	buf  []byte
	base int64 // stream offset of buf[0]
}

// Write appends p, never failing.
func (b *Buffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// WriteString appends s, never failing.
func (b *Buffer) WriteString(s string) (int, error) {
	b.buf = append(b.buf, s...)
	return len(s), nil
}

// WriteByte appends c.
func (b *Buffer) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// Offset returns the stream offset just past the last written byte.
func (b *Buffer) Offset() int64 { return b.base + int64(len(b.buf)) }

// Base returns the stream offset of the first retained byte.
func (b *Buffer) Base() int64 { return b.base }

// Len returns how many bytes are retained.
func (b *Buffer) Len() int { return len(b.buf) }

// Slice returns the retained bytes within [start, end), clipped to what is
// retained. The returned slice aliases the buffer until the next write.
func (b *Buffer) Slice(start, end int64) []byte {
	start, end = b.clip(start), b.clip(end)
	if end <= start {
		return nil
	}
	return b.buf[start-b.base : end-b.base]
}

func (b *Buffer) clip(off int64) int64 {
	if off < b.base {
		return b.base
	}
	if end := b.Offset(); off > end {
		return end
	}
	return off
}

// Truncate discards all bytes at or after offset off.
// Panics if off precedes the retained bytes.
func (b *Buffer) Truncate(off int64) {
	if off < b.base {
		panic(fmt.Sprintf("mdbuf: truncate to discarded offset %v < %v", off, b.base))
	}
	if off < b.Offset() {
		b.buf = b.buf[:off-b.base]
	}
}

// Discard drops all retained bytes before offset off.
func (b *Buffer) Discard(off int64) {
	off = b.clip(off)
	n := int(off - b.base)
	if n == 0 {
		return
	}
	m := copy(b.buf, b.buf[n:])
	b.buf = b.buf[:m]
	b.base = off
}

// Format writes the retained bytes, prefixed by their offset range when
// formatted with %+v.
func (b *Buffer) Format(f fmt.State, c rune) {
	if f.Flag('+') {
		fmt.Fprintf(f, "@%v:%v ", b.base, b.Offset())
	}
	if c == 'q' {
		fmt.Fprintf(f, "%q", b.buf)
	} else {
		f.Write(b.buf)
	}
}

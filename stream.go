package htmd

import (
	"context"
	"errors"
	"io"
	"iter"
	"time"
)

// ErrStopped is reported to a StreamOptions.Observer when iteration of
// ConvertStream is stopped before the sequence ends.
var ErrStopped = errors.New("htmd: conversion stopped by consumer")

// Convert converts a complete HTML document.
func Convert(html string, opts Options) (string, error) {
	c, err := NewConverter(opts)
	if err != nil {
		return "", err
	}
	if _, err := c.WriteString(html); err != nil {
		return "", err
	}
	if err := c.Close(); err != nil {
		return "", err
	}
	return c.Take(true), nil
}

// Result is the outcome of ConvertAsync.
type Result struct {
	Markdown string
	Data     map[string]any // merged plugin Finish results
	Err      error
}

// asyncPiece is how much input ConvertAsync converts between checks for
// cancellation.
const asyncPiece = 32 * 1024

// ConvertAsync converts a complete HTML document on a new goroutine, sending
// its one Result on the returned channel. Conversion stops early with the
// context's error once it is done.
func ConvertAsync(ctx context.Context, html string, opts Options) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		c, err := NewConverter(opts)
		for err == nil && len(html) > 0 {
			if err = ctx.Err(); err != nil {
				break
			}
			piece := html
			if len(piece) > asyncPiece {
				piece = piece[:asyncPiece]
			}
			html = html[len(piece):]
			_, err = c.WriteString(piece)
		}
		if err == nil {
			err = c.Close()
		}
		if err != nil {
			ch <- Result{Err: err}
			return
		}
		ch <- Result{Markdown: c.Take(true), Data: c.Result()}
	}()
	return ch
}

// ChunkSource returns a source of the given chunks, for ConvertStream.
func ChunkSource(chunks ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, chunk := range chunks {
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// ReaderSource returns a source that reads r in chunks of up to size bytes,
// for ConvertStream.
func ReaderSource(r io.Reader, size int) iter.Seq2[string, error] {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return func(yield func(string, error) bool) {
		buf := make([]byte, size)
		for {
			n, err := r.Read(buf)
			if n > 0 && !yield(string(buf[:n]), nil) {
				return
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", err)
				return
			}
		}
	}
}

// ConvertStream converts HTML pulled from src into a sequence of Markdown
// chunks, whose concatenation is the same as Convert's result for the
// concatenated input.
//
// Conversion is driven by iteration: no input is read, nor any work done,
// except to produce the next chunk; stopping iteration early stops it all.
// Any error ends the sequence, after being yielded with an empty chunk.
//
// Output is withheld while any plugin BufferController asks for it, then
// until the content density score reaches sopts.MinDensityScore, and is
// otherwise chunked by sopts.FlushPolicy or ChunkSize. Withheld output is
// forcibly flushed once sopts.MaxBufferSize is reached.
func ConvertStream(src iter.Seq2[string, error], opts Options, sopts StreamOptions) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var (
			stats StreamStats
			err   error
			t0    = time.Now()
		)
		if obs := sopts.Observer; obs != nil {
			defer func() {
				stats.Duration = time.Since(t0)
				obs.ObserveDone(stats, err)
			}()
		}

		c, err := NewConverter(opts)
		if err != nil {
			yield("", err)
			return
		}

		send := func(chunk string) bool {
			if chunk == "" {
				return true
			}
			stats.Chunks++
			stats.OutputBytes += int64(len(chunk))
			if sopts.Observer != nil {
				sopts.Observer.ObserveChunk(len(chunk))
			}
			return yield(chunk, nil)
		}

		policy := sopts.policy()
		dense := sopts.MinDensityScore <= 0
		step := func() bool {
			if sopts.MaxBufferSize > 0 && c.Buffered() >= sopts.MaxBufferSize {
				stats.Forced++
				return send(c.Take(true))
			}
			if c.ShouldBuffer() {
				return true
			}
			if !dense {
				if c.Density() < sopts.MinDensityScore {
					return true
				}
				dense = true
				return send(c.Take(false))
			}
			if n := policy.ShouldFlush(c.Bytes()); n > 0 {
				return send(c.takeUpTo(c.e.out.Base()+int64(n), false))
			}
			return true
		}

		for chunk, serr := range src {
			if serr != nil {
				err = serr
				yield("", err)
				return
			}
			stats.InputBytes += int64(len(chunk))
			if _, err = c.WriteString(chunk); err != nil {
				yield("", err)
				return
			}
			if !step() {
				err = ErrStopped
				return
			}
		}

		if err = c.Close(); err != nil {
			yield("", err)
			return
		}
		if !send(c.Take(true)) {
			err = ErrStopped
			return
		}
		if sopts.OnResult != nil {
			sopts.OnResult(c.Result())
		}
	}
}

// ConvertReader streams the conversion of HTML read from r into w.
func ConvertReader(w io.Writer, r io.Reader, opts Options, sopts StreamOptions) error {
	for chunk, err := range ConvertStream(ReaderSource(r, sopts.ChunkSize), opts, sopts) {
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, chunk); err != nil {
			return err
		}
	}
	return nil
}

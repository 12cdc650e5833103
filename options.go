package htmd

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jcorbin/htmd/internal/mdbuf"
)

// Strategy names a built-in content scoping strategy.
type Strategy string

// Strategy constants.
const (
	// StrategyNone converts the whole document.
	StrategyNone Strategy = ""

	// StrategyMinimal drops navigation, footer, and aside boilerplate.
	StrategyMinimal Strategy = "minimal"

	// StrategyMinimalFromFirstHeader additionally drops everything before
	// the first heading; documents without any heading are kept whole.
	StrategyMinimalFromFirstHeader Strategy = "minimal-from-first-header"
)

// ErrUnknownStrategy is returned when Options names an unknown Strategy.
var ErrUnknownStrategy = errors.New("unknown strategy")

// ParseStrategy validates a strategy name.
func ParseStrategy(name string) (Strategy, error) {
	switch s := Strategy(name); s {
	case StrategyNone, StrategyMinimal, StrategyMinimalFromFirstHeader:
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// Options configures one conversion.
type Options struct {
	// Plugins are applied in order; see Plugin.
	Plugins []Plugin

	// Origin is the base URL used to resolve root-relative link and image
	// references.
	Origin string

	// Strategy selects a built-in content scoping strategy, applied before
	// any Plugins.
	Strategy Strategy

	// DebugMarkers allows plugins to annotate output with HTML comments.
	DebugMarkers bool

	// Handlers, if non-nil, replaces DefaultHandlers as the base table that
	// each conversion copies.
	Handlers *Handlers

	// Logger receives debug records about recovered markup problems, like
	// ignored end tags; nil discards them.
	Logger *slog.Logger
}

// ResolveURL resolves a link or image reference against Origin: root-relative
// references are joined with exactly one slash, and protocol-relative ones get
// Origin's scheme; anything else passes through.
func (o *Options) ResolveURL(ref string) string {
	ref = strings.TrimSpace(ref)
	if o == nil || o.Origin == "" || ref == "" || ref[0] != '/' {
		return ref
	}
	if strings.HasPrefix(ref, "//") {
		scheme := "https:"
		if i := strings.Index(o.Origin, "//"); i > 0 {
			scheme = o.Origin[:i]
		}
		return scheme + ref
	}
	return strings.TrimRight(o.Origin, "/") + ref
}

func (o *Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// DefaultChunkSize is the StreamOptions.ChunkSize used when none is given.
const DefaultChunkSize = 4096

// StreamOptions configures how ConvertStream batches output into chunks.
type StreamOptions struct {
	// ChunkSize is the target chunk size in bytes; output is yielded once
	// at least this much is ready.
	ChunkSize int

	// MinDensityScore, when positive, withholds all output until the
	// converted content's density score reaches it; everything held is then
	// yielded at once, and later output is chunked normally.
	MinDensityScore float64

	// MaxBufferSize, when positive, bounds how many bytes may be withheld:
	// once reached, everything converted so far is yielded regardless of any
	// buffering signal.
	MaxBufferSize int

	// FlushPolicy, if non-nil, overrides the ChunkSize policy.
	FlushPolicy mdbuf.FlushPolicy

	// Observer, if non-nil, is told about every chunk and the final outcome.
	Observer Observer

	// OnResult, if non-nil, receives the merged plugin Finish results once
	// the input is exhausted.
	OnResult func(map[string]any)
}

// Observer receives streaming progress; see StreamOptions.
type Observer interface {
	ObserveChunk(size int)
	ObserveDone(stats StreamStats, err error)
}

// StreamStats summarizes one streaming conversion.
type StreamStats struct {
	InputBytes  int64
	OutputBytes int64
	Chunks      int
	Forced      int // chunks yielded due to MaxBufferSize
	Duration    time.Duration
}

func (so StreamOptions) policy() mdbuf.FlushPolicy {
	if so.FlushPolicy != nil {
		return so.FlushPolicy
	}
	size := so.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	return mdbuf.FlushSize(size)
}

package htmd

import "log/slog"

// State is the runtime state of one conversion, passed to every plugin hook.
type State struct {
	c      *Converter
	values map[string]any
}

// Options returns the conversion's options.
func (s *State) Options() *Options { return &s.c.opts }

// Handlers returns the conversion's handler table, a private copy that
// Initializers may modify.
func (s *State) Handlers() *Handlers { return &s.c.handlers }

// Logger returns the conversion's logger, never nil.
func (s *State) Logger() *slog.Logger { return s.c.log }

// Set stores a value shared among plugins for the rest of the conversion.
func (s *State) Set(key string, val any) {
	if s.values == nil {
		s.values = make(map[string]any)
	}
	s.values[key] = val
}

// Get returns a value stored by Set.
func (s *State) Get(key string) any { return s.values[key] }

// Top returns the innermost open element, or nil.
func (s *State) Top() *Node { return s.c.top() }

// Density returns the running content density score: the sum over written
// text nodes of 1 plus a tenth of their depth.
func (s *State) Density() float64 { return s.c.density }

// CreateBufferRegion decides that the output of element n, which must be
// open, is to be included or excluded from final output. Decisions on inner
// elements override those of their ancestors, regardless of order; later
// decisions on the same element override earlier ones.
//
// Deciding at exit requires that n's output was not streamed out already;
// see DeferBufferRegion.
func (s *State) CreateBufferRegion(n *Node, include bool) {
	s.c.regions.node(n, include)
}

// DeferBufferRegion withholds n's output from streaming until n exits, so
// that a CreateBufferRegion decision may be made at exit.
func (s *State) DeferBufferRegion(n *Node) { n.held = true }

// ExcludeBefore excludes all output written before element n started,
// overriding any other decision; it returns false, doing nothing, if n has
// not written anything yet.
func (s *State) ExcludeBefore(n *Node) bool {
	if n.start < 0 {
		return false
	}
	s.c.regions.excludeBefore(n)
	return true
}

// SetDefaultInclude sets whether output not covered by any buffer region is
// included, as it is by default.
func (s *State) SetDefaultInclude(include bool) { s.c.regions.exclude = !include }

package htmd

// Plugin is any value implementing one or more of the hook interfaces below;
// hooks a plugin does not implement are simply not called for it.
//
// Hooks are called in plugin order, for exit hooks as well as enter hooks.
// Any error returned by a hook aborts the conversion, and is returned to the
// caller as is. A plugin instance holds per-conversion state, so must not be
// shared by concurrent conversions unless it is stateless.
type Plugin any

// Initializer is called once before any input is converted. It may change
// the conversion's handler table through State.Handlers; changes are private
// to the conversion.
type Initializer interface {
	Init(s *State) error
}

// NodeFilter may veto an element before any other hook sees it: a vetoed
// element and all of its descendants produce no output and are not passed to
// any further hooks. The first filter to veto wins.
type NodeFilter interface {
	BeforeNodeProcess(n *Node, s *State) (skip bool, err error)
}

// EnterHook may return Markdown to write where an element starts.
type EnterHook interface {
	OnNodeEnter(n *Node, s *State) (string, error)
}

// TextResult is the outcome of TextProcessor.ProcessTextNode; its zero value
// leaves the text unchanged.
type TextResult struct {
	Content string // replacement text, used if Replace is set
	Replace bool
	Skip    bool // write nothing for the text
}

// TextProcessor may rewrite or suppress a text node. Later processors see the
// Value replaced by earlier ones; any processor skipping suppresses the text.
type TextProcessor interface {
	ProcessTextNode(n *Node, s *State) (TextResult, error)
}

// ExitHook may return Markdown to write where an element ends, before the
// element's own closing fragment.
type ExitHook interface {
	OnNodeExit(n *Node, s *State) (string, error)
}

// ContentTransformer rewrites all of the Markdown written for an element.
//
// WantsContent is consulted when the element is entered; output from a
// wanted element is withheld from streaming until TransformContent has been
// called with it at exit. Transformers wanting the same element are chained
// in plugin order.
type ContentTransformer interface {
	WantsContent(n *Node, s *State) bool
	TransformContent(content string, n *Node, s *State) (string, error)
}

// Finisher is called once after all input has been converted; results from
// all finishers are merged, later plugins winning any key collision.
type Finisher interface {
	Finish(s *State) (map[string]any, error)
}

// BufferController may withhold streamed output; output is withheld while
// any controller asks for it, unless StreamOptions.MaxBufferSize is reached.
type BufferController interface {
	ShouldBuffer(s *State) bool
}

// pipeline holds the hooks of a conversion's plugins, resolved once.
type pipeline struct {
	inits      []Initializer
	filters    []NodeFilter
	enters     []EnterHook
	texts      []TextProcessor
	exits      []ExitHook
	transforms []ContentTransformer
	finishers  []Finisher
	buffers    []BufferController
}

func (p *pipeline) add(plugin Plugin) {
	if h, ok := plugin.(Initializer); ok {
		p.inits = append(p.inits, h)
	}
	if h, ok := plugin.(NodeFilter); ok {
		p.filters = append(p.filters, h)
	}
	if h, ok := plugin.(EnterHook); ok {
		p.enters = append(p.enters, h)
	}
	if h, ok := plugin.(TextProcessor); ok {
		p.texts = append(p.texts, h)
	}
	if h, ok := plugin.(ExitHook); ok {
		p.exits = append(p.exits, h)
	}
	if h, ok := plugin.(ContentTransformer); ok {
		p.transforms = append(p.transforms, h)
	}
	if h, ok := plugin.(Finisher); ok {
		p.finishers = append(p.finishers, h)
	}
	if h, ok := plugin.(BufferController); ok {
		p.buffers = append(p.buffers, h)
	}
}

package plugins

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/jcorbin/htmd"
	"github.com/jcorbin/htmd/scanhtml"
)

// ReadabilityOptions configures Readability.
type ReadabilityOptions struct {
	// MinScore is the score a container needs to be kept; see Readability.
	// Defaults to DefaultMinScore.
	MinScore float64
}

// DefaultMinScore is the default ReadabilityOptions.MinScore.
const DefaultMinScore = 20

var (
	negativeRE = regexp.MustCompile(`(?i)\b(ad|ads|advert|banner|breadcrumbs?|comments?|cookie|footer|footnote|masthead|menu|nav|popup|promo|related|share|sidebar|social|sponsor|subscribe|widget)\b`)
	positiveRE = regexp.MustCompile(`(?i)\b(article|body|content|entry|main|page|post|story|text)\b`)
)

// Readability keeps the main content of a page, excluding containers (div,
// section, article, and main elements) that look like boilerplate.
//
// Containers whose class or id marks them as boilerplate (navigation,
// sidebars, comments, ads) are excluded with all of their content. Other
// containers are scored once they exit, by the length and comma count of
// their text, discounted by how much of it is link text:
//
//	score = (letters/25 + commas) * (1 - linkLetters/letters) + bonus
//
// where bonus is 10 for a class or id marking main content. Containers
// scoring under MinScore are excluded, even within a kept container; output
// is withheld from streaming until one is kept.
type Readability struct {
	min   float64
	open  []*container
	skip  int // depth within excluded boilerplate
	stats ReadabilityStats
	found bool
	debug bool
}

// ReadabilityStats is reported from Readability.Finish under "readability".
type ReadabilityStats struct {
	Containers int     `json:"containers" yaml:"containers"`
	Kept       int     `json:"kept" yaml:"kept"`
	Excluded   int     `json:"excluded" yaml:"excluded"`
	Best       float64 `json:"best" yaml:"best"`
}

type container struct {
	n       *htmd.Node
	letters int
	links   int
	commas  int
	bonus   float64
}

func (c *container) score() float64 {
	if c.letters == 0 {
		return c.bonus
	}
	base := float64(c.letters)/25 + float64(c.commas)
	return base*(1-float64(c.links)/float64(c.letters)) + c.bonus
}

// NewReadability creates a Readability plugin.
func NewReadability(opts ReadabilityOptions) *Readability {
	r := &Readability{min: opts.MinScore}
	if r.min <= 0 {
		r.min = DefaultMinScore
	}
	return r
}

func isContainer(tag scanhtml.TagID) bool {
	switch tag {
	case scanhtml.Div, scanhtml.Section, scanhtml.Article, scanhtml.Main:
		return true
	}
	return false
}

// Init implements htmd.Initializer.
func (r *Readability) Init(s *htmd.State) error {
	r.debug = s.Options().DebugMarkers
	return nil
}

// OnNodeEnter implements htmd.EnterHook.
func (r *Readability) OnNodeEnter(n *htmd.Node, s *htmd.State) (string, error) {
	if !isContainer(n.Tag) || n.Suppressed() {
		return "", nil
	}
	if r.skip > 0 {
		r.skip++
		return "", nil
	}
	r.stats.Containers++
	hint := n.Attr("class") + " " + n.ID()
	if negativeRE.MatchString(hint) {
		r.skip = 1
		r.stats.Excluded++
		s.CreateBufferRegion(n, false)
		s.Logger().Debug("readability excluded boilerplate", "node", n)
		if r.debug {
			return fmt.Sprintf("<!-- readability: excluded %s -->", strings.TrimSpace(hint)), nil
		}
		return "", nil
	}
	c := &container{n: n}
	if positiveRE.MatchString(hint) {
		c.bonus = 10
	}
	r.open = append(r.open, c)
	s.DeferBufferRegion(n)
	return "", nil
}

// ProcessTextNode implements htmd.TextProcessor.
func (r *Readability) ProcessTextNode(n *htmd.Node, _ *htmd.State) (htmd.TextResult, error) {
	if r.skip > 0 || len(r.open) == 0 || n.Suppressed() {
		return htmd.TextResult{}, nil
	}
	c := r.open[len(r.open)-1]
	letters := 0
	for _, ch := range n.Value {
		if !unicode.IsSpace(ch) {
			letters++
		}
	}
	c.letters += letters
	c.commas += strings.Count(n.Value, ",")
	if n.Inside(scanhtml.A) {
		c.links += letters
	}
	return htmd.TextResult{}, nil
}

// OnNodeExit implements htmd.ExitHook.
func (r *Readability) OnNodeExit(n *htmd.Node, s *htmd.State) (string, error) {
	if !isContainer(n.Tag) || n.Suppressed() {
		return "", nil
	}
	if r.skip > 0 {
		r.skip--
		return "", nil
	}
	i := len(r.open) - 1
	if i < 0 || r.open[i].n != n {
		return "", nil
	}
	c := r.open[i]
	r.open = r.open[:i]
	if i > 0 {
		p := r.open[i-1]
		p.letters += c.letters
		p.links += c.links
		p.commas += c.commas
	}

	score := c.score()
	if score > r.stats.Best {
		r.stats.Best = score
	}
	keep := score >= r.min
	if keep {
		r.stats.Kept++
		r.found = true
		s.CreateBufferRegion(n, true)
	} else {
		r.stats.Excluded++
		s.CreateBufferRegion(n, false)
	}
	s.Logger().Debug("readability scored container", "node", n, "score", score, "keep", keep)
	if r.debug && keep {
		return fmt.Sprintf("<!-- readability: score %.1f -->", score), nil
	}
	return "", nil
}

// ShouldBuffer withholds output until a container is kept.
func (r *Readability) ShouldBuffer(*htmd.State) bool { return !r.found }

// Finish reports ReadabilityStats under "readability".
func (r *Readability) Finish(*htmd.State) (map[string]any, error) {
	return map[string]any{"readability": r.stats}, nil
}

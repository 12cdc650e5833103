package htmd

import (
	"strings"

	"github.com/jcorbin/htmd/scanhtml"
)

func strategyPlugins(s Strategy) ([]Plugin, error) {
	if _, err := ParseStrategy(string(s)); err != nil {
		return nil, err
	}
	switch s {
	case StrategyMinimal:
		return []Plugin{boilerplate{}}, nil
	case StrategyMinimalFromFirstHeader:
		return []Plugin{boilerplate{}, &firstHeading{}}, nil
	}
	return nil, nil
}

// boilerplate skips site chrome: navigation, footers, asides, and forms.
type boilerplate struct{}

func (boilerplate) BeforeNodeProcess(n *Node, _ *State) (bool, error) {
	switch n.Tag {
	case scanhtml.Nav, scanhtml.Footer, scanhtml.Aside, scanhtml.Form:
		return true, nil
	}
	switch strings.ToLower(strings.TrimSpace(n.Attr("role"))) {
	case "navigation", "contentinfo", "complementary":
		return true, nil
	}
	return false, nil
}

// firstHeading excludes everything before the first heading, withholding
// output until one is seen.
type firstHeading struct{ found bool }

func (f *firstHeading) OnNodeExit(n *Node, s *State) (string, error) {
	if !f.found && n.Tag.Heading() > 0 && !n.Suppressed() && s.ExcludeBefore(n) {
		f.found = true
		s.Logger().Debug("content starts at heading", "node", n)
	}
	return "", nil
}

func (f *firstHeading) ShouldBuffer(*State) bool { return !f.found }

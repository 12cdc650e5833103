package plugins

import (
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jcorbin/htmd"
	"github.com/jcorbin/htmd/scanhtml"
)

// FrontmatterOptions configures Frontmatter.
type FrontmatterOptions struct {
	// Meta lists the <meta> names and properties to collect; nil collects
	// all of them.
	Meta []string

	// NoEmit only reports collected metadata from Finish, writing nothing.
	NoEmit bool
}

// Frontmatter collects document metadata from the title, meta, and canonical
// link elements, and writes it as a YAML frontmatter block before the first
// body content.
//
// Only metadata seen before body content starts is written; all of it is
// reported from Finish under "frontmatter".
type Frontmatter struct {
	opts    FrontmatterOptions
	keys    []string
	vals    map[string]string
	title   strings.Builder
	written bool
}

// NewFrontmatter creates a Frontmatter plugin.
func NewFrontmatter(opts FrontmatterOptions) *Frontmatter {
	return &Frontmatter{opts: opts, vals: make(map[string]string)}
}

func (fm *Frontmatter) set(key, val string) {
	val = strings.Join(strings.Fields(val), " ")
	if key == "" || val == "" {
		return
	}
	if _, ok := fm.vals[key]; !ok {
		fm.keys = append(fm.keys, key)
	}
	fm.vals[key] = val
}

// OnNodeEnter collects metadata elements, and writes the frontmatter block
// once the first body element is entered.
func (fm *Frontmatter) OnNodeEnter(n *htmd.Node, s *htmd.State) (string, error) {
	switch n.Tag {
	case scanhtml.Meta:
		key := n.Attr("name")
		if key == "" {
			key = n.Attr("property")
		}
		key = strings.ToLower(key)
		if fm.opts.Meta == nil || slices.Contains(fm.opts.Meta, key) {
			fm.set(key, n.Attr("content"))
		}
		return "", nil
	case scanhtml.Link:
		if slices.Contains(strings.Fields(strings.ToLower(n.Attr("rel"))), "canonical") {
			fm.set("canonical", s.Options().ResolveURL(n.Attr("href")))
		}
		return "", nil
	case scanhtml.Title:
		fm.title.Reset()
		return "", nil
	case scanhtml.Html, scanhtml.Head:
		return "", nil
	}
	if fm.written || fm.opts.NoEmit || n.Suppressed() || n.Inside(scanhtml.Head) || n.Handler().Drop {
		return "", nil
	}
	fm.written = true
	return fm.block()
}

// ProcessTextNode collects the document title.
func (fm *Frontmatter) ProcessTextNode(n *htmd.Node, _ *htmd.State) (htmd.TextResult, error) {
	if p := n.Parent; p != nil && p.Tag == scanhtml.Title && !p.Inside(scanhtml.Svg) {
		fm.title.WriteString(n.Value)
	}
	return htmd.TextResult{}, nil
}

// OnNodeExit records the collected title.
func (fm *Frontmatter) OnNodeExit(n *htmd.Node, _ *htmd.State) (string, error) {
	if n.Tag == scanhtml.Title && !n.Inside(scanhtml.Svg) {
		if _, ok := fm.vals["title"]; !ok {
			fm.set("title", fm.title.String())
		}
	}
	return "", nil
}

// block renders collected metadata as a frontmatter block, followed by a
// blank line.
func (fm *Frontmatter) block() (string, error) {
	if len(fm.keys) == 0 {
		return "", nil
	}
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range fm.keys {
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: fm.vals[key]})
	}
	b, err := yaml.Marshal(doc)
	if err != nil {
		return "", err
	}
	return "---\n" + string(b) + "---\n\n", nil
}

// Finish reports all collected metadata under "frontmatter".
func (fm *Frontmatter) Finish(*htmd.State) (map[string]any, error) {
	if len(fm.keys) == 0 {
		return nil, nil
	}
	meta := make(map[string]any, len(fm.keys))
	for _, key := range fm.keys {
		meta[key] = fm.vals[key]
	}
	return map[string]any{"frontmatter": meta}, nil
}

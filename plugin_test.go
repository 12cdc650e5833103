package htmd_test

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/htmd"
	"github.com/jcorbin/htmd/scanhtml"
)

type marker struct {
	name string
	tag  scanhtml.TagID
}

func (m marker) OnNodeEnter(n *htmd.Node, _ *htmd.State) (string, error) {
	if n.Tag != m.tag {
		return "", nil
	}
	return "[" + m.name + "]", nil
}

func (m marker) OnNodeExit(n *htmd.Node, _ *htmd.State) (string, error) {
	if n.Tag != m.tag {
		return "", nil
	}
	return "[/" + m.name + "]", nil
}

func TestPlugins_order(t *testing.T) {
	out, err := htmd.Convert(`<p>a</p><h1>T</h1>`, htmd.Options{Plugins: []htmd.Plugin{
		marker{"1", scanhtml.H1},
		marker{"2", scanhtml.H1},
	}})
	require.NoError(t, err)
	assert.Equal(t, "a\n\n[1][2]# T[/1][/2]", out)
}

type skipClass struct {
	class    string
	filtered []string
}

func (sc *skipClass) BeforeNodeProcess(n *htmd.Node, _ *htmd.State) (bool, error) {
	sc.filtered = append(sc.filtered, n.Name)
	return n.HasClass(sc.class), nil
}

type recorder struct{ log []string }

func (r *recorder) OnNodeEnter(n *htmd.Node, _ *htmd.State) (string, error) {
	r.log = append(r.log, fmt.Sprintf("enter %v %d", n, n.Index))
	return "", nil
}

func (r *recorder) OnNodeExit(n *htmd.Node, _ *htmd.State) (string, error) {
	r.log = append(r.log, fmt.Sprintf("exit %v", n))
	return "", nil
}

func (r *recorder) ProcessTextNode(n *htmd.Node, _ *htmd.State) (htmd.TextResult, error) {
	r.log = append(r.log, fmt.Sprintf("text %q", n.Value))
	return htmd.TextResult{}, nil
}

func TestPlugins_skip(t *testing.T) {
	var (
		skip skipClass
		rec  recorder
	)
	skip.class = "ad"
	out, err := htmd.Convert(
		`<div class="ad"><p>Buy <b>now</b></p></div><p>Next</p>`,
		htmd.Options{Plugins: []htmd.Plugin{&skip, &rec}})
	require.NoError(t, err)
	assert.Equal(t, "Next", out)
	assert.Equal(t, []string{"div", "p"}, skip.filtered, "descendants of a skipped element are not filtered")
	assert.Equal(t, []string{
		"enter <p> 1",
		`text "Next"`,
		"exit <p>",
	}, rec.log, "hooks only see unskipped nodes, indexed among all siblings")
}

type scoper struct{ exclude bool }

func (sc scoper) Init(s *htmd.State) error {
	s.SetDefaultInclude(!sc.exclude)
	return nil
}

func (scoper) OnNodeEnter(n *htmd.Node, s *htmd.State) (string, error) {
	switch {
	case n.HasClass("in"):
		s.CreateBufferRegion(n, true)
	case n.HasClass("out"):
		s.CreateBufferRegion(n, false)
	}
	return "", nil
}

func TestPlugins_bufferRegions(t *testing.T) {
	for _, tc := range []struct {
		name    string
		exclude bool
		in      string
		out     string
	}{
		{
			name: "exclude outer include inner",
			in:   `<div class="out"><p>drop</p><div class="in"><p>keep</p></div></div><p>tail</p>`,
			out:  "keep\n\ntail",
		},
		{
			name:    "default exclude",
			exclude: true,
			in:      `<p>x</p><div class="in"><p>a</p><div class="out"><p>b</p></div><p>c</p></div>`,
			out:     "a\n\nc",
		},
		{
			name:    "nothing included",
			exclude: true,
			in:      `<p>x</p><p>y</p>`,
		},
		{
			name: "empty region",
			in:   `<p>a</p><div class="out"></div><p>b</p>`,
			out:  "a\n\nb",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out, err := htmd.Convert(tc.in, htmd.Options{Plugins: []htmd.Plugin{scoper{tc.exclude}}})
			require.NoError(t, err)
			assert.Equal(t, tc.out, out)
		})
	}
}

var errBoom = errors.New("boom")

type failOn struct{ tag scanhtml.TagID }

func (f failOn) OnNodeEnter(n *htmd.Node, _ *htmd.State) (string, error) {
	if n.Tag == f.tag {
		return "", fmt.Errorf("entering %v: %w", n, errBoom)
	}
	return "", nil
}

type failInit struct{}

func (failInit) Init(*htmd.State) error { return errBoom }

func TestPlugins_errors(t *testing.T) {
	_, err := htmd.Convert(`<p>a <b>b</b></p>`, htmd.Options{Plugins: []htmd.Plugin{failOn{scanhtml.B}}})
	assert.ErrorIs(t, err, errBoom)

	_, err = htmd.NewConverter(htmd.Options{Plugins: []htmd.Plugin{failInit{}}})
	assert.ErrorIs(t, err, errBoom)

	c, err := htmd.NewConverter(htmd.Options{Plugins: []htmd.Plugin{failOn{scanhtml.B}}})
	require.NoError(t, err)
	_, err = c.WriteString(`<p>a`)
	require.NoError(t, err)
	_, err = c.WriteString(` <b>b</b>`)
	assert.ErrorIs(t, err, errBoom)
	_, err = c.WriteString(`<p>more</p>`)
	assert.ErrorIs(t, err, errBoom, "errors are sticky")
	assert.ErrorIs(t, c.Close(), errBoom)
}

func TestConverter_closed(t *testing.T) {
	c, err := htmd.NewConverter(htmd.Options{})
	require.NoError(t, err)
	_, err = c.WriteString(`<p>a</p>`)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	_, err = c.Write([]byte(`<p>b</p>`))
	assert.ErrorIs(t, err, htmd.ErrClosed)
	assert.Equal(t, "a", c.Take(false))
	assert.Equal(t, "", c.Take(true))
}

type underscores struct{}

func (underscores) Init(s *htmd.State) error {
	s.Handlers()[scanhtml.Strong] = htmd.Handler{
		Enter:  func(*htmd.Node, *htmd.Options) string { return "__" },
		Exit:   func(*htmd.Node, *htmd.Options) string { return "__" },
		Inline: true,
	}
	return nil
}

func TestPlugins_handlers(t *testing.T) {
	out, err := htmd.Convert(`<strong>x</strong>`, htmd.Options{Plugins: []htmd.Plugin{underscores{}}})
	require.NoError(t, err)
	assert.Equal(t, "__x__", out)

	out, err = htmd.Convert(`<strong>x</strong>`, htmd.Options{})
	require.NoError(t, err)
	assert.Equal(t, "**x**", out, "handler changes are private to a conversion")

	hs := htmd.DefaultHandlers()
	hs[scanhtml.Em] = htmd.Handler{
		Enter:  func(*htmd.Node, *htmd.Options) string { return "_" },
		Exit:   func(*htmd.Node, *htmd.Options) string { return "_" },
		Inline: true,
	}
	hs[scanhtml.Span] = htmd.Handler{Drop: true}
	out, err = htmd.Convert(`<em>x</em> <span>y</span>`, htmd.Options{Handlers: &hs})
	require.NoError(t, err)
	assert.Equal(t, "_x_", out)

	def := htmd.DefaultHandlers()
	assert.NotNil(t, def[scanhtml.Em].Enter)
	assert.Equal(t, "*", def[scanhtml.Em].Enter(nil, nil))
}

type shouter struct{}

func (shouter) ProcessTextNode(n *htmd.Node, _ *htmd.State) (htmd.TextResult, error) {
	if strings.Contains(n.Value, "secret") {
		return htmd.TextResult{Skip: true}, nil
	}
	return htmd.TextResult{Content: strings.ToUpper(n.Value), Replace: true}, nil
}

func TestPlugins_text(t *testing.T) {
	var rec recorder
	out, err := htmd.Convert(`<p>hello <b>secret</b> world</p>`, htmd.Options{Plugins: []htmd.Plugin{shouter{}, &rec}})
	require.NoError(t, err)
	assert.Equal(t, "HELLO WORLD", out)
	assert.Contains(t, rec.log, `text "HELLO "`, "later processors see replaced text")
}

type classTransform struct {
	class string
	fn    func(string) string
}

func (ct classTransform) WantsContent(n *htmd.Node, _ *htmd.State) bool { return n.HasClass(ct.class) }

func (ct classTransform) TransformContent(content string, _ *htmd.Node, _ *htmd.State) (string, error) {
	return ct.fn(content), nil
}

func TestPlugins_transform(t *testing.T) {
	upper := classTransform{"shout", strings.ToUpper}
	gone := classTransform{"gone", func(string) string { return "" }}
	wrapped := classTransform{"shout", func(s string) string { return "<<" + s + ">>" }}

	for _, tc := range []struct {
		name    string
		plugins []htmd.Plugin
		in      string
		out     string
	}{
		{
			name:    "upper",
			plugins: []htmd.Plugin{upper},
			in:      `<p>a</p><div class="shout"><p>b <em>c</em></p></div><p>d</p>`,
			out:     "a\n\nB *C*\n\nd",
		},
		{
			name:    "chained",
			plugins: []htmd.Plugin{upper, wrapped},
			in:      `<p>a <span class="shout">b</span> c</p>`,
			out:     "a <<B>> c",
		},
		{
			name:    "removed",
			plugins: []htmd.Plugin{gone},
			in:      `<p>a</p><div class="gone"><p>b</p></div><p>c</p>`,
			out:     "a\n\nc",
		},
		{
			name:    "inserted into empty",
			plugins: []htmd.Plugin{classTransform{"fill", func(string) string { return "filled" }}},
			in:      `<p>a <span class="fill"></span></p>`,
			out:     "a filled",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out, err := htmd.Convert(tc.in, htmd.Options{Plugins: tc.plugins})
			require.NoError(t, err)
			assert.Equal(t, tc.out, out)
		})
	}
}

type finisher map[string]any

func (f finisher) Finish(*htmd.State) (map[string]any, error) { return f, nil }

func TestPlugins_finish(t *testing.T) {
	c, err := htmd.NewConverter(htmd.Options{Plugins: []htmd.Plugin{
		finisher{"a": 1, "k": "first"},
		finisher{"b": 2, "k": "second"},
	}})
	require.NoError(t, err)
	assert.Nil(t, c.Result())
	_, err = c.WriteString(`<p>x</p>`)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.Equal(t, map[string]any{"a": 1, "b": 2, "k": "second"}, c.Result())
}

type inspector struct {
	t    *testing.T
	seen int
}

func (in *inspector) Init(s *htmd.State) error {
	s.Set("links", 0)
	return nil
}

func (in *inspector) OnNodeEnter(n *htmd.Node, s *htmd.State) (string, error) {
	switch n.Tag {
	case scanhtml.Ul:
		n.Set("list", true)
	case scanhtml.A:
		t := in.t
		assert.Equal(t, "<a>", fmt.Sprint(n))
		assert.Equal(t, `<a> depth=3 index=0 href="/x" title="t"`, fmt.Sprintf("%+v", n))
		assert.Equal(t, "/x", n.Attr("href"))
		assert.True(t, n.HasAttr("title"))
		assert.False(t, n.HasAttr("rel"))
		assert.True(t, n.Inside(scanhtml.Ul))
		assert.False(t, n.Inside(scanhtml.A))
		assert.Equal(t, uint8(1), n.DepthMap[scanhtml.A])
		if li := n.Closest(scanhtml.Li); assert.NotNil(t, li) {
			assert.Equal(t, 1, li.ItemIndex)
			assert.Equal(t, true, li.Parent.Get("list"))
		}
		assert.Nil(t, n.Closest(scanhtml.Ol))
		assert.Same(t, n, s.Top())
		s.Set("links", s.Get("links").(int)+1)
		in.seen++
	}
	return "", nil
}

func TestNode_api(t *testing.T) {
	in := &inspector{t: t}
	out, err := htmd.Convert(`<ul><li>a</li><li><a href="/x" title="t">b</a></li></ul>`,
		htmd.Options{Plugins: []htmd.Plugin{in}})
	require.NoError(t, err)
	assert.Equal(t, "- a\n- [b](/x \"t\")", out)
	assert.Equal(t, 1, in.seen)
}

func TestConverter_logging(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	out, err := htmd.Convert(`<p>a</span>b</p>`, htmd.Options{Logger: log})
	require.NoError(t, err)
	assert.Equal(t, "ab", out)
	assert.Contains(t, buf.String(), "ignoring unmatched end tag")
	assert.Contains(t, buf.String(), "tag=span")
}

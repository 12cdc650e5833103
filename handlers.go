package htmd

import "github.com/jcorbin/htmd/scanhtml"

var defaultHandlers = func() (hs Handlers) {
	passthrough := Handler{Inline: true}
	drop := Handler{Drop: true}
	para := block(2, 2)
	list := Handler{Spacing: Spacing{2, 2}, Nested: &Spacing{1, 1}}
	code := wrap("`", "`")
	code.CodeSpan = true
	fence := Handler{
		Enter:    fenceEnter,
		Exit:     static("\n```"),
		Verbatim: true,
		Spacing:  Spacing{2, 2},
	}

	hs[scanhtml.Unknown] = passthrough
	for _, tag := range []scanhtml.TagID{
		scanhtml.Abbr, scanhtml.Acronym, scanhtml.Bdi, scanhtml.Bdo,
		scanhtml.Big, scanhtml.Data, scanhtml.Font, scanhtml.Label,
		scanhtml.Output, scanhtml.Picture, scanhtml.Ruby, scanhtml.Rt,
		scanhtml.Slot, scanhtml.Small, scanhtml.Span, scanhtml.Time,
		scanhtml.Ins, scanhtml.U, scanhtml.Mark, scanhtml.Html, scanhtml.Body,
	} {
		hs[tag] = passthrough
	}

	for _, tag := range []scanhtml.TagID{
		scanhtml.Head, scanhtml.Script, scanhtml.Style, scanhtml.Template,
		scanhtml.Noscript, scanhtml.Svg, scanhtml.Math, scanhtml.Select,
		scanhtml.Option, scanhtml.Optgroup, scanhtml.Datalist, scanhtml.Button,
		scanhtml.Textarea, scanhtml.Iframe, scanhtml.Object, scanhtml.Embed,
		scanhtml.Canvas, scanhtml.Audio, scanhtml.Video, scanhtml.Noembed,
		scanhtml.Noframes, scanhtml.Frameset, scanhtml.Frame, scanhtml.Title,
		scanhtml.Rp, scanhtml.Progress, scanhtml.Meter, scanhtml.Map,
		scanhtml.Area, scanhtml.Base, scanhtml.Link, scanhtml.Meta,
		scanhtml.Param, scanhtml.Source, scanhtml.Track, scanhtml.Col,
		scanhtml.Colgroup,
	} {
		hs[tag] = drop
	}

	for _, tag := range []scanhtml.TagID{
		scanhtml.P, scanhtml.Div, scanhtml.Section, scanhtml.Article,
		scanhtml.Main, scanhtml.Header, scanhtml.Footer, scanhtml.Nav,
		scanhtml.Aside, scanhtml.Address, scanhtml.Figure, scanhtml.Figcaption,
		scanhtml.Fieldset, scanhtml.Legend, scanhtml.Form, scanhtml.Hgroup,
		scanhtml.Search, scanhtml.Details, scanhtml.Summary, scanhtml.Dialog,
		scanhtml.Center, scanhtml.Dl, scanhtml.Caption,
	} {
		hs[tag] = para
	}

	for _, tag := range []scanhtml.TagID{scanhtml.H1, scanhtml.H2, scanhtml.H3, scanhtml.H4, scanhtml.H5, scanhtml.H6} {
		hs[tag] = Handler{Enter: headingEnter, Spacing: Spacing{2, 2}}
	}

	hs[scanhtml.Blockquote] = Handler{Prefix: "> ", Spacing: Spacing{2, 2}}
	hs[scanhtml.Ul], hs[scanhtml.Ol], hs[scanhtml.Menu], hs[scanhtml.Dir] = list, list, list, list
	hs[scanhtml.Ol].UsesAttributes = true
	hs[scanhtml.Li] = Handler{Enter: itemEnter, Prefix: "  ", Spacing: Spacing{1, 1}}
	hs[scanhtml.Dt] = block(1, 1)
	hs[scanhtml.Dd] = Handler{Enter: static(": "), Prefix: "  ", Spacing: Spacing{1, 1}}

	for _, tag := range []scanhtml.TagID{scanhtml.Pre, scanhtml.Listing, scanhtml.Xmp, scanhtml.Plaintext} {
		hs[tag] = fence
	}
	hs[scanhtml.Pre].UsesAttributes = true
	for _, tag := range []scanhtml.TagID{scanhtml.Code, scanhtml.Kbd, scanhtml.Samp, scanhtml.Tt} {
		hs[tag] = code
	}
	hs[scanhtml.Code].UsesAttributes = true

	hs[scanhtml.Strong], hs[scanhtml.B] = wrap("**", "**"), wrap("**", "**")
	for _, tag := range []scanhtml.TagID{scanhtml.Em, scanhtml.I, scanhtml.Cite, scanhtml.Dfn, scanhtml.Var} {
		hs[tag] = wrap("*", "*")
	}
	for _, tag := range []scanhtml.TagID{scanhtml.Del, scanhtml.S, scanhtml.Strike} {
		hs[tag] = wrap("~~", "~~")
	}
	hs[scanhtml.Sub] = wrap("<sub>", "</sub>")
	hs[scanhtml.Sup] = wrap("<sup>", "</sup>")
	hs[scanhtml.Q] = wrap(`"`, `"`)

	hs[scanhtml.A] = Handler{Enter: linkEnter, Exit: linkExit, Inline: true, UsesAttributes: true}
	hs[scanhtml.Img] = Handler{Enter: imageEnter, Inline: true, Eager: true, UsesAttributes: true}
	hs[scanhtml.Input] = Handler{Enter: checkboxEnter, Inline: true, Eager: true, UsesAttributes: true}
	hs[scanhtml.Br] = Handler{Inline: true, Break: true}
	hs[scanhtml.Wbr] = passthrough
	hs[scanhtml.Hr] = Handler{Enter: static("---"), Eager: true, Spacing: Spacing{2, 2}}

	hs[scanhtml.Table] = block(2, 2)
	hs[scanhtml.Thead], hs[scanhtml.Tbody], hs[scanhtml.Tfoot] = Handler{}, Handler{}, Handler{}
	hs[scanhtml.Tr] = Handler{Exit: rowExit, Spacing: Spacing{1, 1}}
	hs[scanhtml.Td] = Handler{Enter: cellEnter, Eager: true, UsesAttributes: true}
	hs[scanhtml.Th] = hs[scanhtml.Td]

	return hs
}()

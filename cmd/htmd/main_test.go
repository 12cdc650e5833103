package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jcorbin/htmd/internal/config"
	"github.com/jcorbin/htmd/plugins"
)

// run executes the root command against an empty configuration file, unless
// args name another.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	empty := filepath.Join(t.TempDir(), config.FileName)
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", empty}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestRoot_stdin(t *testing.T) {
	out, err := run(t, `<h1>Title</h1><p>Some <b>bold</b> text</p>`)
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nSome **bold** text", out)

	out, err = run(t, `<p><a href="/x">x</a></p>`, "--origin", "https://example.com", "--chunk-size", "1")
	require.NoError(t, err)
	assert.Equal(t, "[x](https://example.com/x)", out)
}

func TestRoot_files(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.html": `<p>a</p>`,
		"b.html": `<ul><li>b</li></ul>`,
	})
	out, err := run(t, "", filepath.Join(dir, "a.html"), filepath.Join(dir, "b.html"))
	require.NoError(t, err)
	assert.Equal(t, "a\n\n- b", out)

	_, err = run(t, "", filepath.Join(dir, "missing.html"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRoot_outDir(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.html": `<h1>A</h1><p>x</p>`,
		"b.htm":  `<h2>B</h2><h2>B</h2>`,
	})
	outDir := filepath.Join(t.TempDir(), "out")
	out, err := run(t, "",
		"--out-dir", outDir, "--jobs", "2", "--headings", "--data",
		filepath.Join(dir, "a.html"), filepath.Join(dir, "b.htm"))
	require.NoError(t, err)
	assert.Equal(t, "", out)

	read := func(name string) string {
		b, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err)
		return string(b)
	}
	assert.Equal(t, "# A\n\nx", read("a.md"))
	assert.Equal(t, "## B\n\n## B", read("b.md"))

	var data struct {
		Headings []plugins.Heading `yaml:"headings"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(read("b.yaml")), &data))
	assert.Equal(t, []plugins.Heading{
		{Level: 2, Text: "B", Anchor: "b"},
		{Level: 2, Text: "B", Anchor: "b-1"},
	}, data.Headings)

	_, err = run(t, "", "--data", filepath.Join(dir, "a.html"))
	assert.ErrorContains(t, err, "--data requires --out-dir")
}

func TestRoot_config(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		config.FileName: "strategy: minimal-from-first-header\n",
	})
	cfg := filepath.Join(dir, config.FileName)
	in := `<p>nav</p><h1>T</h1><p>x</p>`

	out, err := run(t, in, "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "# T\n\nx", out)

	out, err = run(t, in, "--config", cfg, "--strategy", "")
	require.NoError(t, err)
	assert.Equal(t, "nav\n\n# T\n\nx", out)

	_, err = run(t, in, "--strategy", "maximal")
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "Strategy", verrs[0].Field())

	_, err = run(t, in, "--exclude", "p[")
	assert.ErrorContains(t, err, "invalid exclude selector")
}

// Command htmd converts HTML documents to Markdown, either from files and
// standard input, or as an HTTP service.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jcorbin/htmd/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// flags collects command line values, which override any configuration file
// only when set.
type flags struct {
	configPath string
	outDir     string
	data       bool
	verbose    bool
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	var fl flags
	cmd := &cobra.Command{
		Use:   "htmd [file.html...]",
		Short: "Convert HTML to Markdown",
		Long: `Convert HTML documents to Markdown.

With no file arguments, HTML is read from standard input and Markdown is
streamed to standard output as it is converted. Files are converted to
standard output in order, or with --out-dir into a NAME.md file each.

Configuration is read from --config, or the nearest ` + config.FileName + ` file
found in the working directory or its parents; flags override it.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := fl.load(cmd)
			if err != nil {
				return err
			}
			return runConvert(cmd, &fl, cfg, args)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&fl.configPath, "config", "", "configuration file (default: nearest "+config.FileName+")")
	pf.BoolVarP(&fl.verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&fl.cfg.Origin, "origin", "", "absolute URL used to resolve relative links")
	pf.StringVar(&fl.cfg.Strategy, "strategy", "", "conversion strategy: minimal or minimal-from-first-header")
	pf.StringSliceVar(&fl.cfg.Include, "include", nil, "only convert elements matching these CSS selectors")
	pf.StringSliceVar(&fl.cfg.Exclude, "exclude", nil, "drop elements matching these CSS selectors")
	pf.BoolVar(&fl.cfg.Frontmatter, "frontmatter", false, "emit document metadata as YAML front matter")
	pf.BoolVar(&fl.cfg.Readability, "readability", false, "drop low scoring page chrome")
	pf.Float64Var(&fl.cfg.MinScore, "min-score", 0, "readability score needed to keep a container")
	pf.BoolVar(&fl.cfg.Headings, "headings", false, "collect a heading outline")
	pf.BoolVar(&fl.cfg.DebugMarkers, "debug-markers", false, "annotate output with plugin decisions")
	pf.IntVar(&fl.cfg.ChunkSize, "chunk-size", 0, "input read size and output flush threshold")
	pf.Float64Var(&fl.cfg.MinDensity, "min-density", 0, "content density to reach before streaming output")
	pf.IntVar(&fl.cfg.MaxBuffer, "max-buffer", 0, "force out held output past this many bytes")

	f := cmd.Flags()
	f.StringVarP(&fl.outDir, "out-dir", "o", "", "write NAME.md files into this directory")
	f.BoolVar(&fl.data, "data", false, "with --out-dir, also write plugin results to NAME.yaml files")
	f.IntVarP(&fl.cfg.Jobs, "jobs", "j", 0, "files converted concurrently with --out-dir (default: GOMAXPROCS)")

	cmd.AddCommand(newServeCmd(&fl))
	return cmd
}

// load reads the configuration file, applies any set flags over it, and
// validates the result.
func (fl *flags) load(cmd *cobra.Command) (config.Config, error) {
	path := fl.configPath
	if path == "" {
		found, err := config.Find(".")
		if err != nil {
			return config.Config{}, err
		}
		path = found
	}
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	set := cmd.Flags()
	for name, apply := range map[string]func(){
		"origin":        func() { cfg.Origin = fl.cfg.Origin },
		"strategy":      func() { cfg.Strategy = fl.cfg.Strategy },
		"include":       func() { cfg.Include = fl.cfg.Include },
		"exclude":       func() { cfg.Exclude = fl.cfg.Exclude },
		"frontmatter":   func() { cfg.Frontmatter = fl.cfg.Frontmatter },
		"readability":   func() { cfg.Readability = fl.cfg.Readability },
		"min-score":     func() { cfg.MinScore = fl.cfg.MinScore },
		"headings":      func() { cfg.Headings = fl.cfg.Headings },
		"debug-markers": func() { cfg.DebugMarkers = fl.cfg.DebugMarkers },
		"chunk-size":    func() { cfg.ChunkSize = fl.cfg.ChunkSize },
		"min-density":   func() { cfg.MinDensity = fl.cfg.MinDensity },
		"max-buffer":    func() { cfg.MaxBuffer = fl.cfg.MaxBuffer },
		"jobs":          func() { cfg.Jobs = fl.cfg.Jobs },
		"addr":          func() { cfg.Serve.Addr = fl.cfg.Serve.Addr },
		"max-body":      func() { cfg.Serve.MaxBody = fl.cfg.Serve.MaxBody },
	} {
		if f := set.Lookup(name); f != nil && f.Changed {
			apply()
		}
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (fl *flags) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if fl.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

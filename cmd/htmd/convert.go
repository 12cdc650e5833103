package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/renameio"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/jcorbin/htmd"
	"github.com/jcorbin/htmd/internal/config"
)

var errTerminal = errors.New("refusing to read HTML from a terminal; pass file arguments or pipe input")

func runConvert(cmd *cobra.Command, fl *flags, cfg config.Config, args []string) error {
	log := fl.logger(cmd)
	out := cmd.OutOrStdout()

	if fl.data && fl.outDir == "" {
		return errors.New("--data requires --out-dir")
	}

	if len(args) == 0 {
		in := cmd.InOrStdin()
		if f, ok := in.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
			return errTerminal
		}
		opts, err := cfg.Options(log)
		if err != nil {
			return err
		}
		return htmd.ConvertReader(out, in, opts, cfg.StreamOptions())
	}

	if fl.outDir == "" {
		for i, name := range args {
			if i > 0 {
				if _, err := io.WriteString(out, "\n\n"); err != nil {
					return err
				}
			}
			if err := convertFile(out, name, cfg, log, nil); err != nil {
				return err
			}
		}
		return nil
	}

	if err := os.MkdirAll(fl.outDir, 0o755); err != nil {
		return err
	}
	jobs := cfg.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(jobs)
	for _, name := range args {
		g.Go(func() error {
			return convertTo(ctx, fl.outDir, name, cfg, log, fl.data)
		})
	}
	return g.Wait()
}

// outputName returns the Markdown file name for an HTML file.
func outputName(name, ext string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ext
}

// convertTo converts the named file into dir, replacing any prior output
// atomically.
func convertTo(ctx context.Context, dir, name string, cfg config.Config, log *slog.Logger, withData bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst := filepath.Join(dir, outputName(name, ".md"))
	pf, err := renameio.TempFile("", dst)
	if err != nil {
		return err
	}
	defer pf.Cleanup()
	if err := pf.Chmod(0o644); err != nil {
		return err
	}

	var data map[string]any
	if err := convertFile(pf, name, cfg, log, func(res map[string]any) { data = res }); err != nil {
		return err
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return err
	}
	log.Debug("converted", "file", name, "to", dst)

	if withData && len(data) > 0 {
		b, err := yaml.Marshal(data)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return renameio.WriteFile(filepath.Join(dir, outputName(name, ".yaml")), b, 0o644)
	}
	return nil
}

func convertFile(w io.Writer, name string, cfg config.Config, log *slog.Logger, onResult func(map[string]any)) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	opts, err := cfg.Options(log.With("file", name))
	if err != nil {
		return err
	}
	sopts := cfg.StreamOptions()
	sopts.OnResult = onResult
	if err := htmd.ConvertReader(w, f, opts, sopts); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

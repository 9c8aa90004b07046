package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/routekit/internal/build"
)

func genCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate entrypoints and the route manifest",
		Long: `Write client.entry.js, server.entry.js and routes.manifest.json
into the build directory. Files whose content did not change are left
alone so bundler caches stay warm.

Examples:
  routekit gen
  routekit gen -C ./site`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			log, err := g.logger(cfg)
			if err != nil {
				return err
			}
			tree, err := buildTree(cfg, log)
			if err != nil {
				return err
			}
			builder, err := build.New(cfg, log)
			if err != nil {
				return err
			}

			res, err := builder.Generate(tree)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, p := range res.Written {
				success(out, "wrote %s", relTo(cfg.Dir(), p))
			}
			for _, p := range res.Unchanged {
				info(out, "unchanged %s", relTo(cfg.Dir(), p))
			}
			return nil
		},
	}

	return cmd
}

func buildCmd(g *globals) *cobra.Command {
	var (
		output    string
		minify    bool
		sourcemap bool
		clean     bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Generate entrypoints and bundle them",
		Long: `Generate entrypoints, then bundle the client and server entries
concurrently with the configured bundler (esbuild by default).

Examples:
  routekit build
  routekit build --minify --sourcemap
  routekit build --output=dist --clean`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}

			// Apply command-line overrides
			if output != "" {
				cfg.Build.Dir = output
			}
			if cmd.Flags().Changed("minify") {
				cfg.Build.Minify = minify
			}
			if cmd.Flags().Changed("sourcemap") {
				cfg.Build.Sourcemap = sourcemap
			}

			log, err := g.logger(cfg)
			if err != nil {
				return err
			}
			tree, err := buildTree(cfg, log)
			if err != nil {
				return err
			}
			builder, err := build.New(cfg, log)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if clean {
				info(out, "Cleaning %s...", relTo(cfg.Dir(), builder.Dir()))
				if err := builder.Clean(); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			info(out, "Building %d pages...", len(tree.Pages()))
			res, err := builder.Build(ctx, tree)
			if err != nil {
				return err
			}

			fmt.Fprintln(out)
			success(out, "Build complete in %s", res.Duration.Round(time.Millisecond))
			fmt.Fprintln(out)
			fmt.Fprintf(out, "  %s/\n", relTo(cfg.Dir(), builder.Dir()))
			fmt.Fprintf(out, "    ├── %-20s (%s)\n", build.ClientBundle, formatBytes(res.Bundles.ClientSize))
			fmt.Fprintf(out, "    ├── %-20s (%s)\n", build.ServerBundle, formatBytes(res.Bundles.ServerSize))
			fmt.Fprintf(out, "    └── %s\n", build.ManifestFile)
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Build directory (default from routekit.toml)")
	cmd.Flags().BoolVar(&minify, "minify", false, "Minify bundles")
	cmd.Flags().BoolVar(&sourcemap, "sourcemap", false, "Emit source maps")
	cmd.Flags().BoolVar(&clean, "clean", false, "Remove the build directory first")

	return cmd
}

// relTo shortens p for display.
func relTo(base, p string) string {
	if rel, err := filepath.Rel(base, p); err == nil {
		return rel
	}
	return p
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/routekit/internal/errors"
	"github.com/vango-dev/routekit/pkg/codegen"
	"github.com/vango-dev/routekit/pkg/router"
)

// Output formats.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func checkFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML:
		return nil
	}
	return errors.New("E080").
		WithDetail(fmt.Sprintf("unknown format %q", format)).
		WithSuggestion("Use --format text, json or yaml")
}

// writeStructured encodes v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	if format == formatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func routesCmd(g *globals) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the route tree",
		Long: `Read the routes directory and print the compiled route tree.

Every problem in the tree is reported at once.

Examples:
  routekit routes
  routekit routes --format=json
  routekit routes --format=yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
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

			out := cmd.OutOrStdout()
			if format != formatText {
				return writeStructured(out, format, codegen.BuildManifest(tree))
			}
			return printTree(out, tree)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format: text, json, yaml")

	return cmd
}

// printTree prints one line per node, indented by depth.
func printTree(w io.Writer, tree *router.Tree) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tPATTERN\tMODULE")

	var visit func(n *router.RouteNode, depth int)
	visit = func(n *router.RouteNode, depth int) {
		module := n.Module.Path
		if n.Synthetic {
			module = "(implicit)"
		}
		fmt.Fprintf(tw, "%s%s\t%s\t%s\t%s\n", strings.Repeat("  ", depth), n.ID, n.Kind, n.Pattern, module)
		for _, child := range n.Children {
			visit(child, depth+1)
		}
	}
	visit(tree.Root(), 0)

	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d pages, API prefix /%s\n", len(tree.Pages()), tree.APIPrefix())
	return nil
}

// matchOutput is the structured form of a match.
type matchOutput struct {
	Path    string            `json:"path" yaml:"path"`
	Route   string            `json:"route" yaml:"route"`
	Module  string            `json:"module" yaml:"module"`
	Pattern string            `json:"pattern" yaml:"pattern"`
	Layouts []string          `json:"layouts" yaml:"layouts"`
	Params  map[string]string `json:"params" yaml:"params"`
}

func matchCmd(g *globals) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "match <path>",
		Short: "Resolve a request path",
		Long: `Resolve a request path against the route tree and print the
matched page, its layouts and the bound parameters.

Examples:
  routekit match /blog/hello-world
  routekit match /docs/a/b --format=json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
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

			cp, err := router.CanonicalizePath(args[0])
			if err != nil {
				return err
			}
			m, err := tree.Match(cp.Path)
			if err != nil {
				return err
			}

			res := matchOutput{
				Path:    cp.Path,
				Route:   m.Page.ID,
				Module:  m.Page.Module.Path,
				Pattern: m.Page.Pattern,
				Layouts: make([]string, 0, len(m.Layouts)),
				Params:  m.Params,
			}
			for _, l := range m.Layouts {
				res.Layouts = append(res.Layouts, l.ID)
			}

			out := cmd.OutOrStdout()
			if format != formatText {
				return writeStructured(out, format, res)
			}
			printMatch(out, res)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format: text, json, yaml")

	return cmd
}

func printMatch(w io.Writer, m matchOutput) {
	fmt.Fprintf(w, "route:   %s (%s)\n", m.Route, m.Module)
	fmt.Fprintf(w, "pattern: %s\n", m.Pattern)
	fmt.Fprintf(w, "layouts: %s\n", strings.Join(m.Layouts, " > "))
	if len(m.Params) == 0 {
		return
	}
	fmt.Fprintln(w, "params:")
	for _, k := range slices.Sorted(maps.Keys(m.Params)) {
		fmt.Fprintf(w, "  %s = %q\n", k, m.Params[k])
	}
}

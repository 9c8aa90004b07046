package main

import (
	"github.com/spf13/cobra"

	"github.com/vango-dev/routekit/internal/templates"
)

func addCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Scaffold route modules",
	}
	cmd.AddCommand(addPageCmd(g))
	return cmd
}

func addPageCmd(g *globals) *cobra.Command {
	var (
		name       string
		ext        string
		withLayout bool
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "page <path>",
		Short: "Add a page module for a route",
		Long: `Add a page module for a route. The path is the route directory
relative to routes.dir; use _name for a dynamic segment and catchall for
the rest of the path. An empty path or / adds the root page.

Examples:
  routekit add page about
  routekit add page blog/_slug --with-layout
  routekit add page docs/catchall --name Docs --ext .jsx`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}

			route := ""
			if len(args) == 1 {
				route = args[0]
			}
			if ext == "" {
				ext = cfg.Routes.Extensions[0]
			}

			files, err := templates.Scaffold(cfg.RoutesPath(), templates.Options{
				Path:       route,
				Name:       name,
				Ext:        ext,
				Extensions: cfg.Routes.Extensions,
				APIPrefix:  cfg.Routes.APIPrefix,
				WithLayout: withLayout,
				Force:      force,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, f := range files {
				verb := "created"
				if f.Replaced {
					verb = "replaced"
				}
				info(w, "%s %s %s", verb, f.Kind, relTo(cfg.Dir(), f.Path))
			}
			success(w, "Done")
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Page heading (default: from the directory name)")
	cmd.Flags().StringVar(&ext, "ext", "", "Module extension (default: first of routes.extensions)")
	cmd.Flags().BoolVar(&withLayout, "with-layout", false, "Also add a layout module")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing modules")

	return cmd
}

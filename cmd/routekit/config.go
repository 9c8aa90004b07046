package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/routekit/internal/config"
	"github.com/vango-dev/routekit/internal/errors"
)

func configCmd(g *globals) *cobra.Command {
	var (
		initFile bool
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration routekit would run with, as TOML: the
defaults, overlaid by routekit.toml, overlaid by ROUTEKIT_* environment
variables (ROUTEKIT_SSR_TIMEOUT=30s sets ssr.timeout).

With --init the configuration is written to routekit.toml instead.

Examples:
  routekit config
  routekit config --init
  ROUTEKIT_LOG_LEVEL=debug routekit config`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if initFile {
				return writeConfig(cmd, g, force)
			}

			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			data, err := cfg.TOML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&initFile, "init", false, "Write routekit.toml to the project directory")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing routekit.toml")

	return cmd
}

func writeConfig(cmd *cobra.Command, g *globals, force bool) error {
	dir := g.dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		dir = wd
	}

	path := filepath.Join(dir, config.ConfigFileName)
	if config.Exists(dir) && !force {
		return errors.New("E080").
			WithDetail(path + " already exists").
			WithSuggestion("Pass --force to overwrite it")
	}

	cfg := config.New()
	cfg.Project.Name = filepath.Base(dir)
	if err := cfg.SaveTo(path); err != nil {
		return err
	}
	success(cmd.OutOrStdout(), "wrote %s", path)
	return nil
}

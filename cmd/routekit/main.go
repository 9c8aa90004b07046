package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vango-dev/routekit"
	"github.com/vango-dev/routekit/internal/config"
	"github.com/vango-dev/routekit/internal/errors"
	"github.com/vango-dev/routekit/internal/logging"
	"github.com/vango-dev/routekit/pkg/router"
)

// Version information set at build time.
var (
	version = routekit.Version
	commit  = "none"
	date    = "unknown"
)

// colors enables ANSI colors in status lines.
var colors = true

// globals holds the persistent flags shared by every command.
type globals struct {
	dir      string
	logLevel string
	jsonLogs bool
	noColor  bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(routekit.CodedError(err, "E080"))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:   "routekit",
		Short: "Filesystem routes, generated entrypoints and server rendering",
		Long: `routekit turns a routes directory into a route tree, generates
client and server entrypoints for it, bundles them, and serves pages by
rendering the server bundle in a subprocess.

  • page and layout modules per directory
  • _slug directories bind parameters, catchall takes the rest
  • $api is reserved for the host's API handlers
  • live reload while developing`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.noColor {
				errors.DisableColors()
				colors = false
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&g.dir, "dir", "C", "", "Project directory (default: nearest directory with routekit.toml)")
	flags.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from routekit.toml)")
	flags.BoolVar(&g.jsonLogs, "json-logs", false, "Log JSON lines instead of the console format")
	flags.BoolVar(&g.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		routesCmd(g),
		matchCmd(g),
		genCmd(g),
		buildCmd(g),
		renderCmd(g),
		devCmd(g),
		serveCmd(g),
		addCmd(g),
		configCmd(g),
		versionCmd(),
	)

	return rootCmd
}

// loadConfig loads the project configuration named by the flags.
func (g *globals) loadConfig() (*config.Config, error) {
	if g.dir == "" {
		return config.LoadFromWorkingDir()
	}
	return config.Load(g.dir)
}

// logger builds the logger for cfg, with flag overrides.
func (g *globals) logger(cfg *config.Config) (*zap.Logger, error) {
	level := cfg.Log.Level
	if g.logLevel != "" {
		level = g.logLevel
	}
	log, err := logging.New(logging.Options{
		Level: level,
		JSON:  cfg.Log.JSON || g.jsonLogs,
	})
	if err != nil {
		return nil, errors.New("E080").WithDetail("--log-level").Wrap(err)
	}
	return log, nil
}

// buildTree reads the routes directory.
func buildTree(cfg *config.Config, log *zap.Logger) (*router.Tree, error) {
	return router.NewBuilder(router.BuilderOptions{
		Extensions:      cfg.Routes.Extensions,
		APIPrefix:       cfg.Routes.APIPrefix,
		HyphenateStatic: cfg.Routes.HyphenateStatic,
		Logger:          log,
	}).BuildDir(cfg.RoutesPath())
}

func mark(code, symbol string) string {
	if !colors {
		return symbol
	}
	return "\033[" + code + "m" + symbol + "\033[0m"
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", mark("32", "✓"), fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", mark("33", "⚠"), fmt.Sprintf(format, args...))
}

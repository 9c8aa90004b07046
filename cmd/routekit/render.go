package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/routekit"
	"github.com/vango-dev/routekit/internal/errors"
	"github.com/vango-dev/routekit/pkg/router"
	"github.com/vango-dev/routekit/pkg/ssr"
)

func renderCmd(g *globals) *cobra.Command {
	var (
		csrf     string
		user     string
		bundle   string
		protocol string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "render <path>",
		Short: "Render one page with the server bundle",
		Long: `Run the server bundle once for a request path and print the markup.

The current user is given as JSON in the same shape the bundle receives;
without --user the request is anonymous.

Examples:
  routekit render /about
  routekit render /blog/hello --csrf=abc123
  routekit render / --user='{"username":"ada","isAuthenticated":true}'
  routekit render / --bundle=dist/server.bundle.js --protocol=argv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			log, err := g.logger(cfg)
			if err != nil {
				return err
			}

			cp, err := router.CanonicalizePath(args[0])
			if err != nil {
				return err
			}
			rc := ssr.RenderRequestContext{RequestPath: cp.Path, CSRFToken: csrf}
			if user != "" {
				var u ssr.User
				if err := json.Unmarshal([]byte(user), &u); err != nil {
					return errors.New("E080").
						WithDetail("--user is not valid JSON").
						WithExample(`--user='{"username":"ada","isAuthenticated":true}'`).
						Wrap(err)
				}
				rc.CurrentUser = &u
			}

			if bundle == "" {
				bundle = cfg.ServerBundlePath()
			}
			if _, err := os.Stat(bundle); err != nil {
				return &routekit.BundleMissingError{Path: bundle, Err: err}
			}

			command, err := ssr.ParseCommand(cfg.SSR.Command)
			if err != nil {
				return err
			}
			if protocol == "" {
				protocol = cfg.SSR.Protocol
			}
			if p := ssr.Protocol(protocol); p != ssr.ProtocolEnvelope && p != ssr.ProtocolArgv {
				return errors.New("E080").
					WithDetail(fmt.Sprintf("unknown protocol %q", protocol)).
					WithSuggestion("Use --protocol envelope or argv")
			}
			if timeout <= 0 {
				timeout = cfg.SSR.Timeout.Duration
			}

			invoker := ssr.NewInvoker(ssr.Options{
				Command:        command,
				Protocol:       ssr.Protocol(protocol),
				MaxConcurrent:  1,
				Timeout:        timeout,
				MaxOutputBytes: int(cfg.SSR.MaxOutputBytes),
				Dir:            cfg.Dir(),
				Logger:         log,
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res := invoker.Render(ctx, bundle, rc, timeout)
			if !res.OK() {
				return res.Err()
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Markup)
			return nil
		},
	}

	cmd.Flags().StringVar(&csrf, "csrf", "", "CSRF token passed to the bundle")
	cmd.Flags().StringVar(&user, "user", "", "Current user as JSON (default: anonymous)")
	cmd.Flags().StringVar(&bundle, "bundle", "", "Server bundle (default: <build dir>/server.bundle.js)")
	cmd.Flags().StringVar(&protocol, "protocol", "", "Context protocol: envelope or argv (default from routekit.toml)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Render timeout (default from routekit.toml)")

	return cmd
}

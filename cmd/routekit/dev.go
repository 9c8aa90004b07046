package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	crdb "github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/routekit"
	"github.com/vango-dev/routekit/internal/config"
	"github.com/vango-dev/routekit/internal/errors"
)

// MetricsPath serves Prometheus metrics.
const MetricsPath = "/_routekit/metrics"

// shutdownTimeout bounds how long in-flight requests may finish.
const shutdownTimeout = 5 * time.Second

func devCmd(g *globals) *cobra.Command {
	var (
		port        int
		host        string
		openBrowser bool
	)

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Start the development server",
		Long: `Start the development server with live reload.

The dev server watches the routes directory, rebuilds the tree and the
bundles on every change, and refreshes connected browsers. A broken
tree keeps the last good one serving and shows an error overlay.

Examples:
  routekit dev
  routekit dev --port=8080
  routekit dev --host=0.0.0.0 --open`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}

			// Apply command-line overrides
			if port > 0 {
				cfg.Dev.Port = port
			}
			if host != "" {
				cfg.Dev.Host = host
			}
			cfg.Project.Production = false

			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			fmt.Fprintf(out, "  routekit %s dev\n", version)
			fmt.Fprintln(out)

			return runServer(cmd.Context(), g, cfg, out, serverOptions{
				watch: true,
				ready: func(url string) {
					success(out, "Serving %s", url)
					if openBrowser {
						openURL(url)
					}
				},
			})
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (default from routekit.toml)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from routekit.toml)")
	cmd.Flags().BoolVarP(&openBrowser, "open", "o", false, "Open browser on start")

	return cmd
}

func serveCmd(g *globals) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Build once and serve pages",
		Long: `Build the route tree and bundles once and serve pages without
watching. With project.production set, a broken tree stops the server
before it starts listening.

Examples:
  routekit serve
  routekit serve --addr=:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return runServer(cmd.Context(), g, cfg, out, serverOptions{
				addr: addr,
				ready: func(url string) {
					success(out, "Serving %s", url)
				},
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: dev host and port)")

	return cmd
}

type serverOptions struct {
	addr  string
	watch bool
	ready func(url string)
}

// runServer builds the App and serves it until interrupted.
func runServer(ctx context.Context, g *globals, cfg *config.Config, out io.Writer, opts serverOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, err := g.logger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app, err := routekit.New(cfg, routekit.Options{Logger: log, Registry: reg})
	if err != nil {
		return err
	}
	defer app.Close()

	start := time.Now()
	if err := app.Init(ctx); err != nil {
		return err
	}
	if err := app.LastError(); err != nil {
		warn(out, "Initial build failed; fix it and save to retry")
		fmt.Fprintln(out, routekit.CodedError(err, "E081").Format())
	} else {
		success(out, "Built %d pages in %s", len(app.Tree().Pages()), time.Since(start).Round(time.Millisecond))
	}

	r := chi.NewRouter()
	r.Handle(MetricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Mount("/", app.Handler())

	addr := opts.addr
	if addr == "" {
		addr = cfg.DevAddress()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.New("E081").WithDetail("Could not listen on " + addr).Wrap(err)
	}

	srv := &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(log),
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !crdb.Is(err, http.ErrServerClosed) {
			return errors.New("E081").Wrap(err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if opts.watch {
		eg.Go(func() error {
			if err := app.Watch(ctx); err != nil {
				return errors.New("E082").Wrap(err)
			}
			return nil
		})
	}

	if opts.ready != nil {
		opts.ready(listenURL(ln.Addr(), cfg.Dev.Host))
	}

	err = eg.Wait()
	fmt.Fprintln(out, "\n  Shutting down...")
	return err
}

// listenURL is the browsable URL of a listener.
func listenURL(addr net.Addr, host string) string {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return "http://" + addr.String()
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(tcp.Port))
}

// openURL opens a URL in the default browser.
func openURL(url string) {
	var cmd *exec.Cmd

	switch {
	case commandExists("xdg-open"):
		cmd = exec.Command("xdg-open", url)
	case commandExists("open"):
		cmd = exec.Command("open", url)
	case commandExists("cmd"):
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}

	_ = cmd.Start()
}

// commandExists checks if a command exists in PATH.
func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

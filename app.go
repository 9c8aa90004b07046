package routekit

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	crdb "github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vango-dev/routekit/internal/build"
	"github.com/vango-dev/routekit/internal/config"
	"github.com/vango-dev/routekit/internal/dev"
	"github.com/vango-dev/routekit/pkg/codegen"
	rkmiddleware "github.com/vango-dev/routekit/pkg/middleware"
	"github.com/vango-dev/routekit/pkg/rendercache"
	"github.com/vango-dev/routekit/pkg/router"
	"github.com/vango-dev/routekit/pkg/ssr"
)

// LoadConfig loads routekit.toml from dir, layered over defaults and
// ROUTEKIT_* environment variables.
func LoadConfig(dir string) (*config.Config, error) {
	return config.Load(dir)
}

// Bundler turns a route tree into client and server bundles.
// *build.Builder implements it.
type Bundler interface {
	Build(ctx context.Context, tree *router.Tree) (*build.Result, error)
}

// Options configures the host side of an App.
type Options struct {
	Logger *zap.Logger

	// Registry receives request, render, cache and rebuild metrics. Nil
	// disables them.
	Registry prometheus.Registerer

	// APIHandler serves everything under the API prefix. Nil answers 404.
	APIHandler http.Handler

	// CSRFToken returns the token handed to the renderer.
	CSRFToken func(*http.Request) string

	// CurrentUser returns the requesting user, or nil when anonymous.
	CurrentUser func(*http.Request) *ssr.User

	// Renderer replaces the subprocess invoker.
	Renderer rendercache.Renderer

	// Bundler replaces the esbuild pipeline configured in [build].
	Bundler Bundler
}

// App serves a route tree. Requests always see a complete tree and the
// bundle it was built with; a failed rebuild leaves both untouched.
type App struct {
	cfg  *config.Config
	opts Options
	log  *zap.Logger

	routes   *router.Builder
	bundler  Bundler
	renderer rendercache.Renderer
	cache    *rendercache.Cache
	reload   *dev.ReloadServer
	metrics  *metrics

	// httpMetrics is nil without a Registry.
	httpMetrics func(http.Handler) http.Handler

	// rebuildMu serializes rebuilds.
	rebuildMu sync.Mutex

	current atomic.Pointer[snapshot]
	lastErr atomic.Pointer[error]
	closed  atomic.Bool
}

// snapshot is everything one rebuild publishes. It is immutable and swapped
// in as a whole, so a request that loads it sees a tree together with the
// bundle and manifest generated from it.
type snapshot struct {
	tree       *router.Tree
	bundle     rendercache.Bundle
	manifest   []byte
	generation uint64
}

// New creates an App. Nothing is built until Init.
func New(cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		cfg = config.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	a := &App{
		cfg:  cfg,
		opts: opts,
		log:  opts.Logger,
		routes: router.NewBuilder(router.BuilderOptions{
			Extensions:      cfg.Routes.Extensions,
			APIPrefix:       cfg.Routes.APIPrefix,
			HyphenateStatic: cfg.Routes.HyphenateStatic,
			Logger:          opts.Logger,
		}),
		bundler: opts.Bundler,
	}
	if opts.Registry != nil {
		a.metrics = newMetrics(opts.Registry)
		a.httpMetrics = rkmiddleware.Prometheus(rkmiddleware.WithRegistry(opts.Registry))
	}

	if a.bundler == nil {
		b, err := build.New(cfg, opts.Logger)
		if err != nil {
			return nil, err
		}
		a.bundler = b
	}

	a.renderer = opts.Renderer
	if a.renderer == nil {
		command, err := ssr.ParseCommand(cfg.SSR.Command)
		if err != nil {
			return nil, crdb.Wrap(err, "ssr.command")
		}
		var m *ssr.Metrics
		if opts.Registry != nil {
			m = ssr.NewMetrics(ssr.MetricsConfig{Registry: opts.Registry})
		}
		a.renderer = ssr.NewInvoker(ssr.Options{
			Command:        command,
			Protocol:       ssr.Protocol(cfg.SSR.Protocol),
			MaxConcurrent:  cfg.SSR.MaxConcurrent,
			Timeout:        cfg.SSR.Timeout.Duration,
			MaxOutputBytes: int(cfg.SSR.MaxOutputBytes),
			Dir:            cfg.Dir(),
			Logger:         opts.Logger,
			Metrics:        m,
		})
	}

	if cfg.Cache.Enabled {
		a.cache = rendercache.New(a.renderer, rendercache.Options{
			TTL:           cfg.Cache.TTL.Duration,
			FailureTTL:    cfg.Cache.FailureTTL.Duration,
			MaxEntries:    cfg.Cache.MaxEntries,
			RenderTimeout: cfg.SSR.Timeout.Duration,
			Logger:        opts.Logger,
			Registry:      opts.Registry,
		})
	}

	if !cfg.Project.Production && cfg.Dev.Reload {
		a.reload = dev.NewReloadServer(opts.Logger)
	}
	return a, nil
}

// Config returns the configuration the App was created with.
func (a *App) Config() *config.Config { return a.cfg }

// Tree returns the published route tree, or nil before the first
// successful build.
func (a *App) Tree() *router.Tree {
	if s := a.current.Load(); s != nil {
		return s.tree
	}
	return nil
}

// Generation counts successful rebuilds.
func (a *App) Generation() uint64 {
	if s := a.current.Load(); s != nil {
		return s.generation
	}
	return 0
}

// Match resolves a request path against the published tree.
func (a *App) Match(path string) (*router.Match, error) {
	t := a.Tree()
	if t == nil {
		return nil, &router.RouteNotFoundError{Path: path}
	}
	return t.Match(path)
}

// Bundle returns the published server bundle.
func (a *App) Bundle() rendercache.Bundle {
	return a.bundleOf(a.current.Load())
}

func (a *App) bundleOf(s *snapshot) rendercache.Bundle {
	if s != nil {
		return s.bundle
	}
	return rendercache.Bundle{Path: a.cfg.ServerBundlePath()}
}

// LastError returns the error of the most recent rebuild, or nil if it
// succeeded.
func (a *App) LastError() error {
	if p := a.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Init runs the first build. In production a failure is returned and the
// App must not serve; in development it is logged and reported to the
// browser, and the next rebuild may fix it.
func (a *App) Init(ctx context.Context) error {
	err := a.Rebuild(ctx)
	if err == nil {
		return nil
	}
	if a.cfg.Project.Production {
		return err
	}
	a.log.Error("initial build failed", zap.Error(err))
	return nil
}

// Rebuild reads the routes directory, regenerates and bundles the
// entrypoints, then publishes the new tree and bundle together and drops
// cached renders. Concurrent calls run one at a time.
func (a *App) Rebuild(ctx context.Context) error {
	if a.closed.Load() {
		return crdb.New("routekit: app is closed")
	}

	a.rebuildMu.Lock()
	defer a.rebuildMu.Unlock()

	start := time.Now()
	err := a.rebuild(ctx)
	a.metrics.rebuilt(err, time.Since(start))
	if err != nil {
		a.lastErr.Store(&err)
		return err
	}
	a.lastErr.Store(nil)
	return nil
}

func (a *App) rebuild(ctx context.Context) error {
	tree, err := a.routes.BuildDir(a.cfg.RoutesPath())
	if err != nil {
		return err
	}

	if _, err := a.bundler.Build(ctx, tree); err != nil {
		return err
	}

	bundle := rendercache.Bundle{Path: a.cfg.ServerBundlePath()}
	if a.cfg.SSR.Enabled {
		hash, err := ssr.HashBundle(bundle.Path)
		if err != nil {
			return &BundleMissingError{Path: bundle.Path, Err: err}
		}
		bundle.Hash = hash
	}

	manifest, err := codegen.GenerateManifest(tree)
	if err != nil {
		return crdb.Wrap(err, "generate manifest")
	}

	next := &snapshot{
		tree:       tree,
		bundle:     bundle,
		manifest:   manifest,
		generation: a.Generation() + 1,
	}
	a.current.Store(next)
	a.metrics.published(next.generation)
	if a.cache != nil {
		a.cache.Purge()
	}

	a.log.Info("routes published",
		zap.Int("pages", len(tree.Pages())),
		zap.Uint64("generation", next.generation),
		zap.String("bundle", bundle.Hash))
	return nil
}

// Watch rebuilds whenever the routes directory or a configured watch
// directory changes, until ctx is done. Browsers connected to the reload
// socket reload after each good rebuild and show an overlay after a bad
// one.
func (a *App) Watch(ctx context.Context) error {
	loop := dev.NewLoop(dev.LoopOptions{
		Watcher: dev.WatcherConfig{
			Paths:    dev.CollectWatchPaths(a.cfg),
			Ignore:   append(slices.Clone(a.cfg.Dev.Ignore), a.cfg.Build.Dir),
			Debounce: a.cfg.Dev.Debounce.Duration,
		},
		Rebuild:     a.Rebuild,
		Reload:      a.reload,
		FormatError: FormatErrorCompact,
		Logger:      a.log,
	})
	if err := a.LastError(); err != nil && a.reload != nil {
		a.reload.NotifyError(FormatErrorCompact(err))
	}
	return loop.Run(ctx)
}

// Close releases the App. Renders in flight finish on their own.
func (a *App) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}
	if a.reload != nil {
		a.reload.Close()
	}
	if a.cache != nil {
		a.cache.Purge()
	}
	return nil
}

// BundleMissingError reports a build that left no server bundle behind.
type BundleMissingError struct {
	Path string
	Err  error
}

func (e *BundleMissingError) Error() string {
	return "server bundle not found: " + e.Path
}

func (e *BundleMissingError) Unwrap() error { return e.Err }

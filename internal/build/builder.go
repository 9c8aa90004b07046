package build

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	crdb "github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/routekit/internal/config"
	"github.com/vango-dev/routekit/pkg/codegen"
	"github.com/vango-dev/routekit/pkg/router"
	"github.com/vango-dev/routekit/pkg/ssr"
)

// Output file names inside the build directory.
const (
	ClientEntry  = "client.entry.js"
	ServerEntry  = "server.entry.js"
	ManifestFile = "routes.manifest.json"
	ClientBundle = "client.bundle.js"
	ServerBundle = "server.bundle.js"
)

// DefaultBundler is the bundler command when none is configured.
var DefaultBundler = []string{"npx", "esbuild"}

// Options configures the builder.
type Options struct {
	// Dir receives entrypoints and bundles.
	Dir string

	// WorkDir is where the bundler runs, usually the project root.
	WorkDir string

	// Bundler is the bundler command prefix. It must accept esbuild flags.
	// Default: DefaultBundler
	Bundler []string

	Minify    bool
	Sourcemap bool

	// Debug and Env are exposed to bundles as the DEBUG and ENV defines.
	Debug bool
	Env   string

	// Inject lists files injected into every bundle.
	Inject []string

	// Quiet limits bundler output to errors.
	Quiet bool

	// Codegen configures entrypoint generation.
	Codegen codegen.Options

	Logger *zap.Logger
}

// Builder generates entrypoints and runs the bundler.
type Builder struct {
	opts Options
	log  *zap.Logger
}

// New creates a builder from the project configuration.
func New(cfg *config.Config, log *zap.Logger) (*Builder, error) {
	bundler, err := ssr.ParseCommand(cfg.Build.Bundler)
	if err != nil {
		return nil, crdb.Wrap(err, "build.bundler")
	}
	return NewWithOptions(Options{
		Dir:       cfg.BuildPath(),
		WorkDir:   cfg.Dir(),
		Bundler:   bundler,
		Minify:    cfg.Build.Minify,
		Sourcemap: cfg.Build.Sourcemap,
		Debug:     cfg.Build.Debug,
		Env:       cfg.Build.Env,
		Inject:    cfg.Build.Inject,
		Quiet:     cfg.Build.Quiet,
		Codegen:   codegen.Options{ImportPrefix: cfg.ImportPrefix()},
		Logger:    log,
	}), nil
}

// NewWithOptions creates a builder.
func NewWithOptions(opts Options) *Builder {
	if len(opts.Bundler) == 0 {
		opts.Bundler = DefaultBundler
	}
	if opts.Env == "" {
		opts.Env = "development"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Builder{opts: opts, log: opts.Logger}
}

// Dir returns the build directory.
func (b *Builder) Dir() string { return b.opts.Dir }

// ServerBundlePath returns the path of the server bundle.
func (b *Builder) ServerBundlePath() string {
	return filepath.Join(b.opts.Dir, ServerBundle)
}

// GenerateResult lists the generated files.
type GenerateResult struct {
	// Written lists files whose content changed.
	Written []string

	// Unchanged lists files left untouched.
	Unchanged []string
}

// Generate writes the entrypoints and the route manifest for tree.
func (b *Builder) Generate(tree *router.Tree) (*GenerateResult, error) {
	if err := os.MkdirAll(b.opts.Dir, 0o755); err != nil {
		return nil, &BuildError{Step: StepGenerate, Err: err}
	}

	program := codegen.Lower(tree, b.opts.Codegen)
	manifest, err := codegen.GenerateManifest(tree)
	if err != nil {
		return nil, &BuildError{Step: StepGenerate, Err: err}
	}

	files := []struct {
		name string
		data []byte
	}{
		{ClientEntry, codegen.GenerateClient(program)},
		{ServerEntry, codegen.GenerateServer(program)},
		{ManifestFile, manifest},
	}

	res := &GenerateResult{}
	for _, f := range files {
		path := filepath.Join(b.opts.Dir, f.name)
		changed, err := writeIfChanged(path, f.data)
		if err != nil {
			return nil, &BuildError{Step: StepGenerate, Err: err}
		}
		if changed {
			res.Written = append(res.Written, path)
		} else {
			res.Unchanged = append(res.Unchanged, path)
		}
	}

	b.log.Debug("entrypoints generated",
		zap.Int("written", len(res.Written)),
		zap.Int("unchanged", len(res.Unchanged)))
	return res, nil
}

// writeIfChanged replaces path with data unless it already holds data.
// The write goes through a temp file so readers never see a partial file.
func writeIfChanged(path string, data []byte) (bool, error) {
	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, data) {
		return false, nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return false, crdb.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return false, crdb.Wrapf(err, "write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return false, crdb.Wrapf(err, "write %s", path)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return false, crdb.Wrapf(err, "chmod %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return false, crdb.Wrapf(err, "replace %s", path)
	}
	return true, nil
}

// BundleResult describes the produced bundles.
type BundleResult struct {
	ClientBundle string
	ServerBundle string

	// ServerHash is the content hash of the server bundle, used to key the
	// render cache.
	ServerHash string

	ClientSize int64
	ServerSize int64
}

// Bundle runs the bundler for the client and server entries concurrently.
// Generate must have run first.
func (b *Builder) Bundle(ctx context.Context) (*BundleResult, error) {
	if _, err := exec.LookPath(b.opts.Bundler[0]); err != nil {
		return nil, &BuildError{
			Step:    StepBundle,
			Command: b.opts.Bundler,
			Err:     crdb.Mark(err, ErrBundlerNotFound),
		}
	}

	res := &BundleResult{
		ClientBundle: filepath.Join(b.opts.Dir, ClientBundle),
		ServerBundle: filepath.Join(b.opts.Dir, ServerBundle),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.runBundler(gctx, TargetClient, b.clientArgs())
	})
	g.Go(func() error {
		return b.runBundler(gctx, TargetServer, b.serverArgs())
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var err error
	if res.ClientSize, err = fileSize(res.ClientBundle); err != nil {
		return nil, &BuildError{Step: StepBundle, Target: TargetClient, Err: err}
	}
	if res.ServerSize, err = fileSize(res.ServerBundle); err != nil {
		return nil, &BuildError{Step: StepBundle, Target: TargetServer, Err: err}
	}
	if res.ServerHash, err = ssr.HashBundle(res.ServerBundle); err != nil {
		return nil, &BuildError{Step: StepBundle, Target: TargetServer, Err: err}
	}
	return res, nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, crdb.Wrap(err, "bundler produced no output")
	}
	return info.Size(), nil
}

// commonArgs are the flags shared by both bundles.
func (b *Builder) commonArgs() []string {
	args := []string{
		"--bundle",
		"--define:DEBUG=" + strconv.FormatBool(b.opts.Debug),
		fmt.Sprintf("--define:ENV='%s'", b.opts.Env),
	}
	for _, f := range b.opts.Inject {
		args = append(args, "--inject:"+f)
	}
	if b.opts.Minify {
		args = append(args, "--minify")
	}
	if b.opts.Sourcemap {
		args = append(args, "--sourcemap")
	}
	if b.opts.Quiet {
		args = append(args, "--log-level=error")
	}
	return args
}

func (b *Builder) clientArgs() []string {
	args := []string{filepath.Join(b.opts.Dir, ClientEntry)}
	args = append(args, b.commonArgs()...)
	return append(args,
		"--platform=browser",
		"--format=esm",
		"--outfile="+filepath.Join(b.opts.Dir, ClientBundle),
	)
}

func (b *Builder) serverArgs() []string {
	args := []string{filepath.Join(b.opts.Dir, ServerEntry)}
	args = append(args, b.commonArgs()...)
	return append(args,
		"--platform=node",
		"--format=cjs",
		"--outfile="+filepath.Join(b.opts.Dir, ServerBundle),
	)
}

func (b *Builder) runBundler(ctx context.Context, target Target, args []string) error {
	argv := append(append([]string{}, b.opts.Bundler[1:]...), args...)
	cmd := exec.CommandContext(ctx, b.opts.Bundler[0], argv...)
	cmd.Dir = b.opts.WorkDir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	err := cmd.Run()
	b.log.Debug("bundler finished",
		zap.String("target", string(target)),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err))
	if err != nil {
		return &BuildError{
			Step:    StepBundle,
			Target:  target,
			Command: append([]string{b.opts.Bundler[0]}, argv...),
			Output:  out.String(),
			Err:     err,
		}
	}
	return nil
}

// Result contains the build output.
type Result struct {
	// Duration is how long the build took.
	Duration time.Duration

	Generated *GenerateResult
	Bundles   *BundleResult
}

// Build runs Generate then Bundle.
func (b *Builder) Build(ctx context.Context, tree *router.Tree) (*Result, error) {
	start := time.Now()

	gen, err := b.Generate(tree)
	if err != nil {
		return nil, err
	}
	bundles, err := b.Bundle(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Duration:  time.Since(start),
		Generated: gen,
		Bundles:   bundles,
	}
	b.log.Info("build finished",
		zap.Duration("duration", res.Duration),
		zap.Int64("client_bytes", bundles.ClientSize),
		zap.Int64("server_bytes", bundles.ServerSize))
	return res, nil
}

// Clean removes the build output directory.
func (b *Builder) Clean() error {
	return os.RemoveAll(b.opts.Dir)
}

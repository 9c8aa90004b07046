package ssr

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Protocol selects how the request context reaches the renderer.
type Protocol string

const (
	// ProtocolEnvelope writes a JSON envelope to stdin and also appends
	// the positional arguments.
	ProtocolEnvelope Protocol = "envelope"

	// ProtocolArgv passes the context as positional arguments only.
	ProtocolArgv Protocol = "argv"
)

// Defaults.
const (
	DefaultTimeout        = 10 * time.Second
	DefaultMaxOutputBytes = 8 << 20
	DefaultStderrBytes    = 64 << 10
	DefaultWaitDelay      = 2 * time.Second
)

// DefaultCommand is the renderer command prefix; the bundle path is appended.
var DefaultCommand = []string{"node"}

// Options configures an Invoker.
type Options struct {
	// Command is the renderer command prefix.
	// Default: DefaultCommand
	Command []string

	// Protocol selects the context protocol.
	// Default: ProtocolEnvelope
	Protocol Protocol

	// MaxConcurrent bounds concurrently running renderers.
	// Default: runtime.NumCPU()
	MaxConcurrent int

	// Timeout applies when Render is called with a zero timeout.
	// Default: DefaultTimeout
	Timeout time.Duration

	// MaxOutputBytes bounds the markup read from stdout.
	// Default: DefaultMaxOutputBytes
	MaxOutputBytes int

	// MaxStderrBytes bounds captured stderr; the rest is dropped.
	// Default: DefaultStderrBytes
	MaxStderrBytes int

	// WaitDelay bounds how long output pipes are drained after the
	// renderer exits or is killed.
	// Default: DefaultWaitDelay
	WaitDelay time.Duration

	// Dir is the renderer working directory. Empty means the current one.
	Dir string

	// Env is appended to the inherited environment.
	Env []string

	// Validate rejects markup that is unsafe to embed.
	Validate func(markup string) error

	Logger  *zap.Logger
	Metrics *Metrics

	// Tracer defaults to the global provider's "routekit/ssr" tracer.
	Tracer trace.Tracer
}

// ParseCommand splits a configured command string using shell quoting
// rules ("node --enable-source-maps", "'/opt/my node/bin/node'").
func ParseCommand(s string) ([]string, error) {
	args, err := shellquote.Split(s)
	if err != nil {
		return nil, errors.Wrapf(err, "parse renderer command %q", s)
	}
	if len(args) == 0 {
		return nil, errors.New("renderer command is empty")
	}
	return args, nil
}

// Invoker runs renders in external processes. Safe for concurrent use.
type Invoker struct {
	opts Options
	sem  *semaphore.Weighted
}

// NewInvoker creates an invoker.
func NewInvoker(opts Options) *Invoker {
	if len(opts.Command) == 0 {
		opts.Command = DefaultCommand
	}
	if opts.Protocol == "" {
		opts.Protocol = ProtocolEnvelope
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = runtime.NumCPU()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxOutputBytes <= 0 {
		opts.MaxOutputBytes = DefaultMaxOutputBytes
	}
	if opts.MaxStderrBytes <= 0 {
		opts.MaxStderrBytes = DefaultStderrBytes
	}
	if opts.WaitDelay <= 0 {
		opts.WaitDelay = DefaultWaitDelay
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("routekit/ssr")
	}
	return &Invoker{
		opts: opts,
		sem:  semaphore.NewWeighted(int64(opts.MaxConcurrent)),
	}
}

// MaxConcurrent returns the concurrency bound.
func (iv *Invoker) MaxConcurrent() int { return iv.opts.MaxConcurrent }

// Render runs one render of bundlePath for rc. A zero timeout uses the
// configured default. The timeout is measured from slot acquisition.
// Render never retries and never returns markup together with a failure.
func (iv *Invoker) Render(ctx context.Context, bundlePath string, rc RenderRequestContext, timeout time.Duration) Result {
	if rc.RequestID == "" {
		rc.RequestID = uuid.NewString()
	}
	if timeout <= 0 {
		timeout = iv.opts.Timeout
	}

	ctx, span := iv.opts.Tracer.Start(ctx, "routekit.ssr.render",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("routekit.path", rc.RequestPath),
			attribute.String("routekit.bundle", bundlePath),
			attribute.String("routekit.request_id", rc.RequestID),
		),
	)
	defer span.End()

	start := time.Now()
	res := iv.render(ctx, bundlePath, rc, timeout)
	res.Duration = time.Since(start)
	res.RequestID = rc.RequestID

	log := iv.opts.Logger.With(
		zap.String("path", rc.RequestPath),
		zap.String("bundle", bundlePath),
		zap.String("request_id", rc.RequestID),
		zap.Duration("duration", res.Duration),
	)
	if res.OK() {
		span.SetStatus(codes.Ok, "")
		log.Debug("render complete", zap.Int("bytes", len(res.Markup)))
	} else {
		f := res.Failure
		span.RecordError(f)
		span.SetStatus(codes.Error, string(f.Reason))
		span.SetAttributes(attribute.String("routekit.failure", string(f.Reason)))
		log.Warn("render failed",
			zap.String("reason", string(f.Reason)),
			zap.Int("exit_code", f.ExitCode),
			zap.String("stderr", f.Stderr),
			zap.Error(f.Err),
		)
	}
	return res
}

func (iv *Invoker) render(ctx context.Context, bundlePath string, rc RenderRequestContext, timeout time.Duration) Result {
	queued := time.Now()
	if err := iv.sem.Acquire(ctx, 1); err != nil {
		iv.opts.Metrics.canceled()
		return failed(ReasonCanceled, err)
	}
	defer iv.sem.Release(1)
	iv.opts.Metrics.observeQueue(time.Since(queued))

	// Acquire may succeed on an already canceled context.
	if err := ctx.Err(); err != nil {
		iv.opts.Metrics.canceled()
		return failed(ReasonCanceled, err)
	}

	args, err := rc.Args()
	if err != nil {
		return failed(ReasonSpawnFailed, err)
	}

	var stdin []byte
	if iv.opts.Protocol == ProtocolEnvelope {
		stdin, err = EncodeEnvelope(rc)
		if err != nil {
			return failed(ReasonSpawnFailed, err)
		}
	}

	runCtx, cancelRun := context.WithCancelCause(ctx)
	defer cancelRun(nil)
	runCtx, cancelTimeout := context.WithTimeout(runCtx, timeout)
	defer cancelTimeout()

	argv := make([]string, 0, len(iv.opts.Command)+len(args))
	argv = append(argv, iv.opts.Command[1:]...)
	argv = append(argv, bundlePath)
	argv = append(argv, args...)

	cmd := exec.CommandContext(runCtx, iv.opts.Command[0], argv...)
	cmd.Dir = iv.opts.Dir
	cmd.Env = append(os.Environ(), iv.opts.Env...)
	cmd.Env = append(cmd.Env, ProtocolEnvVar+"="+string(iv.opts.Protocol))
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	stdout := &limitedBuffer{limit: iv.opts.MaxOutputBytes, onOverflow: func() {
		cancelRun(errOutputTooLarge)
	}}
	stderr := &limitedBuffer{limit: iv.opts.MaxStderrBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	configureProcess(cmd)
	cmd.Cancel = func() error {
		return killProcessTree(cmd.Process)
	}
	cmd.WaitDelay = iv.opts.WaitDelay

	if err := cmd.Start(); err != nil {
		return failed(ReasonSpawnFailed, errors.Wrapf(err, "start renderer %s", iv.opts.Command[0]))
	}
	iv.opts.Metrics.started()
	started := time.Now()

	waitErr := cmd.Wait()
	if errors.Is(waitErr, exec.ErrWaitDelay) {
		// The renderer exited but something it spawned still holds the
		// output pipes.
		killProcessGroup(cmd.Process.Pid)
	}

	res := iv.classify(ctx, runCtx, cmd, waitErr, stdout, stderr)
	outcome := "ok"
	if !res.OK() {
		outcome = string(res.Failure.Reason)
	}
	iv.opts.Metrics.finished(outcome, time.Since(started))
	return res
}

var errOutputTooLarge = errors.New("renderer output exceeds limit")

func (iv *Invoker) classify(
	ctx, runCtx context.Context,
	cmd *exec.Cmd,
	waitErr error,
	stdout, stderr *limitedBuffer,
) Result {
	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	fail := func(reason FailureReason, err error) Result {
		return Result{Failure: &RenderFailure{
			Reason:   reason,
			ExitCode: exitCode,
			Stderr:   stderr.String(),
			Err:      err,
		}}
	}

	switch {
	case stdout.Overflowed():
		return fail(ReasonOutputTooLarge, errOutputTooLarge)
	case ctx.Err() != nil:
		return fail(ReasonCanceled, ctx.Err())
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return fail(ReasonTimeout, runCtx.Err())
	}

	if waitErr != nil && !errors.Is(waitErr, exec.ErrWaitDelay) {
		return fail(ReasonNonZeroExit, waitErr)
	}
	if exitCode != 0 {
		return fail(ReasonNonZeroExit, waitErr)
	}

	markup := strings.TrimRightFunc(stdout.String(), unicode.IsSpace)
	if markup == "" {
		return fail(ReasonEmptyOutput, nil)
	}
	if iv.opts.Validate != nil {
		if err := iv.opts.Validate(markup); err != nil {
			return fail(ReasonInvalidOutput, err)
		}
	}
	return Result{Markup: markup}
}

// limitedBuffer keeps the first limit bytes written and drops the rest,
// always reporting success so the writer keeps draining its pipe.
type limitedBuffer struct {
	mu         sync.Mutex
	buf        bytes.Buffer
	limit      int
	overflowed bool
	onOverflow func()
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	room := b.limit - b.buf.Len()
	if len(p) <= room {
		b.buf.Write(p)
		return len(p), nil
	}
	if room > 0 {
		b.buf.Write(p[:room])
	}
	if !b.overflowed {
		b.overflowed = true
		if b.onOverflow != nil {
			b.onOverflow()
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *limitedBuffer) Overflowed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.overflowed
}

package ssr

import (
	"fmt"
	"strings"
	"time"
)

// FailureReason categorizes a failed render.
type FailureReason string

const (
	// ReasonTimeout means the renderer exceeded its timeout and was killed.
	ReasonTimeout FailureReason = "timeout"

	// ReasonNonZeroExit means the renderer exited with a non-zero status.
	ReasonNonZeroExit FailureReason = "non_zero_exit"

	// ReasonEmptyOutput means the renderer succeeded but printed nothing.
	ReasonEmptyOutput FailureReason = "empty_output"

	// ReasonInvalidOutput means the caller's validator rejected the markup.
	ReasonInvalidOutput FailureReason = "invalid_output"

	// ReasonSpawnFailed means the renderer process could not be started.
	ReasonSpawnFailed FailureReason = "spawn_failed"

	// ReasonCanceled means the caller went away, while queued or running.
	ReasonCanceled FailureReason = "canceled"

	// ReasonOutputTooLarge means stdout exceeded the configured limit.
	ReasonOutputTooLarge FailureReason = "output_too_large"
)

// RenderFailure describes why a render produced no markup.
type RenderFailure struct {
	Reason FailureReason

	// ExitCode is the renderer's exit status, or -1 if it never exited
	// normally.
	ExitCode int

	// Stderr is the renderer's captured (possibly truncated) stderr.
	Stderr string

	// Err is the underlying error, if any.
	Err error
}

func (f *RenderFailure) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "render failed: %s", f.Reason)
	if f.Reason == ReasonNonZeroExit {
		fmt.Fprintf(&sb, " (exit %d)", f.ExitCode)
	}
	if f.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(f.Err.Error())
	}
	if s := strings.TrimSpace(f.Stderr); s != "" {
		if i := strings.IndexByte(s, '\n'); i != -1 {
			s = s[:i]
		}
		sb.WriteString(": ")
		sb.WriteString(s)
	}
	return sb.String()
}

func (f *RenderFailure) Unwrap() error { return f.Err }

// Result is the outcome of one render: markup or a failure, never both.
type Result struct {
	Markup  string
	Failure *RenderFailure

	// Duration covers queueing and the process run.
	Duration time.Duration

	RequestID string
}

// OK reports whether the render produced markup.
func (r Result) OK() bool { return r.Failure == nil }

// Err returns the failure as an error, or nil.
func (r Result) Err() error {
	if r.Failure == nil {
		return nil
	}
	return r.Failure
}

func failed(reason FailureReason, err error) Result {
	return Result{Failure: &RenderFailure{Reason: reason, ExitCode: -1, Err: err}}
}

package build

import (
	"strings"

	crdb "github.com/cockroachdb/errors"
)

// ErrBundlerNotFound marks a BuildError whose bundler command is missing.
var ErrBundlerNotFound = crdb.New("bundler not found")

// Step names the failing build step.
type Step string

const (
	StepGenerate Step = "generate"
	StepBundle   Step = "bundle"
)

// Target names a bundle.
type Target string

const (
	TargetClient Target = "client"
	TargetServer Target = "server"
)

// BuildError reports a failed build step. Output holds whatever the
// bundler printed.
type BuildError struct {
	Step    Step
	Target  Target
	Command []string
	Output  string
	Err     error
}

func (e *BuildError) Error() string {
	var b strings.Builder
	b.WriteString("build ")
	b.WriteString(string(e.Step))
	if e.Target != "" {
		b.WriteString(" ")
		b.WriteString(string(e.Target))
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *BuildError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrBundlerNotFound) hold for a missing bundler.
// The marker is attached with crdb.Mark, which the standard library does
// not see through.
func (e *BuildError) Is(target error) bool {
	return target == ErrBundlerNotFound && e.BundlerMissing()
}

// BundlerMissing reports whether the bundler command could not be found.
func (e *BuildError) BundlerMissing() bool {
	return crdb.Is(e.Err, ErrBundlerNotFound)
}

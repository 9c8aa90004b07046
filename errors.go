package routekit

import (
	"io/fs"
	"strings"

	crdb "github.com/cockroachdb/errors"

	"github.com/vango-dev/routekit/internal/build"
	rkerrors "github.com/vango-dev/routekit/internal/errors"
	"github.com/vango-dev/routekit/pkg/router"
	"github.com/vango-dev/routekit/pkg/ssr"
)

// maxOutputLines caps the bundler output copied into an error.
const maxOutputLines = 20

// CodedError maps err to a coded error for display. Errors that already
// carry a code pass through unchanged; unknown errors get the fallback
// code.
func CodedError(err error, fallback string) *rkerrors.Error {
	if err == nil {
		return nil
	}

	var coded *rkerrors.Error
	if crdb.As(err, &coded) {
		return coded
	}

	var rce *router.RouteConfigError
	if crdb.As(err, &rce) {
		items := make([]string, 0, len(rce.Problems))
		for _, p := range rce.Problems {
			items = append(items, p.String())
		}
		return rkerrors.New("E001").WithItems(items...)
	}

	var nf *router.RouteNotFoundError
	if crdb.As(err, &nf) {
		if nf.Reserved {
			return rkerrors.New("E004").WithDetail(nf.Path + " is served by the host's API handlers.")
		}
		return rkerrors.New("E003").WithDetail("No page matches " + nf.Path + ".")
	}

	for _, sentinel := range []error{
		router.ErrBackslashInPath,
		router.ErrNullByteInPath,
		router.ErrInvalidPercentEscape,
		router.ErrPathEscapesRoot,
		router.ErrEncodedSlashInSegment,
	} {
		if crdb.Is(err, sentinel) {
			return rkerrors.New("E005").Wrap(err)
		}
	}

	var rf *ssr.RenderFailure
	if crdb.As(err, &rf) {
		e := rkerrors.New(renderCode(rf.Reason)).Wrap(err)
		if stderr := strings.TrimSpace(rf.Stderr); stderr != "" {
			e = e.WithItems(outputLines(stderr)...)
		}
		return e
	}

	var bm *BundleMissingError
	if crdb.As(err, &bm) {
		return rkerrors.New("E025").WithDetail(bm.Path)
	}

	var be *build.BuildError
	if crdb.As(err, &be) {
		switch {
		case be.Step == build.StepGenerate:
			return rkerrors.New("E040").Wrap(be.Err)
		case be.BundlerMissing():
			return rkerrors.New("E042").Wrap(err)
		}
		e := rkerrors.New("E041").Wrap(be.Err)
		if out := strings.TrimSpace(be.Output); out != "" {
			e = e.WithItems(outputLines(out)...)
		}
		return e
	}

	if crdb.Is(err, fs.ErrNotExist) {
		return rkerrors.New("E002").Wrap(err)
	}

	return rkerrors.New(fallback).Wrap(err)
}

func renderCode(reason ssr.FailureReason) string {
	switch reason {
	case ssr.ReasonTimeout:
		return "E021"
	case ssr.ReasonSpawnFailed:
		return "E022"
	case ssr.ReasonOutputTooLarge:
		return "E023"
	case ssr.ReasonCanceled:
		return "E024"
	default:
		return "E020"
	}
}

func outputLines(s string) []string {
	lines := strings.Split(s, "\n")
	if len(lines) > maxOutputLines {
		lines = append(lines[:maxOutputLines], "...")
	}
	return lines
}

// FormatErrorCompact renders err on one line, with its problems after it.
// The dev overlay shows this text.
func FormatErrorCompact(err error) string {
	e := CodedError(err, "E081")
	var b strings.Builder
	b.WriteString(e.FormatCompact())
	if e.Wrapped != nil {
		b.WriteString(": ")
		b.WriteString(e.Wrapped.Error())
	}
	for _, item := range e.Items {
		b.WriteString("\n  ")
		b.WriteString(item)
	}
	return b.String()
}

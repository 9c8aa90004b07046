package router

import (
	"fmt"
	"strings"
)

// ProblemKind categorizes route configuration problems.
type ProblemKind string

const (
	// ProblemAmbiguousDynamic indicates two dynamic directories at one level.
	// Example: blog/_id and blog/_slug
	ProblemAmbiguousDynamic ProblemKind = "AMBIGUOUS_DYNAMIC"

	// ProblemDuplicateModule indicates the same module declared with two extensions.
	// Example: page.tsx and page.jsx in one directory
	ProblemDuplicateModule ProblemKind = "DUPLICATE_MODULE"

	// ProblemDuplicateRoute indicates two nodes resolving to the same id or pattern.
	ProblemDuplicateRoute ProblemKind = "DUPLICATE_ROUTE"

	// ProblemCatchAllNotLeaf indicates a catch-all directory with subdirectories.
	ProblemCatchAllNotLeaf ProblemKind = "CATCHALL_NOT_LEAF"

	// ProblemInvalidName indicates an entry name that cannot be classified.
	ProblemInvalidName ProblemKind = "INVALID_NAME"

	// ProblemUnreadable indicates a routes directory that could not be read.
	ProblemUnreadable ProblemKind = "UNREADABLE"
)

// Problem is a single structural problem found while building a tree.
type Problem struct {
	// Kind is the problem category.
	Kind ProblemKind

	// Path is the routes-relative directory or file involved.
	Path string

	// Entries are the conflicting entries, if any.
	Entries []string

	// Detail is a human-readable description.
	Detail string
}

func (p Problem) String() string {
	var sb strings.Builder
	sb.WriteString(string(p.Kind))
	if p.Path != "" {
		sb.WriteString(" at ")
		sb.WriteString(p.Path)
	}
	if p.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(p.Detail)
	}
	if len(p.Entries) > 0 {
		sb.WriteString(" (")
		sb.WriteString(strings.Join(p.Entries, ", "))
		sb.WriteString(")")
	}
	return sb.String()
}

// RouteConfigError reports structural problems discovered while building a
// route tree. It is always raised at build time, never deferred to matching.
type RouteConfigError struct {
	Problems []Problem
}

func (e *RouteConfigError) Error() string {
	switch len(e.Problems) {
	case 0:
		return "route config error"
	case 1:
		return "route config error: " + e.Problems[0].String()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d route config errors:\n", len(e.Problems))
	for i, p := range e.Problems {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, p.String())
	}
	return sb.String()
}

// Has reports whether the error contains a problem of the given kind.
func (e *RouteConfigError) Has(kind ProblemKind) bool {
	for _, p := range e.Problems {
		if p.Kind == kind {
			return true
		}
	}
	return false
}

// RouteNotFoundError reports a request path that matches no route.
type RouteNotFoundError struct {
	// Path is the request path as matched.
	Path string

	// Reserved is set when the path lies under the API prefix and belongs
	// to the host's handler dispatch.
	Reserved bool
}

func (e *RouteNotFoundError) Error() string {
	if e.Reserved {
		return fmt.Sprintf("route not found: %s is reserved for API handlers", e.Path)
	}
	return fmt.Sprintf("route not found: %s", e.Path)
}

package router

import "strings"

// NodeKind distinguishes layouts from pages.
type NodeKind int

const (
	// KindLayout wraps nested content.
	KindLayout NodeKind = iota

	// KindPage is a leaf bound to a route pattern.
	KindPage
)

func (k NodeKind) String() string {
	if k == KindLayout {
		return "layout"
	}
	return "page"
}

// ModuleRef is an opaque reference to a page or layout implementation.
// The builder never loads modules; the entrypoint generator resolves them.
type ModuleRef struct {
	// Path is relative to the routes directory, slash separated,
	// including the extension (e.g. "blog/_slug/page.tsx").
	Path string

	// Ext is the module file extension (e.g. ".tsx").
	Ext string
}

// IsZero reports whether the reference is empty (synthetic nodes).
func (m ModuleRef) IsZero() bool { return m.Path == "" }

// ImportPath returns the module path without its extension.
func (m ModuleRef) ImportPath() string {
	return strings.TrimSuffix(m.Path, m.Ext)
}

// RouteNode is one layout or page in the route tree.
type RouteNode struct {
	// Kind is layout or page.
	Kind NodeKind

	// ID is stable across rebuilds of an unchanged filesystem layout.
	ID string

	// Segments is the chain of segments from the root.
	Segments []Segment

	// Module references the implementation. Zero for the synthetic root.
	Module ModuleRef

	// Children are nested layouts and pages (layouts only), in scan order.
	Children []*RouteNode

	// Pattern is the absolute route pattern (e.g. "/blog/:slug").
	Pattern string

	// RelativePattern is the pattern relative to the parent layout
	// (e.g. ":slug"); empty for index pages and the root.
	RelativePattern string

	// Synthetic is set for an implicit root layout.
	Synthetic bool
}

// IsIndex reports whether the node is an index page of its layout.
func (n *RouteNode) IsIndex() bool {
	if len(n.Segments) == 0 {
		return false
	}
	return n.Segments[len(n.Segments)-1].Kind == SegmentIndex
}

// Params returns the parameter names bound by the node's segments, in order.
func (n *RouteNode) Params() []string {
	var params []string
	for _, s := range n.Segments {
		if s.Kind == SegmentDynamic || s.Kind == SegmentCatchAll {
			params = append(params, s.Param)
		}
	}
	return params
}

// Walk visits the node and its descendants depth-first, parents first.
// Returning false from fn skips the node's children.
func (n *RouteNode) Walk(fn func(*RouteNode) bool) {
	if !fn(n) {
		return
	}
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// Match is the result of resolving a request path.
type Match struct {
	// Page is the matched page.
	Page *RouteNode

	// Layouts are the enclosing layouts, root to leaf.
	Layouts []*RouteNode

	// Params are the bound route parameters.
	Params map[string]string
}

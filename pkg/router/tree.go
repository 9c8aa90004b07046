package router

import (
	"sort"
	"strings"
)

// Tree is a compiled route tree. It is immutable once built: rebuilding
// produces a new Tree, and the previous one stays valid for its readers.
type Tree struct {
	root      *RouteNode
	index     map[string]*RouteNode
	order     []*RouteNode
	layouts   map[*RouteNode][]*RouteNode
	matcher   *matchNode
	apiPrefix string
}

func newTree(root *RouteNode, apiPrefix string) *Tree {
	t := &Tree{
		root:      root,
		index:     make(map[string]*RouteNode),
		layouts:   make(map[*RouteNode][]*RouteNode),
		matcher:   newMatchNode(""),
		apiPrefix: apiPrefix,
	}

	var stack []*RouteNode
	var visit func(n *RouteNode)
	visit = func(n *RouteNode) {
		t.index[n.ID] = n
		t.order = append(t.order, n)

		if n.Kind == KindPage {
			chain := make([]*RouteNode, len(stack))
			copy(chain, stack)
			t.layouts[n] = chain
			t.matcher.insert(n)
			return
		}

		stack = append(stack, n)
		for _, child := range n.Children {
			visit(child)
		}
		stack = stack[:len(stack)-1]
	}
	visit(root)

	return t
}

// Root returns the root layout (synthetic if none was declared).
func (t *Tree) Root() *RouteNode { return t.root }

// Node returns the node with the given id.
func (t *Tree) Node(id string) (*RouteNode, bool) {
	n, ok := t.index[id]
	return n, ok
}

// Nodes returns every node depth-first, parents before children.
func (t *Tree) Nodes() []*RouteNode {
	out := make([]*RouteNode, len(t.order))
	copy(out, t.order)
	return out
}

// Pages returns every page depth-first.
func (t *Tree) Pages() []*RouteNode {
	var out []*RouteNode
	for _, n := range t.order {
		if n.Kind == KindPage {
			out = append(out, n)
		}
	}
	return out
}

// IDs returns every node id, sorted.
func (t *Tree) IDs() []string {
	ids := make([]string, 0, len(t.index))
	for id := range t.index {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LayoutsOf returns the layouts enclosing a page, root to leaf.
func (t *Tree) LayoutsOf(page *RouteNode) []*RouteNode {
	return t.layouts[page]
}

// APIPrefix returns the reserved API prefix (without slashes).
func (t *Tree) APIPrefix() string { return t.apiPrefix }

// IsAPIPath reports whether a path belongs to the host's API dispatch.
func (t *Tree) IsAPIPath(p string) bool {
	prefix := "/" + t.apiPrefix
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

// Match resolves a canonical request path. Static children are preferred
// over the dynamic child, which is preferred over the catch-all, at every
// level, independent of scan order. Paths under the API prefix and paths
// matching nothing yield a *RouteNotFoundError.
func (t *Tree) Match(p string) (*Match, error) {
	if t.IsAPIPath(p) {
		return nil, &RouteNotFoundError{Path: p, Reserved: true}
	}

	params := make(map[string]string)
	page := t.matcher.match(splitPath(p), params)
	if page == nil {
		return nil, &RouteNotFoundError{Path: p}
	}

	return &Match{
		Page:    page,
		Layouts: t.layouts[page],
		Params:  params,
	}, nil
}

// matchNode is a node of the matching trie. Each level holds static
// children keyed by text, at most one dynamic child and at most one
// catch-all child.
type matchNode struct {
	segment string

	static        map[string]*matchNode
	paramChild    *matchNode
	paramName     string
	catchAllChild *matchNode

	page *RouteNode
}

func newMatchNode(segment string) *matchNode {
	return &matchNode{segment: segment}
}

func (n *matchNode) insert(page *RouteNode) {
	current := n
	for _, seg := range page.Segments {
		switch seg.Kind {
		case SegmentStatic:
			if current.static == nil {
				current.static = make(map[string]*matchNode)
			}
			child, ok := current.static[seg.Text]
			if !ok {
				child = newMatchNode(seg.Text)
				current.static[seg.Text] = child
			}
			current = child
		case SegmentDynamic:
			if current.paramChild == nil {
				current.paramChild = newMatchNode("")
				current.paramName = seg.Param
			}
			current = current.paramChild
		case SegmentCatchAll:
			if current.catchAllChild == nil {
				current.catchAllChild = newMatchNode("")
			}
			current = current.catchAllChild
		case SegmentIndex:
			// Index pages live at their layout's own position.
		}
	}
	current.page = page
}

// match walks the trie with backtracking. A deeper catch-all is reached
// before the caller falls back to its own, so the nearest catch-all on the
// path wins once every static and dynamic alternative has failed.
func (n *matchNode) match(segments []string, params map[string]string) *RouteNode {
	if len(segments) == 0 {
		return n.page
	}

	seg, rest := segments[0], segments[1:]

	if child := n.static[seg]; child != nil {
		if page := child.match(rest, params); page != nil {
			return page
		}
	} else if decoded, err := decodeSegment(seg, true); err == nil && decoded != seg {
		if child := n.static[decoded]; child != nil {
			if page := child.match(rest, params); page != nil {
				return page
			}
		}
	}

	if n.paramChild != nil {
		if value, err := decodeSegment(seg, false); err == nil {
			prev, had := params[n.paramName]
			params[n.paramName] = value
			if page := n.paramChild.match(rest, params); page != nil {
				return page
			}
			if had {
				params[n.paramName] = prev
			} else {
				delete(params, n.paramName)
			}
		}
	}

	if n.catchAllChild != nil && n.catchAllChild.page != nil {
		value, err := decodeSegment(strings.Join(segments, "/"), true)
		if err == nil {
			params[CatchAllParam] = value
			return n.catchAllChild.page
		}
	}

	return nil
}

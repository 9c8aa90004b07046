package router

import (
	"fmt"
	"sort"
)

// validateTree checks a built tree for conflicts the per-level scan cannot
// see: duplicate ids, pages sharing a pattern, parameters bound twice along
// one chain, and pages that do not extend their layout's chain.
func validateTree(root *RouteNode) []Problem {
	var problems []Problem

	ids := make(map[string][]string)
	patterns := make(map[string][]string)

	var visit func(n *RouteNode, layoutDepth int)
	visit = func(n *RouteNode, layoutDepth int) {
		ids[n.ID] = append(ids[n.ID], moduleOrID(n))

		if n.Kind == KindPage {
			patterns[n.Pattern] = append(patterns[n.Pattern], moduleOrID(n))
			if len(n.Segments) <= layoutDepth && n.ID != RootID {
				problems = append(problems, Problem{
					Kind:   ProblemDuplicateRoute,
					Path:   n.ID,
					Detail: "page does not extend its layout's path",
				})
			}
		}

		if dup := duplicateParam(n.Segments); dup != "" {
			problems = append(problems, Problem{
				Kind:   ProblemAmbiguousDynamic,
				Path:   n.ID,
				Detail: fmt.Sprintf("parameter %q is bound more than once along the path", dup),
			})
		}

		depth := layoutDepth
		if n.Kind == KindLayout {
			depth = len(n.Segments)
		}
		for _, child := range n.Children {
			visit(child, depth)
		}
	}
	visit(root, -1)

	problems = append(problems, duplicates(ids, "id")...)
	problems = append(problems, duplicates(patterns, "pattern")...)
	return problems
}

// duplicates reports every key claimed more than once, in key order.
func duplicates(claims map[string][]string, what string) []Problem {
	keys := make([]string, 0, len(claims))
	for k, v := range claims {
		if len(v) > 1 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	problems := make([]Problem, 0, len(keys))
	for _, k := range keys {
		problems = append(problems, Problem{
			Kind:    ProblemDuplicateRoute,
			Path:    k,
			Entries: claims[k],
			Detail:  fmt.Sprintf("%s claimed by %d routes", what, len(claims[k])),
		})
	}
	return problems
}

func duplicateParam(segments []Segment) string {
	seen := make(map[string]bool, len(segments))
	for _, s := range segments {
		if s.Kind != SegmentDynamic {
			continue
		}
		if seen[s.Param] {
			return s.Param
		}
		seen[s.Param] = true
	}
	return ""
}

func moduleOrID(n *RouteNode) string {
	if n.Module.IsZero() {
		return n.ID
	}
	return n.Module.Path
}

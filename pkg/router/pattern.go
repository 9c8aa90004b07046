package router

import "strings"

// CompilePattern joins a segment chain into an absolute route pattern.
//
//	Static   → /text
//	Dynamic  → /:param
//	CatchAll → /*
//	Index    → (nothing; the page renders at its layout's path)
//
// The empty pattern is "/".
func CompilePattern(segments []Segment) string {
	p := joinSegments(segments)
	if p == "" {
		return "/"
	}
	return "/" + p
}

// relativePattern compiles the segments beyond the first `from` ones,
// without a leading slash.
func relativePattern(segments []Segment, from int) string {
	if from > len(segments) {
		from = len(segments)
	}
	return joinSegments(segments[from:])
}

func joinSegments(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if part := segmentPattern(s); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "/")
}

func segmentPattern(s Segment) string {
	switch s.Kind {
	case SegmentStatic:
		return s.Text
	case SegmentDynamic:
		return ":" + s.Param
	case SegmentCatchAll:
		return "*"
	default:
		return ""
	}
}

// compilePatterns fills Pattern and RelativePattern on every node.
func compilePatterns(root *RouteNode) {
	var visit func(n *RouteNode, parentLen int)
	visit = func(n *RouteNode, parentLen int) {
		n.Pattern = CompilePattern(n.Segments)
		n.RelativePattern = relativePattern(n.Segments, parentLen)
		for _, child := range n.Children {
			visit(child, len(n.Segments))
		}
	}
	visit(root, 0)
}

package router

import (
	"path"
	"strings"
)

// SegmentKind identifies how a path segment matches.
type SegmentKind int

const (
	// SegmentStatic matches its text literally.
	SegmentStatic SegmentKind = iota

	// SegmentDynamic binds one path component to a named parameter.
	SegmentDynamic

	// SegmentCatchAll binds one or more remaining path components.
	SegmentCatchAll

	// SegmentIndex marks a page that renders at its layout's own path.
	SegmentIndex
)

func (k SegmentKind) String() string {
	switch k {
	case SegmentStatic:
		return "static"
	case SegmentDynamic:
		return "dynamic"
	case SegmentCatchAll:
		return "catchall"
	case SegmentIndex:
		return "index"
	default:
		return "unknown"
	}
}

// Reserved names used by the filesystem convention.
const (
	// CatchAllDir is the directory name of a catch-all segment.
	CatchAllDir = "catchall"

	// CatchAllParam is the fixed parameter name a catch-all binds to.
	CatchAllParam = "*"

	// DynamicPrefix marks a directory as a dynamic segment (_slug).
	DynamicPrefix = "_"

	// PageModule is the base name of a page module.
	PageModule = "page"

	// LayoutModule is the base name of a layout module.
	LayoutModule = "layout"

	// IndexID is the id component contributed by an index segment.
	IndexID = "$index"

	// RootID is the id of the root layout.
	RootID = "$root"

	// DefaultAPIPrefix is the reserved top-level directory and URL prefix
	// handled by the host framework instead of page routing.
	DefaultAPIPrefix = "$api"
)

// DefaultExtensions are the module extensions recognized by default.
var DefaultExtensions = []string{".tsx", ".jsx", ".ts", ".js"}

// Segment is one classified path component.
type Segment struct {
	// Kind is how the segment matches.
	Kind SegmentKind

	// Raw is the directory name the segment was classified from.
	// Empty for index segments.
	Raw string

	// Text is the literal text of a static segment.
	Text string

	// Param is the parameter name of a dynamic or catch-all segment.
	Param string
}

// IDPart returns the segment's contribution to a route id.
func (s Segment) IDPart() string {
	if s.Kind == SegmentIndex {
		return IndexID
	}
	return s.Raw
}

// ModuleKind identifies the role of a module file.
type ModuleKind int

const (
	// ModuleNone means the file is not a route module.
	ModuleNone ModuleKind = iota

	// ModuleLayout is a layout module.
	ModuleLayout

	// ModulePage is a page module.
	ModulePage
)

func (k ModuleKind) String() string {
	switch k {
	case ModuleLayout:
		return "layout"
	case ModulePage:
		return "page"
	default:
		return "none"
	}
}

// ClassifyDir classifies a directory name into a segment.
func ClassifyDir(name string) (Segment, error) {
	if name == "" || strings.HasPrefix(name, ".") {
		return Segment{}, &RouteConfigError{Problems: []Problem{{
			Kind:   ProblemInvalidName,
			Path:   name,
			Detail: "directory name cannot be empty or hidden",
		}}}
	}
	if i := strings.IndexAny(name, `/\:*?#%`); i != -1 {
		return Segment{}, &RouteConfigError{Problems: []Problem{{
			Kind:   ProblemInvalidName,
			Path:   name,
			Detail: "directory name contains reserved character " + string(name[i]),
		}}}
	}

	if name == CatchAllDir {
		return Segment{Kind: SegmentCatchAll, Raw: name, Param: CatchAllParam}, nil
	}

	if strings.HasPrefix(name, DynamicPrefix) {
		param := strings.TrimPrefix(name, DynamicPrefix)
		if param == "" || strings.HasPrefix(param, DynamicPrefix) {
			return Segment{}, &RouteConfigError{Problems: []Problem{{
				Kind:   ProblemInvalidName,
				Path:   name,
				Detail: "dynamic segment needs a parameter name after a single underscore",
			}}}
		}
		return Segment{Kind: SegmentDynamic, Raw: name, Param: param}, nil
	}

	return Segment{Kind: SegmentStatic, Raw: name, Text: name}, nil
}

// ClassifyFile reports whether a file name is a page or layout module with
// one of the allowed extensions. The matched extension is returned so callers
// can detect the same module declared twice with different extensions.
func ClassifyFile(name string, extensions []string) (ModuleKind, string) {
	ext := path.Ext(name)
	if ext == "" {
		return ModuleNone, ""
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	allowed := false
	for _, e := range extensions {
		if e == ext {
			allowed = true
			break
		}
	}
	if !allowed {
		return ModuleNone, ""
	}

	switch strings.TrimSuffix(name, ext) {
	case PageModule:
		return ModulePage, ext
	case LayoutModule:
		return ModuleLayout, ext
	}
	return ModuleNone, ""
}

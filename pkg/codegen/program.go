package codegen

import (
	"path"
	"strconv"
	"strings"
	"unicode"

	"github.com/vango-dev/routekit/pkg/router"
	"github.com/vango-dev/routekit/pkg/ssr"
)

// Default runtime modules.
const (
	DefaultRouterRuntime = "react-router-dom"
	DefaultServerRuntime = "@routekit/server"
	DefaultImportPrefix  = "../routes"
)

// Options configures lowering.
type Options struct {
	// ImportPrefix is prepended to module paths to form import specifiers.
	// It is usually the routes directory relative to the build directory.
	// Default: DefaultImportPrefix
	ImportPrefix string

	// RouterRuntime is the module providing createBrowserRouter.
	// Default: DefaultRouterRuntime
	RouterRuntime string

	// ServerRuntime is the module providing renderToString(routes, context).
	// Default: DefaultServerRuntime
	ServerRuntime string

	// ProtocolVersion is embedded in the server entry.
	// Default: ssr.EnvelopeVersion
	ProtocolVersion string
}

func (o Options) withDefaults() Options {
	if o.ImportPrefix == "" {
		o.ImportPrefix = DefaultImportPrefix
	}
	if o.RouterRuntime == "" {
		o.RouterRuntime = DefaultRouterRuntime
	}
	if o.ServerRuntime == "" {
		o.ServerRuntime = DefaultServerRuntime
	}
	if o.ProtocolVersion == "" {
		o.ProtocolVersion = ssr.EnvelopeVersion
	}
	return o
}

// Import is one default import of a route module.
type Import struct {
	Ident     string
	Specifier string
	Module    router.ModuleRef
}

// RouteLiteral is one entry of the generated route table.
type RouteLiteral struct {
	ID string

	// Path is relative to the parent entry; empty for index entries.
	Path string

	Index bool

	// Component is the imported identifier, or empty for the synthetic root.
	Component string

	Children []*RouteLiteral
}

// Program is the lowered form of a route tree.
type Program struct {
	Options Options
	Imports []Import
	Routes  []*RouteLiteral
}

// Lower converts a tree into a Program. Imports appear in depth-first order
// of first use with one import per distinct module.
func Lower(tree *router.Tree, opts Options) *Program {
	l := &lowerer{
		opts:    opts.withDefaults(),
		byPath:  make(map[string]string),
		usedIDs: make(map[string]bool),
	}
	root := l.lower(tree.Root(), true)
	return &Program{
		Options: l.opts,
		Imports: l.imports,
		Routes:  []*RouteLiteral{root},
	}
}

type lowerer struct {
	opts    Options
	imports []Import
	byPath  map[string]string
	usedIDs map[string]bool
}

func (l *lowerer) lower(n *router.RouteNode, isRoot bool) *RouteLiteral {
	lit := &RouteLiteral{ID: n.ID}

	switch {
	case isRoot:
		lit.Path = "/"
	case n.IsIndex():
		lit.Index = true
	default:
		lit.Path = n.RelativePattern
	}

	if !n.Module.IsZero() {
		lit.Component = l.importFor(n)
	}

	for _, child := range n.Children {
		lit.Children = append(lit.Children, l.lower(child, false))
	}
	return lit
}

func (l *lowerer) importFor(n *router.RouteNode) string {
	if ident, ok := l.byPath[n.Module.Path]; ok {
		return ident
	}

	base := identifierFor(n)
	ident := base
	for i := 2; l.usedIDs[ident]; i++ {
		ident = base + strconv.Itoa(i)
	}
	l.usedIDs[ident] = true
	l.byPath[n.Module.Path] = ident

	l.imports = append(l.imports, Import{
		Ident:     ident,
		Specifier: importSpecifier(l.opts.ImportPrefix, n.Module),
		Module:    n.Module,
	})
	return ident
}

func importSpecifier(prefix string, m router.ModuleRef) string {
	spec := path.Join(prefix, m.ImportPath())
	if !strings.HasPrefix(spec, ".") && !strings.HasPrefix(spec, "/") {
		spec = "./" + spec
	}
	return spec
}

// identifierFor derives a PascalCase identifier from a node id:
// "blog/_slug" page → BlogSlugPage, "$root" layout → RootLayout.
func identifierFor(n *router.RouteNode) string {
	var sb strings.Builder
	for _, part := range strings.Split(n.ID, "/") {
		sb.WriteString(pascalCase(part))
	}
	if n.Kind == router.KindLayout {
		sb.WriteString("Layout")
	} else {
		sb.WriteString("Page")
	}
	return sanitizeIdentifier(sb.String())
}

// pascalCase splits on anything that is not a letter or digit and
// capitalizes each word.
func pascalCase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var sb strings.Builder
	for _, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		sb.WriteString(string(runes))
	}
	return sb.String()
}

// sanitizeIdentifier keeps ASCII letters, digits, _ and $, and prefixes
// identifiers that would start with a digit.
func sanitizeIdentifier(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$') {
			sb.WriteRune(r)
		}
	}
	out := sb.String()
	if out == "" || unicode.IsDigit(rune(out[0])) {
		out = "Route" + out
	}
	return out
}

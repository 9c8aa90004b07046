package templates

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/vango-dev/routekit/internal/errors"
	"github.com/vango-dev/routekit/pkg/router"
)

// Options describes the modules to scaffold.
type Options struct {
	// Path is the route directory relative to the routes directory, using
	// forward slashes. Empty means the root.
	Path string

	// Name is the page heading. Empty derives it from the last directory.
	Name string

	// Ext is the module extension, including the dot.
	// Default: ".tsx"
	Ext string

	// Extensions lists every module extension the route tree recognizes.
	// An existing module with any of them counts as present.
	// Default: router.DefaultExtensions
	Extensions []string

	// APIPrefix is the reserved top-level directory.
	// Default: router.DefaultAPIPrefix
	APIPrefix string

	// WithLayout also writes a layout module.
	WithLayout bool

	// Force overwrites existing modules.
	Force bool
}

// File is one module written by Scaffold.
type File struct {
	// Path is the absolute path of the module.
	Path string

	// Kind is router.ModulePage or router.ModuleLayout.
	Kind router.ModuleKind

	// Replaced is set when an existing module was overwritten.
	Replaced bool
}

// data is passed to the module templates.
type data struct {
	Name  string
	Route string
}

var (
	pageTemplate = template.Must(template.New("page").Parse(`export default function Page() {
  return (
    <>
      <h2>{{.Name}}</h2>
      <div>...</div>
    </>
  );
}
`))

	layoutTemplate = template.Must(template.New("layout").Parse(`import { Outlet } from "react-router-dom";

export default function Layout() {
  return (
    <>
      <header>Header</header>
      <main>
        <Outlet />
      </main>
      <footer>Footer</footer>
    </>
  );
}
`))
)

// Scaffold writes the page module, and optionally the layout module, for
// opts.Path under routesDir. Nothing is written when a module already
// exists and Force is unset.
func Scaffold(routesDir string, opts Options) ([]File, error) {
	if opts.Ext == "" {
		opts.Ext = ".tsx"
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = router.DefaultExtensions
	}
	if opts.APIPrefix == "" {
		opts.APIPrefix = router.DefaultAPIPrefix
	}
	if !strings.HasPrefix(opts.Ext, ".") {
		opts.Ext = "." + opts.Ext
	}
	if !contains(opts.Extensions, opts.Ext) {
		return nil, errors.New("E080").
			WithDetail("Extension " + opts.Ext + " is not in routes.extensions").
			WithSuggestion("Use one of: " + strings.Join(opts.Extensions, ", "))
	}

	segments, err := splitRoute(opts.Path, opts.APIPrefix)
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(append([]string{routesDir}, segments...)...)
	d := data{Name: opts.Name, Route: strings.Join(segments, "/")}
	if d.Name == "" {
		d.Name = DefaultName(segments)
	}

	kinds := []router.ModuleKind{router.ModulePage}
	if opts.WithLayout {
		kinds = append(kinds, router.ModuleLayout)
	}

	// Check everything before writing anything.
	existing := make(map[router.ModuleKind][]string, len(kinds))
	for _, kind := range kinds {
		found := findModules(dir, kind, opts.Extensions)
		if len(found) > 0 && !opts.Force {
			return nil, errors.New("E083").
				WithDetail(strings.Join(found, ", ") + " already exists")
		}
		existing[kind] = found
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	files := make([]File, 0, len(kinds))
	for _, kind := range kinds {
		tmpl := pageTemplate
		if kind == router.ModuleLayout {
			tmpl = layoutTemplate
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, d); err != nil {
			return files, errors.Newf(errors.CategoryCLI, "template execute error %s: %v", kind, err)
		}

		// A module under another extension would be declared twice.
		for _, old := range existing[kind] {
			if err := os.Remove(old); err != nil {
				return files, err
			}
		}

		fullPath := filepath.Join(dir, kind.String()+opts.Ext)
		if err := os.WriteFile(fullPath, buf.Bytes(), 0644); err != nil {
			return files, err
		}
		files = append(files, File{Path: fullPath, Kind: kind, Replaced: len(existing[kind]) > 0})
	}

	return files, nil
}

// splitRoute validates a route directory path and splits it into
// directory names.
func splitRoute(p, apiPrefix string) ([]string, error) {
	p = strings.Trim(filepath.ToSlash(p), "/")
	if p == "" {
		return nil, nil
	}

	parts := strings.Split(p, "/")
	for i, part := range parts {
		if part == "." || part == ".." {
			return nil, errors.New("E080").
				WithDetail("Route path " + p + " must stay inside the routes directory")
		}
		if i == 0 && part == apiPrefix {
			return nil, errors.New("E004").
				WithDetail("/" + p + " is under the API prefix /" + apiPrefix)
		}
		if _, err := router.ClassifyDir(part); err != nil {
			return nil, errors.New("E080").
				WithDetail("Route path " + p + ": " + err.Error()).
				Wrap(err)
		}
	}
	return parts, nil
}

// DefaultName derives a page heading from the route directory names.
func DefaultName(segments []string) string {
	if len(segments) == 0 {
		return "Home"
	}

	last := segments[len(segments)-1]
	seg, err := router.ClassifyDir(last)
	if err == nil && seg.Kind == router.SegmentDynamic {
		last = seg.Param
	}

	words := strings.FieldsFunc(last, func(r rune) bool {
		return r == '-' || r == '_' || r == '.'
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// findModules returns the existing modules of one kind in dir.
func findModules(dir string, kind router.ModuleKind, extensions []string) []string {
	var found []string
	for _, ext := range extensions {
		p := filepath.Join(dir, kind.String()+ext)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			found = append(found, p)
		}
	}
	return found
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

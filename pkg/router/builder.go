package router

import (
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// BuilderOptions configures tree building.
type BuilderOptions struct {
	// Extensions are the accepted module file extensions.
	// Default: DefaultExtensions
	Extensions []string

	// APIPrefix is the reserved top-level directory skipped by page routing.
	// Default: DefaultAPIPrefix
	APIPrefix string

	// HyphenateStatic replaces underscores with hyphens in the URL text of
	// static segments (about_us → /about-us). Ids keep the raw names.
	HyphenateStatic bool

	// Logger receives debug output about pruned directories.
	Logger *zap.Logger
}

// Builder walks a routes directory and builds a route tree.
// A Builder holds no state between builds and is safe for concurrent use.
type Builder struct {
	opts BuilderOptions
}

// NewBuilder creates a new tree builder.
func NewBuilder(opts BuilderOptions) *Builder {
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	if opts.APIPrefix == "" {
		opts.APIPrefix = DefaultAPIPrefix
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Builder{opts: opts}
}

// BuildDir builds a tree from a directory on the local filesystem.
func (b *Builder) BuildDir(dir string) (*Tree, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "routes directory %s", dir)
	}
	if !info.IsDir() {
		return nil, errors.Newf("routes path %s is not a directory", dir)
	}
	return b.Build(os.DirFS(dir), ".")
}

// Build builds a tree from root inside fsys.
// All structural problems found in one pass are reported together in a
// single *RouteConfigError.
func (b *Builder) Build(fsys fs.FS, root string) (*Tree, error) {
	st := &buildState{fsys: fsys, root: root}

	nodes := b.visit(st, "", nil)
	if len(st.problems) > 0 {
		return nil, &RouteConfigError{Problems: st.problems}
	}

	// The root level always yields exactly one layout.
	rootNode := nodes[0]
	compilePatterns(rootNode)

	if problems := validateTree(rootNode); len(problems) > 0 {
		return nil, &RouteConfigError{Problems: problems}
	}

	return newTree(rootNode, b.opts.APIPrefix), nil
}

type buildState struct {
	fsys     fs.FS
	root     string
	problems []Problem
}

func (st *buildState) addProblem(p Problem) {
	st.problems = append(st.problems, p)
}

type moduleFile struct {
	name string
	ext  string
}

// visit builds the nodes produced by one directory level. A level with a
// layout yields a single layout node owning everything beneath it; a level
// without one yields its page (if any) followed by the nodes of its
// subdirectories, to be adopted by the nearest enclosing layout.
func (b *Builder) visit(st *buildState, rel string, chain []Segment) []*RouteNode {
	isRoot := rel == ""

	entries, err := fs.ReadDir(st.fsys, path.Join(st.root, rel))
	if err != nil {
		st.addProblem(Problem{
			Kind:   ProblemUnreadable,
			Path:   displayPath(rel),
			Detail: err.Error(),
		})
		if isRoot {
			return []*RouteNode{syntheticRoot()}
		}
		return nil
	}

	var (
		layout, page *moduleFile
		dirs         []fs.DirEntry
	)

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		if entry.IsDir() {
			if isRoot && name == b.opts.APIPrefix {
				continue
			}
			dirs = append(dirs, entry)
			continue
		}

		kind, ext := ClassifyFile(name, b.opts.Extensions)
		switch kind {
		case ModulePage:
			if page != nil {
				st.addProblem(duplicateModule(rel, page.name, name))
				continue
			}
			page = &moduleFile{name: name, ext: ext}
		case ModuleLayout:
			if layout != nil {
				st.addProblem(duplicateModule(rel, layout.name, name))
				continue
			}
			layout = &moduleFile{name: name, ext: ext}
		}
	}

	if n := len(chain); n > 0 && chain[n-1].Kind == SegmentCatchAll && len(dirs) > 0 {
		names := make([]string, 0, len(dirs))
		for _, d := range dirs {
			names = append(names, d.Name())
		}
		st.addProblem(Problem{
			Kind:    ProblemCatchAllNotLeaf,
			Path:    displayPath(rel),
			Entries: names,
			Detail:  "a catch-all consumes the rest of the path; nothing beneath it is reachable",
		})
		dirs = nil
	}

	var (
		children []*RouteNode
		dynamic  string
	)

	for _, d := range dirs {
		name := d.Name()
		seg, err := ClassifyDir(name)
		if err != nil {
			var rce *RouteConfigError
			if errors.As(err, &rce) {
				for _, p := range rce.Problems {
					p.Path = displayPath(path.Join(rel, name))
					st.addProblem(p)
				}
			}
			continue
		}

		if seg.Kind == SegmentDynamic {
			if dynamic != "" {
				st.addProblem(Problem{
					Kind:    ProblemAmbiguousDynamic,
					Path:    displayPath(rel),
					Entries: []string{dynamic, name},
					Detail:  "only one dynamic segment is allowed per directory level",
				})
				continue
			}
			dynamic = name
		}

		if seg.Kind == SegmentStatic && b.opts.HyphenateStatic {
			seg.Text = strings.ReplaceAll(seg.Text, "_", "-")
		}

		childChain := appendSegment(chain, seg)
		children = append(children, b.visit(st, path.Join(rel, name), childChain)...)
	}

	if layout != nil || isRoot {
		ln := &RouteNode{
			Kind:     KindLayout,
			ID:       chainID(chain),
			Segments: chain,
		}
		if layout != nil {
			ln.Module = ModuleRef{Path: path.Join(rel, layout.name), Ext: layout.ext}
		} else {
			ln.Synthetic = true
		}
		if page != nil {
			pageChain := appendSegment(chain, Segment{Kind: SegmentIndex})
			ln.Children = append(ln.Children, &RouteNode{
				Kind:     KindPage,
				ID:       chainID(pageChain),
				Segments: pageChain,
				Module:   ModuleRef{Path: path.Join(rel, page.name), Ext: page.ext},
			})
		}
		ln.Children = append(ln.Children, children...)
		return []*RouteNode{ln}
	}

	var out []*RouteNode
	if page != nil {
		out = append(out, &RouteNode{
			Kind:     KindPage,
			ID:       chainID(chain),
			Segments: chain,
			Module:   ModuleRef{Path: path.Join(rel, page.name), Ext: page.ext},
		})
	}
	out = append(out, children...)

	if len(out) == 0 {
		b.opts.Logger.Debug("pruned empty route directory", zap.String("dir", displayPath(rel)))
	}
	return out
}

func syntheticRoot() *RouteNode {
	return &RouteNode{Kind: KindLayout, ID: RootID, Synthetic: true}
}

func duplicateModule(rel, first, second string) Problem {
	return Problem{
		Kind:    ProblemDuplicateModule,
		Path:    displayPath(rel),
		Entries: []string{first, second},
		Detail:  "module declared more than once",
	}
}

// appendSegment returns a new chain; chains are never shared between nodes.
func appendSegment(chain []Segment, seg Segment) []Segment {
	out := make([]Segment, len(chain), len(chain)+1)
	copy(out, chain)
	return append(out, seg)
}

// chainID joins the raw names of a chain into a stable id.
func chainID(chain []Segment) string {
	if len(chain) == 0 {
		return RootID
	}
	parts := make([]string, len(chain))
	for i, s := range chain {
		parts[i] = s.IDPart()
	}
	return strings.Join(parts, "/")
}

func displayPath(rel string) string {
	if rel == "" {
		return "."
	}
	return rel
}

package router

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// routesFS builds an in-memory routes directory from file paths.
func routesFS(files ...string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for _, f := range files {
		fsys[f] = &fstest.MapFile{Data: []byte("export default function() {}\n")}
	}
	return fsys
}

func buildTree(t *testing.T, files ...string) *Tree {
	t.Helper()
	tree, err := NewBuilder(BuilderOptions{}).Build(routesFS(files...), ".")
	require.NoError(t, err)
	return tree
}

func buildErr(t *testing.T, opts BuilderOptions, files ...string) *RouteConfigError {
	t.Helper()
	_, err := NewBuilder(opts).Build(routesFS(files...), ".")
	var rce *RouteConfigError
	require.ErrorAs(t, err, &rce)
	return rce
}

var siteFiles = []string{
	"layout.tsx",
	"page.tsx",
	"about/page.tsx",
	"blog/layout.tsx",
	"blog/page.tsx",
	"blog/_slug/page.tsx",
	"catchall/page.tsx",
	"docs/catchall/page.jsx",
	"$api/users/page.tsx",
	"components/Button.tsx",
	".cache/page.tsx",
}

func TestBuildSinglePage(t *testing.T) {
	tree := buildTree(t, "page.tsx")

	root := tree.Root()
	assert.Equal(t, RootID, root.ID)
	assert.True(t, root.Synthetic)
	assert.True(t, root.Module.IsZero())
	require.Len(t, root.Children, 1)

	page := root.Children[0]
	assert.Equal(t, KindPage, page.Kind)
	assert.Equal(t, IndexID, page.ID)
	assert.Equal(t, "/", page.Pattern)
	assert.Equal(t, "", page.RelativePattern)
	assert.True(t, page.IsIndex())
	assert.Equal(t, ModuleRef{Path: "page.tsx", Ext: ".tsx"}, page.Module)
	assert.Equal(t, "page", page.Module.ImportPath())
}

func TestBuildEmptyRoutes(t *testing.T) {
	tree := buildTree(t, "README.md")

	assert.True(t, tree.Root().Synthetic)
	assert.Empty(t, tree.Root().Children)
	assert.Empty(t, tree.Pages())
}

func TestBuildSite(t *testing.T) {
	tree := buildTree(t, siteFiles...)

	assert.Equal(t, []string{
		"$index",
		"$root",
		"about",
		"blog",
		"blog/$index",
		"blog/_slug",
		"catchall",
		"docs/catchall",
	}, tree.IDs())

	root := tree.Root()
	assert.False(t, root.Synthetic)
	assert.Equal(t, "layout.tsx", root.Module.Path)

	tests := []struct {
		id       string
		kind     NodeKind
		pattern  string
		relative string
		module   string
	}{
		{"$index", KindPage, "/", "", "page.tsx"},
		{"about", KindPage, "/about", "about", "about/page.tsx"},
		{"blog", KindLayout, "/blog", "blog", "blog/layout.tsx"},
		{"blog/$index", KindPage, "/blog", "", "blog/page.tsx"},
		{"blog/_slug", KindPage, "/blog/:slug", ":slug", "blog/_slug/page.tsx"},
		{"catchall", KindPage, "/*", "*", "catchall/page.tsx"},
		{"docs/catchall", KindPage, "/docs/*", "docs/*", "docs/catchall/page.jsx"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			n, ok := tree.Node(tt.id)
			require.True(t, ok)
			assert.Equal(t, tt.kind, n.Kind)
			assert.Equal(t, tt.pattern, n.Pattern)
			assert.Equal(t, tt.relative, n.RelativePattern)
			assert.Equal(t, tt.module, n.Module.Path)
		})
	}

	slug, _ := tree.Node("blog/_slug")
	assert.Equal(t, []string{"slug"}, slug.Params())
	layouts := tree.LayoutsOf(slug)
	require.Len(t, layouts, 2)
	assert.Equal(t, RootID, layouts[0].ID)
	assert.Equal(t, "blog", layouts[1].ID)
}

func TestBuildIndexBeforeChildren(t *testing.T) {
	tree := buildTree(t, siteFiles...)

	blog, ok := tree.Node("blog")
	require.True(t, ok)
	require.Len(t, blog.Children, 2)
	assert.Equal(t, "blog/$index", blog.Children[0].ID)
	assert.Equal(t, "blog/_slug", blog.Children[1].ID)

	// Every node is reachable from the root exactly once.
	seen := map[string]int{}
	tree.Root().Walk(func(n *RouteNode) bool {
		seen[n.ID]++
		return true
	})
	for _, id := range tree.IDs() {
		assert.Equal(t, 1, seen[id], id)
	}
}

func TestBuildNestedLayoutWithoutPage(t *testing.T) {
	tree := buildTree(t,
		"settings/layout.tsx",
		"settings/profile/page.tsx",
		"settings/_section/page.tsx",
	)

	settings, ok := tree.Node("settings")
	require.True(t, ok)
	assert.Equal(t, KindLayout, settings.Kind)
	assert.Equal(t, []string{"settings/_section", "settings/profile"}, childIDs(settings))

	profile, _ := tree.Node("settings/profile")
	assert.Equal(t, "/settings/profile", profile.Pattern)
	assert.Equal(t, "profile", profile.RelativePattern)
}

func TestBuildPrunesEmptyDirectories(t *testing.T) {
	tree := buildTree(t,
		"page.tsx",
		"empty/README.md",
		"deep/er/still/notes.txt",
		"shop/items/page.tsx",
	)

	assert.Equal(t, []string{"$index", "$root", "shop/items"}, tree.IDs())
	items, _ := tree.Node("shop/items")
	assert.Equal(t, "/shop/items", items.Pattern)
}

func TestBuildSkipsAPIPrefix(t *testing.T) {
	tree := buildTree(t, "page.tsx", "$api/users/page.tsx", "blog/$api/page.tsx")

	_, ok := tree.Node("$api/users")
	assert.False(t, ok)
	// Only the top-level API directory is reserved.
	_, ok = tree.Node("blog/$api")
	assert.True(t, ok)
	assert.Equal(t, DefaultAPIPrefix, tree.APIPrefix())

	custom, err := NewBuilder(BuilderOptions{APIPrefix: "api"}).
		Build(routesFS("page.tsx", "api/page.tsx", "$api/page.tsx"), ".")
	require.NoError(t, err)
	_, ok = custom.Node("api")
	assert.False(t, ok)
	_, ok = custom.Node("$api")
	assert.True(t, ok)
}

func TestBuildHyphenateStatic(t *testing.T) {
	tree, err := NewBuilder(BuilderOptions{HyphenateStatic: true}).
		Build(routesFS("about_us/page.tsx", "_user_id/page.tsx"), ".")
	require.NoError(t, err)

	about, ok := tree.Node("about_us")
	require.True(t, ok)
	assert.Equal(t, "/about-us", about.Pattern)

	user, _ := tree.Node("_user_id")
	assert.Equal(t, "/:user_id", user.Pattern)
}

func TestBuildCustomExtensions(t *testing.T) {
	tree, err := NewBuilder(BuilderOptions{Extensions: []string{".jsx"}}).
		Build(routesFS("page.jsx", "about/page.tsx"), ".")
	require.NoError(t, err)
	assert.Equal(t, []string{"$index", "$root"}, tree.IDs())
}

func TestBuildAmbiguousDynamic(t *testing.T) {
	rce := buildErr(t, BuilderOptions{},
		"blog/_id/page.tsx",
		"blog/_slug/page.tsx",
	)
	require.Len(t, rce.Problems, 1)
	p := rce.Problems[0]
	assert.Equal(t, ProblemAmbiguousDynamic, p.Kind)
	assert.Equal(t, "blog", p.Path)
	assert.Equal(t, []string{"_id", "_slug"}, p.Entries)
}

func TestBuildRepeatedParamName(t *testing.T) {
	rce := buildErr(t, BuilderOptions{}, "_id/_id/page.tsx")
	assert.True(t, rce.Has(ProblemAmbiguousDynamic))
}

func TestBuildDuplicateModule(t *testing.T) {
	rce := buildErr(t, BuilderOptions{},
		"page.jsx",
		"page.tsx",
		"blog/layout.jsx",
		"blog/layout.tsx",
	)
	require.Len(t, rce.Problems, 2)
	for _, p := range rce.Problems {
		assert.Equal(t, ProblemDuplicateModule, p.Kind)
	}
	assert.Equal(t, ".", rce.Problems[0].Path)
	assert.Equal(t, []string{"page.jsx", "page.tsx"}, rce.Problems[0].Entries)
	assert.Equal(t, "blog", rce.Problems[1].Path)
}

func TestBuildCatchAllNotLeaf(t *testing.T) {
	rce := buildErr(t, BuilderOptions{},
		"catchall/page.tsx",
		"catchall/extra/page.tsx",
	)
	require.Len(t, rce.Problems, 1)
	assert.Equal(t, ProblemCatchAllNotLeaf, rce.Problems[0].Kind)
	assert.Equal(t, []string{"extra"}, rce.Problems[0].Entries)
}

func TestBuildInvalidNames(t *testing.T) {
	rce := buildErr(t, BuilderOptions{},
		"page.tsx",
		"_/page.tsx",
		"a:b/page.tsx",
	)
	require.Len(t, rce.Problems, 2)
	assert.Equal(t, "_", rce.Problems[0].Path)
	assert.Equal(t, "a:b", rce.Problems[1].Path)
	assert.Contains(t, rce.Error(), "2 route config errors")
}

func TestBuildDuplicatePattern(t *testing.T) {
	rce := buildErr(t, BuilderOptions{HyphenateStatic: true},
		"about-us/page.tsx",
		"about_us/page.tsx",
	)
	require.Len(t, rce.Problems, 1)
	p := rce.Problems[0]
	assert.Equal(t, ProblemDuplicateRoute, p.Kind)
	assert.Equal(t, "/about-us", p.Path)
	assert.Equal(t, []string{"about-us/page.tsx", "about_us/page.tsx"}, p.Entries)
}

func TestBuildReportsAllProblemsTogether(t *testing.T) {
	rce := buildErr(t, BuilderOptions{},
		"page.tsx",
		"page.jsx",
		"blog/_a/page.tsx",
		"blog/_b/page.tsx",
		"catchall/page.tsx",
		"catchall/x/page.tsx",
	)
	assert.True(t, rce.Has(ProblemDuplicateModule))
	assert.True(t, rce.Has(ProblemAmbiguousDynamic))
	assert.True(t, rce.Has(ProblemCatchAllNotLeaf))
	assert.Len(t, rce.Problems, 3)
}

func TestBuildIsDeterministic(t *testing.T) {
	first := buildTree(t, siteFiles...)
	second := buildTree(t, siteFiles...)

	assert.Equal(t, first.IDs(), second.IDs())
	for _, n := range first.Nodes() {
		other, ok := second.Node(n.ID)
		require.True(t, ok, n.ID)
		assert.Equal(t, n.Pattern, other.Pattern)
		assert.Equal(t, childIDs(n), childIDs(other))
	}
}

func TestBuildDir(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"layout.tsx", "page.tsx", "blog/_slug/page.tsx"} {
		p := filepath.Join(dir, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("export default 1\n"), 0o644))
	}

	tree, err := NewBuilder(BuilderOptions{}).BuildDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"$index", "$root", "blog/_slug"}, tree.IDs())

	// Rebuilding an unchanged directory yields the same ids.
	again, err := NewBuilder(BuilderOptions{}).BuildDir(dir)
	require.NoError(t, err)
	assert.Equal(t, tree.IDs(), again.IDs())
}

func TestBuildDirMissing(t *testing.T) {
	_, err := NewBuilder(BuilderOptions{}).BuildDir(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = NewBuilder(BuilderOptions{}).BuildDir(file)
	require.Error(t, err)
}

func childIDs(n *RouteNode) []string {
	ids := make([]string, 0, len(n.Children))
	for _, c := range n.Children {
		ids = append(ids, c.ID)
	}
	return ids
}

package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	tree := buildTree(t, siteFiles...)

	tests := []struct {
		path       string
		wantID     string
		wantParams map[string]string
		wantChain  []string
	}{
		{"/", "$index", map[string]string{}, []string{"$root"}},
		{"/about", "about", map[string]string{}, []string{"$root"}},
		{"/blog", "blog/$index", map[string]string{}, []string{"$root", "blog"}},
		{"/blog/hello-world", "blog/_slug", map[string]string{"slug": "hello-world"}, []string{"$root", "blog"}},
		{"/blog/hello%20world", "blog/_slug", map[string]string{"slug": "hello world"}, []string{"$root", "blog"}},
		{"/contact", "catchall", map[string]string{"*": "contact"}, []string{"$root"}},
		{"/x/y/z", "catchall", map[string]string{"*": "x/y/z"}, []string{"$root"}},
		{"/about/team", "catchall", map[string]string{"*": "about/team"}, []string{"$root"}},
		{"/docs/intro", "docs/catchall", map[string]string{"*": "intro"}, []string{"$root"}},
		{"/docs/a/b", "docs/catchall", map[string]string{"*": "a/b"}, []string{"$root"}},
		{"/docs", "catchall", map[string]string{"*": "docs"}, []string{"$root"}},
		{"/blog/a/b", "catchall", map[string]string{"*": "blog/a/b"}, []string{"$root"}},
		{"/blog/a%2Fb", "catchall", map[string]string{"*": "blog/a/b"}, []string{"$root"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			m, err := tree.Match(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, m.Page.ID)
			assert.Equal(t, tt.wantParams, m.Params)

			chain := make([]string, 0, len(m.Layouts))
			for _, l := range m.Layouts {
				chain = append(chain, l.ID)
			}
			assert.Equal(t, tt.wantChain, chain)
		})
	}
}

func TestMatchNotFound(t *testing.T) {
	tree := buildTree(t, "page.tsx", "blog/_slug/page.tsx", "docs/catchall/page.tsx")

	for _, p := range []string{"/missing", "/blog", "/blog/a/b", "/docs", "/blog/a%2Fb"} {
		t.Run(p, func(t *testing.T) {
			_, err := tree.Match(p)
			var nf *RouteNotFoundError
			require.ErrorAs(t, err, &nf)
			assert.Equal(t, p, nf.Path)
			assert.False(t, nf.Reserved)
		})
	}
}

func TestMatchReservedAPIPath(t *testing.T) {
	tree := buildTree(t, siteFiles...)

	for _, p := range []string{"/$api", "/$api/users", "/$api/users/42"} {
		t.Run(p, func(t *testing.T) {
			assert.True(t, tree.IsAPIPath(p))
			_, err := tree.Match(p)
			var nf *RouteNotFoundError
			require.ErrorAs(t, err, &nf)
			assert.True(t, nf.Reserved)
			assert.Contains(t, err.Error(), "reserved")
		})
	}

	// Only a whole segment is reserved; this falls through to the catch-all.
	assert.False(t, tree.IsAPIPath("/$apix"))
	m, err := tree.Match("/$apix")
	require.NoError(t, err)
	assert.Equal(t, "catchall", m.Page.ID)
}

func TestMatchPrecedenceIgnoresScanOrder(t *testing.T) {
	// "_id" sorts before "new", so the dynamic directory is scanned first.
	tree := buildTree(t,
		"posts/_id/page.tsx",
		"posts/new/page.tsx",
		"posts/catchall/page.tsx",
	)

	m, err := tree.Match("/posts/new")
	require.NoError(t, err)
	assert.Equal(t, "posts/new", m.Page.ID)
	assert.Empty(t, m.Params)

	m, err = tree.Match("/posts/42")
	require.NoError(t, err)
	assert.Equal(t, "posts/_id", m.Page.ID)
	assert.Equal(t, map[string]string{"id": "42"}, m.Params)

	m, err = tree.Match("/posts/42/comments")
	require.NoError(t, err)
	assert.Equal(t, "posts/catchall", m.Page.ID)
	assert.Equal(t, map[string]string{"*": "42/comments"}, m.Params)
}

func TestMatchBacktracksFromDeadStaticBranch(t *testing.T) {
	tree := buildTree(t,
		"shop/cart/page.tsx",
		"_category/_item/page.tsx",
	)

	// The static "shop" branch only continues with "cart".
	m, err := tree.Match("/shop/shirt")
	require.NoError(t, err)
	assert.Equal(t, "_category/_item", m.Page.ID)
	assert.Equal(t, map[string]string{"category": "shop", "item": "shirt"}, m.Params)

	m, err = tree.Match("/shop/cart")
	require.NoError(t, err)
	assert.Equal(t, "shop/cart", m.Page.ID)
	assert.Empty(t, m.Params)
}

func TestMatchDropsParamsFromFailedBranches(t *testing.T) {
	tree := buildTree(t,
		"_lang/docs/page.tsx",
		"catchall/page.tsx",
	)

	m, err := tree.Match("/en/blog")
	require.NoError(t, err)
	assert.Equal(t, "catchall", m.Page.ID)
	assert.Equal(t, map[string]string{"*": "en/blog"}, m.Params)
}

func TestTreeAccessors(t *testing.T) {
	tree := buildTree(t, siteFiles...)

	nodes := tree.Nodes()
	require.NotEmpty(t, nodes)
	assert.Equal(t, RootID, nodes[0].ID)
	assert.Len(t, nodes, len(tree.IDs()))

	for _, p := range tree.Pages() {
		assert.Equal(t, KindPage, p.Kind)
	}
	assert.Len(t, tree.Pages(), 6)

	_, ok := tree.Node("nope")
	assert.False(t, ok)
}

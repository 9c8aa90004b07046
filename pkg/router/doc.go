// Package router implements file-based routing for routekit.
//
// The router provides:
//   - Route discovery from a routes directory of page and layout modules
//   - A nested route tree of layouts and pages with stable ids
//   - Route pattern compilation and a backtracking matcher
//   - Atomic publication of rebuilt trees
//
// # File Structure Convention
//
// Each directory level may hold one layout module and one page module:
//
//	routes/
//	├── layout.tsx          → root layout
//	├── page.tsx            → /
//	├── about/
//	│   └── page.tsx        → /about
//	├── blog/
//	│   ├── layout.tsx      → layout for /blog/*
//	│   ├── page.tsx        → /blog (index of the blog layout)
//	│   └── _slug/
//	│       └── page.tsx    → /blog/:slug
//	├── catchall/
//	│   └── page.tsx        → /* (fallback)
//	└── $api/               → reserved, dispatched by the host
//
// # Segments
//
//	about      → static "about"
//	_slug      → dynamic parameter "slug"
//	catchall   → catch-all, bound to the "*" parameter
//
// # Precedence
//
// At every level static children are tried first, then the dynamic child,
// then the catch-all child. The matcher backtracks, so a catch-all only
// wins when nothing more specific can match the whole path.
//
// # Usage
//
//	tree, err := router.NewBuilder(router.BuilderOptions{}).BuildDir("src/app/routes")
//	if err != nil {
//	    return err
//	}
//
//	m, err := tree.Match("/blog/hello-world")
//	if err == nil {
//	    // m.Page.ID == "blog/_slug", m.Params["slug"] == "hello-world"
//	}
package router

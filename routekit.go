// Package routekit serves React-style route trees from a Go host.
//
// A project keeps its pages and layouts in a routes directory:
//
//	routes/
//	  layout.tsx          root layout
//	  page.tsx            /
//	  about/page.tsx      /about
//	  blog/_slug/page.tsx /blog/{slug}
//	  docs/catchall/      /docs/{*}
//	  $api/               reserved for the host's API handlers
//
// An App compiles the directory into a route tree, generates client and
// server entrypoints, bundles them, and answers page requests by running
// the server bundle in a subprocess and embedding its markup in an HTML
// shell:
//
//	cfg, err := routekit.LoadConfig(".")
//	app, err := routekit.New(cfg, routekit.Options{
//	    APIHandler:  api,
//	    CSRFToken:   csrf.Token,
//	    CurrentUser: currentUser,
//	})
//	if err := app.Init(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	http.ListenAndServe(":3000", app.Handler())
package routekit

// Version is the routekit release.
var Version = "0.1.0"

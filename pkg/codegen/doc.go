// Package codegen emits the JavaScript entrypoints and the route manifest
// for a compiled route tree.
//
// Generation happens in two steps. Lower turns a router.Tree into a
// Program: a deduplicated import list and a nested route literal. The
// generators then print the Program:
//
//	program := codegen.Lower(tree, codegen.Options{ImportPrefix: "../routes"})
//	client := codegen.GenerateClient(program)
//	server := codegen.GenerateServer(program)
//	manifest, err := codegen.GenerateManifest(tree)
//
// # Output
//
// The client entry exports the route table and a createRouter function
// wrapping createBrowserRouter. The server entry exports the same table
// and, when run by the SSR invoker, reads the request context (JSON
// envelope on stdin or positional arguments), renders it with the server
// runtime's renderToString and writes the markup to stdout.
//
// Output is deterministic: the same tree always produces byte-identical
// files, so the build pipeline can skip rewrites and bundler caches stay
// warm.
package codegen

// Package config loads routekit.toml.
//
// Settings are layered: built-in defaults, then routekit.toml, then
// ROUTEKIT_* environment variables (ROUTEKIT_SSR_TIMEOUT overrides
// ssr.timeout). Durations are strings such as "10s".
//
//	[routes]
//	dir = "routes"
//	extensions = [".tsx", ".jsx"]
//	api_prefix = "$api"
//
//	[build]
//	dir = "build"
//	bundler = "npx esbuild"
//	minify = true
//
//	[ssr]
//	enabled = true
//	command = "node"
//	timeout = "10s"
//	failure_policy = "shell"
//
//	[cache]
//	ttl = "5m"
//	failure_ttl = "5s"
//
//	[dev]
//	port = 3000
//	ignore = ["node_modules", "*.swp"]
//
// A missing routekit.toml is not an error; parse and validation failures
// are *errors.Error values pointing at the file.
package config

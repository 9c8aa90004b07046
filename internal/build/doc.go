// Package build turns a route tree into bundles.
//
// A build has two steps. Generate writes the entrypoints and the route
// manifest into the build directory, touching only files whose content
// changed so bundler caches stay warm. Bundle then runs the bundler for the
// client and server entries concurrently.
//
// # Output Structure
//
//	build/
//	├── client.entry.js       # generated
//	├── server.entry.js       # generated
//	├── routes.manifest.json  # generated
//	├── client.bundle.js
//	└── server.bundle.js      # executed by the SSR invoker
//
// # Usage
//
//	b, err := build.New(cfg, log)
//	if err != nil {
//	    return err
//	}
//	res, err := b.Build(ctx, tree)
//	if err != nil {
//	    return err // *build.BuildError carries the bundler output
//	}
//	fmt.Printf("Built in %s\n", res.Duration)
package build

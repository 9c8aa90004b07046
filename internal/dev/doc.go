// Package dev implements the development loop.
//
// A Watcher reports debounced batches of file changes under the routes
// directory. Each batch triggers the Rebuilder, which runs rebuilds one at a
// time and folds any triggers that arrive mid-rebuild into a single
// follow-up. After every rebuild the ReloadServer tells connected browsers
// to reload, or shows the build error in an overlay.
//
//	loop := dev.NewLoop(dev.LoopOptions{
//	    Watcher: dev.WatcherConfig{Paths: dev.CollectWatchPaths(cfg)},
//	    Rebuild: app.Rebuild,
//	    Reload:  reload,
//	})
//	go loop.Run(ctx)
package dev

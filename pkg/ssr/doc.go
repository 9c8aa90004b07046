// Package ssr runs server-side renders in external processes.
//
// Each Render call launches one renderer process (by default `node
// <bundle>`), hands it the request context and captures the markup it
// writes to stdout. Failures never panic and never surface as plain
// errors: they come back as a Result carrying a *RenderFailure with a
// Reason, the exit code and captured stderr, so the host decides between
// falling back to client-only rendering and showing an error page.
//
// # Protocols
//
// The envelope protocol (default) writes a versioned JSON document to the
// renderer's stdin and sets ROUTEKIT_SSR_PROTOCOL=envelope:
//
//	{"version":"1.0.0","requestPath":"/about","csrfToken":"abc",
//	 "currentUser":{"username":null,...,"isAnonymous":true},"requestId":"..."}
//
// The legacy argv protocol passes the request path, CSRF token and the
// current user as JSON in positional arguments. Envelope renders append
// the same arguments so bundles generated for argv keep working.
//
// # Resources
//
// Concurrent renders are bounded by a weighted semaphore; callers beyond
// the bound queue. The per-call timeout starts once a slot is acquired.
// Renderers run in their own process group and on timeout or cancellation
// the whole group and any escaped descendants are killed.
package ssr

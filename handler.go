package routekit

import (
	"context"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/vango-dev/routekit/internal/config"
	"github.com/vango-dev/routekit/internal/dev"
	rkmiddleware "github.com/vango-dev/routekit/pkg/middleware"
	"github.com/vango-dev/routekit/pkg/rendercache"
	"github.com/vango-dev/routekit/pkg/router"
	"github.com/vango-dev/routekit/pkg/ssr"
)

// Internal endpoints.
const (
	RoutesPath = "/_routekit/routes"
)

// Route names reported to the tracing and metrics middleware for requests
// that are not pages. Pages report their route id.
const (
	RouteAPI    = "$api"
	RouteAssets = "$assets"
)

// Page outcomes, as reported by metrics.
const (
	outcomeRendered = "rendered"
	outcomeShell    = "shell"
	outcomeNotFound = "not_found"
	outcomeError    = "error"
)

// Handler returns the HTTP handler for the App:
//   - /<api prefix>/... goes to Options.APIHandler, any method
//   - /_routekit/assets/... serves client bundles
//   - /_routekit/reload and /_routekit/routes exist outside production
//   - every other GET or HEAD renders a page
//
// Requests are traced, and counted when Options.Registry is set.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(rkmiddleware.OpenTelemetry())
	if a.httpMetrics != nil {
		r.Use(a.httpMetrics)
	}
	r.Use(middleware.Recoverer)

	r.Get(AssetsPrefix+"*", a.serveAsset)
	r.Head(AssetsPrefix+"*", a.serveAsset)

	if !a.cfg.Project.Production {
		r.Get(RoutesPath, a.serveManifest)
		if a.reload != nil {
			r.Get(dev.ReloadPath, a.reload.HandleWebSocket)
		}
	}

	r.HandleFunc("/*", a.serveRoute)
	return r
}

// serveRoute dispatches API requests and renders pages.
func (a *App) serveRoute(w http.ResponseWriter, r *http.Request) {
	cp, err := router.CanonicalizePath(r.URL.EscapedPath())
	if err != nil {
		a.log.Debug("rejected request path", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if a.isAPIPath(cp.Path) {
		rkmiddleware.SetRoute(r.Context(), RouteAPI)
		if a.opts.APIHandler == nil {
			http.NotFound(w, r)
			return
		}
		a.opts.APIHandler.ServeHTTP(w, r)
		return
	}

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	if cp.Changed {
		target := cp.Path
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusPermanentRedirect)
		return
	}

	snap := a.current.Load()
	if snap == nil {
		a.servePending(w, r)
		return
	}

	m, err := snap.tree.Match(cp.Path)
	if err != nil {
		a.metrics.page(outcomeNotFound)
		http.NotFound(w, r)
		return
	}
	rkmiddleware.SetRoute(r.Context(), m.Page.ID)

	rc := a.requestContext(r, cp.Path)
	data := a.shellData(rc, snap)

	// HEAD never renders; it gets the shell headers only.
	outcome := outcomeShell
	if r.Method != http.MethodHead && a.shouldRender(rc) {
		res := a.render(r.Context(), a.bundleOf(snap), rc)
		switch {
		case res.OK():
			data.Markup = template.HTML(res.Markup)
			outcome = outcomeRendered
		case a.cfg.SSR.FailurePolicy == config.FailurePolicyError:
			a.metrics.page(outcomeError)
			a.serveRenderError(w, r, res.Err())
			return
		default:
			a.log.Warn("serving shell after render failure",
				zap.String("path", rc.RequestPath),
				zap.String("reason", string(res.Failure.Reason)),
				zap.String("request_id", rc.RequestID))
		}
	}

	a.metrics.page(outcome)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Vary", "Cookie")
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	if err := renderShell(w, data); err != nil {
		a.log.Error("write page shell", zap.String("path", rc.RequestPath), zap.Error(err))
	}
}

// isAPIPath reports whether p lies under the API prefix.
func (a *App) isAPIPath(p string) bool {
	if t := a.Tree(); t != nil {
		return t.IsAPIPath(p)
	}
	prefix := "/" + a.cfg.Routes.APIPrefix
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

// requestContext builds the render context from the host hooks.
func (a *App) requestContext(r *http.Request, path string) ssr.RenderRequestContext {
	rc := ssr.RenderRequestContext{
		RequestPath: path,
		RequestID:   middleware.GetReqID(r.Context()),
	}
	if a.opts.CSRFToken != nil {
		rc.CSRFToken = a.opts.CSRFToken(r)
	}
	if a.opts.CurrentUser != nil {
		rc.CurrentUser = a.opts.CurrentUser(r)
	}
	return rc
}

// shouldRender reports whether rc is rendered on the server at all.
func (a *App) shouldRender(rc ssr.RenderRequestContext) bool {
	if !a.cfg.SSR.Enabled {
		return false
	}
	return !a.cfg.SSR.AnonymousOnly || rc.IsAnonymous()
}

func (a *App) render(ctx context.Context, b rendercache.Bundle, rc ssr.RenderRequestContext) ssr.Result {
	if a.cache != nil {
		return a.cache.GetOrRender(ctx, b, rc, 0)
	}
	return a.renderer.Render(ctx, b.Path, rc, a.cfg.SSR.Timeout.Duration)
}

func (a *App) shellData(rc ssr.RenderRequestContext, snap *snapshot) shellData {
	p := a.cfg.Project
	data := shellData{
		Title:        p.Title,
		Description:  p.Description,
		CSRFToken:    rc.CSRFToken,
		Stylesheets:  p.Stylesheets,
		Noscript:     p.Noscript,
		ClientBundle: clientBundleURL(a.bundleOf(snap)),
	}
	if a.reload != nil {
		data.DevScript = template.HTML(dev.DevClientScript)
	}
	return data
}

// serveRenderError answers 500. Outside production the body explains why.
func (a *App) serveRenderError(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusInternalServerError)
	if r.Method == http.MethodHead {
		return
	}
	if a.cfg.Project.Production {
		_, _ = w.Write([]byte("Internal Server Error\n"))
		return
	}
	_, _ = w.Write([]byte(FormatErrorCompact(err) + "\n"))
}

// servePending answers requests that arrive before any tree was published.
func (a *App) servePending(w http.ResponseWriter, r *http.Request) {
	err := a.LastError()
	if err == nil {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}
	a.metrics.page(outcomeError)
	a.serveRenderError(w, r, err)
}

// serveManifest serves the published route manifest.
func (a *App) serveManifest(w http.ResponseWriter, r *http.Request) {
	snap := a.current.Load()
	if snap == nil {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(snap.manifest)
}

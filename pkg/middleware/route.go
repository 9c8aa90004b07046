package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Unmatched labels requests whose handler never called SetRoute.
const Unmatched = "unmatched"

// AttrRoute is the span attribute holding the route name.
const AttrRoute = "routekit.route"

type routeKey struct{}

// routeInfo is shared by every middleware layer of one request.
type routeInfo struct {
	mu   sync.Mutex
	name string
}

func (ri *routeInfo) get() string {
	ri.mu.Lock()
	defer ri.mu.Unlock()
	if ri.name == "" {
		return Unmatched
	}
	return ri.name
}

// withRoute returns r with a route holder, reusing one installed by an
// outer layer.
func withRoute(r *http.Request) (*http.Request, *routeInfo) {
	if ri, ok := r.Context().Value(routeKey{}).(*routeInfo); ok {
		return r, ri
	}
	ri := &routeInfo{}
	return r.WithContext(context.WithValue(r.Context(), routeKey{}, ri)), ri
}

// SetRoute names the route serving the request. It is a no-op outside the
// middleware, apart from tagging the current span.
func SetRoute(ctx context.Context, name string) {
	if ri, ok := ctx.Value(routeKey{}).(*routeInfo); ok {
		ri.mu.Lock()
		ri.name = name
		ri.mu.Unlock()
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String(AttrRoute, name))
}

// Route returns the name set by SetRoute, or Unmatched.
func Route(ctx context.Context) string {
	if ri, ok := ctx.Value(routeKey{}).(*routeInfo); ok {
		return ri.get()
	}
	return Unmatched
}

// statusClass buckets a status code as "2xx", "4xx" and so on.
func statusClass(status int) string {
	if status == 0 {
		status = http.StatusOK
	}
	return strconv.Itoa(status/100) + "xx"
}

// Package middleware provides tracing and metrics middleware for the page
// handler.
//
// Both are plain net/http middleware and compose with chi:
//
//	r := chi.NewRouter()
//	r.Use(middleware.OpenTelemetry(middleware.WithTracerName("my-site")))
//	r.Use(middleware.Prometheus(middleware.WithRegistry(reg)))
//
// # Route Labels
//
// Request paths are unbounded, so neither middleware labels by path.
// Handlers name the route they served with SetRoute; the name becomes the
// span's routekit.route attribute and the route label of the metrics.
// Requests that never call SetRoute are labeled "unmatched".
//
//	func page(w http.ResponseWriter, r *http.Request) {
//	    middleware.SetRoute(r.Context(), "blog/_slug")
//	    ...
//	}
//
// # OpenTelemetry
//
// The tracer comes from the global provider. Configure it in main() before
// serving:
//
//	otel.SetTracerProvider(tp)
//
// The request context carries the span, so the server render started for
// the request is traced as its child.
//
// # Prometheus
//
// Metrics collected:
//   - routekit_http_requests_total: requests by route, method and status class
//   - routekit_http_request_duration_seconds: latency by route
//   - routekit_http_requests_in_flight: requests being served
package middleware

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newTracing(t *testing.T, opts ...OTelOption) (func(http.Handler) http.Handler, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })
	return OpenTelemetry(append([]OTelOption{WithTracerProvider(tp)}, opts...)...), rec
}

func attrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func routed(name string, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if name != "" {
			SetRoute(r.Context(), name)
		}
		w.WriteHeader(status)
	})
}

func TestOpenTelemetry_NamesSpanByRoute(t *testing.T) {
	mw, rec := newTracing(t)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(mw)
	r.Get("/*", routed("blog/_slug", http.StatusOK).ServeHTTP)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/blog/hello", nil))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "GET blog/_slug", span.Name())
	assert.Equal(t, trace.SpanKindServer, span.SpanKind())
	assert.Equal(t, codes.Ok, span.Status().Code)

	a := attrs(span)
	assert.Equal(t, "/blog/hello", a["url.path"].AsString())
	assert.Equal(t, "blog/_slug", a[AttrRoute].AsString())
	assert.Equal(t, int64(200), a["http.response.status_code"].AsInt64())
	assert.NotEmpty(t, a["routekit.request_id"].AsString())
}

func TestOpenTelemetry_ServerErrorMarksSpan(t *testing.T) {
	mw, rec := newTracing(t)

	w := httptest.NewRecorder()
	mw(routed("", http.StatusInternalServerError)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET "+Unmatched, spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestOpenTelemetry_ChildSpansNest(t *testing.T) {
	mw, rec := newTracing(t)

	var parent trace.SpanContext
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parent = trace.SpanContextFromContext(r.Context())
		_, child := trace.SpanFromContext(r.Context()).TracerProvider().Tracer("test").Start(r.Context(), "render")
		child.End()
	})
	mw(h).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.True(t, parent.IsValid())
	assert.Equal(t, parent.SpanID(), spans[0].Parent().SpanID())
}

func TestOpenTelemetry_FilterSkipsTracing(t *testing.T) {
	mw, rec := newTracing(t,
		WithRequestFilter(func(r *http.Request) bool { return r.URL.Path != "/healthz" }),
		WithAttributeExtractor(func(*http.Request) []attribute.KeyValue {
			return []attribute.KeyValue{attribute.String("test.attr", "ok")}
		}),
	)
	h := mw(routed("", http.StatusOK))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Empty(t, rec.Ended())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Len(t, rec.Ended(), 1)
	assert.Equal(t, "ok", attrs(rec.Ended()[0])["test.attr"].AsString())
}

func TestPrometheus_RecordsRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	mw := Prometheus(WithRegistry(reg))

	mw(routed("about", http.StatusOK)).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/about", nil))
	mw(routed("about", http.StatusOK)).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodHead, "/about", nil))
	mw(routed("", http.StatusNotFound)).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	count(t, reg, "routekit_http_request_duration_seconds", 2)

	counts := map[string]float64{}
	for _, m := range gather(t, reg, "routekit_http_requests_total") {
		key := ""
		for _, l := range m.GetLabel() {
			key += l.GetName() + "=" + l.GetValue() + " "
		}
		counts[key] = m.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{
		"method=GET route=about status=2xx ":     1,
		"method=HEAD route=about status=2xx ":    1,
		"method=GET route=unmatched status=4xx ": 1,
	}, counts)

	inFlight := gather(t, reg, "routekit_http_requests_in_flight")
	require.Len(t, inFlight, 1)
	assert.Zero(t, inFlight[0].GetGauge().GetValue())
}

func TestPrometheus_SharesRouteWithTracing(t *testing.T) {
	reg := prometheus.NewRegistry()
	tracing, rec := newTracing(t)
	h := Prometheus(WithRegistry(reg), WithNamespace("site"), WithSubsystem("web"))(tracing(routed("blog", http.StatusOK)))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/blog", nil))

	require.Len(t, rec.Ended(), 1)
	assert.Equal(t, "GET blog", rec.Ended()[0].Name())
	count(t, reg, "site_web_requests_total", 1)
}

func TestRouteOutsideMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	SetRoute(req.Context(), "about")
	assert.Equal(t, Unmatched, Route(req.Context()))
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(0))
	assert.Equal(t, "3xx", statusClass(http.StatusPermanentRedirect))
	assert.Equal(t, "5xx", statusClass(http.StatusServiceUnavailable))
}

// gather returns the series of one metric family.
func gather(t *testing.T, reg *prometheus.Registry, name string) []*dto.Metric {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf.GetMetric()
		}
	}
	t.Fatalf("metric %s not registered", name)
	return nil
}

func count(t *testing.T, reg *prometheus.Registry, name string, want int) {
	t.Helper()
	n, err := testutil.GatherAndCount(reg, name)
	require.NoError(t, err)
	assert.Equal(t, want, n, name)
}
